// Package seed writes the fixture collections into an empty store.
package seed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/internal/storage"
	"github.com/jwalitptl/dental-admin/pkg/logger"
	"github.com/jwalitptl/dental-admin/pkg/security"
)

// Keys lists the collections the seeder owns, in the order they are written.
var Keys = []string{model.KeyAccounts, model.KeyPatients, model.KeyIncidents}

type Seeder struct {
	store  storage.Store
	hasher security.PasswordHasher
	logger *logger.Logger
}

func NewSeeder(store storage.Store, hasher security.PasswordHasher, log *logger.Logger) *Seeder {
	if hasher == nil {
		hasher = security.NewHasher(security.ModePlaintext, 0)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{store: store, hasher: hasher, logger: log.With("seeder")}
}

// EnsureSeeded writes each fixture collection whose key has no value yet.
// Existing values are never touched, whatever they contain.
func (s *Seeder) EnsureSeeded(ctx context.Context) error {
	for _, key := range Keys {
		_, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", key, err)
		}
		if ok {
			continue
		}
		payload, err := s.fixture(key)
		if err != nil {
			return err
		}
		if err := s.store.Set(ctx, key, payload); err != nil {
			return fmt.Errorf("failed to seed %s: %w", key, err)
		}
		s.logger.Info("seeded collection", "key", key)
	}
	return nil
}

// Reset drops the seeded collections and the active session, then seeds again.
func (s *Seeder) Reset(ctx context.Context) error {
	for _, key := range append([]string{model.KeyCurrentSession}, Keys...) {
		if err := s.store.Remove(ctx, key); err != nil {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}
	return s.EnsureSeeded(ctx)
}

// Dump returns the raw stored value of every seeded key plus the session key.
// Absent keys are omitted.
func (s *Seeder) Dump(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(Keys)+1)
	for _, key := range append(append([]string{}, Keys...), model.KeyCurrentSession) {
		v, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if ok {
			out[key] = v
		}
	}
	return out, nil
}

func (s *Seeder) fixture(key string) (string, error) {
	var v any
	switch key {
	case model.KeyAccounts:
		accounts := Accounts()
		for i := range accounts {
			hashed, err := s.hasher.Hash(accounts[i].Password)
			if err != nil {
				return "", fmt.Errorf("failed to hash fixture password: %w", err)
			}
			accounts[i].Password = hashed
		}
		v = accounts
	case model.KeyPatients:
		v = Patients()
	case model.KeyIncidents:
		v = Incidents()
	default:
		return "", fmt.Errorf("no fixture for key %q", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s fixture: %w", key, err)
	}
	return string(b), nil
}
