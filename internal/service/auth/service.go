package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/internal/storage"
	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
	"github.com/jwalitptl/dental-admin/pkg/logger"
	"github.com/jwalitptl/dental-admin/pkg/metrics"
	"github.com/jwalitptl/dental-admin/pkg/security"
)

// Service holds the single active session of an application context. The
// session is mirrored to the store so it survives a restart.
type Service struct {
	store   storage.Store
	hasher  security.PasswordHasher
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	current *model.Account
}

// NewService restores the persisted session, if any. A missing or corrupt
// session value starts unauthenticated; only a storage failure is an error.
func NewService(ctx context.Context, store storage.Store, hasher security.PasswordHasher, log *logger.Logger, m *metrics.Metrics) (*Service, error) {
	if hasher == nil {
		hasher = security.NewHasher(security.ModePlaintext, 0)
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{store: store, hasher: hasher, logger: log.With("auth"), metrics: m}

	raw, ok, err := store.Get(ctx, model.KeyCurrentSession)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	if !ok {
		return s, nil
	}
	var account model.Account
	if err := json.Unmarshal([]byte(raw), &account); err != nil || account.ID == "" {
		s.logger.Warn("ignoring unreadable session value", "error", fmt.Sprint(err))
		return s, nil
	}
	s.current = &account
	return s, nil
}

// Login checks the credentials against the stored accounts, read fresh on
// every call. Emails match exactly, case included.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Account, error) {
	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		s.countLogin("error")
		return nil, err
	}

	var match *model.Account
	for i := range accounts {
		if accounts[i].Email != email {
			continue
		}
		if s.hasher.Compare(accounts[i].Password, password) == nil {
			match = &accounts[i]
			break
		}
	}
	if match == nil {
		s.countLogin("invalid")
		return nil, apperrors.ErrInvalidCredentials
	}

	// the persisted session never carries the password
	session := match.Public()
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, model.KeyCurrentSession, string(payload)); err != nil {
		s.countLogin("error")
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	s.current = &session
	s.countLogin("success")
	s.logger.Info("user logged in", "account_id", session.ID, "role", string(session.Role))

	out := session
	return &out, nil
}

// Logout always clears the in-memory session. The error reports a failed
// removal of the persisted copy.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current
	s.current = nil
	if err := s.store.Remove(ctx, model.KeyCurrentSession); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if prev != nil {
		s.logger.Info("user logged out", "account_id", prev.ID)
	}
	return nil
}

// Current returns a copy of the active account.
func (s *Service) Current() (*model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, false
	}
	out := *s.current
	return &out, true
}

func (s *Service) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// Role returns the active account's role, or "" when nobody is logged in.
func (s *Service) Role() model.Role {
	a, ok := s.Current()
	if !ok {
		return ""
	}
	return a.Role
}

func (s *Service) loadAccounts(ctx context.Context) ([]model.Account, error) {
	raw, ok, err := s.store.Get(ctx, model.KeyAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var accounts []model.Account
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil, apperrors.NewStorageUnavailable("decode "+model.KeyAccounts, err)
	}
	return accounts, nil
}

func (s *Service) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(result).Inc()
	}
}

// IsInvalidCredentials is a small helper for handlers.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, apperrors.ErrInvalidCredentials)
}
