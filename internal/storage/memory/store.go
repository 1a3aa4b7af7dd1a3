// Package memory provides an in-process key/value store used by tests and by
// the "memory" storage driver.
package memory

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

type Store struct {
	mu     sync.RWMutex
	data   map[string]string
	failOn map[string]error
	closed bool
	writes int
}

func New() *Store {
	return &Store{data: make(map[string]string), failOn: make(map[string]error)}
}

// FailWrites makes every subsequent Set or Remove of key fail with err.
// Passing a nil err clears the fault.
func (s *Store) FailWrites(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, key)
		return
	}
	s.failOn[key] = err
}

// Writes reports how many successful Set/Remove calls the store has served.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, apperrors.NewStorageUnavailable("get "+key, errClosed)
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("set", key); err != nil {
		return err
	}
	s.data[key] = value
	s.writes++
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("remove", key); err != nil {
		return err
	}
	delete(s.data, key)
	s.writes++
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) check(op, key string) error {
	if s.closed {
		return apperrors.NewStorageUnavailable(op+" "+key, errClosed)
	}
	if err, ok := s.failOn[key]; ok {
		return apperrors.NewStorageUnavailable(op+" "+key, err)
	}
	return nil
}

var errClosed = errors.New("store closed")
