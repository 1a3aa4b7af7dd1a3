// Package records owns the patient and incident collections. Every mutation
// serializes the whole affected collection and writes it through to the store
// before the in-memory copy is replaced.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/internal/storage"
	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
	"github.com/jwalitptl/dental-admin/pkg/logger"
	"github.com/jwalitptl/dental-admin/pkg/metrics"
)

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDSource replaces the random part of generated ids.
func WithIDSource(next func() string) Option {
	return func(s *Service) { s.nextID = next }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.logger = log.With("records") }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

type Service struct {
	store    storage.Store
	validate *validator.Validate
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	nextID   func() string

	mu        sync.RWMutex
	patients  []model.Patient
	incidents []model.Incident
	version   uint64

	// pubMu is taken before mu is released so changes publish in version order.
	pubMu sync.Mutex
	feed  feed
}

// NewService hydrates both collections from the store. Absent keys start
// empty; a value that does not decode is reported as a storage error.
func NewService(ctx context.Context, store storage.Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:    store,
		validate: NewValidator(),
		logger:   logger.Nop(),
		now:      time.Now,
		nextID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := load(ctx, store, model.KeyPatients, &s.patients); err != nil {
		return nil, err
	}
	if err := load(ctx, store, model.KeyIncidents, &s.incidents); err != nil {
		return nil, err
	}
	if s.patients == nil {
		s.patients = []model.Patient{}
	}
	if s.incidents == nil {
		s.incidents = []model.Incident{}
	}
	for i := range s.incidents {
		if s.incidents[i].Files == nil {
			s.incidents[i].Files = []model.FileAttachment{}
		}
	}
	s.observeCounts()
	return s, nil
}

func load(ctx context.Context, store storage.Store, key string, dst any) error {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return apperrors.NewStorageUnavailable("decode "+key, err)
	}
	return nil
}

func (s *Service) persist(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.store.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// timestamp is the current time in UTC without a monotonic reading, so values
// compare equal after a JSON round trip.
func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// touch returns a timestamp strictly after prev.
func (s *Service) touch(prev time.Time) time.Time {
	ts := s.timestamp()
	if !ts.After(prev) {
		ts = prev.Add(time.Millisecond)
	}
	return ts
}

// newID returns prefix+token, retrying until it is unused in taken.
func (s *Service) newID(prefix string, taken func(string) bool) string {
	for {
		id := prefix + s.nextID()
		if !taken(id) {
			return id
		}
	}
}

func (s *Service) patientIndex(id string) int {
	for i := range s.patients {
		if s.patients[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) incidentIndex(id string) int {
	for i := range s.incidents {
		if s.incidents[i].ID == id {
			return i
		}
	}
	return -1
}

// commit bumps the version and records metrics. Callers hold s.mu.
func (s *Service) commit(collection string, op Op, id string, cascade []string) Change {
	s.version++
	if s.metrics != nil {
		s.metrics.RecordMutations.WithLabelValues(collection, string(op)).Inc()
	}
	s.observeCounts()
	return Change{Version: s.version, Collection: collection, Op: op, ID: id, Cascade: cascade}
}

func (s *Service) observeCounts() {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCount.WithLabelValues(CollectionPatients).Set(float64(len(s.patients)))
	s.metrics.RecordCount.WithLabelValues(CollectionIncidents).Set(float64(len(s.incidents)))
}

// Version increases by one with every committed mutation.
func (s *Service) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
