package storage

import (
	"context"
	"time"

	"github.com/jwalitptl/dental-admin/pkg/metrics"
)

type instrumented struct {
	Store
	m *metrics.Metrics
}

// WithMetrics records operation counts and latency for every call.
func WithMetrics(s Store, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{Store: s, m: m}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	i.m.StorageOperations.WithLabelValues(op, status).Inc()
	i.m.StorageLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (i *instrumented) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, ok, err := i.Store.Get(ctx, key)
	i.observe("get", start, err)
	return value, ok, err
}

func (i *instrumented) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := i.Store.Set(ctx, key, value)
	i.observe("set", start, err)
	return err
}

func (i *instrumented) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := i.Store.Remove(ctx, key)
	i.observe("remove", start, err)
	return err
}
