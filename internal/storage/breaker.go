package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/dental-admin/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

type guarded struct {
	Store
	cb *circuitbreaker.CircuitBreaker
}

// WithBreaker makes calls to a network backend fail fast once it has failed
// maxFailures times in a row. Rejected calls surface as storage-unavailable
// errors like any other backend failure.
func WithBreaker(s Store, name string, maxFailures int, timeout time.Duration) Store {
	return &guarded{Store: s, cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        name,
		MaxFailures: maxFailures,
		Timeout:     timeout,
	})}
}

func (g *guarded) run(op, key string, fn func() error) error {
	err := g.cb.Execute(fn)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return apperrors.NewStorageUnavailable(op+" "+key, err)
	}
	return err
}

func (g *guarded) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := g.run("get", key, func() error {
		var err error
		value, ok, err = g.Store.Get(ctx, key)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return value, ok, nil
}

func (g *guarded) Set(ctx context.Context, key, value string) error {
	return g.run("set", key, func() error { return g.Store.Set(ctx, key, value) })
}

func (g *guarded) Remove(ctx context.Context, key string) error {
	return g.run("remove", key, func() error { return g.Store.Remove(ctx, key) })
}
