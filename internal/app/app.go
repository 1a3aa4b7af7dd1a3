// Package app assembles one application context: store, seeded fixtures,
// session, record store and the HTTP surface over them. Nothing here is
// global; every dependency hangs off the App value.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/dental-admin/config"
	accountHandler "github.com/jwalitptl/dental-admin/internal/handler/account"
	authHandler "github.com/jwalitptl/dental-admin/internal/handler/auth"
	dashboardHandler "github.com/jwalitptl/dental-admin/internal/handler/dashboard"
	"github.com/jwalitptl/dental-admin/internal/handler/health"
	incidentHandler "github.com/jwalitptl/dental-admin/internal/handler/incident"
	patientHandler "github.com/jwalitptl/dental-admin/internal/handler/patient"
	promHandler "github.com/jwalitptl/dental-admin/internal/handler/prometheus"
	"github.com/jwalitptl/dental-admin/internal/middleware"
	"github.com/jwalitptl/dental-admin/internal/router"
	"github.com/jwalitptl/dental-admin/internal/seed"
	"github.com/jwalitptl/dental-admin/internal/service/attachment"
	"github.com/jwalitptl/dental-admin/internal/service/auth"
	"github.com/jwalitptl/dental-admin/internal/service/records"
	"github.com/jwalitptl/dental-admin/internal/storage"
	pkgauth "github.com/jwalitptl/dental-admin/pkg/auth"
	"github.com/jwalitptl/dental-admin/pkg/logger"
	"github.com/jwalitptl/dental-admin/pkg/messaging"
	redisbroker "github.com/jwalitptl/dental-admin/pkg/messaging/redis"
	"github.com/jwalitptl/dental-admin/pkg/metrics"
	"github.com/jwalitptl/dental-admin/pkg/security"
)

const (
	MetricsNamespace = "dental"
	// EventRecordChanged is the message type of every broadcast change.
	EventRecordChanged = "records.changed"

	changeBuffer = 256
)

type options struct {
	store  storage.Store
	broker messaging.Broker
	now    func() time.Time
}

type Option func(*options)

// WithStore uses store instead of opening the configured driver. The App
// does not close a store it did not open.
func WithStore(store storage.Store) Option {
	return func(o *options) { o.store = store }
}

// WithBroker broadcasts changes through broker instead of the configured one.
// Close closes it.
func WithBroker(broker messaging.Broker) Option {
	return func(o *options) { o.broker = broker }
}

// WithClock fixes the time source of the record store and dashboards.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Store    storage.Store
	Seeder   *seed.Seeder
	Session  *auth.Service
	Records  *records.Service
	Encoder  *attachment.Encoder
	Tokens   pkgauth.JWTService
	Events   *messaging.Publisher

	now         func() time.Time
	ownsStore   bool
	unsubscribe func()
	stop        context.CancelFunc
	done        chan struct{}
}

// New opens the store, seeds any missing fixture collection, restores the
// session and hydrates the record store.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.Nop()
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(MetricsNamespace, registry)

	a := &App{
		Config:   cfg,
		Logger:   log,
		Registry: registry,
		Metrics:  m,
		now:      o.now,
	}

	if o.store != nil {
		a.Store = o.store
	} else {
		store, err := storage.Open(ctx, cfg.Storage, m)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
		}
		a.Store = store
		a.ownsStore = true
	}

	hasher := security.NewHasher(cfg.Auth.PasswordMode, cfg.Auth.BcryptCost)
	a.Seeder = seed.NewSeeder(a.Store, hasher, log)
	if err := a.Seeder.EnsureSeeded(ctx); err != nil {
		a.closeStore()
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	session, err := auth.NewService(ctx, a.Store, hasher, log, m)
	if err != nil {
		a.closeStore()
		return nil, err
	}
	a.Session = session

	recs, err := records.NewService(ctx, a.Store,
		records.WithClock(o.now),
		records.WithLogger(log),
		records.WithMetrics(m),
	)
	if err != nil {
		a.closeStore()
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	a.Records = recs

	a.Encoder = attachment.NewEncoder(cfg.Attachments.MaxBytes)
	a.Tokens = pkgauth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	broker := o.broker
	if broker == nil {
		broker, err = openBroker(ctx, cfg.Events, log)
		if err != nil {
			a.closeStore()
			return nil, err
		}
	}
	a.Events = messaging.NewPublisher(broker, cfg.Events.Channel)
	a.bridge()

	return a, nil
}

// openBroker connects to redis when events.redis_url is set; otherwise
// changes stay in process.
func openBroker(ctx context.Context, cfg config.EventsConfig, log *logger.Logger) (messaging.Broker, error) {
	if cfg.RedisURL == "" {
		return messaging.NewMemoryBroker(), nil
	}
	b, err := redisbroker.NewRedisBroker(ctx, redisbroker.Config{URL: cfg.RedisURL}, log.With("events").Zerolog())
	if err != nil {
		return nil, fmt.Errorf("failed to connect change broker: %w", err)
	}
	return b, nil
}

// bridge forwards every committed change to the publisher from a single
// goroutine, so a slow broker never holds up a mutation. Publish failures are
// logged and dropped.
func (a *App) bridge() {
	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel
	a.done = make(chan struct{})
	changes := make(chan records.Change, changeBuffer)
	log := a.Logger.With("events")

	a.unsubscribe = a.Records.Subscribe(func(c records.Change) {
		select {
		case changes <- c:
		default:
			log.Warn("dropping change event", "collection", c.Collection, "id", c.ID)
		}
	})

	go func() {
		defer close(a.done)
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-changes:
				if err := a.Events.Publish(ctx, EventRecordChanged, c); err != nil && !errors.Is(err, context.Canceled) {
					log.Error(err, "failed to publish change", "collection", c.Collection, "id", c.ID)
				}
			}
		}
	}()
}

// Handler builds the HTTP surface over this application context.
func (a *App) Handler() http.Handler {
	r := router.NewRouter(
		middleware.NewAuthMiddleware(a.Tokens, a.Session),
		router.Handlers{
			Auth:      authHandler.NewHandler(a.Session, a.Tokens),
			Patient:   patientHandler.NewHandler(a.Records),
			Incident:  incidentHandler.NewHandler(a.Records, a.Encoder),
			Account:   accountHandler.NewHandler(a.Records),
			Dashboard: dashboardHandler.NewHandler(a.Records, a.now),
			Health:    health.NewHandler(a.Store),
			Metrics:   promHandler.New(a.Metrics, a.Registry),
		},
		a.Logger,
		router.RouterConfig{
			MetricsEnabled: a.Config.Monitoring.MetricsEnabled,
			MetricsPath:    a.Config.Monitoring.MetricsPath,
			MaxUploadBytes: a.Config.Attachments.MaxBytes,
			RequestTimeout: a.Config.Server.WriteTimeout,
			RateLimit:      a.Config.Server.RateLimit,
			RateBurst:      a.Config.Server.RateBurst,
		},
	)
	r.Setup()
	return r.Engine()
}

// Close stops the change bridge and releases the broker and the store.
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.stop != nil {
		a.stop()
		<-a.done
	}
	var errs []error
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close change broker: %w", err))
		}
	}
	if err := a.closeStore(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStore() error {
	if !a.ownsStore || a.Store == nil {
		return nil
	}
	a.ownsStore = false
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
