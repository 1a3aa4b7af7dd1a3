package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	authHandler "github.com/jwalitptl/dental-admin/internal/handler/auth"
	dashboardHandler "github.com/jwalitptl/dental-admin/internal/handler/dashboard"
	promHandler "github.com/jwalitptl/dental-admin/internal/handler/prometheus"
	"github.com/jwalitptl/dental-admin/internal/middleware"
	"github.com/jwalitptl/dental-admin/internal/model"
	"github.com/jwalitptl/dental-admin/pkg/logger"
)

const APIPrefix = "/api/v1"

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers groups every route owner the router mounts.
type Handlers struct {
	Auth      *authHandler.Handler
	Patient   Handler
	Incident  Handler
	Account   Handler
	Dashboard *dashboardHandler.Handler
	Health    Handler
	Metrics   *promHandler.Handler
}

type RouterConfig struct {
	MetricsEnabled bool
	MetricsPath    string
	// MaxUploadBytes caps request bodies on admin routes, which carry uploads.
	MaxUploadBytes int64
	RequestTimeout time.Duration
	// RateLimit is requests per second per account on authenticated routes.
	RateLimit      float64
	RateBurst      int
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	limiter *middleware.RateLimiter
	h       Handlers
	config  RouterConfig
}

func NewRouter(auth *middleware.AuthMiddleware, h Handlers, log *logger.Logger, config RouterConfig) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  rate.Limit(config.RateLimit),
		Burst: config.RateBurst,
	})

	r := &Router{
		engine:  engine,
		auth:    auth,
		limiter: limiter,
		h:       h,
		config:  config,
	}

	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Timeout(config.RequestTimeout),
	)
	if h.Metrics != nil {
		engine.Use(h.Metrics.Middleware())
	}

	return r
}

func (r *Router) Setup() {
	root := r.engine.Group("")
	r.h.Health.RegisterRoutes(root)
	if r.config.MetricsEnabled && r.h.Metrics != nil {
		path := r.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, r.h.Metrics.Handler())
	}

	api := r.engine.Group(APIPrefix)
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	// Public routes
	r.h.Auth.RegisterRoutes(api)

	// Protected routes
	protected := api.Group("")
	protected.Use(r.auth.Authenticate(), r.limiter.RateLimit())
	r.h.Auth.RegisterProtectedRoutes(protected)

	admin := protected.Group("")
	admin.Use(
		r.auth.RequireRole(model.RoleAdmin),
		middleware.SizeLimit(r.config.MaxUploadBytes),
	)
	r.h.Patient.RegisterRoutes(admin)
	r.h.Incident.RegisterRoutes(admin)
	r.h.Dashboard.RegisterAdminRoutes(admin)

	patient := protected.Group("")
	patient.Use(r.auth.RequireRole(model.RolePatient))
	r.h.Account.RegisterRoutes(patient)
	r.h.Dashboard.RegisterPatientRoutes(patient)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
