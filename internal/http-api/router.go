// Package httpapi assembles the gin engine that serves the REST API.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bookshare/internal/http-api/handler"
	"bookshare/internal/http-api/middleware"
	"bookshare/internal/http-api/service"
)

type Services struct {
	Auth          service.AuthService
	Lending       service.LendingService
	Catalog       service.CatalogService
	Events        service.EventService
	Notifications service.NotificationService
	Opportunities service.OpportunityService
	Dashboard     service.DashboardService
}

type Options struct {
	Logger *slog.Logger
	// Limiter throttles sign-up, login and submissions. Nil disables it.
	Limiter *middleware.RateLimiter
	// Gatherer, when set, is served on /metrics.
	Gatherer prometheus.Gatherer
	// Health backs /healthz.
	Health func(ctx context.Context) error
}

func NewRouter(svc Services, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	limit := func(c *gin.Context) { c.Next() }
	if opts.Limiter != nil {
		limit = opts.Limiter.Middleware()
	}

	v1 := r.Group("/api/v1")
	requireAuth := middleware.AuthMiddleware(svc.Auth)

	auth := v1.Group("/auth", limit)
	handler.NewAuthHandler(svc.Auth).RegisterRoutes(auth, requireAuth)

	// everything below needs a finished profile
	api := v1.Group("", requireAuth, middleware.RequireProfile())

	lending := handler.NewLendingHandler(svc.Lending)
	lending.RegisterRequestRoutes(api.Group("/requests"), limit)
	lending.RegisterDonationRoutes(api.Group("/donations"), limit)

	handler.NewCatalogHandler(svc.Catalog).RegisterRoutes(api.Group("/books"))
	handler.NewEventHandler(svc.Events).RegisterRoutes(api.Group("/events"))
	handler.NewNotificationHandler(svc.Notifications).RegisterRoutes(api.Group("/notifications"))
	handler.NewOpportunityHandler(svc.Opportunities).RegisterRoutes(api.Group("/opportunities"))
	handler.NewDashboardHandler(svc.Dashboard).RegisterRoutes(api.Group("/dashboard"))

	return r
}
