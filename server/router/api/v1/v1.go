package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/hrygo/triage/ai/cache"
	"github.com/hrygo/triage/ai/metrics"
	"github.com/hrygo/triage/ai/routing"
	"github.com/hrygo/triage/internal/profile"
	"github.com/hrygo/triage/store"
)

// APIV1Service serves the JSON routing API.
type APIV1Service struct {
	Profile *profile.Profile
	Router  *routing.Router
	// Store is nil when the decision log is disabled.
	Store *store.Store
	// CacheStore is pinged by the health check; nil means no cache.
	CacheStore cache.Store
	Metrics    *metrics.RoutingMetrics
}

func NewAPIV1Service(profile *profile.Profile, router *routing.Router, store *store.Store, cacheStore cache.Store, m *metrics.RoutingMetrics) *APIV1Service {
	return &APIV1Service{
		Profile:    profile,
		Router:     router,
		Store:      store,
		CacheStore: cacheStore,
		Metrics:    m,
	}
}

// RegisterRoutes registers the API handlers with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.Healthz)
	if s.Metrics != nil {
		echoServer.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))
	}

	api := echoServer.Group("/api/v1")
	api.POST("/route", s.Route)
	api.POST("/classify", s.Classify)
	api.POST("/cache", s.Remember)
	api.GET("/stats", s.GetRoutingStats)
	api.GET("/decisions", s.ListRoutingDecisions)
}
