package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/triage/ai/cache"
	"github.com/hrygo/triage/ai/routing"
	"github.com/hrygo/triage/internal/version"
	"github.com/hrygo/triage/store"
)

const (
	defaultStatsRange = 24 * time.Hour
	defaultListLimit  = 100
	maxListLimit      = 1000
	healthPingTimeout = 2 * time.Second
	maxRememberTTL    = 30 * 24 * time.Hour
)

// TranscriptRequest is the body of /route and /classify. A transcript that
// is missing, null or not a JSON string is treated as empty and still routed.
type TranscriptRequest struct {
	Transcript json.RawMessage `json:"transcript"`
}

func (r TranscriptRequest) text() string {
	var s string
	if err := json.Unmarshal(r.Transcript, &s); err != nil {
		return ""
	}
	return s
}

// RememberRequest is the body of /cache.
type RememberRequest struct {
	Intent     string `json:"intent"`
	Transcript string `json:"transcript"`
	Response   string `json:"response"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Cache   string `json:"cache"`
}

func bindTranscript(c echo.Context) (string, error) {
	var req TranscriptRequest
	if err := c.Bind(&req); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return req.text(), nil
}

// Route handles POST /api/v1/route.
func (s *APIV1Service) Route(c echo.Context) error {
	text, err := bindTranscript(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Router.Route(c.Request().Context(), text))
}

// Classify handles POST /api/v1/classify.
func (s *APIV1Service) Classify(c echo.Context) error {
	text, err := bindTranscript(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Router.Classify(text))
}

// Remember handles POST /api/v1/cache, the write-through used by the
// static workflow once it has produced an answer.
func (s *APIV1Service) Remember(c echo.Context) error {
	var req RememberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	intent := routing.Intent(strings.TrimSpace(req.Intent))
	switch {
	case !intent.Present():
		return echo.NewHTTPError(http.StatusBadRequest, "intent is required")
	case req.Response == "":
		return echo.NewHTTPError(http.StatusBadRequest, "response is required")
	case req.TTLSeconds < 0:
		return echo.NewHTTPError(http.StatusBadRequest, "ttl_seconds must not be negative")
	case !s.Router.Cacheable(intent):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "intent "+string(intent)+" is not cacheable")
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl > maxRememberTTL {
		ttl = maxRememberTTL
	}
	s.Router.Remember(c.Request().Context(), intent, req.Transcript, req.Response, ttl)
	return c.NoContent(http.StatusAccepted)
}

// GetRoutingStats handles GET /api/v1/stats?since=1h.
func (s *APIV1Service) GetRoutingStats(c echo.Context) error {
	if s.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "decision log is disabled")
	}
	timeRange := defaultStatsRange
	if since := c.QueryParam("since"); since != "" {
		d, err := time.ParseDuration(since)
		if err != nil || d <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be a positive duration such as 1h")
		}
		timeRange = d
	}

	stats, err := s.Store.GetRoutingStats(c.Request().Context(), &store.GetRoutingStats{TimeRange: timeRange})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get routing stats").SetInternal(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// ListRoutingDecisions handles GET /api/v1/decisions?action=&intent=&since=&limit=.
func (s *APIV1Service) ListRoutingDecisions(c echo.Context) error {
	if s.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "decision log is disabled")
	}

	find := &store.FindRoutingDecision{Limit: defaultListLimit}
	for _, a := range c.QueryParams()["action"] {
		if !routing.Action(a).Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown action "+a)
		}
		find.Actions = append(find.Actions, a)
	}
	if intent := c.QueryParam("intent"); intent != "" {
		find.Intent = &intent
	}
	if since := c.QueryParam("since"); since != "" {
		d, err := time.ParseDuration(since)
		if err != nil || d <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be a positive duration such as 1h")
		}
		ts := time.Now().Add(-d).Unix()
		find.Since = &ts
	}
	if limit := c.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		find.Limit = min(n, maxListLimit)
	}

	list, err := s.Store.ListRoutingDecisions(c.Request().Context(), find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list routing decisions").SetInternal(err)
	}
	if list == nil {
		list = []*store.RoutingDecision{}
	}
	return c.JSON(http.StatusOK, list)
}

// Healthz handles GET /healthz. An unreachable cache store makes the
// service unhealthy even though Route keeps answering.
func (s *APIV1Service) Healthz(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Cache: "disabled"}
	if s.Profile != nil {
		resp.Version = s.Profile.Version
	}
	if resp.Version == "" {
		resp.Version = version.String()
	}

	if pinger, ok := s.CacheStore.(cache.Pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			resp.Status, resp.Cache = "degraded", "unreachable"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		resp.Cache = "ok"
	}
	return c.JSON(http.StatusOK, resp)
}
