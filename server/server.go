package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/triage/ai/observability/logging"
	"github.com/hrygo/triage/internal/profile"
	apiv1 "github.com/hrygo/triage/server/router/api/v1"
)

const (
	requestBodyLimit = "64K"
	shutdownTimeout  = 10 * time.Second
)

// Server is the HTTP front of the router.
type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	listener   net.Listener
}

func NewServer(_ context.Context, profile *profile.Profile, apiService *apiv1.APIV1Service) (*Server, error) {
	if apiService == nil {
		return nil, errors.New("api service is required")
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestID())
	echoServer.Use(contextLogger())
	echoServer.Use(middleware.BodyLimit(requestBodyLimit))
	echoServer.Use(requestLogger())

	apiService.RegisterRoutes(echoServer)

	return &Server{
		Profile:    profile,
		echoServer: echoServer,
	}, nil
}

// Handler exposes the routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start binds the listener and serves in the background. It returns once the
// address is bound so callers can report where the server is running.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}
	s.listener = listener
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	slog.Info("server stopped properly")
}

// contextLogger stores a logger tagged with the request id in the request
// context, where the router and the response cache pick it up.
func contextLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			logger := slog.Default().With("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(logging.ToContext(req.Context(), logger)))
			return next(c)
		}
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelDebug
			if v.Error != nil {
				level = slog.LevelWarn
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			slog.LogAttrs(c.Request().Context(), level, "http request", attrs...)
			return nil
		},
	})
}
