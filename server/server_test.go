package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/triage/ai/cache"
	"github.com/hrygo/triage/ai/routing"
	"github.com/hrygo/triage/internal/profile"
	apiv1 "github.com/hrygo/triage/server/router/api/v1"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	table := routing.DefaultTable()
	mem := cache.NewMemoryStore(16)
	router := routing.NewRouter(table, routing.NewResponseCache(mem, table))
	prof := &profile.Profile{Mode: "dev", Addr: "127.0.0.1", Port: 0, Version: "0.0.1"}

	s, err := NewServer(context.Background(), prof, apiv1.NewAPIV1Service(prof, router, nil, mem, nil))
	require.NoError(t, err)
	return s
}

func TestNewServer_RequiresAPIService(t *testing.T) {
	_, err := NewServer(context.Background(), &profile.Profile{}, nil)
	assert.Error(t, err)
}

func TestServer_Handler(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/route", strings.NewReader(`{"transcript":"there is a lot of swelling"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"action":"EMERGENCY_HANDOFF"`)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestServer_BodyLimit(t *testing.T) {
	s := newTestServer(t)

	body := `{"transcript":"` + strings.Repeat("x", 70*1024) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/route", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_StartShutdown(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, s.Addr())

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", s.Addr()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	s.Shutdown(context.Background())
	_, err = http.Get(fmt.Sprintf("http://%s/healthz", s.Addr()))
	assert.Error(t, err)
}

func TestServer_RequestLoggerInContext(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/route", strings.NewReader(`{"transcript":"where can I park"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRequestID, "call-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "routing decision")
	assert.Contains(t, buf.String(), "request_id=call-42")
}
