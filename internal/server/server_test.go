package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"anitrack/internal/config"
	"anitrack/internal/handlers"
	"anitrack/internal/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newTestServer() *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0"},
		CORS:   config.CORSConfig{Origins: "http://app.test"},
	}
	log := logger.Discard()
	return New(cfg, handlers.New(handlers.Services{}, nil, log), log)
}

func TestServer_HealthCarriesRequestID(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer()

	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anitrack_http_requests_total")
}

func TestServer_UnknownRouteIsEnvelope(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not Found"}`, rec.Body.String())
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodOptions, "/api/watchlist", nil)
	req.Header.Set(echo.HeaderOrigin, "http://app.test")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.test", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
