package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"thakajabe/config"
	"thakajabe/infras/jwt"
	"thakajabe/infras/memory"
	"thakajabe/infras/otel/mocks"
	"thakajabe/permissions"
	"thakajabe/shared/constant"
	"thakajabe/transport/http/middleware"
	"thakajabe/transport/http/router"

	"github.com/stretchr/testify/assert"
)

func newServer(t *testing.T) *HTTP {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Name = "thakajabe-test"
	cfg.Server.Env = constant.ServerEnvProduction
	cfg.JWT.AccessSecret = "server-secret"

	otl := mocks.NewOtel()

	return New(
		cfg,
		router.New(router.DomainHandlers{}),
		middleware.NewAppMiddleware(otl, cfg, memory.NewCache()),
		middleware.NewAuthRoleMiddleware(jwt.New(cfg), otl, permissions.Get(), cfg),
	)
}

func TestHTTP_ServeHTTP(t *testing.T) {
	server := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		code   int
	}{
		{name: "health", method: http.MethodGet, path: "/health", code: http.StatusOK},
		{name: "api needs a token", method: http.MethodGet, path: "/v1/ledger/summary", code: http.StatusUnauthorized},
		{name: "no swagger in production", method: http.MethodGet, path: "/swagger/index.html", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			server.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.code, rec.Code)
		})
	}

	assert.Equal(t, ServerStateReady, server.State())
}

func TestHTTP_ShutdownGuard(t *testing.T) {
	server := newServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	server.state.Store(int32(ServerStateInGracePeriod))

	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
