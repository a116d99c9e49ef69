package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mapit/internal/handler"
	"github.com/iliyamo/mapit/internal/model"
	"github.com/iliyamo/mapit/internal/service"
	"github.com/iliyamo/mapit/internal/utils"
)

const secret = "router-secret"

type stubAdmins struct{ handler.Admins }

func (stubAdmins) Login(_ context.Context, email, _ string) (*model.Admin, error) {
	if email != "root@example.com" {
		return nil, service.ErrInvalidCredentials
	}
	return &model.Admin{ID: 1, Email: email}, nil
}

func (stubAdmins) Stats(context.Context) (*model.Stats, error) {
	return &model.Stats{Customers: 3}, nil
}

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func newServer() *echo.Echo {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &handler.Handler{
		Admins:       stubAdmins{},
		DB:           okPinger{},
		JWTSecret:    secret,
		AccessTTLMin: 5,
		Log:          log,
	}
	return New(h, Options{JWTSecret: secret, Log: log})
}

func serve(t *testing.T, srv http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	rec := serve(t, newServer(), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, true, envelope(t, rec)["success"])
}

func TestRouterErrorsUseEnvelope(t *testing.T) {
	srv := newServer()
	srv.GET("/api/boom", func(echo.Context) error { panic("boom") })

	cases := []struct {
		name   string
		method string
		path   string
		status int
		msg    string
	}{
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound, "Not Found"},
		{"wrong method", http.MethodPatch, "/api/zones/x", http.StatusMethodNotAllowed, "Method Not Allowed"},
		{"recovered panic", http.MethodGet, "/api/boom", http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, srv, tc.method, tc.path, "", "")
			assert.Equal(t, tc.status, rec.Code)
			out := envelope(t, rec)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, tc.msg, out["error"])
			assert.NotContains(t, out, "message")
		})
	}
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	srv := newServer()

	rec := serve(t, srv, http.MethodGet, "/api/admin/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	customer, err := utils.NewAccessToken(secret, 5, utils.RoleCustomer, 5)
	require.NoError(t, err)
	rec = serve(t, srv, http.MethodGet, "/api/admin/stats", "", customer.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := utils.NewAccessToken(secret, 1, utils.RoleAdmin, 5)
	require.NoError(t, err)
	rec = serve(t, srv, http.MethodGet, "/api/admin/stats", "", admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"customers":3`)
}

func TestAdminLoginIsPublic(t *testing.T) {
	srv := newServer()
	rec := serve(t, srv, http.MethodPost, "/api/admin/login", `{"email":"root@example.com","password":"pw"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)

	rec = serve(t, srv, http.MethodPost, "/api/admin/login", `{"email":"nobody@example.com","password":"pw"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/map", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
