package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LIMS-backend/internal/platform/auth"
	"LIMS-backend/internal/platform/blob"
	"LIMS-backend/internal/platform/config"
	"LIMS-backend/internal/platform/db"
)

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Mode = "dev"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AdminEmails = []string{"admin@cse.iith.ac.in"}
	cfg.Auth.LoginRatePerMinute = 100
	blobs, err := blob.NewFilesystem(t.TempDir())
	require.NoError(t, err)
	return New(Deps{DB: db.OpenTest(t), Config: cfg, Blobs: blobs})
}

func call(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOpenEndpoints(t *testing.T) {
	r := newEngine(t)

	w := call(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = call(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lims_http_requests_total")

	w = call(r, http.MethodGet, "/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/reports/labels"`)
	assert.Contains(t, w.Body.String(), `"/provisioning"`)

	w = call(r, http.MethodGet, "/api/v1/equipment", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminFlow(t *testing.T) {
	r := newEngine(t)

	w := call(r, http.MethodPost, "/api/v1/auth/register", "", auth.RegisterRequest{Email: "admin@cse.iith.ac.in", Password: "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = call(r, http.MethodPost, "/api/v1/auth/login", "", auth.LoginRequest{Email: "admin@cse.iith.ac.in", Password: "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	tok := login.Token

	w = call(r, http.MethodPost, "/api/v1/rooms", tok, map[string]any{"name": "CS-107", "kind": "lab", "capacity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/api/v1/equipment", tok, map[string]any{
		"category": "Monitor", "manufacturer": "Dell", "model": "P2422H", "serial_number": "MON-1",
		"po_date": "2024-03-15", "indenter": "Dr. A Sharma", "location": "CS-107",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "CSE/20240315/Monitor/Dell/A/001")

	w = call(r, http.MethodGet, "/api/v1/reports/utilization", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"CS-107"`)

	w = call(r, http.MethodGet, "/api/v1/reports/equipment?format=csv", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "MON-1")
}
