package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/config"
	"github.com/mikepea/recipebox/pkg/recipebox/media"
	"github.com/mikepea/recipebox/pkg/recipebox/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", ShutdownTimeout: time.Second},
		Auth:   config.AuthConfig{MinPasswordLength: 5},
		Media: config.MediaConfig{
			Backend:        "local",
			Dir:            dir,
			URLPrefix:      "/media",
			MaxUploadBytes: 1 << 20,
		},
	}
}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB, *media.LocalStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	cfg := testConfig(filepath.Join(t.TempDir(), "media"))
	store, err := media.NewLocalStore(cfg.Media.Dir, cfg.Media.URLPrefix)
	require.NoError(t, err)
	r := NewRouter(Deps{DB: db, Store: store, Config: cfg, Logger: zap.NewNop()})
	return r, db, store
}

func do(r http.Handler, method, path, authHeader string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	r, _, _ := setupRouter(t)

	for _, path := range []string{"/health", "/api/health"} {
		w := do(r, "GET", path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _, _ := setupRouter(t)

	do(r, "GET", "/health", "", nil)
	w := do(r, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `recipebox_http_requests_total{method="GET",path="/health",status="200"} 1`)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	r, _, _ := setupRouter(t)

	routes := []struct{ method, path string }{
		{"GET", "/api/recipes"},
		{"POST", "/api/recipes"},
		{"GET", "/api/recipes/1"},
		{"POST", "/api/recipes/1/upload-image"},
		{"GET", "/api/tags"},
		{"PATCH", "/api/tags/1"},
		{"DELETE", "/api/ingredients/1"},
		{"GET", "/api/api-keys"},
		{"GET", "/api/export"},
		{"POST", "/api/import"},
		{"GET", "/api/admin/users"},
		{"GET", "/api/auth/me"},
	}
	for _, rt := range routes {
		w := do(r, rt.method, rt.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", rt.method, rt.path)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := do(r, "POST", "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = do(r, "POST", "/api/tags", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAPIKeyReachesRecipes(t *testing.T) {
	r, db, _ := setupRouter(t)
	user := testutil.CreateUser(t, db, "user@example.com")

	w := do(r, "POST", "/api/api-keys", testutil.AuthHeader(t, user), map[string]string{"description": "cli"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(r, "POST", "/api/recipes", "Bearer "+created.Key, map[string]interface{}{
		"title":        "Toast",
		"time_minutes": 3,
		"price":        "0.50",
		"tags":         []map[string]string{{"name": "Breakfast"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, "GET", "/api/tags", "Bearer "+created.Key, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Breakfast")
}

func TestAdminRequiresStaff(t *testing.T) {
	r, db, _ := setupRouter(t)
	user := testutil.CreateUser(t, db, "user@example.com")
	staff := testutil.CreateStaff(t, db, "staff@example.com")

	w := do(r, "GET", "/api/admin/stats", testutil.AuthHeader(t, user), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, "GET", "/api/admin/stats", testutil.AuthHeader(t, staff), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMediaServedFromLocalStore(t *testing.T) {
	r, _, store := setupRouter(t)

	require.NoError(t, store.Save(context.Background(), "recipe/test.txt", []byte("hello"), "text/plain"))

	w := do(r, "GET", "/media/recipe/test.txt", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", strings.TrimSpace(w.Body.String()))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, config.ServerConfig{Port: "0", ShutdownTimeout: time.Second}, http.NotFoundHandler(), zap.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
