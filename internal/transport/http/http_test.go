package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/auth"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/credentials"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard/store"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/vault"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/config"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:httptest-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tracker := guard.NewFailureTracker(store.NewMemory(), guard.TrackerConfig{
		Window:      15 * time.Minute,
		MaxAttempts: 3,
	})
	authService, err := auth.NewService(auth.Options{
		DB:      db,
		Tracker: tracker,
		Secret:  "http-test-secret",
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	cfg := config.DefaultConfig()
	router, err := Build(Options{
		Config:         cfg,
		AuthMiddleware: AuthMiddleware(authService),
	})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	NewUserService(authService, nil).Register(router.API, router.Secured)
	credService := credentials.NewService(db, vault.New("http-test-fingerprint"), nil)
	NewCredentialService(credService, nil).Register(router.Secured)
	NewSystemService(nil, "test").Register(router.API, router.Secured)

	return router.Engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func registerAndLogin(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	w, _ := doJSON(t, engine, http.MethodPost, "/api/user/register", "", gin.H{
		"username": "alice",
		"password": "hunter2!",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: unexpected status %d", w.Code)
	}

	w, resp := doJSON(t, engine, http.MethodPost, "/api/user/login", "", gin.H{
		"username": "alice",
		"password": "hunter2!",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: unexpected status %d", w.Code)
	}
	data := resp.Data.(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("login response missing token")
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	w, resp := doJSON(t, engine, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("unexpected health response: %d %+v", w.Code, resp)
	}
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	engine := newTestRouter(t)

	w, _ := doJSON(t, engine, http.MethodGet, "/api/credentials", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w, _ = doJSON(t, engine, http.MethodGet, "/api/user/me", "garbage-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", w.Code)
	}
}

func TestLoginLockoutOverHTTP(t *testing.T) {
	engine := newTestRouter(t)
	registerAndLogin(t, engine)

	for i := 0; i < 3; i++ {
		w, _ := doJSON(t, engine, http.MethodPost, "/api/user/login", "", gin.H{
			"username": "alice",
			"password": "wrong",
		})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, w.Code)
		}
	}

	w, _ := doJSON(t, engine, http.MethodPost, "/api/user/login", "", gin.H{
		"username": "alice",
		"password": "hunter2!",
	})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while locked, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on lockout")
	}
}

func TestCredentialFlowOverHTTP(t *testing.T) {
	engine := newTestRouter(t)
	token := registerAndLogin(t, engine)

	w, _ := doJSON(t, engine, http.MethodPost, "/api/credentials", token, gin.H{
		"provider": "openai",
		"apiKey":   "sk-test-123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("store: unexpected status %d", w.Code)
	}

	w, resp := doJSON(t, engine, http.MethodGet, "/api/credentials", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: unexpected status %d", w.Code)
	}
	list := resp.Data.([]interface{})
	if len(list) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(list))
	}
	entry := list[0].(map[string]interface{})
	if _, leaked := entry["apiKey"]; leaked {
		t.Fatal("list response leaked key material")
	}

	w, resp = doJSON(t, engine, http.MethodGet, "/api/credentials/openai", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reveal: unexpected status %d", w.Code)
	}
	data := resp.Data.(map[string]interface{})
	if data["apiKey"] != "sk-test-123" {
		t.Fatalf("unexpected revealed key: %v", data["apiKey"])
	}

	w, _ = doJSON(t, engine, http.MethodDelete, "/api/credentials/openai", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: unexpected status %d", w.Code)
	}
	w, _ = doJSON(t, engine, http.MethodGet, "/api/credentials/openai", token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	engine := newTestRouter(t)
	token := registerAndLogin(t, engine)

	w, resp := doJSON(t, engine, http.MethodGet, "/api/user/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: unexpected status %d", w.Code)
	}
	data := resp.Data.(map[string]interface{})
	if data["username"] != "alice" {
		t.Fatalf("unexpected identity: %+v", data)
	}
}
