package management

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/luispater/CopilotBridge/internal/config"
	"github.com/luispater/CopilotBridge/internal/logging"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

const managementKey = "mgmt-key"

func newTestRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(managementKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	cfg := &config.Config{
		AccessToken:      "inbound-secret",
		RemoteManagement: config.RemoteManagement{SecretKey: string(hash)},
	}
	handler := NewHandler(cfg, nil, logging.NewFileRequestLogger(false, t.TempDir()))

	engine := gin.New()
	group := engine.Group("/v0/management", handler.Middleware())
	group.GET("/usage", handler.GetUsage)
	group.GET("/config", handler.GetConfig)
	group.GET("/request-log", handler.GetRequestLog)
	group.PUT("/request-log", handler.PutRequestLog)
	return engine, handler
}

func doRequest(engine *gin.Engine, method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("X-Management-Key", key)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRejectsMissingKey(t *testing.T) {
	engine, _ := newTestRouter(t)
	rec := doRequest(engine, http.MethodGet, "/v0/management/usage", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareRejectsWrongKey(t *testing.T) {
	engine, _ := newTestRouter(t)
	rec := doRequest(engine, http.MethodGet, "/v0/management/usage", "wrong", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareAcceptsBearerKey(t *testing.T) {
	engine, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/v0/management/usage", nil)
	req.Header.Set("Authorization", "Bearer "+managementKey)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(&config.Config{}, nil, logging.NewFileRequestLogger(false, t.TempDir()))
	engine := gin.New()
	engine.GET("/v0/management/usage", handler.Middleware(), handler.GetUsage)

	rec := doRequest(engine, http.MethodGet, "/v0/management/usage", managementKey, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetUsageWithoutStore(t *testing.T) {
	engine, _ := newTestRouter(t)
	rec := doRequest(engine, http.MethodGet, "/v0/management/usage", managementKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "{}" {
		t.Errorf("body = %q, want {}", body)
	}
}

func TestGetConfigRedactsSecrets(t *testing.T) {
	engine, _ := newTestRouter(t)
	rec := doRequest(engine, http.MethodGet, "/v0/management/config", managementKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "inbound-secret") {
		t.Error("access token leaked through management config endpoint")
	}
	if !strings.Contains(body, "[REDACTED]") {
		t.Errorf("body = %s, want redaction markers", body)
	}
}

func TestRequestLogToggle(t *testing.T) {
	engine, handler := newTestRouter(t)

	rec := doRequest(engine, http.MethodGet, "/v0/management/request-log", managementKey, "")
	if gjson.Get(rec.Body.String(), "request-log").Bool() {
		t.Fatal("request logging should start disabled")
	}

	rec = doRequest(engine, http.MethodPut, "/v0/management/request-log", managementKey, `{"enabled":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !handler.requestLogger.IsEnabled() {
		t.Error("request logging not enabled after toggle")
	}

	rec = doRequest(engine, http.MethodPut, "/v0/management/request-log", managementKey, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing enabled field", rec.Code)
	}
}
