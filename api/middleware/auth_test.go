package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kbwebsolutions/datasender/pkg/config"
	"github.com/kbwebsolutions/datasender/pkg/logger"
)

func signedToken(t *testing.T, secret, issuer string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func authHandler(cfg config.AuthConfig) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return WebhookAuth(cfg, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestWebhookAuthAcceptsValidToken(t *testing.T) {
	cfg := config.AuthConfig{WebhookSecret: "secret", Issuer: "lms"}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", "lms"))

	resp := httptest.NewRecorder()
	authHandler(cfg).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestWebhookAuthRejectsMissingToken(t *testing.T) {
	cfg := config.AuthConfig{WebhookSecret: "secret", Issuer: "lms"}
	resp := httptest.NewRecorder()
	authHandler(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/events", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestWebhookAuthRejectsWrongSecret(t *testing.T) {
	cfg := config.AuthConfig{WebhookSecret: "secret", Issuer: "lms"}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other", "lms"))

	resp := httptest.NewRecorder()
	authHandler(cfg).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestWebhookAuthRejectsWrongIssuer(t *testing.T) {
	cfg := config.AuthConfig{WebhookSecret: "secret", Issuer: "lms"}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "secret", "elsewhere"))

	resp := httptest.NewRecorder()
	authHandler(cfg).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
