package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/go-fieldops/i18n"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return s
}

func validClaims(id any) jwt.MapClaims {
	return jwt.MapClaims{
		"id":  id,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims("user-1"))

	for _, header := range []string{"Bearer " + token, token} {
		claims, err := v.Verify(header)
		if err != nil {
			t.Fatalf("Verify(%q) error = %v", header[:10], err)
		}
		if claims.UserID != "user-1" {
			t.Errorf("UserID = %q, want user-1", claims.UserID)
		}
		if _, ok := claims.ExpiresAt(); !ok {
			t.Error("expected exp claim")
		}
	}
}

func TestVerifySubjectFallback(t *testing.T) {
	v := NewVerifier(testSecret)

	numeric := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims(42))
	claims, err := v.Verify(numeric)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != "42" {
		t.Errorf("UserID = %q, want 42", claims.UserID)
	}

	sub := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub": "7",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	claims, err = v.Verify("Bearer " + sub)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != "7" {
		t.Errorf("UserID = %q, want 7", claims.UserID)
	}
}

func TestVerifyFailures(t *testing.T) {
	v := NewVerifier(testSecret)
	expired := validClaims("user-1")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name   string
		header string
		want   error
		msg    string
	}{
		{"empty header", "", ErrMissingToken, "Token no proporcionado"},
		{"bearer only", "Bearer ", ErrMissingToken, "Token no proporcionado"},
		{"bare scheme", "Bearer", ErrMissingToken, "Token no proporcionado"},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, expired), ErrTokenExpired, "Token expirado"},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, "other", validClaims("u")), ErrInvalidToken, "Token inválido"},
		{"expired wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, "other", expired), ErrInvalidToken, "Token inválido"},
		{"wrong algorithm", "Bearer " + signToken(t, jwt.SigningMethodHS512, testSecret, validClaims("u")), ErrInvalidToken, "Token inválido"},
		{"malformed", "Bearer not.a.token", ErrInvalidToken, "Token inválido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(tt.header)
			if claims != nil {
				t.Fatalf("expected no claims, got %+v", claims)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Verify() error = %v, want %v", err, tt.want)
			}
			if err.Error() != tt.msg {
				t.Errorf("message = %q, want %q", err.Error(), tt.msg)
			}
		})
	}
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestGuardRejects(t *testing.T) {
	g := NewGuard(NewVerifier(testSecret), quietLogger())
	expired := validClaims("user-1")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{"no header", "", "Token requerido"},
		{"bearer without token", "Bearer ", "Token no proporcionado"},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, testSecret, expired), "Token expirado"},
		{"garbage", "Bearer abc", "Token inválido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := g.Require(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
			req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if called {
				t.Fatal("handler must not run without a valid token")
			}
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rr.Code)
			}
			body := decodeMessage(t, rr)
			if body["success"] != false || body["message"] != tt.msg {
				t.Errorf("body = %v, want message %q", body, tt.msg)
			}
		})
	}
}

func TestGuardTranslatesMessages(t *testing.T) {
	g := NewGuard(NewVerifier(testSecret), quietLogger())
	h := g.Require(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/workorders", nil)
	req = req.WithContext(i18n.WithLang(req.Context(), i18n.LangEN))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if body := decodeMessage(t, rr); body["message"] != "Token required" {
		t.Errorf("message = %v, want Token required", body["message"])
	}
}

func TestGuardInjectsClaims(t *testing.T) {
	g := NewGuard(NewVerifier(testSecret), quietLogger())
	token := signToken(t, jwt.SigningMethodHS256, testSecret, validClaims("user-9"))

	var fromArg, fromCtx string
	h := g.Wrap(func(w http.ResponseWriter, r *http.Request, c *Claims) {
		fromArg = c.UserID
		fromCtx, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if fromArg != "user-9" || fromCtx != "user-9" {
		t.Errorf("claims not propagated: arg=%q ctx=%q", fromArg, fromCtx)
	}
}

func TestClaimsFromEmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ClaimsFromContext(req.Context()); ok {
		t.Fatal("expected no claims")
	}
	if _, ok := UserIDFromContext(req.Context()); ok {
		t.Fatal("expected no user id")
	}
}
