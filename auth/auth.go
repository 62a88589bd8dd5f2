// Package auth verifies bearer tokens issued by the external auth service and
// guards HTTP handlers with them. Tokens are HS256 JWTs signed with a secret
// shared between the issuer and both services; this package never issues
// tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/diewo77/go-fieldops/httpx"
	"github.com/diewo77/go-fieldops/i18n"
)

type ctxKey string

const (
	bearerPrefix = "Bearer"
	claimsCtxKey = ctxKey("claims")
)

// Claims is the decoded payload of a verified token.
type Claims struct {
	// UserID is the "id" claim, or "sub" when the issuer does not set "id".
	UserID string
	// Raw holds every claim exactly as decoded.
	Raw jwt.MapClaims
}

// ExpiresAt returns the exp claim when present.
func (c *Claims) ExpiresAt() (time.Time, bool) {
	exp, err := c.Raw.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Error is a classified verification failure. Code is an i18n catalog key.
type Error struct {
	Code string
	err  error
}

func (e *Error) Error() string { return i18n.T(i18n.DefaultLang, e.Code) }

func (e *Error) Unwrap() error { return e.err }

// Is matches any *Error with the same code, so wrapped causes still compare
// equal to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrMissingToken = &Error{Code: "token_missing"}
	ErrTokenExpired = &Error{Code: "token_expired"}
	ErrInvalidToken = &Error{Code: "token_invalid"}
)

// Verifier checks HS256 signatures against a fixed shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify decodes the raw Authorization header value. The "Bearer " prefix is
// optional.
func (v *Verifier) Verify(header string) (*Claims, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), bearerPrefix))
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		// jwt/v5 checks the signature before exp, so an expired error
		// implies a valid signature.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &Error{Code: ErrTokenExpired.Code, err: err}
		}
		return nil, &Error{Code: ErrInvalidToken.Code, err: err}
	}
	return &Claims{UserID: subject(claims), Raw: claims}, nil
}

func subject(claims jwt.MapClaims) string {
	for _, key := range []string{"id", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, c)
}

// ClaimsFromContext extracts claims stored by the guard.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext extracts the authenticated user id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", false
	}
	return c.UserID, true
}

// ClaimsHandlerFunc is a handler that receives the verified claims.
type ClaimsHandlerFunc func(w http.ResponseWriter, r *http.Request, claims *Claims)

// Guard wraps handlers so they only run with verified claims.
type Guard struct {
	verifier *Verifier
	log      logrus.FieldLogger
}

func NewGuard(v *Verifier, log logrus.FieldLogger) *Guard {
	return &Guard{verifier: v, log: log}
}

// Wrap returns a handler that answers 401 unless the request carries a valid
// token; on success h runs with the claims, also stored in the context.
func (g *Guard) Wrap(h ClaimsHandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.LangFrom(r.Context())
		header := r.Header.Get("Authorization")
		if header == "" {
			g.log.WithFields(logrus.Fields{"path": r.URL.Path, "method": r.Method}).Warn("missing authorization header")
			httpx.Fail(w, http.StatusUnauthorized, i18n.T(lang, "token_required"))
			return
		}
		claims, err := g.verifier.Verify(header)
		if err != nil {
			code := ErrInvalidToken.Code
			var authErr *Error
			if errors.As(err, &authErr) {
				code = authErr.Code
			}
			g.log.WithError(err).WithFields(logrus.Fields{"path": r.URL.Path, "method": r.Method}).Warn("token verification failed")
			httpx.Fail(w, http.StatusUnauthorized, i18n.T(lang, code))
			return
		}
		h(w, r.WithContext(WithClaims(r.Context(), claims)), claims)
	})
}

// Require adapts Wrap to plain handlers, for use as router middleware.
func (g *Guard) Require(next http.Handler) http.Handler {
	return g.Wrap(func(w http.ResponseWriter, r *http.Request, _ *Claims) {
		next.ServeHTTP(w, r)
	})
}
