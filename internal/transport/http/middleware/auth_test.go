package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	jwtinfra "github.com/veriflow/orchestrator/internal/infrastructure/jwt"
)

type stubVerifier struct {
	claims *jwtinfra.Claims
	err    error
}

func (s stubVerifier) Verify(string) (*jwtinfra.Claims, error) { return s.claims, s.err }

func authedHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantUser, UserID(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthAllowsValidToken(t *testing.T) {
	mw := Auth(stubVerifier{claims: &jwtinfra.Claims{UserID: "usr-1"}})
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()

	mw(authedHandler(t, "usr-1")).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	mw := Auth(stubVerifier{})
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	rec := httptest.NewRecorder()

	mw(authedHandler(t, "")).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())
}

func TestAuthRejectsBadToken(t *testing.T) {
	mw := Auth(stubVerifier{err: errors.New("expired")})
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()

	mw(authedHandler(t, "")).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
