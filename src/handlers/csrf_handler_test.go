package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/capfolio/backend/src/logger"
)

func init() {
	logger.InitLogger("error")
}

var testCSRFKey = []byte("0123456789abcdef0123456789abcdef")

func TestSignAndVerifyCSRFToken(t *testing.T) {
	token := signCSRFToken(testCSRFKey, "nonce-1")
	assert.True(t, verifyCSRFToken(testCSRFKey, token))

	assert.False(t, verifyCSRFToken(testCSRFKey, "no-dot-separator"))
	assert.False(t, verifyCSRFToken(testCSRFKey, "nonce-1.tampered-signature"))
	assert.False(t, verifyCSRFToken([]byte("a different 32 byte signing key!"), token),
		"a token signed under another key must not verify")
}

func TestCSRFMiddleware(t *testing.T) {
	handler := CSRFMiddleware(testCSRFKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	token := signCSRFToken(testCSRFKey, "nonce-2")

	t.Run("safe methods pass without a token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("mutating request without cookie is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/upload", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("header must match cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		req.Header.Set(csrfHeaderName, signCSRFToken(testCSRFKey, "nonce-3"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("forged token with matching cookie and header is rejected", func(t *testing.T) {
		forged := "attacker-nonce.Zm9yZ2VkLXNpZ25hdHVyZQ=="
		req := httptest.NewRequest(http.MethodDelete, "/api/transactions/all", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: forged})
		req.Header.Set(csrfHeaderName, forged)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid double submit passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
		req.Header.Set(csrfHeaderName, token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}
