package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/capfolio/backend/src/config"
	"github.com/username/capfolio/backend/src/logger"
	"github.com/username/capfolio/backend/src/utils"
)

const (
	csrfCookieName = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
)

func signCSRFToken(key []byte, nonce string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(nonce))
	return nonce + "." + base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

func verifyCSRFToken(key []byte, token string) bool {
	nonce, _, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	return hmac.Equal([]byte(signCSRFToken(key, nonce)), []byte(token))
}

// GetCSRFToken issues a fresh HMAC-signed CSRF token as both a cookie and a
// response body, for the double-submit check performed by CSRFMiddleware.
func GetCSRFToken(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.L.Error("Failed to generate CSRF token", "error", err)
		utils.SendJSONError(w, "Failed to generate CSRF token", http.StatusInternalServerError)
		return
	}
	token := signCSRFToken(config.Cfg.CSRFAuthKey, base64.URLEncoding.EncodeToString(b))

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // the frontend reads it back into the header
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"csrf_token": token})
}

// CSRFMiddleware enforces the double-submit cookie pattern: mutating
// requests must echo the CSRF cookie value in the X-CSRF-Token header, and
// the token must carry a valid signature under the given key. Safe methods
// pass through.
func CSRFMiddleware(key []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				logger.L.Warn("CSRF check failed: cookie missing", "path", r.URL.Path, "method", r.Method)
				utils.SendJSONError(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			header := r.Header.Get(csrfHeaderName)
			if header != cookie.Value || !verifyCSRFToken(key, header) {
				logger.L.Warn("CSRF check failed: header mismatch or bad signature", "path", r.URL.Path, "method", r.Method)
				utils.SendJSONError(w, "CSRF token invalid", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
