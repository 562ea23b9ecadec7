package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminKey guards operator endpoints with a bearer key checked against a
// bcrypt hash.
func AdminKey(keyHash string) func(http.Handler) http.Handler {
	hash := []byte(strings.TrimSpace(keyHash))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "AUTH_ERROR", "管理キーが必要です")
				return
			}

			scheme, key, ok := strings.Cut(authHeader, " ")
			key = strings.TrimSpace(key)
			if !ok || !strings.EqualFold(scheme, "Bearer") || key == "" {
				writeJSONError(w, http.StatusUnauthorized, "AUTH_ERROR", "管理キーの形式が正しくありません")
				return
			}

			if len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(key)) != nil {
				writeJSONError(w, http.StatusUnauthorized, "AUTH_ERROR", "管理キーが無効です")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
