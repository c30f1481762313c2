package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth returns middleware that requires Authorization: Bearer <token>
// on every dashboard route. The comparison runs in constant time.
func BearerAuth(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(provided), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="weatherdash"`)
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing or invalid dashboard token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
