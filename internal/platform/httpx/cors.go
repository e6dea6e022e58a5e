package httpx

import (
	"net/http"
	"strings"
)

// CORS allows cross-origin calls from origin ("*" for any) with credentials.
//
// Credentialed responses cannot use a literal "*", so a wildcard echoes the
// request's Origin instead.
func CORS(origin string) Middleware {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestOrigin := strings.TrimSpace(r.Header.Get("Origin"))
			if requestOrigin != "" && (origin == "*" || strings.EqualFold(origin, requestOrigin)) {
				header := w.Header()
				header.Set("Access-Control-Allow-Origin", requestOrigin)
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Add("Vary", "Origin")
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
					header.Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language, X-Request-ID")
					header.Set("Access-Control-Max-Age", "600")
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
