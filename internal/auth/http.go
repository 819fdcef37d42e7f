// ABOUTME: HTTP middleware for JWT authentication on proxied API endpoints
// ABOUTME: Verifies the Authorization header token before the request proceeds

package auth

import "net/http"

// TokenRequired creates an HTTP middleware that rejects requests without a
// valid session token in the Authorization header. The header carries the
// bare token, matching what /register hands out.
func TokenRequired(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("Authorization")
			if token == "" {
				writeUnauthorized(w, "token is missing")
				return
			}
			if _, err := verifier.Verify(token); err != nil {
				writeUnauthorized(w, "token is invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"message":"` + msg + `"}`))
}
