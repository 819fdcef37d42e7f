// ABOUTME: Plain HTTP handlers for the connector: status and registration
// ABOUTME: Registration exchanges an upstream credential for a session token

package connector

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/2389/convo-relay/internal/auth"
)

// handleStatus reports liveness and this instance's routing identity.
func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"server_id":   string(s.serverID),
		"connections": s.hub.ConnCount(),
	})
}

// registerHandler exchanges the caller's credential for a session token.
// The credential travels in the Authorization header; what counts as
// valid depends on the configured registration checker.
func (s *Service) registerHandler(checker auth.RegistrationChecker, verifier *auth.JWTVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credential := r.Header.Get("Authorization")

		ok, err := checker.Check(r.Context(), credential)
		if err != nil {
			s.logger.Error("registration check failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"message": "registration check unavailable",
			})
			return
		}
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"message": "registration rejected",
			})
			return
		}

		// Each registration names a fresh session user; the token is the
		// only handle the client keeps.
		token, err := verifier.Generate(uuid.New().String(), s.config.Auth.TokenLifetime)
		if err != nil {
			s.logger.Error("token generation failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"message": "token generation failed",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"token": token})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
