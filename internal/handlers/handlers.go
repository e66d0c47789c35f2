package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"walipheros/internal/middleware"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func valueToString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// session resolves the authenticated user's session or writes the error
// response itself, returning nil in that case.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *Session {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	session, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load dashboard state")
		return nil
	}
	return session
}
