package portal

import (
	"net/http"

	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

// ListUsers returns every portal account, optionally filtered by role.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := store.Role(r.URL.Query().Get("role"))

	users, err := store.ListWhere(r.Context(), h.store, store.Users, func(u *store.User) bool {
		return role == "" || u.Role == role
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  users,
		"total": len(users),
	})
}

// GetTraining returns the model training aggregate.
func (h *Handler) GetTraining(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetModelTraining(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// RunTraining performs a training pass and returns the updated aggregate.
func (h *Handler) RunTraining(w http.ResponseWriter, r *http.Request) {
	user := sharedauth.GetUser(r.Context())

	record, err := h.store.RunModelTraining(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// GetAnalytics returns the analytics aggregate as last refreshed.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetSystemAnalytics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// RefreshAnalytics recomputes the portal-wide counts.
func (h *Handler) RefreshAnalytics(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.RefreshSystemAnalytics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
