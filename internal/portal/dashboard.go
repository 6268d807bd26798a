package portal

import (
	"net/http"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

// Dashboard returns the caller's role-specific summary.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	now := h.now()
	var stats any
	var err error
	switch {
	case user.IsAdmin():
		stats, err = h.views.AdminDashboard(r.Context(), now)
	case user.IsClinical():
		stats, err = h.views.DoctorDashboard(r.Context(), user.ID, now)
	default:
		stats, err = h.views.PatientDashboard(r.Context(), user.ID, now)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListDoctors returns the active clinical users, for the booking form.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	if requireUser(w, r) == nil {
		return
	}

	users, err := store.ListWhere(r.Context(), h.store, store.Users, func(u *store.User) bool {
		clinical := u.Role == store.RoleDoctor || u.Role == store.RoleClinician
		return clinical && u.Status == store.UserStatusActive
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

// Me returns the caller's profile row.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	profile, err := store.Get(r.Context(), h.store, store.Users, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
