package audit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Handler provides HTTP handlers for the audit trail
type Handler struct {
	repo Repository
}

// NewHandler creates a new audit handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the audit routes. Mount behind the admin guard.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/verify", h.Verify)
	r.Get("/resource/{resourceType}/{resourceID}", h.GetByResource)
	r.Get("/{id}", h.GetByID)

	return r
}

// List returns audit entries newest first, filtered by query parameters
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Limit: 50}

	q := r.URL.Query()
	if v := q.Get("actor_id"); v != "" {
		id := types.ID(v)
		filter.ActorID = &id
	}
	filter.Action = q.Get("action")
	filter.ResourceType = q.Get("resource_type")
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	if v := q.Get("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid start_time"))
			return
		}
		filter.StartTime = &t
	}
	if v := q.Get("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, errors.BadRequest("invalid end_time"))
			return
		}
		filter.EndTime = &t
	}

	entries, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   total,
	})
}

// Verify checks the integrity of the audit chain
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	result, err := h.repo.VerifyChain(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetByResource returns the trail for one resource
func (h *Handler) GetByResource(w http.ResponseWriter, r *http.Request) {
	resourceType := chi.URLParam(r, "resourceType")
	resourceID := types.ID(chi.URLParam(r, "resourceID"))

	entries, err := h.repo.GetByResource(r.Context(), resourceType, resourceID, 100)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
	})
}

// GetByID returns one audit entry
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	entry, err := h.repo.FindByID(r.Context(), types.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
