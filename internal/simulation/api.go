package simulation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Handler provides HTTP handlers for simulated analysis runs
type Handler struct {
	runner *Runner
}

// NewHandler creates a new analysis handler
func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

// Routes registers the analysis routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Start)
	r.Get("/{id}", h.Status)
	r.Post("/{id}/cancel", h.Cancel)

	return r
}

// Start launches an analysis run. Patients run analyses on themselves;
// clinical users may name a patient in the body.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	user := sharedauth.GetUser(r.Context())
	if user == nil {
		writeError(w, errors.Unauthorized("authentication required"))
		return
	}

	var req struct {
		PatientID types.ID `json:"patientId"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errors.BadRequest("invalid request body"))
			return
		}
	}

	patientID := req.PatientID
	if patientID.IsZero() || !user.IsClinical() {
		patientID = user.ID
	}

	task := h.runner.Start(patientID)
	writeJSON(w, http.StatusAccepted, task.Snapshot())
}

// Status returns the current state of a run
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id := types.ID(chi.URLParam(r, "id"))
	task, ok := h.runner.Get(id)
	if !ok {
		writeError(w, errors.NotFound("analysis", id.String()))
		return
	}
	writeJSON(w, http.StatusOK, task.Snapshot())
}

// Cancel stops a run
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := types.ID(chi.URLParam(r, "id"))
	task, ok := h.runner.Get(id)
	if !ok {
		writeError(w, errors.NotFound("analysis", id.String()))
		return
	}

	task.Cancel()
	<-task.Done()
	writeJSON(w, http.StatusOK, task.Snapshot())
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
