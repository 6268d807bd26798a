package portal

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/metrics"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/views"
)

// ListAppointments returns the caller's appointments, decorated and filtered.
// Admins see every booking; everyone else sees their own side.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var appts []*store.Appointment
	var err error
	switch {
	case user.IsAdmin():
		appts, err = store.List(r.Context(), h.store, store.Appointments)
	case user.IsClinical():
		appts, err = h.store.ListAppointmentsByDoctor(r.Context(), user.ID)
	default:
		appts, err = h.store.ListAppointmentsByPatient(r.Context(), user.ID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	decorated := h.views.DecorateAppointments(r.Context(), appts)
	filtered := views.FilterAppointments(decorated, parseQuery(r), h.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  filtered,
		"total": len(filtered),
	})
}

// BookAppointment books a slot. Patients always book for themselves; clinical
// users book on behalf of a named patient. Nothing is written when validation
// fails.
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req store.BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if !user.IsClinical() && !user.IsAdmin() {
		req.PatientID = user.ID
	}
	if details := req.Validate(h.now()); details != nil {
		writeError(w, errors.Validation("appointment request is invalid", details))
		return
	}

	appt := &store.Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		DurationMinutes: req.DurationMinutes,
		Type:            req.Type,
		Status:          store.AppointmentStatusPending,
		Notes:           req.Notes,
		Priority:        req.Priority,
	}
	created, err := store.Create(r.Context(), h.store, store.Appointments, appt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetAppointment returns one appointment if the caller is a party to it.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	appt, err := store.Get(r.Context(), h.store, store.Appointments, types.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	if !canSeeAppointment(user, appt) {
		writeError(w, errors.Forbidden("not a party to this appointment"))
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ConfirmAppointment moves a pending appointment to confirmed.
func (h *Handler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, func(a *store.Appointment) error { return a.Confirm() })
}

// CompleteAppointment marks a confirmed appointment as completed.
func (h *Handler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, func(a *store.Appointment) error { return a.Complete() })
}

// MarkNoShow records that the patient did not attend.
func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.transitionAppointment(w, r, func(a *store.Appointment) error { return a.MarkNoShow() })
}

// CancelAppointment cancels a booking. Either party may cancel.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	id := types.ID(chi.URLParam(r, "id"))
	appt, err := store.Get(r.Context(), h.store, store.Appointments, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !canSeeAppointment(user, appt) {
		writeError(w, errors.Forbidden("not a party to this appointment"))
		return
	}
	h.applyTransition(w, r, id, func(a *store.Appointment) error { return a.Cancel() })
}

func (h *Handler) transitionAppointment(w http.ResponseWriter, r *http.Request, transition func(*store.Appointment) error) {
	if requireUser(w, r) == nil {
		return
	}
	h.applyTransition(w, r, types.ID(chi.URLParam(r, "id")), transition)
}

func (h *Handler) applyTransition(w http.ResponseWriter, r *http.Request, id types.ID, transition func(*store.Appointment) error) {
	var from store.AppointmentStatus
	updated, err := store.Update(r.Context(), h.store, store.Appointments, id, func(a *store.Appointment) error {
		from = a.Status
		if err := transition(a); err != nil {
			return errors.Conflict(err.Error())
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordAppointmentStatusChange(string(from), string(updated.Status))
	writeJSON(w, http.StatusOK, updated)
}

func canSeeAppointment(user *sharedauth.User, appt *store.Appointment) bool {
	if user.IsAdmin() {
		return true
	}
	if user.IsClinical() {
		return appt.DoctorID == user.ID
	}
	return appt.PatientID == user.ID
}
