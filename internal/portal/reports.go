package portal

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/views"
)

// ListReports returns the caller's reports, decorated and filtered. Admins
// see everything.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var reports []*store.MedicalReport
	var err error
	switch {
	case user.IsAdmin():
		reports, err = store.List(r.Context(), h.store, store.MedicalReports)
	case user.IsClinical():
		reports, err = h.store.ListReportsByDoctor(r.Context(), user.ID)
	default:
		reports, err = h.store.ListReportsByPatient(r.Context(), user.ID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	decorated := h.views.DecorateReports(r.Context(), reports)
	filtered := views.FilterReports(decorated, parseQuery(r), h.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  filtered,
		"total": len(filtered),
	})
}

type createReportRequest struct {
	PatientID      types.ID          `json:"patientId"`
	AppointmentID  *types.ID         `json:"appointmentId,omitempty"`
	ReportDate     string            `json:"reportDate,omitempty"`
	ScanType       string            `json:"scanType"`
	Findings       store.Findings    `json:"findings"`
	ScansPerformed []string          `json:"scansPerformed,omitempty"`
	VitalSigns     map[string]string `json:"vitalSigns,omitempty"`
}

// CreateReport files a new draft report authored by the calling clinician.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	details := make(map[string]string)
	if req.PatientID.IsZero() {
		details["patientId"] = "patientId is required"
	}
	if req.ScanType == "" {
		details["scanType"] = "scanType is required"
	}
	if req.Findings.Condition == "" {
		details["findings.condition"] = "condition is required"
	}
	if len(details) > 0 {
		writeError(w, errors.Validation("report request is invalid", details))
		return
	}

	if _, err := store.Get(r.Context(), h.store, store.Users, req.PatientID); err != nil {
		writeError(w, err)
		return
	}

	reportDate := req.ReportDate
	if reportDate == "" {
		reportDate = h.now().Format("2006-01-02")
	}

	report := &store.MedicalReport{
		PatientID:      req.PatientID,
		DoctorID:       user.ID,
		AppointmentID:  req.AppointmentID,
		ReportDate:     reportDate,
		ScanType:       req.ScanType,
		Findings:       req.Findings,
		ScansPerformed: req.ScansPerformed,
		VitalSigns:     req.VitalSigns,
		Status:         store.ReportStatusDraft,
	}
	created, err := store.Create(r.Context(), h.store, store.MedicalReports, report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetReport returns one report if the caller may read it.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	report, err := store.Get(r.Context(), h.store, store.MedicalReports, types.ID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	if !canSeeReport(user, report) {
		writeError(w, errors.Forbidden("not a party to this report"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// FinalizeReport moves a draft report to finalized.
func (h *Handler) FinalizeReport(w http.ResponseWriter, r *http.Request) {
	h.setReportStatus(w, r, store.ReportStatusDraft, store.ReportStatusFinalized)
}

// AmendReport reopens a finalized report as amended.
func (h *Handler) AmendReport(w http.ResponseWriter, r *http.Request) {
	h.setReportStatus(w, r, store.ReportStatusFinalized, store.ReportStatusAmended)
}

func (h *Handler) setReportStatus(w http.ResponseWriter, r *http.Request, from, to store.ReportStatus) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	updated, err := store.Update(r.Context(), h.store, store.MedicalReports, types.ID(chi.URLParam(r, "id")), func(rep *store.MedicalReport) error {
		if rep.DoctorID != user.ID && !user.IsAdmin() {
			return errors.Forbidden("only the authoring doctor may change this report")
		}
		if rep.Status != from {
			return errors.Conflict("report status is " + string(rep.Status))
		}
		rep.Status = to
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func canSeeReport(user *sharedauth.User, report *store.MedicalReport) bool {
	if user.IsAdmin() {
		return true
	}
	if user.IsClinical() {
		return report.DoctorID == user.ID
	}
	return report.PatientID == user.ID
}
