package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/narration"
	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/config"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

var (
	doctorUser  = &sharedauth.User{ID: store.SeedDoctorID, Email: "sarah.mitchell@retinal.example", Role: "doctor"}
	patientUser = &sharedauth.User{ID: store.SeedPatientID, Email: "james.carter@mail.example", Role: "patient"}
	adminUser   = &sharedauth.User{ID: store.SeedAdminID, Email: "alex.rivera@retinal.example", Role: "admin"}
)

func newTestRouter(t *testing.T) (chi.Router, *store.Store) {
	t.Helper()
	kv, err := store.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	s := store.New(kv, events.NewLocalBus(nil), nil)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	narrator, err := narration.NewNarrator(narration.NewLogEngine(nil), config.NarrationConfig{
		Rate: 1.0, Pitch: 1.0, Volume: 1.0,
	}, nil)
	if err != nil {
		t.Fatalf("NewNarrator failed: %v", err)
	}
	return NewHandler(s, narrator).Routes(), s
}

func request(t *testing.T, router chi.Router, user *sharedauth.User, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if user != nil {
		req = req.WithContext(sharedauth.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return out
}

// --- Appointments ---

func TestPatientBooksForSelf(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, patientUser, http.MethodPost, "/appointments", map[string]any{
		"patientId":       "usr-someone-else",
		"doctorId":        store.SeedDoctorID,
		"appointmentDate": "2099-06-01",
		"appointmentTime": "09:00",
		"duration":        30,
		"type":            "Retinal Screening",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	appt := decode[store.Appointment](t, rec)
	if appt.PatientID != store.SeedPatientID {
		t.Errorf("Expected booking pinned to the caller, got '%s'", appt.PatientID)
	}
	if appt.Status != store.AppointmentStatusPending {
		t.Errorf("Expected pending, got '%s'", appt.Status)
	}
}

func TestBookingValidationWritesNothing(t *testing.T) {
	router, s := newTestRouter(t)

	rec := request(t, router, patientUser, http.MethodPost, "/appointments", map[string]any{
		"doctorId":        store.SeedDoctorID,
		"appointmentDate": "2020-01-01",
		"appointmentTime": "09:00",
		"type":            "Retinal Screening",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}

	appts, err := store.List(context.Background(), s, store.Appointments)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(appts) != 1 {
		t.Errorf("Expected only the seed appointment, got %d", len(appts))
	}
}

func TestAppointmentTransitions(t *testing.T) {
	router, _ := newTestRouter(t)
	target := "/appointments/" + store.SeedAppointmentID.String()

	// Seed appointment is confirmed; confirming again conflicts.
	rec := request(t, router, doctorUser, http.MethodPost, target+"/confirm", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for double confirm, got %d", rec.Code)
	}

	rec = request(t, router, doctorUser, http.MethodPost, target+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	appt := decode[store.Appointment](t, rec)
	if appt.Status != store.AppointmentStatusCompleted {
		t.Errorf("Expected completed, got '%s'", appt.Status)
	}

	rec = request(t, router, patientUser, http.MethodPost, target+"/cancel", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 cancelling a completed appointment, got %d", rec.Code)
	}
}

func TestTransitionRoutesRequireClinicalRole(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, patientUser, http.MethodPost, "/appointments/"+store.SeedAppointmentID.String()+"/complete", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
}

func TestAppointmentVisibility(t *testing.T) {
	router, _ := newTestRouter(t)
	stranger := &sharedauth.User{ID: types.NewID(), Role: "patient"}

	rec := request(t, router, stranger, http.MethodGet, "/appointments/"+store.SeedAppointmentID.String(), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a stranger, got %d", rec.Code)
	}

	rec = request(t, router, patientUser, http.MethodGet, "/appointments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	list := decode[struct {
		Total int `json:"total"`
	}](t, rec)
	if list.Total != 1 {
		t.Errorf("Expected 1 appointment, got %d", list.Total)
	}
}

// --- Reports ---

func TestReportLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, doctorUser, http.MethodPost, "/reports", map[string]any{
		"patientId": store.SeedPatientID,
		"scanType":  "OCT",
		"findings": map[string]any{
			"condition":  "No Abnormalities Detected",
			"severity":   "None",
			"confidence": 97.2,
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	report := decode[store.MedicalReport](t, rec)
	if report.Status != store.ReportStatusDraft {
		t.Errorf("Expected draft, got '%s'", report.Status)
	}
	if report.DoctorID != store.SeedDoctorID {
		t.Errorf("Expected authoring doctor, got '%s'", report.DoctorID)
	}

	target := "/reports/" + report.ID.String()
	rec = request(t, router, doctorUser, http.MethodPost, target+"/finalize", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = request(t, router, doctorUser, http.MethodPost, target+"/finalize", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for double finalize, got %d", rec.Code)
	}

	rec = request(t, router, doctorUser, http.MethodPost, target+"/amend", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	report = decode[store.MedicalReport](t, rec)
	if report.Status != store.ReportStatusAmended {
		t.Errorf("Expected amended, got '%s'", report.Status)
	}
}

func TestCreateReportRejectsUnknownPatient(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, doctorUser, http.MethodPost, "/reports", map[string]any{
		"patientId": types.NewID(),
		"scanType":  "OCT",
		"findings":  map[string]any{"condition": "X"},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestPatientReadsOwnReportOnly(t *testing.T) {
	router, _ := newTestRouter(t)
	target := "/reports/" + store.SeedReportID.String()

	rec := request(t, router, patientUser, http.MethodGet, target, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for the subject patient, got %d", rec.Code)
	}

	stranger := &sharedauth.User{ID: types.NewID(), Role: "patient"}
	rec = request(t, router, stranger, http.MethodGet, target, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a stranger, got %d", rec.Code)
	}
}

func TestReportFilterBySeverity(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, patientUser, http.MethodGet, "/reports?severity=mild", nil)
	list := decode[struct {
		Total int `json:"total"`
	}](t, rec)
	if list.Total != 1 {
		t.Errorf("Expected 1 mild report, got %d", list.Total)
	}

	rec = request(t, router, patientUser, http.MethodGet, "/reports?severity=severe", nil)
	list = decode[struct {
		Total int `json:"total"`
	}](t, rec)
	if list.Total != 0 {
		t.Errorf("Expected 0 severe reports, got %d", list.Total)
	}
}

// --- Messaging ---

func TestConversationFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	target := "/conversations/" + store.SeedConversationID.String()

	// Seed thread has one unread doctor message for the patient.
	rec := request(t, router, patientUser, http.MethodGet, "/conversations", nil)
	convs := decode[struct {
		Data []struct {
			CounterpartName string `json:"counterpartName"`
			UnreadCount     int    `json:"unreadCount"`
		} `json:"data"`
	}](t, rec)
	if len(convs.Data) != 1 {
		t.Fatalf("Expected 1 thread, got %d", len(convs.Data))
	}
	if convs.Data[0].CounterpartName != "Dr. Sarah Mitchell" {
		t.Errorf("Unexpected counterpart '%s'", convs.Data[0].CounterpartName)
	}
	if convs.Data[0].UnreadCount != 1 {
		t.Errorf("Expected 1 unread, got %d", convs.Data[0].UnreadCount)
	}

	rec = request(t, router, patientUser, http.MethodPost, target+"/read", nil)
	marked := decode[struct {
		MarkedRead int `json:"markedRead"`
	}](t, rec)
	if marked.MarkedRead != 1 {
		t.Errorf("Expected 1 marked, got %d", marked.MarkedRead)
	}

	rec = request(t, router, patientUser, http.MethodPost, target+"/messages", map[string]any{
		"content": "Thank you, doctor.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	msg := decode[store.Message](t, rec)
	if msg.SenderType != store.SenderPatient {
		t.Errorf("Expected patient sender type, got '%s'", msg.SenderType)
	}

	// The doctor now has one unread message from the patient.
	rec = request(t, router, doctorUser, http.MethodGet, "/conversations", nil)
	convs = decode[struct {
		Data []struct {
			CounterpartName string `json:"counterpartName"`
			UnreadCount     int    `json:"unreadCount"`
		} `json:"data"`
	}](t, rec)
	if convs.Data[0].UnreadCount != 1 {
		t.Errorf("Expected 1 unread for the doctor, got %d", convs.Data[0].UnreadCount)
	}
	if convs.Data[0].CounterpartName != "James Carter" {
		t.Errorf("Unexpected counterpart '%s'", convs.Data[0].CounterpartName)
	}
}

func TestNonParticipantCannotReadThread(t *testing.T) {
	router, _ := newTestRouter(t)
	stranger := &sharedauth.User{ID: types.NewID(), Role: "patient"}

	rec := request(t, router, stranger, http.MethodGet, "/conversations/"+store.SeedConversationID.String()+"/messages", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
}

func TestStartConversationPinsCallerSide(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, doctorUser, http.MethodPost, "/conversations", map[string]any{
		"patientId": store.SeedPatientID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	conv := decode[store.Conversation](t, rec)
	if conv.DoctorID != store.SeedDoctorID {
		t.Errorf("Expected the caller on the doctor side, got '%s'", conv.DoctorID)
	}
}

// --- Emails ---

func TestEmailLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, doctorUser, http.MethodPost, "/emails", map[string]any{
		"recipientEmail": "james.carter@mail.example",
		"subject":        "Follow-up scan booked",
		"body":           "Your follow-up is scheduled for June.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	email := decode[store.Email](t, rec)

	rec = request(t, router, patientUser, http.MethodGet, "/emails", nil)
	inbox := decode[struct {
		Total int `json:"total"`
	}](t, rec)
	if inbox.Total != 1 {
		t.Errorf("Expected 1 inbox email, got %d", inbox.Total)
	}

	target := "/emails/" + email.ID.String()
	rec = request(t, router, patientUser, http.MethodPost, target+"/star", map[string]any{"starred": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = request(t, router, patientUser, http.MethodGet, "/emails?folder=starred", nil)
	starred := decode[struct {
		Total int `json:"total"`
	}](t, rec)
	if starred.Total != 1 {
		t.Errorf("Expected 1 starred email, got %d", starred.Total)
	}

	rec = request(t, router, patientUser, http.MethodPost, target+"/move", map[string]any{"folder": "trash"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	// Trash drops out of the starred view.
	rec = request(t, router, patientUser, http.MethodGet, "/emails?folder=starred", nil)
	starred = decode[struct {
		Total int `json:"total"`
	}](t, rec)
	if starred.Total != 0 {
		t.Errorf("Expected starred view to skip trash, got %d", starred.Total)
	}
}

func TestMoveToStarredRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, doctorUser, http.MethodPost, "/emails", map[string]any{
		"recipientEmail": "james.carter@mail.example",
		"subject":        "x",
	})
	email := decode[store.Email](t, rec)

	rec = request(t, router, doctorUser, http.MethodPost, "/emails/"+email.ID.String()+"/move", map[string]any{"folder": "starred"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestComposeValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, doctorUser, http.MethodPost, "/emails", map[string]any{"body": "no recipient"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

// --- Dashboard and profile ---

func TestDashboardsPerRole(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, doctorUser, http.MethodGet, "/dashboard", nil)
	doctor := decode[struct {
		TotalReports int `json:"totalReports"`
	}](t, rec)
	if doctor.TotalReports != 1 {
		t.Errorf("Expected 1 report for the doctor, got %d", doctor.TotalReports)
	}

	rec = request(t, router, adminUser, http.MethodGet, "/dashboard", nil)
	admin := decode[struct {
		TotalUsers    int `json:"totalUsers"`
		ActiveDoctors int `json:"activeDoctors"`
	}](t, rec)
	if admin.TotalUsers != 3 || admin.ActiveDoctors != 1 {
		t.Errorf("Unexpected admin stats: %+v", admin)
	}
}

func TestMeReturnsProfileRow(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, patientUser, http.MethodGet, "/me", nil)
	profile := decode[store.User](t, rec)
	if profile.Name != "James Carter" {
		t.Errorf("Expected the seed patient, got '%s'", profile.Name)
	}
}

func TestListDoctors(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, patientUser, http.MethodGet, "/doctors", nil)
	list := decode[struct {
		Data []store.User `json:"data"`
	}](t, rec)
	if len(list.Data) != 1 || list.Data[0].Role != store.RoleDoctor {
		t.Errorf("Unexpected doctor list: %+v", list.Data)
	}
}

// --- Admin ---

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, doctorUser, http.MethodGet, "/admin/users", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
}

func TestTrainingRunBumpsVersion(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, adminUser, http.MethodPost, "/admin/training/run", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	record := decode[store.ModelTraining](t, rec)
	if record.ModelVersion != 4 {
		t.Errorf("Expected version 4, got %d", record.ModelVersion)
	}
	if len(record.History) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(record.History))
	}
	if record.History[1].TriggeredBy != store.SeedAdminID {
		t.Errorf("Expected the admin as trigger, got '%s'", record.History[1].TriggeredBy)
	}
}

func TestAnalyticsRefresh(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, adminUser, http.MethodPost, "/admin/analytics/refresh", nil)
	record := decode[store.SystemAnalytics](t, rec)
	if record.TotalUsers != 3 || record.TotalAppointments != 1 {
		t.Errorf("Unexpected analytics: %+v", record)
	}
}

// --- Narration ---

func TestScriptEndpointIsDeterministic(t *testing.T) {
	router, _ := newTestRouter(t)
	body := map[string]any{
		"result": map[string]any{
			"condition":  "Mild Nonproliferative Diabetic Retinopathy",
			"confidence": 91.4,
			"severity":   "Mild",
			"riskLevel":  "Medium",
		},
	}

	first := decode[struct {
		Script string `json:"script"`
	}](t, request(t, router, patientUser, http.MethodPost, "/narration/script", body))
	second := decode[struct {
		Script string `json:"script"`
	}](t, request(t, router, patientUser, http.MethodPost, "/narration/script", body))

	if first.Script == "" || first.Script != second.Script {
		t.Errorf("Expected identical non-empty scripts, got '%s' and '%s'", first.Script, second.Script)
	}
}

func TestSpeakCompletesAndReturnsIdle(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, patientUser, http.MethodPost, "/narration/speak", map[string]any{
		"result": map[string]any{"condition": "No Abnormalities Detected", "confidence": 97.0},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	state := decode[struct {
		State string `json:"state"`
	}](t, rec)
	if state.State != string(narration.StateIdle) {
		t.Errorf("Expected idle after completion, got '%s'", state.State)
	}
}

// holdEngine keeps utterances open until the test completes them, so
// supersession is observable at the HTTP layer.
type holdEngine struct {
	mu      sync.Mutex
	current narration.Lifecycle
}

func (e *holdEngine) Voices() ([]narration.Voice, error) {
	return []narration.Voice{{Name: "Hold", Language: "en-US"}}, nil
}

func (e *holdEngine) Speak(u narration.Utterance, cb narration.Lifecycle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = cb
	if cb.OnStart != nil {
		cb.OnStart()
	}
	return nil
}

func (e *holdEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = narration.Lifecycle{}
}

func (e *holdEngine) completeCurrent() {
	e.mu.Lock()
	cb := e.current
	e.current = narration.Lifecycle{}
	e.mu.Unlock()
	if cb.OnEnd != nil {
		cb.OnEnd()
	}
}

func TestSpeakSupersededReturnsState(t *testing.T) {
	kv, err := store.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	s := store.New(kv, events.NewLocalBus(nil), nil)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	engine := &holdEngine{}
	narrator, err := narration.NewNarrator(engine, config.NarrationConfig{
		Rate: 1.0, Pitch: 1.0, Volume: 1.0,
	}, nil)
	if err != nil {
		t.Fatalf("NewNarrator failed: %v", err)
	}
	router := NewHandler(s, narrator).Routes()

	body := map[string]any{"result": map[string]any{"condition": "First Pass"}}
	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- request(t, router, patientUser, http.MethodPost, "/narration/speak", body)
	}()

	deadline := time.After(2 * time.Second)
	for narrator.State() != narration.StateSpeaking {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for the first utterance to start")
		case <-time.After(time.Millisecond):
		}
	}

	second := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		second <- request(t, router, patientUser, http.MethodPost, "/narration/speak", body)
	}()

	// The second utterance releases the first request instead of leaving it
	// blocked until its context dies.
	select {
	case rec := <-first:
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200 for the superseded request, got %d: %s", rec.Code, rec.Body.String())
		}
		state := decode[struct {
			State string `json:"state"`
		}](t, rec)
		if state.State != string(narration.StateSpeaking) {
			t.Errorf("Expected speaking while the newer utterance runs, got '%s'", state.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Superseded request never returned")
	}

	engine.completeCurrent()
	rec := <-second
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for the second request, got %d: %s", rec.Code, rec.Body.String())
	}
	state := decode[struct {
		State string `json:"state"`
	}](t, rec)
	if state.State != string(narration.StateIdle) {
		t.Errorf("Expected idle after completion, got '%s'", state.State)
	}
}

func TestNarrationUnsupportedWithoutEngine(t *testing.T) {
	kv, err := store.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileKV failed: %v", err)
	}
	s := store.New(kv, events.NewLocalBus(nil), nil)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	router := NewHandler(s, nil).Routes()

	rec := request(t, router, patientUser, http.MethodPost, "/narration/speak", map[string]any{
		"result": map[string]any{"condition": "X"},
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}

	rec = request(t, router, patientUser, http.MethodGet, "/narration/state", nil)
	state := decode[struct {
		State string `json:"state"`
	}](t, rec)
	if state.State != "unsupported" {
		t.Errorf("Expected unsupported, got '%s'", state.State)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := request(t, router, nil, http.MethodGet, "/dashboard", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}
