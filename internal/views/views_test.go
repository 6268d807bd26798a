package views

import (
	"context"
	"testing"
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

func newTestBuilder(t *testing.T) (*Builder, *store.Store) {
	t.Helper()

	kv, err := store.NewFileKV(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file substrate: %v", err)
	}
	s := store.New(kv, nil, nil)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	return NewBuilder(s), s
}

func TestCounterpartPlaceholders(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)

	if got := b.PatientName(ctx, "usr-00000000-0000-0000-0000-000000000000"); got != PlaceholderPatient {
		t.Errorf("Expected '%s', got '%s'", PlaceholderPatient, got)
	}
	if got := b.DoctorName(ctx, "usr-00000000-0000-0000-0000-000000000000"); got != PlaceholderDoctor {
		t.Errorf("Expected '%s', got '%s'", PlaceholderDoctor, got)
	}
	if got := b.UserName(ctx, "usr-00000000-0000-0000-0000-000000000000"); got != PlaceholderName {
		t.Errorf("Expected '%s', got '%s'", PlaceholderName, got)
	}

	if got := b.DoctorName(ctx, store.SeedDoctorID); got != "Dr. Sarah Mitchell" {
		t.Errorf("Expected resolved doctor name, got '%s'", got)
	}
}

// Message read flow: doctor sends, patient has one unread, reading zeroes it,
// the doctor side stays at zero throughout.
func TestUnreadCountReadFlow(t *testing.T) {
	ctx := context.Background()
	b, s := newTestBuilder(t)

	conv, err := s.StartConversation(ctx, store.SeedDoctorID, store.SeedPatientID)
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}
	if _, err := s.AppendMessage(ctx, conv.ID, store.SeedDoctorID, store.SenderDoctor, "Results are in.", "text"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	unread := func(role store.Role) int {
		t.Helper()
		v, err := b.DecorateConversation(ctx, conv, role)
		if err != nil {
			t.Fatalf("DecorateConversation failed: %v", err)
		}
		return v.UnreadCount
	}

	if got := unread(store.RolePatient); got != 1 {
		t.Errorf("Expected 1 unread for patient, got %d", got)
	}
	if got := unread(store.RoleDoctor); got != 0 {
		t.Errorf("Expected 0 unread for doctor, got %d", got)
	}

	// Pure recomputation does not change the count
	if got := unread(store.RolePatient); got != 1 {
		t.Errorf("Unread count changed on recomputation: %d", got)
	}

	if _, err := s.MarkMessagesAsRead(ctx, conv.ID, store.RolePatient); err != nil {
		t.Fatalf("MarkMessagesAsRead failed: %v", err)
	}
	if got := unread(store.RolePatient); got != 0 {
		t.Errorf("Expected 0 unread after reading, got %d", got)
	}
	if got := unread(store.RoleDoctor); got != 0 {
		t.Errorf("Doctor unread should stay 0, got %d", got)
	}
}

func TestLastMessagePreview(t *testing.T) {
	if got := LastMessagePreview(nil); got != PlaceholderNoMessage {
		t.Errorf("Expected '%s' for empty thread, got '%s'", PlaceholderNoMessage, got)
	}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msgs := []*store.Message{
		{Content: "first", Timestamp: base},
		{Content: "newest", Timestamp: base.Add(2 * time.Hour)},
		{Content: "middle", Timestamp: base.Add(time.Hour)},
	}
	if got := LastMessagePreview(msgs); got != "newest" {
		t.Errorf("Expected 'newest', got '%s'", got)
	}
}

func TestDecoratedConversationList(t *testing.T) {
	ctx := context.Background()
	b, s := newTestBuilder(t)

	conv, _ := s.StartConversation(ctx, store.SeedDoctorID, store.SeedPatientID)
	if _, err := s.AppendMessage(ctx, conv.ID, store.SeedPatientID, store.SenderPatient, "Is the scan ready?", "text"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	list, err := b.ListConversations(ctx, store.SeedDoctorID, store.RoleDoctor)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	// Seed conversation plus the new one
	if len(list) != 2 {
		t.Fatalf("Expected 2 conversations, got %d", len(list))
	}
	// Most recently active first
	if list[0].ID != conv.ID {
		t.Errorf("Expected newest thread first, got %s", list[0].ID)
	}
	if list[0].CounterpartName != "James Carter" {
		t.Errorf("Expected counterpart 'James Carter', got '%s'", list[0].CounterpartName)
	}
	if list[0].LastPreview != "Is the scan ready?" {
		t.Errorf("Expected preview of newest message, got '%s'", list[0].LastPreview)
	}
	if list[0].UnreadCount != 1 {
		t.Errorf("Expected 1 unread for doctor, got %d", list[0].UnreadCount)
	}
}

func TestDoctorDashboard(t *testing.T) {
	ctx := context.Background()
	b, s := newTestBuilder(t)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	today := now.Format("2006-01-02")

	mk := func(date string, status store.AppointmentStatus) {
		t.Helper()
		if _, err := store.Create(ctx, s, store.Appointments, &store.Appointment{
			PatientID:       store.SeedPatientID,
			DoctorID:        store.SeedDoctorID,
			AppointmentDate: date,
			AppointmentTime: "09:00",
			Type:            "Screening",
			Status:          status,
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	mk(today, store.AppointmentStatusConfirmed)
	mk(today, store.AppointmentStatusPending)
	mk("2026-09-15", store.AppointmentStatusPending)

	if _, err := store.Create(ctx, s, store.MedicalReports, &store.MedicalReport{
		PatientID:  store.SeedPatientID,
		DoctorID:   store.SeedDoctorID,
		ReportDate: "2026-08-10",
		ScanType:   "OCT",
		Status:     store.ReportStatusFinalized,
	}); err != nil {
		t.Fatalf("Create report failed: %v", err)
	}

	stats, err := b.DoctorDashboard(ctx, store.SeedDoctorID, now)
	if err != nil {
		t.Fatalf("DoctorDashboard failed: %v", err)
	}
	if stats.TodaysAppointments != 2 {
		t.Errorf("Expected 2 appointments today, got %d", stats.TodaysAppointments)
	}
	if stats.PendingAppointments != 2 {
		t.Errorf("Expected 2 pending, got %d", stats.PendingAppointments)
	}
	// Seed report plus the new one
	if stats.TotalReports != 2 {
		t.Errorf("Expected 2 reports, got %d", stats.TotalReports)
	}
	if stats.ReportsThisMonth != 1 {
		t.Errorf("Expected 1 report this month, got %d", stats.ReportsThisMonth)
	}
}

func TestPatientDashboard(t *testing.T) {
	ctx := context.Background()
	b, s := newTestBuilder(t)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	mk := func(date string, status store.AppointmentStatus) {
		t.Helper()
		if _, err := store.Create(ctx, s, store.Appointments, &store.Appointment{
			PatientID:       store.SeedPatientID,
			DoctorID:        store.SeedDoctorID,
			AppointmentDate: date,
			AppointmentTime: "09:00",
			Type:            "Screening",
			Status:          status,
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	mk("2026-09-10", store.AppointmentStatusConfirmed) // future confirmed
	mk("2026-07-10", store.AppointmentStatusConfirmed) // past confirmed
	mk("2026-09-20", store.AppointmentStatusPending)

	stats, err := b.PatientDashboard(ctx, store.SeedPatientID, now)
	if err != nil {
		t.Fatalf("PatientDashboard failed: %v", err)
	}
	if stats.UpcomingAppointments != 1 {
		t.Errorf("Expected 1 upcoming appointment, got %d", stats.UpcomingAppointments)
	}
	if stats.PendingAppointments != 1 {
		t.Errorf("Expected 1 pending appointment, got %d", stats.PendingAppointments)
	}
	// Seed report only
	if stats.TotalReports != 1 {
		t.Errorf("Expected 1 report, got %d", stats.TotalReports)
	}
}

func TestAdminDashboard(t *testing.T) {
	ctx := context.Background()
	b, s := newTestBuilder(t)

	now := time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)

	if _, err := store.Create(ctx, s, store.Users, &store.User{
		Name: "Dr. Inactive", Email: "inactive@retinal.example", Role: store.RoleDoctor, Status: store.UserStatusInactive,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stats, err := b.AdminDashboard(ctx, now)
	if err != nil {
		t.Fatalf("AdminDashboard failed: %v", err)
	}
	// Seed users plus the inactive doctor
	if stats.TotalUsers != 4 {
		t.Errorf("Expected 4 users, got %d", stats.TotalUsers)
	}
	if stats.ActiveDoctors != 1 {
		t.Errorf("Expected 1 active doctor, got %d", stats.ActiveDoctors)
	}
	if stats.TotalPatients != 1 {
		t.Errorf("Expected 1 patient, got %d", stats.TotalPatients)
	}
	// Seed appointment is on 2025-02-10
	if stats.AppointmentsThisMonth != 1 {
		t.Errorf("Expected 1 appointment this month, got %d", stats.AppointmentsThisMonth)
	}
}

func TestFilterAppointmentsSearch(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	appts := []*AppointmentView{
		{Appointment: &store.Appointment{ID: "apt-1", Type: "Retinal Screening", AppointmentDate: "2026-09-01", AppointmentTime: "10:00", Status: store.AppointmentStatusPending}, PatientName: "James Carter", DoctorName: "Dr. Sarah Mitchell"},
		{Appointment: &store.Appointment{ID: "apt-2", Type: "Glaucoma Check", AppointmentDate: "2026-08-30", AppointmentTime: "11:00", Status: store.AppointmentStatusConfirmed}, PatientName: "James Carter", DoctorName: "Dr. Sarah Mitchell"},
	}

	// Substring present in exactly one record's type field
	got := FilterAppointments(appts, Query{Search: "glaucoma"}, now)
	if len(got) != 1 || got[0].ID != "apt-2" {
		t.Errorf("Expected only apt-2, got %d results", len(got))
	}

	// Substring present nowhere returns empty, not an error
	got = FilterAppointments(appts, Query{Search: "cataract"}, now)
	if len(got) != 0 {
		t.Errorf("Expected no results, got %d", len(got))
	}

	// No filters: both, soonest first
	got = FilterAppointments(appts, Query{}, now)
	if len(got) != 2 || got[0].ID != "apt-2" {
		t.Errorf("Expected apt-2 first (soonest), got %v", got[0].ID)
	}
}

func TestFilterPipelineOrder(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	appts := []*AppointmentView{
		{Appointment: &store.Appointment{ID: "apt-1", Type: "Screening", AppointmentDate: "2026-08-28", AppointmentTime: "10:00", Status: store.AppointmentStatusPending}},
		{Appointment: &store.Appointment{ID: "apt-2", Type: "Screening", AppointmentDate: "2026-08-28", AppointmentTime: "09:00", Status: store.AppointmentStatusConfirmed}},
		{Appointment: &store.Appointment{ID: "apt-3", Type: "Screening", AppointmentDate: "2026-05-01", AppointmentTime: "09:00", Status: store.AppointmentStatusPending}},
	}

	// Status filter and today bucket compose
	got := FilterAppointments(appts, Query{Status: "pending", Range: BucketToday}, now)
	if len(got) != 1 || got[0].ID != "apt-1" {
		t.Errorf("Expected only apt-1, got %d results", len(got))
	}

	// Week bucket keeps both today records, sorted by time ascending
	got = FilterAppointments(appts, Query{Range: BucketWeek}, now)
	if len(got) != 2 {
		t.Fatalf("Expected 2 results in week bucket, got %d", len(got))
	}
	if got[0].ID != "apt-2" {
		t.Errorf("Expected apt-2 first (earlier time), got %s", got[0].ID)
	}
}

func TestFilterReportsBySeverity(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	reports := []*ReportView{
		{MedicalReport: &store.MedicalReport{ID: "rpt-1", ReportDate: "2026-08-01", Findings: store.Findings{Condition: "DME", Severity: "Severe"}}},
		{MedicalReport: &store.MedicalReport{ID: "rpt-2", ReportDate: "2026-08-15", Findings: store.Findings{Condition: "NPDR", Severity: "Mild"}}},
		{MedicalReport: &store.MedicalReport{ID: "rpt-3", ReportDate: "2026-07-01", Findings: store.Findings{Condition: "AMD", Severity: "Severe"}}},
	}

	got := FilterReports(reports, Query{Severity: "severe"}, now)
	if len(got) != 2 {
		t.Fatalf("Expected 2 severe reports, got %d", len(got))
	}
	// Newest first
	if got[0].ID != "rpt-1" || got[1].ID != "rpt-3" {
		t.Errorf("Reports out of order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestFilterEmailsFolderAndSearch(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	emails := []*store.Email{
		{ID: "eml-1", Subject: "Scan results ready", Folder: store.FolderInbox, SentAt: now.Add(-time.Hour)},
		{ID: "eml-2", Subject: "Appointment reminder", Folder: store.FolderInbox, SentAt: now.Add(-2 * time.Hour)},
		{ID: "eml-3", Subject: "Scan archive", Folder: store.FolderArchive, SentAt: now.Add(-3 * time.Hour)},
	}

	got := FilterEmails(emails, Query{Search: "scan", Folder: "inbox"}, now)
	if len(got) != 1 || got[0].ID != "eml-1" {
		t.Errorf("Expected only eml-1, got %d results", len(got))
	}
}
