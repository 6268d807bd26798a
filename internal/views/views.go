// Package views computes presentation-ready projections over the entity
// store: joined display names, unread counts, previews, and dashboard
// statistics. Nothing in this package mutates the store; every value is
// recomputed on read.
package views

import (
	"context"
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

// Placeholder labels for dangling references. A join target that no longer
// exists degrades to one of these; it never aborts a render.
const (
	PlaceholderPatient   = "Unknown Patient"
	PlaceholderDoctor    = "Dr. Unknown"
	PlaceholderName      = "N/A"
	PlaceholderNoMessage = "No messages yet"
)

// Builder joins raw entities into view models.
type Builder struct {
	store *store.Store
}

// NewBuilder creates a view builder over the given store.
func NewBuilder(s *store.Store) *Builder {
	return &Builder{store: s}
}

// PatientName resolves a patient id to a display name.
func (b *Builder) PatientName(ctx context.Context, id types.ID) string {
	u, err := store.Get(ctx, b.store, store.Users, id)
	if err != nil || u.Name == "" {
		return PlaceholderPatient
	}
	return u.Name
}

// DoctorName resolves a doctor id to a display name.
func (b *Builder) DoctorName(ctx context.Context, id types.ID) string {
	u, err := store.Get(ctx, b.store, store.Users, id)
	if err != nil || u.Name == "" {
		return PlaceholderDoctor
	}
	return u.Name
}

// UserName resolves any user id, falling back to the neutral placeholder.
func (b *Builder) UserName(ctx context.Context, id types.ID) string {
	u, err := store.Get(ctx, b.store, store.Users, id)
	if err != nil || u.Name == "" {
		return PlaceholderName
	}
	return u.Name
}

// UnreadCount is a pure function of the thread's messages: the number sent by
// the other side that carry no read receipt from the viewing role's
// participant. It is recomputed on every read and never stored.
func UnreadCount(conv *store.Conversation, msgs []*store.Message, role store.Role) int {
	var reader types.ID
	otherSide := store.SenderDoctor
	if role == store.RolePatient {
		reader = conv.PatientID
	} else {
		reader = conv.DoctorID
		otherSide = store.SenderPatient
	}

	count := 0
	for _, m := range msgs {
		if m.ConversationID != conv.ID || m.SenderType != otherSide {
			continue
		}
		if !m.ReadByUser(reader) {
			count++
		}
	}
	return count
}

// LastMessagePreview returns the content of the newest message, or the
// placeholder for an empty thread.
func LastMessagePreview(msgs []*store.Message) string {
	if len(msgs) == 0 {
		return PlaceholderNoMessage
	}
	latest := msgs[0]
	for _, m := range msgs[1:] {
		if m.Timestamp.After(latest.Timestamp) {
			latest = m
		}
	}
	return latest.Content
}

// ConversationView is a thread decorated for display.
type ConversationView struct {
	*store.Conversation
	CounterpartName string `json:"counterpartName"`
	LastPreview     string `json:"lastPreview"`
	UnreadCount     int    `json:"unreadCount"`
}

// DecorateConversation attaches the counterpart's name, the last message
// preview, and the viewer's unread count to a thread.
func (b *Builder) DecorateConversation(ctx context.Context, conv *store.Conversation, role store.Role) (*ConversationView, error) {
	msgs, err := b.store.ListMessagesByConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	var counterpart string
	if role == store.RolePatient {
		counterpart = b.DoctorName(ctx, conv.DoctorID)
	} else {
		counterpart = b.PatientName(ctx, conv.PatientID)
	}

	return &ConversationView{
		Conversation:    conv,
		CounterpartName: counterpart,
		LastPreview:     LastMessagePreview(msgs),
		UnreadCount:     UnreadCount(conv, msgs, role),
	}, nil
}

// ListConversations returns the user's threads, decorated for the given role.
func (b *Builder) ListConversations(ctx context.Context, userID types.ID, role store.Role) ([]*ConversationView, error) {
	convs, err := b.store.ListConversationsByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*ConversationView, 0, len(convs))
	for _, c := range convs {
		v, err := b.DecorateConversation(ctx, c, role)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// AppointmentView is an appointment with both party names attached.
type AppointmentView struct {
	*store.Appointment
	PatientName string `json:"patientName"`
	DoctorName  string `json:"doctorName"`
}

// DecorateAppointments attaches display names to a list of appointments.
func (b *Builder) DecorateAppointments(ctx context.Context, appts []*store.Appointment) []*AppointmentView {
	out := make([]*AppointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, &AppointmentView{
			Appointment: a,
			PatientName: b.PatientName(ctx, a.PatientID),
			DoctorName:  b.DoctorName(ctx, a.DoctorID),
		})
	}
	return out
}

// ReportView is a medical report with both party names attached.
type ReportView struct {
	*store.MedicalReport
	PatientName string `json:"patientName"`
	DoctorName  string `json:"doctorName"`
}

// DecorateReports attaches display names to a list of reports.
func (b *Builder) DecorateReports(ctx context.Context, reports []*store.MedicalReport) []*ReportView {
	out := make([]*ReportView, 0, len(reports))
	for _, r := range reports {
		out = append(out, &ReportView{
			MedicalReport: r,
			PatientName:   b.PatientName(ctx, r.PatientID),
			DoctorName:    b.DoctorName(ctx, r.DoctorID),
		})
	}
	return out
}

// --- Dashboard statistics ---

// DoctorStats is the doctor dashboard summary.
type DoctorStats struct {
	TodaysAppointments  int `json:"todaysAppointments"`
	PendingAppointments int `json:"pendingAppointments"`
	TotalReports        int `json:"totalReports"`
	ReportsThisMonth    int `json:"reportsThisMonth"`
}

// DoctorDashboard computes the doctor's summary for the given instant.
func (b *Builder) DoctorDashboard(ctx context.Context, doctorID types.ID, now time.Time) (*DoctorStats, error) {
	appts, err := b.store.ListAppointmentsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	reports, err := b.store.ListReportsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	today := now.Format("2006-01-02")
	month := now.Format("2006-01")

	stats := &DoctorStats{TotalReports: len(reports)}
	for _, a := range appts {
		if a.AppointmentDate == today {
			stats.TodaysAppointments++
		}
		if a.Status == store.AppointmentStatusPending {
			stats.PendingAppointments++
		}
	}
	for _, r := range reports {
		if len(r.ReportDate) >= 7 && r.ReportDate[:7] == month {
			stats.ReportsThisMonth++
		}
	}
	return stats, nil
}

// PatientStats is the patient dashboard summary.
type PatientStats struct {
	UpcomingAppointments int `json:"upcomingAppointments"`
	TotalReports         int `json:"totalReports"`
	PendingAppointments  int `json:"pendingAppointments"`
}

// PatientDashboard computes the patient's summary for the given instant.
// Upcoming means confirmed and strictly in the future.
func (b *Builder) PatientDashboard(ctx context.Context, patientID types.ID, now time.Time) (*PatientStats, error) {
	appts, err := b.store.ListAppointmentsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	reports, err := b.store.ListReportsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	today := now.Format("2006-01-02")
	stats := &PatientStats{TotalReports: len(reports)}
	for _, a := range appts {
		if a.Status == store.AppointmentStatusConfirmed && a.AppointmentDate > today {
			stats.UpcomingAppointments++
		}
		if a.Status == store.AppointmentStatusPending {
			stats.PendingAppointments++
		}
	}
	return stats, nil
}

// AdminStats is the admin dashboard summary.
type AdminStats struct {
	TotalUsers            int `json:"totalUsers"`
	ActiveDoctors         int `json:"activeDoctors"`
	TotalPatients         int `json:"totalPatients"`
	AppointmentsThisMonth int `json:"appointmentsThisMonth"`
}

// AdminDashboard computes the portal-wide summary for the given instant.
func (b *Builder) AdminDashboard(ctx context.Context, now time.Time) (*AdminStats, error) {
	users, err := store.List(ctx, b.store, store.Users)
	if err != nil {
		return nil, err
	}
	appts, err := store.List(ctx, b.store, store.Appointments)
	if err != nil {
		return nil, err
	}

	month := now.Format("2006-01")
	stats := &AdminStats{TotalUsers: len(users)}
	for _, u := range users {
		switch u.Role {
		case store.RoleDoctor, store.RoleClinician:
			if u.Status == store.UserStatusActive {
				stats.ActiveDoctors++
			}
		case store.RolePatient:
			stats.TotalPatients++
		}
	}
	for _, a := range appts {
		if len(a.AppointmentDate) >= 7 && a.AppointmentDate[:7] == month {
			stats.AppointmentsThisMonth++
		}
	}
	return stats, nil
}
