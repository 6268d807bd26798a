package store

import (
	"fmt"
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Collection keys in the persistence substrate. One durable key per
// collection; aiConversations holds a JSON object keyed by user id, the rest
// hold JSON arrays.
const (
	CollectionUsers           = "users"
	CollectionAppointments    = "appointments"
	CollectionMedicalReports  = "medicalReports"
	CollectionConversations   = "conversations"
	CollectionMessages        = "messages"
	CollectionChatMessages    = "chatMessages" // legacy alias of messages, seeded but unread
	CollectionEmails          = "emails"
	CollectionAIConversations = "aiConversations"
	CollectionModelTraining   = "modelTraining"
	CollectionSystemAnalytics = "systemAnalytics"
)

// Role defines a portal user role
type Role string

const (
	RolePatient   Role = "patient"
	RoleDoctor    Role = "doctor"
	RoleClinician Role = "clinician"
	RoleAdmin     Role = "admin"
)

// ValidRole reports whether r is one of the portal roles.
func ValidRole(r Role) bool {
	switch r {
	case RolePatient, RoleDoctor, RoleClinician, RoleAdmin:
		return true
	}
	return false
}

// UserStatus defines the status of a user account
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// User represents a portal account. Accounts are never hard-deleted in the
// normal flow; Status carries the soft state.
type User struct {
	ID     types.ID   `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   Role       `json:"role"`
	Status UserStatus `json:"status"`

	// Clinician profile fields
	Specialization string `json:"specialization,omitempty"`
	LicenseNumber  string `json:"licenseNumber,omitempty"`
	Phone          string `json:"phone,omitempty"`

	// Patient profile fields
	MRN         types.MRN `json:"mrn,omitempty"`
	DateOfBirth string    `json:"dateOfBirth,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppointmentStatus defines the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no-show"
	// AppointmentStatusScheduled is a legacy alias for confirmed, kept so
	// imported records round-trip unchanged.
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
)

// AppointmentPriority defines booking priority
type AppointmentPriority string

const (
	PriorityRoutine AppointmentPriority = "routine"
	PriorityUrgent  AppointmentPriority = "urgent"
)

// Appointment represents a booking between a patient and a doctor.
// Appointments are never deleted; cancellation is a status transition.
type Appointment struct {
	ID              types.ID            `json:"id"`
	PatientID       types.ID            `json:"patientId"`
	DoctorID        types.ID            `json:"doctorId"`
	AppointmentDate string              `json:"appointmentDate"` // YYYY-MM-DD
	AppointmentTime string              `json:"appointmentTime"` // HH:MM
	DurationMinutes int                 `json:"duration"`
	Type            string              `json:"type"`
	Status          AppointmentStatus   `json:"status"`
	Notes           string              `json:"notes,omitempty"`
	Priority        AppointmentPriority `json:"priority,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// When returns the appointment's date and time as a single sortable value.
func (a *Appointment) When() string {
	return a.AppointmentDate + " " + a.AppointmentTime
}

// Confirm moves a pending appointment to confirmed.
func (a *Appointment) Confirm() error {
	if a.Status != AppointmentStatusPending && a.Status != AppointmentStatusScheduled {
		return fmt.Errorf("can only confirm a pending appointment, current status is %s", a.Status)
	}
	a.Status = AppointmentStatusConfirmed
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete marks a confirmed appointment as completed.
func (a *Appointment) Complete() error {
	if a.Status != AppointmentStatusConfirmed && a.Status != AppointmentStatusScheduled {
		return fmt.Errorf("can only complete a confirmed appointment, current status is %s", a.Status)
	}
	a.Status = AppointmentStatusCompleted
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel cancels an appointment that has not yet concluded.
func (a *Appointment) Cancel() error {
	switch a.Status {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return fmt.Errorf("cannot cancel an appointment with status %s", a.Status)
	}
	a.Status = AppointmentStatusCancelled
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkNoShow records that the patient did not attend.
func (a *Appointment) MarkNoShow() error {
	if a.Status != AppointmentStatusConfirmed && a.Status != AppointmentStatusScheduled {
		return fmt.Errorf("can only mark a confirmed appointment as no-show, current status is %s", a.Status)
	}
	a.Status = AppointmentStatusNoShow
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ReportStatus defines the review state of a medical report
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusFinalized ReportStatus = "finalized"
	ReportStatusAmended   ReportStatus = "amended"
)

// Findings holds the diagnostic outcome of a retinal analysis.
type Findings struct {
	Condition       string   `json:"condition"`
	Severity        string   `json:"severity"`
	Confidence      float64  `json:"confidence"` // percentage, 0-100
	RiskLevel       string   `json:"riskLevel,omitempty"`
	Description     string   `json:"description,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// MedicalReport represents the outcome of a scan review. Read-mostly after
// creation.
type MedicalReport struct {
	ID             types.ID          `json:"id"`
	PatientID      types.ID          `json:"patientId"`
	DoctorID       types.ID          `json:"doctorId"`
	AppointmentID  *types.ID         `json:"appointmentId,omitempty"`
	ReportDate     string            `json:"reportDate"` // YYYY-MM-DD
	ScanType       string            `json:"scanType"`
	Findings       Findings          `json:"findings"`
	ScansPerformed []string          `json:"scansPerformed,omitempty"`
	VitalSigns     map[string]string `json:"vitalSigns,omitempty"`
	// SourceRef identifies the imaging-system row a report was imported
	// from. Empty for reports authored in the portal.
	SourceRef string       `json:"sourceRef,omitempty"`
	Status    ReportStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ConversationStatus defines the state of a message thread
type ConversationStatus string

const (
	ConversationStatusActive   ConversationStatus = "active"
	ConversationStatusUrgent   ConversationStatus = "urgent"
	ConversationStatusArchived ConversationStatus = "archived"
)

// Conversation is a message thread between exactly one doctor and one
// patient. LastMessage and LastMessageTime are a denormalized cache of the
// most recent message and are refreshed only by AppendMessage; they must
// never be set independently.
type Conversation struct {
	ID              types.ID           `json:"id"`
	DoctorID        types.ID           `json:"doctorId"`
	PatientID       types.ID           `json:"patientId"`
	Status          ConversationStatus `json:"status"`
	LastMessage     string             `json:"lastMessage,omitempty"`
	LastMessageTime time.Time          `json:"lastMessageTime,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// SenderType identifies which side of a conversation sent a message
type SenderType string

const (
	SenderDoctor  SenderType = "doctor"
	SenderPatient SenderType = "user"
)

// ReadReceipt records that a user has seen a message
type ReadReceipt struct {
	UserID types.ID  `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

// Message is one entry in a conversation thread. Append-only; ReadBy grows
// monotonically and never holds two receipts for the same user.
type Message struct {
	ID             types.ID      `json:"id"`
	ConversationID types.ID      `json:"conversationId"`
	SenderID       types.ID      `json:"senderId"`
	SenderType     SenderType    `json:"senderType"`
	Content        string        `json:"content"`
	MessageType    string        `json:"messageType"`
	Timestamp      time.Time     `json:"timestamp"`
	ReadBy         []ReadReceipt `json:"readBy"`
}

// ReadByUser reports whether the given user already has a read receipt.
func (m *Message) ReadByUser(userID types.ID) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// EmailFolder defines the mailbox folder an email lives in
type EmailFolder string

const (
	FolderInbox   EmailFolder = "inbox"
	FolderSent    EmailFolder = "sent"
	FolderStarred EmailFolder = "starred"
	FolderArchive EmailFolder = "archive"
	FolderTrash   EmailFolder = "trash"
)

// Email represents an internal portal email.
type Email struct {
	ID             types.ID    `json:"id"`
	SenderID       types.ID    `json:"senderId"`
	SenderEmail    string      `json:"senderEmail"`
	RecipientEmail string      `json:"recipientEmail"`
	CCEmails       []string    `json:"ccEmails,omitempty"`
	BCCEmails      []string    `json:"bccEmails,omitempty"`
	Subject        string      `json:"subject"`
	Body           string      `json:"body"`
	Priority       string      `json:"priority,omitempty"`
	Folder         EmailFolder `json:"folder"`
	IsRead         bool        `json:"isRead"`
	IsStarred      bool        `json:"isStarred"`
	SentAt         time.Time   `json:"sentAt"`
	Attachments    []string    `json:"attachments,omitempty"`
}

// AIChatEntry is one turn of a user's AI assistant conversation. Entries are
// append-only per user.
type AIChatEntry struct {
	ID         types.ID  `json:"id"`
	Type       string    `json:"type"` // user or assistant
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence *float64  `json:"confidence,omitempty"`
	Sources    []string  `json:"sources,omitempty"`
	Actions    []string  `json:"actions,omitempty"`
}

// TrainingRun is one entry in the model training history.
type TrainingRun struct {
	Version     int       `json:"version"`
	Accuracy    float64   `json:"accuracy"`
	SampleCount int       `json:"sampleCount"`
	TrainedAt   time.Time `json:"trainedAt"`
	TriggeredBy types.ID  `json:"triggeredBy"`
}

// ModelTraining is the singleton aggregate tracking the diagnostic model.
type ModelTraining struct {
	ID           types.ID      `json:"id"`
	ModelVersion int           `json:"modelVersion"`
	Accuracy     float64       `json:"accuracy"`
	LastTrained  time.Time     `json:"lastTrained"`
	History      []TrainingRun `json:"history"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// AnalyticsSnapshot is one entry in the analytics refresh history.
type AnalyticsSnapshot struct {
	RefreshedAt time.Time `json:"refreshedAt"`
	TotalUsers  int       `json:"totalUsers"`
}

// SystemAnalytics is the singleton aggregate of portal-wide counts,
// refreshed on demand from the live collections.
type SystemAnalytics struct {
	ID                types.ID            `json:"id"`
	TotalUsers        int                 `json:"totalUsers"`
	TotalDoctors      int                 `json:"totalDoctors"`
	TotalPatients     int                 `json:"totalPatients"`
	TotalAppointments int                 `json:"totalAppointments"`
	TotalReports      int                 `json:"totalReports"`
	RefreshedAt       time.Time           `json:"refreshedAt"`
	History           []AnalyticsSnapshot `json:"history,omitempty"`
}

// --- Requests ---

// BookAppointmentRequest is the request to book an appointment.
type BookAppointmentRequest struct {
	PatientID       types.ID            `json:"patientId"`
	DoctorID        types.ID            `json:"doctorId"`
	AppointmentDate string              `json:"appointmentDate"`
	AppointmentTime string              `json:"appointmentTime"`
	DurationMinutes int                 `json:"duration"`
	Type            string              `json:"type"`
	Notes           string              `json:"notes,omitempty"`
	Priority        AppointmentPriority `json:"priority,omitempty"`
}

// Validate checks required fields and that the slot lies in the future.
// Nothing is written on a validation failure.
func (r BookAppointmentRequest) Validate(now time.Time) map[string]string {
	details := make(map[string]string)
	if r.PatientID.IsZero() {
		details["patientId"] = "patientId is required"
	}
	if r.DoctorID.IsZero() {
		details["doctorId"] = "doctorId is required"
	}
	if r.AppointmentDate == "" {
		details["appointmentDate"] = "appointmentDate is required"
	}
	if r.AppointmentTime == "" {
		details["appointmentTime"] = "appointmentTime is required"
	}
	if r.Type == "" {
		details["type"] = "type is required"
	}
	if r.AppointmentDate != "" {
		if d, err := time.Parse("2006-01-02", r.AppointmentDate); err != nil {
			details["appointmentDate"] = "appointmentDate must be YYYY-MM-DD"
		} else if d.Before(now.Truncate(24 * time.Hour)) {
			details["appointmentDate"] = "appointmentDate must not be in the past"
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
