package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Typed accessors. Each encodes the sort policy its callers rely on:
// appointments soonest first, reports and emails newest first, messages in
// thread order.

// GetUserByEmail finds a user by email, case-insensitive.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	users, err := ListWhere(ctx, s, Users, func(u *User) bool {
		return strings.EqualFold(u.Email, email)
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, errors.NotFound(CollectionUsers, email)
	}
	return users[0], nil
}

// ListUsersByRole returns users with the given role in insertion order.
func (s *Store) ListUsersByRole(ctx context.Context, role Role) ([]*User, error) {
	return ListWhere(ctx, s, Users, func(u *User) bool { return u.Role == role })
}

// ListAppointmentsByDoctor returns a doctor's appointments, soonest first.
func (s *Store) ListAppointmentsByDoctor(ctx context.Context, doctorID types.ID) ([]*Appointment, error) {
	appts, err := ListWhere(ctx, s, Appointments, func(a *Appointment) bool { return a.DoctorID == doctorID })
	if err != nil {
		return nil, err
	}
	sortAppointmentsAscending(appts)
	return appts, nil
}

// ListAppointmentsByPatient returns a patient's appointments, soonest first.
func (s *Store) ListAppointmentsByPatient(ctx context.Context, patientID types.ID) ([]*Appointment, error) {
	appts, err := ListWhere(ctx, s, Appointments, func(a *Appointment) bool { return a.PatientID == patientID })
	if err != nil {
		return nil, err
	}
	sortAppointmentsAscending(appts)
	return appts, nil
}

func sortAppointmentsAscending(appts []*Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		return appts[i].When() < appts[j].When()
	})
}

// ListReportsByDoctor returns a doctor's reports, newest report date first.
func (s *Store) ListReportsByDoctor(ctx context.Context, doctorID types.ID) ([]*MedicalReport, error) {
	reports, err := ListWhere(ctx, s, MedicalReports, func(r *MedicalReport) bool { return r.DoctorID == doctorID })
	if err != nil {
		return nil, err
	}
	sortReportsDescending(reports)
	return reports, nil
}

// ListReportsByPatient returns a patient's reports, newest report date first.
func (s *Store) ListReportsByPatient(ctx context.Context, patientID types.ID) ([]*MedicalReport, error) {
	reports, err := ListWhere(ctx, s, MedicalReports, func(r *MedicalReport) bool { return r.PatientID == patientID })
	if err != nil {
		return nil, err
	}
	sortReportsDescending(reports)
	return reports, nil
}

func sortReportsDescending(reports []*MedicalReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].ReportDate > reports[j].ReportDate
	})
}

// ListConversationsByParticipant returns every thread the user takes part in,
// most recently active first. Decoration (counterpart name, unread count,
// preview) is the view layer's job, not the store's.
func (s *Store) ListConversationsByParticipant(ctx context.Context, userID types.ID) ([]*Conversation, error) {
	convs, err := ListWhere(ctx, s, Conversations, func(c *Conversation) bool {
		return c.DoctorID == userID || c.PatientID == userID
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastMessageTime.After(convs[j].LastMessageTime)
	})
	return convs, nil
}

// ListMessagesByConversation returns the thread's messages, oldest first.
func (s *Store) ListMessagesByConversation(ctx context.Context, conversationID types.ID) ([]*Message, error) {
	msgs, err := ListWhere(ctx, s, Messages, func(m *Message) bool { return m.ConversationID == conversationID })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs, nil
}

// ListEmailsByFolder returns a user's emails in the given folder, newest
// first. The starred folder is a view over the other folders rather than a
// real location, so it matches on the flag instead.
func (s *Store) ListEmailsByFolder(ctx context.Context, userEmail string, folder EmailFolder) ([]*Email, error) {
	emails, err := ListWhere(ctx, s, Emails, func(e *Email) bool {
		mine := strings.EqualFold(e.RecipientEmail, userEmail) || strings.EqualFold(e.SenderEmail, userEmail)
		if !mine {
			return false
		}
		if folder == FolderStarred {
			return e.IsStarred && e.Folder != FolderTrash
		}
		return e.Folder == folder
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].SentAt.After(emails[j].SentAt)
	})
	return emails, nil
}

// MoveEmail moves an email into another folder. Deleting moves to trash.
func (s *Store) MoveEmail(ctx context.Context, id types.ID, folder EmailFolder) (*Email, error) {
	return Update(ctx, s, Emails, id, func(e *Email) error {
		e.Folder = folder
		return nil
	})
}

// StarEmail sets or clears the star flag.
func (s *Store) StarEmail(ctx context.Context, id types.ID, starred bool) (*Email, error) {
	return Update(ctx, s, Emails, id, func(e *Email) error {
		e.IsStarred = starred
		return nil
	})
}

// MarkEmailRead sets or clears the read flag.
func (s *Store) MarkEmailRead(ctx context.Context, id types.ID, read bool) (*Email, error) {
	return Update(ctx, s, Emails, id, func(e *Email) error {
		e.IsRead = read
		return nil
	})
}

// --- AI conversation log ---

// aiConversations is a JSON object keyed by user id rather than an array, so
// it bypasses the generic collection helpers.

func (s *Store) readAILog(ctx context.Context) (map[string][]*AIChatEntry, error) {
	raw, err := s.kv.Get(ctx, CollectionAIConversations)
	if err != nil {
		if err == ErrKeyMissing {
			return map[string][]*AIChatEntry{}, nil
		}
		return nil, errors.Unavailable("store substrate", err)
	}
	logs := map[string][]*AIChatEntry{}
	if err := json.Unmarshal([]byte(raw), &logs); err != nil {
		return nil, errors.Wrap(err, "corrupt collection aiConversations")
	}
	return logs, nil
}

// AppendAIChatEntry appends one turn to a user's assistant conversation.
func (s *Store) AppendAIChatEntry(ctx context.Context, userID types.ID, entry *AIChatEntry) (*AIChatEntry, error) {
	var queued []queuedEvent
	defer s.publishQueued(ctx, &queued)
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.readAILog(ctx)
	if err != nil {
		return nil, err
	}

	if entry.ID.IsZero() {
		entry.ID = types.NewEntityID("aic")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	logs[userID.String()] = append(logs[userID.String()], entry)

	raw, err := json.Marshal(logs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode collection aiConversations")
	}
	if err := s.kv.Set(ctx, CollectionAIConversations, string(raw)); err != nil {
		return nil, errors.Unavailable("store substrate", err)
	}
	queued = append(queued, queuedEvent{CollectionAIConversations, events.VerbUpdated, map[string]any{"userId": userID}})
	return entry, nil
}

// GetAIConversation returns a user's assistant conversation in append order.
func (s *Store) GetAIConversation(ctx context.Context, userID types.ID) ([]*AIChatEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs, err := s.readAILog(ctx)
	if err != nil {
		return nil, err
	}
	return logs[userID.String()], nil
}
