package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/store"
)

// Bridge subscribes to store events and produces in-app notifications.
type Bridge struct {
	service *Service
	store   *store.Store
	bus     events.EventBus
	log     *zap.Logger
}

// NewBridge creates a bridge between the event bus and the notification
// service.
func NewBridge(service *Service, s *store.Store, bus events.EventBus, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{service: service, store: s, bus: bus, log: log}
}

// Start subscribes to the notifying event streams
func (b *Bridge) Start(ctx context.Context) error {
	subs := []struct {
		pattern      string
		consumerName string
		handler      events.Handler
	}{
		{"messages.created", "notify-messages", b.onMessageCreated},
		{"appointments.updated", "notify-appointments", b.onAppointmentUpdated},
		{"medicalReports.created", "notify-reports", b.onReportCreated},
	}

	for _, sub := range subs {
		if err := b.bus.Subscribe(ctx, sub.pattern, sub.consumerName, sub.handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", sub.pattern, err)
		}
	}
	return nil
}

// onMessageCreated notifies the other side of the thread
func (b *Bridge) onMessageCreated(ctx context.Context, event events.Event) error {
	msg, ok := event.Data.(*store.Message)
	if !ok {
		return nil
	}

	conv, err := store.Get(ctx, b.store, store.Conversations, msg.ConversationID)
	if err != nil {
		return err
	}

	recipient := conv.PatientID
	if msg.SenderType == store.SenderPatient {
		recipient = conv.DoctorID
	}

	preview := msg.Content
	if len(preview) > 120 {
		preview = preview[:120]
	}

	return b.service.Send(ctx, &Notification{
		Channel:     ChannelInApp,
		Priority:    PriorityNormal,
		RecipientID: recipient,
		Subject:     "New message",
		Body:        preview,
		Data: map[string]any{
			"conversationId": conv.ID,
			"messageId":      msg.ID,
		},
		EventID: event.ID,
	})
}

// onAppointmentUpdated notifies the patient of status changes
func (b *Bridge) onAppointmentUpdated(ctx context.Context, event events.Event) error {
	appt, ok := event.Data.(*store.Appointment)
	if !ok {
		return nil
	}

	priority := PriorityNormal
	if appt.Status == store.AppointmentStatusCancelled {
		priority = PriorityHigh
	}

	return b.service.Send(ctx, &Notification{
		Channel:     ChannelInApp,
		Priority:    priority,
		RecipientID: appt.PatientID,
		Subject:     fmt.Sprintf("Appointment %s", appt.Status),
		Body:        fmt.Sprintf("Your %s appointment on %s at %s is now %s.", appt.Type, appt.AppointmentDate, appt.AppointmentTime, appt.Status),
		Data: map[string]any{
			"appointmentId": appt.ID,
			"status":        appt.Status,
		},
		EventID: event.ID,
	})
}

// onReportCreated notifies the patient a new report is available
func (b *Bridge) onReportCreated(ctx context.Context, event events.Event) error {
	report, ok := event.Data.(*store.MedicalReport)
	if !ok {
		return nil
	}

	return b.service.Send(ctx, &Notification{
		Channel:     ChannelInApp,
		Priority:    PriorityNormal,
		RecipientID: report.PatientID,
		Subject:     "New report available",
		Body:        fmt.Sprintf("A %s report dated %s has been added to your record.", report.ScanType, report.ReportDate),
		Data: map[string]any{
			"reportId": report.ID,
		},
		EventID: event.ID,
	})
}
