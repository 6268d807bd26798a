// Package notification turns bus events into per-user portal notifications:
// new messages, appointment status changes, imported reports. In-app entries
// land in a per-user inbox; push and email go through provider interfaces.
package notification

import (
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Channel is the delivery channel for a notification
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// Priority orders notifications for threshold checks
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is the delivery state of a notification
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusRead    Status = "read"
	StatusFailed  Status = "failed"
)

// Notification is one item in a user's notification feed
type Notification struct {
	ID          types.ID `json:"id"`
	Channel     Channel  `json:"channel"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	RecipientID types.ID `json:"recipientId"`

	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data,omitempty"`

	// EventID links the notification to the bus event that produced it
	EventID string `json:"eventId,omitempty"`

	SentAt       *time.Time `json:"sentAt,omitempty"`
	ReadAt       *time.Time `json:"readAt,omitempty"`
	RetryCount   int        `json:"retryCount,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Receipt confirms delivery through an external provider
type Receipt struct {
	NotificationID types.ID  `json:"notificationId"`
	Status         Status    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Provider       string    `json:"provider"`
}

// Stats aggregates delivery outcomes
type Stats struct {
	TotalSent    int64              `json:"totalSent"`
	TotalFailed  int64              `json:"totalFailed"`
	TotalRead    int64              `json:"totalRead"`
	ByChannel    map[Channel]int64  `json:"byChannel"`
	ByPriority   map[Priority]int64 `json:"byPriority"`
	DeliveryRate float64            `json:"deliveryRate"`
}

// Preferences controls which channels reach a user
type Preferences struct {
	UserID types.ID `json:"userId"`

	EnableInApp bool `json:"enableInApp"`
	EnablePush  bool `json:"enablePush"`
	EnableEmail bool `json:"enableEmail"`

	PushMinPriority  Priority `json:"pushMinPriority"`
	EmailMinPriority Priority `json:"emailMinPriority"`

	// Quiet hours suppress push between Start and End (HH:MM), urgent
	// notifications excepted.
	QuietHoursEnabled bool   `json:"quietHoursEnabled"`
	QuietHoursStart   string `json:"quietHoursStart,omitempty"`
	QuietHoursEnd     string `json:"quietHoursEnd,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultPreferences returns the channels a new user starts with
func DefaultPreferences(userID types.ID) *Preferences {
	return &Preferences{
		UserID:           userID,
		EnableInApp:      true,
		EnablePush:       true,
		EnableEmail:      true,
		PushMinPriority:  PriorityNormal,
		EmailMinPriority: PriorityHigh,
		UpdatedAt:        time.Now().UTC(),
	}
}
