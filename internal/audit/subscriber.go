package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/metrics"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Subscriber listens to domain events and records audit entries
type Subscriber struct {
	repo Repository
	bus  events.EventBus
}

// NewSubscriber creates a new audit subscriber
func NewSubscriber(repo Repository, bus events.EventBus) *Subscriber {
	return &Subscriber{repo: repo, bus: bus}
}

// Start subscribes to all audited event streams
func (s *Subscriber) Start(ctx context.Context) error {
	patterns := []struct {
		pattern      string
		consumerName string
	}{
		{"users.*", "audit-users-subscriber"},
		{"appointments.*", "audit-appointments-subscriber"},
		{"medicalReports.*", "audit-reports-subscriber"},
		{"conversations.*", "audit-conversations-subscriber"},
		{"messages.*", "audit-messages-subscriber"},
		{"emails.*", "audit-emails-subscriber"},
		{"aiConversations.*", "audit-assistant-subscriber"},
		{"modelTraining.*", "audit-training-subscriber"},
		{"auth.*", "audit-auth-subscriber"},
		{"analysis.*", "audit-analysis-subscriber"},
		{"remote.*", "audit-remote-subscriber"},
	}

	for _, p := range patterns {
		if err := s.bus.Subscribe(ctx, p.pattern, p.consumerName, s.handleEvent); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", p.pattern, err)
		}
	}

	return nil
}

func (s *Subscriber) handleEvent(ctx context.Context, event events.Event) error {
	entry := eventToEntry(event)
	if entry == nil {
		return nil
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	metrics.RecordAuditEntry()
	return nil
}

// eventToEntry converts a domain event to an audit entry. The event type's
// first segment names the resource, the full type is the action.
func eventToEntry(event events.Event) *Entry {
	parts := strings.SplitN(event.Type, ".", 2)
	if len(parts) < 2 {
		return nil
	}

	resourceType := parts[0]

	var resourceID *types.ID
	var changes map[string]any
	if entity, ok := event.Data.(interface{ EntityID() types.ID }); ok {
		id := entity.EntityID()
		resourceID = &id
	} else if data, ok := event.Data.(map[string]any); ok {
		changes = data
		for _, field := range []string{resourceType + "_id", "id"} {
			if idVal, ok := data[field]; ok {
				if idStr, ok := idVal.(string); ok {
					id := types.ID(idStr)
					resourceID = &id
					break
				}
				if id, ok := idVal.(types.ID); ok {
					resourceID = &id
					break
				}
			}
		}
	}

	entry := NewEntry(event.ActorID, event.ActorRole, event.Type, resourceType, resourceID, changes)
	entry.Timestamp = event.Timestamp.UTC()
	entry.CorrelationID = event.CorrelationID
	return entry
}
