package events

import "context"

// EventBus defines the interface for event publishing and subscription
type EventBus interface {
	// Publish publishes an event to the bus
	Publish(ctx context.Context, event Event) error

	// Subscribe creates a subscription to events matching a pattern
	Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error

	// Close closes the event bus
	Close()

	// Health checks the event bus
	Health() error
}

// Ensure LocalBus implements EventBus
var _ EventBus = (*LocalBus)(nil)

// Ensure KurrentBus implements EventBus
var _ EventBus = (*KurrentBus)(nil)

// Tee returns a bus that publishes to primary and mirrors every event to
// mirror, dropping mirror failures after logging them in the mirror itself.
// Subscriptions go to the primary bus only.
func Tee(primary *LocalBus, mirror EventBus) EventBus {
	if mirror == nil {
		return primary
	}
	return &teeBus{primary: primary, mirror: mirror}
}

type teeBus struct {
	primary *LocalBus
	mirror  EventBus
}

func (t *teeBus) Publish(ctx context.Context, event Event) error {
	if err := t.primary.Publish(ctx, event); err != nil {
		return err
	}
	// Mirror is best-effort durable retention
	_ = t.mirror.Publish(ctx, event)
	return nil
}

func (t *teeBus) Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error {
	return t.primary.Subscribe(ctx, pattern, consumerName, handler)
}

func (t *teeBus) Close() {
	t.primary.Close()
	t.mirror.Close()
}

func (t *teeBus) Health() error {
	return t.primary.Health()
}
