package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LocalBus is the in-process change feed. Store mutations are published here
// and views register callbacks against collection patterns. Every active view
// holds exactly one Subscription handle and must release it on teardown.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[int64]*Subscription
	nextID int64
	closed bool
	log    *zap.Logger
}

// Subscription is a handle for one registered callback. Unsubscribe releases
// it; calling Unsubscribe more than once is safe.
type Subscription struct {
	id      int64
	pattern string
	handler Handler
	bus     *LocalBus
	once    sync.Once
}

// Pattern returns the pattern this subscription matches against.
func (s *Subscription) Pattern() string {
	return s.pattern
}

// Unsubscribe removes the callback from the bus.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
	})
}

// NewLocalBus creates an in-process event bus
func NewLocalBus(log *zap.Logger) *LocalBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalBus{
		subs: make(map[int64]*Subscription),
		log:  log,
	}
}

// Publish delivers the event to every matching subscriber. Delivery is
// synchronous on the caller's goroutine; handler errors are logged, never
// propagated, so one bad subscriber cannot abort a store mutation.
func (b *LocalBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	matched := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if MatchesPattern(event.Type, sub.pattern) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		if err := sub.handler(ctx, event); err != nil {
			b.log.Warn("event handler failed",
				zap.String("event_type", event.Type),
				zap.String("pattern", sub.pattern),
				zap.Error(err))
		}
	}
	return nil
}

// SubscribePattern registers a callback and returns its handle.
func (b *LocalBus) SubscribePattern(pattern string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:      b.nextID,
		pattern: pattern,
		handler: handler,
		bus:     b,
	}
	if !b.closed {
		b.subs[sub.id] = sub
	}
	return sub
}

// Subscribe implements EventBus. The consumer name is accepted for interface
// parity with the durable bus and ignored here.
func (b *LocalBus) Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error {
	b.SubscribePattern(pattern, handler)
	return nil
}

// SubscriberCount returns the number of active subscriptions.
func (b *LocalBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops all subscriptions.
func (b *LocalBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[int64]*Subscription)
}

// Health always reports healthy for the in-process bus.
func (b *LocalBus) Health() error {
	return nil
}
