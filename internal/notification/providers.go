package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// RecordingProvider is an in-memory provider used in development and tests.
type RecordingProvider struct {
	name string

	mu         sync.RWMutex
	sent       map[types.ID]*Notification
	failOnSend bool
}

// NewRecordingProvider creates a provider that records what it sends
func NewRecordingProvider(name string) *RecordingProvider {
	return &RecordingProvider{
		name: name,
		sent: make(map[types.ID]*Notification),
	}
}

// FailNext makes subsequent sends fail
func (p *RecordingProvider) FailNext(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failOnSend = fail
}

// Send records the notification
func (p *RecordingProvider) Send(ctx context.Context, notification *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failOnSend {
		return fmt.Errorf("send failure")
	}

	p.sent[notification.ID] = notification
	return nil
}

// DeliveryStatus reports delivered for anything recorded
func (p *RecordingProvider) DeliveryStatus(ctx context.Context, notificationID types.ID) (*Receipt, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.sent[notificationID]; ok {
		return &Receipt{
			NotificationID: notificationID,
			Status:         StatusSent,
			Timestamp:      time.Now().UTC(),
			Provider:       p.name,
		}, nil
	}
	return nil, fmt.Errorf("notification not found")
}

// SentCount returns how many notifications were recorded
func (p *RecordingProvider) SentCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sent)
}

var _ Provider = (*RecordingProvider)(nil)
