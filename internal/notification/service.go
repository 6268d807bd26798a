package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Provider delivers notifications through an external channel
type Provider interface {
	Send(ctx context.Context, notification *Notification) error
	DeliveryStatus(ctx context.Context, notificationID types.ID) (*Receipt, error)
}

// ServiceConfig holds worker pool and retry settings
type ServiceConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Workers:       4,
		BufferSize:    1000,
		RetryAttempts: 3,
		RetryDelay:    30 * time.Second,
	}
}

// Service fans notifications out to a worker pool. In-app entries stay in
// the per-user inbox; push and email go through the configured providers.
type Service struct {
	pushProvider  Provider
	emailProvider Provider
	log           *zap.Logger

	mu      sync.RWMutex
	inbox   map[types.ID][]*Notification
	byID    map[types.ID]*Notification
	prefs   map[types.ID]*Preferences
	stats   Stats
	started bool

	notifCh chan *Notification
	stopCh  chan struct{}
	wg      sync.WaitGroup

	config ServiceConfig
	now    func() time.Time
}

// NewService creates a notification service. Providers may be nil; their
// channels then fail delivery.
func NewService(pushProvider, emailProvider Provider, config ServiceConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		pushProvider:  pushProvider,
		emailProvider: emailProvider,
		log:           log,
		inbox:         make(map[types.ID][]*Notification),
		byID:          make(map[types.ID]*Notification),
		prefs:         make(map[types.ID]*Preferences),
		notifCh:       make(chan *Notification, config.BufferSize),
		stopCh:        make(chan struct{}),
		config:        config,
		now:           time.Now,
	}
}

// Start launches the worker pool
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("service already started")
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	return nil
}

// Stop drains the workers
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("service not started")
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	return nil
}

// Send queues a notification for delivery. In-app entries are stored
// immediately and marked sent without provider involvement.
func (s *Service) Send(ctx context.Context, n *Notification) error {
	if n.ID.IsZero() {
		n.ID = types.NewID()
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	now := s.now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	n.Status = StatusPending

	if err := s.checkPreferences(n); err != nil {
		return err
	}

	s.mu.Lock()
	s.byID[n.ID] = n
	if n.Channel == ChannelInApp {
		s.inbox[n.RecipientID] = append(s.inbox[n.RecipientID], n)
		n.Status = StatusSent
		sent := now
		n.SentAt = &sent
		s.recordOutcome(n, true)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	select {
	case s.notifCh <- n:
		return nil
	default:
		return errors.Unavailable("notification buffer", nil)
	}
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case n := <-s.notifCh:
			s.deliver(ctx, n)
		}
	}
}

func (s *Service) deliver(ctx context.Context, n *Notification) {
	var provider Provider
	switch n.Channel {
	case ChannelPush:
		provider = s.pushProvider
	case ChannelEmail:
		provider = s.emailProvider
	}

	var err error
	if provider == nil {
		err = fmt.Errorf("%s provider not configured", n.Channel)
	} else {
		err = provider.Send(ctx, n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	n.UpdatedAt = now

	if err != nil {
		n.ErrorMessage = err.Error()
		n.RetryCount++
		if n.RetryCount >= s.config.RetryAttempts {
			n.Status = StatusFailed
			s.recordOutcome(n, false)
			s.log.Warn("notification delivery failed",
				zap.String("notification_id", n.ID.String()),
				zap.String("channel", string(n.Channel)),
				zap.Error(err))
			return
		}
		go func() {
			time.Sleep(s.config.RetryDelay)
			select {
			case s.notifCh <- n:
			case <-s.stopCh:
			}
		}()
		return
	}

	n.Status = StatusSent
	n.SentAt = &now
	s.recordOutcome(n, true)
}

// recordOutcome updates stats. Callers hold s.mu.
func (s *Service) recordOutcome(n *Notification, success bool) {
	if s.stats.ByChannel == nil {
		s.stats.ByChannel = make(map[Channel]int64)
	}
	if s.stats.ByPriority == nil {
		s.stats.ByPriority = make(map[Priority]int64)
	}

	s.stats.ByChannel[n.Channel]++
	s.stats.ByPriority[n.Priority]++
	if success {
		s.stats.TotalSent++
	} else {
		s.stats.TotalFailed++
	}
	if total := s.stats.TotalSent + s.stats.TotalFailed; total > 0 {
		s.stats.DeliveryRate = float64(s.stats.TotalSent) / float64(total)
	}
}

var priorityOrder = map[Priority]int{
	PriorityLow:    1,
	PriorityNormal: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

func (s *Service) checkPreferences(n *Notification) error {
	s.mu.RLock()
	prefs := s.prefs[n.RecipientID]
	s.mu.RUnlock()
	if prefs == nil {
		return nil
	}

	switch n.Channel {
	case ChannelInApp:
		if !prefs.EnableInApp {
			return errors.Forbidden("in-app notifications disabled for user")
		}
	case ChannelPush:
		if !prefs.EnablePush {
			return errors.Forbidden("push notifications disabled for user")
		}
		if priorityOrder[n.Priority] < priorityOrder[prefs.PushMinPriority] {
			return errors.Forbidden("notification priority below threshold")
		}
		if s.inQuietHours(prefs) && n.Priority != PriorityUrgent {
			return errors.Forbidden("quiet hours active")
		}
	case ChannelEmail:
		if !prefs.EnableEmail {
			return errors.Forbidden("email notifications disabled for user")
		}
		if priorityOrder[n.Priority] < priorityOrder[prefs.EmailMinPriority] {
			return errors.Forbidden("notification priority below threshold")
		}
	}
	return nil
}

// inQuietHours assumes start < end within one day.
func (s *Service) inQuietHours(prefs *Preferences) bool {
	if !prefs.QuietHoursEnabled {
		return false
	}
	current := s.now().Format("15:04")
	return current >= prefs.QuietHoursStart && current <= prefs.QuietHoursEnd
}

// ListForUser returns a user's in-app notifications, newest first
func (s *Service) ListForUser(userID types.ID) []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*Notification, len(s.inbox[userID]))
	copy(items, s.inbox[userID])
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].CreatedAt.After(items[b].CreatedAt)
	})
	return items
}

// UnreadCount returns the number of unread in-app notifications
func (s *Service) UnreadCount(userID types.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.inbox[userID] {
		if n.ReadAt == nil {
			count++
		}
	}
	return count
}

// MarkAsRead marks one notification read
func (s *Service) MarkAsRead(id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return errors.NotFound("notification", id.String())
	}
	if n.ReadAt != nil {
		return nil
	}

	now := s.now().UTC()
	n.ReadAt = &now
	n.Status = StatusRead
	n.UpdatedAt = now
	s.stats.TotalRead++
	return nil
}

// SetPreferences replaces a user's channel preferences
func (s *Service) SetPreferences(prefs *Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs.UpdatedAt = s.now().UTC()
	s.prefs[prefs.UserID] = prefs
}

// GetPreferences returns a user's preferences, defaults if unset
func (s *Service) GetPreferences(userID types.ID) *Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prefs[userID]; ok {
		return p
	}
	return DefaultPreferences(userID)
}

// GetStats returns a copy of the delivery statistics
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
