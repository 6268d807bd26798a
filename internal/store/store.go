package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/metrics"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

const eventSource = "store"

// Store is the local entity store: durable CRUD over named collections on a
// KV substrate. It is an explicitly constructed object, injected into its
// consumers; there is no package-level instance.
//
// All mutations run under one critical section, so a multi-collection write
// such as AppendMessage (message append + conversation cache refresh) is
// atomic with respect to every other store operation. Reads of a single
// collection take the same lock; collections are demo-scale, so contention
// is not a concern.
type Store struct {
	kv  KV
	bus events.EventBus
	log *zap.Logger
	mu  sync.Mutex
	now func() time.Time
}

// New creates a store on the given substrate. The bus receives one event per
// successful mutation ("<collection>.<created|updated|deleted>") and may be
// nil in tests that do not care about the change feed.
func New(kv KV, bus events.EventBus, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		kv:  kv,
		bus: bus,
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Initialize seeds every known collection that is absent from the substrate.
// Idempotent: existing collections are left untouched, so calling it on every
// startup is safe.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seed := range seedCollections() {
		ok, err := s.kv.Has(ctx, seed.key)
		if err != nil {
			return errors.Unavailable("store substrate", err)
		}
		if ok {
			continue
		}
		if err := s.kv.Set(ctx, seed.key, seed.value); err != nil {
			return errors.Unavailable("store substrate", err)
		}
		s.log.Info("seeded collection", zap.String("collection", seed.key))
	}
	return nil
}

// Subscribe registers a change-feed callback for mutations matching the
// pattern ("messages.*", "appointments.updated", "*"). The returned handle
// must be released on teardown. Returns nil when the store has no bus or the
// bus is not the in-process one.
func (s *Store) Subscribe(pattern string, handler events.Handler) *events.Subscription {
	local, ok := s.bus.(*events.LocalBus)
	if !ok || local == nil {
		return nil
	}
	return local.SubscribePattern(pattern, handler)
}

func (s *Store) publish(ctx context.Context, collection, verb string, data any) {
	if s.bus == nil {
		return
	}
	event := events.NewEvent(events.EntityEventType(collection, verb), eventSource, data)
	if err := s.bus.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish store event",
			zap.String("event_type", event.Type),
			zap.Error(err))
	}
}

type queuedEvent struct {
	collection string
	verb       string
	data       any
}

// publishQueued delivers events collected during a mutation. Mutations defer
// it BEFORE taking the lock, so it runs after the unlock: bus delivery is
// synchronous and subscribers may reenter the store.
func (s *Store) publishQueued(ctx context.Context, queue *[]queuedEvent) {
	for _, q := range *queue {
		s.publish(ctx, q.collection, q.verb, q.data)
	}
}

// --- substrate access (callers hold s.mu) ---

func readCollection[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if stderrors.Is(err, ErrKeyMissing) {
			return nil, nil
		}
		return nil, errors.Unavailable("store substrate", err)
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("corrupt collection %s", key))
	}
	return items, nil
}

func writeCollection[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to encode collection %s", key))
	}
	if err := s.kv.Set(ctx, key, string(raw)); err != nil {
		return errors.Unavailable("store substrate", err)
	}
	return nil
}

// --- generic operations ---

// Create assigns a fresh prefixed id, stamps creation time, appends the
// entity to its collection, and publishes a created event. Returns the stored
// entity.
func Create[T Entity](ctx context.Context, s *Store, c Collection[T], e T) (T, error) {
	var queued []queuedEvent
	defer s.publishQueued(ctx, &queued)
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	items, err := readCollection[T](ctx, s, c.Key)
	if err != nil {
		metrics.RecordStoreOperation("create", c.Key, false)
		return zero, err
	}

	if e.EntityID().IsZero() {
		e.SetEntityID(types.NewEntityID(c.Prefix))
	}
	e.StampCreated(s.now())

	items = append(items, e)
	if err := writeCollection(ctx, s, c.Key, items); err != nil {
		metrics.RecordStoreOperation("create", c.Key, false)
		return zero, err
	}

	metrics.RecordStoreOperation("create", c.Key, true)
	metrics.RecordEntityCreated(c.Key)
	queued = append(queued, queuedEvent{c.Key, events.VerbCreated, e})
	return e, nil
}

// Get returns the entity with the given id, or a not-found error.
// O(n) scan over the collection.
func Get[T Entity](ctx context.Context, s *Store, c Collection[T], id types.ID) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getLocked(ctx, s, c, id)
}

func getLocked[T Entity](ctx context.Context, s *Store, c Collection[T], id types.ID) (T, error) {
	var zero T
	items, err := readCollection[T](ctx, s, c.Key)
	if err != nil {
		return zero, err
	}
	for _, item := range items {
		if item.EntityID() == id {
			return item, nil
		}
	}
	return zero, errors.NotFound(c.Key, id.String())
}

// List returns every entity in the collection in insertion order.
func List[T Entity](ctx context.Context, s *Store, c Collection[T]) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readCollection[T](ctx, s, c.Key)
}

// ListWhere returns entities matching the predicate, in insertion order.
func ListWhere[T Entity](ctx context.Context, s *Store, c Collection[T], match func(T) bool) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := readCollection[T](ctx, s, c.Key)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if match(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Update applies the patch closure to the entity with the given id, stamps
// the update time, persists, and publishes an updated event. Last-writer-wins
// with no merge conflict detection. A not-found id leaves the collection
// unchanged and returns a not-found error.
func Update[T Entity](ctx context.Context, s *Store, c Collection[T], id types.ID, patch func(T) error) (T, error) {
	var queued []queuedEvent
	defer s.publishQueued(ctx, &queued)
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateLocked(ctx, s, c, id, patch, &queued)
}

func updateLocked[T Entity](ctx context.Context, s *Store, c Collection[T], id types.ID, patch func(T) error, queued *[]queuedEvent) (T, error) {
	var zero T
	items, err := readCollection[T](ctx, s, c.Key)
	if err != nil {
		metrics.RecordStoreOperation("update", c.Key, false)
		return zero, err
	}

	for i, item := range items {
		if item.EntityID() != id {
			continue
		}
		if err := patch(item); err != nil {
			metrics.RecordStoreOperation("update", c.Key, false)
			return zero, err
		}
		item.StampUpdated(s.now())
		items[i] = item

		if err := writeCollection(ctx, s, c.Key, items); err != nil {
			metrics.RecordStoreOperation("update", c.Key, false)
			return zero, err
		}
		metrics.RecordStoreOperation("update", c.Key, true)
		*queued = append(*queued, queuedEvent{c.Key, events.VerbUpdated, item})
		return item, nil
	}

	metrics.RecordStoreOperation("update", c.Key, false)
	return zero, errors.NotFound(c.Key, id.String())
}

// Delete removes the entity with the given id. Returns whether anything was
// removed; most flows prefer a status-field soft mutation over deletion.
func Delete[T Entity](ctx context.Context, s *Store, c Collection[T], id types.ID) (bool, error) {
	var queued []queuedEvent
	defer s.publishQueued(ctx, &queued)
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := readCollection[T](ctx, s, c.Key)
	if err != nil {
		metrics.RecordStoreOperation("delete", c.Key, false)
		return false, err
	}

	for i, item := range items {
		if item.EntityID() != id {
			continue
		}
		items = append(items[:i], items[i+1:]...)
		if err := writeCollection(ctx, s, c.Key, items); err != nil {
			metrics.RecordStoreOperation("delete", c.Key, false)
			return false, err
		}
		metrics.RecordStoreOperation("delete", c.Key, true)
		queued = append(queued, queuedEvent{c.Key, events.VerbDeleted, map[string]any{"id": id}})
		return true, nil
	}

	metrics.RecordStoreOperation("delete", c.Key, false)
	return false, nil
}
