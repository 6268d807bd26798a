package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

const (
	// StreamName is the stream where all audit entries are stored
	StreamName = "$portal-audit"
	// EventType is the event type for audit entries
	EventType = "AuditEntry"

	readBatchLimit = 10000
)

// KurrentRepository stores audit entries in KurrentDB. The stream is
// inherently append-only, entries cannot be modified or deleted.
type KurrentRepository struct {
	client   *esdb.Client
	mu       sync.Mutex
	lastHash string
	sequence int64
}

// NewKurrentRepository creates a KurrentDB-backed audit repository
func NewKurrentRepository(client *esdb.Client) *KurrentRepository {
	return &KurrentRepository{client: client}
}

// Initialize recovers the last hash and sequence from the stream tail
func (r *KurrentRepository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts := esdb.ReadStreamOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}

	stream, err := r.client.ReadStream(ctx, StreamName, opts, 1)
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				r.lastHash = ""
				r.sequence = 0
				return nil
			}
		}
		return errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	event, err := stream.Recv()
	if err != nil {
		r.lastHash = ""
		r.sequence = 0
		return nil
	}

	if event.Event != nil && event.Event.EventType == EventType {
		var entry Entry
		if err := json.Unmarshal(event.Event.Data, &entry); err == nil {
			r.lastHash = entry.Hash
			r.sequence = entry.Sequence
		}
	}

	return nil
}

// Append writes one entry to the stream, chaining it to the previous one
func (r *KurrentRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	entry.Sequence = r.sequence
	entry.PrevHash = r.lastHash
	entry.Hash = entry.calculateHash()

	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit entry")
	}

	eventData := esdb.EventData{
		EventID:     uuid.New(),
		EventType:   EventType,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		Metadata: []byte(fmt.Sprintf(`{"sequence":%d,"hash":"%s"}`,
			entry.Sequence, entry.Hash)),
	}

	_, err = r.client.AppendToStream(ctx, StreamName, esdb.AppendToStreamOptions{}, eventData)
	if err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}

	r.lastHash = entry.Hash
	return nil
}

// readAll reads the full stream oldest first. Queries scan linearly; a
// projection would replace this if the trail outgrows a single portal.
func (r *KurrentRepository) readAll(ctx context.Context) ([]*Entry, error) {
	opts := esdb.ReadStreamOptions{
		Direction: esdb.Forwards,
		From:      esdb.Start{},
	}

	stream, err := r.client.ReadStream(ctx, StreamName, opts, readBatchLimit)
	if err != nil {
		if esdbErr, ok := esdb.FromError(err); ok {
			if esdbErr.Code() == esdb.ErrorCodeResourceNotFound {
				return nil, nil
			}
		}
		return nil, errors.Wrap(err, "failed to read audit stream")
	}
	defer stream.Close()

	var entries []*Entry
	for {
		event, err := stream.Recv()
		if err != nil {
			break
		}
		if event.Event == nil || event.Event.EventType != EventType {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(event.Event.Data, &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// FindByID finds an audit entry by ID
func (r *KurrentRepository) FindByID(ctx context.Context, id types.ID) (*Entry, error) {
	entries, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.NotFound("audit entry", id.String())
}

// List returns matching entries newest first
func (r *KurrentRepository) List(ctx context.Context, filter Filter) ([]*Entry, int, error) {
	entries, err := r.readAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	var matched []*Entry
	for i := len(entries) - 1; i >= 0; i-- {
		if filter.matches(entries[i]) {
			matched = append(matched, entries[i])
		}
	}

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*Entry{}, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// GetByResource returns the newest entries for one resource
func (r *KurrentRepository) GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*Entry, error) {
	entries, _, err := r.List(ctx, Filter{
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Limit:        limit,
	})
	return entries, err
}

// VerifyChain verifies hashes and links oldest first
func (r *KurrentRepository) VerifyChain(ctx context.Context, limit int) (*VerifyResult, error) {
	entries, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Valid: true}
	prevHash := ""

	for _, e := range entries {
		if limit > 0 && result.Checked >= limit {
			break
		}
		result.Checked++

		if !e.VerifyHash() {
			result.Valid = false
			result.FirstInvalid = &e.ID
			result.Reason = "entry hash mismatch"
			return result, nil
		}
		if e.PrevHash != prevHash {
			result.Valid = false
			result.FirstInvalid = &e.ID
			result.Reason = "chain link broken"
			return result, nil
		}
		prevHash = e.Hash
	}

	return result, nil
}

// GetLastHash returns the hash of the newest entry
func (r *KurrentRepository) GetLastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

// GetSequence returns the current sequence number
func (r *KurrentRepository) GetSequence() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sequence
}

// Count returns the total number of entries
func (r *KurrentRepository) Count(ctx context.Context) (int, error) {
	entries, err := r.readAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

var _ Repository = (*KurrentRepository)(nil)
