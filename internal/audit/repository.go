package audit

import (
	"context"
	"sync"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Repository stores audit entries. Implementations must be append-only.
type Repository interface {
	Initialize(ctx context.Context) error
	Append(ctx context.Context, entry *Entry) error
	FindByID(ctx context.Context, id types.ID) (*Entry, error)
	List(ctx context.Context, filter Filter) ([]*Entry, int, error)
	GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*Entry, error)
	VerifyChain(ctx context.Context, limit int) (*VerifyResult, error)
	GetLastHash() string
	GetSequence() int64
	Count(ctx context.Context) (int, error)
}

// MemoryRepository keeps the trail in process memory. The default when no
// durable stream is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	entries  []*Entry
	lastHash string
	sequence int64
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Initialize is a no-op for the memory repository
func (r *MemoryRepository) Initialize(ctx context.Context) error {
	return nil
}

// Append adds an entry, chaining it to the previous one
func (r *MemoryRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	entry.Sequence = r.sequence
	entry.PrevHash = r.lastHash
	entry.Hash = entry.calculateHash()
	r.entries = append(r.entries, entry)
	r.lastHash = entry.Hash
	return nil
}

// FindByID returns the entry with the given id
func (r *MemoryRepository) FindByID(ctx context.Context, id types.ID) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.NotFound("audit entry", id.String())
}

// List returns matching entries newest first, with the total match count.
func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Entry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if filter.matches(r.entries[i]) {
			matched = append(matched, r.entries[i])
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
func (r *MemoryRepository) GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*Entry, error) {
	entries, _, err := r.List(ctx, Filter{
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Limit:        limit,
	})
	return entries, err
}

// VerifyChain walks the chain oldest first checking hashes and links.
func (r *MemoryRepository) VerifyChain(ctx context.Context, limit int) (*VerifyResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := &VerifyResult{Valid: true}
	prevHash := ""

	for _, e := range r.entries {
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
func (r *MemoryRepository) GetLastHash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastHash
}

// GetSequence returns the current sequence number
func (r *MemoryRepository) GetSequence() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sequence
}

// Count returns the total number of entries
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

var _ Repository = (*MemoryRepository)(nil)
