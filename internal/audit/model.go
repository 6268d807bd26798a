// Package audit keeps an append-only, hash-chained trail of portal activity:
// store mutations, sign-ins, and narration requests, fed from the event bus.
package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// canonicalJSON produces deterministic JSON output with sorted map keys.
// Go maps have random iteration order, so keys must be sorted for a stable
// hash.
func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	return canonicalMarshal(parsed)
}

func canonicalMarshal(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, _ := json.Marshal(k)
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := canonicalMarshal(val[k])
			if err != nil {
				return nil, err
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil

	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			itemBytes, err := canonicalMarshal(item)
			if err != nil {
				return nil, err
			}
			buf.Write(itemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil

	default:
		return json.Marshal(val)
	}
}

// Entry is an immutable audit log entry. Hash covers the entry's own fields
// plus PrevHash, chaining each entry to its predecessor.
type Entry struct {
	ID        types.ID  `json:"id"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash,omitempty"`

	ActorID   types.ID `json:"actor_id,omitempty"`
	ActorRole string   `json:"actor_role,omitempty"`

	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   *types.ID `json:"resource_id,omitempty"`

	Changes map[string]any `json:"changes,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewEntry creates an unchained entry. Repository.Append assigns the
// sequence number, links PrevHash, and computes the hash.
func NewEntry(actorID types.ID, actorRole, action, resourceType string, resourceID *types.ID, changes map[string]any) *Entry {
	return &Entry{
		ID:           types.NewID(),
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
		ActorID:      actorID,
		ActorRole:    actorRole,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changes,
	}
}

// calculateHash hashes the entry with canonical JSON. Timestamp is rendered
// in UTC so verification is timezone independent.
func (e *Entry) calculateHash() string {
	data := map[string]any{
		"id":            e.ID,
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
		"prev_hash":     e.PrevHash,
		"actor_id":      e.ActorID,
		"actor_role":    e.ActorRole,
		"action":        e.Action,
		"resource_type": e.ResourceType,
	}

	if e.ResourceID != nil {
		data["resource_id"] = e.ResourceID
	}
	if len(e.Changes) > 0 {
		data["changes"] = e.Changes
	}

	jsonData, _ := canonicalJSON(data)
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:])
}

// VerifyHash verifies the entry's hash
func (e *Entry) VerifyHash() bool {
	return e.Hash == e.calculateHash()
}

// Filter narrows List results. Zero fields are ignored.
type Filter struct {
	ActorID      *types.ID  `json:"actor_id,omitempty"`
	Action       string     `json:"action,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	ResourceID   *types.ID  `json:"resource_id,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Offset       int        `json:"offset,omitempty"`
}

func (f Filter) matches(e *Entry) bool {
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != nil && (e.ResourceID == nil || *e.ResourceID != *f.ResourceID) {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

// VerifyResult is the outcome of a chain verification pass.
type VerifyResult struct {
	Valid        bool      `json:"valid"`
	Checked      int       `json:"checked"`
	FirstInvalid *types.ID `json:"first_invalid,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}
