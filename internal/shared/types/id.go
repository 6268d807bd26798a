package types

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID is a UUID wrapper for type safety
type ID string

// NewID generates a new random ID
func NewID() ID {
	return ID(uuid.New().String())
}

// NewEntityID generates a prefixed entity ID ("apt-<uuid>", "msg-<uuid>", ...).
// The prefix keeps ids readable per collection while the UUID part keeps them
// unique independent of wall-clock resolution.
func NewEntityID(prefix string) ID {
	return ID(prefix + "-" + uuid.New().String())
}

// ParseID parses a string into an ID. Prefixed entity ids ("apt-<uuid>") and
// bare UUIDs are both accepted.
func ParseID(s string) (ID, error) {
	raw := s
	if i := strings.IndexByte(s, '-'); i > 0 && i < 8 {
		raw = s[i+1:]
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", fmt.Errorf("invalid ID: %w", err)
	}
	return ID(s), nil
}

// MustParseID parses a string into an ID, panics on error
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsZero checks if the ID is empty
func (id ID) IsZero() bool {
	return id == ""
}

// Prefix returns the collection prefix of an entity id, or "" for bare UUIDs.
func (id ID) Prefix() string {
	if i := strings.IndexByte(string(id), '-'); i > 0 && i < 8 {
		return string(id)[:i]
	}
	return ""
}

// Value implements driver.Valuer for database serialization
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return string(id), nil
}

// Scan implements sql.Scanner for database deserialization
func (id *ID) Scan(value interface{}) error {
	if value == nil {
		*id = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*id = ID(v)
	case []byte:
		*id = ID(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ID", value)
	}
	return nil
}
