package store

import (
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Entity is implemented by every stored record type. The store assigns ids
// and stamps timestamps through it so the generic operations stay free of
// per-type switches.
type Entity interface {
	EntityID() types.ID
	SetEntityID(id types.ID)
	StampCreated(t time.Time)
	StampUpdated(t time.Time)
}

// Collection describes one named collection: its substrate key and the id
// prefix its entities carry.
type Collection[T Entity] struct {
	Key    string
	Prefix string
}

// Collection descriptors. These are the store's generic handles; the typed
// accessors in accessors.go encode the per-collection sort and join policies
// on top of them.
var (
	Users          = Collection[*User]{Key: CollectionUsers, Prefix: "usr"}
	Appointments   = Collection[*Appointment]{Key: CollectionAppointments, Prefix: "apt"}
	MedicalReports = Collection[*MedicalReport]{Key: CollectionMedicalReports, Prefix: "rpt"}
	Conversations  = Collection[*Conversation]{Key: CollectionConversations, Prefix: "conv"}
	Messages       = Collection[*Message]{Key: CollectionMessages, Prefix: "msg"}
	Emails         = Collection[*Email]{Key: CollectionEmails, Prefix: "eml"}
)

func (u *User) EntityID() types.ID        { return u.ID }
func (u *User) SetEntityID(id types.ID)   { u.ID = id }
func (u *User) StampCreated(t time.Time)  { u.CreatedAt = t; u.UpdatedAt = t }
func (u *User) StampUpdated(t time.Time)  { u.UpdatedAt = t }

func (a *Appointment) EntityID() types.ID       { return a.ID }
func (a *Appointment) SetEntityID(id types.ID)  { a.ID = id }
func (a *Appointment) StampCreated(t time.Time) { a.CreatedAt = t; a.UpdatedAt = t }
func (a *Appointment) StampUpdated(t time.Time) { a.UpdatedAt = t }

func (m *MedicalReport) EntityID() types.ID       { return m.ID }
func (m *MedicalReport) SetEntityID(id types.ID)  { m.ID = id }
func (m *MedicalReport) StampCreated(t time.Time) { m.CreatedAt = t; m.UpdatedAt = t }
func (m *MedicalReport) StampUpdated(t time.Time) { m.UpdatedAt = t }

func (c *Conversation) EntityID() types.ID       { return c.ID }
func (c *Conversation) SetEntityID(id types.ID)  { c.ID = id }
func (c *Conversation) StampCreated(t time.Time) { c.CreatedAt = t; c.UpdatedAt = t }
func (c *Conversation) StampUpdated(t time.Time) { c.UpdatedAt = t }

func (m *Message) EntityID() types.ID      { return m.ID }
func (m *Message) SetEntityID(id types.ID) { m.ID = id }
func (m *Message) StampCreated(t time.Time) {
	if m.Timestamp.IsZero() {
		m.Timestamp = t
	}
}
func (m *Message) StampUpdated(t time.Time) {}

func (e *Email) EntityID() types.ID      { return e.ID }
func (e *Email) SetEntityID(id types.ID) { e.ID = id }
func (e *Email) StampCreated(t time.Time) {
	if e.SentAt.IsZero() {
		e.SentAt = t
	}
}
func (e *Email) StampUpdated(t time.Time) {}
