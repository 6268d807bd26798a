package remote

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// fakeRows is an in-memory RowAccess for exercising the feed and mirror
// without a database.
type fakeRows struct {
	mu     sync.Mutex
	nextID int
	tables map[string][]*Row
}

func newFakeRows() *fakeRows {
	return &fakeRows{tables: make(map[string][]*Row)}
}

func (f *fakeRows) Select(ctx context.Context, table string, filters map[string]string) ([]*Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Row
	for _, row := range f.tables[table] {
		match := true
		for key, want := range filters {
			got, _ := row.Data[key].(string)
			if got != want {
				match = false
				break
			}
		}
		if match {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeRows) Insert(ctx context.Context, table string, data map[string]any) (*Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	row := &Row{
		ID:        types.ID(fmt.Sprintf("row-%d", f.nextID)),
		Table:     table,
		Data:      data,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	f.tables[table] = append(f.tables[table], row)
	return row, nil
}

func (f *fakeRows) Update(ctx context.Context, table string, id types.ID, patch map[string]any) (*Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.tables[table] {
		if row.ID != id {
			continue
		}
		for key, value := range patch {
			row.Data[key] = value
		}
		row.UpdatedAt = time.Now().UTC()
		return row, nil
	}
	return nil, fmt.Errorf("no row %s in %s", id, table)
}

// seed places a row directly, bypassing Insert, so tests control timestamps
// and origin.
func (f *fakeRows) seed(table string, row *Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if row.ID.IsZero() {
		row.ID = types.ID(fmt.Sprintf("row-%d", f.nextID))
	}
	row.Table = table
	f.tables[table] = append(f.tables[table], row)
}

func (f *fakeRows) rowCount(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *fakeRows) firstRow(table string) *Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tables[table]) == 0 {
		return nil
	}
	copied := *f.tables[table][0]
	return &copied
}

func startMirror(t *testing.T, rows *fakeRows, interval time.Duration) (*events.LocalBus, *Mirror) {
	t.Helper()
	bus := events.NewLocalBus(nil)
	mirror := NewMirror(rows, NewChangeFeed(rows, interval, nil), bus, nil)
	if err := mirror.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mirror.Stop)
	return bus, mirror
}

func TestMirrorSyncsStoreMutations(t *testing.T) {
	ctx := context.Background()
	rows := newFakeRows()
	bus, _ := startMirror(t, rows, time.Hour)

	bus.Publish(ctx, events.NewEvent("users.created", "entity-store", map[string]any{
		"id":       "usr-1",
		"fullName": "James Carter",
		"email":    "james.carter@mail.example",
	}))

	if rows.rowCount("users") != 1 {
		t.Fatalf("Expected 1 mirrored row, got %d", rows.rowCount("users"))
	}
	row := rows.firstRow("users")
	if row.Data["store_id"] != "usr-1" {
		t.Errorf("Expected store_id 'usr-1', got %v", row.Data["store_id"])
	}
	if row.Data["full_name"] != "James Carter" {
		t.Errorf("Expected snake_case full_name, got %+v", row.Data)
	}
	if row.Data["origin"] != originPortal {
		t.Errorf("Expected portal origin marker, got %v", row.Data["origin"])
	}

	bus.Publish(ctx, events.NewEvent("users.updated", "entity-store", map[string]any{
		"id":       "usr-1",
		"fullName": "James A. Carter",
	}))
	if rows.rowCount("users") != 1 {
		t.Fatalf("Update must not add a row, got %d", rows.rowCount("users"))
	}
	if got := rows.firstRow("users").Data["full_name"]; got != "James A. Carter" {
		t.Errorf("Expected updated name, got %v", got)
	}

	bus.Publish(ctx, events.NewEvent("users.deleted", "entity-store", map[string]any{
		"id": "usr-1",
	}))
	if got := rows.firstRow("users").Data["deleted"]; got != true {
		t.Errorf("Expected a deletion tombstone, got %v", got)
	}
}

func TestMirrorSkipsLocalOnlyCollections(t *testing.T) {
	ctx := context.Background()
	rows := newFakeRows()
	bus, _ := startMirror(t, rows, time.Hour)

	bus.Publish(ctx, events.NewEvent("modelTraining.updated", "entity-store", map[string]any{
		"id": "trn-1",
	}))
	bus.Publish(ctx, events.NewEvent("aiConversations.updated", "entity-store", map[string]any{
		"id": "usr-1",
	}))

	for table := range mirrorTables {
		if rows.rowCount(table) != 0 {
			t.Errorf("Local-only collection leaked into table %s", table)
		}
	}
}

func TestChangeFeedDeliversRemoteEdits(t *testing.T) {
	rows := newFakeRows()
	rows.seed("appointments", &Row{
		Data:      map[string]any{"origin": "hosted", "status": "confirmed"},
		UpdatedAt: time.Now().Add(time.Minute),
	})

	feed := NewChangeFeed(rows, 5*time.Millisecond, nil)
	delivered := make(chan *Row, 4)
	sub := feed.Subscribe(context.Background(), "appointments", remoteOrigin, func(row *Row) {
		delivered <- row
	})
	defer sub.Unsubscribe()

	select {
	case row := <-delivered:
		if row.Data["status"] != "confirmed" {
			t.Errorf("Unexpected row delivered: %+v", row.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Feed never delivered the changed row")
	}

	// The watermark advances; an unchanged row is not delivered again
	select {
	case row := <-delivered:
		t.Fatalf("Row delivered twice: %+v", row.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChangeFeedDropsPortalOriginRows(t *testing.T) {
	rows := newFakeRows()
	rows.seed("emails", &Row{
		Data:      map[string]any{"origin": originPortal, "subject": "echo"},
		UpdatedAt: time.Now().Add(time.Minute),
	})

	feed := NewChangeFeed(rows, 5*time.Millisecond, nil)
	delivered := make(chan *Row, 1)
	sub := feed.Subscribe(context.Background(), "emails", remoteOrigin, func(row *Row) {
		delivered <- row
	})
	defer sub.Unsubscribe()

	select {
	case row := <-delivered:
		t.Fatalf("Portal-origin row must not round-trip: %+v", row.Data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMirrorPublishesRemoteChanges(t *testing.T) {
	rows := newFakeRows()
	bus, _ := startMirror(t, rows, 5*time.Millisecond)

	received := make(chan events.Event, 4)
	sub := bus.SubscribePattern("remote.*", func(ctx context.Context, e events.Event) error {
		received <- e
		return nil
	})
	defer sub.Unsubscribe()

	rows.seed("medical_reports", &Row{
		Data:      map[string]any{"origin": "hosted", "status": "amended"},
		UpdatedAt: time.Now().Add(time.Minute),
	})

	select {
	case e := <-received:
		if e.Type != "remote.medicalReports.changed" {
			t.Errorf("Expected remote.medicalReports.changed, got %s", e.Type)
		}
		if e.Source != "remote-mirror" {
			t.Errorf("Expected remote-mirror source, got %s", e.Source)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Remote edit never reached the bus")
	}
}

func TestFeedUnsubscribeIsIdempotent(t *testing.T) {
	rows := newFakeRows()
	feed := NewChangeFeed(rows, time.Hour, nil)
	sub := feed.Subscribe(context.Background(), "users", nil, func(*Row) {})

	sub.Unsubscribe()
	sub.Unsubscribe()
	if sub.Table() != "users" {
		t.Errorf("Expected table 'users', got '%s'", sub.Table())
	}
}

func TestCamelToSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"patientId", "patient_id"},
		{"fullName", "full_name"},
		{"appointmentDate", "appointment_date"},
		{"id", "id"},
		{"mrn", "mrn"},
		{"createdAt", "created_at"},
	}
	for _, tt := range tests {
		if got := camelToSnake(tt.in); got != tt.want {
			t.Errorf("camelToSnake(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
