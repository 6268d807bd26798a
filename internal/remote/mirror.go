package remote

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
)

// originPortal marks rows written by this process. The change feed drops
// them so the portal never re-ingests its own writes.
const originPortal = "portal"

// mirrorTables maps store collections to their remote table names. Singleton
// collections and per-user logs stay local.
var mirrorTables = map[string]string{
	"users":          "users",
	"appointments":   "appointments",
	"medicalReports": "medical_reports",
	"conversations":  "conversations",
	"messages":       "messages",
	"emails":         "emails",
}

// Mirror keeps the remote backend in step with the local store. Outbound, it
// subscribes to store mutation events and upserts each entity into its
// remote table keyed by store id. Inbound, the change feed surfaces rows
// edited by other writers as remote.* events on the local bus.
type Mirror struct {
	rows RowAccess
	feed *ChangeFeed
	bus  *events.LocalBus
	log  *zap.Logger

	busSubs  []*events.Subscription
	feedSubs []*FeedSubscription
}

// NewMirror creates a mirror over the row store and feed.
func NewMirror(rows RowAccess, feed *ChangeFeed, bus *events.LocalBus, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{rows: rows, feed: feed, bus: bus, log: log}
}

// Start registers the outbound bus subscriptions and the inbound table
// watches. The context bounds the feed pollers.
func (m *Mirror) Start(ctx context.Context) error {
	for collection, table := range mirrorTables {
		m.busSubs = append(m.busSubs,
			m.bus.SubscribePattern(collection+".*", m.handleStoreEvent))

		sub := m.feed.Subscribe(ctx, table, remoteOrigin, m.remoteRowHandler(collection))
		m.feedSubs = append(m.feedSubs, sub)
	}
	return nil
}

// Stop releases every subscription and halts the pollers.
func (m *Mirror) Stop() {
	for _, sub := range m.busSubs {
		sub.Unsubscribe()
	}
	for _, sub := range m.feedSubs {
		sub.Unsubscribe()
	}
	m.busSubs = nil
	m.feedSubs = nil
}

// handleStoreEvent upserts one mutated entity into its remote table. The
// payload is flattened to snake_case and stamped with the store id and the
// portal origin marker; deletions become a tombstone patch.
func (m *Mirror) handleStoreEvent(ctx context.Context, event events.Event) error {
	parts := strings.SplitN(event.Type, ".", 2)
	if len(parts) < 2 {
		return nil
	}
	table, ok := mirrorTables[parts[0]]
	if !ok {
		return nil
	}

	payload, ok := eventPayload(event.Data)
	if !ok {
		return nil
	}
	storeID, _ := payload["id"].(string)
	if storeID == "" {
		return nil
	}

	data := snakeCaseKeys(payload)
	data["store_id"] = storeID
	data["origin"] = originPortal
	if parts[1] == events.VerbDeleted {
		data = map[string]any{"store_id": storeID, "origin": originPortal, "deleted": true}
	}

	existing, err := m.rows.Select(ctx, table, map[string]string{"store_id": storeID})
	if err != nil {
		return errors.Wrap(err, "mirror lookup failed")
	}
	if len(existing) > 0 {
		_, err = m.rows.Update(ctx, table, existing[0].ID, data)
	} else {
		if parts[1] == events.VerbDeleted {
			return nil
		}
		_, err = m.rows.Insert(ctx, table, data)
	}
	if err != nil {
		return errors.Wrap(err, "mirror write failed")
	}
	return nil
}

// remoteRowHandler publishes a row changed by another writer as a remote.*
// event, so audit and other subscribers see edits made outside this process.
func (m *Mirror) remoteRowHandler(collection string) RowHandler {
	return func(row *Row) {
		event := events.NewEvent("remote."+collection+".changed", "remote-mirror", map[string]any{
			"id":    row.ID.String(),
			"table": row.Table,
			"data":  row.Data,
		})
		if err := m.bus.Publish(context.Background(), event); err != nil {
			m.log.Warn("failed to publish remote change",
				zap.String("table", row.Table),
				zap.Error(err))
		}
	}
}

func remoteOrigin(row *Row) bool {
	origin, _ := row.Data["origin"].(string)
	return origin != originPortal
}

// eventPayload renders the event data as a generic map, whatever concrete
// type the publisher used.
func eventPayload(data any) (map[string]any, bool) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// snakeCaseKeys rewrites the map's keys from the store's camelCase to the
// remote schema's snake_case, recursing into nested objects.
func snakeCaseKeys(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		if nested, ok := value.(map[string]any); ok {
			value = snakeCaseKeys(nested)
		}
		out[camelToSnake(key)] = value
	}
	return out
}

func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
