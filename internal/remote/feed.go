package remote

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RowHandler receives changed rows from the feed.
type RowHandler func(row *Row)

// FeedSubscription is the handle for one table watch. Unsubscribe stops the
// poller; calling it more than once is safe.
type FeedSubscription struct {
	table  string
	cancel context.CancelFunc
	once   sync.Once
}

// Table returns the watched table name.
func (s *FeedSubscription) Table() string {
	return s.table
}

// Unsubscribe stops delivery and releases the poller.
func (s *FeedSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// ChangeFeed delivers inserted and updated rows from the remote mirror by
// polling updated_at per watched table. Polling keeps the adapter on plain
// SQL; the delivery contract to callers is the same as a push feed.
type ChangeFeed struct {
	rows     RowAccess
	interval time.Duration
	log      *zap.Logger
}

// NewChangeFeed creates a feed polling at the given interval.
func NewChangeFeed(rows RowAccess, interval time.Duration, log *zap.Logger) *ChangeFeed {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ChangeFeed{rows: rows, interval: interval, log: log}
}

// Subscribe watches a table and delivers every row whose updated_at moves
// past the subscription start. The optional filter drops rows before
// delivery. Callbacks run on the poller goroutine.
func (f *ChangeFeed) Subscribe(ctx context.Context, table string, filter func(*Row) bool, handler RowHandler) *FeedSubscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &FeedSubscription{table: table, cancel: cancel}

	go f.poll(ctx, table, filter, handler)
	return sub
}

func (f *ChangeFeed) poll(ctx context.Context, table string, filter func(*Row) bool, handler RowHandler) {
	since := time.Now().UTC()
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		rows, err := f.rows.Select(ctx, table, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.Warn("change feed poll failed",
				zap.String("table", table),
				zap.Error(err))
			continue
		}

		var newest time.Time
		for _, row := range rows {
			if !row.UpdatedAt.After(since) {
				continue
			}
			if row.UpdatedAt.After(newest) {
				newest = row.UpdatedAt
			}
			if filter != nil && !filter(row) {
				continue
			}
			handler(row)
		}
		if !newest.IsZero() {
			since = newest
		}
	}
}
