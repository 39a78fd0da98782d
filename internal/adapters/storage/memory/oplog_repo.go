package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"clinic-records/internal/domain/oplog"
	"clinic-records/internal/ports/clock"
)

// oplogRepo es append-only.
type oplogRepo struct {
	mu      sync.RWMutex
	entries []oplog.Entry
}

func NewOplogRepo() oplog.Repository {
	return &oplogRepo{}
}

func (r *oplogRepo) Append(ctx context.Context, e oplog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, e)
	return nil
}

func (r *oplogRepo) ListBetween(ctx context.Context, from, to time.Time) ([]oplog.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]oplog.Entry, 0)
	for _, e := range r.entries {
		if clock.InRange(e.TS, from, to) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TS.Before(out[j].TS)
	})
	return out, nil
}
