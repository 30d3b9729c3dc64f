package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Journal appends JSON audit events to a Store under nanosecond-timestamped
// keys. It is strictly write-only from the bots' point of view: nothing in
// the decision path reads it back.
type Journal struct {
	store Store
	now   func() time.Time
}

// NewJournal wraps store; a nil store yields a no-op journal so callers
// never have to guard.
func NewJournal(store Store) *Journal {
	return &Journal{store: store, now: time.Now}
}

func (j *Journal) Record(ctx context.Context, kind string, event any) error {
	if j == nil || j.store == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("audit:%s:%d", kind, j.now().UTC().UnixNano())
	return j.store.Set(ctx, key, string(payload))
}
