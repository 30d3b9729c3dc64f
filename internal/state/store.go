package state

import "context"

// Store is a small key/value sink. The bots use it as a write-only audit
// journal; decisions never read it back, so a restart always begins from a
// neutral trading state.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
