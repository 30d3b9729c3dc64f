package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSetGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%t err=%v", ok, err)
	}
	if err := store.Set(ctx, "audit:order:1", `{"action":"entry"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := store.Get(ctx, "audit:order:1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%t err=%v", ok, err)
	}
	if val != `{"action":"entry"}` {
		t.Fatalf("unexpected value %q", val)
	}
	if err := store.Set(ctx, "audit:order:1", `{"action":"exit"}`); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	val, _, _ = store.Get(ctx, "audit:order:1")
	if val != `{"action":"exit"}` {
		t.Fatalf("expected upserted value, got %q", val)
	}
	if err := store.Delete(ctx, "audit:order:1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "audit:order:1"); ok {
		t.Fatalf("expected key deleted")
	}
}

func TestCountByPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"audit:order:1", "audit:order:2", "audit:alert:1"} {
		if err := store.Set(ctx, key, "{}"); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	n, err := store.Count(ctx, "audit:order:")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 order events, got %d", n)
	}
}
