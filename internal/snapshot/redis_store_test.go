package snapshot

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	srv := miniredis.RunT(t)

	store, err := NewRedisStore(RedisStoreConfig{Addr: srv.Addr()}, nil)
	if err != nil {
		t.Fatalf("unexpected error connecting to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStoreLoadMissingReturnsPlaceholder(t *testing.T) {
	store := newTestRedisStore(t)

	snap, err := store.Load("dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Version() != 0 {
		t.Fatalf("expected placeholder version 0, got %d", snap.Version())
	}
}

func TestRedisStoreSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)

	snap := Build(sampleDomain())
	if err := store.Save(snap, "prod"); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	reloaded, err := store.Load("prod")
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if reloaded.Version() != snap.Version() {
		t.Fatalf("expected version %d, got %d", snap.Version(), reloaded.Version())
	}
	if _, _, ok := reloaded.Lookup("FF2FOR2020"); !ok {
		t.Fatalf("expected FF2FOR2020 to survive the round trip")
	}
}
