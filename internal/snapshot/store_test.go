package snapshot

import (
	"path/filepath"
	"testing"
)

func TestFileStoreCreatesPlaceholder(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	snap, err := store.Load("dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Version() != 0 {
		t.Fatalf("expected placeholder version 0, got %d", snap.Version())
	}

	if matches, err := filepath.Glob(filepath.Join(dir, "dev.json")); err != nil || len(matches) != 1 {
		t.Fatalf("expected placeholder file dev.json to be written, got %v (err %v)", matches, err)
	}
}

func TestFileStoreSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

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
}

func TestFileStoreEmptyLocationSkipsPlaceholder(t *testing.T) {
	store := NewFileStore("")
	snap, err := store.Load("dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Version() != 0 {
		t.Fatalf("expected zero-version snapshot without side effects")
	}
}
