package inmemory

import (
	"context"
	"errors"
	"testing"

	errorskg "github.com/sweetpotato0/bizplan/errors"
	"github.com/sweetpotato0/bizplan/session"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	rec := &session.Record{
		ID:        "s1",
		Responses: map[string]string{"Pitch": "We sell widgets."},
		History:   map[string][]string{"Pitch": {"Q: q\nA: We sell widgets."}},
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// mutating the original must not leak into the store
	rec.Responses["Pitch"] = "changed"

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Responses["Pitch"] != "We sell widgets." {
		t.Errorf("Expected stored response, got %q", got.Responses["Pitch"])
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("Expected 1 record, got %d", count)
	}
	ids, _ := store.List(ctx)
	if len(ids) != 1 || ids[0] != "s1" {
		t.Errorf("Unexpected ids %v", ids)
	}
	if ok, _ := store.Exists(ctx, "s1"); !ok {
		t.Error("Expected record to exist")
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, errorskg.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryStoreRejectsEmptyRecord(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.Save(context.Background(), &session.Record{}); err == nil {
		t.Error("Expected error for record without id")
	}
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Expected error for nil record")
	}
}

func TestInMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	_ = store.Save(ctx, &session.Record{ID: "a"})
	_ = store.Save(ctx, &session.Record{ID: "b"})

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if count, _ := store.Count(ctx); count != 0 {
		t.Errorf("Expected empty store, got %d", count)
	}
}
