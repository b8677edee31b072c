package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"reelist/internal/store"
	"reelist/internal/testsupport"
)

type fakePayload struct {
	IMDBID string `json:"imdb_id"`
	Person string `json:"person"`
}

func TestPendingQueueFIFO(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, err := st.EnqueueOperation(ctx, store.OpAddRecommendation, fakePayload{IMDBID: "tt1", Person: "Alice"})
	if err != nil {
		t.Fatalf("EnqueueOperation failed: %v", err)
	}
	second, err := st.EnqueueOperation(ctx, store.OpUpdateMovie, fakePayload{IMDBID: "tt2"})
	if err != nil {
		t.Fatalf("EnqueueOperation failed: %v", err)
	}

	ops, err := st.PendingOperations(ctx)
	if err != nil {
		t.Fatalf("PendingOperations failed: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
	if ops[0].ID != first.ID || ops[1].ID != second.ID {
		t.Fatal("expected creation-order drain")
	}

	var decoded fakePayload
	if err := json.Unmarshal(ops[0].Payload, &decoded); err != nil {
		t.Fatalf("payload decode failed: %v", err)
	}
	if decoded.Person != "Alice" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestIncrementRetryPersists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	op, err := st.EnqueueOperation(ctx, store.OpUpdatePerson, fakePayload{Person: "Bob"})
	if err != nil {
		t.Fatalf("EnqueueOperation failed: %v", err)
	}

	for want := 1; want <= 3; want++ {
		count, err := st.IncrementRetry(ctx, op.ID)
		if err != nil {
			t.Fatalf("IncrementRetry failed: %v", err)
		}
		if count != want {
			t.Fatalf("expected retry count %d, got %d", want, count)
		}
	}

	ops, err := st.PendingOperations(ctx)
	if err != nil {
		t.Fatalf("PendingOperations failed: %v", err)
	}
	if ops[0].RetryCount != 3 {
		t.Fatalf("expected durable retry count 3, got %d", ops[0].RetryCount)
	}
}

func TestDeleteOperation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	op, err := st.EnqueueOperation(ctx, store.OpRemoveRecommendation, fakePayload{IMDBID: "tt1", Person: "Alice"})
	if err != nil {
		t.Fatalf("EnqueueOperation failed: %v", err)
	}

	removed, err := st.DeleteOperation(ctx, op.ID)
	if err != nil {
		t.Fatalf("DeleteOperation failed: %v", err)
	}
	if !removed {
		t.Fatal("expected delete to report a removed row")
	}

	removed, err = st.DeleteOperation(ctx, op.ID)
	if err != nil {
		t.Fatalf("DeleteOperation failed: %v", err)
	}
	if removed {
		t.Fatal("expected second delete to be a no-op")
	}
}

func TestMarkOperationFailedMovesEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	op, err := st.EnqueueOperation(ctx, store.OpAddMovie, fakePayload{IMDBID: "tt9"})
	if err != nil {
		t.Fatalf("EnqueueOperation failed: %v", err)
	}

	if err := st.MarkOperationFailed(ctx, op, "server rejected after 3 attempts"); err != nil {
		t.Fatalf("MarkOperationFailed failed: %v", err)
	}

	pending, err := st.PendingOperations(ctx)
	if err != nil {
		t.Fatalf("PendingOperations failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty pending queue, got %d entries", len(pending))
	}

	failed, err := st.FailedOperations(ctx)
	if err != nil {
		t.Fatalf("FailedOperations failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != op.ID {
		t.Fatalf("expected failed entry for %s, got %+v", op.ID, failed)
	}
	if failed[0].Reason == "" {
		t.Fatal("expected failure reason to be preserved")
	}

	cleared, err := st.ClearFailedOperations(ctx)
	if err != nil {
		t.Fatalf("ClearFailedOperations failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared entry, got %d", cleared)
	}
}

func TestUnresolvedLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := st.AddUnresolved(ctx, "", "Alice"); err == nil {
		t.Fatal("expected error for empty title")
	}
	if _, err := st.AddUnresolved(ctx, "Some Unreleased Title", ""); err == nil {
		t.Fatal("expected error for empty recommender")
	}

	item, err := st.AddUnresolved(ctx, "Some Unreleased Title", "Alice")
	if err != nil {
		t.Fatalf("AddUnresolved failed: %v", err)
	}

	items, err := st.ListUnresolved(ctx)
	if err != nil {
		t.Fatalf("ListUnresolved failed: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Some Unreleased Title" {
		t.Fatalf("unexpected unresolved list: %+v", items)
	}

	fetched, err := st.GetUnresolved(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetUnresolved failed: %v", err)
	}
	if fetched == nil || fetched.Recommender != "Alice" {
		t.Fatalf("unexpected item: %+v", fetched)
	}

	removed, err := st.DeleteUnresolved(ctx, item.ID)
	if err != nil {
		t.Fatalf("DeleteUnresolved failed: %v", err)
	}
	if !removed {
		t.Fatal("expected item to be removed")
	}
}
