package session

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryStore_SaveAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	rec := &Record{
		SessionID: "s-1",
		OwnerID:   "tab-1",
		Status:    StatusRunning,
		Percent:   60,
		StartTime: time.Now().UTC(),
	}
	if err := store.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.GetRecord(ctx, "s-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != StatusRunning || got.Percent != 60 {
		t.Errorf("unexpected record: %+v", got)
	}

	// Mutating the returned copy must not touch the stored record.
	got.Percent = 99
	again, _ := store.GetRecord(ctx, "s-1")
	if again.Percent != 60 {
		t.Error("expected stored record to be isolated from returned copy")
	}
}

func TestInMemoryStore_GetMissing(t *testing.T) {
	store := NewInMemoryStore()
	if _, err := store.GetRecord(context.Background(), "nope"); err == nil {
		t.Error("expected error for missing session")
	}
}

func TestInMemoryStore_TransitionSequencing(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, percent := range []int{30, 60, 100} {
		tr := &Transition{SessionID: "s-1", Percent: percent, Timestamp: time.Now().UTC()}
		if err := store.AppendTransition(ctx, tr); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	trs, err := store.Transitions(ctx, "s-1")
	if err != nil {
		t.Fatalf("transitions failed: %v", err)
	}
	if len(trs) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(trs))
	}
	for i, tr := range trs {
		if tr.Seq != int64(i+1) {
			t.Errorf("transition %d: expected seq %d, got %d", i, i+1, tr.Seq)
		}
	}

	since, err := store.TransitionsSince(ctx, "s-1", 1)
	if err != nil {
		t.Fatalf("transitions since failed: %v", err)
	}
	if len(since) != 2 || since[0].Seq != 2 {
		t.Errorf("unexpected since result: %+v", since)
	}
}

func TestInMemoryStore_TransitionsUnknownSession(t *testing.T) {
	store := NewInMemoryStore()
	trs, err := store.Transitions(context.Background(), "nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trs) != 0 {
		t.Errorf("expected empty log, got %d", len(trs))
	}
}

func TestInMemoryStore_ListRecordsFilterAndOrder(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	base := time.Now().UTC()

	records := []*Record{
		{SessionID: "s-b", Status: StatusCompleted, StartTime: base.Add(time.Second)},
		{SessionID: "s-a", Status: StatusCompleted, StartTime: base},
		{SessionID: "s-c", Status: StatusFailed, StartTime: base.Add(2 * time.Second)},
	}
	for _, rec := range records {
		if err := store.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	all, err := store.ListRecords(ctx, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].SessionID != "s-a" || all[1].SessionID != "s-b" || all[2].SessionID != "s-c" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].SessionID, all[1].SessionID, all[2].SessionID)
	}

	completed, err := store.ListRecords(ctx, StatusCompleted)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(completed) != 2 {
		t.Errorf("expected 2 completed records, got %d", len(completed))
	}
}

func TestInMemoryStore_DeleteRecord(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	store.SaveRecord(ctx, &Record{SessionID: "s-1", Status: StatusCompleted})
	store.AppendTransition(ctx, &Transition{SessionID: "s-1", Percent: 100})

	if err := store.DeleteRecord(ctx, "s-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetRecord(ctx, "s-1"); err == nil {
		t.Error("expected record gone")
	}
	trs, _ := store.Transitions(ctx, "s-1")
	if len(trs) != 0 {
		t.Error("expected transitions gone")
	}
}
