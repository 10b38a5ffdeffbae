package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"findash/internal/amqp"
	"findash/internal/core"
	"findash/internal/sheets/memory"
)

type fakeTracker struct {
	pending  []core.Transaction
	synced   map[string]bool
	errored  map[string]bool
	fetchErr error
}

func newFakeTracker(pending ...core.Transaction) *fakeTracker {
	return &fakeTracker{pending: pending, synced: map[string]bool{}, errored: map[string]bool{}}
}

func (f *fakeTracker) GetPendingSyncTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []core.Transaction
	for _, t := range f.pending {
		if !f.synced[t.ID] && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTracker) IsSynced(_ context.Context, id string) (bool, error) { return f.synced[id], nil }

func (f *fakeTracker) MarkSynced(_ context.Context, id string) error {
	f.synced[id] = true
	return nil
}

func (f *fakeTracker) MarkSyncError(_ context.Context, id string) error {
	f.errored[id] = true
	return nil
}

// failingMirror rejects every append.
type failingMirror struct {
	*memory.Store
}

func (failingMirror) AppendTransaction(context.Context, core.Transaction) (string, error) {
	return "", errors.New("quota exceeded")
}

func txn(id, dt string) core.Transaction {
	return core.Transaction{ID: id, DateTime: dt, Kind: core.Expense, Account: "HDFC", Amount: 10}
}

func mirrorCount(t *testing.T, m *memory.Store) (int, int) {
	t.Helper()
	snap, err := m.FetchAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return len(snap.Transactions), len(snap.Cards)
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New(nil, nil, map[string]string{})
	tracker := newFakeTracker()
	w := NewMirrorWorker(mirror, tracker, 0)

	if err := w.HandleEvent(ctx, amqp.NewTransactionAppended("t1", txn("", "2024-01-01 10:00:00"))); err != nil {
		t.Fatal(err)
	}
	if !tracker.synced["t1"] {
		t.Fatal("transaction not marked synced")
	}
	// Redelivery of an already mirrored transaction is a no-op.
	if err := w.HandleEvent(ctx, amqp.NewTransactionAppended("t1", txn("", "2024-01-01 10:00:00"))); err != nil {
		t.Fatal(err)
	}
	if n, _ := mirrorCount(t, mirror); n != 1 {
		t.Fatalf("mirror transactions = %d, want 1", n)
	}

	card := core.Card{Name: "Visa", Type: "Credit"}
	for i := 0; i < 2; i++ {
		if err := w.HandleEvent(ctx, amqp.NewCardAdded(card)); err != nil {
			t.Fatalf("add #%d: %v", i, err)
		}
	}
	if _, n := mirrorCount(t, mirror); n != 1 {
		t.Fatalf("mirror cards = %d, want 1", n)
	}
	for i := 0; i < 2; i++ {
		if err := w.HandleEvent(ctx, amqp.NewCardDeleted("Visa")); err != nil {
			t.Fatalf("delete #%d: %v", i, err)
		}
	}
	if _, n := mirrorCount(t, mirror); n != 0 {
		t.Fatalf("mirror cards = %d, want 0", n)
	}

	if err := w.HandleEvent(ctx, &amqp.MutationEvent{Type: "card.renamed"}); err == nil {
		t.Fatal("unknown event type accepted")
	}
}

func TestHandleEventMirrorFailure(t *testing.T) {
	tracker := newFakeTracker()
	w := NewMirrorWorker(failingMirror{memory.New(nil, nil, map[string]string{})}, tracker, 10)

	err := w.HandleEvent(context.Background(), amqp.NewTransactionAppended("t1", txn("", "2024-01-01 10:00:00")))
	if err == nil {
		t.Fatal("mirror failure should be returned so the message is requeued")
	}
	if !tracker.errored["t1"] || tracker.synced["t1"] {
		t.Fatalf("tracker state: synced=%v errored=%v", tracker.synced, tracker.errored)
	}
}

func TestHandleEventWithoutTracker(t *testing.T) {
	mirror := memory.New(nil, nil, map[string]string{})
	w := NewMirrorWorker(mirror, nil, 10)
	if err := w.HandleEvent(context.Background(), amqp.NewTransactionAppended("t1", txn("", "2024-01-01 10:00:00"))); err != nil {
		t.Fatal(err)
	}
	if n, _ := mirrorCount(t, mirror); n != 1 {
		t.Fatalf("mirror transactions = %d", n)
	}
	if n, err := w.ProcessPending(context.Background()); n != 0 || err != nil {
		t.Fatalf("ProcessPending without tracker = %d, %v", n, err)
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	mirror := memory.New(nil, nil, map[string]string{})
	tracker := newFakeTracker(
		txn("a", "2024-01-01 10:00:00"),
		txn("b", "2024-01-02 10:00:00"),
		txn("c", "2024-01-03 10:00:00"),
	)
	w := NewMirrorWorker(mirror, tracker, 2)

	n, err := w.ProcessPending(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first sweep = %d, %v", n, err)
	}
	n, err = w.ProcessPending(ctx)
	if err != nil || n != 1 {
		t.Fatalf("second sweep = %d, %v", n, err)
	}
	if n, _ := w.ProcessPending(ctx); n != 0 {
		t.Fatalf("third sweep = %d", n)
	}
	if got, _ := mirrorCount(t, mirror); got != 3 {
		t.Fatalf("mirror transactions = %d, want 3", got)
	}

	tracker.fetchErr = errors.New("db locked")
	if _, err := w.ProcessPending(ctx); err == nil {
		t.Fatal("expected tracker error")
	}
}

func TestRunPendingSyncStopsOnCancel(t *testing.T) {
	tracker := newFakeTracker(txn("a", "2024-01-01 10:00:00"))
	w := NewMirrorWorker(memory.New(nil, nil, map[string]string{}), tracker, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.RunPendingSync(ctx, time.Hour) }()

	deadline := time.After(2 * time.Second)
	for {
		w.mu.Lock()
		synced := tracker.synced["a"]
		w.mu.Unlock()
		if synced {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial sweep did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunPendingSync returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunPendingSync did not stop")
	}
}
