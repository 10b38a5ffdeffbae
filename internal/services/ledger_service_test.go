package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"findash/internal/amqp"
	"findash/internal/core"
	"findash/internal/sheets/memory"
)

type fakePublisher struct {
	events []*amqp.MutationEvent
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, ev *amqp.MutationEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func newLedger(pub Publisher) *LedgerService {
	return NewLedgerService(memory.New(nil, nil, map[string]string{"admin": "pw"}), pub)
}

func TestLedgerService_PublishesCommittedMutations(t *testing.T) {
	pub := &fakePublisher{}
	svc := newLedger(pub)
	ctx := context.Background()

	ref, err := svc.AppendTransaction(ctx, core.Transaction{DateTime: "2024-01-01 10:00:00", Kind: core.Expense, Amount: 42})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AddCard(ctx, core.Card{Name: "Visa", Type: "Credit"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteCard(ctx, "Visa"); err != nil {
		t.Fatal(err)
	}

	want := []amqp.EventType{amqp.EventTransactionAppended, amqp.EventCardAdded, amqp.EventCardDeleted}
	if len(pub.events) != len(want) {
		t.Fatalf("events = %d, want %d", len(pub.events), len(want))
	}
	for i, ev := range pub.events {
		if ev.Type != want[i] {
			t.Errorf("event %d type = %s, want %s", i, ev.Type, want[i])
		}
	}
	if pub.events[0].ID != ref || pub.events[0].Transaction.ID != ref {
		t.Errorf("transaction event id = %q, want %q", pub.events[0].ID, ref)
	}
	if pub.events[1].Card.Color != core.DefaultCardColor {
		t.Errorf("card event should carry defaults: %+v", pub.events[1].Card)
	}
}

func TestLedgerService_FailedWritesPublishNothing(t *testing.T) {
	pub := &fakePublisher{}
	svc := newLedger(pub)
	ctx := context.Background()

	if _, err := svc.AppendTransaction(ctx, core.Transaction{Kind: core.Expense, Amount: 1}); !errors.Is(err, core.ErrMissingField) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.DeleteCard(ctx, "ghost"); !errors.Is(err, core.ErrCardNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed writes published %d events", len(pub.events))
	}
}

func TestLedgerService_PublishErrorIsNotReturned(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newLedger(pub)

	if err := svc.AddCard(context.Background(), core.Card{Name: "Visa", Type: "Credit"}); err != nil {
		t.Fatalf("publish failure leaked to caller: %v", err)
	}
	snap, _ := svc.FetchAll(context.Background())
	if len(snap.Cards) != 1 {
		t.Fatal("local write lost")
	}
}

func TestLedgerService_NilPublisher(t *testing.T) {
	svc := newLedger(nil)
	if _, err := svc.AppendTransaction(context.Background(), core.Transaction{
		DateTime: time.Now().Format(core.DateTimeLayout), Kind: core.Income, Amount: 5,
	}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close with nil components: %v", err)
	}
}

func TestLedgerService_CredentialsPassThrough(t *testing.T) {
	pub := &fakePublisher{}
	svc := newLedger(pub)
	ctx := context.Background()
	if err := svc.SetCredential(ctx, "admin", "new"); err != nil {
		t.Fatal(err)
	}
	if got, _ := svc.Credential(ctx, "admin"); got != "new" {
		t.Fatalf("credential = %q", got)
	}
	if len(pub.events) != 0 {
		t.Fatal("credential changes must not be published")
	}
	if err := svc.Close(); err != nil || !pub.closed {
		t.Fatalf("close: err=%v closed=%v", err, pub.closed)
	}
}
