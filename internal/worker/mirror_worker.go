package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"findash/internal/amqp"
	"findash/internal/core"
	"findash/internal/sheets"
)

// Mirror is the write side of the spreadsheet copy.
type Mirror interface {
	sheets.TransactionAppender
	sheets.CardStore
}

// SyncTracker records which transactions have reached the mirror. It is
// implemented by the SQLite repository.
type SyncTracker interface {
	GetPendingSyncTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	IsSynced(ctx context.Context, id string) (bool, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// MirrorWorker replays ledger mutations onto the spreadsheet so it stays a
// read-only copy of the keyed store.
type MirrorWorker struct {
	mirror    Mirror
	tracker   SyncTracker
	batchSize int

	// mu serializes event handling and pending sweeps so the same
	// transaction is never appended twice by this process.
	mu sync.Mutex
}

// NewMirrorWorker creates a worker; tracker may be nil when the worker has no
// access to the ledger database.
func NewMirrorWorker(mirror Mirror, tracker SyncTracker, batchSize int) *MirrorWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &MirrorWorker{
		mirror:    mirror,
		tracker:   tracker,
		batchSize: batchSize,
	}
}

// HandleEvent applies one mutation. Replays are idempotent: an existing card
// on add, a missing card on delete and an already synced transaction all
// count as done.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.MutationEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	slog.InfoContext(ctx, "Processing mutation event", "type", ev.Type, "id", ev.ID)

	switch ev.Type {
	case amqp.EventTransactionAppended:
		return w.syncTransaction(ctx, *ev.Transaction)
	case amqp.EventCardAdded:
		err := w.mirror.AddCard(ctx, *ev.Card)
		if errors.Is(err, core.ErrCardExists) {
			slog.InfoContext(ctx, "Card already mirrored", "card", ev.Card.Name)
			return nil
		}
		if err != nil {
			return fmt.Errorf("add card to mirror: %w", err)
		}
		slog.InfoContext(ctx, "Successfully mirrored card", "card", ev.Card.Name)
		return nil
	case amqp.EventCardDeleted:
		err := w.mirror.DeleteCard(ctx, ev.CardName)
		if errors.Is(err, core.ErrCardNotFound) {
			slog.InfoContext(ctx, "Card already absent from mirror", "card", ev.CardName)
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete card from mirror: %w", err)
		}
		slog.InfoContext(ctx, "Successfully deleted mirrored card", "card", ev.CardName)
		return nil
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

// ProcessPending mirrors transactions the tracker still lists as pending.
// This is a backup mechanism in case AMQP messages are lost.
func (w *MirrorWorker) ProcessPending(ctx context.Context) (int, error) {
	if w.tracker == nil {
		return 0, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	pending, err := w.tracker.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	for _, t := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := w.append(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", t.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// RunPendingSync sweeps pending transactions immediately and then every
// interval until ctx is done.
func (w *MirrorWorker) RunPendingSync(ctx context.Context, interval time.Duration) error {
	if w.tracker == nil {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Pending sync sweep failed", "error", err)
		} else if n > 0 {
			slog.InfoContext(ctx, "Pending sync sweep completed", "synced", n)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *MirrorWorker) syncTransaction(ctx context.Context, t core.Transaction) error {
	if w.tracker != nil && t.ID != "" {
		synced, err := w.tracker.IsSynced(ctx, t.ID)
		if err != nil {
			slog.WarnContext(ctx, "Could not read sync status, mirroring anyway", "id", t.ID, "error", err)
		} else if synced {
			slog.InfoContext(ctx, "Transaction already mirrored", "id", t.ID)
			return nil
		}
	}
	return w.append(ctx, t)
}

func (w *MirrorWorker) append(ctx context.Context, t core.Transaction) error {
	ref, err := w.mirror.AppendTransaction(ctx, t)
	if err != nil {
		if w.tracker != nil && t.ID != "" {
			if markErr := w.tracker.MarkSyncError(ctx, t.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", t.ID, "error", markErr)
			}
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if w.tracker != nil && t.ID != "" {
		if err := w.tracker.MarkSynced(ctx, t.ID); err != nil {
			// The append succeeded; only the bookkeeping is lost.
			slog.ErrorContext(ctx, "Failed to mark as synced", "id", t.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Successfully mirrored transaction",
		"id", t.ID,
		"sheets_ref", ref,
		"kind", t.Kind,
		"amount", t.Amount)
	return nil
}
