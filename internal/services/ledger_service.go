package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"findash/internal/amqp"
	"findash/internal/core"
	"findash/internal/sheets"
)

// Publisher sends committed mutations to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event *amqp.MutationEvent) error
}

// LedgerService orchestrates writes across the local store and AMQP. It is
// itself a sheets.Store, so callers can use it wherever a store is expected.
type LedgerService struct {
	store     sheets.Store
	publisher Publisher
}

var _ sheets.Store = (*LedgerService)(nil)

// NewLedgerService wraps store; publisher may be nil to disable events.
func NewLedgerService(store sheets.Store, publisher Publisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

func (s *LedgerService) FetchAll(ctx context.Context) (sheets.Snapshot, error) {
	return s.store.FetchAll(ctx)
}

// AppendTransaction saves locally first, then publishes. Publish failures are
// logged and never fail the request.
func (s *LedgerService) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	ref, err := s.store.AppendTransaction(ctx, t)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}
	s.publish(ctx, amqp.NewTransactionAppended(ref, t))
	return ref, nil
}

func (s *LedgerService) AddCard(ctx context.Context, c core.Card) error {
	if err := s.store.AddCard(ctx, c); err != nil {
		return fmt.Errorf("save card: %w", err)
	}
	s.publish(ctx, amqp.NewCardAdded(c.WithDefaults()))
	return nil
}

func (s *LedgerService) DeleteCard(ctx context.Context, name string) error {
	if err := s.store.DeleteCard(ctx, name); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	s.publish(ctx, amqp.NewCardDeleted(name))
	return nil
}

// Credentials are not mirrored.
func (s *LedgerService) Credential(ctx context.Context, username string) (string, error) {
	return s.store.Credential(ctx, username)
}

func (s *LedgerService) SetCredential(ctx context.Context, username, secret string) error {
	return s.store.SetCredential(ctx, username, secret)
}

func (s *LedgerService) publish(ctx context.Context, event *amqp.MutationEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping mutation event", "type", event.Type)
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish mutation event",
			"type", event.Type,
			"id", event.ID,
			"error", err)
	}
}

// Close closes the store and publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
