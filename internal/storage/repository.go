package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"findash/internal/auth"
	"findash/internal/core"
	"findash/internal/sheets"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the keyed store: transactions are addressed by UUID and
// cards by their unique name, so deletes never depend on row position.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	newID   func() string
}

var _ sheets.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite would otherwise report SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		newID:   uuid.NewString,
	}
	if err := repo.seedDefaultUser(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) seedDefaultUser(ctx context.Context) error {
	n, err := r.queries.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	hash, err := auth.HashPassword(auth.DefaultPassword)
	if err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}
	if _, err := r.queries.CreateUserIfNoneExist(ctx, auth.DefaultUser, hash, auth.DefaultEmail); err != nil {
		return fmt.Errorf("seed default user: %w", err)
	}
	slog.InfoContext(ctx, "Seeded default user", "username", auth.DefaultUser)
	return nil
}

// FetchAll implements sheets.SnapshotReader
func (r *SQLiteRepository) FetchAll(ctx context.Context) (sheets.Snapshot, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return sheets.Snapshot{}, fmt.Errorf("list transactions: %w", err)
	}
	cards, err := r.queries.ListCards(ctx)
	if err != nil {
		return sheets.Snapshot{}, fmt.Errorf("list cards: %w", err)
	}

	snap := sheets.Snapshot{
		Transactions: make([]core.Transaction, len(rows)),
		Cards:        make([]core.Card, len(cards)),
	}
	for i, t := range rows {
		snap.Transactions[i] = toCoreTransaction(t)
	}
	for i, c := range cards {
		snap.Cards[i] = toCoreCard(c)
	}
	core.SortNewestFirst(snap.Transactions)
	return snap, nil
}

// AppendTransaction implements sheets.TransactionAppender. The returned ref is
// the new transaction's UUID.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if t.Category == "" {
		t.Category = core.DefaultCategory
	}
	created, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:           r.newID(),
		DateTime:     t.DateTime,
		Counterparty: t.Counterparty,
		Kind:         string(t.Kind),
		Account:      t.Account,
		Category:     t.Category,
		Description:  t.Description,
		Amount:       math.Abs(t.Amount),
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", created.ID,
		"kind", created.Kind,
		"account", created.Account,
		"amount", created.Amount)

	return created.ID, nil
}

// GetTransaction retrieves a single transaction by ID
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return toCoreTransaction(t), nil
}

// AddCard implements sheets.CardStore
func (r *SQLiteRepository) AddCard(ctx context.Context, c core.Card) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	c = c.WithDefaults()
	n, err := r.queries.CreateCard(ctx, CreateCardParams{
		Name:           c.Name,
		CardType:       c.Type,
		Last4:          c.Last4,
		OpeningBalance: c.OpeningBalance,
		Bank:           c.Bank,
		Color:          c.Color,
	})
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrCardExists, c.Name)
	}
	slog.InfoContext(ctx, "Card saved to SQLite", "card", c.Name, "type", c.Type)
	return nil
}

// DeleteCard implements sheets.CardStore
func (r *SQLiteRepository) DeleteCard(ctx context.Context, name string) error {
	n, err := r.queries.DeleteCard(ctx, name)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrCardNotFound, name)
	}
	slog.InfoContext(ctx, "Card deleted from SQLite", "card", name)
	return nil
}

// Credential implements sheets.CredentialStore
func (r *SQLiteRepository) Credential(ctx context.Context, username string) (string, error) {
	password, err := r.queries.GetUserPassword(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	return password, nil
}

// SetCredential implements sheets.CredentialStore
func (r *SQLiteRepository) SetCredential(ctx context.Context, username, secret string) error {
	n, err := r.queries.UpdateUserPassword(ctx, username, secret)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// GetPendingSyncTransactions returns transactions not yet mirrored to Google
// Sheets, including ones whose last attempt failed.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.GetPendingSyncTransactions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	out := make([]core.Transaction, len(rows))
	for i, t := range rows {
		out[i] = toCoreTransaction(t)
	}
	return out, nil
}

// IsSynced reports whether a transaction has already been mirrored.
func (r *SQLiteRepository) IsSynced(ctx context.Context, id string) (bool, error) {
	status, err := r.queries.GetTransactionSyncStatus(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("get sync status: %w", err)
	}
	return status == "synced", nil
}

// MarkSynced marks a transaction as successfully mirrored
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	n, err := r.queries.MarkTransactionSynced(ctx, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a transaction as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	n, err := r.queries.MarkTransactionSyncError(ctx, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// ErrNotFound is returned for lookups by an unknown transaction id.
var ErrNotFound = errors.New("not found")

func toCoreTransaction(t Transaction) core.Transaction {
	return core.Transaction{
		ID:           t.ID,
		DateTime:     t.DateTime,
		Counterparty: t.Counterparty,
		Kind:         core.Kind(t.Kind),
		Account:      t.Account,
		Category:     t.Category,
		Description:  t.Description,
		Amount:       t.Amount,
	}
}

func toCoreCard(c Card) core.Card {
	return core.Card{
		Name:           c.Name,
		Type:           c.CardType,
		Last4:          c.Last4,
		OpeningBalance: c.OpeningBalance,
		Bank:           c.Bank,
		Color:          c.Color,
	}
}
