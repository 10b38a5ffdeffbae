package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Transaction struct {
	ID           string
	DateTime     string
	Counterparty string
	Kind         string
	Account      string
	Category     string
	Description  string
	Amount       float64
	SyncStatus   string
}

type Card struct {
	Name           string
	CardType       string
	Last4          string
	OpeningBalance float64
	Bank           string
	Color          string
}

const transactionColumns = `id, date_time, counterparty, kind, account, category, description, amount, sync_status`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.DateTime, &t.Counterparty, &t.Kind, &t.Account,
		&t.Category, &t.Description, &t.Amount, &t.SyncStatus)
	return t, err
}

const createTransaction = `INSERT INTO transactions (id, date_time, counterparty, kind, account, category, description, amount)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	ID           string
	DateTime     string
	Counterparty string
	Kind         string
	Account      string
	Category     string
	Description  string
	Amount       float64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ID, arg.DateTime, arg.Counterparty, arg.Kind, arg.Account,
		arg.Category, arg.Description, arg.Amount)
	return scanTransaction(row)
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY rowid`

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return q.queryTransactions(ctx, listTransactions)
}

const getPendingSyncTransactions = `SELECT ` + transactionColumns + ` FROM transactions
WHERE sync_status IN ('pending', 'error')
ORDER BY created_at, rowid
LIMIT ?`

func (q *Queries) GetPendingSyncTransactions(ctx context.Context, limit int64) ([]Transaction, error) {
	return q.queryTransactions(ctx, getPendingSyncTransactions, limit)
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransactionSyncStatus = `SELECT sync_status FROM transactions WHERE id = ?`

func (q *Queries) GetTransactionSyncStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := q.db.QueryRowContext(ctx, getTransactionSyncStatus, id).Scan(&status)
	return status, err
}

const markTransactionSynced = `UPDATE transactions
SET sync_status = 'synced', synced_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
WHERE id = ?`

func (q *Queries) MarkTransactionSynced(ctx context.Context, id string) (int64, error) {
	return q.exec(ctx, markTransactionSynced, id)
}

const markTransactionSyncError = `UPDATE transactions SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id string) (int64, error) {
	return q.exec(ctx, markTransactionSyncError, id)
}

const createCard = `INSERT INTO cards (name, card_type, last4, opening_balance, bank, color)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (name) DO NOTHING`

type CreateCardParams struct {
	Name           string
	CardType       string
	Last4          string
	OpeningBalance float64
	Bank           string
	Color          string
}

// CreateCard returns the number of inserted rows; 0 means the name is taken.
func (q *Queries) CreateCard(ctx context.Context, arg CreateCardParams) (int64, error) {
	return q.exec(ctx, createCard, arg.Name, arg.CardType, arg.Last4, arg.OpeningBalance, arg.Bank, arg.Color)
}

const listCards = `SELECT name, card_type, last4, opening_balance, bank, color FROM cards ORDER BY rowid`

func (q *Queries) ListCards(ctx context.Context) ([]Card, error) {
	rows, err := q.db.QueryContext(ctx, listCards)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.Name, &c.CardType, &c.Last4, &c.OpeningBalance, &c.Bank, &c.Color); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteCard = `DELETE FROM cards WHERE name = ?`

func (q *Queries) DeleteCard(ctx context.Context, name string) (int64, error) {
	return q.exec(ctx, deleteCard, name)
}

const getUserPassword = `SELECT password FROM users WHERE username = ?`

func (q *Queries) GetUserPassword(ctx context.Context, username string) (string, error) {
	var password string
	err := q.db.QueryRowContext(ctx, getUserPassword, username).Scan(&password)
	return password, err
}

const updateUserPassword = `UPDATE users
SET password = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
WHERE username = ?`

func (q *Queries) UpdateUserPassword(ctx context.Context, username, password string) (int64, error) {
	return q.exec(ctx, updateUserPassword, password, username)
}

const createUserIfNoneExist = `INSERT INTO users (username, password, email)
SELECT ?, ?, ?
WHERE NOT EXISTS (SELECT 1 FROM users)`

func (q *Queries) CreateUserIfNoneExist(ctx context.Context, username, password, email string) (int64, error) {
	return q.exec(ctx, createUserIfNoneExist, username, password, email)
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&n)
	return n, err
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
