package sheets

import (
	"context"

	"findash/internal/core"
)

// Snapshot is the full dataset returned by a single read.
type Snapshot struct {
	Transactions []core.Transaction
	Cards        []core.Card
}

// Ports for outbound adapters.
type (
	// SnapshotReader returns every stored transaction, newest first, and every card.
	SnapshotReader interface {
		FetchAll(ctx context.Context) (Snapshot, error)
	}

	TransactionAppender interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (ref string, err error)
	}

	// CardStore adds and removes cards by exact name. DeleteCard returns
	// core.ErrCardNotFound when no card matches.
	CardStore interface {
		AddCard(ctx context.Context, c core.Card) error
		DeleteCard(ctx context.Context, name string) error
	}

	// CredentialStore reads and overwrites the stored secret for a user.
	// Credential returns core.ErrUserNotFound for unknown users.
	CredentialStore interface {
		Credential(ctx context.Context, username string) (secret string, err error)
		SetCredential(ctx context.Context, username, secret string) error
	}

	Store interface {
		SnapshotReader
		TransactionAppender
		CardStore
		CredentialStore
	}
)
