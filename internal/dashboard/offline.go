package dashboard

import (
	"context"

	"github.com/google/uuid"

	"findash/internal/core"
	"findash/internal/sheets"
)

// offlineStore lets the command dispatcher write into the view state when no
// endpoint is configured. Nothing is persisted. It holds no credentials, so
// login and password reset cannot succeed against it.
type offlineStore struct {
	view *Store
}

var _ sheets.Store = offlineStore{}

func (o offlineStore) FetchAll(context.Context) (sheets.Snapshot, error) {
	return sheets.Snapshot{Transactions: o.view.Transactions(), Cards: o.view.Cards()}, nil
}

func (o offlineStore) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	t.ID = uuid.NewString()
	o.view.PrependTransaction(t)
	return t.ID, nil
}

func (o offlineStore) AddCard(_ context.Context, c core.Card) error {
	return o.view.AddCard(c)
}

func (o offlineStore) DeleteCard(_ context.Context, name string) error {
	return o.view.DeleteCard(name)
}

func (o offlineStore) Credential(context.Context, string) (string, error) {
	return "", core.ErrUserNotFound
}

func (o offlineStore) SetCredential(context.Context, string, string) error {
	return core.ErrUserNotFound
}
