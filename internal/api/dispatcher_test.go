package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"findash/internal/auth"
	"findash/internal/core"
	"findash/internal/sheets"
	"findash/internal/sheets/memory"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)

func newTestDispatcher(t *testing.T) (*Dispatcher, *memory.Store, *[]string) {
	t.Helper()
	store := memory.New(nil, core.DemoCards(), map[string]string{"admin": "admin123"})
	svc := auth.NewService(store, auth.Options{Cost: bcrypt.MinCost, Tokens: auth.NewTokenIssuer("k", time.Hour)})
	d := NewDispatcher(store, svc, nil)
	var mutations []string
	d.OnMutation = func(_ context.Context, action string) { mutations = append(mutations, action) }
	return d, store, &mutations
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name       string
		cmd        Command
		wantOK     bool
		wantMsg    string
		wantStatus int
	}{
		{
			name:       "append transaction",
			cmd:        Command{DateTime: "2024-06-01 10:00:00", Type: "Expense", Amount: &Amount{Value: 250, Raw: "₹250", Present: true}},
			wantOK:     true,
			wantMsg:    MsgTransactionAdded,
			wantStatus: http.StatusOK,
		},
		{
			name:       "append without amount",
			cmd:        Command{DateTime: "2024-06-01 10:00:00", Type: "Expense"},
			wantMsg:    MsgMissingFields,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "append zero amount",
			cmd:        Command{DateTime: "2024-06-01 10:00:00", Type: "Income", Amount: NewAmount(0)},
			wantMsg:    MsgMissingFields,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "append malformed amount",
			cmd:        Command{DateTime: "2024-06-01 10:00:00", Type: "Income", Amount: &Amount{Value: 12, Raw: "12-34", Present: true}},
			wantMsg:    MsgInvalidAmount,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "add card with zero balance",
			cmd:        Command{Action: ActionAddCard, CardName: "Amex", CardType: "Credit", InitialBalance: NewAmount(0)},
			wantOK:     true,
			wantMsg:    MsgCardAdded,
			wantStatus: http.StatusOK,
		},
		{
			name:       "add card missing balance",
			cmd:        Command{Action: ActionAddCard, CardName: "Amex", CardType: "Credit"},
			wantMsg:    MsgMissingCardFields,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "add duplicate card",
			cmd:        Command{Action: ActionAddCard, CardName: "Paytm Wallet", CardType: "Wallet", InitialBalance: NewAmount(1)},
			wantMsg:    MsgCardExists,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "delete card",
			cmd:        NewDeleteCard("SBI Debit Card"),
			wantOK:     true,
			wantMsg:    MsgCardDeleted,
			wantStatus: http.StatusOK,
		},
		{
			name:       "delete unknown card",
			cmd:        NewDeleteCard("Nope"),
			wantMsg:    MsgCardNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "delete without name",
			cmd:        NewDeleteCard("  "),
			wantMsg:    MsgCardNameRequired,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "login",
			cmd:        NewLogin("admin", "admin123"),
			wantOK:     true,
			wantMsg:    MsgLoginOK,
			wantStatus: http.StatusOK,
		},
		{
			name:       "login wrong password",
			cmd:        NewLogin("admin", "nope"),
			wantMsg:    MsgInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "login missing password",
			cmd:        NewLogin("admin", ""),
			wantMsg:    MsgCredsRequired,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "reset wrong old password",
			cmd:        NewResetPassword("admin", "guess", "x"),
			wantMsg:    MsgAccountMismatch,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "reset with password too long for bcrypt",
			cmd:        NewResetPassword("admin", "admin123", strings.Repeat("x", 80)),
			wantMsg:    MsgPasswordTooLong,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "explicit addTransaction action",
			cmd:        Command{Action: ActionAddTransaction, DateTime: "2024-06-01 10:00:00", Type: "Income", Amount: NewAmount(40)},
			wantOK:     true,
			wantMsg:    MsgTransactionAdded,
			wantStatus: http.StatusOK,
		},
		{
			name:       "misspelled action is not appended",
			cmd:        Command{Action: "addTransactions", DateTime: "2024-06-01 10:00:00", Type: "Income", Amount: NewAmount(40)},
			wantMsg:    "Unknown action: addTransactions",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown action",
			cmd:        Command{Action: "dropTables"},
			wantMsg:    "Unknown action: dropTables",
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := newTestDispatcher(t)
			res := d.Dispatch(context.Background(), tt.cmd)
			if res.Success != tt.wantOK {
				t.Fatalf("success = %v (%+v)", res.Success, res)
			}
			msg := res.Message
			if !res.Success {
				msg = res.Error
			}
			if msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
			if got := StatusFor(res.Err); got != tt.wantStatus {
				t.Errorf("status = %d, want %d (err %v)", got, tt.wantStatus, res.Err)
			}
		})
	}
}

func TestDispatchAppendPersists(t *testing.T) {
	d, store, mutations := newTestDispatcher(t)
	ctx := context.Background()
	res := d.Dispatch(ctx, NewAppendTransaction(core.Transaction{
		DateTime: "2024-06-01 10:00:00", Counterparty: "Cafe", Kind: core.Expense, Account: "Paytm Wallet", Amount: 90,
	}))
	if !res.Success || res.Ref == "" {
		t.Fatalf("append: %+v", res)
	}
	snap, _ := store.FetchAll(ctx)
	if len(snap.Transactions) != 1 || snap.Transactions[0].Category != core.DefaultCategory {
		t.Fatalf("stored = %+v", snap.Transactions)
	}
	if len(*mutations) != 1 || (*mutations)[0] != ActionAppendTransaction {
		t.Fatalf("mutations = %v", *mutations)
	}
}

func TestDispatchMutationHookSkipsFailuresAndAuth(t *testing.T) {
	d, _, mutations := newTestDispatcher(t)
	ctx := context.Background()
	d.Dispatch(ctx, NewDeleteCard("Nope"))
	d.Dispatch(ctx, NewLogin("admin", "admin123"))
	if len(*mutations) != 0 {
		t.Fatalf("hook ran for %v", *mutations)
	}
	d.Dispatch(ctx, NewDeleteCard("Paytm Wallet"))
	if len(*mutations) != 1 || (*mutations)[0] != ActionDeleteCard {
		t.Fatalf("mutations = %v", *mutations)
	}
}

func TestDispatchLoginToken(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), NewLogin("admin", "admin123"))
	if res.Token == "" {
		t.Fatal("expected a token")
	}
	if user, err := d.auth.VerifyToken(res.Token); err != nil || user != "admin" {
		t.Fatalf("verify = %q, %v", user, err)
	}
}

func TestDispatchResetThenLogin(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	ctx := context.Background()
	if res := d.Dispatch(ctx, NewResetPassword("admin", "admin123", "n3w")); !res.Success {
		t.Fatalf("reset: %+v", res)
	}
	if res := d.Dispatch(ctx, NewLogin("admin", "n3w")); !res.Success {
		t.Fatalf("login with new password: %+v", res)
	}
}

type brokenStore struct {
	sheets.Store
	err error
}

func (b brokenStore) DeleteCard(context.Context, string) error { return b.err }

func TestDispatchStorageFailure(t *testing.T) {
	boom := errors.New("sheets quota exceeded")
	store := brokenStore{Store: memory.New(nil, nil, nil), err: boom}
	d := NewDispatcher(store, auth.NewService(store, auth.Options{}), nil)

	res := d.Dispatch(context.Background(), NewDeleteCard("Visa"))
	if res.Success || res.Error != MsgStorageFailure || !errors.Is(res.Err, boom) {
		t.Fatalf("result = %+v", res)
	}
	if StatusFor(res.Err) != http.StatusInternalServerError {
		t.Fatalf("status = %d", StatusFor(res.Err))
	}
}
