// Package api defines the JSON protocol spoken between the dashboard and its
// backing store: one read returning every transaction and card, and a small
// set of mutation commands selected by an "action" field.
package api

import (
	"math"

	"findash/internal/core"
	"findash/internal/sheets"
)

type (
	TransactionDTO struct {
		ID            string `json:"id,omitempty"`
		DateTime      string `json:"dateTime"`
		TransferredTo string `json:"transferredTo"`
		Type          string `json:"type"`
		Account       string `json:"account"`
		Category      string `json:"category"`
		Description   string `json:"description"`
		Amount        Amount `json:"amount"`
	}

	CardDTO struct {
		CardName       string `json:"cardName"`
		CardType       string `json:"cardType"`
		Last4Digits    string `json:"last4Digits"`
		InitialBalance Amount `json:"initialBalance"`
		BankName       string `json:"bankName"`
		Color          string `json:"color"`
	}

	// FetchResponse is the body of the read operation.
	FetchResponse struct {
		Success          bool             `json:"success"`
		Transactions     []TransactionDTO `json:"transactions"`
		Cards            []CardDTO        `json:"cards"`
		TransactionCount int              `json:"transactionCount"`
		CardCount        int              `json:"cardCount"`
		Error            string           `json:"error,omitempty"`
	}

	// Result is the body of every mutation response.
	Result struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
		Error   string `json:"error,omitempty"`
		Token   string `json:"token,omitempty"`
		// Ref identifies an appended transaction, when the store assigns one.
		Ref string `json:"ref,omitempty"`

		// Err is the classified cause of a failed command.
		Err error `json:"-"`
	}
)

func TransactionFromCore(t core.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:            t.ID,
		DateTime:      t.DateTime,
		TransferredTo: t.Counterparty,
		Type:          string(t.Kind),
		Account:       t.Account,
		Category:      t.Category,
		Description:   t.Description,
		Amount:        Amount{Value: t.Amount, Present: true},
	}
}

// Core normalizes the DTO: trimmed strings, default category, unsigned
// amount and a kind of Income or Expense.
func (d TransactionDTO) Core() core.Transaction {
	return core.NormalizeTransaction(core.RawTransaction{
		ID:            d.ID,
		DateTime:      d.DateTime,
		TransferredTo: d.TransferredTo,
		Type:          d.Type,
		Account:       d.Account,
		Category:      d.Category,
		Description:   d.Description,
		Amount:        math.Abs(d.Amount.Value),
	})
}

func CardFromCore(c core.Card) CardDTO {
	return CardDTO{
		CardName:       c.Name,
		CardType:       c.Type,
		Last4Digits:    c.Last4,
		InitialBalance: Amount{Value: c.OpeningBalance, Present: true},
		BankName:       c.Bank,
		Color:          c.Color,
	}
}

func (d CardDTO) Core() core.Card {
	return core.NormalizeCard(core.RawCard{
		Name:           d.CardName,
		Type:           d.CardType,
		Last4:          d.Last4Digits,
		InitialBalance: d.InitialBalance.Value,
		Bank:           d.BankName,
		Color:          d.Color,
	})
}

// NewFetchResponse builds a successful read response. Slices are never nil
// so they encode as [].
func NewFetchResponse(snap sheets.Snapshot) FetchResponse {
	resp := FetchResponse{
		Success:      true,
		Transactions: make([]TransactionDTO, 0, len(snap.Transactions)),
		Cards:        make([]CardDTO, 0, len(snap.Cards)),
	}
	for _, t := range snap.Transactions {
		resp.Transactions = append(resp.Transactions, TransactionFromCore(t))
	}
	for _, c := range snap.Cards {
		resp.Cards = append(resp.Cards, CardFromCore(c))
	}
	resp.TransactionCount = len(resp.Transactions)
	resp.CardCount = len(resp.Cards)
	return resp
}

// Snapshot converts a decoded response back to canonical records, dropping
// rows a sheet read would skip and ordering transactions newest first.
func (r FetchResponse) Snapshot() sheets.Snapshot {
	snap := sheets.Snapshot{
		Transactions: make([]core.Transaction, 0, len(r.Transactions)),
		Cards:        make([]core.Card, 0, len(r.Cards)),
	}
	for _, d := range r.Transactions {
		if d.DateTime == "" && !d.Amount.Present {
			continue
		}
		snap.Transactions = append(snap.Transactions, d.Core())
	}
	for _, d := range r.Cards {
		if d.CardName == "" {
			continue
		}
		snap.Cards = append(snap.Cards, d.Core())
	}
	core.SortNewestFirst(snap.Transactions)
	return snap
}

// Failure builds a failed result carrying err and a user-facing message.
func Failure(err error, message string) Result {
	return Result{Success: false, Error: message, Err: err}
}

// Success builds a successful result.
func Success(message string) Result {
	return Result{Success: true, Message: message}
}
