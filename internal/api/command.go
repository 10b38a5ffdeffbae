package api

import (
	"errors"
	"fmt"
	"strings"

	"findash/internal/core"
)

// Actions understood by the mutation endpoint. An empty action, or its
// explicit alias ActionAddTransaction, appends a transaction.
const (
	ActionAppendTransaction = ""
	ActionAddTransaction    = "addTransaction"
	ActionAddCard           = "addCard"
	ActionDeleteCard        = "deleteCard"
	ActionLogin             = "login"
	ActionResetPassword     = "resetPassword"
)

var ErrUnknownAction = errors.New("unknown action")

// Command is one mutation request. Only the fields of the selected action
// are read.
type Command struct {
	Action string `json:"action,omitempty"`

	DateTime      string  `json:"dateTime,omitempty"`
	TransferredTo string  `json:"transferredTo,omitempty"`
	Type          string  `json:"type,omitempty"`
	Account       string  `json:"account,omitempty"`
	Category      string  `json:"category,omitempty"`
	Description   string  `json:"description,omitempty"`
	Amount        *Amount `json:"amount,omitempty"`

	CardName       string  `json:"cardName,omitempty"`
	CardType       string  `json:"cardType,omitempty"`
	Last4Digits    string  `json:"last4Digits,omitempty"`
	InitialBalance *Amount `json:"initialBalance,omitempty"`
	BankName       string  `json:"bankName,omitempty"`
	Color          string  `json:"color,omitempty"`

	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	OldPassword string `json:"oldPassword,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
}

// IsMutation reports whether the command changes transactions or cards.
func (c Command) IsMutation() bool {
	switch c.Action {
	case ActionAppendTransaction, ActionAddTransaction, ActionAddCard, ActionDeleteCard:
		return true
	}
	return false
}

// NewAppendTransaction builds the command for t.
func NewAppendTransaction(t core.Transaction) Command {
	return Command{
		DateTime:      t.DateTime,
		TransferredTo: t.Counterparty,
		Type:          string(t.Kind),
		Account:       t.Account,
		Category:      t.Category,
		Description:   t.Description,
		Amount:        NewAmount(t.Amount),
	}
}

func NewAddCard(c core.Card) Command {
	return Command{
		Action:         ActionAddCard,
		CardName:       c.Name,
		CardType:       c.Type,
		Last4Digits:    c.Last4,
		InitialBalance: NewAmount(c.OpeningBalance),
		BankName:       c.Bank,
		Color:          c.Color,
	}
}

func NewDeleteCard(name string) Command {
	return Command{Action: ActionDeleteCard, CardName: name}
}

func NewLogin(username, password string) Command {
	return Command{Action: ActionLogin, Username: username, Password: password}
}

func NewResetPassword(username, oldPassword, newPassword string) Command {
	return Command{Action: ActionResetPassword, Username: username, OldPassword: oldPassword, NewPassword: newPassword}
}

// Transaction validates the append fields and returns the canonical record.
// dateTime, type and a non-zero amount are required.
func (c Command) Transaction() (core.Transaction, error) {
	if strings.TrimSpace(c.DateTime) == "" || strings.TrimSpace(c.Type) == "" || c.Amount == nil || !c.Amount.Present {
		return core.Transaction{}, fmt.Errorf("%w: dateTime, amount and type", core.ErrMissingField)
	}
	amount, err := c.Amount.Strict()
	if err != nil {
		return core.Transaction{}, err
	}
	if amount == 0 {
		return core.Transaction{}, fmt.Errorf("%w: amount", core.ErrMissingField)
	}
	t := core.NormalizeTransaction(core.RawTransaction{
		DateTime:      c.DateTime,
		TransferredTo: c.TransferredTo,
		Type:          c.Type,
		Account:       c.Account,
		Category:      c.Category,
		Description:   c.Description,
		Amount:        amount,
	})
	return t, t.Validate()
}

// Card validates the addCard fields. cardName, cardType and initialBalance
// are required; an initial balance of 0 is accepted.
func (c Command) Card() (core.Card, error) {
	if strings.TrimSpace(c.CardName) == "" || strings.TrimSpace(c.CardType) == "" || c.InitialBalance == nil || !c.InitialBalance.Present {
		return core.Card{}, fmt.Errorf("%w: cardName, cardType and initialBalance", core.ErrMissingField)
	}
	balance, err := c.InitialBalance.Strict()
	if err != nil {
		return core.Card{}, err
	}
	card := core.NormalizeCard(core.RawCard{
		Name:           c.CardName,
		Type:           c.CardType,
		Last4:          c.Last4Digits,
		InitialBalance: balance,
		Bank:           c.BankName,
		Color:          c.Color,
	})
	return card, card.Validate()
}
