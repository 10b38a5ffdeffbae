package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"findash/internal/auth"
	"findash/internal/core"
	"findash/internal/log"
	"findash/internal/sheets"
)

// User-facing messages. Clients match on some of these, so they are stable.
const (
	MsgTransactionAdded   = "Transaction added successfully"
	MsgCardAdded          = "Card added successfully"
	MsgCardDeleted        = "Card deleted successfully"
	MsgLoginOK            = "Login successful"
	MsgPasswordReset      = "Password reset successful"
	MsgMissingFields      = "Missing required fields"
	MsgMissingCardFields  = "Missing required fields for card"
	MsgCardNameRequired   = "Card name required"
	MsgCredsRequired      = "Username and password required"
	MsgResetRequired      = "Username, old password and new password required"
	MsgCardNotFound       = "Card not found"
	MsgCardExists         = "Card already exists"
	MsgInvalidAmount      = "Invalid amount"
	MsgInvalidCredentials = "Invalid username or password"
	MsgAccountMismatch    = "Account not found or incorrect old password"
	MsgPasswordTooLong    = "New password must be at most 72 bytes"
	MsgStorageFailure     = "Backing store unavailable"
)

// Dispatcher applies commands to a store and an auth service.
type Dispatcher struct {
	store  sheets.Store
	auth   *auth.Service
	logger *log.StructuredLogger

	// OnMutation, when set, runs after every successful command that
	// changes transactions or cards.
	OnMutation func(ctx context.Context, action string)
}

// NewDispatcher wires store and authSvc. logger may be nil.
func NewDispatcher(store sheets.Store, authSvc *auth.Service, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentAPI})
	}
	return &Dispatcher{
		store:  store,
		auth:   authSvc,
		logger: log.NewStructuredLogger(logger.WithComponent(log.ComponentAPI)),
	}
}

// Dispatch runs cmd and reports the outcome in the response shape.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) Result {
	var res Result
	switch cmd.Action {
	case ActionAppendTransaction, ActionAddTransaction:
		res = d.appendTransaction(ctx, cmd)
	case ActionAddCard:
		res = d.addCard(ctx, cmd)
	case ActionDeleteCard:
		res = d.deleteCard(ctx, cmd)
	case ActionLogin:
		res = d.login(ctx, cmd)
	case ActionResetPassword:
		res = d.resetPassword(ctx, cmd)
	default:
		return Failure(fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action), "Unknown action: "+cmd.Action)
	}

	if res.Success && cmd.IsMutation() && d.OnMutation != nil {
		d.OnMutation(ctx, cmd.Action)
	}
	return res
}

func (d *Dispatcher) appendTransaction(ctx context.Context, cmd Command) Result {
	t, err := cmd.Transaction()
	if err != nil {
		return validationFailure(err, MsgMissingFields)
	}
	ref, err := d.store.AppendTransaction(ctx, t)
	if err != nil {
		return d.storageFailure(ctx, err, log.OpAppend)
	}
	d.logger.LogTransactionAppended(ctx, ref, string(t.Kind), t.Account, t.Category, t.Amount)
	res := Success(MsgTransactionAdded)
	res.Ref = ref
	return res
}

func (d *Dispatcher) addCard(ctx context.Context, cmd Command) Result {
	card, err := cmd.Card()
	if err != nil {
		return validationFailure(err, MsgMissingCardFields)
	}
	if err := d.store.AddCard(ctx, card); err != nil {
		if errors.Is(err, core.ErrCardExists) {
			return Failure(err, MsgCardExists)
		}
		if errors.Is(err, core.ErrMissingField) {
			return Failure(err, MsgMissingCardFields)
		}
		return d.storageFailure(ctx, err, log.OpAddCard)
	}
	d.logger.LogCardChanged(ctx, log.OpAddCard, card.Name)
	return Success(MsgCardAdded)
}

func (d *Dispatcher) deleteCard(ctx context.Context, cmd Command) Result {
	name := strings.TrimSpace(cmd.CardName)
	if name == "" {
		return Failure(fmt.Errorf("%w: cardName", core.ErrMissingField), MsgCardNameRequired)
	}
	if err := d.store.DeleteCard(ctx, name); err != nil {
		if errors.Is(err, core.ErrCardNotFound) {
			return Failure(err, MsgCardNotFound)
		}
		return d.storageFailure(ctx, err, log.OpDelete)
	}
	d.logger.LogCardChanged(ctx, log.OpDelete, name)
	return Success(MsgCardDeleted)
}

func (d *Dispatcher) login(ctx context.Context, cmd Command) Result {
	token, err := d.auth.Login(ctx, cmd.Username, cmd.Password)
	switch {
	case err == nil:
		res := Success(MsgLoginOK)
		res.Token = token
		return res
	case errors.Is(err, core.ErrMissingField):
		return Failure(err, MsgCredsRequired)
	case errors.Is(err, core.ErrInvalidCredentials):
		return Failure(err, MsgInvalidCredentials)
	default:
		return d.storageFailure(ctx, err, log.OpLogin)
	}
}

func (d *Dispatcher) resetPassword(ctx context.Context, cmd Command) Result {
	err := d.auth.ResetPassword(ctx, cmd.Username, cmd.OldPassword, cmd.NewPassword)
	switch {
	case err == nil:
		return Success(MsgPasswordReset)
	case errors.Is(err, core.ErrMissingField):
		return Failure(err, MsgResetRequired)
	case errors.Is(err, auth.ErrAccountMismatch):
		return Failure(err, MsgAccountMismatch)
	case errors.Is(err, auth.ErrPasswordTooLong):
		return Failure(err, MsgPasswordTooLong)
	default:
		return d.storageFailure(ctx, err, log.OpReset)
	}
}

func validationFailure(err error, missing string) Result {
	if errors.Is(err, core.ErrInvalidAmount) {
		return Failure(err, MsgInvalidAmount)
	}
	return Failure(err, missing)
}

func (d *Dispatcher) storageFailure(ctx context.Context, err error, op string) Result {
	d.logger.LogError(ctx, "Command failed", err, op, nil)
	return Failure(err, MsgStorageFailure)
}
