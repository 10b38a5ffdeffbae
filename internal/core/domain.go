package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "Income"
	Expense Kind = "Expense"
)

const (
	DefaultCategory  = "Other"
	DefaultCardType  = "Debit"
	DefaultLast4     = "0000"
	DefaultCardColor = "#667eea"
)

// DateTimeLayout is the layout transactions are written with.
const DateTimeLayout = "2006-01-02 15:04:05"

type (
	Kind string

	// Transaction is one financial movement. Amount is always the unsigned
	// magnitude; the sign is derived from Kind.
	Transaction struct {
		ID           string
		DateTime     string // local wall-clock, as authored
		Counterparty string
		Kind         Kind
		Account      string
		Category     string
		Description  string
		Amount       float64
	}

	// Card is one payment instrument. Name is unique within a card set.
	Card struct {
		Name           string
		Type           string
		Last4          string
		OpeningBalance float64
		Bank           string
		Color          string
	}
)

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrCardNotFound       = errors.New("card not found")
	ErrCardExists         = errors.New("card already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var dateTimeLayouts = []string{
	DateTimeLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 3:04 PM",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// ParseDateTime parses the timestamp formats found in sheets and form input.
// Zone-less values are interpreted in local time.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Local(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Local(), true
	}
	return time.Time{}, false
}

// IsDateOnly reports whether s carries a calendar date without a time of day.
func IsDateOnly(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006/01/02", "1/2/2006"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// Time returns the parsed timestamp of the transaction.
func (t Transaction) Time() (time.Time, bool) {
	return ParseDateTime(t.DateTime)
}

// MonthKey returns the YYYY-MM bucket of the transaction, or "" when the
// timestamp carries no recognizable year-month prefix.
func (t Transaction) MonthKey() string {
	if ts, ok := t.Time(); ok {
		return ts.Format("2006-01")
	}
	s := strings.TrimSpace(t.DateTime)
	if len(s) >= 7 && s[4] == '-' {
		if _, err := time.Parse("2006-01", s[:7]); err == nil {
			return s[:7]
		}
	}
	return ""
}

// Signed returns the amount with the sign implied by the kind.
func (t Transaction) Signed() float64 {
	if t.Kind == Income {
		return abs(t.Amount)
	}
	return -abs(t.Amount)
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.DateTime) == "" {
		return fmt.Errorf("%w: dateTime", ErrMissingField)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: type", ErrMissingField)
	}
	if t.Amount == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: cardName", ErrMissingField)
	}
	if strings.TrimSpace(c.Type) == "" {
		return fmt.Errorf("%w: cardType", ErrMissingField)
	}
	return nil
}

// WithDefaults fills the display fields a card may be created without.
func (c Card) WithDefaults() Card {
	c.Name = strings.TrimSpace(c.Name)
	if strings.TrimSpace(c.Type) == "" {
		c.Type = DefaultCardType
	}
	if strings.TrimSpace(c.Last4) == "" {
		c.Last4 = DefaultLast4
	}
	if strings.TrimSpace(c.Color) == "" {
		c.Color = DefaultCardColor
	}
	return c
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
