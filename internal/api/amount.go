package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"findash/internal/core"
)

// Amount is a money field that arrives as a JSON number or as a formatted
// string such as "₹1,234.50". It always encodes as a number.
type Amount struct {
	Value float64
	// Raw holds the original text when the field was a JSON string.
	Raw string
	// Present is false for absent, null or blank fields.
	Present bool
}

// NewAmount returns a present amount holding f.
func NewAmount(f float64) *Amount {
	return &Amount{Value: f, Present: true}
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = Amount{}
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		a.Raw = s
		a.Present = strings.TrimSpace(s) != ""
		a.Value = core.ParseAmount(s)
		return nil
	case b[0] == 't' || b[0] == 'f':
		// Spreadsheet cells occasionally hold booleans.
		return nil
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return fmt.Errorf("amount %s: %w", b, core.ErrInvalidAmount)
		}
		a.Value = f
		a.Present = true
		return nil
	}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Value)
}

// Strict returns the amount for a mutation. Strings must be a plain number
// apart from currency symbols and separators.
func (a *Amount) Strict() (float64, error) {
	if a == nil || !a.Present {
		return 0, core.ErrMissingField
	}
	if a.Raw != "" {
		return core.ParseAmountStrict(a.Raw)
	}
	return a.Value, nil
}
