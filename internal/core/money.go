package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ParseAmount converts a loosely typed cell into a number. Strings have every
// rune other than digits, '-' and '.' removed and the longest leading numeric
// literal of the remainder is used, so "₹1,234.50" is 1234.5 and "12-34" is 12.
// Anything unparsable yields 0.
func ParseAmount(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case json.Number:
		return parseAmountString(x.String())
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	case string:
		return parseAmountString(x)
	case bool:
		return 0
	default:
		return parseAmountString(fmt.Sprint(x))
	}
}

// ParseAmountStrict parses user input for mutations. Currency symbols, spaces
// and thousands separators are accepted; anything else is an error.
func ParseAmountStrict(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', ' ', '₹', '$', '€', '£':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	f, _ := d.Float64()
	return f, nil
}

func parseAmountString(s string) float64 {
	stripped := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' || r == '.' {
			return r
		}
		return -1
	}, s)
	lit := leadingNumber(stripped)
	if lit == "" {
		return 0
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

// leadingNumber returns the longest prefix of s of the form -?digits[.digits]
// containing at least one digit.
func leadingNumber(s string) string {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if digits+frac > 0 {
			if frac > 0 {
				i = j
			}
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}
	return strings.TrimSuffix(s[:i], ".")
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// sum adds magnitudes exactly in decimal and returns the float result.
type sum struct {
	d decimal.Decimal
}

func (s *sum) add(f float64) {
	s.d = s.d.Add(decimal.NewFromFloat(f))
}

func (s *sum) sub(f float64) {
	s.d = s.d.Sub(decimal.NewFromFloat(f))
}

func (s sum) value() float64 {
	f, _ := s.d.Float64()
	return f
}

var currencyPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatCurrency renders an amount in rupees with Indian digit grouping and at
// most two fraction digits, e.g. "₹1,00,000" or "-₹450.5".
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + "₹" + currencyPrinter.Sprintf("%v", number.Decimal(amount, number.MaxFractionDigits(2)))
}
