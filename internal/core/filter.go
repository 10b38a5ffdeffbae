package core

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// FilterCriteria is a set of optional predicates. Empty strings and nil
// bounds mean no constraint on that field.
type FilterCriteria struct {
	Kind         Kind
	Account      string
	Category     string
	Counterparty string
	Query        string
	AmountMin    *float64
	AmountMax    *float64
	DateStart    string
	DateEnd      string
}

func (c FilterCriteria) IsEmpty() bool {
	return c.Kind == "" && c.Account == "" && c.Category == "" && c.Counterparty == "" &&
		strings.TrimSpace(c.Query) == "" && c.AmountMin == nil && c.AmountMax == nil &&
		strings.TrimSpace(c.DateStart) == "" && strings.TrimSpace(c.DateEnd) == ""
}

type predicate func(Transaction) bool

// Filter returns the transactions matching every active criterion, in input
// order. The result never aliases the input.
func Filter(txns []Transaction, c FilterCriteria) []Transaction {
	preds := c.predicates()
	out := make([]Transaction, 0, len(txns))
next:
	for _, t := range txns {
		for _, p := range preds {
			if !p(t) {
				continue next
			}
		}
		out = append(out, t)
	}
	return out
}

func (c FilterCriteria) predicates() []predicate {
	var preds []predicate
	if c.Kind != "" {
		kind := c.Kind
		preds = append(preds, func(t Transaction) bool { return t.Kind == kind })
	}
	if c.Account != "" {
		account := c.Account
		preds = append(preds, func(t Transaction) bool { return t.Account == account })
	}
	if c.Category != "" {
		category := c.Category
		preds = append(preds, func(t Transaction) bool { return t.Category == category })
	}
	if c.Counterparty != "" {
		who := c.Counterparty
		preds = append(preds, func(t Transaction) bool { return t.Counterparty == who })
	}
	if q := strings.TrimSpace(c.Query); q != "" {
		fold := cases.Fold()
		needle := fold.String(q)
		preds = append(preds, func(t Transaction) bool {
			return strings.Contains(fold.String(t.Description), needle) ||
				strings.Contains(fold.String(t.Counterparty), needle) ||
				strings.Contains(fold.String(t.Category), needle)
		})
	}
	if c.AmountMin != nil {
		lo := *c.AmountMin
		preds = append(preds, func(t Transaction) bool { return abs(t.Amount) >= lo })
	}
	if c.AmountMax != nil {
		hi := *c.AmountMax
		preds = append(preds, func(t Transaction) bool { return abs(t.Amount) <= hi })
	}
	if start, ok := ParseDateTime(c.DateStart); ok {
		preds = append(preds, func(t Transaction) bool {
			ts, ok := t.Time()
			return ok && !ts.Before(start)
		})
	}
	if end, ok := ParseDateTime(c.DateEnd); ok {
		if IsDateOnly(c.DateEnd) {
			// A bare end date includes the whole day.
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		preds = append(preds, func(t Transaction) bool {
			ts, ok := t.Time()
			return ok && !ts.After(end)
		})
	}
	return preds
}
