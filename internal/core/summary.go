package core

import (
	"sort"
	"time"
)

type (
	Summary struct {
		TotalIncome   float64
		TotalExpenses float64
		Balance       float64
		Count         int
	}

	CardBalanceView struct {
		Card
		Balance          float64
		Spent            float64
		Received         float64
		TransactionCount int
	}

	MonthBucket struct {
		Key     string // YYYY-MM
		Label   string // short month name
		Income  float64
		Expense float64
	}

	CategoryTotal struct {
		Category string
		Total    float64
	}

	RecipientCount struct {
		Counterparty string
		Count        int
		Total        float64
	}
)

func TotalIncome(txns []Transaction) float64 {
	var s sum
	for _, t := range txns {
		if t.Kind == Income {
			s.add(abs(t.Amount))
		}
	}
	return s.value()
}

func TotalExpenses(txns []Transaction) float64 {
	var s sum
	for _, t := range txns {
		if t.Kind != Income {
			s.add(abs(t.Amount))
		}
	}
	return s.value()
}

// Balance is total income minus total expenses.
func Balance(txns []Transaction) float64 {
	var s sum
	for _, t := range txns {
		if t.Kind == Income {
			s.add(abs(t.Amount))
		} else {
			s.sub(abs(t.Amount))
		}
	}
	return s.value()
}

func Summarize(txns []Transaction) Summary {
	return Summary{
		TotalIncome:   TotalIncome(txns),
		TotalExpenses: TotalExpenses(txns),
		Balance:       Balance(txns),
		Count:         len(txns),
	}
}

// CardBalance is the opening balance plus income minus expenses recorded on
// the account named like the card.
func CardBalance(card Card, txns []Transaction) float64 {
	return cardView(card, txns).Balance
}

func CardBalances(cards []Card, txns []Transaction) []CardBalanceView {
	out := make([]CardBalanceView, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardView(c, txns))
	}
	return out
}

func cardView(card Card, txns []Transaction) CardBalanceView {
	var bal, spent, received sum
	bal.add(card.OpeningBalance)
	n := 0
	for _, t := range txns {
		if t.Account != card.Name {
			continue
		}
		n++
		if t.Kind == Income {
			bal.add(abs(t.Amount))
			received.add(abs(t.Amount))
		} else {
			bal.sub(abs(t.Amount))
			spent.add(abs(t.Amount))
		}
	}
	return CardBalanceView{
		Card:             card,
		Balance:          bal.value(),
		Spent:            spent.value(),
		Received:         received.value(),
		TransactionCount: n,
	}
}

// MonthlySeries buckets income and expense for the n calendar months ending
// with the month of now, oldest first. Every month is present.
func MonthlySeries(txns []Transaction, n int, now time.Time) []MonthBucket {
	if n <= 0 {
		return []MonthBucket{}
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	keys := make(map[string]int, n)
	income := make([]sum, n)
	expense := make([]sum, n)
	buckets := make([]MonthBucket, n)
	for i := 0; i < n; i++ {
		m := first.AddDate(0, i-(n-1), 0)
		buckets[i] = MonthBucket{Key: m.Format("2006-01"), Label: m.Format("Jan")}
		keys[buckets[i].Key] = i
	}
	for _, t := range txns {
		i, ok := keys[t.MonthKey()]
		if !ok {
			continue
		}
		if t.Kind == Income {
			income[i].add(abs(t.Amount))
		} else {
			expense[i].add(abs(t.Amount))
		}
	}
	for i := range buckets {
		buckets[i].Income = income[i].value()
		buckets[i].Expense = expense[i].value()
	}
	return buckets
}

// CategoryTotals sums expenses per category, largest first. Ties keep the
// order in which categories were first seen.
func CategoryTotals(txns []Transaction) []CategoryTotal {
	index := map[string]int{}
	var order []string
	var sums []sum
	for _, t := range txns {
		if t.Kind == Income {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(order)
			index[t.Category] = i
			order = append(order, t.Category)
			sums = append(sums, sum{})
		}
		sums[i].add(abs(t.Amount))
	}
	out := make([]CategoryTotal, len(order))
	for i, c := range order {
		out[i] = CategoryTotal{Category: c, Total: sums[i].value()}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Total > out[b].Total })
	return out
}

// TopRecipients counts transactions per counterparty, most frequent first,
// ties in first-seen order. Empty counterparties are ignored and limit <= 0
// returns every counterparty.
func TopRecipients(txns []Transaction, limit int) []RecipientCount {
	index := map[string]int{}
	var out []RecipientCount
	var totals []sum
	for _, t := range txns {
		if t.Counterparty == "" {
			continue
		}
		i, ok := index[t.Counterparty]
		if !ok {
			i = len(out)
			index[t.Counterparty] = i
			out = append(out, RecipientCount{Counterparty: t.Counterparty})
			totals = append(totals, sum{})
		}
		out[i].Count++
		totals[i].add(abs(t.Amount))
	}
	for i := range out {
		out[i].Total = totals[i].value()
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []RecipientCount{}
	}
	return out
}

// DistinctAccounts lists account labels in first-seen order.
func DistinctAccounts(txns []Transaction) []string {
	return distinct(txns, func(t Transaction) string { return t.Account })
}

// DistinctCategories lists categories in first-seen order.
func DistinctCategories(txns []Transaction) []string {
	return distinct(txns, func(t Transaction) string { return t.Category })
}

func distinct(txns []Transaction, key func(Transaction) string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range txns {
		k := key(t)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
