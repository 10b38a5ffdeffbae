package api

import (
	"time"

	"findash/internal/core"
)

// Read-only views computed from a snapshot.
type (
	SummaryView struct {
		TotalIncome   float64 `json:"totalIncome"`
		TotalExpenses float64 `json:"totalExpenses"`
		Balance       float64 `json:"balance"`
		Count         int     `json:"count"`
		Formatted     struct {
			TotalIncome   string `json:"totalIncome"`
			TotalExpenses string `json:"totalExpenses"`
			Balance       string `json:"balance"`
		} `json:"formatted"`
	}

	CardBalanceDTO struct {
		CardDTO
		Balance          float64 `json:"balance"`
		Spent            float64 `json:"spent"`
		Received         float64 `json:"received"`
		TransactionCount int     `json:"transactionCount"`
	}

	MonthDTO struct {
		Key     string  `json:"key"`
		Label   string  `json:"label"`
		Income  float64 `json:"income"`
		Expense float64 `json:"expense"`
	}

	CategoryDTO struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
	}

	RecipientDTO struct {
		Counterparty string  `json:"counterparty"`
		Count        int     `json:"count"`
		Total        float64 `json:"total"`
	}

	// TransactionsView is a filtered transaction list with its totals.
	TransactionsView struct {
		Transactions []TransactionDTO `json:"transactions"`
		Summary      SummaryView      `json:"summary"`
		Accounts     []string         `json:"accounts"`
		Categories   []string         `json:"categories"`
	}
)

func NewSummaryView(s core.Summary) SummaryView {
	v := SummaryView{
		TotalIncome:   s.TotalIncome,
		TotalExpenses: s.TotalExpenses,
		Balance:       s.Balance,
		Count:         s.Count,
	}
	v.Formatted.TotalIncome = core.FormatCurrency(s.TotalIncome)
	v.Formatted.TotalExpenses = core.FormatCurrency(s.TotalExpenses)
	v.Formatted.Balance = core.FormatCurrency(s.Balance)
	return v
}

// NewTransactionsView filters all and summarizes the result. The account
// and category option lists come from the unfiltered set.
func NewTransactionsView(all []core.Transaction, c core.FilterCriteria) TransactionsView {
	filtered := core.Filter(all, c)
	v := TransactionsView{
		Transactions: make([]TransactionDTO, 0, len(filtered)),
		Summary:      NewSummaryView(core.Summarize(filtered)),
		Accounts:     nonNil(core.DistinctAccounts(all)),
		Categories:   nonNil(core.DistinctCategories(all)),
	}
	for _, t := range filtered {
		v.Transactions = append(v.Transactions, TransactionFromCore(t))
	}
	return v
}

func NewCardBalances(cards []core.Card, txns []core.Transaction) []CardBalanceDTO {
	views := core.CardBalances(cards, txns)
	out := make([]CardBalanceDTO, 0, len(views))
	for _, v := range views {
		out = append(out, CardBalanceDTO{
			CardDTO:          CardFromCore(v.Card),
			Balance:          v.Balance,
			Spent:            v.Spent,
			Received:         v.Received,
			TransactionCount: v.TransactionCount,
		})
	}
	return out
}

func NewMonthlySeries(txns []core.Transaction, months int, now time.Time) []MonthDTO {
	buckets := core.MonthlySeries(txns, months, now)
	out := make([]MonthDTO, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, MonthDTO{Key: b.Key, Label: b.Label, Income: b.Income, Expense: b.Expense})
	}
	return out
}

func NewCategoryTotals(txns []core.Transaction) []CategoryDTO {
	totals := core.CategoryTotals(txns)
	out := make([]CategoryDTO, 0, len(totals))
	for _, c := range totals {
		out = append(out, CategoryDTO{Category: c.Category, Total: c.Total})
	}
	return out
}

func NewTopRecipients(txns []core.Transaction, limit int) []RecipientDTO {
	top := core.TopRecipients(txns, limit)
	out := make([]RecipientDTO, 0, len(top))
	for _, r := range top {
		out = append(out, RecipientDTO{Counterparty: r.Counterparty, Count: r.Count, Total: r.Total})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
