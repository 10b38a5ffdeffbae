// Package advisor answers free-text questions about a transaction set with a
// fixed table of keyword rules, and derives the dashboard insight cards.
package advisor

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"findash/internal/core"
)

// InvestmentSurplus is the surplus above which an investment tip is shown.
const InvestmentSurplus = 5000

// Insight types.
const (
	TypeWarning    = "warning"
	TypeSaving     = "saving"
	TypeInfo       = "info"
	TypeInvestment = "investment"
)

type Insight struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Respond answers query from txns. Rules are tried in order: a known
// category (optionally narrowed to a month of now's year), saving or
// investing, spending or budget, then a general summary. Bold markers are
// kept as **text**.
func Respond(query string, txns []core.Transaction, now time.Time) string {
	fold := cases.Fold()
	q := fold.String(query)

	if category, ok := mentionedCategory(q, txns); ok {
		return categoryAnswer(category, q, txns, now)
	}

	s := core.Summarize(txns)
	if strings.Contains(q, "invest") || strings.Contains(q, "save") {
		return fmt.Sprintf("Based on your current balance and habits:\n"+
			"- **Emergency Fund:** Keep at least %s in a high-interest savings account.\n"+
			"- **Mutual Funds:** Since you have a surplus of %s, consider an Index Fund SIP for consistent 12%% growth.\n"+
			"- **Fixed Deposits:** If you want 0 risk, current rates are around 7%% for 1-year terms.\n"+
			"Avoid overspending on non-essential categories (top: %s) to increase your monthly investment power.",
			core.FormatCurrency(s.TotalExpenses*3), core.FormatCurrency(s.Balance), TopCategory(txns))
	}

	if strings.Contains(q, "spend") || strings.Contains(q, "budget") {
		return fmt.Sprintf("You've been spending most on **%s**.\n\n"+
			"Checking your history, I recommend setting a monthly limit for this. "+
			"You could save roughly **15%% more** by switching to generic brands or reducing subscription frequencies.",
			TopCategory(txns))
	}

	return fmt.Sprintf("Hello! I'm your Financial Advisor. Currently, your total income is **%s** and expenses are **%s**.\n\n"+
		"How can I help you today? You can ask about specific categories (fuel, food), months, or investment tips!",
		core.FormatCurrency(s.TotalIncome), core.FormatCurrency(s.TotalExpenses))
}

// mentionedCategory returns the first category, in transaction order, that
// appears in the folded query.
func mentionedCategory(q string, txns []core.Transaction) (string, bool) {
	fold := cases.Fold()
	for _, c := range core.DistinctCategories(txns) {
		folded := fold.String(c)
		if folded != "" && strings.Contains(q, folded) {
			return folded, true
		}
	}
	return "", false
}

func categoryAnswer(category, q string, txns []core.Transaction, now time.Time) string {
	fold := cases.Fold()
	prefix, label := "", "overall"
	for i, m := range monthNames {
		if strings.Contains(q, m) {
			prefix = fmt.Sprintf("%04d-%02d", now.Year(), i+1)
			label = "in " + m
			break
		}
	}

	var matched []core.Transaction
	for _, t := range txns {
		if t.Kind != core.Expense || fold.String(t.Category) != category {
			continue
		}
		if prefix != "" && !strings.HasPrefix(t.DateTime, prefix) {
			continue
		}
		matched = append(matched, t)
	}

	if len(matched) == 0 {
		return fmt.Sprintf("I couldn't find any expenses for **%s** %s. Your records look clean in this area!", category, label)
	}
	total := core.TotalExpenses(matched)
	return fmt.Sprintf("I found **%d transactions** for **%s** %s. You've spent a total of **%s**.\n\n"+
		"Tip: to save on this, try to batch purchases or look for loyalty rewards.",
		len(matched), category, label, core.FormatCurrency(total))
}

// TopCategory names the expense category with the largest total, or "None".
func TopCategory(txns []core.Transaction) string {
	totals := core.CategoryTotals(txns)
	if len(totals) == 0 {
		return "None"
	}
	return totals[0].Category
}

// Insights derives the insight cards: spending ratio, top expense category
// and, when the surplus exceeds InvestmentSurplus, an investment tip.
func Insights(txns []core.Transaction) []Insight {
	s := core.Summarize(txns)
	ratio := 100.0
	if s.TotalIncome > 0 {
		ratio = s.TotalExpenses / s.TotalIncome * 100
	}

	insights := make([]Insight, 0, 3)
	if ratio > 80 {
		insights = append(insights, Insight{
			Type:  TypeWarning,
			Title: "High Spending Ratio",
			Text:  fmt.Sprintf("You've spent %.1f%% of your income this month. Consider cutting down on non-essentials.", ratio),
		})
	} else {
		insights = append(insights, Insight{
			Type:  TypeSaving,
			Title: "Healthy Savings",
			Text:  fmt.Sprintf("You've saved %.1f%% of your income. Great job!", 100-ratio),
		})
	}

	if totals := core.CategoryTotals(txns); len(totals) > 0 {
		top := totals[0]
		insights = append(insights, Insight{
			Type:  TypeInfo,
			Title: "Top Expense: " + top.Category,
			Text:  fmt.Sprintf("You spent %s on %s. Is this within budget?", core.FormatCurrency(top.Total), top.Category),
		})
	}

	if surplus := s.TotalIncome - s.TotalExpenses; surplus > InvestmentSurplus {
		insights = append(insights, Insight{
			Type:  TypeInvestment,
			Title: "Investment Opportunity",
			Text:  fmt.Sprintf("You have %s surplus. Consider a Monthly SIP in Index Funds for 12-15%% returns.", core.FormatCurrency(surplus)),
		})
	}
	return insights
}
