// Package render draws dashboard views as terminal text.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"findash/internal/advisor"
	"findash/internal/core"
	"findash/internal/session"
)

// barWidth is the length of the longest bar in the monthly chart.
const barWidth = 30

type palette struct {
	accent, muted, income, expense, warning, border lipgloss.Color
}

var (
	lightPalette = palette{
		accent:  "#667eea",
		muted:   "#6b7280",
		income:  "#059669",
		expense: "#dc2626",
		warning: "#d97706",
		border:  "#9ca3af",
	}
	darkPalette = palette{
		accent:  "#89b4fa",
		muted:   "#7f849c",
		income:  "#a6e3a1",
		expense: "#f38ba8",
		warning: "#f9e2af",
		border:  "#585b70",
	}
)

type styles struct {
	title, label, muted, income, expense, warning, box, header, cell, border lipgloss.Style
}

// Renderer formats views for one output. Colors are dropped when w is not
// a terminal.
type Renderer struct {
	s styles
}

// New returns a renderer for w using the named theme. Unknown themes fall
// back to light.
func New(w io.Writer, theme string) *Renderer {
	r := lipgloss.NewRenderer(w)
	p := lightPalette
	if theme == session.ThemeDark {
		p = darkPalette
	}
	return &Renderer{s: styles{
		title:   r.NewStyle().Foreground(p.accent).Bold(true),
		label:   r.NewStyle().Foreground(p.muted),
		muted:   r.NewStyle().Foreground(p.muted).Italic(true),
		income:  r.NewStyle().Foreground(p.income),
		expense: r.NewStyle().Foreground(p.expense),
		warning: r.NewStyle().Foreground(p.warning).Bold(true),
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 2),
		header:  r.NewStyle().Foreground(p.accent).Bold(true).Padding(0, 1),
		cell:    r.NewStyle().Padding(0, 1),
		border:  r.NewStyle().Foreground(p.border),
	}}
}

// amount renders a transaction's signed amount; income carries a plus.
func (r *Renderer) amount(t core.Transaction) string {
	v := t.Signed()
	if v < 0 {
		return r.s.expense.Render(core.FormatCurrency(v))
	}
	return r.s.income.Render("+" + core.FormatCurrency(v))
}

func (r *Renderer) signed(v float64) string {
	if v < 0 {
		return r.s.expense.Render(core.FormatCurrency(v))
	}
	return r.s.income.Render(core.FormatCurrency(v))
}

func (r *Renderer) table(headers []string, rows [][]string, right ...int) string {
	alignRight := make(map[int]bool, len(right))
	for _, c := range right {
		alignRight[c] = true
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.s.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			st := r.s.cell
			if row == table.HeaderRow {
				st = r.s.header
			}
			if alignRight[col] {
				st = st.Align(lipgloss.Right)
			}
			return st
		})
	return t.String()
}

func (r *Renderer) empty(msg string) string {
	return r.s.muted.Render(msg)
}

// Warning renders a notice such as a degraded refresh.
func (r *Renderer) Warning(msg string) string {
	return r.s.warning.Render("! " + msg)
}

// Summary renders the income, expense and balance totals.
func (r *Renderer) Summary(s core.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", r.s.label.Render("Total Income:  "), r.s.income.Render(core.FormatCurrency(s.TotalIncome)))
	fmt.Fprintf(&b, "%s %s\n", r.s.label.Render("Total Expenses:"), r.s.expense.Render(core.FormatCurrency(s.TotalExpenses)))
	fmt.Fprintf(&b, "%s %s\n", r.s.label.Render("Balance:       "), r.signed(s.Balance))
	fmt.Fprintf(&b, "%s %d", r.s.label.Render("Transactions:  "), s.Count)
	return lipgloss.JoinVertical(lipgloss.Left, r.s.title.Render("Overview"), r.s.box.Render(b.String()))
}

// Transactions renders a transaction table in the given order.
func (r *Renderer) Transactions(txns []core.Transaction) string {
	if len(txns) == 0 {
		return r.empty("No transactions found")
	}
	rows := make([][]string, 0, len(txns))
	for _, t := range txns {
		desc := t.Description
		if desc == "" {
			desc = "-"
		}
		rows = append(rows, []string{
			t.DateTime, t.Counterparty, string(t.Kind), t.Account, t.Category, desc,
			r.amount(t),
		})
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		r.table([]string{"Date & Time", "To/From", "Type", "Account", "Category", "Description", "Amount"}, rows, 6),
		r.s.label.Render(fmt.Sprintf("Found %d transactions", len(txns))),
	)
}

// Cards renders each card with its derived balance.
func (r *Renderer) Cards(cards []core.CardBalanceView) string {
	if len(cards) == 0 {
		return r.empty("No cards yet")
	}
	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, []string{
			c.Name, c.Type, "**** " + c.Last4, c.Bank,
			core.FormatCurrency(c.OpeningBalance),
			r.s.income.Render(core.FormatCurrency(c.Received)),
			r.s.expense.Render(core.FormatCurrency(c.Spent)),
			r.signed(c.Balance),
			strconv.Itoa(c.TransactionCount),
		})
	}
	return r.table([]string{"Card", "Type", "Number", "Bank", "Opening", "Received", "Spent", "Balance", "Txns"}, rows, 4, 5, 6, 7, 8)
}

// Monthly renders income and expense bars per month, scaled to the largest
// value in the series.
func (r *Renderer) Monthly(months []core.MonthBucket) string {
	peak := 0.0
	for _, m := range months {
		peak = max(peak, m.Income, m.Expense)
	}
	bar := func(v float64) string {
		if peak == 0 || v <= 0 {
			return ""
		}
		return strings.Repeat("█", max(1, int(v/peak*barWidth+0.5)))
	}

	lines := []string{r.s.title.Render("Income vs Expenses")}
	for _, m := range months {
		label := m.Label
		if year, _, ok := strings.Cut(m.Key, "-"); ok {
			label = fmt.Sprintf("%-4s %s", m.Label, year)
		}
		lines = append(lines,
			fmt.Sprintf("%s %s %s", r.s.label.Render(label), r.s.income.Render(bar(m.Income)), core.FormatCurrency(m.Income)),
			fmt.Sprintf("%s %s %s", strings.Repeat(" ", lipgloss.Width(label)), r.s.expense.Render(bar(m.Expense)), core.FormatCurrency(m.Expense)),
		)
	}
	return strings.Join(lines, "\n")
}

// Categories renders expense totals per category with their share.
func (r *Renderer) Categories(totals []core.CategoryTotal) string {
	if len(totals) == 0 {
		return r.empty("No expenses yet")
	}
	var sum float64
	for _, c := range totals {
		sum += c.Total
	}
	rows := make([][]string, 0, len(totals))
	for _, c := range totals {
		share := 0.0
		if sum > 0 {
			share = c.Total / sum * 100
		}
		rows = append(rows, []string{c.Category, core.FormatCurrency(c.Total), fmt.Sprintf("%.1f%%", share)})
	}
	return r.table([]string{"Category", "Spent", "Share"}, rows, 1, 2)
}

// Recipients renders the most frequent counterparties.
func (r *Renderer) Recipients(top []core.RecipientCount) string {
	if len(top) == 0 {
		return r.empty("No recipients yet")
	}
	rows := make([][]string, 0, len(top))
	for _, rc := range top {
		rows = append(rows, []string{rc.Counterparty, strconv.Itoa(rc.Count), core.FormatCurrency(rc.Total)})
	}
	return r.table([]string{"Recipient", "Transactions", "Total"}, rows, 1, 2)
}

// Insights renders one boxed paragraph per insight.
func (r *Renderer) Insights(insights []advisor.Insight) string {
	if len(insights) == 0 {
		return r.empty("No insights yet")
	}
	blocks := make([]string, 0, len(insights))
	for _, in := range insights {
		title := r.s.title
		if in.Type == advisor.TypeWarning {
			title = r.s.warning
		}
		blocks = append(blocks, r.s.box.Render(title.Render(in.Title)+"\n"+Markdown(in.Text)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

// Answer renders an advisor reply.
func (r *Renderer) Answer(text string) string {
	return r.s.box.Render(Markdown(text))
}

// Markdown strips the bold markers advisor text carries.
func Markdown(s string) string {
	return strings.ReplaceAll(s, "**", "")
}
