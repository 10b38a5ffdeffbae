package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RawTransaction holds transaction fields as they arrive from a sheet row or
// a JSON payload, before any typing or defaulting.
type RawTransaction struct {
	ID            any
	DateTime      any
	TransferredTo any
	Type          any
	Account       any
	Category      any
	Description   any
	Amount        any
}

// RawCard holds card fields before typing or defaulting.
type RawCard struct {
	Name           any
	Type           any
	Last4          any
	InitialBalance any
	Bank           any
	Color          any
}

// Column order of the FinanceData and Cards sheets.
const (
	colDateTime = iota
	colTransferredTo
	colType
	colAccount
	colCategory
	colDescription
	colAmount
	transactionColumns
)

const (
	colCardName = iota
	colCardType
	colLast4
	colInitialBalance
	colBank
	colColor
	cardColumns
)

var (
	TransactionHeaders = []string{"Date & Time", "Transferred To", "Income/Expense", "Account", "Category", "Description", "Amount"}
	CardHeaders        = []string{"Card Name", "Card Type", "Last 4 Digits", "Initial Balance", "Bank Name", "Color"}
	UserHeaders        = []string{"Username", "Password", "Email"}
)

// NormalizeKind maps any input containing "income" (any case) to Income and
// everything else to Expense.
func NormalizeKind(v any) Kind {
	if strings.Contains(strings.ToLower(CellString(v)), "income") {
		return Income
	}
	return Expense
}

// NormalizeTransaction produces the canonical record: trimmed strings,
// default category, unsigned amount.
func NormalizeTransaction(raw RawTransaction) Transaction {
	t := Transaction{
		ID:           CellString(raw.ID),
		DateTime:     CellString(raw.DateTime),
		Counterparty: CellString(raw.TransferredTo),
		Kind:         NormalizeKind(raw.Type),
		Account:      CellString(raw.Account),
		Category:     CellString(raw.Category),
		Description:  CellString(raw.Description),
		Amount:       abs(ParseAmount(raw.Amount)),
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	return t
}

// NormalizeCard produces the canonical card with display defaults applied.
func NormalizeCard(raw RawCard) Card {
	return Card{
		Name:           CellString(raw.Name),
		Type:           CellString(raw.Type),
		Last4:          CellString(raw.Last4),
		OpeningBalance: ParseAmount(raw.InitialBalance),
		Bank:           CellString(raw.Bank),
		Color:          CellString(raw.Color),
	}.WithDefaults()
}

// TransactionFromRow maps a FinanceData row. ok is false for rows with
// neither a timestamp nor an amount.
func TransactionFromRow(row []any) (Transaction, bool) {
	if CellString(cell(row, colDateTime)) == "" && CellString(cell(row, colAmount)) == "" {
		return Transaction{}, false
	}
	return NormalizeTransaction(RawTransaction{
		DateTime:      cell(row, colDateTime),
		TransferredTo: cell(row, colTransferredTo),
		Type:          cell(row, colType),
		Account:       cell(row, colAccount),
		Category:      cell(row, colCategory),
		Description:   cell(row, colDescription),
		Amount:        cell(row, colAmount),
	}), true
}

// CardFromRow maps a Cards row. ok is false for rows without a name.
func CardFromRow(row []any) (Card, bool) {
	if CellString(cell(row, colCardName)) == "" {
		return Card{}, false
	}
	return NormalizeCard(RawCard{
		Name:           cell(row, colCardName),
		Type:           cell(row, colCardType),
		Last4:          cell(row, colLast4),
		InitialBalance: cell(row, colInitialBalance),
		Bank:           cell(row, colBank),
		Color:          cell(row, colColor),
	}), true
}

// TransactionRow is the inverse of TransactionFromRow.
func TransactionRow(t Transaction) []any {
	row := make([]any, transactionColumns)
	row[colDateTime] = t.DateTime
	row[colTransferredTo] = t.Counterparty
	row[colType] = string(t.Kind)
	row[colAccount] = t.Account
	row[colCategory] = t.Category
	row[colDescription] = t.Description
	row[colAmount] = t.Amount
	return row
}

// CardRow is the inverse of CardFromRow.
func CardRow(c Card) []any {
	row := make([]any, cardColumns)
	row[colCardName] = c.Name
	row[colCardType] = c.Type
	row[colLast4] = c.Last4
	row[colInitialBalance] = c.OpeningBalance
	row[colBank] = c.Bank
	row[colColor] = c.Color
	return row
}

// SortNewestFirst orders transactions by parsed timestamp, newest first.
// Unparsable timestamps sort last; equal keys keep their input order.
func SortNewestFirst(txns []Transaction) {
	times := make(map[int]time.Time, len(txns))
	idx := make([]int, len(txns))
	for i := range txns {
		idx[i] = i
		if ts, ok := txns[i].Time(); ok {
			times[i] = ts
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, oka := times[idx[a]]
		tb, okb := times[idx[b]]
		switch {
		case oka && okb:
			return ta.After(tb)
		case oka:
			return true
		default:
			return false
		}
	})
	sorted := make([]Transaction, len(txns))
	for i, j := range idx {
		sorted[i] = txns[j]
	}
	copy(txns, sorted)
}

// CellString renders a loosely typed cell as a trimmed string.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(DateTimeLayout)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}
