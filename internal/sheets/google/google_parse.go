package google

import (
	"strings"

	"findash/internal/core"
	ports "findash/internal/sheets"
)

// parseSnapshot maps raw sheet rows to domain records. A leading header row
// is skipped, as are rows the core mappers reject.
func parseSnapshot(txnRows, cardRows [][]interface{}) ports.Snapshot {
	snap := ports.Snapshot{
		Transactions: make([]core.Transaction, 0, len(txnRows)),
		Cards:        make([]core.Card, 0, len(cardRows)),
	}
	for i, row := range txnRows {
		if i == 0 && isHeaderRow(row, core.TransactionHeaders) {
			continue
		}
		if t, ok := core.TransactionFromRow(row); ok {
			snap.Transactions = append(snap.Transactions, t)
		}
	}
	for i, row := range cardRows {
		if i == 0 && isHeaderRow(row, core.CardHeaders) {
			continue
		}
		if c, ok := core.CardFromRow(row); ok {
			snap.Cards = append(snap.Cards, c)
		}
	}
	core.SortNewestFirst(snap.Transactions)
	return snap
}

func isHeaderRow(row []interface{}, headers []string) bool {
	if len(row) == 0 {
		return false
	}
	return isHeader(core.CellString(row[0]), headers)
}

func isHeader(first string, headers []string) bool {
	return len(headers) > 0 && strings.EqualFold(strings.TrimSpace(first), headers[0])
}

// findRow returns the 0-based sheet row of the first exact match in a first
// column, or -1. Row 0 is skipped only when it is the headers row, matching
// parseSnapshot.
func findRow(names []string, name string, headers []string) int {
	for i, n := range names {
		if i == 0 && isHeader(n, headers) {
			continue
		}
		if n == name {
			return i
		}
	}
	return -1
}

func firstColumn(rows [][]interface{}) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = core.CellString(cellAt(row, 0))
	}
	return out
}

func cellAt(row []interface{}, i int) interface{} {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}
