package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"findash/internal/core"
	"findash/internal/sheets"
)

func TestFetchResponseEmptySlices(t *testing.T) {
	b, err := json.Marshal(NewFetchResponse(sheets.Snapshot{}))
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"transactions":[]`, `"cards":[]`, `"transactionCount":0`, `"success":true`} {
		if !strings.Contains(s, want) {
			t.Errorf("%s missing %s", s, want)
		}
	}
	if strings.Contains(s, `"error"`) {
		t.Errorf("successful response carries error: %s", s)
	}
}

func TestFetchResponseSnapshot(t *testing.T) {
	body := `{
		"success": true,
		"transactions": [
			{"dateTime":"2024-01-01 10:00:00","transferredTo":" Shop ","type":"expense","amount":"₹-250"},
			{"dateTime":"","amount":null},
			{"dateTime":"2024-02-01 10:00:00","type":"Income","category":"Salary","amount":1000}
		],
		"cards": [
			{"cardName":"Visa","cardType":"Credit","initialBalance":"5,000"},
			{"cardName":""}
		]
	}`
	var resp FetchResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}
	snap := resp.Snapshot()
	if len(snap.Transactions) != 2 || len(snap.Cards) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	newest, older := snap.Transactions[0], snap.Transactions[1]
	if newest.Kind != core.Income || newest.Amount != 1000 {
		t.Errorf("newest = %+v", newest)
	}
	if older.Counterparty != "Shop" || older.Amount != 250 || older.Kind != core.Expense || older.Category != core.DefaultCategory {
		t.Errorf("older = %+v", older)
	}
	card := snap.Cards[0]
	if card.OpeningBalance != 5000 || card.Last4 != core.DefaultLast4 || card.Color != core.DefaultCardColor {
		t.Errorf("card = %+v", card)
	}
}

func TestTransactionsView(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	all := core.DemoTransactions(now)
	v := NewTransactionsView(all, core.FilterCriteria{Kind: core.Income})
	if len(v.Transactions) == 0 || v.Summary.TotalExpenses != 0 {
		t.Fatalf("income filter view = %+v", v.Summary)
	}
	for _, tx := range v.Transactions {
		if tx.Type != string(core.Income) {
			t.Fatalf("non-income row %+v", tx)
		}
	}
	if len(v.Accounts) == 0 || len(v.Categories) == 0 {
		t.Fatal("option lists should come from the unfiltered set")
	}
	if v.Summary.Formatted.TotalIncome != core.FormatCurrency(v.Summary.TotalIncome) {
		t.Errorf("formatted income = %q", v.Summary.Formatted.TotalIncome)
	}

	empty := NewTransactionsView(nil, core.FilterCriteria{})
	if empty.Transactions == nil || empty.Accounts == nil || empty.Categories == nil {
		t.Fatal("empty view should encode lists as []")
	}
}

func TestCardBalancesView(t *testing.T) {
	cards := []core.Card{{Name: "Wallet", Type: "Wallet", OpeningBalance: 100}}
	txns := []core.Transaction{
		{DateTime: "2024-01-01 10:00:00", Kind: core.Expense, Account: "Wallet", Amount: 30},
		{DateTime: "2024-01-02 10:00:00", Kind: core.Income, Account: "Wallet", Amount: 5},
	}
	got := NewCardBalances(cards, txns)
	if len(got) != 1 || got[0].Balance != 75 || got[0].CardName != "Wallet" || got[0].TransactionCount != 2 {
		t.Fatalf("balances = %+v", got)
	}
}
