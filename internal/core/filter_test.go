package core

import (
	"reflect"
	"testing"
)

func ptr(f float64) *float64 { return &f }

func sampleTxns() []Transaction {
	return []Transaction{
		{ID: "1", DateTime: "2024-01-10 09:00:00", Counterparty: "Swiggy", Kind: Expense, Account: "HDFC Credit", Category: "Food", Description: "Lunch", Amount: 450},
		{ID: "2", DateTime: "2024-01-12 18:30:00", Counterparty: "Employer", Kind: Income, Account: "HDFC Savings", Category: "Salary", Description: "January pay", Amount: 50000},
		{ID: "3", DateTime: "2024-01-20 20:00:00", Counterparty: "Amazon", Kind: Expense, Account: "SBI Debit", Category: "Shopping", Description: "Headphones", Amount: 2500},
		{ID: "4", DateTime: "not a date", Counterparty: "Zomato", Kind: Expense, Account: "HDFC Credit", Category: "Food", Description: "Dinner", Amount: 850},
		{ID: "5", DateTime: "2024-02-01 08:00:00", Counterparty: "", Kind: Expense, Account: "SBI Debit", Category: "Bills", Description: "Straße tax", Amount: 1200},
	}
}

func ids(txns []Transaction) []string {
	out := []string{}
	for _, t := range txns {
		out = append(out, t.ID)
	}
	return out
}

func TestFilterIdentityAndIdempotence(t *testing.T) {
	txns := sampleTxns()
	got := Filter(txns, FilterCriteria{})
	if !reflect.DeepEqual(got, txns) {
		t.Fatalf("empty criteria must return input unchanged")
	}
	c := FilterCriteria{Kind: Expense, Query: "d"}
	once := Filter(txns, c)
	twice := Filter(once, c)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("filter not idempotent: %v vs %v", ids(once), ids(twice))
	}
}

func TestFilterDoesNotAliasInput(t *testing.T) {
	txns := sampleTxns()
	got := Filter(txns, FilterCriteria{})
	got[0].ID = "changed"
	if txns[0].ID != "1" {
		t.Fatal("filter result aliases input")
	}
}

func TestFilterPredicates(t *testing.T) {
	tests := []struct {
		name string
		c    FilterCriteria
		want []string
	}{
		{"kind", FilterCriteria{Kind: Income}, []string{"2"}},
		{"account", FilterCriteria{Account: "HDFC Credit"}, []string{"1", "4"}},
		{"category", FilterCriteria{Category: "Food"}, []string{"1", "4"}},
		{"counterparty", FilterCriteria{Counterparty: "Amazon"}, []string{"3"}},
		{"query matches category case-insensitively", FilterCriteria{Query: "food"}, []string{"1", "4"}},
		{"query matches counterparty", FilterCriteria{Query: "SWIG"}, []string{"1"}},
		{"query matches description", FilterCriteria{Query: "headphones"}, []string{"3"}},
		{"query folds unicode", FilterCriteria{Query: "STRAßE"}, []string{"5"}},
		{"amount min inclusive", FilterCriteria{AmountMin: ptr(850)}, []string{"2", "3", "4", "5"}},
		{"amount max inclusive", FilterCriteria{AmountMax: ptr(850)}, []string{"1", "4"}},
		{"amount range", FilterCriteria{AmountMin: ptr(500), AmountMax: ptr(2500)}, []string{"3", "4", "5"}},
		{"date start", FilterCriteria{DateStart: "2024-01-12 18:30:00"}, []string{"2", "3", "5"}},
		{"date end covers whole day", FilterCriteria{DateEnd: "2024-01-20"}, []string{"1", "2", "3"}},
		{"date range", FilterCriteria{DateStart: "2024-01-11", DateEnd: "2024-01-31"}, []string{"2", "3"}},
		{"unparsable start is no constraint", FilterCriteria{DateStart: "soon"}, []string{"1", "2", "3", "4", "5"}},
		{"unparsable end is no constraint", FilterCriteria{DateEnd: "31/31/2024", Kind: Income}, []string{"2"}},
		{"conjunction", FilterCriteria{Kind: Expense, Account: "SBI Debit", Query: "tax"}, []string{"5"}},
		{"no match", FilterCriteria{Category: "Travel"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(sampleTxns(), tt.c))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterCriteriaIsEmpty(t *testing.T) {
	if !(FilterCriteria{Query: "  "}).IsEmpty() {
		t.Fatal("blank query should count as empty")
	}
	if (FilterCriteria{AmountMin: ptr(0)}).IsEmpty() {
		t.Fatal("zero lower bound is still a constraint")
	}
}
