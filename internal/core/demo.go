package core

import "time"

// DemoTransactions returns the bundled offline dataset, timestamped relative
// to now and ordered newest first.
func DemoTransactions(now time.Time) []Transaction {
	at := func(d time.Duration) string { return now.Add(-d).Format(DateTimeLayout) }
	day := 24 * time.Hour
	return []Transaction{
		{DateTime: at(time.Hour), Counterparty: "Salary Account", Kind: Income, Account: "HDFC Savings", Category: "Salary", Description: "Monthly Salary", Amount: 50000},
		{DateTime: at(5 * time.Hour), Counterparty: "Swiggy", Kind: Expense, Account: "HDFC Credit", Category: "Food", Description: "Lunch Order", Amount: 450},
		{DateTime: at(day), Counterparty: "Amazon", Kind: Expense, Account: "SBI Debit", Category: "Shopping", Description: "Electronics", Amount: 2500},
		{DateTime: at(2 * day), Counterparty: "Reliance Energy", Kind: Expense, Account: "HDFC Savings", Category: "Bills", Description: "Electricity Bill", Amount: 1850},
		{DateTime: at(3 * day), Counterparty: "Uber", Kind: Expense, Account: "Paytm Wallet", Category: "Transport", Description: "Cab Fare", Amount: 320},
		{DateTime: at(4 * day), Counterparty: "Freelance Client", Kind: Income, Account: "SBI Savings", Category: "Freelance", Description: "Project Payment", Amount: 15000},
		{DateTime: at(5 * day), Counterparty: "Zomato", Kind: Expense, Account: "HDFC Credit", Category: "Food", Description: "Dinner", Amount: 850},
		{DateTime: at(6 * day), Counterparty: "Flipkart", Kind: Expense, Account: "SBI Debit", Category: "Shopping", Description: "Clothing", Amount: 1200},
		{DateTime: at(7 * day), Counterparty: "Swiggy", Kind: Expense, Account: "HDFC Credit", Category: "Food", Description: "Breakfast", Amount: 250},
		{DateTime: at(10 * day), Counterparty: "Investment Return", Kind: Income, Account: "HDFC Savings", Category: "Investment", Description: "Mutual Fund", Amount: 5000},
	}
}

// DemoCards returns the bundled offline card set.
func DemoCards() []Card {
	return []Card{
		{Name: "HDFC Credit Card", Type: "Credit", Last4: "4829", OpeningBalance: 100000, Bank: "HDFC Bank", Color: "#667eea"},
		{Name: "SBI Debit Card", Type: "Debit", Last4: "7234", OpeningBalance: 25000, Bank: "State Bank of India", Color: "#43e97b"},
		{Name: "HDFC Savings", Type: "Savings", Last4: "8901", OpeningBalance: 50000, Bank: "HDFC Bank", Color: "#4facfe"},
		{Name: "Paytm Wallet", Type: "Wallet", Last4: "0000", OpeningBalance: 5000, Bank: "Paytm", Color: "#f093fb"},
	}
}
