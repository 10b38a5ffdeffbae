package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"findash/internal/cli"
	"findash/internal/config"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.ValidateClient(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type command struct {
	name    string
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{"login", "Log in to the endpoint", (*app).login},
	{"logout", "End the saved session", (*app).logout},
	{"reset-password", "Change the password of the logged-in user", (*app).resetPassword},
	{"summary", "Show income, expenses and balance", (*app).summary},
	{"transactions", "List transactions, optionally filtered", (*app).transactions},
	{"cards", "Show cards with derived balances", (*app).cards},
	{"monthly", "Chart income and expenses per month", (*app).monthly},
	{"categories", "Show expense totals per category", (*app).categories},
	{"recipients", "Show the most frequent recipients", (*app).recipients},
	{"insights", "Show spending insights", (*app).insights},
	{"ask", "Ask the finance advisor a question", (*app).ask},
	{"add-transaction", "Record a transaction", (*app).addTransaction},
	{"add-card", "Add a card", (*app).addCard},
	{"delete-card", "Delete a card by name", (*app).deleteCard},
	{"theme", "Show or set the color theme (light|dark)", (*app).theme},
	{"watch", "Refresh the summary periodically while logged in", (*app).watch},
}

// run executes one subcommand and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	switch args[0] {
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	}

	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		a, err := newApp(cfg, stdout, stderr)
		if err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		if err := c.run(a, ctx, args[1:]); err != nil {
			if isUsage(err) {
				return 2
			}
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
	printUsage(stderr)
	return 2
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "findash - personal finance dashboard")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  findash-cli <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-16s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w, "\nRun 'findash-cli <command> -h' for the options of a command.")
	fmt.Fprintln(w, "Without DASHBOARD_ENDPOINT the bundled demo data is shown.")
}
