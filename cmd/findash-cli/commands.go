package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"findash/internal/advisor"
	"findash/internal/api"
	"findash/internal/cli"
	"findash/internal/config"
	"findash/internal/core"
	"findash/internal/dashboard"
	"findash/internal/log"
	"findash/internal/remote"
	"findash/internal/render"
	"findash/internal/session"
)

var errUsage = errors.New("usage")

func isUsage(err error) bool { return errors.Is(err, errUsage) }

type app struct {
	cfg    *config.Config
	ctl    *dashboard.Controller
	out    io.Writer
	errOut io.Writer
	logger *log.Logger
	now    func() time.Time
}

func newApp(cfg *config.Config, stdout, stderr io.Writer) (*app, error) {
	a := &app{cfg: cfg, out: stdout, errOut: stderr, now: time.Now}
	a.logger = cli.SetupLogger(cfg.LogLevel, stderr)

	client := remote.New(cfg.DashboardEndpoint,
		remote.WithUserAgent("findash-cli"),
		remote.WithToken(func() string { return a.ctl.Token() }),
	)
	ctl, err := dashboard.NewController(dashboard.NewStore(), dashboard.Options{
		Remote: client,
		Prefs:  session.NewFileStore(cfg.PrefsFile),
		Logger: a.logger,
		Now:    a.now,
	})
	if err != nil {
		return nil, err
	}
	a.ctl = ctl
	return a, nil
}

func (a *app) renderer() *render.Renderer {
	return render.New(a.out, a.ctl.Prefs().ThemeName())
}

func (a *app) print(s string) {
	fmt.Fprintln(a.out, s)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// prepareOffline loads the demo dataset that offline mutations apply to.
// With an endpoint the controller refreshes after the mutation instead.
func (a *app) prepareOffline(ctx context.Context) {
	if a.cfg.DashboardEndpoint == "" {
		a.ctl.Refresh(ctx)
	}
}

// refresh loads the dataset and reports a degraded sync on stderr.
func (a *app) refresh(ctx context.Context) {
	r := a.ctl.Refresh(ctx)
	if r.Warning != "" {
		fmt.Fprintln(a.errOut, render.New(a.errOut, a.ctl.Prefs().ThemeName()).Warning(r.Warning))
	}
}

// result prints a command outcome. A rejected command is an error.
func (a *app) result(res api.Result) error {
	if !res.Success {
		if res.Error == "" {
			return errors.New("command rejected")
		}
		return errors.New(res.Error)
	}
	a.print(res.Message)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	user := fs.String("u", a.ctl.Prefs().CurrentUser, "username")
	pass := fs.String("p", "", "password")
	remember := fs.Bool("remember", true, "restore the session on the next run")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *user == "" || *pass == "" {
		fmt.Fprintln(a.errOut, "Usage: findash-cli login -u USER -p PASSWORD [-remember=false]")
		return errUsage
	}
	if err := a.ctl.Login(ctx, *user, *pass, *remember); err != nil {
		return err
	}
	a.print(api.MsgLoginOK)
	return nil
}

func (a *app) logout(_ context.Context, args []string) error {
	if err := a.parse(a.flags("logout"), args); err != nil {
		return err
	}
	if err := a.ctl.Logout(); err != nil {
		return err
	}
	a.print("Logged out")
	return nil
}

func (a *app) resetPassword(ctx context.Context, args []string) error {
	fs := a.flags("reset-password")
	oldPass := fs.String("old", "", "current password")
	newPass := fs.String("new", "", "new password")
	confirm := fs.String("confirm", "", "new password again")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := a.ctl.ResetPassword(ctx, *oldPass, *newPass, *confirm); err != nil {
		return err
	}
	a.print("Password updated successfully!")
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("summary"), args); err != nil {
		return err
	}
	a.refresh(ctx)
	a.print(a.renderer().Summary(core.Summarize(a.ctl.Store().Transactions())))
	return nil
}

func (a *app) transactions(ctx context.Context, args []string) error {
	fs := a.flags("transactions")
	kind := fs.String("type", "", "Income or Expense")
	account := fs.String("account", "", "exact account")
	category := fs.String("category", "", "exact category")
	to := fs.String("to", "", "exact recipient")
	query := fs.String("q", "", "search description, recipient and category")
	minAmount := fs.String("min", "", "minimum amount")
	maxAmount := fs.String("max", "", "maximum amount")
	start := fs.String("start", "", "earliest date (YYYY-MM-DD)")
	end := fs.String("end", "", "latest date, inclusive (YYYY-MM-DD)")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	criteria := core.FilterCriteria{
		Account:      *account,
		Category:     *category,
		Counterparty: *to,
		Query:        *query,
		DateStart:    *start,
		DateEnd:      *end,
	}
	if *kind != "" {
		criteria.Kind = core.NormalizeKind(*kind)
	}
	var err error
	if criteria.AmountMin, err = bound("min", *minAmount); err != nil {
		return err
	}
	if criteria.AmountMax, err = bound("max", *maxAmount); err != nil {
		return err
	}

	a.refresh(ctx)
	a.print(a.renderer().Transactions(a.ctl.Store().ApplyFilters(criteria)))
	return nil
}

func bound(name, s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, core.ErrInvalidAmount)
	}
	return &v, nil
}

func (a *app) cards(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("cards"), args); err != nil {
		return err
	}
	a.refresh(ctx)
	store := a.ctl.Store()
	a.print(a.renderer().Cards(core.CardBalances(store.Cards(), store.Transactions())))
	return nil
}

func (a *app) monthly(ctx context.Context, args []string) error {
	fs := a.flags("monthly")
	months := fs.Int("months", a.cfg.ChartMonths, "number of months, 1 to 24")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *months < 1 || *months > 24 {
		fmt.Fprintln(a.errOut, "-months must be between 1 and 24")
		return errUsage
	}
	a.refresh(ctx)
	a.print(a.renderer().Monthly(core.MonthlySeries(a.ctl.Store().Transactions(), *months, a.now())))
	return nil
}

func (a *app) categories(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("categories"), args); err != nil {
		return err
	}
	a.refresh(ctx)
	a.print(a.renderer().Categories(core.CategoryTotals(a.ctl.Store().Transactions())))
	return nil
}

func (a *app) recipients(ctx context.Context, args []string) error {
	fs := a.flags("recipients")
	limit := fs.Int("limit", 4, "number of recipients")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	a.refresh(ctx)
	a.print(a.renderer().Recipients(core.TopRecipients(a.ctl.Store().Transactions(), *limit)))
	return nil
}

func (a *app) insights(ctx context.Context, args []string) error {
	if err := a.parse(a.flags("insights"), args); err != nil {
		return err
	}
	a.refresh(ctx)
	a.print(a.renderer().Insights(advisor.Insights(a.ctl.Store().Transactions())))
	return nil
}

func (a *app) ask(ctx context.Context, args []string) error {
	fs := a.flags("ask")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(a.errOut, "Usage: findash-cli ask QUESTION")
		return errUsage
	}
	a.refresh(ctx)
	a.print(a.renderer().Answer(advisor.Respond(query, a.ctl.Store().Transactions(), a.now())))
	return nil
}

func (a *app) addTransaction(ctx context.Context, args []string) error {
	fs := a.flags("add-transaction")
	date := fs.String("date", "", "date and time (default now)")
	to := fs.String("to", "", "recipient or payer")
	kind := fs.String("type", string(core.Expense), "Income or Expense")
	account := fs.String("account", "", "account or card name")
	category := fs.String("category", core.DefaultCategory, "category")
	desc := fs.String("desc", "", "description")
	amount := fs.String("amount", "", "amount")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	when := strings.Replace(strings.TrimSpace(*date), "T", " ", 1)
	if when == "" {
		when = a.now().Format(core.DateTimeLayout)
	}

	a.prepareOffline(ctx)
	res, err := a.ctl.Submit(ctx, api.Command{
		DateTime:      when,
		TransferredTo: *to,
		Type:          *kind,
		Account:       *account,
		Category:      *category,
		Description:   *desc,
		Amount:        amountArg(*amount),
	})
	if err != nil {
		return err
	}
	return a.result(res)
}

func (a *app) addCard(ctx context.Context, args []string) error {
	fs := a.flags("add-card")
	name := fs.String("name", "", "card name")
	kind := fs.String("type", core.DefaultCardType, "Credit, Debit, Savings or Wallet")
	last4 := fs.String("last4", "", "last four digits")
	balance := fs.String("balance", "0", "initial balance")
	bank := fs.String("bank", "", "bank name")
	color := fs.String("color", "", "display color (#rrggbb)")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	a.prepareOffline(ctx)
	res, err := a.ctl.Submit(ctx, api.Command{
		Action:         api.ActionAddCard,
		CardName:       *name,
		CardType:       *kind,
		Last4Digits:    *last4,
		InitialBalance: amountArg(*balance),
		BankName:       *bank,
		Color:          *color,
	})
	if err != nil {
		return err
	}
	return a.result(res)
}

func (a *app) deleteCard(ctx context.Context, args []string) error {
	fs := a.flags("delete-card")
	name := fs.String("name", "", "card name")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *name == "" {
		*name = strings.Join(fs.Args(), " ")
	}

	a.prepareOffline(ctx)
	res, err := a.ctl.Submit(ctx, api.NewDeleteCard(*name))
	if err != nil {
		return err
	}
	return a.result(res)
}

func (a *app) theme(_ context.Context, args []string) error {
	fs := a.flags("theme")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		a.print(a.ctl.Prefs().ThemeName())
		return nil
	}
	if err := a.ctl.SetTheme(fs.Arg(0)); err != nil {
		return err
	}
	a.print("Theme set to " + a.ctl.Prefs().ThemeName())
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := a.flags("watch")
	interval := fs.Duration("interval", a.cfg.RefreshInterval, "refresh interval")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if !a.ctl.Session().LoggedIn {
		return dashboard.ErrNotLoggedIn
	}

	show := func(r dashboard.RefreshResult) {
		rd := a.renderer()
		if r.Warning != "" {
			a.print(rd.Warning(r.Warning))
		}
		a.print(a.now().Format(core.DateTimeLayout))
		a.print(rd.Summary(core.Summarize(a.ctl.Store().Transactions())))
	}
	show(a.ctl.Refresh(ctx))

	a.ctl.OnRefresh(show)
	err := a.ctl.Run(ctx, *interval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// amountArg keeps the typed text so the command applies strict parsing.
func amountArg(s string) *api.Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &api.Amount{Raw: s, Value: core.ParseAmount(s), Present: true}
}
