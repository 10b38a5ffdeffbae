package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"findash/internal/api"
	"findash/internal/core"
	"findash/internal/session"
	"findash/internal/sheets"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)

type fakeRemote struct {
	configured bool
	snap       sheets.Snapshot
	fetchErr   error
	submitErr  error
	results    map[string]api.Result

	fetches  atomic.Int32
	block    chan struct{}
	mu       sync.Mutex
	commands []api.Command
}

func (f *fakeRemote) Configured() bool { return f.configured }

func (f *fakeRemote) FetchAll(context.Context) (sheets.Snapshot, error) {
	f.fetches.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.snap, f.fetchErr
}

func (f *fakeRemote) Submit(_ context.Context, cmd api.Command) (api.Result, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	if f.submitErr != nil {
		return api.Result{}, f.submitErr
	}
	if res, ok := f.results[cmd.Action]; ok {
		return res, nil
	}
	return api.Success("ok"), nil
}

type memPrefs struct {
	p     session.Prefs
	saves int
}

func (m *memPrefs) Load() (session.Prefs, error) { return m.p, nil }

func (m *memPrefs) Save(p session.Prefs) error {
	m.p = p
	m.saves++
	return nil
}

func newController(t *testing.T, remote Remote, prefs PrefsStore) *Controller {
	t.Helper()
	c, err := NewController(NewStore(), Options{Remote: remote, Prefs: prefs, Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	txns, cards := sample()

	t.Run("unconfigured loads demo without warning", func(t *testing.T) {
		c := newController(t, &fakeRemote{}, nil)
		r := c.Refresh(ctx)
		if !r.Degraded || r.Warning != "" {
			t.Fatalf("result = %+v", r)
		}
		if len(c.Store().Transactions()) != 10 || len(c.Store().Cards()) != 4 {
			t.Fatal("demo dataset not loaded")
		}
	})

	t.Run("fetch failure loads demo with warning", func(t *testing.T) {
		c := newController(t, &fakeRemote{configured: true, fetchErr: errors.New("fetch: Sheet not found")}, nil)
		r := c.Refresh(ctx)
		if !r.Degraded || !strings.Contains(r.Warning, "Sheet not found") {
			t.Fatalf("result = %+v", r)
		}
		if len(c.Store().Transactions()) != 10 {
			t.Fatal("demo dataset not loaded")
		}
	})

	t.Run("success replaces store", func(t *testing.T) {
		c := newController(t, &fakeRemote{configured: true, snap: sheets.Snapshot{Transactions: txns, Cards: cards}}, nil)
		if r := c.Refresh(ctx); r.Degraded {
			t.Fatalf("result = %+v", r)
		}
		if got := c.Store().Transactions(); len(got) != 3 || got[0].ID != "1" {
			t.Fatalf("transactions = %+v", got)
		}
	})
}

func TestRefreshCollapsesConcurrentCalls(t *testing.T) {
	remote := &fakeRemote{configured: true, block: make(chan struct{})}
	c := newController(t, remote, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Refresh(context.Background())
		}()
	}
	for remote.fetches.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(remote.block)
	wg.Wait()

	if n := remote.fetches.Load(); n != 1 {
		t.Fatalf("fetches = %d, want 1", n)
	}
}

func TestSubmitOffline(t *testing.T) {
	ctx := context.Background()
	c := newController(t, &fakeRemote{}, nil)
	c.Refresh(ctx)

	txn := core.Transaction{DateTime: "2024-06-15 09:00:00", Counterparty: "Cafe", Kind: core.Expense, Account: "HDFC Credit", Amount: 120}
	res, err := c.Submit(ctx, api.NewAppendTransaction(txn))
	if err != nil || !res.Success || res.Ref == "" {
		t.Fatalf("append: res=%+v err=%v", res, err)
	}
	first := c.Store().Transactions()[0]
	if first.Counterparty != "Cafe" || first.Category != core.DefaultCategory {
		t.Fatalf("offline append not prepended with defaults: %+v", first)
	}

	res, _ = c.Submit(ctx, api.Command{Type: "Expense"})
	if res.Success || res.Error != api.MsgMissingFields {
		t.Fatalf("invalid append = %+v", res)
	}

	res, _ = c.Submit(ctx, api.NewDeleteCard("Nope"))
	if res.Success || res.Error != api.MsgCardNotFound {
		t.Fatalf("delete missing = %+v", res)
	}
	if len(c.Store().Cards()) != 4 {
		t.Fatal("card set changed")
	}

	res, _ = c.Submit(ctx, api.NewAddCard(core.Card{Name: "Amex", Type: "Credit"}))
	if !res.Success || len(c.Store().Cards()) != 5 {
		t.Fatalf("add card = %+v", res)
	}

	if _, err := c.Submit(ctx, api.NewLogin("admin", "admin123")); !errors.Is(err, ErrConnection) {
		t.Fatalf("offline login err = %v", err)
	}
}

func TestSubmitRemote(t *testing.T) {
	ctx := context.Background()
	txns, cards := sample()
	remote := &fakeRemote{
		configured: true,
		snap:       sheets.Snapshot{Transactions: txns, Cards: cards},
		results: map[string]api.Result{
			api.ActionDeleteCard: {Success: false, Error: api.MsgCardNotFound},
		},
	}
	c := newController(t, remote, nil)

	res, err := c.Submit(ctx, api.NewAddCard(core.Card{Name: "Amex", Type: "Credit"}))
	if err != nil || !res.Success {
		t.Fatalf("add: res=%+v err=%v", res, err)
	}
	if remote.fetches.Load() != 1 {
		t.Fatal("successful mutation did not refresh")
	}

	res, err = c.Submit(ctx, api.NewDeleteCard("Nope"))
	if err != nil || res.Success || res.Error != api.MsgCardNotFound {
		t.Fatalf("rejected delete: res=%+v err=%v", res, err)
	}
	if remote.fetches.Load() != 1 {
		t.Fatal("rejected mutation refreshed")
	}

	remote.submitErr = errors.New("dial tcp: refused")
	if _, err := c.Submit(ctx, api.NewDeleteCard("X")); !errors.Is(err, ErrConnection) {
		t.Fatalf("transport error = %v", err)
	}
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("remembered session survives restart", func(t *testing.T) {
		remote := &fakeRemote{configured: true, results: map[string]api.Result{
			api.ActionLogin: {Success: true, Message: api.MsgLoginOK, Token: "tok"},
		}}
		prefs := &memPrefs{p: session.Prefs{Theme: session.ThemeDark}}
		c := newController(t, remote, prefs)

		if err := c.Login(ctx, "admin", "admin123", true); err != nil {
			t.Fatal(err)
		}
		if s := c.Session(); !s.LoggedIn || s.Username != "admin" || s.Token != "tok" {
			t.Fatalf("session = %+v", s)
		}
		if !prefs.p.Remembered || prefs.p.CurrentUser != "admin" {
			t.Fatalf("prefs not saved: %+v", prefs.p)
		}

		again := newController(t, remote, prefs)
		if !again.Session().LoggedIn {
			t.Fatal("remembered session not restored")
		}

		if err := again.Logout(); err != nil {
			t.Fatal(err)
		}
		if again.Session().LoggedIn || prefs.p.Remembered || prefs.p.Token != "" {
			t.Fatalf("logout left state: session=%+v prefs=%+v", again.Session(), prefs.p)
		}
		if prefs.p.Theme != session.ThemeDark {
			t.Fatal("logout dropped the theme")
		}
	})

	t.Run("rejected login", func(t *testing.T) {
		remote := &fakeRemote{configured: true, results: map[string]api.Result{
			api.ActionLogin: {Success: false},
		}}
		c := newController(t, remote, &memPrefs{})
		err := c.Login(ctx, "admin", "nope", false)
		var rejected *RejectedError
		if !errors.As(err, &rejected) || rejected.Message != "Invalid credentials" {
			t.Fatalf("err = %v", err)
		}
		if c.Session().LoggedIn {
			t.Fatal("logged in after rejection")
		}
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{configured: true, results: map[string]api.Result{
		api.ActionLogin: {Success: true, Message: api.MsgLoginOK},
	}}
	c := newController(t, remote, &memPrefs{})

	if err := c.ResetPassword(ctx, "old", "a", "b"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("mismatch err = %v", err)
	}
	if err := c.ResetPassword(ctx, "old", "a", "a"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("logged out err = %v", err)
	}

	if err := c.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatal(err)
	}
	if err := c.ResetPassword(ctx, "admin123", "new", "new"); err != nil {
		t.Fatal(err)
	}
	last := remote.commands[len(remote.commands)-1]
	if last.Action != api.ActionResetPassword || last.Username != "admin" || last.NewPassword != "new" {
		t.Fatalf("reset command = %+v", last)
	}

	remote.results[api.ActionResetPassword] = api.Result{Success: false, Error: api.MsgAccountMismatch}
	var rejected *RejectedError
	if err := c.ResetPassword(ctx, "bad", "x", "x"); !errors.As(err, &rejected) || rejected.Message != api.MsgAccountMismatch {
		t.Fatalf("rejected reset err = %v", err)
	}
}

func TestSetTheme(t *testing.T) {
	prefs := &memPrefs{}
	c := newController(t, &fakeRemote{}, prefs)
	if err := c.SetTheme("DARK"); err != nil || prefs.p.Theme != session.ThemeDark {
		t.Fatalf("theme = %q err=%v", prefs.p.Theme, err)
	}
	if err := c.SetTheme("blue"); !errors.Is(err, session.ErrUnknownTheme) {
		t.Fatalf("err = %v", err)
	}
}

func TestRun(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		c := newController(t, &fakeRemote{}, nil)
		if err := c.Run(context.Background(), time.Millisecond); !errors.Is(err, ErrNotLoggedIn) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("refreshes until logout", func(t *testing.T) {
		remote := &fakeRemote{configured: true}
		c := newController(t, remote, &memPrefs{})
		if err := c.Login(context.Background(), "admin", "admin123", false); err != nil {
			t.Fatal(err)
		}
		refreshed := make(chan RefreshResult, 16)
		c.OnRefresh(func(r RefreshResult) {
			select {
			case refreshed <- r:
			default:
			}
		})

		done := make(chan error, 1)
		go func() { done <- c.Run(context.Background(), 5*time.Millisecond) }()

		select {
		case <-refreshed:
		case <-time.After(2 * time.Second):
			t.Fatal("no periodic refresh")
		}
		if err := c.Logout(); err != nil {
			t.Fatal(err)
		}
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("run returned %v after logout", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("run did not stop on logout")
		}
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		c := newController(t, &fakeRemote{configured: true}, nil)
		c.sess = session.Session{LoggedIn: true, Username: "admin"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := c.Run(ctx, time.Hour); !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v", err)
		}
	})
}
