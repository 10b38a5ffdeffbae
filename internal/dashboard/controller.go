package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"findash/internal/api"
	"findash/internal/core"
	"findash/internal/log"
	"findash/internal/session"
	"findash/internal/sheets"
)

const DefaultRefreshInterval = 60 * time.Second

var (
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrPasswordMismatch = errors.New("new passwords do not match")
	ErrConnection       = errors.New("server connection failed, try again")
)

// Remote is the endpoint the controller syncs with.
type Remote interface {
	Configured() bool
	FetchAll(ctx context.Context) (sheets.Snapshot, error)
	Submit(ctx context.Context, cmd api.Command) (api.Result, error)
}

// PrefsStore persists client preferences between runs.
type PrefsStore interface {
	Load() (session.Prefs, error)
	Save(session.Prefs) error
}

// RefreshResult reports whether the store now holds the demo dataset
// instead of endpoint data. Warning is empty when no endpoint is configured.
type RefreshResult struct {
	Degraded bool
	Warning  string
}

// RejectedError is a command the endpoint answered with success:false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string { return e.Message }

type Options struct {
	Remote Remote
	Prefs  PrefsStore
	Logger *log.Logger
	Now    func() time.Time

	// OnRefresh runs after every refresh started by Run.
	OnRefresh func(RefreshResult)
}

// Controller drives a Store from a remote endpoint and owns the login
// session. A missing or failing endpoint degrades to the bundled demo data.
type Controller struct {
	store     *Store
	remote    Remote
	prefs     PrefsStore
	logger    *log.Logger
	now       func() time.Time
	onRefresh func(RefreshResult)
	offline   *api.Dispatcher
	refreshes singleflight.Group

	mu      sync.Mutex
	p       session.Prefs
	sess    session.Session
	stopped chan struct{} // closed on logout
}

// NewController loads the saved preferences and resumes a remembered session.
func NewController(store *Store, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler()})
	}
	logger = logger.WithComponent(log.ComponentDashboard)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		store:     store,
		remote:    opts.Remote,
		prefs:     opts.Prefs,
		logger:    logger,
		now:       now,
		onRefresh: opts.OnRefresh,
		offline:   api.NewDispatcher(offlineStore{view: store}, nil, logger),
		stopped:   make(chan struct{}),
	}
	if c.prefs != nil {
		p, err := c.prefs.Load()
		if err != nil {
			return nil, err
		}
		c.p = p
		c.sess = session.Restore(p)
	}
	return c, nil
}

func (c *Controller) Store() *Store { return c.store }

func (c *Controller) Session() session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *Controller) Prefs() session.Prefs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.p
}

func (c *Controller) configured() bool {
	return c.remote != nil && c.remote.Configured()
}

// Refresh replaces the store contents with the endpoint's dataset.
// Concurrent calls share one fetch.
func (c *Controller) Refresh(ctx context.Context) RefreshResult {
	v, _, _ := c.refreshes.Do("refresh", func() (any, error) {
		return c.refresh(ctx), nil
	})
	return v.(RefreshResult)
}

func (c *Controller) refresh(ctx context.Context) RefreshResult {
	if !c.configured() {
		c.loadDemo()
		return RefreshResult{Degraded: true}
	}
	snap, err := c.remote.FetchAll(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Falling back to demo data",
			log.FieldOperation, log.OpRefresh,
			log.FieldError, err.Error(),
		)
		c.loadDemo()
		return RefreshResult{
			Degraded: true,
			Warning:  fmt.Sprintf("Data sync failed: %v. Using demo data instead.", err),
		}
	}
	c.store.ReplaceAll(snap.Transactions, snap.Cards)
	c.logger.DebugContext(ctx, "Dashboard refreshed",
		log.FieldCount, len(snap.Transactions),
	)
	return RefreshResult{}
}

func (c *Controller) loadDemo() {
	c.store.ReplaceAll(core.DemoTransactions(c.now()), core.DemoCards())
}

// Submit sends cmd to the endpoint and refreshes after a successful
// mutation. Without an endpoint, mutations are applied to the store only.
// A rejected command is returned as a failed Result, not an error.
func (c *Controller) Submit(ctx context.Context, cmd api.Command) (api.Result, error) {
	if !c.configured() {
		if cmd.Action == api.ActionLogin || cmd.Action == api.ActionResetPassword {
			return api.Result{}, ErrConnection
		}
		return c.offline.Dispatch(ctx, cmd), nil
	}
	res, err := c.remote.Submit(ctx, cmd)
	if err != nil {
		return api.Result{}, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if res.Success && cmd.IsMutation() {
		if r := c.Refresh(ctx); r.Warning != "" {
			c.logger.WarnContext(ctx, "Refresh after mutation degraded", log.FieldAction, cmd.Action)
		}
	}
	return res, nil
}

// Login verifies the credentials with the endpoint and starts a session.
// With remember the user is restored on the next run.
func (c *Controller) Login(ctx context.Context, username, password string, remember bool) error {
	res, err := c.Submit(ctx, api.NewLogin(username, password))
	if err != nil {
		return err
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "Invalid credentials"
		}
		return &RejectedError{Message: msg}
	}

	c.mu.Lock()
	p, sess := session.Login(c.p, username, res.Token, remember)
	c.p, c.sess = p, sess
	c.stopped = make(chan struct{})
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Logged in", log.FieldUsername, username)
	return c.savePrefs(p)
}

// Logout ends the session and stops a running refresh loop.
func (c *Controller) Logout() error {
	c.mu.Lock()
	p := session.Logout(c.p)
	c.p = p
	c.sess = session.Session{}
	select {
	case <-c.stopped:
	default:
		close(c.stopped)
	}
	c.mu.Unlock()
	return c.savePrefs(p)
}

// ResetPassword changes the password of the logged-in user.
func (c *Controller) ResetPassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	sess := c.Session()
	if !sess.LoggedIn {
		return ErrNotLoggedIn
	}
	res, err := c.Submit(ctx, api.NewResetPassword(sess.Username, oldPassword, newPassword))
	if err != nil {
		return err
	}
	if !res.Success {
		return &RejectedError{Message: res.Error}
	}
	return nil
}

// SetTheme saves the theme preference.
func (c *Controller) SetTheme(theme string) error {
	t, err := session.ParseTheme(theme)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.p.Theme = t
	p := c.p
	c.mu.Unlock()
	return c.savePrefs(p)
}

// OnRefresh replaces the callback run after each periodic refresh.
func (c *Controller) OnRefresh(fn func(RefreshResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

// Token returns the session token, empty when logged out.
func (c *Controller) Token() string {
	return c.Session().Token
}

func (c *Controller) savePrefs(p session.Prefs) error {
	if c.prefs == nil {
		return nil
	}
	if err := c.prefs.Save(p); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}

// Run refreshes every interval while a session is active. It returns nil on
// logout, ctx's error on cancellation, and ErrNotLoggedIn when started
// without a session.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	c.mu.Lock()
	loggedIn, stopped, notify := c.sess.LoggedIn, c.stopped, c.onRefresh
	c.mu.Unlock()
	if !loggedIn {
		return ErrNotLoggedIn
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopped:
			return nil
		case <-ticker.C:
			if !c.Session().LoggedIn {
				return nil
			}
			r := c.Refresh(ctx)
			if notify != nil {
				notify(r)
			}
		}
	}
}
