package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"findash/internal/auth"
	"findash/internal/core"
	ports "findash/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Default sheet names, matching the spreadsheet layout the dashboard reads.
const (
	DefaultTransactionsSheet = "FinanceData"
	DefaultCardsSheet        = "Cards"
	DefaultUsersSheet        = "Users"
)

// SheetNames selects the tabs used for each record type.
type SheetNames struct {
	Transactions string
	Cards        string
	Users        string
}

func (n SheetNames) withDefaults() SheetNames {
	if strings.TrimSpace(n.Transactions) == "" {
		n.Transactions = DefaultTransactionsSheet
	}
	if strings.TrimSpace(n.Cards) == "" {
		n.Cards = DefaultCardsSheet
	}
	if strings.TrimSpace(n.Users) == "" {
		n.Users = DefaultUsersSheet
	}
	return n
}

// Client stores transactions, cards and users in three tabs of one
// spreadsheet. Card deletion and password updates address rows by position,
// so concurrent writers to the same sheet can race and hit the wrong row.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	names         SheetNames

	mu                 sync.Mutex
	sheetIDs           map[string]int64
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// Ensure interface conformance
var _ ports.Store = (*Client)(nil)

// NewServiceAccount creates a client for spreadsheetID authenticated with the
// service account credentials found in the environment.
func NewServiceAccount(ctx context.Context, spreadsheetID string, names SheetNames) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, spreadsheetID, names), nil
}

// New creates a client with explicit service options, e.g. a custom endpoint.
func New(ctx context.Context, spreadsheetID string, names SheetNames, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, spreadsheetID, names), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string, names SheetNames) *Client {
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		names:              names.withDefaults(),
		cacheValidDuration: 5 * time.Minute,
	}
}

// newSheetsService initializes a Sheets Service. A user token saved by
// cmd/oauth-init (GOOGLE_OAUTH_TOKEN_FILE) wins over service account
// credentials from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE,
// or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	ts, err := oauthTokenSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("oauth credentials: %w", err)
	}
	if ts != nil {
		slog.InfoContext(ctx, "Using OAuth user token")
		return gsheet.NewService(ctx, goption.WithTokenSource(ts))
	}

	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// FetchAll reads both data tabs in one request. Transactions are returned newest first.
func (c *Client) FetchAll(ctx context.Context) (ports.Snapshot, error) {
	if err := c.ensureSheets(ctx); err != nil {
		return ports.Snapshot{}, err
	}
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(c.names.Transactions+"!A:G", c.names.Cards+"!A:F").
		Context(ctx).Do()
	if err != nil {
		return ports.Snapshot{}, fmt.Errorf("batch get: %w", err)
	}
	var txnRows, cardRows [][]interface{}
	if len(resp.ValueRanges) > 0 {
		txnRows = resp.ValueRanges[0].Values
	}
	if len(resp.ValueRanges) > 1 {
		cardRows = resp.ValueRanges[1].Values
	}
	return parseSnapshot(txnRows, cardRows), nil
}

func (c *Client) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if err := c.ensureSheets(ctx); err != nil {
		return "", err
	}
	ref, err := c.appendRow(ctx, c.names.Transactions+"!A:G", core.TransactionRow(t))
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}
	return ref, nil
}

func (c *Client) AddCard(ctx context.Context, card core.Card) error {
	if err := card.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	card = card.WithDefaults()
	if err := c.ensureSheets(ctx); err != nil {
		return err
	}
	names, err := c.readColumn(ctx, c.names.Cards, "A")
	if err != nil {
		return err
	}
	if findRow(names, card.Name, core.CardHeaders) >= 0 {
		return fmt.Errorf("%w: %s", core.ErrCardExists, card.Name)
	}
	if _, err := c.appendRow(ctx, c.names.Cards+"!A:F", core.CardRow(card)); err != nil {
		return fmt.Errorf("append card: %w", err)
	}
	return nil
}

// DeleteCard removes the first row whose name matches exactly. The row index
// is looked up before the delete is issued.
func (c *Client) DeleteCard(ctx context.Context, name string) error {
	if err := c.ensureSheets(ctx); err != nil {
		return err
	}
	names, err := c.readColumn(ctx, c.names.Cards, "A")
	if err != nil {
		return err
	}
	row := findRow(names, name, core.CardHeaders)
	if row < 0 {
		return fmt.Errorf("%w: %s", core.ErrCardNotFound, name)
	}
	sheetID, err := c.sheetID(ctx, c.names.Cards)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete card row %d: %w", row+1, err)
	}
	slog.InfoContext(ctx, "Deleted card row", "card", name, "row", row+1, "sheet", c.names.Cards)
	return nil
}

func (c *Client) Credential(ctx context.Context, username string) (string, error) {
	if err := c.ensureSheets(ctx); err != nil {
		return "", err
	}
	rows, err := c.readRange(ctx, c.names.Users+"!A:B")
	if err != nil {
		return "", err
	}
	row := findRow(firstColumn(rows), username, core.UserHeaders)
	if row < 0 {
		return "", core.ErrUserNotFound
	}
	return core.CellString(cellAt(rows[row], 1)), nil
}

func (c *Client) SetCredential(ctx context.Context, username, secret string) error {
	if err := c.ensureSheets(ctx); err != nil {
		return err
	}
	rows, err := c.readRange(ctx, c.names.Users+"!A:B")
	if err != nil {
		return err
	}
	row := findRow(firstColumn(rows), username, core.UserHeaders)
	if row < 0 {
		return core.ErrUserNotFound
	}
	rng := fmt.Sprintf("%s!B%d", c.names.Users, row+1)
	vr := &gsheet.ValueRange{Values: [][]interface{}{{secret}}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

func (c *Client) appendRow(ctx context.Context, rng string, row []interface{}) (string, error) {
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

func (c *Client) readRange(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) readColumn(ctx context.Context, sheet, col string) ([]string, error) {
	rows, err := c.readRange(ctx, fmt.Sprintf("%s!%s:%s", sheet, col, col))
	if err != nil {
		return nil, err
	}
	return firstColumn(rows), nil
}

// ensureSheets creates any missing tab with its header row; a new Users tab
// also gets the default admin account. Sheet ids are cached for
// cacheValidDuration.
func (c *Client) ensureSheets(ctx context.Context) error {
	ids, err := c.loadSheetIDs(ctx)
	if err != nil {
		return err
	}
	headers := map[string][]string{
		c.names.Transactions: core.TransactionHeaders,
		c.names.Cards:        core.CardHeaders,
		c.names.Users:        core.UserHeaders,
	}
	var missing []string
	for _, name := range []string{c.names.Transactions, c.names.Cards, c.names.Users} {
		if _, ok := ids[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{}
	for _, name := range missing {
		req.Requests = append(req.Requests, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		})
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("create sheets %v: %w", missing, err)
	}
	for _, name := range missing {
		row := make([]interface{}, len(headers[name]))
		for i, h := range headers[name] {
			row[i] = h
		}
		vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
		if name == c.names.Users {
			hash, err := auth.HashPassword(auth.DefaultPassword)
			if err != nil {
				return fmt.Errorf("hash default password: %w", err)
			}
			vr.Values = append(vr.Values, []interface{}{auth.DefaultUser, hash, auth.DefaultEmail})
		}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, name+"!A1", vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write %s header: %w", name, err)
		}
		slog.InfoContext(ctx, "Created sheet", "sheet", name)
	}

	c.mu.Lock()
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
	return nil
}

func (c *Client) sheetID(ctx context.Context, name string) (int64, error) {
	ids, err := c.loadSheetIDs(ctx)
	if err != nil {
		return 0, err
	}
	id, ok := ids[name]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found", name)
	}
	return id, nil
}

func (c *Client) loadSheetIDs(ctx context.Context) (map[string]int64, error) {
	c.mu.Lock()
	if c.sheetIDs != nil && time.Now().Before(c.cacheExpiresAt) {
		ids := c.sheetIDs
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	ids := make(map[string]int64, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}

	c.mu.Lock()
	c.sheetIDs = ids
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return ids, nil
}
