package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"findash/internal/amqp"
	"findash/internal/log"
	"findash/internal/services"
	gsheet "findash/internal/sheets/google"
	"findash/internal/sheets/memory"
	"findash/internal/storage"
)

// Opener builds backends from Options.
type Opener struct {
	logger *log.Logger
	now    func() time.Time
}

// NewOpener returns an opener logging to logger, or to the slog default when
// logger is nil.
func NewOpener(logger *log.Logger) *Opener {
	if logger == nil {
		logger = log.New(log.Config{Handler: slog.Default().Handler()})
	}
	return &Opener{logger: logger.WithComponent(log.ComponentBackend), now: time.Now}
}

// Open validates opts and opens the selected store.
func (o *Opener) Open(ctx context.Context, opts Options) (*Handle, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	switch opts.Kind {
	case SQLite:
		return o.openSQLite(ctx, opts)
	case Sheets:
		return o.openSheets(ctx, opts)
	default:
		return o.openMemory(ctx, opts), nil
	}
}

// openSQLite wraps the repository in the ledger service. Mirror events are
// optional: an unreachable broker only disables them.
func (o *Opener) openSQLite(ctx context.Context, opts Options) (*Handle, error) {
	repo, err := storage.NewSQLiteRepository(opts.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	var publisher services.Publisher
	if opts.AMQPURL != "" {
		client, err := amqp.NewClient(opts.AMQPURL, opts.AMQPExchange, opts.AMQPQueue)
		if err != nil {
			o.logger.WarnContext(ctx, "Mirror events disabled", log.FieldError, err.Error())
		} else {
			publisher = client
		}
	}
	ledger := services.NewLedgerService(repo, publisher)

	o.logger.InfoContext(ctx, "Opened backend",
		log.FieldBackend, SQLite,
		"db_path", opts.SQLitePath,
		"mirror_events", publisher != nil)
	return &Handle{Kind: SQLite, Store: ledger, close: ledger.Close}, nil
}

func (o *Opener) openSheets(ctx context.Context, opts Options) (*Handle, error) {
	client, err := gsheet.NewServiceAccount(ctx, opts.SpreadsheetID, opts.SheetNames)
	if err != nil {
		return nil, fmt.Errorf("open sheets: %w", err)
	}
	o.logger.InfoContext(ctx, "Opened backend", log.FieldBackend, Sheets, "spreadsheet_id", opts.SpreadsheetID)
	return &Handle{Kind: Sheets, Store: client}, nil
}

func (o *Opener) openMemory(ctx context.Context, opts Options) *Handle {
	dir := opts.SeedDir
	if dir == "" {
		dir = "data"
	}
	o.logger.InfoContext(ctx, "Opened backend", log.FieldBackend, Memory, "seed_dir", dir)
	return &Handle{Kind: Memory, Store: memory.NewFromFiles(dir, o.now())}
}
