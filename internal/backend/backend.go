// Package backend opens the store selected by DATA_BACKEND.
package backend

import (
	"fmt"
	"strings"

	"findash/internal/config"
	"findash/internal/sheets"
	gsheet "findash/internal/sheets/google"
)

// Kind names a backing store.
type Kind string

const (
	Memory Kind = "memory"
	Sheets Kind = "sheets"
	SQLite Kind = "sqlite"
)

// Kinds lists the supported backends in the order they are documented.
func Kinds() []Kind { return []Kind{Memory, Sheets, SQLite} }

// ParseKind accepts a backend name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown backend %q: must be one of %v", s, Kinds())
}

// Options selects and configures one backend. Only the fields of Kind are
// read.
type Options struct {
	Kind Kind

	// memory
	SeedDir string

	// sqlite, with optional mirror events
	SQLitePath   string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// sheets
	SpreadsheetID string
	SheetNames    gsheet.SheetNames
}

// OptionsFrom maps the process configuration onto backend options.
func OptionsFrom(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, fmt.Errorf("nil config")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Kind:          kind,
		SeedDir:       cfg.DataDir,
		SQLitePath:    cfg.SQLiteDBPath,
		AMQPURL:       cfg.AMQPURL,
		AMQPExchange:  cfg.AMQPExchange,
		AMQPQueue:     cfg.AMQPQueue,
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetNames: gsheet.SheetNames{
			Transactions: cfg.GoogleTransactionsSheet,
			Cards:        cfg.GoogleCardsSheet,
			Users:        cfg.GoogleUsersSheet,
		},
	}, nil
}

func (o Options) Validate() error {
	switch o.Kind {
	case Memory:
		return nil
	case SQLite:
		if o.SQLitePath == "" {
			return fmt.Errorf("sqlite backend: database path is required")
		}
	case Sheets:
		if o.SpreadsheetID == "" {
			return fmt.Errorf("sheets backend: spreadsheet id is required")
		}
	default:
		return fmt.Errorf("unknown backend %q", o.Kind)
	}
	return nil
}

// Handle is an open store. Close releases whatever the backend holds.
type Handle struct {
	Kind  Kind
	Store sheets.Store
	close func() error
}

func (h *Handle) Close() error {
	if h == nil || h.close == nil {
		return nil
	}
	return h.close()
}
