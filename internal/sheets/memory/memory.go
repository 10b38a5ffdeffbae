package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"findash/internal/auth"
	"findash/internal/core"
	ports "findash/internal/sheets"
)

// Store is an in-process backing store. Transactions are kept newest first.
type Store struct {
	mu    sync.Mutex
	txns  []core.Transaction
	cards []core.Card
	users map[string]string
	seq   int
}

var _ ports.Store = (*Store)(nil)

// New builds a store from the given data. A nil users map seeds the default
// admin account with a bcrypt hash of auth.DefaultPassword.
func New(txns []core.Transaction, cards []core.Card, users map[string]string) *Store {
	s := &Store{
		txns:  append([]core.Transaction(nil), txns...),
		cards: append([]core.Card(nil), cards...),
		users: map[string]string{},
	}
	core.SortNewestFirst(s.txns)
	if users == nil {
		if hash, err := auth.HashPassword(auth.DefaultPassword); err == nil {
			s.users[auth.DefaultUser] = hash
		}
	}
	for u, p := range users {
		s.users[u] = p
	}
	return s
}

// NewDemo returns a store holding the bundled demo dataset.
func NewDemo(now time.Time) *Store {
	return New(core.DemoTransactions(now), core.DemoCards(), nil)
}

// NewFromFiles seeds the store from seed_transactions.csv and seed_cards.csv
// under base, using the sheet column order. Missing files fall back to the
// demo dataset.
func NewFromFiles(base string, now time.Time) *Store {
	txns := []core.Transaction{}
	for _, row := range readRows(filepath.Join(base, "seed_transactions.csv")) {
		if t, ok := core.TransactionFromRow(row); ok {
			txns = append(txns, t)
		}
	}
	cards := []core.Card{}
	for _, row := range readRows(filepath.Join(base, "seed_cards.csv")) {
		if c, ok := core.CardFromRow(row); ok {
			cards = append(cards, c)
		}
	}
	if len(txns) == 0 {
		txns = core.DemoTransactions(now)
	}
	if len(cards) == 0 {
		cards = core.DemoCards()
	}
	return New(txns, cards, nil)
}

func (s *Store) FetchAll(_ context.Context) (ports.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ports.Snapshot{
		Transactions: append([]core.Transaction(nil), s.txns...),
		Cards:        append([]core.Card(nil), s.cards...),
	}, nil
}

// AppendTransaction stores the transaction and returns a synthetic row reference.
func (s *Store) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("mem:%d", s.seq)
	}
	s.txns = append(s.txns, t)
	core.SortNewestFirst(s.txns)
	return t.ID, nil
}

func (s *Store) AddCard(_ context.Context, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c = c.WithDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cards {
		if existing.Name == c.Name {
			return fmt.Errorf("%w: %s", core.ErrCardExists, c.Name)
		}
	}
	s.cards = append(s.cards, c)
	return nil
}

// DeleteCard removes the first card whose name matches exactly.
func (s *Store) DeleteCard(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cards {
		if c.Name == name {
			s.cards = append(s.cards[:i:i], s.cards[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", core.ErrCardNotFound, name)
}

func (s *Store) Credential(_ context.Context, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, ok := s.users[username]
	if !ok {
		return "", core.ErrUserNotFound
	}
	return secret, nil
}

func (s *Store) SetCredential(_ context.Context, username, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return core.ErrUserNotFound
	}
	s.users[username] = secret
	return nil
}

// readRows reads a CSV file, skipping the header row and comment lines.
func readRows(path string) [][]any {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	var out [][]any
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out
		}
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		out = append(out, row)
	}
	return out
}

func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	first := strings.TrimSpace(rec[0])
	return strings.EqualFold(first, core.TransactionHeaders[0]) || strings.EqualFold(first, core.CardHeaders[0])
}
