// Package dashboard keeps the client-side view state: the last fetched
// dataset, the active filter and the subset it selects.
package dashboard

import (
	"fmt"
	"slices"
	"sync"

	"findash/internal/core"
)

// Store owns the dataset shown by a dashboard client. All methods are safe
// for concurrent use and never hand out internal slices.
type Store struct {
	mu       sync.RWMutex
	txns     []core.Transaction
	cards    []core.Card
	criteria core.FilterCriteria
	filtered []core.Transaction
}

func NewStore() *Store {
	return &Store{}
}

// ReplaceAll swaps in a freshly fetched dataset. The active criteria are
// re-applied so the filtered view stays consistent with the new data.
func (s *Store) ReplaceAll(txns []core.Transaction, cards []core.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = slices.Clone(txns)
	s.cards = slices.Clone(cards)
	s.refilter()
}

// ApplyFilters stores c and returns the matching transactions.
func (s *Store) ApplyFilters(c core.FilterCriteria) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = c
	s.refilter()
	return slices.Clone(s.filtered)
}

// ClearFilters drops every criterion; the filtered view becomes the whole set.
func (s *Store) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = core.FilterCriteria{}
	s.refilter()
}

func (s *Store) Filtered() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nonNil(slices.Clone(s.filtered))
}

func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nonNil(slices.Clone(s.txns))
}

func (s *Store) Cards() []core.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cards == nil {
		return []core.Card{}
	}
	return slices.Clone(s.cards)
}

func (s *Store) Criteria() core.FilterCriteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// PrependTransaction records t as the newest transaction. Used when no
// endpoint is configured.
func (s *Store) PrependTransaction(t core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = slices.Insert(s.txns, 0, t)
	s.refilter()
}

// AddCard appends c. Names stay unique.
func (s *Store) AddCard(c core.Card) error {
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

// DeleteCard removes the card named name. The set is left unchanged when no
// card matches.
func (s *Store) DeleteCard(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.cards, func(c core.Card) bool { return c.Name == name })
	if i < 0 {
		return fmt.Errorf("%w: %s", core.ErrCardNotFound, name)
	}
	s.cards = slices.Delete(s.cards, i, i+1)
	return nil
}

// refilter must be called with mu held for writing.
func (s *Store) refilter() {
	s.filtered = core.Filter(s.txns, s.criteria)
}

func nonNil(txns []core.Transaction) []core.Transaction {
	if txns == nil {
		return []core.Transaction{}
	}
	return txns
}
