// Package ledger holds the account store and the engine that mutates it.
//
// The store owns every account and its history. It hands out deep copies
// only; balances change exclusively through Engine operations, each of which
// runs under the locks of the accounts it touches.
package ledger

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
	"github.com/riteshkumar/ledger-assistant/internal/models"
)

type Store struct {
	// mu guards the accounts map itself. Operations hold the read side,
	// Reset holds the write side.
	mu       sync.RWMutex
	accounts map[string]*slot
	seed     []models.Account
}

type slot struct {
	mu      sync.Mutex
	account models.Account
}

// NewStore creates a store initialised from seed. The seed is copied and is
// also what Reset restores.
func NewStore(seed []models.Account) *Store {
	s := &Store{seed: make([]models.Account, 0, len(seed))}
	for i := range seed {
		s.seed = append(s.seed, seed[i].Clone())
	}
	s.accounts = s.load()
	return s
}

// NewDemoStore creates a store holding the two demo accounts.
func NewDemoStore() *Store {
	return NewStore(DemoSeed())
}

func (s *Store) load() map[string]*slot {
	accounts := make(map[string]*slot, len(s.seed))
	for i := range s.seed {
		accounts[s.seed[i].ID] = &slot{account: s.seed[i].Clone()}
	}
	return accounts
}

// Reset discards every mutation and history entry and restores the seed.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = s.load()
}

func (s *Store) Get(id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.accounts[id]
	if !ok {
		return models.Account{}, fmt.Errorf("account %q: %w", id, errors.ErrAccountNotFound)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.account.Clone(), nil
}

// List returns copies of all accounts ordered by id.
func (s *Store) List() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Account, 0, len(ids))
	for _, id := range ids {
		sl := s.accounts[id]
		sl.mu.Lock()
		out = append(out, sl.account.Clone())
		sl.mu.Unlock()
	}
	return out
}

// FindByName looks an account up by display name, ignoring case and
// surrounding whitespace. Names are not unique; the lowest id wins.
func (s *Store) FindByName(name string) (models.Account, error) {
	want := strings.TrimSpace(name)
	if want != "" {
		for _, a := range s.List() {
			if strings.EqualFold(a.Name, want) {
				return a, nil
			}
		}
	}
	return models.Account{}, fmt.Errorf("account named %q: %w", name, errors.ErrAccountNotFound)
}

// withAccounts runs fn with the live accounts for ids, in the order given.
// Locks are taken in ascending id order so that concurrent multi-account
// operations cannot deadlock. fn must validate before it mutates anything.
func (s *Store) withAccounts(ids []string, fn func(accts []*models.Account) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make(map[string]*slot, len(ids))
	for _, id := range ids {
		sl, ok := s.accounts[id]
		if !ok {
			return fmt.Errorf("account %q: %w", id, errors.ErrAccountNotFound)
		}
		slots[id] = sl
	}

	order := make([]string, 0, len(slots))
	for id := range slots {
		order = append(order, id)
	}
	sort.Strings(order)
	for _, id := range order {
		slots[id].mu.Lock()
	}
	defer func() {
		for i := len(order) - 1; i >= 0; i-- {
			slots[order[i]].mu.Unlock()
		}
	}()

	accts := make([]*models.Account, len(ids))
	for i, id := range ids {
		accts[i] = &slots[id].account
	}
	return fn(accts)
}
