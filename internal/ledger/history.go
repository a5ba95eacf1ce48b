package ledger

import (
	"slices"

	"github.com/riteshkumar/ledger-assistant/internal/models"
)

// prepend is the only way a record enters an account's history, which keeps
// it newest first. Records already present are never touched.
func prepend(a *models.Account, tx models.Transaction) {
	a.History = slices.Insert(a.History, 0, tx)
}

// History returns up to limit records for the account, newest first.
// A limit <= 0 returns the whole history.
func (s *Store) History(id string, limit int) ([]models.Transaction, error) {
	a, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(a.History) {
		return a.History[:limit:limit], nil
	}
	return a.History, nil
}
