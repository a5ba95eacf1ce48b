package ledger

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
	"github.com/riteshkumar/ledger-assistant/internal/models"
)

// Receipt is the outcome of a single-account operation.
type Receipt struct {
	Account     models.Account
	Before      models.AccountBalanceSnapshot
	Transaction models.Transaction
}

// TransferReceipt is the outcome of a transfer; both sides committed together.
type TransferReceipt struct {
	From       models.Account
	To         models.Account
	FromBefore models.AccountBalanceSnapshot
	ToBefore   models.AccountBalanceSnapshot
	Sent       models.Transaction
	Received   models.Transaction
}

// Engine applies deposits, withdrawals, transfers and exchanges to a Store.
// Every precondition is checked before the first mutation, so a failed
// operation leaves balances and histories untouched.
type Engine struct {
	store *Store
	now   func() time.Time
	seq   atomic.Uint64
}

type Option func(*Engine)

// WithClock overrides the time source used for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(store *Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// record stamps a new transaction with a sequence number and a UUIDv7 id.
// It is called while the owning accounts are locked, so Seq follows commit
// order for any single account.
func (e *Engine) record(tx models.Transaction, at time.Time) models.Transaction {
	tx.Seq = e.seq.Add(1)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	tx.ID = id.String()
	tx.Timestamp = at
	return tx
}

// recordable reports whether amount is positive and still non-zero once
// rounded to the precision records keep for d.
func recordable(d models.Denomination, amount decimal.Decimal) bool {
	return amount.IsPositive() && !d.Round(amount).IsZero()
}

func (e *Engine) Deposit(accountID string, amount decimal.Decimal) (Receipt, error) {
	if !recordable(models.HomeDenomination, amount) {
		return Receipt{}, errors.NewOperationError("deposit", errors.ErrInvalidAmount)
	}

	var receipt Receipt
	err := e.store.withAccounts([]string{accountID}, func(accts []*models.Account) error {
		a := accts[0]
		home := models.HomeDenomination
		receipt.Before = a.Snapshot()

		a.HomeBalance = a.HomeBalance.Add(amount)
		tx := e.record(models.Transaction{
			Kind:             models.KindDeposit,
			FromDenomination: home,
			ToDenomination:   home,
			Amount:           home.Round(amount),
			CounterAmount:    home.Round(amount),
			Description:      fmt.Sprintf("Deposit of %s %s", home.Round(amount).StringFixed(home.Scale()), home),
		}, e.now())
		prepend(a, tx)

		receipt.Account = a.Clone()
		receipt.Transaction = tx
		return nil
	})
	if err != nil {
		return Receipt{}, errors.NewOperationError("deposit", err)
	}
	return receipt, nil
}

func (e *Engine) Withdraw(accountID string, amount decimal.Decimal) (Receipt, error) {
	if !recordable(models.HomeDenomination, amount) {
		return Receipt{}, errors.NewOperationError("withdraw", errors.ErrInvalidAmount)
	}

	var receipt Receipt
	err := e.store.withAccounts([]string{accountID}, func(accts []*models.Account) error {
		a := accts[0]
		home := models.HomeDenomination
		if amount.GreaterThan(a.HomeBalance) {
			return fmt.Errorf("balance %s, requested %s: %w", a.HomeBalance, amount, errors.ErrInsufficientFunds)
		}
		receipt.Before = a.Snapshot()

		a.HomeBalance = a.HomeBalance.Sub(amount)
		tx := e.record(models.Transaction{
			Kind:             models.KindWithdraw,
			FromDenomination: home,
			ToDenomination:   home,
			Amount:           home.Round(amount),
			CounterAmount:    home.Round(amount),
			Description:      fmt.Sprintf("Withdrawal of %s %s", home.Round(amount).StringFixed(home.Scale()), home),
		}, e.now())
		prepend(a, tx)

		receipt.Account = a.Clone()
		receipt.Transaction = tx
		return nil
	})
	if err != nil {
		return Receipt{}, errors.NewOperationError("withdraw", err)
	}
	return receipt, nil
}

// Transfer moves home currency between two distinct accounts. Both sides
// are applied under the locks of both accounts or not at all.
func (e *Engine) Transfer(fromID, toID string, amount decimal.Decimal) (TransferReceipt, error) {
	if fromID == toID {
		return TransferReceipt{}, errors.NewOperationError("transfer", errors.ErrSameAccount)
	}
	if !recordable(models.HomeDenomination, amount) {
		return TransferReceipt{}, errors.NewOperationError("transfer", errors.ErrInvalidAmount)
	}

	var receipt TransferReceipt
	err := e.store.withAccounts([]string{fromID, toID}, func(accts []*models.Account) error {
		from, to := accts[0], accts[1]
		home := models.HomeDenomination
		if amount.GreaterThan(from.HomeBalance) {
			return fmt.Errorf("source balance %s, requested %s: %w", from.HomeBalance, amount, errors.ErrInsufficientFunds)
		}
		receipt.FromBefore = from.Snapshot()
		receipt.ToBefore = to.Snapshot()

		from.HomeBalance = from.HomeBalance.Sub(amount)
		to.HomeBalance = to.HomeBalance.Add(amount)

		at := e.now()
		sent := e.record(models.Transaction{
			Kind:             models.KindTransferSent,
			FromDenomination: home,
			ToDenomination:   home,
			Amount:           home.Round(amount),
			CounterAmount:    home.Round(amount),
			CounterpartyID:   to.ID,
			Description:      "Transfer to " + to.Name,
		}, at)
		received := e.record(models.Transaction{
			Kind:             models.KindTransferReceived,
			FromDenomination: home,
			ToDenomination:   home,
			Amount:           home.Round(amount),
			CounterAmount:    home.Round(amount),
			CounterpartyID:   from.ID,
			Description:      "Transfer from " + from.Name,
		}, at)
		prepend(from, sent)
		prepend(to, received)

		receipt.From = from.Clone()
		receipt.To = to.Clone()
		receipt.Sent = sent
		receipt.Received = received
		return nil
	})
	if err != nil {
		return TransferReceipt{}, errors.NewOperationError("transfer", err)
	}
	return receipt, nil
}

// Exchange converts between the home currency and one other denomination at
// the rate found in rates. amount is always the quantity of the non-home
// denomination: the quantity bought when from is home, the quantity sold when
// to is home.
func (e *Engine) Exchange(accountID string, from, to models.Denomination, amount decimal.Decimal, rates models.RateTable) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, errors.NewOperationError("exchange", errors.ErrInvalidAmount)
	}

	var foreign models.Denomination
	switch {
	case from.IsHome() && !to.IsHome():
		foreign = to
	case !from.IsHome() && to.IsHome():
		foreign = from
	default:
		return Receipt{}, errors.NewOperationError("exchange",
			fmt.Errorf("%s to %s: %w", from, to, errors.ErrUnsupportedExchange))
	}
	rate, err := rates.Lookup(foreign)
	if err != nil {
		return Receipt{}, errors.NewOperationError("exchange", err)
	}

	buy := from.IsHome()
	value := amount.Mul(rate)
	if !recordable(foreign, amount) || !recordable(models.HomeDenomination, value) {
		return Receipt{}, errors.NewOperationError("exchange",
			fmt.Errorf("%s %s rounds to zero in the record: %w", amount, foreign, errors.ErrInvalidAmount))
	}

	var receipt Receipt
	err = e.store.withAccounts([]string{accountID}, func(accts []*models.Account) error {
		a := accts[0]
		if buy && value.GreaterThan(a.HomeBalance) {
			return fmt.Errorf("%s %s costs %s %s, balance %s: %w",
				amount, foreign, value, from, a.HomeBalance, errors.ErrInsufficientFunds)
		}
		held := a.Balance(foreign)
		if !buy && amount.GreaterThan(held) {
			return fmt.Errorf("holding %s %s, selling %s: %w", held, foreign, amount, errors.ErrInsufficientFunds)
		}
		receipt.Before = a.Snapshot()
		if a.ForeignBalances == nil {
			a.ForeignBalances = make(map[models.Denomination]decimal.Decimal)
		}

		tx := models.Transaction{
			FromDenomination: from,
			ToDenomination:   to,
			Rate:             decimal.NewNullDecimal(rate),
		}
		if buy {
			a.HomeBalance = a.HomeBalance.Sub(value)
			a.ForeignBalances[foreign] = held.Add(amount)
			tx.Kind = models.BuyKind(foreign)
			tx.Amount = from.Round(value)
			tx.CounterAmount = to.Round(amount)
			tx.Description = fmt.Sprintf("Bought %s %s", to.Round(amount).StringFixed(to.Scale()), foreign)
		} else {
			a.ForeignBalances[foreign] = held.Sub(amount)
			a.HomeBalance = a.HomeBalance.Add(value)
			tx.Kind = models.SellKind(foreign)
			tx.Amount = from.Round(amount)
			tx.CounterAmount = to.Round(value)
			tx.Description = fmt.Sprintf("Sold %s %s", from.Round(amount).StringFixed(from.Scale()), foreign)
		}
		tx = e.record(tx, e.now())
		prepend(a, tx)

		receipt.Account = a.Clone()
		receipt.Transaction = tx
		return nil
	})
	if err != nil {
		return Receipt{}, errors.NewOperationError("exchange", err)
	}
	return receipt, nil
}

func (e *Engine) Account(id string) (models.Account, error) {
	return e.store.Get(id)
}

func (e *Engine) Accounts() []models.Account {
	return e.store.List()
}

func (e *Engine) FindByName(name string) (models.Account, error) {
	return e.store.FindByName(name)
}

func (e *Engine) History(id string, limit int) ([]models.Transaction, error) {
	return e.store.History(id, limit)
}

// Reset restores the demo seed. Sequence numbers keep increasing across
// resets so ids are never reused within a process.
func (e *Engine) Reset() {
	e.store.Reset()
}
