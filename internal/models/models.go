package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID              string                           `json:"id"`
	Name            string                           `json:"name"`
	HomeBalance     decimal.Decimal                  `json:"home_balance"`
	ForeignBalances map[Denomination]decimal.Decimal `json:"foreign_balances"`
	History         []Transaction                    `json:"-"`
}

// Balance returns the holding in d; absent entries count as zero.
func (a *Account) Balance(d Denomination) decimal.Decimal {
	if d.IsHome() {
		return a.HomeBalance
	}
	if v, ok := a.ForeignBalances[d]; ok {
		return v
	}
	return decimal.Zero
}

// Clone returns a deep copy that shares no map or slice with a.
func (a *Account) Clone() Account {
	cp := *a
	cp.ForeignBalances = make(map[Denomination]decimal.Decimal, len(a.ForeignBalances))
	for d, v := range a.ForeignBalances {
		cp.ForeignBalances[d] = v
	}
	cp.History = make([]Transaction, len(a.History))
	copy(cp.History, a.History)
	return cp
}

// Snapshot captures the balances of a without its history.
func (a *Account) Snapshot() AccountBalanceSnapshot {
	balances := make(map[Denomination]decimal.Decimal, len(a.ForeignBalances))
	for d, v := range a.ForeignBalances {
		balances[d] = v
	}
	return AccountBalanceSnapshot{
		ID:              a.ID,
		HomeBalance:     a.HomeBalance,
		ForeignBalances: balances,
	}
}

type TransactionKind string

const (
	KindDeposit          TransactionKind = "DEPOSIT"
	KindWithdraw         TransactionKind = "WITHDRAW"
	KindTransferSent     TransactionKind = "TRANSFER_SENT"
	KindTransferReceived TransactionKind = "TRANSFER_RECEIVED"
)

func BuyKind(d Denomination) TransactionKind {
	return TransactionKind("BUY_" + string(d))
}

func SellKind(d Denomination) TransactionKind {
	return TransactionKind("SELL_" + string(d))
}

// Transaction is an immutable ledger record. Amount is denominated in
// FromDenomination and CounterAmount in ToDenomination.
type Transaction struct {
	ID               string              `json:"id"`
	Seq              uint64              `json:"seq"`
	Kind             TransactionKind     `json:"kind"`
	FromDenomination Denomination        `json:"from_denomination"`
	ToDenomination   Denomination        `json:"to_denomination"`
	Amount           decimal.Decimal     `json:"amount"`
	CounterAmount    decimal.Decimal     `json:"counter_amount"`
	Rate             decimal.NullDecimal `json:"rate"`
	CounterpartyID   string              `json:"counterparty_id,omitempty"`
	Timestamp        time.Time           `json:"timestamp"`
	Description      string              `json:"description"`
}

// JournalEntry is a transaction record as persisted outside the ledger,
// tagged with the account whose history it belongs to.
type JournalEntry struct {
	AccountID string `json:"account_id"`
	Transaction
}

type AuditLog struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     string          `json:"action"`
	OldValue   json.RawMessage `json:"old_value"`
	NewValue   json.RawMessage `json:"new_value"`
	CreatedAt  time.Time       `json:"created_at"`
}

const (
	AuditActionDebit    = "DEBIT"
	AuditActionCredit   = "CREDIT"
	AuditActionExchange = "EXCHANGE"
	AuditActionReset    = "RESET"
)

const (
	EntityTypeAccount = "ACCOUNT"
	EntityTypeLedger  = "LEDGER"
)

type AccountBalanceSnapshot struct {
	ID              string                           `json:"id"`
	HomeBalance     decimal.Decimal                  `json:"home_balance"`
	ForeignBalances map[Denomination]decimal.Decimal `json:"foreign_balances"`
}
