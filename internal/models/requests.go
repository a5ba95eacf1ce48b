package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type TransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// ExchangeRequest converts between the home currency and one other
// denomination. Amount is the quantity of the non-home denomination.
type ExchangeRequest struct {
	FromDenomination Denomination    `json:"from_denomination"`
	ToDenomination   Denomination    `json:"to_denomination"`
	Amount           decimal.Decimal `json:"amount"`
}

type AccountResponse struct {
	ID              string                           `json:"id"`
	Name            string                           `json:"name"`
	HomeBalance     decimal.Decimal                  `json:"home_balance"`
	ForeignBalances map[Denomination]decimal.Decimal `json:"foreign_balances"`
}

func NewAccountResponse(a Account) AccountResponse {
	balances := a.ForeignBalances
	if balances == nil {
		balances = map[Denomination]decimal.Decimal{}
	}
	return AccountResponse{
		ID:              a.ID,
		Name:            a.Name,
		HomeBalance:     a.HomeBalance,
		ForeignBalances: balances,
	}
}

type TransactionResponse struct {
	ID               string           `json:"id"`
	Kind             TransactionKind  `json:"kind"`
	FromDenomination Denomination     `json:"from_denomination"`
	ToDenomination   Denomination     `json:"to_denomination"`
	Amount           decimal.Decimal  `json:"amount"`
	CounterAmount    decimal.Decimal  `json:"counter_amount"`
	Rate             *decimal.Decimal `json:"rate,omitempty"`
	CounterpartyID   string           `json:"counterparty_id,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
	Description      string           `json:"description"`
}

func NewTransactionResponse(t Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               t.ID,
		Kind:             t.Kind,
		FromDenomination: t.FromDenomination,
		ToDenomination:   t.ToDenomination,
		Amount:           t.Amount,
		CounterAmount:    t.CounterAmount,
		Rate:             rateOf(t),
		CounterpartyID:   t.CounterpartyID,
		Timestamp:        t.Timestamp,
		Description:      t.Description,
	}
}

// rateOf returns a fresh copy of the record's rate, or nil when it has none.
func rateOf(t Transaction) *decimal.Decimal {
	if !t.Rate.Valid {
		return nil
	}
	r := t.Rate.Decimal
	return &r
}

func NewTransactionResponses(txs []Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, NewTransactionResponse(t))
	}
	return out
}

type OperationResponse struct {
	Account     AccountResponse     `json:"account"`
	Transaction TransactionResponse `json:"transaction"`
}

type TransferResponse struct {
	From     AccountResponse     `json:"from"`
	To       AccountResponse     `json:"to"`
	Sent     TransactionResponse `json:"sent"`
	Received TransactionResponse `json:"received"`
}

type RatesResponse struct {
	Home  Denomination `json:"home"`
	Rates []Rate       `json:"rates"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
