package models

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
)

// Denomination is a currency or commodity code tracked on an account.
type Denomination string

const (
	TRY Denomination = "TRY"
	USD Denomination = "USD"
	EUR Denomination = "EUR"
	XAU Denomination = "XAU" // gold, in grams
)

// HomeDenomination is the primary balance unit; every exchange goes through it.
const HomeDenomination = TRY

const (
	homeScale    int32 = 2
	foreignScale int32 = 4
)

func (d Denomination) IsHome() bool {
	return d == HomeDenomination
}

// Scale is the number of decimal places a transaction record keeps for d.
func (d Denomination) Scale() int32 {
	if d.IsHome() {
		return homeScale
	}
	return foreignScale
}

// Round rounds v to the record precision of d.
func (d Denomination) Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(d.Scale())
}

// Valid reports whether d looks like a code: 3 to 5 upper-case ASCII letters.
func (d Denomination) Valid() bool {
	if len(d) < 3 || len(d) > 5 {
		return false
	}
	for _, c := range d {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// Rate is the number of home-currency units equal to one unit of Denomination.
type Rate struct {
	Denomination Denomination    `json:"denomination"`
	RateToHome   decimal.Decimal `json:"rate_to_home"`
}

// RateTable maps a foreign denomination to its price in home-currency units.
// It is an input to each exchange call and is never mutated by the ledger.
type RateTable map[Denomination]decimal.Decimal

// Lookup returns the rate for d.
func (t RateTable) Lookup(d Denomination) (decimal.Decimal, error) {
	rate, ok := t[d]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s: %w", d, errors.ErrUnknownDenomination)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s rate %s: %w", d, rate, errors.ErrInvalidRate)
	}
	return rate, nil
}

// Rates returns the table as a slice sorted by denomination.
func (t RateTable) Rates() []Rate {
	out := make([]Rate, 0, len(t))
	for d, r := range t {
		out = append(out, Rate{Denomination: d, RateToHome: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denomination < out[j].Denomination })
	return out
}

// Clone returns an independent copy of the table.
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for d, r := range t {
		out[d] = r
	}
	return out
}
