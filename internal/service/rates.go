package service

import (
	"context"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
	"github.com/riteshkumar/ledger-assistant/internal/models"
)

// RateProvider supplies the rate table used for one exchange.
type RateProvider interface {
	Rates(ctx context.Context) (models.RateTable, error)
}

// StaticRateProvider serves a fixed, configured table.
type StaticRateProvider struct {
	rates models.RateTable
}

func NewStaticRateProvider(rates models.RateTable) *StaticRateProvider {
	return &StaticRateProvider{rates: rates.Clone()}
}

func (p *StaticRateProvider) Rates(ctx context.Context) (models.RateTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.rates) == 0 {
		return nil, errors.ErrRatesUnavailable
	}
	return p.rates.Clone(), nil
}
