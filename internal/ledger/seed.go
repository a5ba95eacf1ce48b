package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-assistant/internal/models"
)

var seedTime = time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)

// DemoSeed returns the fixed two-account dataset restored by Reset.
func DemoSeed() []models.Account {
	return []models.Account{
		demoAccount("user1", "Ahmet Yılmaz", 5000, "t1"),
		demoAccount("user2", "Ayşe Demir", 3000, "t2"),
	}
}

func demoAccount(id, name string, home int64, txID string) models.Account {
	opening := decimal.NewFromInt(home)
	return models.Account{
		ID:          id,
		Name:        name,
		HomeBalance: opening,
		ForeignBalances: map[models.Denomination]decimal.Decimal{
			models.USD: decimal.NewFromInt(100),
			models.EUR: decimal.NewFromInt(250),
			models.XAU: decimal.NewFromInt(5),
		},
		History: []models.Transaction{{
			ID:               txID,
			Kind:             models.KindDeposit,
			FromDenomination: models.HomeDenomination,
			ToDenomination:   models.HomeDenomination,
			Amount:           opening,
			CounterAmount:    opening,
			Timestamp:        seedTime,
			Description:      "Initial deposit",
		}},
	}
}
