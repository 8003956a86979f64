package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FXCurrency is one ISO 4217 currency known to the system.
type FXCurrency struct {
	Base
	Code string `gorm:"uniqueIndex;not null;size:3" json:"code"`
	Name string `json:"name"`
}

// FXRate is the latest conversion rate for one currency pair, updated in place.
type FXRate struct {
	Base
	FromCode string          `gorm:"not null;size:3;uniqueIndex:uq_fx_rate_pair" json:"from_code"`
	ToCode   string          `gorm:"not null;size:3;uniqueIndex:uq_fx_rate_pair" json:"to_code"`
	Rate     decimal.Decimal `gorm:"type:numeric;not null" json:"rate"`
	QuotedAt time.Time       `json:"quoted_at"`
}
