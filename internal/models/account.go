package models

import (
	"github.com/shopspring/decimal"
)

// AccountMode distinguishes how an account's data is entered.
// Self-managed accounts hold raw holdings; managed accounts carry
// user-entered aggregate figures instead. The two are mutually exclusive.
type AccountMode string

const (
	AccountModeSelfManaged AccountMode = "self_managed"
	AccountModeManaged     AccountMode = "managed"
)

// AccountType identifies what kind of container an account is.
type AccountType string

const (
	AccountTypeBrokerage    AccountType = "brokerage"
	AccountTypeCryptoWallet AccountType = "crypto_wallet"
	AccountTypeMetalStorage AccountType = "metal_storage"
	AccountTypeRealEstate   AccountType = "real_estate"
	AccountTypeCustom       AccountType = "custom"
)

// Portfolio groups a user's accounts.
type Portfolio struct {
	Base
	Name     string    `gorm:"not null" json:"name"`
	Currency string    `gorm:"not null;default:'USD'" json:"currency"`
	Accounts []Account `gorm:"foreignKey:PortfolioID" json:"accounts,omitempty"`
}

// Account belongs to a portfolio and has an account type and mode.
type Account struct {
	Base
	PortfolioID string      `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	Name        string      `gorm:"not null" json:"name"`
	Type        AccountType `gorm:"not null;index" json:"type"`
	Mode        AccountMode `gorm:"not null;default:'self_managed'" json:"mode"`
	Currency    string      `gorm:"not null;default:'USD'" json:"currency"`
	Broker      string      `json:"broker,omitempty"`

	// Managed-mode aggregates. Null while self-managed.
	CurrentValue   *decimal.Decimal `gorm:"type:numeric" json:"current_value,omitempty"`
	InvestedAmount *decimal.Decimal `gorm:"type:numeric" json:"invested_amount,omitempty"`
	Strategy       *string          `json:"strategy,omitempty"`

	Holdings  []Holding `gorm:"foreignKey:AccountID" json:"holdings,omitempty"`
	Portfolio Portfolio `gorm:"foreignKey:PortfolioID" json:"portfolio,omitempty"`
}

// Holding references an asset held inside a self-managed account.
type Holding struct {
	Base
	AccountID     string          `gorm:"type:uuid;not null;index" json:"account_id"`
	AssetID       string          `gorm:"type:uuid;not null;index" json:"asset_id"`
	Quantity      decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric" json:"purchase_price"`

	// OriginalSymbol preserves what the user bought, so holdings can be
	// relinked when the asset universe is reseeded.
	OriginalSymbol string `gorm:"index" json:"original_symbol"`

	Account Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Asset   Asset   `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}

// ColumnVisibility stores per-account display state for a schema column.
// Rebuilt whenever the account's active schema changes.
type ColumnVisibility struct {
	Base
	AccountID string `gorm:"type:uuid;not null;uniqueIndex:uq_visibility_account_column" json:"account_id"`
	ColumnID  string `gorm:"type:uuid;not null;uniqueIndex:uq_visibility_account_column" json:"column_id"`
	IsVisible bool   `gorm:"not null;default:true" json:"is_visible"`
}
