// Package provider wraps the external market-data API behind a typed client.
//
// Every method either returns parsed rows or one of the sentinel errors in
// internal/errors (PROVIDER_UNAVAILABLE, RATE_LIMITED, INVALID_RESPONSE,
// EMPTY_RESULT); raw transport errors never escape this package.
package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// EquityRow is one equity as returned by the provider's universe endpoint.
type EquityRow struct {
	Symbol   string
	Name     string
	Currency string
	Exchange string
	Sector   string
	Industry string
	Country  string
	ISIN     string
	CUSIP    string
}

// CryptoRow is one crypto pair from the provider's universe endpoint.
type CryptoRow struct {
	PairSymbol        string
	BaseSymbol        string
	Name              string
	CurrencyCode      string
	CirculatingSupply decimal.Decimal
	TotalSupply       decimal.Decimal
	ICODate           string // YYYY-MM-DD, may be empty
}

// CommodityRow is one commodity from the provider's universe endpoint.
type CommodityRow struct {
	Symbol   string
	Name     string
	Currency string
	Category string
	Unit     string
}

// Quote is a lightweight fast-moving price snapshot for one symbol.
type Quote struct {
	Symbol string
	Price  decimal.Decimal
	Volume int64
}

// FXRow is one currency pair with an optional rate.
type FXRow struct {
	FromCode string
	FromName string
	ToCode   string
	ToName   string
	Rate     decimal.Decimal
}

// MarketData is the provider surface the seeding and sync services consume.
type MarketData interface {
	// Name returns the provider's display name, recorded as a price source.
	Name() string

	EquityUniverse(ctx context.Context) ([]EquityRow, error)
	CryptoUniverse(ctx context.Context) ([]CryptoRow, error)
	CommodityUniverse(ctx context.Context) ([]CommodityRow, error)

	// Quote fetches the current price for a single symbol of any class.
	Quote(ctx context.Context, symbol string) (Quote, error)

	FXUniverse(ctx context.Context) ([]FXRow, error)
	FXQuote(ctx context.Context, from, to string) (FXRow, error)
}
