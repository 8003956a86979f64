package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finpro/internal/errors"
	"finpro/internal/models"
	"finpro/internal/provider"
)

func portfolioHoldingsForTest(db *gorm.DB, portfolioID string) ([]models.Holding, error) {
	var holdings []models.Holding
	err := db.Preload("Asset").
		Joins("JOIN accounts ON accounts.id = holdings.account_id").
		Where("accounts.portfolio_id = ?", portfolioID).
		Find(&holdings).Error
	return holdings, err
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// fakeMarket is a scriptable MarketData implementation for service tests.
type fakeMarket struct {
	equities    []provider.EquityRow
	cryptos     []provider.CryptoRow
	commodities []provider.CommodityRow
	quotes      map[string]decimal.Decimal
	fxRates     map[string]decimal.Decimal
	fxRows      []provider.FXRow

	quoteCalls int
	failQuotes bool
}

func (f *fakeMarket) Name() string { return "fake" }

func (f *fakeMarket) EquityUniverse(ctx context.Context) ([]provider.EquityRow, error) {
	if len(f.equities) == 0 {
		return nil, apperrors.ErrEmptyResult
	}
	return f.equities, nil
}

func (f *fakeMarket) CryptoUniverse(ctx context.Context) ([]provider.CryptoRow, error) {
	if len(f.cryptos) == 0 {
		return nil, apperrors.ErrEmptyResult
	}
	return f.cryptos, nil
}

func (f *fakeMarket) CommodityUniverse(ctx context.Context) ([]provider.CommodityRow, error) {
	if len(f.commodities) == 0 {
		return nil, apperrors.ErrEmptyResult
	}
	return f.commodities, nil
}

func (f *fakeMarket) Quote(ctx context.Context, symbol string) (provider.Quote, error) {
	f.quoteCalls++
	if f.failQuotes {
		return provider.Quote{}, apperrors.ErrProviderUnavailable
	}
	price, ok := f.quotes[symbol]
	if !ok {
		return provider.Quote{}, apperrors.ErrEmptyResult
	}
	return provider.Quote{Symbol: symbol, Price: price}, nil
}

func (f *fakeMarket) FXUniverse(ctx context.Context) ([]provider.FXRow, error) {
	if len(f.fxRows) == 0 {
		return nil, apperrors.ErrEmptyResult
	}
	return f.fxRows, nil
}

func (f *fakeMarket) FXQuote(ctx context.Context, from, to string) (provider.FXRow, error) {
	rate, ok := f.fxRates[from+to]
	if !ok {
		return provider.FXRow{}, apperrors.ErrEmptyResult
	}
	return provider.FXRow{FromCode: from, ToCode: to, Rate: rate}, nil
}
