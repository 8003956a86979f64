package services

import (
	"context"

	"github.com/shopspring/decimal"

	"finpro/internal/models"
	"finpro/internal/pagination"
	"finpro/internal/provider"
)

// ColumnResolverServicer resolves effective values for schema columns.
type ColumnResolverServicer interface {
	// Resolve computes every column of the schema for one holding and
	// persists the materialized values. Returns identifier -> value.
	Resolve(holding *models.Holding, schema *models.Schema) (map[string]string, error)

	// GetValue resolves a single column for a holding.
	GetValue(holding *models.Holding, column *models.SchemaColumn) (string, error)

	// GetDecimal resolves a column for a holding as a decimal, returning
	// zero when the value is absent or non-numeric.
	GetDecimal(holdingID, identifier string) decimal.Decimal

	// SetUserValue writes a user override after validating it against the
	// column's constraints. User overrides survive recomputation.
	SetUserValue(holdingID, columnID, value string) error

	// ClearUserValue removes a user override and recomputes the value.
	ClearUserValue(holdingID, columnID string) error
}

// RecalcServicer fans change events out to targeted recomputation.
type RecalcServicer interface {
	HoldingChanged(holding *models.Holding)
	HoldingsChanged(holdings []models.Holding)
	AssetChanged(assetID string)
	FXChanged(currencyCode string)
	SchemaChanged(schema *models.Schema)
}

// AccountServicer manages accounts, holdings, and mode switching.
type AccountServicer interface {
	CreateAccount(portfolioID, name string, accType models.AccountType, mode models.AccountMode, currency string) (*models.Account, error)
	GetAccountByID(accountID string) (*models.Account, error)
	AddHolding(accountID, assetID string, quantity, purchasePrice decimal.Decimal) (*models.Holding, error)
	SwitchMode(accountID string, newMode models.AccountMode, force bool) (*models.Account, error)
}

// AssetServicer exposes the asset catalog: active-snapshot lookups, paged
// search, and user-defined custom assets.
type AssetServicer interface {
	GetBySymbol(class models.AssetClass, symbol string) (*models.Asset, error)
	Search(class models.AssetClass, query string, req pagination.PageRequest) (pagination.PageResponse[models.Asset], error)
	CreateCustomAsset(portfolioID, symbol, name, currency string) (*models.Asset, error)
}

// SeederServicer runs the snapshot-based reference data pipeline.
type SeederServicer interface {
	Seed(ctx context.Context, class models.AssetClass) (*SeedResult, error)
	Cleanup(class models.AssetClass) (int, error)
	ActiveSnapshotID(class models.AssetClass) (string, error)
}

// PriceSyncServicer refreshes prices for assets in the active snapshot.
type PriceSyncServicer interface {
	SyncSymbol(ctx context.Context, class models.AssetClass, symbol string) error
	RefreshClass(ctx context.Context, class models.AssetClass) (*SyncResult, error)
}

// FXServicer syncs currencies and rates.
type FXServicer interface {
	SyncCurrencies(ctx context.Context) (int, error)
	SyncRate(ctx context.Context, from, to string) (*models.FXRate, error)
}

// FormulaServicer manages formula definitions.
type FormulaServicer interface {
	CreateFormula(key, title, expression string, dependencies []string, decimalPlaces *int) (*models.Formula, error)
	UpdateFormula(key, expression string, dependencies []string, decimalPlaces *int) (*models.Formula, error)
	DeleteFormula(key string) error
	GetByKey(key string) (*models.Formula, error)
}

// SchemaServicer manages schemas, their columns, and per-account visibility.
type SchemaServicer interface {
	// EnsureSchema returns the active schema for an account type and mode,
	// bootstrapping it from the built-in template on first use.
	EnsureSchema(accType models.AccountType, mode models.AccountMode) (*models.Schema, error)

	AddColumn(schemaID string, input ColumnInput) (*models.SchemaColumn, error)
	RemoveColumn(columnID string) error

	// InitVisibility rebuilds the account's visibility rows against its
	// active schema, preserving existing choices.
	InitVisibility(accountID string) error
	SetVisibility(accountID, columnID string, visible bool) error
}

// AllocationServicer evaluates allocation scenarios.
type AllocationServicer interface {
	Evaluate(scenarioID string) (*models.AllocationRun, error)
}

// AnalyticsServicer computes dimension-bucketed aggregates.
type AnalyticsServicer interface {
	Compute(analyticID string) (*models.AnalyticRun, error)
	AggregateDimension(valueIdentifier string, dimension *models.AnalyticDimension, holdings []models.Holding) []BucketRow
}

// MarketData aliases the provider interface for constructor signatures.
type MarketData = provider.MarketData
