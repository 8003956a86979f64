package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finpro/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestPortfolio creates a USD portfolio with a unique name.
func CreateTestPortfolio(t *testing.T, db *gorm.DB) *models.Portfolio {
	t.Helper()

	p := &models.Portfolio{
		Name:     fmt.Sprintf("Test Portfolio %d", nextID()),
		Currency: "USD",
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return p
}

// CreateTestAccount creates a self-managed brokerage account.
func CreateTestAccount(t *testing.T, db *gorm.DB, portfolioID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithMode(t, db, portfolioID, models.AccountTypeBrokerage, models.AccountModeSelfManaged)
}

// CreateTestAccountWithMode creates an account of the given type and mode.
func CreateTestAccountWithMode(t *testing.T, db *gorm.DB, portfolioID string, accType models.AccountType, mode models.AccountMode) *models.Account {
	t.Helper()

	account := &models.Account{
		PortfolioID: portfolioID,
		Name:        fmt.Sprintf("Test Account %d", nextID()),
		Type:        accType,
		Mode:        mode,
		Currency:    "USD",
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestAsset creates an equity asset tagged with the given snapshot.
func CreateTestAsset(t *testing.T, db *gorm.DB, snapshotID string) *models.Asset {
	t.Helper()
	return CreateTestAssetWithSymbol(t, db, snapshotID, fmt.Sprintf("TST%d", nextID()))
}

// CreateTestAssetWithSymbol creates an equity asset with the given symbol.
func CreateTestAssetWithSymbol(t *testing.T, db *gorm.DB, snapshotID, symbol string) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		Class:      models.AssetClassEquity,
		Symbol:     symbol,
		Name:       fmt.Sprintf("Test Equity %s", symbol),
		Currency:   "USD",
		SnapshotID: snapshotID,
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}

// SetTestPrice writes a price row for the asset.
func SetTestPrice(t *testing.T, db *gorm.DB, assetID, price string) *models.AssetPrice {
	t.Helper()

	p, err := decimal.NewFromString(price)
	if err != nil {
		t.Fatalf("bad price %q: %v", price, err)
	}
	row := &models.AssetPrice{
		AssetID:  assetID,
		Price:    p,
		Source:   "test",
		QuotedAt: time.Now().UTC(),
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to create test price: %v", err)
	}
	return row
}

// CreateTestHolding attaches an asset to an account.
func CreateTestHolding(t *testing.T, db *gorm.DB, account *models.Account, asset *models.Asset, quantity, purchasePrice string) *models.Holding {
	t.Helper()

	q, err := decimal.NewFromString(quantity)
	if err != nil {
		t.Fatalf("bad quantity %q: %v", quantity, err)
	}
	pp, err := decimal.NewFromString(purchasePrice)
	if err != nil {
		t.Fatalf("bad purchase price %q: %v", purchasePrice, err)
	}

	holding := &models.Holding{
		AccountID:      account.ID,
		AssetID:        asset.ID,
		Quantity:       q,
		PurchasePrice:  pp,
		OriginalSymbol: asset.Symbol,
	}
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create test holding: %v", err)
	}
	holding.Account = *account
	holding.Asset = *asset
	return holding
}

// CreateTestSchema creates an empty schema for brokerage/self-managed.
func CreateTestSchema(t *testing.T, db *gorm.DB) *models.Schema {
	t.Helper()

	schema := &models.Schema{
		AccountType: models.AccountTypeBrokerage,
		Mode:        models.AccountModeSelfManaged,
		Version:     int(nextID()),
		Title:       "test schema",
	}
	if err := db.Create(schema).Error; err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	return schema
}

// CreateTestColumn adds a column to a schema.
func CreateTestColumn(t *testing.T, db *gorm.DB, schemaID string, column models.SchemaColumn) *models.SchemaColumn {
	t.Helper()

	column.SchemaID = schemaID
	if column.Title == "" {
		column.Title = column.Identifier
	}
	if err := db.Create(&column).Error; err != nil {
		t.Fatalf("failed to create test column: %v", err)
	}
	return &column
}

// CreateTestFormula stores a formula definition.
func CreateTestFormula(t *testing.T, db *gorm.DB, f models.Formula) *models.Formula {
	t.Helper()

	if f.Title == "" {
		f.Title = f.Key
	}
	if err := db.Create(&f).Error; err != nil {
		t.Fatalf("failed to create test formula: %v", err)
	}
	return &f
}
