package services_test

import (
	"fmt"
	"testing"

	"finpro/internal/models"
	"finpro/internal/pagination"
	"finpro/internal/services"
	"finpro/internal/testutil"
)

func TestGetBySymbol(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	testutil.AssertNoError(t, db.Create(&models.SnapshotPointer{
		Class: models.AssetClassEquity, CurrentSnapshotID: "snap-2",
	}).Error)
	testutil.CreateTestAssetWithSymbol(t, db, "snap-1", "AAPL")
	current := testutil.CreateTestAssetWithSymbol(t, db, "snap-2", "AAPL")

	resolver := services.NewColumnResolver(db)
	recalc := services.NewRecalcService(db, resolver)
	seeder := services.NewSeederService(db, &fakeMarket{}, recalc, 3)
	svc := services.NewAssetService(db, seeder)

	asset, err := svc.GetBySymbol(models.AssetClassEquity, "AAPL")
	testutil.AssertNoError(t, err)
	if asset.ID != current.ID {
		t.Errorf("expected the active-snapshot asset, got one from %s", asset.SnapshotID)
	}

	_, err = svc.GetBySymbol(models.AssetClassEquity, "NOPE")
	testutil.AssertAppError(t, err, "UNKNOWN_SYMBOL")

	_, err = svc.GetBySymbol(models.AssetClassCrypto, "BTCUSD")
	testutil.AssertAppError(t, err, "NO_ACTIVE_SNAPSHOT")
}

func TestSearchPagesThroughActiveSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	testutil.AssertNoError(t, db.Create(&models.SnapshotPointer{
		Class: models.AssetClassEquity, CurrentSnapshotID: "snap-1",
	}).Error)
	for i := 0; i < 25; i++ {
		testutil.CreateTestAssetWithSymbol(t, db, "snap-1", fmt.Sprintf("SYM%02d", i))
	}
	testutil.CreateTestAssetWithSymbol(t, db, "snap-0", "STALE")

	resolver := services.NewColumnResolver(db)
	recalc := services.NewRecalcService(db, resolver)
	seeder := services.NewSeederService(db, &fakeMarket{}, recalc, 3)
	svc := services.NewAssetService(db, seeder)

	page, err := svc.Search(models.AssetClassEquity, "", pagination.PageRequest{Page: 2, PageSize: 10})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 25 {
		t.Errorf("expected 25 items in the active snapshot, got %d", page.TotalItems)
	}
	if page.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", page.TotalPages)
	}
	if len(page.Data) != 10 {
		t.Errorf("expected 10 items on page 2, got %d", len(page.Data))
	}
	if page.Data[0].Symbol != "SYM10" {
		t.Errorf("expected page 2 to start at SYM10, got %s", page.Data[0].Symbol)
	}

	filtered, err := svc.Search(models.AssetClassEquity, "sym2", pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if filtered.TotalItems != 5 {
		t.Errorf("expected SYM20..SYM24, got %d items", filtered.TotalItems)
	}
}

func TestCreateCustomAsset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	resolver := services.NewColumnResolver(db)
	recalc := services.NewRecalcService(db, resolver)
	seeder := services.NewSeederService(db, &fakeMarket{}, recalc, 3)
	svc := services.NewAssetService(db, seeder)

	portfolio := testutil.CreateTestPortfolio(t, db)

	asset, err := svc.CreateCustomAsset(portfolio.ID, "HOUSE", "Family Home", "EUR")
	testutil.AssertNoError(t, err)
	if asset.Class != models.AssetClassCustom {
		t.Errorf("expected custom class, got %s", asset.Class)
	}
	if asset.SnapshotID != "" {
		t.Errorf("expected custom asset outside snapshots, got %q", asset.SnapshotID)
	}

	var detail models.CustomDetail
	testutil.AssertNoError(t, db.First(&detail, "asset_id = ?", asset.ID).Error)
	if detail.Reason != models.CustomReasonUser {
		t.Errorf("expected user reason, got %s", detail.Reason)
	}

	_, err = svc.CreateCustomAsset(portfolio.ID, "HOUSE", "Family Home", "EUR")
	testutil.AssertAppError(t, err, "DUPLICATE_ASSET")

	// The same symbol is fine in a different portfolio.
	other := testutil.CreateTestPortfolio(t, db)
	_, err = svc.CreateCustomAsset(other.ID, "HOUSE", "Other Home", "USD")
	testutil.AssertNoError(t, err)

	_, err = svc.CreateCustomAsset(portfolio.ID, "GOLD", "", "USD")
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")
}
