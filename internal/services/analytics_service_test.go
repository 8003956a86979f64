package services_test

import (
	"testing"

	"finpro/internal/models"
	"finpro/internal/services"
	"finpro/internal/testutil"
)

func TestComputeBucketsByDimensionValue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	resolver := services.NewColumnResolver(db)
	portfolio := setupBuckets(t, db, resolver)

	analytic := &models.Analytic{
		PortfolioID:     portfolio.ID,
		Name:            "Sector Exposure",
		ValueIdentifier: "current_value",
		IsActive:        true,
	}
	testutil.AssertNoError(t, db.Create(analytic).Error)
	dimension := &models.AnalyticDimension{
		AnalyticID:       analytic.ID,
		Name:             "By Sector",
		SourceIdentifier: "sector",
		IsActive:         true,
	}
	testutil.AssertNoError(t, db.Create(dimension).Error)

	svc := services.NewAnalyticsService(db, resolver)
	run, err := svc.Compute(analytic.ID)
	testutil.AssertNoError(t, err)
	if run.Status != models.RunStatusSuccess {
		t.Fatalf("expected success, got %s (%s)", run.Status, run.ErrorMessage)
	}

	var results []models.AnalyticResult
	testutil.AssertNoError(t, db.Where("run_id = ?", run.ID).
		Order("sort_index ASC").Find(&results).Error)
	if len(results) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(results))
	}

	// Largest bucket first: Technology 1500 of 2000 = 75%.
	if results[0].BucketLabel != "Technology" {
		t.Errorf("expected Technology first, got %s", results[0].BucketLabel)
	}
	testutil.AssertDecimalEqual(t, results[0].TotalValue, "1500.00")
	testutil.AssertDecimalEqual(t, results[0].Percentage, "75")
	testutil.AssertDecimalEqual(t, results[1].Percentage, "25")
	if results[0].HoldingCount != 1 {
		t.Errorf("expected 1 holding per bucket, got %d", results[0].HoldingCount)
	}
}

func TestAggregateDimensionWithWeights(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	resolver := services.NewColumnResolver(db)
	portfolio := setupBuckets(t, db, resolver)

	analytic := &models.Analytic{
		PortfolioID: portfolio.ID, Name: "Geo", ValueIdentifier: "current_value", IsActive: true,
	}
	testutil.AssertNoError(t, db.Create(analytic).Error)
	dimension := &models.AnalyticDimension{
		AnalyticID: analytic.ID, Name: "By Region", SourceIdentifier: "region", IsActive: true,
	}
	testutil.AssertNoError(t, db.Create(dimension).Error)

	holdings, err := portfolioHoldingsForTest(db, portfolio.ID)
	testutil.AssertNoError(t, err)
	if len(holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(holdings))
	}

	// Split the 1500 holding 60/40 across US and EU; the other holding has
	// no weights and no region value, so it lands in the fallback bucket.
	var weighted *models.Holding
	for i := range holdings {
		if holdings[i].OriginalSymbol == "AAPL" {
			weighted = &holdings[i]
		}
	}
	testutil.AssertNoError(t, db.Create(&models.DimensionWeight{
		DimensionID: dimension.ID, HoldingID: weighted.ID,
		BucketLabel: "US", Weight: mustDecimal(t, "0.6"),
	}).Error)
	testutil.AssertNoError(t, db.Create(&models.DimensionWeight{
		DimensionID: dimension.ID, HoldingID: weighted.ID,
		BucketLabel: "EU", Weight: mustDecimal(t, "0.4"),
	}).Error)

	svc := services.NewAnalyticsService(db, resolver)
	rows := svc.AggregateDimension("current_value", dimension, holdings)

	byLabel := map[string]services.BucketRow{}
	for _, row := range rows {
		byLabel[row.Label] = row
	}
	testutil.AssertDecimalEqual(t, byLabel["US"].TotalValue, "900.00")
	testutil.AssertDecimalEqual(t, byLabel["EU"].TotalValue, "600.00")
	testutil.AssertDecimalEqual(t, byLabel[services.UnclassifiedBucket].TotalValue, "500.00")
}

func TestAggregateDimensionTiesKeepFirstSeenOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	resolver := services.NewColumnResolver(db)
	portfolio := testutil.CreateTestPortfolio(t, db)
	account := testutil.CreateTestAccount(t, db, portfolio.ID)
	schema := testutil.CreateTestSchema(t, db)
	valueCol := testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "market_value", DataType: "decimal",
		Source: models.ColumnSourceCustom, IsEditable: true,
	})
	sectorCol := testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "sector", DataType: "string",
		Source: models.ColumnSourceCustom, IsEditable: true,
	})

	dimension := &models.AnalyticDimension{
		AnalyticID: "unused", Name: "By Sector", SourceIdentifier: "sector", IsActive: true,
	}
	testutil.AssertNoError(t, db.Create(dimension).Error)

	// Equal totals; a lexicographic tiebreak would put Alpha first.
	zulu := testutil.CreateTestHolding(t, db, account,
		testutil.CreateTestAsset(t, db, "snap-1"), "1", "1")
	alpha := testutil.CreateTestHolding(t, db, account,
		testutil.CreateTestAsset(t, db, "snap-1"), "1", "1")
	testutil.AssertNoError(t, resolver.SetUserValue(zulu.ID, valueCol.ID, "100"))
	testutil.AssertNoError(t, resolver.SetUserValue(zulu.ID, sectorCol.ID, "Zulu"))
	testutil.AssertNoError(t, resolver.SetUserValue(alpha.ID, valueCol.ID, "100"))
	testutil.AssertNoError(t, resolver.SetUserValue(alpha.ID, sectorCol.ID, "Alpha"))

	svc := services.NewAnalyticsService(db, resolver)
	rows := svc.AggregateDimension("market_value", dimension, []models.Holding{*zulu, *alpha})
	if len(rows) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(rows))
	}
	if rows[0].Label != "Zulu" || rows[1].Label != "Alpha" {
		t.Errorf("expected first-seen order [Zulu Alpha], got [%s %s]",
			rows[0].Label, rows[1].Label)
	}
}

func TestAggregateDimensionSkipsZeroValues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	resolver := services.NewColumnResolver(db)
	portfolio := setupBuckets(t, db, resolver)

	dimension := &models.AnalyticDimension{
		AnalyticID: "unused", Name: "By Sector", SourceIdentifier: "sector", IsActive: true,
	}
	testutil.AssertNoError(t, db.Create(dimension).Error)

	holdings, err := portfolioHoldingsForTest(db, portfolio.ID)
	testutil.AssertNoError(t, err)

	svc := services.NewAnalyticsService(db, resolver)
	// An identifier with no materialized values resolves to zero for every
	// holding, so no bucket forms at all.
	rows := svc.AggregateDimension("no_such_identifier", dimension, holdings)
	if len(rows) != 0 {
		t.Errorf("expected no buckets, got %d", len(rows))
	}
}

func TestComputeUnknownAnalytic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	svc := services.NewAnalyticsService(db, services.NewColumnResolver(db))
	_, err := svc.Compute("no-such-id")
	testutil.AssertAppError(t, err, "ANALYTIC_NOT_FOUND")
}
