package services_test

import (
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"finpro/internal/models"
	"finpro/internal/services"
	"finpro/internal/testutil"
)

// setupValuation creates a schema with the standard valuation columns and a
// holding of 10 units bought at 100 with a live price of 150.
func setupValuation(t *testing.T, db *gorm.DB) (*models.Holding, *models.Schema, map[string]*models.SchemaColumn) {
	t.Helper()

	portfolio := testutil.CreateTestPortfolio(t, db)
	account := testutil.CreateTestAccount(t, db, portfolio.ID)
	asset := testutil.CreateTestAssetWithSymbol(t, db, "snap-1", "AAPL")
	testutil.SetTestPrice(t, db, asset.ID, "150")
	holding := testutil.CreateTestHolding(t, db, account, asset, "10", "100")

	schema := testutil.CreateTestSchema(t, db)
	columns := map[string]*models.SchemaColumn{}

	columns["quantity"] = testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "quantity", DataType: "decimal",
		Source: models.ColumnSourceHolding, SourceField: "quantity", IsEditable: true,
	})
	columns["purchase_price"] = testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "purchase_price", DataType: "decimal",
		Source: models.ColumnSourceHolding, SourceField: "purchase_price", IsEditable: true,
		Constraints: datatypes.JSONMap{"decimal_places": 2},
	})
	columns["price"] = testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "price", DataType: "decimal",
		Source: models.ColumnSourceAsset, SourceField: "price",
		Constraints: datatypes.JSONMap{"decimal_places": 2},
	})

	currentValue := testutil.CreateTestFormula(t, db, models.Formula{
		Key: "current_value", Expression: "quantity * price",
		Dependencies: datatypes.NewJSONSlice([]string{"quantity", "price"}),
		IsSystem:     true,
	})
	columns["current_value"] = testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "current_value", DataType: "decimal",
		Source: models.ColumnSourceFormula, FormulaID: &currentValue.ID,
		Constraints: datatypes.JSONMap{"decimal_places": 2},
	})

	gain := testutil.CreateTestFormula(t, db, models.Formula{
		Key: "unrealized_gain", Expression: "current_value - purchase_price * quantity",
		Dependencies: datatypes.NewJSONSlice([]string{"current_value", "purchase_price", "quantity"}),
		IsSystem:     true,
	})
	columns["unrealized_gain"] = testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "unrealized_gain", DataType: "decimal",
		Source: models.ColumnSourceFormula, FormulaID: &gain.ID,
		Constraints: datatypes.JSONMap{"decimal_places": 2},
	})

	return holding, schema, columns
}

func TestResolveFieldColumns(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	holding, schema, _ := setupValuation(t, db)
	resolver := services.NewColumnResolver(db)

	values, err := resolver.Resolve(holding, schema)
	testutil.AssertNoError(t, err)

	if values["quantity"] != "10" {
		t.Errorf("expected quantity 10, got %q", values["quantity"])
	}
	if values["price"] != "150" {
		t.Errorf("expected price 150, got %q", values["price"])
	}
}

func TestResolveFormulaChain(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	holding, schema, _ := setupValuation(t, db)
	resolver := services.NewColumnResolver(db)

	values, err := resolver.Resolve(holding, schema)
	testutil.AssertNoError(t, err)

	// 10 * 150 = 1500; gain = 1500 - 100*10 = 500
	if values["current_value"] != "1500.00" {
		t.Errorf("expected current_value 1500.00, got %q", values["current_value"])
	}
	if values["unrealized_gain"] != "500.00" {
		t.Errorf("expected unrealized_gain 500.00, got %q", values["unrealized_gain"])
	}
}

func TestResolvePersistsValues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	holding, schema, columns := setupValuation(t, db)
	resolver := services.NewColumnResolver(db)

	_, err := resolver.Resolve(holding, schema)
	testutil.AssertNoError(t, err)

	var scv models.SchemaColumnValue
	err = db.Where("column_id = ? AND holding_id = ?", columns["current_value"].ID, holding.ID).
		First(&scv).Error
	testutil.AssertNoError(t, err)
	if scv.Source != models.SCVSourceFormula {
		t.Errorf("expected formula source, got %s", scv.Source)
	}

	got := resolver.GetDecimal(holding.ID, "current_value")
	testutil.AssertDecimalEqual(t, got, "1500.00")
}

func TestUserOverrideWinsOverRecomputation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	holding, schema, columns := setupValuation(t, db)
	resolver := services.NewColumnResolver(db)

	_, err := resolver.Resolve(holding, schema)
	testutil.AssertNoError(t, err)

	err = resolver.SetUserValue(holding.ID, columns["purchase_price"].ID, "120.00")
	testutil.AssertNoError(t, err)

	// Recomputation must not clobber the override, and formulas must read it.
	values, err := resolver.Resolve(holding, schema)
	testutil.AssertNoError(t, err)
	if values["purchase_price"] != "120.00" {
		t.Errorf("expected override 120.00 to survive, got %q", values["purchase_price"])
	}
	// gain = 1500 - 120*10 = 300
	if values["unrealized_gain"] != "300.00" {
		t.Errorf("expected unrealized_gain 300.00, got %q", values["unrealized_gain"])
	}
}

func TestClearUserValueRevertsToComputed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	holding, schema, columns := setupValuation(t, db)
	resolver := services.NewColumnResolver(db)

	_, err := resolver.Resolve(holding, schema)
	testutil.AssertNoError(t, err)

	err = resolver.SetUserValue(holding.ID, columns["purchase_price"].ID, "120.00")
	testutil.AssertNoError(t, err)
	err = resolver.ClearUserValue(holding.ID, columns["purchase_price"].ID)
	testutil.AssertNoError(t, err)

	got := resolver.GetDecimal(holding.ID, "purchase_price")
	testutil.AssertDecimalEqual(t, got, "100")
}

func TestSetUserValueValidatesConstraints(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	holding, _, columns := setupValuation(t, db)
	resolver := services.NewColumnResolver(db)

	// purchase_price allows 2 decimal places
	err := resolver.SetUserValue(holding.ID, columns["purchase_price"].ID, "120.123")
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")

	err = resolver.SetUserValue(holding.ID, columns["purchase_price"].ID, "not a number")
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")
}

func TestSetUserValueRejectsLockedColumn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	holding, _, columns := setupValuation(t, db)
	resolver := services.NewColumnResolver(db)

	err := resolver.SetUserValue(holding.ID, columns["price"].ID, "999")
	testutil.AssertAppError(t, err, "COLUMN_NOT_EDITABLE")
}

func TestResolveDetectsDependencyCycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	portfolio := testutil.CreateTestPortfolio(t, db)
	account := testutil.CreateTestAccount(t, db, portfolio.ID)
	asset := testutil.CreateTestAsset(t, db, "snap-1")
	holding := testutil.CreateTestHolding(t, db, account, asset, "1", "1")
	schema := testutil.CreateTestSchema(t, db)

	fa := testutil.CreateTestFormula(t, db, models.Formula{
		Key: "alpha", Expression: "beta + 1",
		Dependencies: datatypes.NewJSONSlice([]string{"beta"}),
	})
	fb := testutil.CreateTestFormula(t, db, models.Formula{
		Key: "beta", Expression: "alpha + 1",
		Dependencies: datatypes.NewJSONSlice([]string{"alpha"}),
	})
	colA := testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "alpha", DataType: "decimal",
		Source: models.ColumnSourceFormula, FormulaID: &fa.ID,
	})
	testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "beta", DataType: "decimal",
		Source: models.ColumnSourceFormula, FormulaID: &fb.ID,
	})

	resolver := services.NewColumnResolver(db)
	_, err := resolver.GetValue(holding, colA)
	testutil.AssertAppError(t, err, "DEPENDENCY_CYCLE")
}

func TestCustomColumnDefaultsToEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	holding, schema, _ := setupValuation(t, db)
	custom := testutil.CreateTestColumn(t, db, schema.ID, models.SchemaColumn{
		Identifier: "notes", DataType: "string",
		Source: models.ColumnSourceCustom, IsEditable: true,
	})

	resolver := services.NewColumnResolver(db)
	value, err := resolver.GetValue(holding, custom)
	testutil.AssertNoError(t, err)
	if value != "" {
		t.Errorf("expected empty custom value, got %q", value)
	}

	err = resolver.SetUserValue(holding.ID, custom.ID, "watch earnings")
	testutil.AssertNoError(t, err)
	value, err = resolver.GetValue(holding, custom)
	testutil.AssertNoError(t, err)
	if value != "watch earnings" {
		t.Errorf("expected stored custom value, got %q", value)
	}
}
