package services

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finpro/internal/datatype"
	apperrors "finpro/internal/errors"
	"finpro/internal/formula"
	"finpro/internal/models"
)

// columnResolver materializes effective column values for holdings.
//
// Resolution order per column:
//  1. user-sourced SchemaColumnValue, returned verbatim, never recomputed
//  2. formula source, with dependencies resolved recursively through this same
//     resolver, cycles detected and reported as configuration errors
//  3. direct field lookup on the holding or its asset
type columnResolver struct {
	db *gorm.DB
}

// NewColumnResolver creates a new ColumnResolverServicer.
func NewColumnResolver(db *gorm.DB) ColumnResolverServicer {
	return &columnResolver{db: db}
}

// Resolve computes and persists every column of the schema for one holding.
// A formula failure is fatal to that column only; other columns' values are
// still written.
func (r *columnResolver) Resolve(holding *models.Holding, schema *models.Schema) (map[string]string, error) {
	columns, err := r.schemaColumns(schema.ID)
	if err != nil {
		return nil, err
	}

	byIdentifier := make(map[string]*models.SchemaColumn, len(columns))
	for i := range columns {
		byIdentifier[columns[i].Identifier] = &columns[i]
	}

	values := make(map[string]string, len(columns))
	var firstErr error
	for i := range columns {
		col := &columns[i]
		value, err := r.resolveColumn(holding, col, byIdentifier, map[string]bool{})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		values[col.Identifier] = value
	}
	return values, firstErr
}

// GetValue resolves a single column for a holding, loading the rest of the
// schema for dependency resolution.
func (r *columnResolver) GetValue(holding *models.Holding, column *models.SchemaColumn) (string, error) {
	columns, err := r.schemaColumns(column.SchemaID)
	if err != nil {
		return "", err
	}
	byIdentifier := make(map[string]*models.SchemaColumn, len(columns))
	for i := range columns {
		byIdentifier[columns[i].Identifier] = &columns[i]
	}
	return r.resolveColumn(holding, column, byIdentifier, map[string]bool{})
}

// GetDecimal reads the materialized value for a holding/identifier pair as a
// decimal. Missing or non-numeric values resolve to zero.
func (r *columnResolver) GetDecimal(holdingID, identifier string) decimal.Decimal {
	var scv models.SchemaColumnValue
	err := r.db.Joins("JOIN schema_columns ON schema_columns.id = schema_column_values.column_id").
		Where("schema_column_values.holding_id = ? AND schema_columns.identifier = ?", holdingID, identifier).
		First(&scv).Error
	if err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(scv.Value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SetUserValue validates and writes a user override for (column, holding).
func (r *columnResolver) SetUserValue(holdingID, columnID, value string) error {
	var column models.SchemaColumn
	if err := r.db.First(&column, "id = ?", columnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrColumnNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !column.IsEditable {
		return apperrors.ErrColumnNotEditable
	}

	if err := datatype.ValidateValue(value, column.DataType, column.Constraints); err != nil {
		return err
	}

	return r.upsertSCV(columnID, holdingID, value, models.SCVSourceUser)
}

// ClearUserValue removes a user override and recomputes the column.
func (r *columnResolver) ClearUserValue(holdingID, columnID string) error {
	var column models.SchemaColumn
	if err := r.db.First(&column, "id = ?", columnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrColumnNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := r.db.Where("column_id = ? AND holding_id = ? AND source = ?",
		columnID, holdingID, models.SCVSourceUser).
		Delete(&models.SchemaColumnValue{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var holding models.Holding
	if err := r.db.Preload("Asset").Preload("Asset.Price").First(&holding, "id = ?", holdingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrHoldingNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	_, err := r.GetValue(&holding, &column)
	return err
}

// resolveColumn resolves one column. visiting carries the identifiers on the
// current recursion path so dependency cycles fail fast instead of looping.
func (r *columnResolver) resolveColumn(
	holding *models.Holding,
	column *models.SchemaColumn,
	byIdentifier map[string]*models.SchemaColumn,
	visiting map[string]bool,
) (string, error) {
	if visiting[column.Identifier] {
		return "", apperrors.WithMessagef(apperrors.ErrDependencyCycle,
			"Column %q participates in a dependency cycle", column.Identifier)
	}
	visiting[column.Identifier] = true
	defer delete(visiting, column.Identifier)

	// User overrides win and are returned verbatim.
	var scv models.SchemaColumnValue
	err := r.db.Where("column_id = ? AND holding_id = ?", column.ID, holding.ID).First(&scv).Error
	if err == nil && scv.Source == models.SCVSourceUser {
		return scv.Value, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	switch column.Source {
	case models.ColumnSourceFormula:
		return r.resolveFormulaColumn(holding, column, byIdentifier, visiting)
	case models.ColumnSourceHolding, models.ColumnSourceAsset:
		value, err := r.fieldValue(holding, column)
		if err != nil {
			return "", err
		}
		if err := r.upsertSCV(column.ID, holding.ID, value, models.SCVSourceSystem); err != nil {
			return "", err
		}
		return value, nil
	case models.ColumnSourceCustom:
		// Custom columns only carry user-entered values; absent means empty.
		if err == nil {
			return scv.Value, nil
		}
		return "", nil
	default:
		return "", apperrors.WithMessagef(apperrors.ErrValidation,
			"Column %q has unknown source %q", column.Identifier, column.Source)
	}
}

func (r *columnResolver) resolveFormulaColumn(
	holding *models.Holding,
	column *models.SchemaColumn,
	byIdentifier map[string]*models.SchemaColumn,
	visiting map[string]bool,
) (string, error) {
	if column.FormulaID == nil {
		return "", apperrors.WithMessagef(apperrors.ErrValidation,
			"Formula column %q has no formula attached", column.Identifier)
	}

	var f models.Formula
	if err := r.db.First(&f, "id = ?", *column.FormulaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.WithMessagef(apperrors.ErrFormulaNotFound,
				"Formula for column %q not found", column.Identifier)
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Build the evaluation context by resolving each declared dependency
	// through this same resolver. Dependencies that do not map to a column
	// stay absent and evaluate as zero (see formula.Evaluate).
	context := make(map[string]decimal.Decimal, len(f.Dependencies))
	for _, dep := range f.Dependencies {
		depColumn, ok := byIdentifier[dep]
		if !ok {
			continue
		}
		raw, err := r.resolveColumn(holding, depColumn, byIdentifier, visiting)
		if err != nil {
			return "", err
		}
		if d, convErr := decimal.NewFromString(strings.TrimSpace(raw)); convErr == nil {
			context[dep] = d
		}
	}

	precision := datatype.DecimalPlaces(column.Constraints)
	result, err := formula.Evaluate(&f, context, &precision)
	if err != nil {
		return "", err
	}

	value := result.StringFixed(int32(precision))
	if err := r.upsertSCV(column.ID, holding.ID, value, models.SCVSourceFormula); err != nil {
		return "", err
	}
	return value, nil
}

// fieldValue reads a holding or asset field through the column's explicit
// field-path descriptor. Unknown paths are configuration errors.
func (r *columnResolver) fieldValue(holding *models.Holding, column *models.SchemaColumn) (string, error) {
	if column.Source == models.ColumnSourceHolding {
		switch column.SourceField {
		case "quantity":
			return holding.Quantity.String(), nil
		case "purchase_price":
			return holding.PurchasePrice.String(), nil
		case "original_symbol":
			return holding.OriginalSymbol, nil
		}
		return "", apperrors.WithMessagef(apperrors.ErrValidation,
			"Unknown holding field %q for column %q", column.SourceField, column.Identifier)
	}

	asset := &holding.Asset
	if asset.ID == "" {
		if err := r.db.Preload("Price").Preload("EquityDetail").
			First(asset, "id = ?", holding.AssetID).Error; err != nil {
			return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	switch column.SourceField {
	case "symbol":
		return asset.Symbol, nil
	case "name":
		return asset.Name, nil
	case "currency":
		return asset.Currency, nil
	case "price":
		if asset.Price == nil {
			var price models.AssetPrice
			err := r.db.Where("asset_id = ?", asset.ID).First(&price).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "0", nil
			}
			if err != nil {
				return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			asset.Price = &price
		}
		return asset.Price.Price.String(), nil
	case "sector", "industry", "country", "exchange":
		return r.equityDetailField(asset, column.SourceField)
	}
	return "", apperrors.WithMessagef(apperrors.ErrValidation,
		"Unknown asset field %q for column %q", column.SourceField, column.Identifier)
}

func (r *columnResolver) equityDetailField(asset *models.Asset, field string) (string, error) {
	if asset.EquityDetail == nil {
		var detail models.EquityDetail
		err := r.db.Where("asset_id = ?", asset.ID).First(&detail).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		if err != nil {
			return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		asset.EquityDetail = &detail
	}
	switch field {
	case "sector":
		return asset.EquityDetail.Sector, nil
	case "industry":
		return asset.EquityDetail.Industry, nil
	case "country":
		return asset.EquityDetail.Country, nil
	case "exchange":
		return asset.EquityDetail.Exchange, nil
	}
	return "", nil
}

// upsertSCV writes a materialized value with per-row upsert semantics so
// concurrent writers serialize on the (column, holding) unique constraint.
// System and formula writes never replace a user override.
func (r *columnResolver) upsertSCV(columnID, holdingID, value string, source models.SCVSource) error {
	scv := models.SchemaColumnValue{
		ColumnID:  columnID,
		HoldingID: holdingID,
		Value:     value,
		Source:    source,
	}

	assignments := clause.Assignments(map[string]interface{}{"value": value, "source": string(source)})
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "column_id"}, {Name: "holding_id"}},
		DoUpdates: assignments,
	}
	if source != models.SCVSourceUser {
		conflict.Where = clause.Where{Exprs: []clause.Expression{
			clause.Neq{Column: clause.Column{Table: "schema_column_values", Name: "source"}, Value: string(models.SCVSourceUser)},
		}}
	}

	if err := r.db.Clauses(conflict).Create(&scv).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (r *columnResolver) schemaColumns(schemaID string) ([]models.SchemaColumn, error) {
	var columns []models.SchemaColumn
	if err := r.db.Where("schema_id = ?", schemaID).
		Order("display_order ASC, created_at ASC").Find(&columns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return columns, nil
}
