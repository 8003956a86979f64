package services

import (
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finpro/internal/datatype"
	apperrors "finpro/internal/errors"
	"finpro/internal/logger"
	"finpro/internal/models"
	"finpro/internal/validator"
)

// ColumnInput describes a column to add to a schema.
type ColumnInput struct {
	Title       string                 `json:"title" validate:"required"`
	Identifier  string                 `json:"identifier" validate:"required,identifier"`
	DataType    string                 `json:"data_type" validate:"required,data_type"`
	Source      models.ColumnSource    `json:"source" validate:"required,column_source"`
	SourceField string                 `json:"source_field,omitempty"`
	FormulaKey  string                 `json:"formula_key,omitempty"`
	Constraints map[string]interface{} `json:"constraints,omitempty"`
}

// holdingFields and assetFields are the field paths columns may bind to.
// Resolution matches these explicitly; there is no reflective lookup.
var holdingFields = map[string]bool{
	"quantity":        true,
	"purchase_price":  true,
	"original_symbol": true,
}

var assetFields = map[string]bool{
	"symbol": true, "name": true, "currency": true, "price": true,
	"sector": true, "industry": true, "country": true, "exchange": true,
}

type schemaService struct {
	db     *gorm.DB
	recalc RecalcServicer
}

// NewSchemaService creates a new SchemaServicer.
func NewSchemaService(db *gorm.DB, recalc RecalcServicer) SchemaServicer {
	return &schemaService{db: db, recalc: recalc}
}

// EnsureSchema returns the active schema for an account type and mode,
// creating version 1 from the built-in template on first use.
func (s *schemaService) EnsureSchema(accType models.AccountType, mode models.AccountMode) (*models.Schema, error) {
	schema, err := activeSchema(s.db, accType, mode)
	if err == nil {
		return schema, nil
	}
	if !errors.Is(err, apperrors.ErrSchemaNotFound) {
		return nil, err
	}
	return s.bootstrap(accType, mode)
}

func (s *schemaService) bootstrap(accType models.AccountType, mode models.AccountMode) (*models.Schema, error) {
	schema := &models.Schema{
		AccountType: accType,
		Mode:        mode,
		Version:     1,
		Title:       string(accType) + " default",
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(schema).Error; err != nil {
			return err
		}
		if mode != models.AccountModeSelfManaged {
			// Managed accounts carry aggregates, not holdings; their
			// schema has no default columns.
			return nil
		}

		formulas, err := ensureSystemFormulas(tx)
		if err != nil {
			return err
		}
		columns := defaultColumns(schema.ID, accType, formulas)
		for i := range columns {
			if err := tx.Create(&columns[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("schema bootstrapped", "account_type", accType, "mode", mode)
	return schema, nil
}

// ensureSystemFormulas upserts the built-in valuation formulas and returns
// them keyed by formula key.
func ensureSystemFormulas(tx *gorm.DB) (map[string]*models.Formula, error) {
	two := 2
	defs := []models.Formula{
		{
			Key: "current_value", Title: "Current Value",
			Expression:    "quantity * price",
			Dependencies:  datatypes.NewJSONSlice([]string{"quantity", "price"}),
			DecimalPlaces: &two, IsSystem: true,
		},
		{
			Key: "cost_basis", Title: "Cost Basis",
			Expression:    "quantity * purchase_price",
			Dependencies:  datatypes.NewJSONSlice([]string{"quantity", "purchase_price"}),
			DecimalPlaces: &two, IsSystem: true,
		},
		{
			Key: "unrealized_gain", Title: "Unrealized Gain",
			Expression:    "current_value - cost_basis",
			Dependencies:  datatypes.NewJSONSlice([]string{"current_value", "cost_basis"}),
			DecimalPlaces: &two, IsSystem: true,
		},
	}

	out := make(map[string]*models.Formula, len(defs))
	for i := range defs {
		var f models.Formula
		err := tx.Where("key = ?", defs[i].Key).First(&f).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Create(&defs[i]).Error; err != nil {
				return nil, err
			}
			f = defs[i]
		} else if err != nil {
			return nil, err
		}
		out[f.Key] = &f
	}
	return out, nil
}

// defaultColumns is the self-managed column template. Asset identity columns
// are locked; quantity and purchase price stay editable.
func defaultColumns(schemaID string, accType models.AccountType, formulas map[string]*models.Formula) []models.SchemaColumn {
	order := 0
	next := func() *int { o := order; order++; return &o }
	system := func(c models.SchemaColumn) models.SchemaColumn {
		c.SchemaID = schemaID
		c.IsSystem = true
		c.IsDeletable = false
		c.IsDefault = true
		c.DisplayOrder = next()
		return c
	}
	decimalConstraints := datatypes.JSONMap{datatype.ConstraintDecimalPlaces: 2}

	columns := []models.SchemaColumn{
		system(models.SchemaColumn{
			Title: "Symbol", Identifier: "symbol", DataType: datatype.String,
			Source: models.ColumnSourceAsset, SourceField: "symbol", IsEditable: false,
		}),
		system(models.SchemaColumn{
			Title: "Name", Identifier: "name", DataType: datatype.String,
			Source: models.ColumnSourceAsset, SourceField: "name", IsEditable: false,
		}),
		system(models.SchemaColumn{
			Title: "Quantity", Identifier: "quantity", DataType: datatype.Decimal,
			Source: models.ColumnSourceHolding, SourceField: "quantity", IsEditable: true,
		}),
		system(models.SchemaColumn{
			Title: "Purchase Price", Identifier: "purchase_price", DataType: datatype.Decimal,
			Source: models.ColumnSourceHolding, SourceField: "purchase_price", IsEditable: true,
			Constraints: decimalConstraints,
		}),
		system(models.SchemaColumn{
			Title: "Price", Identifier: "price", DataType: datatype.Decimal,
			Source: models.ColumnSourceAsset, SourceField: "price", IsEditable: false,
			Constraints: decimalConstraints,
		}),
	}

	for _, key := range []string{"current_value", "cost_basis", "unrealized_gain"} {
		f, ok := formulas[key]
		if !ok {
			continue
		}
		id := f.ID
		columns = append(columns, system(models.SchemaColumn{
			Title: f.Title, Identifier: f.Key, DataType: datatype.Decimal,
			Source: models.ColumnSourceFormula, FormulaID: &id, IsEditable: false,
			Constraints: decimalConstraints,
		}))
	}

	if accType == models.AccountTypeBrokerage {
		columns = append(columns,
			system(models.SchemaColumn{
				Title: "Sector", Identifier: "sector", DataType: datatype.String,
				Source: models.ColumnSourceAsset, SourceField: "sector", IsEditable: false,
			}),
			system(models.SchemaColumn{
				Title: "Exchange", Identifier: "exchange", DataType: datatype.String,
				Source: models.ColumnSourceAsset, SourceField: "exchange", IsEditable: false,
			}),
		)
	}
	return columns
}

// AddColumn validates and appends a column to a schema, then recomputes the
// schema's holdings.
func (s *schemaService) AddColumn(schemaID string, input ColumnInput) (*models.SchemaColumn, error) {
	if err := validator.Get().Struct(&input); err != nil {
		return nil, apperrors.WithMessagef(apperrors.ErrValidation, "Invalid column definition: %v", err)
	}
	if reservedIdentifiers[input.Identifier] {
		return nil, apperrors.WithMessagef(apperrors.ErrReservedIdentifier,
			"%q is a reserved schema identifier", input.Identifier)
	}
	if err := datatype.ValidateConstraints(input.DataType, input.Constraints); err != nil {
		return nil, err
	}

	var schema models.Schema
	if err := s.db.First(&schema, "id = ?", schemaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSchemaNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := s.db.Model(&models.SchemaColumn{}).
		Where("schema_id = ? AND identifier = ?", schemaID, input.Identifier).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.WithMessagef(apperrors.ErrValidation,
			"Column %q already exists on this schema", input.Identifier)
	}

	column := models.SchemaColumn{
		SchemaID:    schemaID,
		Title:       input.Title,
		Identifier:  input.Identifier,
		DataType:    input.DataType,
		Source:      input.Source,
		Constraints: datatypes.JSONMap(input.Constraints),
		IsEditable:  true,
		IsDeletable: true,
	}

	switch input.Source {
	case models.ColumnSourceFormula:
		var f models.Formula
		err := s.db.First(&f, "key = ?", NormalizeKey(input.FormulaKey)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFormulaNotFound
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		id := f.ID
		column.FormulaID = &id
		column.IsEditable = false
	case models.ColumnSourceHolding:
		if !holdingFields[input.SourceField] {
			return nil, apperrors.WithMessagef(apperrors.ErrValidation,
				"Unknown holding field %q", input.SourceField)
		}
		column.SourceField = input.SourceField
	case models.ColumnSourceAsset:
		if !assetFields[input.SourceField] {
			return nil, apperrors.WithMessagef(apperrors.ErrValidation,
				"Unknown asset field %q", input.SourceField)
		}
		column.SourceField = input.SourceField
		column.IsEditable = false
	case models.ColumnSourceCustom:
		// No binding; values are user-entered.
	}

	if err := s.db.Create(&column).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.recalc.SchemaChanged(&schema)
	return &column, nil
}

// RemoveColumn deletes a deletable column together with its materialized
// values and visibility rows.
func (s *schemaService) RemoveColumn(columnID string) error {
	var column models.SchemaColumn
	if err := s.db.First(&column, "id = ?", columnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrColumnNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if column.IsSystem || !column.IsDeletable {
		return apperrors.WithMessagef(apperrors.ErrSystemRecord,
			"Column %q cannot be deleted", column.Identifier)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("column_id = ?", columnID).Delete(&models.SchemaColumnValue{}).Error; err != nil {
			return err
		}
		if err := tx.Where("column_id = ?", columnID).Delete(&models.ColumnVisibility{}).Error; err != nil {
			return err
		}
		return tx.Delete(&column).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// InitVisibility rebuilds an account's visibility rows against its active
// schema. Existing choices survive; rows for removed columns are dropped and
// new columns appear with their default visibility.
func (s *schemaService) InitVisibility(accountID string) error {
	var account models.Account
	if err := s.db.First(&account, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	schema, err := s.EnsureSchema(account.Type, account.Mode)
	if err != nil {
		return err
	}

	var columns []models.SchemaColumn
	if err := s.db.Where("schema_id = ?", schema.ID).Find(&columns).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	columnIDs := make([]string, len(columns))
	for i := range columns {
		columnIDs[i] = columns[i].ID
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if len(columnIDs) > 0 {
			if err := tx.Where("account_id = ? AND column_id NOT IN ?", accountID, columnIDs).
				Delete(&models.ColumnVisibility{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Where("account_id = ?", accountID).
				Delete(&models.ColumnVisibility{}).Error; err != nil {
				return err
			}
		}
		for i := range columns {
			row := models.ColumnVisibility{
				AccountID: accountID,
				ColumnID:  columns[i].ID,
				IsVisible: columns[i].IsDefault,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "account_id"}, {Name: "column_id"}},
				DoNothing: true,
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetVisibility records whether the account shows a column.
func (s *schemaService) SetVisibility(accountID, columnID string, visible bool) error {
	row := models.ColumnVisibility{AccountID: accountID, ColumnID: columnID, IsVisible: visible}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "column_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"is_visible": visible}),
	}).Create(&row).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
