package models

import "gorm.io/datatypes"

// ColumnSource identifies where a schema column's value comes from.
type ColumnSource string

const (
	ColumnSourceHolding ColumnSource = "holding"
	ColumnSourceAsset   ColumnSource = "asset"
	ColumnSourceFormula ColumnSource = "formula"
	ColumnSourceCustom  ColumnSource = "custom"
)

// SCVSource tags how a materialized column value was produced.
type SCVSource string

const (
	SCVSourceSystem  SCVSource = "system"
	SCVSourceFormula SCVSource = "formula"
	SCVSourceUser    SCVSource = "user"
)

// Schema is a versioned column configuration bound to an account type and mode.
type Schema struct {
	Base
	AccountType AccountType `gorm:"not null;uniqueIndex:uq_schema_type_mode_version" json:"account_type"`
	Mode        AccountMode `gorm:"not null;uniqueIndex:uq_schema_type_mode_version" json:"mode"`
	Version     int         `gorm:"not null;default:1;uniqueIndex:uq_schema_type_mode_version" json:"version"`
	Title       string      `json:"title"`

	Columns []SchemaColumn `gorm:"foreignKey:SchemaID" json:"columns,omitempty"`
}

// SchemaColumn is one displayable or computable field of a schema.
//
// Invariants enforced by the schema service:
//   - FormulaID is set if and only if Source == formula
//   - SourceField is required for holding/asset sources, empty otherwise
//   - a default column must carry a display order
type SchemaColumn struct {
	Base
	SchemaID   string       `gorm:"type:uuid;not null;index;uniqueIndex:uq_column_schema_identifier" json:"schema_id"`
	Title      string       `gorm:"not null" json:"title"`
	Identifier string       `gorm:"not null;uniqueIndex:uq_column_schema_identifier" json:"identifier"`
	DataType   string       `gorm:"not null" json:"data_type"`
	Source     ColumnSource `gorm:"not null" json:"source"`

	// SourceField is the field path for holding/asset sources, e.g.
	// "quantity" or "price".
	SourceField string `json:"source_field,omitempty"`

	FormulaID *string `gorm:"type:uuid" json:"formula_id,omitempty"`

	// Constraints is a data-type-specific dict validated against the
	// DataType's capability flags, e.g. {"decimal_places": 2, "min": 0}.
	Constraints datatypes.JSONMap `json:"constraints"`

	IsEditable   bool `gorm:"not null;default:true" json:"is_editable"`
	IsDeletable  bool `gorm:"not null;default:true" json:"is_deletable"`
	IsSystem     bool `gorm:"not null;default:false" json:"is_system"`
	IsDefault    bool `gorm:"not null;default:false" json:"is_default"`
	DisplayOrder *int `json:"display_order,omitempty"`

	Formula *Formula `gorm:"foreignKey:FormulaID" json:"formula,omitempty"`
}

// SchemaColumnValue is the materialized value for one (column, holding) pair.
// A user-sourced value takes precedence over recomputation until cleared.
type SchemaColumnValue struct {
	Base
	ColumnID  string    `gorm:"type:uuid;not null;uniqueIndex:uq_scv_column_holding" json:"column_id"`
	HoldingID string    `gorm:"type:uuid;not null;uniqueIndex:uq_scv_column_holding;index" json:"holding_id"`
	Value     string    `json:"value"`
	Source    SCVSource `gorm:"not null;default:'system'" json:"source"`

	Column  SchemaColumn `gorm:"foreignKey:ColumnID" json:"column,omitempty"`
	Holding Holding      `gorm:"foreignKey:HoldingID" json:"holding,omitempty"`
}
