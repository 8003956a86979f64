package models

import "gorm.io/datatypes"

// Formula stores a named arithmetic expression over column identifiers.
// System formulas' keys are globally reserved: user formulas may not reuse
// or rename them.
type Formula struct {
	Base
	Key         string `gorm:"uniqueIndex;not null" json:"key"`
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	// Expression is arithmetic over named identifiers, e.g.
	// "(price - purchase_price) * quantity".
	Expression string `gorm:"not null" json:"expression"`

	// Dependencies lists the column identifiers the expression may reference.
	Dependencies datatypes.JSONSlice[string] `json:"dependencies"`

	// DecimalPlaces, when set, governs result rounding for system formulas.
	DecimalPlaces *int `json:"decimal_places,omitempty"`

	IsSystem bool `gorm:"not null;default:false" json:"is_system"`
}
