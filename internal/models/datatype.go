package models

import "gorm.io/gorm"

// DataType describes a primitive value shape a schema column can carry,
// together with capability flags that determine which constraints are legal.
// System rows are seeded once at startup and cannot be deleted.
type DataType struct {
	Base
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	SupportsLength        bool `gorm:"not null;default:false" json:"supports_length"`
	SupportsDecimals      bool `gorm:"not null;default:false" json:"supports_decimals"`
	SupportsNumericLimits bool `gorm:"not null;default:false" json:"supports_numeric_limits"`
	SupportsRegex         bool `gorm:"not null;default:false" json:"supports_regex"`

	IsSystem bool `gorm:"not null;default:true" json:"is_system"`
}

// BeforeDelete blocks deletion of system-owned taxonomy rows.
func (d *DataType) BeforeDelete(tx *gorm.DB) error {
	if d.IsSystem {
		return gorm.ErrInvalidData
	}
	return nil
}

// ConstraintType describes a kind of constraint that can be applied to a
// column of a given data type, e.g. decimal_places or character_limit.
type ConstraintType struct {
	Base
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	IsSystem    bool   `gorm:"not null;default:true" json:"is_system"`
}

// BeforeDelete blocks deletion of system-owned taxonomy rows.
func (c *ConstraintType) BeforeDelete(tx *gorm.DB) error {
	if c.IsSystem {
		return gorm.ErrInvalidData
	}
	return nil
}
