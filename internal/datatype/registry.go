// Package datatype defines the static data-type and constraint taxonomy and
// the pure value-validation engine built on it.
//
// The registry is populated once at process initialization and read-only
// thereafter. Persisted DataType/ConstraintType rows are seeded from it so
// the database always mirrors the in-process table.
package datatype

import (
	"gorm.io/gorm"

	"finpro/internal/models"
)

// Slugs for the primitive data types.
const (
	Decimal = "decimal"
	String  = "string"
	Date    = "date"
	URL     = "url"
)

// Constraint slugs.
const (
	ConstraintDecimalPlaces    = "decimal_places"
	ConstraintMin              = "min"
	ConstraintMax              = "max"
	ConstraintCharacterLimit   = "character_limit"
	ConstraintCharacterMinimum = "character_minimum"
	ConstraintAllCaps          = "all_caps"
	ConstraintRegex            = "regex"
)

// Spec describes one data type's capabilities and which constraints they allow.
type Spec struct {
	Slug                  string
	Name                  string
	SupportsLength        bool
	SupportsDecimals      bool
	SupportsNumericLimits bool
	SupportsRegex         bool
}

var registry = map[string]Spec{
	Decimal: {Slug: Decimal, Name: "Decimal", SupportsDecimals: true, SupportsNumericLimits: true},
	String:  {Slug: String, Name: "String", SupportsLength: true, SupportsRegex: true},
	Date:    {Slug: Date, Name: "Date"},
	URL:     {Slug: URL, Name: "URL", SupportsLength: true, SupportsRegex: true},
}

// constraintCapability maps each constraint slug to the capability flag
// required of the data type it is applied to.
var constraintCapability = map[string]func(Spec) bool{
	ConstraintDecimalPlaces:    func(s Spec) bool { return s.SupportsDecimals },
	ConstraintMin:              func(s Spec) bool { return s.SupportsNumericLimits },
	ConstraintMax:              func(s Spec) bool { return s.SupportsNumericLimits },
	ConstraintCharacterLimit:   func(s Spec) bool { return s.SupportsLength },
	ConstraintCharacterMinimum: func(s Spec) bool { return s.SupportsLength },
	ConstraintAllCaps:          func(s Spec) bool { return s.SupportsLength },
	ConstraintRegex:            func(s Spec) bool { return s.SupportsRegex },
}

// Lookup returns the Spec for a data type slug.
func Lookup(slug string) (Spec, bool) {
	s, ok := registry[slug]
	return s, ok
}

// Slugs returns all registered data type slugs.
func Slugs() []string {
	return []string{Decimal, String, Date, URL}
}

// Allows reports whether the data type permits the given constraint.
func (s Spec) Allows(constraint string) bool {
	check, ok := constraintCapability[constraint]
	return ok && check(s)
}

// Seed upserts the persisted taxonomy rows from the static registry.
func Seed(db *gorm.DB) error {
	for _, slug := range Slugs() {
		spec := registry[slug]
		row := models.DataType{
			Slug:                  spec.Slug,
			Name:                  spec.Name,
			SupportsLength:        spec.SupportsLength,
			SupportsDecimals:      spec.SupportsDecimals,
			SupportsNumericLimits: spec.SupportsNumericLimits,
			SupportsRegex:         spec.SupportsRegex,
			IsSystem:              true,
		}
		if err := db.Where(models.DataType{Slug: spec.Slug}).
			Assign(row).FirstOrCreate(&models.DataType{}).Error; err != nil {
			return err
		}
	}

	constraints := []models.ConstraintType{
		{Slug: ConstraintDecimalPlaces, Name: "Decimal places", IsSystem: true},
		{Slug: ConstraintMin, Name: "Minimum value", IsSystem: true},
		{Slug: ConstraintMax, Name: "Maximum value", IsSystem: true},
		{Slug: ConstraintCharacterLimit, Name: "Character limit", IsSystem: true},
		{Slug: ConstraintCharacterMinimum, Name: "Character minimum", IsSystem: true},
		{Slug: ConstraintAllCaps, Name: "All caps", IsSystem: true},
		{Slug: ConstraintRegex, Name: "Regex", IsSystem: true},
	}
	for _, c := range constraints {
		if err := db.Where(models.ConstraintType{Slug: c.Slug}).
			Assign(c).FirstOrCreate(&models.ConstraintType{}).Error; err != nil {
			return err
		}
	}
	return nil
}
