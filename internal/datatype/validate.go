package datatype

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "finpro/internal/errors"
)

// ValidateConstraints checks that every constraint key is legal for the data
// type's capability flags. Used when columns are created or edited.
func ValidateConstraints(dataType string, constraints map[string]interface{}) error {
	spec, ok := Lookup(dataType)
	if !ok {
		return apperrors.WithMessagef(apperrors.ErrValidation, "Unknown data type %q", dataType)
	}
	for key := range constraints {
		if !spec.Allows(key) {
			return apperrors.WithMessagef(apperrors.ErrConstraintNotAllowed,
				"Constraint %q is not supported by data type %q", key, dataType)
		}
	}
	return nil
}

// ValidateValue checks a raw value against a data type and its constraints.
// It is pure: no side effects, never partially applies. A nil return means
// the value is acceptable as-is.
func ValidateValue(value string, dataType string, constraints map[string]interface{}) error {
	spec, ok := Lookup(dataType)
	if !ok {
		return apperrors.WithMessagef(apperrors.ErrValidation, "Unknown data type %q", dataType)
	}
	if err := ValidateConstraints(spec.Slug, constraints); err != nil {
		return err
	}

	switch spec.Slug {
	case Decimal:
		return validateDecimal(value, constraints)
	case String, URL:
		if spec.Slug == URL {
			if err := validateURL(value); err != nil {
				return err
			}
		}
		return validateString(value, constraints)
	case Date:
		return validateDate(value)
	}
	return nil
}

func validateDecimal(value string, constraints map[string]interface{}) error {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return apperrors.WithMessagef(apperrors.ErrValidation, "%q is not a valid decimal", value)
	}

	if places, ok := intConstraint(constraints, ConstraintDecimalPlaces); ok {
		// The value must round-trip through quantization at the configured
		// scale; values that need more precision are rejected.
		if !d.Equal(d.Round(int32(places))) {
			return apperrors.WithMessagef(apperrors.ErrValidation,
				"%s has more than %d decimal places", d.String(), places)
		}
	}

	if min, ok := decimalConstraint(constraints, ConstraintMin); ok && d.LessThan(min) {
		return apperrors.WithMessagef(apperrors.ErrValidation,
			"%s is below the minimum of %s", d.String(), min.String())
	}
	if max, ok := decimalConstraint(constraints, ConstraintMax); ok && d.GreaterThan(max) {
		return apperrors.WithMessagef(apperrors.ErrValidation,
			"%s is above the maximum of %s", d.String(), max.String())
	}
	return nil
}

func validateString(value string, constraints map[string]interface{}) error {
	if limit, ok := intConstraint(constraints, ConstraintCharacterLimit); ok && len(value) > limit {
		return apperrors.WithMessagef(apperrors.ErrValidation,
			"Value exceeds the %d character limit", limit)
	}
	if minLen, ok := intConstraint(constraints, ConstraintCharacterMinimum); ok && len(value) < minLen {
		return apperrors.WithMessagef(apperrors.ErrValidation,
			"Value is shorter than the %d character minimum", minLen)
	}
	if allCaps, ok := boolConstraint(constraints, ConstraintAllCaps); ok && allCaps {
		if value != strings.ToUpper(value) {
			return apperrors.WithMessage(apperrors.ErrValidation, "Value must be upper case")
		}
	}
	if pattern, ok := stringConstraint(constraints, ConstraintRegex); ok {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return apperrors.WithMessagef(apperrors.ErrValidation, "Invalid regex constraint %q", pattern)
		}
		if !re.MatchString(value) {
			return apperrors.WithMessagef(apperrors.ErrValidation,
				"Value does not match required pattern %q", pattern)
		}
	}
	return nil
}

func validateDate(value string) error {
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return apperrors.WithMessagef(apperrors.ErrValidation,
			"%q is not a valid date (expected YYYY-MM-DD)", value)
	}
	return nil
}

func validateURL(value string) error {
	u, err := url.ParseRequestURI(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.WithMessagef(apperrors.ErrValidation, "%q is not a valid URL", value)
	}
	return nil
}

// Constraint dicts come either from code (typed values) or from JSON columns
// (float64/string), so each accessor accepts both shapes.

func intConstraint(constraints map[string]interface{}, key string) (int, bool) {
	raw, ok := constraints[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

func decimalConstraint(constraints map[string]interface{}, key string) (decimal.Decimal, bool) {
	raw, ok := constraints[key]
	if !ok {
		return decimal.Zero, false
	}
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}

func boolConstraint(constraints map[string]interface{}, key string) (bool, bool) {
	raw, ok := constraints[key]
	if !ok {
		return false, false
	}
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		return v == "true" || v == "1", true
	}
	return false, false
}

func stringConstraint(constraints map[string]interface{}, key string) (string, bool) {
	raw, ok := constraints[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok && s != ""
}

// DecimalPlaces extracts the decimal_places constraint, defaulting to 2.
func DecimalPlaces(constraints map[string]interface{}) int {
	if places, ok := intConstraint(constraints, ConstraintDecimalPlaces); ok {
		return places
	}
	return 2
}
