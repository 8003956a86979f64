package services

import (
	"errors"
	"regexp"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	apperrors "finpro/internal/errors"
	"finpro/internal/formula"
	"finpro/internal/models"
	"finpro/internal/validator"
)

// reservedIdentifiers are column identifiers backed by the system schema.
// A formula key may reference them but never shadow them.
var reservedIdentifiers = map[string]bool{
	"quantity":       true,
	"purchase_price": true,
	"price":          true,
	"symbol":         true,
	"name":           true,
	"currency":       true,
}

var keyCleanRegex = regexp.MustCompile(`[^a-z0-9_]+`)

type formulaService struct {
	db     *gorm.DB
	recalc RecalcServicer
}

// NewFormulaService creates a new FormulaServicer.
func NewFormulaService(db *gorm.DB, recalc RecalcServicer) FormulaServicer {
	return &formulaService{db: db, recalc: recalc}
}

// NormalizeKey lowercases a display title into a snake_case formula key:
// "Unrealized Gain %" becomes "unrealized_gain".
func NormalizeKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")
	key = keyCleanRegex.ReplaceAllString(key, "")
	key = strings.Trim(key, "_")
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	return key
}

// CreateFormula validates and stores a formula definition. The expression is
// parsed up front so a broken formula is rejected at write time instead of
// failing every resolution.
func (s *formulaService) CreateFormula(key, title, expression string, dependencies []string, decimalPlaces *int) (*models.Formula, error) {
	key = NormalizeKey(key)
	if err := s.validateDefinition(key, expression, dependencies); err != nil {
		return nil, err
	}

	var existing models.Formula
	err := s.db.First(&existing, "key = ?", key).Error
	if err == nil {
		return nil, apperrors.WithMessagef(apperrors.ErrDuplicateFormula, "Formula %q already exists", key)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	f := models.Formula{
		Key:           key,
		Title:         title,
		Expression:    expression,
		Dependencies:  datatypes.NewJSONSlice(dependencies),
		DecimalPlaces: decimalPlaces,
	}
	if err := s.db.Create(&f).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &f, nil
}

// UpdateFormula replaces a formula's expression and dependencies, then
// recomputes every schema whose columns use it. System formulas are frozen.
func (s *formulaService) UpdateFormula(key, expression string, dependencies []string, decimalPlaces *int) (*models.Formula, error) {
	key = NormalizeKey(key)
	f, err := s.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if f.IsSystem {
		return nil, apperrors.WithMessagef(apperrors.ErrSystemRecord, "Formula %q is system managed", key)
	}
	if err := s.validateDefinition(key, expression, dependencies); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"expression":   expression,
		"dependencies": datatypes.NewJSONSlice(dependencies),
	}
	if decimalPlaces != nil {
		updates["decimal_places"] = *decimalPlaces
	}
	if err := s.db.Model(f).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.recalcUsages(f.ID)
	return s.GetByKey(key)
}

// DeleteFormula removes a formula that no column references.
func (s *formulaService) DeleteFormula(key string) error {
	key = NormalizeKey(key)
	f, err := s.GetByKey(key)
	if err != nil {
		return err
	}
	if f.IsSystem {
		return apperrors.WithMessagef(apperrors.ErrSystemRecord, "Formula %q is system managed", key)
	}

	var inUse int64
	if err := s.db.Model(&models.SchemaColumn{}).Where("formula_id = ?", f.ID).Count(&inUse).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if inUse > 0 {
		return apperrors.WithMessagef(apperrors.ErrValidation,
			"Formula %q is referenced by %d columns", key, inUse)
	}

	if err := s.db.Delete(f).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetByKey loads a formula by its normalized key.
func (s *formulaService) GetByKey(key string) (*models.Formula, error) {
	var f models.Formula
	err := s.db.First(&f, "key = ?", NormalizeKey(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrFormulaNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &f, nil
}

// validateDefinition checks the key shape, parses the expression, and
// verifies that every identifier the expression references is declared as a
// dependency or is a reserved schema field.
func (s *formulaService) validateDefinition(key, expression string, dependencies []string) error {
	if err := validator.Var(key, "required,identifier"); err != nil {
		return apperrors.WithMessagef(apperrors.ErrValidation, "Invalid formula key %q", key)
	}
	if reservedIdentifiers[key] {
		return apperrors.WithMessagef(apperrors.ErrReservedIdentifier,
			"%q is a reserved schema identifier", key)
	}

	refs, err := formula.Identifiers(expression)
	if err != nil {
		return apperrors.WithMessagef(apperrors.ErrValidation,
			"Invalid expression: %v", err)
	}

	declared := make(map[string]bool, len(dependencies))
	for _, dep := range dependencies {
		if err := validator.Var(dep, "required,identifier"); err != nil {
			return apperrors.WithMessagef(apperrors.ErrValidation, "Invalid dependency %q", dep)
		}
		if dep == key {
			return apperrors.WithMessagef(apperrors.ErrDependencyCycle,
				"Formula %q cannot depend on itself", key)
		}
		declared[dep] = true
	}
	for _, ref := range refs {
		if !declared[ref] && !reservedIdentifiers[ref] {
			return apperrors.WithMessagef(apperrors.ErrValidation,
				"Expression references %q which is not a declared dependency", ref)
		}
	}
	return nil
}

// recalcUsages recomputes every schema that has a column using the formula.
func (s *formulaService) recalcUsages(formulaID string) {
	var schemaIDs []string
	if err := s.db.Model(&models.SchemaColumn{}).
		Where("formula_id = ?", formulaID).
		Distinct("schema_id").
		Pluck("schema_id", &schemaIDs).Error; err != nil {
		return
	}
	for _, id := range schemaIDs {
		var schema models.Schema
		if err := s.db.First(&schema, "id = ?", id).Error; err != nil {
			continue
		}
		s.recalc.SchemaChanged(&schema)
	}
}
