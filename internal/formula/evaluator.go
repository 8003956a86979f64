package formula

import (
	"github.com/shopspring/decimal"

	apperrors "finpro/internal/errors"
	"finpro/internal/models"
)

// DefaultDecimalPlaces is applied to non-system formulas whose precision is
// not otherwise configured.
const DefaultDecimalPlaces = 2

// Evaluate parses and evaluates a formula against a resolved numeric context.
//
// Identifiers missing from the context resolve to zero. Callers that need
// strictness must check the context is complete before calling.
//
// Rounding is applied last. System formulas round to the caller-supplied
// precision (pass nil to keep the formula's own DecimalPlaces, or full
// precision when neither is set); user formulas always round to two places,
// half up.
func Evaluate(f *models.Formula, context map[string]decimal.Decimal, precision *int) (decimal.Decimal, error) {
	root, err := parse(f.Expression)
	if err != nil {
		return decimal.Zero, apperrors.WithMessagef(apperrors.ErrFormulaEvaluation,
			"Formula %q: %v", f.Key, err)
	}

	result, err := eval(root, context)
	if err != nil {
		return decimal.Zero, apperrors.WithMessagef(apperrors.ErrFormulaEvaluation,
			"Formula %q: %v", f.Key, err)
	}

	return applyPrecision(f, result, precision), nil
}

func eval(n *node, context map[string]decimal.Decimal) (decimal.Decimal, error) {
	switch n.kind {
	case nodeLiteral:
		return n.value, nil
	case nodeIdentifier:
		// Missing entries default to zero; see Evaluate.
		return context[n.name], nil
	case nodeBinary:
		left, err := eval(n.left, context)
		if err != nil {
			return decimal.Zero, err
		}
		right, err := eval(n.right, context)
		if err != nil {
			return decimal.Zero, err
		}
		switch n.op {
		case '+':
			return left.Add(right), nil
		case '-':
			return left.Sub(right), nil
		case '*':
			return left.Mul(right), nil
		case '/':
			if right.IsZero() {
				return decimal.Zero, errDivisionByZero
			}
			return left.Div(right), nil
		}
	}
	return decimal.Zero, errUnsupportedNode
}

var (
	errDivisionByZero  = divisionByZeroError{}
	errUnsupportedNode = unsupportedNodeError{}
)

type divisionByZeroError struct{}

func (divisionByZeroError) Error() string { return "division by zero" }

type unsupportedNodeError struct{}

func (unsupportedNodeError) Error() string { return "unsupported expression node" }

func applyPrecision(f *models.Formula, value decimal.Decimal, precision *int) decimal.Decimal {
	if f.IsSystem {
		if precision != nil {
			return value.Round(int32(*precision))
		}
		if f.DecimalPlaces != nil {
			return value.Round(int32(*f.DecimalPlaces))
		}
		return value
	}
	return value.Round(DefaultDecimalPlaces)
}
