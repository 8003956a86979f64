package formula

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "finpro/internal/errors"
	"finpro/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEvaluate(t *testing.T) {
	t.Run("unrealized_gain", func(t *testing.T) {
		f := &models.Formula{
			Key:        "unrealized_gain",
			Expression: "(price - purchase_price) * quantity",
		}
		ctx := map[string]decimal.Decimal{
			"price":          dec("150"),
			"purchase_price": dec("100"),
			"quantity":       dec("10"),
		}

		got, err := Evaluate(f, ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(dec("500.00")) {
			t.Errorf("expected 500.00, got %s", got.String())
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		f := &models.Formula{Key: "ratio", Expression: "a / b * 100"}
		ctx := map[string]decimal.Decimal{"a": dec("1"), "b": dec("3")}

		first, err := Evaluate(f, ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := Evaluate(f, ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !first.Equal(second) {
			t.Errorf("expected identical results, got %s and %s", first, second)
		}
	})

	t.Run("missing_identifier_defaults_to_zero", func(t *testing.T) {
		f := &models.Formula{Key: "total", Expression: "price * quantity"}
		ctx := map[string]decimal.Decimal{"price": dec("10")}

		got, err := Evaluate(f, ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.IsZero() {
			t.Errorf("expected 0 for missing quantity, got %s", got)
		}
	})

	t.Run("division_by_zero", func(t *testing.T) {
		f := &models.Formula{Key: "bad_ratio", Expression: "a / b"}
		ctx := map[string]decimal.Decimal{"a": dec("1"), "b": dec("0")}

		_, err := Evaluate(f, ctx, nil)
		if !errors.Is(err, apperrors.ErrFormulaEvaluation) {
			t.Fatalf("expected FORMULA_EVALUATION error, got %v", err)
		}
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("expected *AppError, got %T", err)
		}
		if want := `Formula "bad_ratio"`; len(appErr.Message) == 0 || appErr.Message[:len(want)] != want {
			t.Errorf("error should name the formula key, got %q", appErr.Message)
		}
	})

	t.Run("malformed_expression", func(t *testing.T) {
		for _, expr := range []string{"a +", "(a * b", "a ** b", "a % b", "pow(a, 2)", "1.2.3"} {
			f := &models.Formula{Key: "broken", Expression: expr}
			if _, err := Evaluate(f, nil, nil); !errors.Is(err, apperrors.ErrFormulaEvaluation) {
				t.Errorf("expression %q: expected FORMULA_EVALUATION error, got %v", expr, err)
			}
		}
	})

	t.Run("system_precision_from_caller", func(t *testing.T) {
		f := &models.Formula{Key: "weight", Expression: "a / b", IsSystem: true}
		ctx := map[string]decimal.Decimal{"a": dec("1"), "b": dec("3")}
		places := 4

		got, err := Evaluate(f, ctx, &places)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.String() != "0.3333" {
			t.Errorf("expected 0.3333, got %s", got)
		}
	})

	t.Run("user_formula_rounds_half_up_to_two_places", func(t *testing.T) {
		f := &models.Formula{Key: "fee", Expression: "amount * 0.00125"}
		ctx := map[string]decimal.Decimal{"amount": dec("1000")}

		got, err := Evaluate(f, ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.String() != "1.25" {
			t.Errorf("expected 1.25, got %s", got)
		}

		ctx["amount"] = dec("1002")
		got, err = Evaluate(f, ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 1.2525 -> 1.25 (remainder 0.0025 is below the half)
		if got.String() != "1.25" {
			t.Errorf("expected 1.25, got %s", got)
		}
	})

	t.Run("unary_minus", func(t *testing.T) {
		f := &models.Formula{Key: "negate", Expression: "-a + 5"}
		ctx := map[string]decimal.Decimal{"a": dec("3")}

		got, err := Evaluate(f, ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.String() != "2" {
			t.Errorf("expected 2, got %s", got)
		}
	})
}

func TestIdentifiers(t *testing.T) {
	names, err := Identifiers("(price - purchase_price) * quantity + 100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"price", "purchase_price", "quantity"}
	if len(names) != len(want) {
		t.Fatalf("expected %d identifiers, got %v", len(want), names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("expected identifier %q at index %d, got %q", name, i, names[i])
		}
	}

	if _, err := Identifiers("a +"); err == nil {
		t.Error("expected parse error for malformed expression")
	}
}
