package datatype_test

import (
	"testing"

	"finpro/internal/datatype"
	"finpro/internal/testutil"
)

func TestValidateConstraints(t *testing.T) {
	err := datatype.ValidateConstraints(datatype.Decimal, map[string]interface{}{
		"decimal_places": 2, "min": 0, "max": 100,
	})
	testutil.AssertNoError(t, err)

	err = datatype.ValidateConstraints(datatype.String, map[string]interface{}{
		"decimal_places": 2,
	})
	testutil.AssertAppError(t, err, "CONSTRAINT_NOT_ALLOWED")

	err = datatype.ValidateConstraints(datatype.Date, map[string]interface{}{
		"regex": ".*",
	})
	testutil.AssertAppError(t, err, "CONSTRAINT_NOT_ALLOWED")

	err = datatype.ValidateConstraints("json", nil)
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")
}

func TestValidateDecimalValue(t *testing.T) {
	constraints := map[string]interface{}{"decimal_places": 2, "min": 0, "max": 1000}

	cases := []struct {
		value string
		ok    bool
	}{
		{"100", true},
		{"99.99", true},
		{"0", true},
		{"1000", true},
		{"99.999", false},
		{"-1", false},
		{"1000.01", false},
		{"abc", false},
		{"", false},
	}
	for _, tc := range cases {
		err := datatype.ValidateValue(tc.value, datatype.Decimal, constraints)
		if tc.ok {
			if err != nil {
				t.Errorf("expected %q to validate, got %v", tc.value, err)
			}
		} else if err == nil {
			t.Errorf("expected %q to be rejected", tc.value)
		}
	}

	// Constraint values arriving from a JSON column are float64/string.
	jsonShaped := map[string]interface{}{"decimal_places": float64(2), "min": "0"}
	testutil.AssertNoError(t, datatype.ValidateValue("10.25", datatype.Decimal, jsonShaped))
	err := datatype.ValidateValue("10.255", datatype.Decimal, jsonShaped)
	testutil.AssertAppError(t, err, "VALIDATION_ERROR")
}

func TestValidateStringValue(t *testing.T) {
	constraints := map[string]interface{}{
		"character_limit":   5,
		"character_minimum": 2,
		"all_caps":          true,
	}

	testutil.AssertNoError(t, datatype.ValidateValue("ABCDE", datatype.String, constraints))
	testutil.AssertAppError(t,
		datatype.ValidateValue("ABCDEF", datatype.String, constraints), "VALIDATION_ERROR")
	testutil.AssertAppError(t,
		datatype.ValidateValue("A", datatype.String, constraints), "VALIDATION_ERROR")
	testutil.AssertAppError(t,
		datatype.ValidateValue("abcde", datatype.String, constraints), "VALIDATION_ERROR")

	pattern := map[string]interface{}{"regex": "^[A-Z]{1,5}$"}
	testutil.AssertNoError(t, datatype.ValidateValue("AAPL", datatype.String, pattern))
	testutil.AssertAppError(t,
		datatype.ValidateValue("aapl0", datatype.String, pattern), "VALIDATION_ERROR")
}

func TestValidateDateValue(t *testing.T) {
	testutil.AssertNoError(t, datatype.ValidateValue("2024-06-30", datatype.Date, nil))
	testutil.AssertAppError(t,
		datatype.ValidateValue("30/06/2024", datatype.Date, nil), "VALIDATION_ERROR")
	testutil.AssertAppError(t,
		datatype.ValidateValue("2024-13-01", datatype.Date, nil), "VALIDATION_ERROR")
}

func TestValidateURLValue(t *testing.T) {
	testutil.AssertNoError(t, datatype.ValidateValue("https://example.com/doc", datatype.URL, nil))
	testutil.AssertAppError(t,
		datatype.ValidateValue("ftp://example.com", datatype.URL, nil), "VALIDATION_ERROR")
	testutil.AssertAppError(t,
		datatype.ValidateValue("not a url", datatype.URL, nil), "VALIDATION_ERROR")
}

func TestDecimalPlacesDefault(t *testing.T) {
	if got := datatype.DecimalPlaces(nil); got != 2 {
		t.Errorf("expected default of 2, got %d", got)
	}
	if got := datatype.DecimalPlaces(map[string]interface{}{"decimal_places": 4}); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}
