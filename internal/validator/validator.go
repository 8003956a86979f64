// Package validator provides custom validation functions for service-layer inputs.
package validator

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// validCurrencies contains ISO 4217 currency codes.
var validCurrencies = map[string]bool{
	"AED": true, "AFN": true, "ALL": true, "AMD": true, "ANG": true,
	"AOA": true, "ARS": true, "AUD": true, "AWG": true, "AZN": true,
	"BAM": true, "BBD": true, "BDT": true, "BGN": true, "BHD": true,
	"BIF": true, "BMD": true, "BND": true, "BOB": true, "BRL": true,
	"BSD": true, "BTN": true, "BWP": true, "BYN": true, "BZD": true,
	"CAD": true, "CDF": true, "CHF": true, "CLP": true, "CNY": true,
	"COP": true, "CRC": true, "CUP": true, "CVE": true, "CZK": true,
	"DJF": true, "DKK": true, "DOP": true, "DZD": true, "EGP": true,
	"ERN": true, "ETB": true, "EUR": true, "FJD": true, "FKP": true,
	"GBP": true, "GEL": true, "GHS": true, "GIP": true, "GMD": true,
	"GNF": true, "GTQ": true, "GYD": true, "HKD": true, "HNL": true,
	"HRK": true, "HTG": true, "HUF": true, "IDR": true, "ILS": true,
	"INR": true, "IQD": true, "IRR": true, "ISK": true, "JMD": true,
	"JOD": true, "JPY": true, "KES": true, "KGS": true, "KHR": true,
	"KMF": true, "KPW": true, "KRW": true, "KWD": true, "KYD": true,
	"KZT": true, "LAK": true, "LBP": true, "LKR": true, "LRD": true,
	"LSL": true, "LYD": true, "MAD": true, "MDL": true, "MGA": true,
	"MKD": true, "MMK": true, "MNT": true, "MOP": true, "MRU": true,
	"MUR": true, "MVR": true, "MWK": true, "MXN": true, "MYR": true,
	"MZN": true, "NAD": true, "NGN": true, "NIO": true, "NOK": true,
	"NPR": true, "NZD": true, "OMR": true, "PAB": true, "PEN": true,
	"PGK": true, "PHP": true, "PKR": true, "PLN": true, "PYG": true,
	"QAR": true, "RON": true, "RSD": true, "RUB": true, "RWF": true,
	"SAR": true, "SBD": true, "SCR": true, "SDG": true, "SEK": true,
	"SGD": true, "SHP": true, "SLE": true, "SOS": true, "SRD": true,
	"SSP": true, "STN": true, "SVC": true, "SYP": true, "SZL": true,
	"THB": true, "TJS": true, "TMT": true, "TND": true, "TOP": true,
	"TRY": true, "TTD": true, "TWD": true, "TZS": true, "UAH": true,
	"UGX": true, "USD": true, "UYU": true, "UZS": true, "VES": true,
	"VND": true, "VUV": true, "WST": true, "XAF": true, "XCD": true,
	"XOF": true, "XPF": true, "YER": true, "ZAR": true, "ZMW": true,
	"ZWL": true,
}

var (
	v    *validator.Validate
	once sync.Once
)

// Get returns the shared validator instance with all custom rules registered.
func Get() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("asset_class", validateAssetClass)
		_ = v.RegisterValidation("account_mode", validateAccountMode)
		_ = v.RegisterValidation("account_type", validateAccountType)
		_ = v.RegisterValidation("data_type", validateDataType)
		_ = v.RegisterValidation("column_source", validateColumnSource)
		_ = v.RegisterValidation("identifier", validateIdentifier)
	})
	return v
}

// Var validates a single value against a tag, e.g. Var(code, "iso4217").
func Var(value interface{}, tag string) error {
	return Get().Var(value, tag)
}

func validateISO4217(fl validator.FieldLevel) bool {
	return validCurrencies[fl.Field().String()]
}

func validateAssetClass(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "equity", "crypto", "commodity", "bond", "real_estate", "custom":
		return true
	}
	return false
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "brokerage", "crypto_wallet", "metal_storage", "real_estate", "custom":
		return true
	}
	return false
}

func validateAccountMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "self_managed", "managed":
		return true
	}
	return false
}

func validateDataType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "decimal", "string", "date", "url":
		return true
	}
	return false
}

func validateColumnSource(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "holding", "asset", "formula", "custom":
		return true
	}
	return false
}

func validateIdentifier(fl validator.FieldLevel) bool {
	return identifierRegex.MatchString(fl.Field().String())
}
