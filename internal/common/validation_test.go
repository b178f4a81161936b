package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator().
		Field("vendor", "", Required).
		Field("currency", "usd", CurrencyCode).
		Field("invoice_date", "2024-13-40", DateISO)

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 3)
	assert.Contains(t, v.ErrorMessage(), "vendor")
	assert.Contains(t, v.ErrorMessage(), "currency")
	require.Error(t, v.Error())
}

func TestValidatorCleanInput(t *testing.T) {
	v := NewValidator().
		Field("vendor", "Acme Corp", Required).
		Field("currency", "EUR", CurrencyCode).
		Field("invoice_date", "2024-05-06", DateISO).
		Field("total_due", "1234.56", DecimalString)

	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Error())
	assert.Equal(t, "", v.ErrorMessage())
}

func TestRequired(t *testing.T) {
	assert.Nil(t, Required("f", "x"))
	assert.NotNil(t, Required("f", ""))
	assert.NotNil(t, Required("f", "   "))
	assert.NotNil(t, Required("f", nil))

	s := "value"
	assert.Nil(t, Required("f", &s))
	var nilPtr *string
	assert.NotNil(t, Required("f", nilPtr))
}

func TestLengthRules(t *testing.T) {
	assert.Nil(t, MinLength("f", "abc", 3))
	assert.NotNil(t, MinLength("f", "ab", 3))
	assert.Nil(t, MaxLength("f", "abc", 3))
	assert.NotNil(t, MaxLength("f", "abcd", 3))

	// rune-aware, not byte-aware
	assert.Nil(t, MaxLength("f", "€€€", 3))
}

func TestUUIDRule(t *testing.T) {
	assert.Nil(t, UUID("id", "8b6c1e5a-4a4f-4ad5-9e5b-3f6a1c2d4e80"))
	assert.NotNil(t, UUID("id", "not-a-uuid"))
	assert.NotNil(t, UUID("id", 42))
}

func TestCurrencyCodeRule(t *testing.T) {
	assert.Nil(t, CurrencyCode("currency", "USD"))
	assert.NotNil(t, CurrencyCode("currency", "usd"))
	assert.NotNil(t, CurrencyCode("currency", "US"))
	assert.NotNil(t, CurrencyCode("currency", "$"))
}

func TestDecimalStringRule(t *testing.T) {
	assert.Nil(t, DecimalString("amount", "0"))
	assert.Nil(t, DecimalString("amount", "-12.5"))
	assert.Nil(t, DecimalString("amount", "1234.56"))
	assert.NotNil(t, DecimalString("amount", "1,234.56"))
	assert.NotNil(t, DecimalString("amount", "$12"))
	assert.NotNil(t, DecimalString("amount", ""))
}

func TestDateISORule(t *testing.T) {
	assert.Nil(t, DateISO("d", "2024-02-29"))
	assert.NotNil(t, DateISO("d", "2023-02-29"))
	assert.NotNil(t, DateISO("d", "2024/05/06"))

	var nilPtr *string
	assert.Nil(t, DateISO("d", nilPtr))
	s := "2024-05-06"
	assert.Nil(t, DateISO("d", &s))
}
