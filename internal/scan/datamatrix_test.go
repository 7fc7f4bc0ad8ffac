package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithFNC1Separators(t *testing.T) {
	raw := "]d20100301430957010172609301024052241\x1d2124052241SNA"
	code := Parse(raw)

	require.True(t, code.IsStructuredFormat)
	require.NotNil(t, code.GTIN)
	assert.Equal(t, "00301430957010", *code.GTIN)
	require.NotNil(t, code.ExpirationDate)
	assert.Equal(t, "2026-09-30", *code.ExpirationDate)
	require.NotNil(t, code.LotNumber)
	assert.Equal(t, "24052241", *code.LotNumber)
	require.NotNil(t, code.SerialNumber)
	assert.Equal(t, "24052241SNA", *code.SerialNumber)
	assert.Equal(t, raw, code.Raw)
}

func TestParseConcatenatedWithoutSeparators(t *testing.T) {
	// No FNC1 at all: the lot ends where the serial AI begins
	code := Parse("0100301430957010102405224121SNABC")

	require.True(t, code.IsStructuredFormat)
	assert.Equal(t, "00301430957010", *code.GTIN)
	assert.Equal(t, "24052241", *code.LotNumber)
	assert.Equal(t, "SNABC", *code.SerialNumber)
}

func TestParseScannerDigitSeparator(t *testing.T) {
	// Some readers emit the literal digits 029 instead of FNC1
	raw := "01003014309570101726093010LOTA029211234567890"
	code := Parse(raw)

	require.True(t, code.IsStructuredFormat)
	assert.Equal(t, "00301430957010", *code.GTIN)
	assert.Equal(t, "LOTA", *code.LotNumber)
	assert.Equal(t, "1234567890", *code.SerialNumber)
}

func TestParseParenthesized(t *testing.T) {
	code := Parse("(01)00301430957010(17)260930(10)LOT1(21)SER1")

	require.True(t, code.IsStructuredFormat)
	assert.Equal(t, "00301430957010", *code.GTIN)
	assert.Equal(t, "2026-09-30", *code.ExpirationDate)
	assert.Equal(t, "LOT1", *code.LotNumber)
	assert.Equal(t, "SER1", *code.SerialNumber)
}

func TestParseDerivesNDC(t *testing.T) {
	code := Parse("0100301430957010")

	require.True(t, code.IsStructuredFormat)
	require.NotNil(t, code.NDC)
	assert.Equal(t, "01430-9570", *code.NDC)
}

func TestParseNoNDCForNonDrugGTIN(t *testing.T) {
	code := Parse("0100412345678909")

	require.True(t, code.IsStructuredFormat)
	assert.Nil(t, code.NDC)
}

func TestParseExpiryDayZero(t *testing.T) {
	code := Parse("01003014309570101700020010LOTX")

	require.NotNil(t, code.ExpirationDate)
	// Day 00 resolves to the last day of the month, leap year aware
	assert.Equal(t, "2000-02-29", *code.ExpirationDate)
}

func TestParseExpiryCenturyWindow(t *testing.T) {
	code := Parse("01003014309570101755063010LOTX")

	require.NotNil(t, code.ExpirationDate)
	assert.Equal(t, "1955-06-30", *code.ExpirationDate)
}

func TestParseInvalidExpiryMonthSkipped(t *testing.T) {
	code := Parse("01003014309570101726133010LOTX")

	require.True(t, code.IsStructuredFormat)
	assert.Nil(t, code.ExpirationDate)
	assert.Equal(t, "LOTX", *code.LotNumber)
}

func TestParseUnstructuredFallback(t *testing.T) {
	for _, raw := range []string{"", "hello world", "12345", "LOT-ONLY-TEXT"} {
		code := Parse(raw)
		assert.False(t, code.IsStructuredFormat, raw)
		assert.Equal(t, raw, code.Raw)
		assert.Nil(t, code.GTIN)
	}
}

func TestParseDuplicateAIKeepsFirst(t *testing.T) {
	code := Parse("0100301430957010\x1d0100412345678909")

	assert.Equal(t, "00301430957010", *code.GTIN)
}
