package reconcile

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtrace/epcis-service/internal/types"
)

func newEngine() *Engine {
	return NewEngine(zerolog.Nop())
}

func scanned(gtin, lot, serial, expiry string) *types.ScannedCode {
	code := &types.ScannedCode{IsStructuredFormat: true}
	if gtin != "" {
		code.GTIN = types.StringPtr(gtin)
	}
	if lot != "" {
		code.LotNumber = types.StringPtr(lot)
	}
	if serial != "" {
		code.SerialNumber = types.StringPtr(serial)
	}
	if expiry != "" {
		code.ExpirationDate = types.StringPtr(expiry)
	}
	return code
}

func TestMatchExactTier(t *testing.T) {
	e := newEngine()
	item := types.ProductItem{
		GTIN:           "00301430957010",
		SerialNumber:   "24052241-SN001",
		LotNumber:      "24052241",
		ExpirationDate: "2026-09-30",
	}
	code := scanned("00301430957010", "24052241", "24052241-SN001", "2026-09-30")

	result := e.Match(code, &item, 0)

	assert.Equal(t, types.TierExact, result.Tier)
	assert.True(t, result.GTINExact)
	assert.True(t, result.LotMatch)
	assert.True(t, result.SerialMatch)
	assert.True(t, result.ExpirationMatch)
	assert.Equal(t, 100, result.Score)
	assert.True(t, result.OverallMatch)
}

func TestMatchExactDoesNotReportEquivalent(t *testing.T) {
	e := newEngine()
	item := types.ProductItem{GTIN: "00301430957010", SerialNumber: "S1", LotNumber: "L1"}
	code := scanned("00301430957010", "L1", "S1", "")

	result := e.Match(code, &item, 0)

	assert.True(t, result.GTINExact)
	assert.False(t, result.GTINEquivalent)
	assert.Equal(t, types.TierExact, result.Tier)
	assert.Equal(t, 90, result.Score)
}

func TestMatchEquivalentIndicatorDigit(t *testing.T) {
	e := newEngine()
	item := types.ProductItem{GTIN: "00301430957010", SerialNumber: "S1", LotNumber: "L1"}
	code := scanned("50301439570103", "", "", "")

	result := e.Match(code, &item, 0)

	assert.False(t, result.GTINExact)
	assert.True(t, result.GTINEquivalent)
	assert.Equal(t, types.TierWeak, result.Tier)
	assert.Equal(t, 25, result.Score)
	assert.False(t, result.OverallMatch)
}

func TestMatchLotCaseInsensitive(t *testing.T) {
	e := newEngine()
	item := types.ProductItem{GTIN: "00301430957010", SerialNumber: "S1", LotNumber: "abc123"}
	code := scanned("00301430957010", "ABC123", "", "")

	result := e.Match(code, &item, 0)

	assert.True(t, result.LotMatch)
	assert.Equal(t, types.TierStrong, result.Tier)
	assert.True(t, result.OverallMatch)
}

func TestMatchUnknownLotNeverMatches(t *testing.T) {
	e := newEngine()
	item := types.ProductItem{GTIN: "00301430957010", SerialNumber: "S1", LotNumber: types.UnknownValue}
	code := scanned("00301430957010", types.UnknownValue, "", "")

	result := e.Match(code, &item, 0)

	assert.False(t, result.LotMatch)
	assert.Equal(t, types.TierWeak, result.Tier)
}

func TestBestPrefersEarlierTierOverHigherScore(t *testing.T) {
	e := newEngine()
	items := []types.ProductItem{
		// Strong tier but higher raw score via expiration match
		{GTIN: "00301430957010", SerialNumber: "OTHER", LotNumber: "L1", ExpirationDate: "2026-09-30"},
		// Exact tier, lower score, later in document order
		{GTIN: "00301430957010", SerialNumber: "S1", LotNumber: "L1", ExpirationDate: "2027-01-01"},
	}
	code := scanned("00301430957010", "L1", "S1", "2026-09-30")

	best := e.Best(code, items)

	assert.Equal(t, 1, best.ItemIndex)
	assert.Equal(t, types.TierExact, best.Tier)
}

func TestBestFirstInDocumentOrderWithinTier(t *testing.T) {
	e := newEngine()
	items := []types.ProductItem{
		{GTIN: "00301430957010", SerialNumber: "S1", LotNumber: "L1"},
		{GTIN: "00301430957010", SerialNumber: "S2", LotNumber: "L1"},
	}
	code := scanned("00301430957010", "L1", "", "")

	best := e.Best(code, items)

	assert.Equal(t, 0, best.ItemIndex)
	assert.Equal(t, types.TierStrong, best.Tier)
}

func TestBestNoCandidates(t *testing.T) {
	e := newEngine()
	code := scanned("00301430957010", "L1", "S1", "")

	best := e.Best(code, nil)

	assert.Equal(t, -1, best.ItemIndex)
	assert.Equal(t, types.TierNone, best.Tier)
	assert.False(t, best.OverallMatch)
}

func TestBestNoGTINEquivalence(t *testing.T) {
	e := newEngine()
	items := []types.ProductItem{
		{GTIN: "00999990000015", SerialNumber: "S1", LotNumber: "L1"},
	}
	code := scanned("00301430957010", "L9", "S9", "")

	best := e.Best(code, items)

	assert.Equal(t, -1, best.ItemIndex)
	assert.Equal(t, "none", best.TierName)
}

func TestRankAllOrdering(t *testing.T) {
	e := newEngine()
	items := []types.ProductItem{
		{GTIN: "00999990000015", SerialNumber: "S1", LotNumber: "L1"}, // none
		{GTIN: "00301430957010", SerialNumber: "S2", LotNumber: "L2"}, // weak
		{GTIN: "00301430957010", SerialNumber: "S1", LotNumber: "L1"}, // exact
		{GTIN: "00301430957010", SerialNumber: "S3", LotNumber: "L1"}, // strong
	}
	code := scanned("00301430957010", "L1", "S1", "")

	ranked := e.RankAll(code, items)

	require.Len(t, ranked, 4)
	assert.Equal(t, 2, ranked[0].ItemIndex)
	assert.Equal(t, types.TierExact, ranked[0].Tier)
	assert.Equal(t, 3, ranked[1].ItemIndex)
	assert.Equal(t, types.TierStrong, ranked[1].Tier)
	assert.Equal(t, 1, ranked[2].ItemIndex)
	assert.Equal(t, types.TierWeak, ranked[2].Tier)
	assert.Equal(t, 0, ranked[3].ItemIndex)
	assert.Equal(t, types.TierNone, ranked[3].Tier)
}

func TestMatchUnstructuredScan(t *testing.T) {
	e := newEngine()
	items := []types.ProductItem{
		{GTIN: "00301430957010", SerialNumber: "S1", LotNumber: "L1"},
	}
	code := &types.ScannedCode{Raw: "free text"}

	best := e.Best(code, items)

	assert.False(t, best.OverallMatch)
	assert.Equal(t, types.TierNone, best.Tier)
}
