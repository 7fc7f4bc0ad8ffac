// Package reconcile matches scanned barcode payloads against the product
// items extracted from an EPCIS document.
package reconcile

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rxtrace/epcis-service/internal/gtin"
	"github.com/rxtrace/epcis-service/internal/types"
)

// Score weights per matched field. GTIN equivalence without exact string
// equality earns the reduced weight.
const (
	scoreGTINExact      = 40
	scoreGTINEquivalent = 25
	scoreLot            = 30
	scoreSerial         = 20
	scoreExpiration     = 10

	// acceptanceThreshold is the minimum score for an overall match when
	// the candidate does not already qualify through its tier.
	acceptanceThreshold = 60
)

// Engine ranks ProductItem candidates for one scan. It holds no state
// between calls and never returns an error: a scan with no candidate is a
// valid result with OverallMatch false.
type Engine struct {
	log zerolog.Logger
}

func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "reconcile").Logger()}
}

// Match evaluates one candidate against the scan.
func (e *Engine) Match(code *types.ScannedCode, item *types.ProductItem, index int) types.MatchResult {
	result := types.MatchResult{ItemIndex: index, Tier: types.TierNone}

	// gtinOK drives the tier cascade. The reported GTINEquivalent flag is
	// narrower: true only when the GTINs differ yet normalize together.
	var gtinOK bool
	if code.GTIN != nil && item.GTIN != "" {
		result.GTINExact = *code.GTIN == item.GTIN ||
			gtin.Normalize(*code.GTIN) == gtin.Normalize(item.GTIN)
		result.GTINEquivalent = !result.GTINExact && gtin.Equivalent(*code.GTIN, item.GTIN)
		gtinOK = result.GTINExact || result.GTINEquivalent
	}
	if code.LotNumber != nil && item.LotNumber != "" && item.LotNumber != types.UnknownValue {
		result.LotMatch = strings.EqualFold(*code.LotNumber, item.LotNumber)
	}
	if code.SerialNumber != nil && item.SerialNumber != "" {
		result.SerialMatch = *code.SerialNumber == item.SerialNumber
	}
	if code.ExpirationDate != nil && item.ExpirationDate != "" && item.ExpirationDate != types.UnknownValue {
		result.ExpirationMatch = *code.ExpirationDate == item.ExpirationDate
	}

	switch {
	case gtinOK && result.LotMatch && result.SerialMatch:
		result.Tier = types.TierExact
	case gtinOK && result.LotMatch:
		result.Tier = types.TierStrong
	case gtinOK:
		result.Tier = types.TierWeak
	}
	result.TierName = result.Tier.String()

	if result.GTINExact {
		result.Score = scoreGTINExact
	} else if result.GTINEquivalent {
		result.Score = scoreGTINEquivalent
	}
	if result.LotMatch {
		result.Score += scoreLot
	}
	if result.SerialMatch {
		result.Score += scoreSerial
	}
	if result.ExpirationMatch {
		result.Score += scoreExpiration
	}

	result.OverallMatch = result.Tier == types.TierExact ||
		result.Tier == types.TierStrong ||
		result.Score >= acceptanceThreshold

	return result
}

// Best returns the top candidate for the scan. Tiers are strict: an item in
// an earlier tier beats any item in a later tier regardless of score, and
// within a tier the first item in document order wins. When no item clears
// GTIN equivalence the returned result carries TierNone and no item index.
func (e *Engine) Best(code *types.ScannedCode, items []types.ProductItem) types.MatchResult {
	best := types.MatchResult{ItemIndex: -1, Tier: types.TierNone, TierName: types.TierNone.String()}

	for i := range items {
		candidate := e.Match(code, &items[i], i)
		if candidate.Tier < best.Tier {
			best = candidate
		}
	}

	e.log.Debug().
		Int("candidates", len(items)).
		Str("tier", best.TierName).
		Int("score", best.Score).
		Bool("overallMatch", best.OverallMatch).
		Msg("reconciled scan")

	return best
}

// RankAll evaluates every candidate and returns them ordered best-first:
// by tier, then score descending, then document order.
func (e *Engine) RankAll(code *types.ScannedCode, items []types.ProductItem) []types.MatchResult {
	results := make([]types.MatchResult, 0, len(items))
	for i := range items {
		results = append(results, e.Match(code, &items[i], i))
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Tier != results[b].Tier {
			return results[a].Tier < results[b].Tier
		}
		return results[a].Score > results[b].Score
	})

	return results
}
