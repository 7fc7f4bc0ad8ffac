// Package gtin converts between DataMatrix and EPCIS GTIN encodings and
// classifies packaging levels from the indicator digit.
package gtin

import (
	"fmt"
	"regexp"
	"strings"
)

// PackagingLevel classifies what a GTIN's indicator digit says about the unit
type PackagingLevel string

const (
	LevelEach    PackagingLevel = "each"
	LevelCase    PackagingLevel = "case"
	LevelUnknown PackagingLevel = "unknown"
)

var digitsOnlyRe = regexp.MustCompile(`^[0-9]+$`)

// Normalize left-pads a GTIN-12/13 to the 14-digit form. Non-numeric or
// overlong input is returned unchanged; every function in this package is
// total because it is called speculatively on every match attempt.
func Normalize(gtin string) string {
	g := strings.TrimSpace(gtin)
	if !digitsOnlyRe.MatchString(g) || len(g) > 14 || len(g) < 12 {
		return gtin
	}
	return strings.Repeat("0", 14-len(g)) + g
}

// Level reads the indicator digit of the 14-digit form: 0 is a saleable each,
// 2-8 are case/pack aggregations, anything else is unknown.
func Level(gtin string) PackagingLevel {
	g := Normalize(gtin)
	if len(g) != 14 || !digitsOnlyRe.MatchString(g) {
		return LevelUnknown
	}
	switch g[0] {
	case '0':
		return LevelEach
	case '2', '3', '4', '5', '6', '7', '8':
		return LevelCase
	default:
		return LevelUnknown
	}
}

// ToEPCISForm maps a DataMatrix-encoded GTIN to its EPCIS SGTIN equivalent.
// Scanners emit indicator digit 5 for units that EPCIS documents carry with
// indicator 0 but an otherwise identical company prefix and item reference.
// Input that is not in that shape comes back unchanged, never an error.
func ToEPCISForm(dataMatrixGTIN string) string {
	g := Normalize(dataMatrixGTIN)
	if len(g) != 14 || !digitsOnlyRe.MatchString(g) {
		return dataMatrixGTIN
	}
	if g[0] != '5' {
		return dataMatrixGTIN
	}
	return "0" + g[1:]
}

// Equivalent reports whether two GTINs identify the same trade item despite
// encoding differences. Tries direct equality, the DataMatrix-to-EPCIS
// rewrite in both directions, an indicator-digit-only difference, and
// finally a comparison of the company-prefix/item-reference core. The core
// comparison is what reconciles a scanned AI(01) value, which carries a
// check digit, with the EPCIS prefix+itemref form, which does not.
func Equivalent(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return true
	}
	if ToEPCISForm(na) == nb || na == ToEPCISForm(nb) {
		return true
	}
	if len(na) == 14 && len(nb) == 14 &&
		digitsOnlyRe.MatchString(na) && digitsOnlyRe.MatchString(nb) {
		// Same company prefix and item reference, different packaging indicator
		if na[1:] == nb[1:] {
			return true
		}
		if coresMatch(na, nb) || coresMatch(nb, na) {
			return true
		}
	}
	return false
}

// coresMatch compares a scanned AI(01) value against an EPCIS prefix+itemref
// value. The scanned form is indicator + 12-digit core + check digit; the
// EPCIS form is the full 14 digits with the itemref's own indicator buried
// after the company prefix. The prefix length is not recoverable from the
// flat string, so the buried indicator is located by trying every interior
// zero. Leading zeros are insignificant in both forms.
func coresMatch(scanned, epcis string) bool {
	core := strings.TrimLeft(scanned[1:13], "0")
	if core == "" {
		return false
	}
	if strings.TrimLeft(epcis[1:], "0") == core {
		return true
	}
	for i := 1; i < len(epcis); i++ {
		if epcis[i] != '0' {
			continue
		}
		if strings.TrimLeft(epcis[:i]+epcis[i+1:], "0") == core {
			return true
		}
	}
	return false
}

// NDC extracts the FDA drug identifier embedded in US pharmaceutical GTINs.
// GTINs carrying a 003 prefix embed the 9-digit NDC in positions 4-12,
// rendered 5-4. Returns empty string when the GTIN is not in that shape.
func NDC(gtin string) string {
	g := Normalize(gtin)
	if len(g) != 14 || !strings.HasPrefix(g, "003") || !digitsOnlyRe.MatchString(g) {
		return ""
	}
	raw := g[3:12]
	return fmt.Sprintf("%s-%s", raw[:5], raw[5:])
}

// ValidCheckDigit validates the mod-10 check digit of a 14-digit GTIN
func ValidCheckDigit(gtin string) bool {
	g := Normalize(gtin)
	if len(g) != 14 || !digitsOnlyRe.MatchString(g) {
		return false
	}
	sum := 0
	for i := 0; i < 13; i++ {
		d := int(g[i] - '0')
		if i%2 == 0 {
			sum += d * 3
		} else {
			sum += d
		}
	}
	check := (10 - (sum % 10)) % 10
	return int(g[13]-'0') == check
}
