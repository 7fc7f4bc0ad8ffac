// Package scan decodes raw barcode payloads from camera or keyboard-wedge
// scanners into structured pharmaceutical product codes.
package scan

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rxtrace/epcis-service/internal/gtin"
	"github.com/rxtrace/epcis-service/internal/types"
)

// groupSeparator is the GS1 FNC1 field terminator (ASCII 29)
const groupSeparator = "\x1d"

// symbologyPrefix is emitted by DataMatrix readers ahead of the payload
const symbologyPrefix = "]d2"

// aiFixedLengths maps known GS1 Application Identifiers to their fixed field
// length; absent AIs are variable length terminated by FNC1 or the next AI
var aiFixedLengths = map[string]int{
	"01": 14, // GTIN
	"17": 6,  // expiration date, YYMMDD
}

var aiKnown = map[string]bool{
	"01": true,
	"10": true, // lot number
	"17": true,
	"21": true, // serial number
}

var parenAIRe = regexp.MustCompile(`\((\d{2})\)`)

// Parse decodes a raw scanned string. A payload yielding at least a GTIN is
// reported as structured; anything else comes back with only Raw set and
// IsStructuredFormat false. Parse never fails on unrecognized input.
func Parse(raw string) *types.ScannedCode {
	code := &types.ScannedCode{Raw: raw}

	payload := strings.TrimSpace(raw)
	payload = strings.TrimPrefix(payload, symbologyPrefix)
	payload = strings.TrimPrefix(payload, groupSeparator)

	var fields map[string]string
	if parenAIRe.MatchString(payload) {
		fields = parseParenthesized(payload)
	} else {
		fields = parseConcatenated(payload)
	}

	if g, ok := fields["01"]; ok && g != "" {
		code.GTIN = types.StringPtr(g)
		code.IsStructuredFormat = true
		if ndc := gtin.NDC(g); ndc != "" {
			code.NDC = types.StringPtr(ndc)
		}
	}
	if !code.IsStructuredFormat {
		return code
	}

	if lot, ok := fields["10"]; ok && lot != "" {
		code.LotNumber = types.StringPtr(lot)
	}
	if serial, ok := fields["21"]; ok && serial != "" {
		code.SerialNumber = types.StringPtr(serial)
	}
	if exp, ok := fields["17"]; ok {
		if iso := normalizeExpiry(exp); iso != "" {
			code.ExpirationDate = types.StringPtr(iso)
		}
	}

	return code
}

// parseParenthesized handles human-readable payloads like
// (01)00301430957010(17)260930(10)LOT1(21)SER1
func parseParenthesized(payload string) map[string]string {
	fields := make(map[string]string)
	matches := parenAIRe.FindAllStringSubmatchIndex(payload, -1)
	for i, m := range matches {
		ai := payload[m[2]:m[3]]
		if !aiKnown[ai] {
			continue
		}
		end := len(payload)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		value := payload[m[1]:end]
		if _, exists := fields[ai]; !exists && value != "" {
			fields[ai] = value
		}
	}
	return fields
}

// parseConcatenated walks a raw AI stream. Some hardware scanners substitute
// the literal digits "029" for FNC1 between fields; an "029" at a field
// boundary followed by a known AI is treated as a separator, not data.
func parseConcatenated(payload string) map[string]string {
	fields := make(map[string]string)
	remaining := payload

	for len(remaining) >= 2 {
		ai := remaining[:2]
		if !aiKnown[ai] {
			// Skip one character and resync
			remaining = remaining[1:]
			continue
		}
		remaining = remaining[2:]

		var value string
		if fixedLen, fixed := aiFixedLengths[ai]; fixed {
			if len(remaining) < fixedLen {
				break
			}
			value = remaining[:fixedLen]
			remaining = remaining[fixedLen:]
			remaining = skipSeparator(remaining)
		} else {
			value, remaining = readVariableField(remaining)
		}

		if _, exists := fields[ai]; !exists && value != "" {
			fields[ai] = value
		}
	}

	return fields
}

// readVariableField consumes characters until FNC1, the "029" scanner
// separator, or the start of the next known AI. The bare-AI boundary means a
// value containing a digit pair that happens to be a known AI is cut short;
// concatenated payloads carry no length information, so the boundary is not
// recoverable.
func readVariableField(remaining string) (string, string) {
	var value strings.Builder
	j := 0
	for j < len(remaining) {
		if remaining[j] == groupSeparator[0] {
			j++
			break
		}
		if j+5 <= len(remaining) && remaining[j:j+3] == "029" && aiKnown[remaining[j+3:j+5]] {
			j += 3
			break
		}
		if j+2 <= len(remaining) && aiKnown[remaining[j:j+2]] {
			break
		}
		value.WriteByte(remaining[j])
		j++
	}
	return value.String(), remaining[j:]
}

// skipSeparator drops a FNC1 or "029" separator after a fixed-length field
func skipSeparator(remaining string) string {
	if strings.HasPrefix(remaining, groupSeparator) {
		return remaining[1:]
	}
	if len(remaining) >= 5 && remaining[:3] == "029" && aiKnown[remaining[3:5]] {
		return remaining[3:]
	}
	return remaining
}

// normalizeExpiry converts a YYMMDD expiry to an ISO date. Day 00 means
// end-of-month per GS1; years 00-49 map to 20xx, 50-99 to 19xx.
func normalizeExpiry(yymmdd string) string {
	if len(yymmdd) != 6 || !isDigits(yymmdd) {
		return ""
	}
	yy := int(yymmdd[0]-'0')*10 + int(yymmdd[1]-'0')
	mm := int(yymmdd[2]-'0')*10 + int(yymmdd[3]-'0')
	dd := int(yymmdd[4]-'0')*10 + int(yymmdd[5]-'0')

	if mm < 1 || mm > 12 {
		return ""
	}
	year := 1900 + yy
	if yy < 50 {
		year = 2000 + yy
	}
	if dd == 0 {
		// Last day of the month
		dd = time.Date(year, time.Month(mm)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, mm, dd)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
