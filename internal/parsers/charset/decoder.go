// Package charset converts document bytes to UTF-8 before XML parsing.
// EPCIS feeds mostly arrive as UTF-8 but partner systems occasionally send
// UTF-16 with a BOM or Latin-1 declared in the XML prolog.
package charset

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding represents a text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingUTF16LE     Encoding = "utf-16le"
	EncodingUTF16BE     Encoding = "utf-16be"
	EncodingISO88591    Encoding = "iso-8859-1"
	EncodingWindows1252 Encoding = "windows-1252"
)

var declEncodingRe = regexp.MustCompile(`<\?xml[^?]*encoding=["']([^"']+)["']`)

// DetectEncoding sniffs the encoding of a byte buffer from its BOM, the XML
// declaration, or the byte content itself.
func DetectEncoding(data []byte) Encoding {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return EncodingUTF8
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		return EncodingUTF16LE
	}
	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		return EncodingUTF16BE
	}

	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	if match := declEncodingRe.FindSubmatch(head); len(match) > 1 {
		switch strings.ToLower(string(match[1])) {
		case "iso-8859-1", "latin1", "latin-1":
			return EncodingISO88591
		case "windows-1252", "cp1252":
			return EncodingWindows1252
		case "utf-16", "utf-16le":
			return EncodingUTF16LE
		case "utf-16be":
			return EncodingUTF16BE
		}
	}

	if utf8.Valid(data) {
		return EncodingUTF8
	}
	// High bytes in otherwise ASCII-looking XML: assume Windows-1252,
	// a superset of ISO-8859-1 for the printable range
	return EncodingWindows1252
}

// Decode converts a byte buffer in the given encoding to a UTF-8 string.
// The BOM, when present, is stripped.
func Decode(data []byte, enc Encoding) (string, error) {
	var e encoding.Encoding
	switch enc {
	case EncodingUTF8:
		if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
			data = data[3:]
		}
		return string(data), nil
	case EncodingUTF16LE:
		e = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
		if len(data) < 2 || data[0] != 0xFF || data[1] != 0xFE {
			e = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
		}
	case EncodingUTF16BE:
		e = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
		if len(data) < 2 || data[0] != 0xFE || data[1] != 0xFF {
			e = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
		}
	case EncodingISO88591:
		e = charmap.ISO8859_1
	case EncodingWindows1252:
		e = charmap.Windows1252
	default:
		return string(data), nil
	}

	decoded, _, err := transform.Bytes(e.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// DecodeAuto detects the encoding and decodes in one step, falling back to
// treating the input as UTF-8 when decoding fails.
func DecodeAuto(data []byte) string {
	decoded, err := Decode(data, DetectEncoding(data))
	if err != nil {
		return string(data)
	}
	return decoded
}
