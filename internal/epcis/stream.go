package epcis

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/rxtrace/epcis-service/internal/parsers/xmltree"
	"github.com/rxtrace/epcis-service/internal/types"
)

// DefaultStreamThreshold is the document size above which callers should
// switch to ExtractStream. Callers must fall back to Extract when the
// streaming path errors; the fallback is part of the contract, not a tuning
// choice.
const DefaultStreamThreshold = 10 * 1024 * 1024

const streamChunkSize = 256 * 1024

// maxHeaderBytes bounds how much of the document may precede the event list
const maxHeaderBytes = 8 * 1024 * 1024

var (
	rootNameRe      = regexp.MustCompile(`(?i)<(?:[A-Za-z0-9_.-]+:)?([A-Za-z0-9_.-]*EPCIS[A-Za-z0-9_.-]*)[\s>]`)
	schemaVersionRe = regexp.MustCompile(`schemaVersion\s*=\s*["']([^"']+)["']`)

	headerSpanRe = spanRe("StandardBusinessDocumentHeader")
	vocabSpanRe  = spanRe("VocabularyList")
	txnStmtRe    = regexp.MustCompile(`(?is)<(?:[A-Za-z0-9_.-]+:)?(?:affirm)?[Tt]ransactionStatement[^>]*>\s*true\s*<`)

	eventSpanRes = func() map[string]*regexp.Regexp {
		res := make(map[string]*regexp.Regexp, len(eventNames))
		for _, name := range eventNames {
			res[name] = spanRe(name)
		}
		return res
	}()

	eventStartRes = func() map[string]*regexp.Regexp {
		res := make(map[string]*regexp.Regexp, len(eventNames))
		for _, name := range eventNames {
			res[name] = regexp.MustCompile(`(?i)<(?:[A-Za-z0-9_.-]+:)?` + name + `[\s>]`)
		}
		return res
	}()
)

// spanRe matches a complete element span for a local name with any or no
// namespace prefix
func spanRe(local string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<(?:[A-Za-z0-9_.-]+:)?` + local + `[\s>].*?</(?:[A-Za-z0-9_.-]+:)?` + local + `\s*>`)
}

// ExtractStream applies the same extraction steps as Extract incrementally
// over a growing text buffer, discarding consumed event spans so peak memory
// stays bounded by the chunk size plus one event span.
func (e *Extractor) ExtractStream(r io.Reader) (*types.DocumentMetadata, error) {
	meta := newMetadata()

	buf, err := e.streamHeader(r, meta)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	chunk := make([]byte, streamChunkSize)
	eof := false
	for {
		// Drain every complete event span currently in the buffer
		for {
			name, start, end := earliestEventSpan(buf)
			if name == "" {
				break
			}
			if err := e.processEventSpan(name, buf[start:end], meta, seen); err != nil {
				return nil, err
			}
			// Drop the consumed prefix to bound memory
			buf = buf[end:]
		}

		if eof {
			return meta, nil
		}

		n, err := r.Read(chunk)
		if n > 0 {
			buf += string(bytes.ToValidUTF8(chunk[:n], []byte("\uFFFD")))
		}
		if err == io.EOF {
			eof = true
		} else if err != nil {
			return nil, types.WrapValidationError(types.ErrXMLParse, "read document stream", err)
		}
	}
}

// streamHeader accumulates input until the event list begins, then runs the
// header, version, and master-data steps on the accumulated prefix. Returns
// the unconsumed buffer (from the event list onward).
func (e *Extractor) streamHeader(r io.Reader, meta *types.DocumentMetadata) (string, error) {
	var sb strings.Builder
	chunk := make([]byte, streamChunkSize)
	for {
		if strings.Contains(strings.ToLower(sb.String()), "<eventlist") ||
			containsEventStart(sb.String()) {
			break
		}
		if sb.Len() > maxHeaderBytes {
			return "", types.NewValidationError(types.ErrXMLParse, "document header exceeds streaming bound")
		}
		n, err := r.Read(chunk)
		if n > 0 {
			sb.Write(bytes.ToValidUTF8(chunk[:n], []byte("�")))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", types.WrapValidationError(types.ErrXMLParse, "read document stream", err)
		}
	}
	head := sb.String()

	m := rootNameRe.FindStringSubmatch(head)
	if m == nil {
		return "", types.NewValidationError(types.ErrNotEPCIS, "no EPCIS document root found")
	}
	if vm := schemaVersionRe.FindStringSubmatch(head); vm != nil {
		meta.SchemaVersion = vm[1]
	}

	if span := headerSpanRe.FindString(head); span != "" {
		if tree, err := xmltree.Parse(span); err == nil {
			e.extractSender(tree, meta)
		}
	}
	meta.TransactionStatement = txnStmtRe.MatchString(head)
	if !meta.TransactionStatement {
		e.log.Warn().Msg("document carries no affirmed DSCSA transaction statement")
	}

	if span := vocabSpanRe.FindString(head); span != "" {
		if tree, err := xmltree.Parse(span); err == nil {
			e.extractMasterData(tree, meta)
		}
	}

	// Hand back everything from the first event onward
	if _, start, _ := earliestEventSpanStart(head); start >= 0 {
		return head[start:], nil
	}
	return "", nil
}

func containsEventStart(s string) bool {
	_, start, _ := earliestEventSpanStart(s)
	return start >= 0
}

// earliestEventSpanStart finds the first event opening tag of any type,
// complete or not
func earliestEventSpanStart(buf string) (string, int, int) {
	bestName, bestStart, bestEnd := "", -1, -1
	for _, name := range eventNames {
		if loc := eventStartRes[name].FindStringIndex(buf); loc != nil && (bestStart < 0 || loc[0] < bestStart) {
			bestName, bestStart, bestEnd = name, loc[0], loc[1]
		}
	}
	return bestName, bestStart, bestEnd
}

// earliestEventSpan finds the first complete event span of any type in the
// buffer, returning its event name and byte range
func earliestEventSpan(buf string) (string, int, int) {
	bestName, bestStart, bestEnd := "", -1, -1
	for _, name := range eventNames {
		if loc := eventSpanRes[name].FindStringIndex(buf); loc != nil && (bestStart < 0 || loc[0] < bestStart) {
			bestName, bestStart, bestEnd = name, loc[0], loc[1]
		}
	}
	return bestName, bestStart, bestEnd
}

// processEventSpan parses one event element in isolation and feeds it to the
// shared per-event processor so streaming output matches the full parse
func (e *Extractor) processEventSpan(name, span string, meta *types.DocumentMetadata, seen map[string]int) error {
	tree, err := xmltree.Parse(span)
	if err != nil {
		return types.WrapValidationError(types.ErrXMLParse, fmt.Sprintf("malformed %s span", name), err)
	}
	elem := xmltree.FindFirst(tree, name)
	if elem == nil {
		return types.NewValidationError(types.ErrXMLParse, fmt.Sprintf("could not reparse %s span", name))
	}
	meta.CountEvent(name)
	e.processEvent(elem, meta, seen)
	return nil
}
