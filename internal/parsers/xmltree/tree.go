// Package xmltree parses XML into a generic map tree so callers can navigate
// loosely structured documents without binding to a schema. Namespace
// prefixes are stripped at decode time: a bare <EPCISDocument>, a prefixed
// <epcis:EPCISDocument> and a fully qualified element all land under the same
// key. Text content lives under "#text", attributes under "@_"-prefixed
// keys, and repeated sibling elements fold into a slice.
package xmltree

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	// TextKey holds an element's character data
	TextKey = "#text"
	// AttrPrefix marks attribute keys
	AttrPrefix = "@_"
	// seqKey records document order, used by FindAll
	seqKey = "#seq"
)

type decoder struct {
	d   *xml.Decoder
	seq int
}

// Parse decodes a UTF-8 XML document into a map tree. The returned map has
// one entry per root element, keyed by local name.
func Parse(content string) (map[string]any, error) {
	dec := &decoder{d: xml.NewDecoder(strings.NewReader(content))}
	dec.d.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil // caller already decoded to UTF-8
	}

	root, err := dec.decodeElement(nil)
	if err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}
	if len(root) == 0 {
		return nil, fmt.Errorf("decode xml: empty document")
	}
	return root, nil
}

// decodeElement recursively decodes the children of the current element.
// Called with nil at the top level.
func (dec *decoder) decodeElement(start *xml.StartElement) (map[string]any, error) {
	result := make(map[string]any)

	if start != nil {
		result[seqKey] = dec.seq
		dec.seq++
		for _, attr := range start.Attr {
			if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
				continue
			}
			result[AttrPrefix+attr.Name.Local] = attr.Value
		}
	}

	var textContent strings.Builder

	for {
		token, err := dec.d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			childValue, err := dec.decodeElement(&t)
			if err != nil {
				return nil, err
			}

			name := t.Name.Local
			if existing, exists := result[name]; exists {
				switch v := existing.(type) {
				case []any:
					result[name] = append(v, childValue)
				default:
					result[name] = []any{v, childValue}
				}
			} else {
				result[name] = childValue
			}

		case xml.CharData:
			if text := strings.TrimSpace(string(t)); text != "" {
				textContent.WriteString(text)
			}

		case xml.EndElement:
			if text := textContent.String(); text != "" {
				result[TextKey] = text
			}
			return result, nil
		}
	}

	if text := textContent.String(); text != "" {
		result[TextKey] = text
	}
	return result, nil
}

// At navigates a case-insensitive dot path and returns the value there, or
// nil when any segment is missing.
func At(data map[string]any, path string) any {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			for k, v := range m {
				if strings.EqualFold(k, part) {
					current = v
					ok = true
					break
				}
			}
		}
		if !ok {
			return nil
		}
	}
	return current
}

// ChildSlice normalizes a value to a slice of element maps: a repeated
// element is already a slice, a single element gets wrapped.
func ChildSlice(value any) []map[string]any {
	switch v := value.(type) {
	case []any:
		result := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				result = append(result, m)
			}
		}
		return result
	case map[string]any:
		return []map[string]any{v}
	default:
		return nil
	}
}

// Text extracts the text content of a node regardless of how the decoder
// represented it: a plain string, an element map with "#text", or an element
// whose only meaningful child carries the text.
func Text(value any) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return &trimmed
		}
		return nil
	case map[string]any:
		if textVal, ok := v[TextKey]; ok {
			return Text(textVal)
		}
		for k, val := range v {
			if k == seqKey || strings.HasPrefix(k, AttrPrefix) {
				continue
			}
			if result := Text(val); result != nil {
				return result
			}
		}
		return nil
	default:
		str := strings.TrimSpace(fmt.Sprintf("%v", v))
		if str == "" {
			return nil
		}
		return &str
	}
}

// Attr returns the value of an attribute on an element map, matching the
// attribute name case-insensitively.
func Attr(elem map[string]any, name string) *string {
	if v, ok := elem[AttrPrefix+name]; ok {
		return Text(v)
	}
	for k, v := range elem {
		if strings.HasPrefix(k, AttrPrefix) && strings.EqualFold(k[len(AttrPrefix):], name) {
			return Text(v)
		}
	}
	return nil
}

// Seq returns the document-order sequence number assigned to an element at
// decode time, or -1 for values that are not elements.
func Seq(elem map[string]any) int {
	if n, ok := elem[seqKey].(int); ok {
		return n
	}
	return -1
}

// FindFirst walks the tree depth-first and returns the first element whose
// local name matches, in document order.
func FindFirst(data map[string]any, local string) map[string]any {
	matches := FindAll(data, local)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// FindAll collects every element with the given local name anywhere in the
// tree, sorted into document order.
func FindAll(data map[string]any, local string) []map[string]any {
	var matches []map[string]any
	collect(data, local, &matches)
	sort.SliceStable(matches, func(i, j int) bool {
		return Seq(matches[i]) < Seq(matches[j])
	})
	return matches
}

func collect(data map[string]any, local string, matches *[]map[string]any) {
	for k, v := range data {
		if k == seqKey || strings.HasPrefix(k, AttrPrefix) || k == TextKey {
			continue
		}
		for _, elem := range ChildSlice(v) {
			if strings.EqualFold(k, local) {
				*matches = append(*matches, elem)
			}
			collect(elem, local, matches)
		}
	}
}
