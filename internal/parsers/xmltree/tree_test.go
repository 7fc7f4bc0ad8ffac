package xmltree

import (
	"testing"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<ns0:catalog xmlns:ns0="http://example.com/a" version="2">
  <ns0:entry id="first">
    <ns0:name>Alpha</ns0:name>
  </ns0:entry>
  <entry id="second">
    <name>Beta</name>
  </entry>
  <other:entry xmlns:other="http://example.com/b" id="third"><name>Gamma</name></other:entry>
</ns0:catalog>`

func TestParseStripsNamespacePrefixes(t *testing.T) {
	tree, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	entries := ChildSlice(At(tree, "catalog.entry"))
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries regardless of prefix, got %d", len(entries))
	}

	// Repeated elements keep document order
	wantIDs := []string{"first", "second", "third"}
	for i, entry := range entries {
		id := Attr(entry, "id")
		if id == nil || *id != wantIDs[i] {
			t.Errorf("entry %d id = %v, want %q", i, id, wantIDs[i])
		}
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse(`<catalog><`); err == nil {
		t.Fatal("expected error for malformed XML")
	}
}

func TestAtCaseInsensitive(t *testing.T) {
	tree, err := Parse(sampleDoc)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if v := At(tree, "CATALOG.Entry"); v == nil {
		t.Error("case-insensitive path lookup failed")
	}
	if v := At(tree, "catalog.missing.deeper"); v != nil {
		t.Errorf("missing path should be nil, got %v", v)
	}
}

func TestText(t *testing.T) {
	tree, err := Parse(`<root><a>  padded  </a><b><c>nested</c></b><empty/></root>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := Text(At(tree, "root.a")); got == nil || *got != "padded" {
		t.Errorf("Text(root.a) = %v, want %q", got, "padded")
	}
	// Falls through to the first child carrying text
	if got := Text(At(tree, "root.b")); got == nil || *got != "nested" {
		t.Errorf("Text(root.b) = %v, want %q", got, "nested")
	}
	if got := Text(At(tree, "root.empty")); got != nil {
		t.Errorf("Text(root.empty) = %v, want nil", got)
	}
}

func TestFindAllDocumentOrder(t *testing.T) {
	tree, err := Parse(`<root>
		<group><item>1</item><item>2</item></group>
		<item>3</item>
		<deep><deeper><item>4</item></deeper></deep>
	</root>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	items := FindAll(tree, "item")
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	for i, item := range items {
		want := string(rune('1' + i))
		if got := Text(item); got == nil || *got != want {
			t.Errorf("item %d = %v, want %q", i, got, want)
		}
	}
}

func TestAttrCaseInsensitive(t *testing.T) {
	tree, err := Parse(`<root SchemaVersion="1.2"/>`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	root := ChildSlice(At(tree, "root"))[0]
	if got := Attr(root, "schemaVersion"); got == nil || *got != "1.2" {
		t.Errorf("Attr(schemaVersion) = %v, want 1.2", got)
	}
}
