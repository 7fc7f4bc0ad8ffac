// Package epcis extracts a canonical document model from GS1 EPCIS XML and
// validates uploads against the portal's acceptance rules.
package epcis

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rxtrace/epcis-service/internal/parsers/charset"
	"github.com/rxtrace/epcis-service/internal/parsers/xmltree"
	"github.com/rxtrace/epcis-service/internal/types"
)

var (
	sgtinRe = regexp.MustCompile(`^urn:epc:id:sgtin:([0-9]+)\.([0-9]+)\.(.+)$`)
	sglnRe  = regexp.MustCompile(`^urn:epc:id:sgln:([0-9]+)\.([0-9]*)(?:\..*)?$`)
)

// eventNames lists every EPCIS event element the extractor walks
var eventNames = []string{"ObjectEvent", "AggregationEvent", "TransactionEvent", "TransformationEvent"}

// cbv:mda attribute URN suffixes read from the first EPCClass vocabulary element
const (
	attrRegulatedProductName = "#regulatedProductName"
	attrManufacturerName     = "#manufacturerOfTradeItemPartyName"
	attrAdditionalTradeItem  = "#additionalTradeItemIdentification"
	attrTradeItemTypeCode    = "#additionalTradeItemIdentificationTypeCode"
	attrDosageForm           = "#dosageFormType"
	attrStrength             = "#strengthDescription"
	attrNetContent           = "#netContentDescription"
	attrLotNumber            = "#lotNumber"
	attrItemExpiration       = "#itemExpirationDate"
)

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Extractor parses EPCIS XML byte buffers into DocumentMetadata
type Extractor struct {
	log      zerolog.Logger
	maxItems int
}

// NewExtractor creates an Extractor with the standard item cap
func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{log: log, maxItems: types.MaxProductItems}
}

// Extract parses a full document held in memory. Structural failures return
// a typed error; missing fields degrade to sentinels instead of failing.
func (e *Extractor) Extract(content []byte) (*types.DocumentMetadata, error) {
	decoded := charset.DecodeAuto(content)

	tree, err := xmltree.Parse(decoded)
	if err != nil {
		return nil, types.WrapValidationError(types.ErrXMLParse, "document is not well-formed XML", err)
	}

	root := findRoot(tree)
	if root == nil {
		return nil, types.NewValidationError(types.ErrNotEPCIS, "no EPCIS document root found")
	}

	meta := newMetadata()
	if v := xmltree.Attr(root, "schemaVersion"); v != nil && *v != "" {
		meta.SchemaVersion = *v
	}

	e.extractHeader(root, meta)
	e.extractMasterData(root, meta)
	e.extractEvents(root, meta)

	return meta, nil
}

func newMetadata() *types.DocumentMetadata {
	return &types.DocumentMetadata{
		SenderIdentifier:  types.UnknownValue,
		SchemaVersion:     "1.0",
		ProductItems:      []types.ProductItem{},
		PurchaseOrderRefs: []string{},
	}
}

// findRoot locates the document root, tolerating bare, prefixed, and fully
// qualified element names. Any root whose local name contains "EPCIS" counts,
// which also admits EPCISQueryDocument wrappers.
func findRoot(tree map[string]any) map[string]any {
	for name, v := range tree {
		if !strings.Contains(strings.ToLower(name), "epcis") {
			continue
		}
		if elems := xmltree.ChildSlice(v); len(elems) > 0 {
			return elems[0]
		}
	}
	return nil
}

// extractHeader reads the SBDH sender identifier and the DSCSA transaction
// statement flag. A missing statement is logged, not fatal; only the
// validator's strict mode enforces it.
func (e *Extractor) extractHeader(root map[string]any, meta *types.DocumentMetadata) {
	e.extractSender(root, meta)

	meta.TransactionStatement = transactionStatementAffirmed(root)
	if !meta.TransactionStatement {
		e.log.Warn().Msg("document carries no affirmed DSCSA transaction statement")
	}
}

func (e *Extractor) extractSender(root map[string]any, meta *types.DocumentMetadata) {
	sender := xmltree.FindFirst(root, "Sender")
	if sender == nil {
		return
	}
	raw := xmltree.Text(xmltree.FindFirst(sender, "Identifier"))
	if raw == nil {
		raw = xmltree.Text(sender)
	}
	if raw != nil {
		meta.SenderIdentifier = normalizeLocation(*raw)
	}
}

func transactionStatementAffirmed(root map[string]any) bool {
	if el := xmltree.FindFirst(root, "affirmTransactionStatement"); el != nil {
		if t := xmltree.Text(el); t != nil && strings.EqualFold(*t, "true") {
			return true
		}
	}
	if el := xmltree.FindFirst(root, "transactionStatement"); el != nil {
		if t := xmltree.Text(el); t != nil && strings.EqualFold(*t, "true") {
			return true
		}
	}
	return false
}

// normalizeLocation flattens an SGLN URN to company prefix plus the location
// reference zero-padded to 5 digits. Anything else passes through as-is.
func normalizeLocation(id string) string {
	id = strings.TrimSpace(id)
	m := sglnRe.FindStringSubmatch(id)
	if m == nil {
		return id
	}
	ref := m[2]
	for len(ref) < 5 {
		ref = "0" + ref
	}
	return m[1] + ref
}

// extractMasterData populates ProductInfo from the first EPCClass vocabulary
// element. Later EPCClass elements are ignored: these are shipment documents
// for a single product, so one element carries the master data.
func (e *Extractor) extractMasterData(root map[string]any, meta *types.DocumentMetadata) {
	for _, vocab := range xmltree.FindAll(root, "Vocabulary") {
		vt := xmltree.Attr(vocab, "type")
		if vt == nil || !strings.Contains(*vt, "EPCClass") {
			continue
		}
		elems := xmltree.FindAll(vocab, "VocabularyElement")
		if len(elems) == 0 {
			continue
		}

		info := &types.ProductInfo{}
		var tradeItemID, tradeItemType *string
		for _, attr := range xmltree.FindAll(elems[0], "attribute") {
			id := xmltree.Attr(attr, "id")
			val := xmltree.Text(attr)
			if id == nil || val == nil {
				continue
			}
			switch {
			case strings.HasSuffix(*id, attrRegulatedProductName):
				info.Name = val
			case strings.HasSuffix(*id, attrManufacturerName):
				info.Manufacturer = val
			case strings.HasSuffix(*id, attrTradeItemTypeCode):
				tradeItemType = val
			case strings.HasSuffix(*id, attrAdditionalTradeItem):
				tradeItemID = val
			case strings.HasSuffix(*id, attrDosageForm):
				info.DosageForm = val
			case strings.HasSuffix(*id, attrStrength):
				info.Strength = val
			case strings.HasSuffix(*id, attrNetContent):
				info.NetContent = val
			case strings.HasSuffix(*id, attrLotNumber):
				info.LotNumber = val
			case strings.HasSuffix(*id, attrItemExpiration):
				info.ExpirationDate = val
			}
		}
		// The additional identification is only an NDC when untyped or typed as one
		if tradeItemID != nil && (tradeItemType == nil || strings.EqualFold(*tradeItemType, "NDC")) {
			info.NDC = tradeItemID
		}

		meta.ProductInfo = info
		return
	}
}

// extractEvents walks every event in document order, deriving product items
// from SGTIN EPCs and collecting purchase order references.
func (e *Extractor) extractEvents(root map[string]any, meta *types.DocumentMetadata) {
	type docEvent struct {
		name string
		elem map[string]any
	}
	var events []docEvent
	for _, name := range eventNames {
		for _, elem := range xmltree.FindAll(root, name) {
			events = append(events, docEvent{name: name, elem: elem})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return xmltree.Seq(events[i].elem) < xmltree.Seq(events[j].elem)
	})

	seen := make(map[string]int)
	for _, evt := range events {
		meta.CountEvent(evt.name)
		e.processEvent(evt.elem, meta, seen)
	}
}

// processEvent applies extraction steps 5 and 6 to a single event element.
// seen maps "gtin|serial" to the item's index in meta.ProductItems; the same
// map must be reused across every event of one document.
func (e *Extractor) processEvent(elem map[string]any, meta *types.DocumentMetadata, seen map[string]int) {
	eventTime := parseEventTime(xmltree.Text(xmltree.At(elem, "eventTime")))

	var ilmdLot, ilmdExpiry *string
	if lot := xmltree.FindFirst(elem, "lotNumber"); lot != nil {
		ilmdLot = xmltree.Text(lot)
	}
	if exp := xmltree.FindFirst(elem, "itemExpirationDate"); exp != nil {
		ilmdExpiry = xmltree.Text(exp)
	} else if exp := xmltree.FindFirst(elem, "expirationDate"); exp != nil {
		ilmdExpiry = xmltree.Text(exp)
	}

	var source, destination *string
	if src := xmltree.FindFirst(elem, "source"); src != nil {
		if t := xmltree.Text(src); t != nil {
			source = types.StringPtr(normalizeLocation(*t))
		}
	}
	if dst := xmltree.FindFirst(elem, "destination"); dst != nil {
		if t := xmltree.Text(dst); t != nil {
			destination = types.StringPtr(normalizeLocation(*t))
		}
	}

	// Items referenced by this event's EPC list, existing or newly created,
	// paired with the raw EPC string for PO association below
	type eventItem struct {
		epc  string
		item int
	}
	var eventItems []eventItem

	for _, epcElem := range xmltree.FindAll(elem, "epc") {
		t := xmltree.Text(epcElem)
		if t == nil {
			continue
		}
		epc := strings.TrimSpace(*t)
		m := sgtinRe.FindStringSubmatch(epc)
		if m == nil {
			continue
		}
		gtin := m[1] + m[2]
		serial := m[3] // may itself contain dots, kept whole

		key := gtin + "|" + serial
		if idx, ok := seen[key]; ok {
			eventItems = append(eventItems, eventItem{epc: epc, item: idx})
			continue
		}
		if len(meta.ProductItems) >= e.maxItems {
			// Cap reached: stop creating items but keep scanning for POs
			continue
		}

		item := types.ProductItem{
			GTIN:                 gtin,
			SerialNumber:         serial,
			LotNumber:            fallback(ilmdLot, productInfoLot(meta)),
			ExpirationDate:       fallback(ilmdExpiry, productInfoExpiry(meta)),
			EventTime:            eventTime,
			SourceLocation:       source,
			DestinationLocation:  destination,
			BusinessTransactions: []string{},
		}
		meta.ProductItems = append(meta.ProductItems, item)
		idx := len(meta.ProductItems) - 1
		seen[key] = idx
		eventItems = append(eventItems, eventItem{epc: epc, item: idx})
	}

	for _, bt := range xmltree.FindAll(elem, "bizTransaction") {
		btType := xmltree.Attr(bt, "type")
		if btType == nil {
			continue
		}
		lower := strings.ToLower(*btType)
		if !strings.Contains(lower, "po") && !strings.Contains(lower, "purchaseorder") {
			continue
		}
		val := xmltree.Text(bt)
		if val == nil {
			continue
		}
		po := *val
		if idx := strings.LastIndex(po, ":"); idx >= 0 {
			po = po[idx+1:]
		}
		if po == "" {
			continue
		}

		if !contains(meta.PurchaseOrderRefs, po) {
			meta.PurchaseOrderRefs = append(meta.PurchaseOrderRefs, po)
		}

		// Associate the PO with this event's items by serial substring. Two
		// items sharing a serial substring within one event cannot be told
		// apart here; the GS1 event model does not carry a firmer link.
		for _, ei := range eventItems {
			item := &meta.ProductItems[ei.item]
			if strings.Contains(ei.epc, item.SerialNumber) && !contains(item.BusinessTransactions, po) {
				item.BusinessTransactions = append(item.BusinessTransactions, po)
			}
		}
	}
}

func parseEventTime(value *string) time.Time {
	if value == nil {
		return time.Now()
	}
	s := strings.TrimSpace(*value)
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}

func productInfoLot(meta *types.DocumentMetadata) *string {
	if meta.ProductInfo == nil {
		return nil
	}
	return meta.ProductInfo.LotNumber
}

func productInfoExpiry(meta *types.DocumentMetadata) *string {
	if meta.ProductInfo == nil {
		return nil
	}
	return meta.ProductInfo.ExpirationDate
}

func fallback(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return types.UnknownValue
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
