package types

import "time"

// MaxProductItems caps the number of serialized items extracted from one
// document. Extraction keeps scanning for PO references after the cap is hit
// but stops creating items.
const MaxProductItems = 1000

// UnknownValue is the sentinel used for fields the document does not carry
const UnknownValue = "unknown"

// ProductInfo holds document-level master data from the EPCClass vocabulary.
// All fields are best-effort; any of them may be absent.
type ProductInfo struct {
	Name           *string `json:"name,omitempty"`
	Manufacturer   *string `json:"manufacturer,omitempty"`
	DosageForm     *string `json:"dosageForm,omitempty"`
	Strength       *string `json:"strength,omitempty"`
	NetContent     *string `json:"netContent,omitempty"`
	NDC            *string `json:"ndc,omitempty"`
	LotNumber      *string `json:"lotNumber,omitempty"`
	ExpirationDate *string `json:"expirationDate,omitempty"`
}

// ProductItem represents one serialized unit extracted from an SGTIN EPC
type ProductItem struct {
	GTIN                 string    `json:"gtin"`
	SerialNumber         string    `json:"serialNumber"`
	LotNumber            string    `json:"lotNumber"`
	ExpirationDate       string    `json:"expirationDate"`
	EventTime            time.Time `json:"eventTime"`
	SourceLocation       *string   `json:"sourceLocation,omitempty"`
	DestinationLocation  *string   `json:"destinationLocation,omitempty"`
	BusinessTransactions []string  `json:"businessTransactionRefs"`
}

// DocumentMetadata is the canonical result of parsing one EPCIS document
type DocumentMetadata struct {
	ObjectEventCount      int           `json:"objectEventCount"`
	AggregationEventCount int           `json:"aggregationEventCount"`
	TransactionEventCount int           `json:"transactionEventCount"`
	SenderIdentifier      string        `json:"senderIdentifier"`
	SchemaVersion         string        `json:"schemaVersion"`
	TransactionStatement  bool          `json:"transactionStatementAffirmed"`
	ProductInfo           *ProductInfo  `json:"productInfo,omitempty"`
	ProductItems          []ProductItem `json:"productItems"`
	PurchaseOrderRefs     []string      `json:"purchaseOrderReferences"`
}

// CountEvent increments the counter matching an EPCIS event element name.
// TransformationEvents are extracted but not counted separately.
func (m *DocumentMetadata) CountEvent(name string) {
	switch name {
	case "ObjectEvent":
		m.ObjectEventCount++
	case "AggregationEvent":
		m.AggregationEventCount++
	case "TransactionEvent":
		m.TransactionEventCount++
	}
}

// ScannedCode is the result of decoding one barcode payload
type ScannedCode struct {
	Raw                string  `json:"raw"`
	GTIN               *string `json:"gtin,omitempty"`
	LotNumber          *string `json:"lotNumber,omitempty"`
	SerialNumber       *string `json:"serialNumber,omitempty"`
	ExpirationDate     *string `json:"expirationDate,omitempty"`
	NDC                *string `json:"ndc,omitempty"`
	IsStructuredFormat bool    `json:"isStructuredFormat"`
}

// MatchTier orders reconciliation candidates. Lower is better; TierNone means
// the candidate failed GTIN equivalence.
type MatchTier int

const (
	TierExact MatchTier = iota
	TierStrong
	TierWeak
	TierNone
)

// String returns the tier name for logging and API responses
func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierStrong:
		return "strong"
	case TierWeak:
		return "weak"
	default:
		return "none"
	}
}

// MatchResult is the outcome of reconciling one ScannedCode against one ProductItem
type MatchResult struct {
	ItemIndex       int       `json:"itemIndex"`
	Tier            MatchTier `json:"-"`
	TierName        string    `json:"tier"`
	GTINExact       bool      `json:"gtinExact"`
	GTINEquivalent  bool      `json:"gtinEquivalent"`
	LotMatch        bool      `json:"lotMatch"`
	SerialMatch     bool      `json:"serialMatch"`
	ExpirationMatch bool      `json:"expirationMatch"`
	Score           int       `json:"score"`
	OverallMatch    bool      `json:"overallMatch"`
}

// ValidationResult wraps extraction with the outcome of the validation pipeline
type ValidationResult struct {
	Valid        bool              `json:"valid"`
	ErrorCode    ErrorCode         `json:"errorCode,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Metadata     *DocumentMetadata `json:"metadata,omitempty"`
}

// StringPtr returns a pointer to the given string
func StringPtr(s string) *string {
	return &s
}
