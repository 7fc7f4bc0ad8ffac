package epcis

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtrace/epcis-service/internal/types"
)

func newTestValidator(opts ValidatorOptions) *Validator {
	return NewValidator(zerolog.Nop(), opts)
}

func TestValidateAcceptsDocument(t *testing.T) {
	result := newTestValidator(ValidatorOptions{}).Validate("shipment.xml", []byte(sampleDocument))

	require.True(t, result.Valid)
	require.NotNil(t, result.Metadata)
	assert.Len(t, result.Metadata.ProductItems, 3)
	assert.Empty(t, result.ErrorCode)
}

func TestValidateRejectsZipMagic(t *testing.T) {
	content := append([]byte{'P', 'K', 0x03, 0x04}, []byte("zipdata")...)
	result := newTestValidator(ValidatorOptions{}).Validate("shipment.xml", content)

	assert.False(t, result.Valid)
	assert.Equal(t, types.ErrZipNotSupported, result.ErrorCode)
	assert.Nil(t, result.Metadata)
}

func TestValidateRejectsZipExtension(t *testing.T) {
	result := newTestValidator(ValidatorOptions{}).Validate("shipment.zip", []byte("<xml/>"))

	assert.Equal(t, types.ErrZipNotSupported, result.ErrorCode)
}

func TestValidateRejectsNonXMLExtension(t *testing.T) {
	result := newTestValidator(ValidatorOptions{}).Validate("shipment.csv", []byte(sampleDocument))

	assert.False(t, result.Valid)
	assert.Equal(t, types.ErrInvalidFileType, result.ErrorCode)
}

func TestValidateRejectsNonXMLContent(t *testing.T) {
	result := newTestValidator(ValidatorOptions{}).Validate("", []byte("plain text payload"))

	assert.Equal(t, types.ErrInvalidFileType, result.ErrorCode)
}

func TestValidateFileTooLarge(t *testing.T) {
	v := newTestValidator(ValidatorOptions{MaxFileSize: 16})
	result := v.Validate("shipment.xml", []byte(sampleDocument))

	assert.False(t, result.Valid)
	assert.Equal(t, types.ErrFileTooLarge, result.ErrorCode)
}

func TestValidateMalformedXML(t *testing.T) {
	result := newTestValidator(ValidatorOptions{}).Validate("shipment.xml", []byte("<EPCISDocument><"))

	assert.False(t, result.Valid)
	assert.Equal(t, types.ErrXMLParse, result.ErrorCode)
	assert.Nil(t, result.Metadata)
}

func TestValidateNotEPCIS(t *testing.T) {
	result := newTestValidator(ValidatorOptions{}).Validate("shipment.xml", []byte("<inventory><row/></inventory>"))

	assert.Equal(t, types.ErrNotEPCIS, result.ErrorCode)
}

func TestValidateStrictVersion(t *testing.T) {
	doc := `<EPCISDocument schemaVersion="1.0"><EPCISBody><EventList/></EPCISBody></EPCISDocument>`

	permissive := newTestValidator(ValidatorOptions{}).Validate("shipment.xml", []byte(doc))
	assert.True(t, permissive.Valid)

	strict := newTestValidator(ValidatorOptions{StrictVersion: true}).Validate("shipment.xml", []byte(doc))
	assert.False(t, strict.Valid)
	assert.Equal(t, types.ErrVersionMismatch, strict.ErrorCode)

	matching := newTestValidator(ValidatorOptions{StrictVersion: true}).Validate("shipment.xml", []byte(sampleDocument))
	assert.True(t, matching.Valid)
}

func TestValidateStrictTransactionStatement(t *testing.T) {
	doc := `<EPCISDocument schemaVersion="1.2"><EPCISBody><EventList/></EPCISBody></EPCISDocument>`

	permissive := newTestValidator(ValidatorOptions{}).Validate("shipment.xml", []byte(doc))
	assert.True(t, permissive.Valid)

	strict := newTestValidator(ValidatorOptions{StrictTransactionStatement: true}).Validate("shipment.xml", []byte(doc))
	assert.False(t, strict.Valid)
	assert.Equal(t, types.ErrTransactionStatementMissing, strict.ErrorCode)
}

func TestValidateStreamPathMatchesFullParse(t *testing.T) {
	// A one-byte threshold forces every document through the streaming path
	streamed := newTestValidator(ValidatorOptions{StreamThreshold: 1}).Validate("shipment.xml", []byte(sampleDocument))
	full := newTestValidator(ValidatorOptions{}).Validate("shipment.xml", []byte(sampleDocument))

	require.True(t, streamed.Valid)
	require.True(t, full.Valid)
	stripEventTimes(streamed.Metadata)
	stripEventTimes(full.Metadata)
	assert.Equal(t, full.Metadata, streamed.Metadata)
}

// A CDATA section holding a literal event close tag defeats the streaming
// span scan; the document is still well-formed XML.
const cdataDocument = `<?xml version="1.0" encoding="UTF-8"?>
<epcis:EPCISDocument xmlns:epcis="urn:epcglobal:epcis:xsd:1" schemaVersion="1.2">
  <EPCISBody>
    <EventList>
      <ObjectEvent>
        <eventTime>2026-08-01T10:00:00Z</eventTime>
        <epcList><epc>urn:epc:id:sgtin:0301430.0957010.SN1</epc></epcList>
        <action>ADD</action>
        <bizTransactionList>
          <bizTransaction type="urn:epcglobal:cbv:btt:desadv"><![CDATA[shipping note </ObjectEvent> attached]]></bizTransaction>
        </bizTransactionList>
      </ObjectEvent>
    </EventList>
  </EPCISBody>
</epcis:EPCISDocument>`

func TestValidateFallsBackWhenStreamingFails(t *testing.T) {
	// The span scan cuts the event at the CDATA's close tag and the
	// truncated reparse errors out
	_, err := newTestExtractor().ExtractStream(strings.NewReader(cdataDocument))
	require.Error(t, err)

	result := newTestValidator(ValidatorOptions{StreamThreshold: 1}).Validate("shipment.xml", []byte(cdataDocument))

	require.True(t, result.Valid)
	require.NotNil(t, result.Metadata)
	require.Len(t, result.Metadata.ProductItems, 1)
	assert.Equal(t, "SN1", result.Metadata.ProductItems[0].SerialNumber)
	assert.Equal(t, 1, result.Metadata.ObjectEventCount)
}
