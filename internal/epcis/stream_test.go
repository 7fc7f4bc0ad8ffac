package epcis

import (
	"strconv"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtrace/epcis-service/internal/types"
)

func TestExtractStreamMatchesFullParse(t *testing.T) {
	ex := newTestExtractor()

	full, err := ex.Extract([]byte(sampleDocument))
	require.NoError(t, err)

	streamed, err := ex.ExtractStream(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	stripEventTimes(full)
	stripEventTimes(streamed)
	assert.Equal(t, full, streamed)
}

func TestExtractStreamSmallChunks(t *testing.T) {
	ex := newTestExtractor()

	streamed, err := ex.ExtractStream(iotest.OneByteReader(strings.NewReader(sampleDocument)))
	require.NoError(t, err)

	assert.Equal(t, "1.2", streamed.SchemaVersion)
	assert.Equal(t, "03000100111", streamed.SenderIdentifier)
	assert.True(t, streamed.TransactionStatement)
	assert.Len(t, streamed.ProductItems, 3)
	assert.Equal(t, []string{"PO12345"}, streamed.PurchaseOrderRefs)
}

func TestExtractStreamNotEPCIS(t *testing.T) {
	_, err := newTestExtractor().ExtractStream(strings.NewReader("<shipment><item/></shipment>"))

	assert.Equal(t, types.ErrNotEPCIS, types.CodeOf(err))
}

func TestExtractStreamManyEvents(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<EPCISDocument schemaVersion="1.2"><EPCISBody><EventList>`)
	for i := 0; i < 50; i++ {
		sb.WriteString(`<ObjectEvent><eventTime>2024-05-22T10:00:00Z</eventTime><epcList>`)
		sb.WriteString(`<epc>urn:epc:id:sgtin:0301430.0957010.S` + strconv.Itoa(i) + `</epc>`)
		sb.WriteString(`</epcList></ObjectEvent>`)
	}
	sb.WriteString(`</EventList></EPCISBody></EPCISDocument>`)

	meta, err := newTestExtractor().ExtractStream(strings.NewReader(sb.String()))
	require.NoError(t, err)

	assert.Equal(t, 50, meta.ObjectEventCount)
	assert.Len(t, meta.ProductItems, 50)
	// Document order survives the incremental span scan
	assert.Equal(t, "S0", meta.ProductItems[0].SerialNumber)
	assert.Equal(t, "S49", meta.ProductItems[49].SerialNumber)
}
