package pipeline

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtrace/epcis-service/internal/epcis"
	"github.com/rxtrace/epcis-service/internal/storage"
	"github.com/rxtrace/epcis-service/internal/types"
)

const sampleUpload = `<?xml version="1.0" encoding="UTF-8"?>
<epcis:EPCISDocument xmlns:epcis="urn:epcglobal:epcis:xsd:1" schemaVersion="1.2">
  <EPCISBody>
    <EventList>
      <ObjectEvent>
        <eventTime>2026-08-01T10:00:00Z</eventTime>
        <epcList>
          <epc>urn:epc:id:sgtin:0301430.0957010.SN001</epc>
        </epcList>
        <action>ADD</action>
        <extension>
          <ilmd>
            <cbvmda:lotNumber xmlns:cbvmda="urn:epcglobal:cbv:mda">LOT1</cbvmda:lotNumber>
            <cbvmda:itemExpirationDate xmlns:cbvmda="urn:epcglobal:cbv:mda">2027-01-31</cbvmda:itemExpirationDate>
          </ilmd>
        </extension>
      </ObjectEvent>
    </EventList>
  </EPCISBody>
</epcis:EPCISDocument>`

func newTestProcessor(t *testing.T) (*Processor, *storage.LocalStorage) {
	t.Helper()
	log := zerolog.Nop()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	validator := epcis.NewValidator(log, epcis.ValidatorOptions{})
	return NewProcessor(validator, store, false, log), store
}

func TestProcessValidUpload(t *testing.T) {
	processor, store := newTestProcessor(t)
	ctx := context.Background()

	result, err := processor.Process(ctx, Upload{Filename: "shipment.xml", Content: []byte(sampleUpload)})
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.False(t, result.Duplicate)
	assert.Equal(t, storage.ComputeChecksum([]byte(sampleUpload)), result.Checksum)
	require.NotNil(t, result.Metadata)
	require.Len(t, result.Metadata.ProductItems, 1)
	assert.Equal(t, "03014300957010", result.Metadata.ProductItems[0].GTIN)

	// The raw upload is archived
	require.NotEmpty(t, result.StorageKey)
	archived, err := store.Get(ctx, result.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, []byte(sampleUpload), archived)
}

func TestProcessRejectedUpload(t *testing.T) {
	processor, store := newTestProcessor(t)
	ctx := context.Background()

	result, err := processor.Process(ctx, Upload{Filename: "notes.csv", Content: []byte("a,b,c")})
	require.NoError(t, err)

	assert.False(t, result.Valid)
	assert.Equal(t, types.ErrInvalidFileType, result.ErrorCode)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Nil(t, result.Metadata)

	// Rejected uploads are not archived
	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestProcessWithoutStore(t *testing.T) {
	log := zerolog.Nop()
	validator := epcis.NewValidator(log, epcis.ValidatorOptions{})
	processor := NewProcessor(validator, nil, false, log)

	result, err := processor.Process(context.Background(), Upload{Filename: "shipment.xml", Content: []byte(sampleUpload)})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.StorageKey)
}

func TestProcessBatchMixedOutcomes(t *testing.T) {
	processor, _ := newTestProcessor(t)

	uploads := []Upload{
		{Filename: "good.xml", Content: []byte(sampleUpload)},
		{Filename: "bad.xml", Content: []byte("not xml at all")},
		{Filename: "good2.xml", Content: []byte(sampleUpload)},
	}

	results, err := processor.ProcessBatch(context.Background(), uploads, "cli", 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Valid)
	assert.False(t, results[1].Valid)
	assert.True(t, results[2].Valid)
}
