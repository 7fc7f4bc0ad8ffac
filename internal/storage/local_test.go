package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewBackendByType(t *testing.T) {
	store, err := New(StorageTypeLocal, t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	store, err = New("", t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	_, err = New(StorageTypeS3, t.TempDir())
	require.Error(t, err)

	_, err = New("ftp", t.TempDir())
	require.Error(t, err)
}

func TestPutAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	content := []byte("<epcis:EPCISDocument/>")
	err := store.Put(ctx, "documents/2026-08-31/03000100111/shipment.xml", content, &Metadata{
		ContentType:      "application/xml",
		OriginalName:     "shipment.xml",
		SenderIdentifier: "03000100111",
		UploadedAt:       time.Now(),
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "documents/2026-08-31/03000100111/shipment.xml")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestGetInfoIncludesMetadata(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	content := []byte("payload")
	require.NoError(t, store.Put(ctx, "documents/a.xml", content, &Metadata{
		ContentType:   "application/xml",
		SchemaVersion: "1.2",
	}))

	info, err := store.GetInfo(ctx, "documents/a.xml")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, ComputeChecksum(content), info.Checksum)
	assert.Equal(t, "application/xml", info.ContentType)
	require.NotNil(t, info.Metadata)
	assert.Equal(t, "1.2", info.Metadata.SchemaVersion)
}

func TestExistsAndDelete(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "documents/b.xml", []byte("x"), nil))

	exists, err := store.Exists(ctx, "documents/b.xml")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "documents/b.xml"))

	exists, err = store.Exists(ctx, "documents/b.xml")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, "documents/b.xml"))
}

func TestListFiltersMetaSidecars(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "documents/2026-08-30/s1/a.xml", []byte("a"), &Metadata{}))
	require.NoError(t, store.Put(ctx, "documents/2026-08-31/s1/b.xml", []byte("b"), &Metadata{}))
	require.NoError(t, store.Put(ctx, "other/c.xml", []byte("c"), nil))

	keys, err := store.List(ctx, "documents/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"documents/2026-08-30/s1/a.xml",
		"documents/2026-08-31/s1/b.xml",
	}, keys)
}

func TestKeyTraversalContained(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "../../escape.xml", []byte("x"), nil))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"escape.xml"}, keys)
}

func TestBuildDocumentKey(t *testing.T) {
	at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	key := BuildDocumentKey("03000100111", at, "/tmp/uploads/shipment.xml")
	assert.Equal(t, "documents/2026-08-31/03000100111/shipment.xml", key)

	key = BuildDocumentKey("", at, "shipment.xml")
	assert.Equal(t, "documents/2026-08-31/unknown/shipment.xml", key)
}
