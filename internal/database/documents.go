package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rxtrace/epcis-service/internal/types"
)

// Document is the persisted record for one processed EPCIS upload. The full
// extracted metadata rides along as JSONB so reconciliation can rehydrate the
// product item list without reparsing the archived XML.
type Document struct {
	ID                   string    `json:"id"` // doc_{uuid}
	Filename             string    `json:"filename"`
	FileSize             int64     `json:"file_size"`
	Checksum             string    `json:"checksum"` // SHA-256 of the raw upload
	StorageKey           string    `json:"storage_key"`
	SchemaVersion        string    `json:"schema_version"`
	SenderIdentifier     string    `json:"sender_identifier"`
	TransactionStatement bool      `json:"transaction_statement"`
	ObjectEvents         int       `json:"object_events"`
	AggregationEvents    int       `json:"aggregation_events"`
	TransactionEvents    int       `json:"transaction_events"`
	ProductItemCount     int       `json:"product_item_count"`
	Metadata             []byte    `json:"-"` // JSONB DocumentMetadata
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DocumentFilter narrows ListDocuments results
type DocumentFilter struct {
	SenderIdentifier *string
	StartDate        *time.Time
	EndDate          *time.Time
	Limit            int
	Offset           int
}

// NewDocument builds a Document row from extraction output
func NewDocument(filename string, size int64, checksum, storageKey string, meta *types.DocumentMetadata) (*Document, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal document metadata: %w", err)
	}
	return &Document{
		ID:                   GenerateDocumentID(),
		Filename:             filename,
		FileSize:             size,
		Checksum:             checksum,
		StorageKey:           storageKey,
		SchemaVersion:        meta.SchemaVersion,
		SenderIdentifier:     meta.SenderIdentifier,
		TransactionStatement: meta.TransactionStatement,
		ObjectEvents:         meta.ObjectEventCount,
		AggregationEvents:    meta.AggregationEventCount,
		TransactionEvents:    meta.TransactionEventCount,
		ProductItemCount:     len(meta.ProductItems),
		Metadata:             raw,
	}, nil
}

// ExtractedMetadata unmarshals the stored DocumentMetadata payload
func (d *Document) ExtractedMetadata() (*types.DocumentMetadata, error) {
	var meta types.DocumentMetadata
	if err := json.Unmarshal(d.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal document metadata: %w", err)
	}
	return &meta, nil
}

const documentColumns = `
	id, filename, file_size, checksum, storage_key, schema_version,
	sender_identifier, transaction_statement, object_events,
	aggregation_events, transaction_events, product_item_count,
	metadata, created_at, updated_at`

// CreateDocument inserts a document record. Re-uploading identical bytes
// updates the existing row instead of creating a duplicate.
func CreateDocument(ctx context.Context, doc *Document) error {
	pool := Pool()

	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `
		INSERT INTO documents (` + documentColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (checksum) DO UPDATE SET
			filename = EXCLUDED.filename,
			storage_key = EXCLUDED.storage_key,
			schema_version = EXCLUDED.schema_version,
			sender_identifier = EXCLUDED.sender_identifier,
			transaction_statement = EXCLUDED.transaction_statement,
			object_events = EXCLUDED.object_events,
			aggregation_events = EXCLUDED.aggregation_events,
			transaction_events = EXCLUDED.transaction_events,
			product_item_count = EXCLUDED.product_item_count,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	_, err := pool.Exec(ctx, query,
		doc.ID, doc.Filename, doc.FileSize, doc.Checksum, doc.StorageKey,
		doc.SchemaVersion, doc.SenderIdentifier, doc.TransactionStatement,
		doc.ObjectEvents, doc.AggregationEvents, doc.TransactionEvents,
		doc.ProductItemCount, doc.Metadata, doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

func scanDocument(row interface{ Scan(dest ...any) error }) (*Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.FileSize, &doc.Checksum, &doc.StorageKey,
		&doc.SchemaVersion, &doc.SenderIdentifier, &doc.TransactionStatement,
		&doc.ObjectEvents, &doc.AggregationEvents, &doc.TransactionEvents,
		&doc.ProductItemCount, &doc.Metadata, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocumentByID retrieves a document by its ID
func GetDocumentByID(ctx context.Context, id string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(Pool().QueryRow(ctx, query, id))
}

// GetDocumentByChecksum looks up a document by checksum for deduplication
func GetDocumentByChecksum(ctx context.Context, checksum string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE checksum = $1 LIMIT 1`
	return scanDocument(Pool().QueryRow(ctx, query, checksum))
}

// ListDocuments retrieves documents newest-first with optional filtering
func ListDocuments(ctx context.Context, filter DocumentFilter) ([]Document, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	args := []any{}
	n := 0

	if filter.SenderIdentifier != nil {
		n++
		query += fmt.Sprintf(" AND sender_identifier = $%d", n)
		args = append(args, *filter.SenderIdentifier)
	}
	if filter.StartDate != nil {
		n++
		query += fmt.Sprintf(" AND created_at >= $%d", n)
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		n++
		query += fmt.Sprintf(" AND created_at <= $%d", n)
		args = append(args, *filter.EndDate)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	documents := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, *doc)
	}
	return documents, rows.Err()
}

// DeleteDocument removes a document record
func DeleteDocument(ctx context.Context, id string) error {
	_, err := Pool().Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

// GenerateDocumentID generates a new document ID with doc_ prefix
func GenerateDocumentID() string {
	return fmt.Sprintf("doc_%s", uuid.New().String())
}
