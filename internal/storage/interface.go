package storage

import (
	"context"
	"fmt"
	"time"
)

// Metadata describes a stored document file
type Metadata struct {
	ContentType      string            `json:"contentType,omitempty"`
	OriginalName     string            `json:"originalName,omitempty"`
	SenderIdentifier string            `json:"senderIdentifier,omitempty"`
	SchemaVersion    string            `json:"schemaVersion,omitempty"`
	UploadedAt       time.Time         `json:"uploadedAt,omitempty"`
	Custom           map[string]string `json:"custom,omitempty"`
}

// FileInfo contains information about a stored file
type FileInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	ContentType string    `json:"contentType,omitempty"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// Storage archives the raw uploads so a document can be reparsed or audited
// later. Implementations can be local filesystem, S3, GCS, etc.
type Storage interface {
	// Put stores content at the given key with optional metadata
	Put(ctx context.Context, key string, content []byte, metadata *Metadata) error

	// Get retrieves content from the given key
	Get(ctx context.Context, key string) ([]byte, error)

	// GetInfo retrieves file information without content
	GetInfo(ctx context.Context, key string) (*FileInfo, error)

	// Exists checks if a file exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a file at the given key
	Delete(ctx context.Context, key string) error

	// List returns all keys matching the given prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// New builds the backend named in configuration. An empty type selects the
// local filesystem.
func New(storageType StorageType, basePath string) (Storage, error) {
	switch storageType {
	case StorageTypeLocal, "":
		return NewLocalStorage(basePath)
	case StorageTypeS3:
		return nil, fmt.Errorf("s3 storage backend not implemented")
	default:
		return nil, fmt.Errorf("unknown storage type %q", storageType)
	}
}
