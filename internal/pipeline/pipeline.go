// Package pipeline runs uploaded EPCIS documents through validation,
// archiving, and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rxtrace/epcis-service/internal/database"
	"github.com/rxtrace/epcis-service/internal/epcis"
	"github.com/rxtrace/epcis-service/internal/metrics"
	"github.com/rxtrace/epcis-service/internal/storage"
	"github.com/rxtrace/epcis-service/internal/types"
)

// Result describes the outcome of processing one upload
type Result struct {
	DocumentID   string                  `json:"documentId,omitempty"`
	Valid        bool                    `json:"valid"`
	Duplicate    bool                    `json:"duplicate"`
	ErrorCode    types.ErrorCode         `json:"errorCode,omitempty"`
	ErrorMessage string                  `json:"errorMessage,omitempty"`
	StorageKey   string                  `json:"storageKey,omitempty"`
	Checksum     string                  `json:"checksum,omitempty"`
	Metadata     *types.DocumentMetadata `json:"metadata,omitempty"`
}

// Upload is one file handed to the pipeline
type Upload struct {
	Filename string
	Content  []byte
}

// Processor validates, archives, and persists uploads. An archive failure
// after a successful parse degrades the result rather than rejecting the
// document: the extraction outcome is what the caller paid for.
type Processor struct {
	validator *epcis.Validator
	store     storage.Storage
	log       zerolog.Logger
	persist   bool
}

// NewProcessor wires a processing pipeline. A nil store disables archiving;
// persist false skips the database write (used by the CLI).
func NewProcessor(validator *epcis.Validator, store storage.Storage, persist bool, log zerolog.Logger) *Processor {
	return &Processor{
		validator: validator,
		store:     store,
		persist:   persist,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// Process runs one upload through the full pipeline
func (p *Processor) Process(ctx context.Context, upload Upload) (*Result, error) {
	start := time.Now()
	checksum := storage.ComputeChecksum(upload.Content)

	if p.persist {
		existing, err := database.GetDocumentByChecksum(ctx, checksum)
		if err == nil {
			p.log.Info().
				Str("documentId", existing.ID).
				Str("filename", upload.Filename).
				Msg("duplicate upload, returning existing document")
			meta, err := existing.ExtractedMetadata()
			if err != nil {
				return nil, err
			}
			return &Result{
				DocumentID: existing.ID,
				Valid:      true,
				Duplicate:  true,
				StorageKey: existing.StorageKey,
				Checksum:   checksum,
				Metadata:   meta,
			}, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("checksum lookup: %w", err)
		}
	}

	validation := p.validator.Validate(upload.Filename, upload.Content)
	if !validation.Valid {
		metrics.RecordDocumentRejected(string(validation.ErrorCode))
		p.log.Warn().
			Str("filename", upload.Filename).
			Str("code", string(validation.ErrorCode)).
			Str("reason", validation.ErrorMessage).
			Msg("upload rejected")
		return &Result{
			Valid:        false,
			ErrorCode:    validation.ErrorCode,
			ErrorMessage: validation.ErrorMessage,
			Checksum:     checksum,
		}, nil
	}
	meta := validation.Metadata

	result := &Result{
		Valid:    true,
		Checksum: checksum,
		Metadata: meta,
	}

	if p.store != nil {
		now := time.Now()
		key := storage.BuildDocumentKey(meta.SenderIdentifier, now, upload.Filename)
		err := p.store.Put(ctx, key, upload.Content, &storage.Metadata{
			ContentType:      "application/xml",
			OriginalName:     upload.Filename,
			SenderIdentifier: meta.SenderIdentifier,
			SchemaVersion:    meta.SchemaVersion,
			UploadedAt:       now,
		})
		if err != nil {
			p.log.Error().Err(err).Str("key", key).Msg("failed to archive upload")
		} else {
			result.StorageKey = key
		}
	}

	if p.persist {
		doc, err := database.NewDocument(upload.Filename, int64(len(upload.Content)), checksum, result.StorageKey, meta)
		if err != nil {
			return nil, err
		}
		if err := database.CreateDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("persist document: %w", err)
		}
		result.DocumentID = doc.ID
	}

	mode := "full"
	if int64(len(upload.Content)) >= epcis.DefaultStreamThreshold {
		mode = "stream"
	}
	metrics.RecordDocumentAccepted(int64(len(upload.Content)), len(meta.ProductItems), mode, time.Since(start))

	p.log.Info().
		Str("documentId", result.DocumentID).
		Str("filename", upload.Filename).
		Str("sender", meta.SenderIdentifier).
		Int("items", len(meta.ProductItems)).
		Dur("took", time.Since(start)).
		Msg("document processed")

	return result, nil
}

// ProcessBatch runs multiple uploads concurrently. Individual rejections do
// not abort the batch; only infrastructure failures do. When persistence is
// enabled the batch is recorded as an ingestion run with its outcome counts.
func (p *Processor) ProcessBatch(ctx context.Context, uploads []Upload, source string, concurrency int) ([]*Result, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	var run *database.IngestionRun
	if p.persist {
		var err error
		run, err = database.StartIngestionRun(ctx, source, len(uploads))
		if err != nil {
			return nil, err
		}
	}

	results := make([]*Result, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, upload := range uploads {
		g.Go(func() error {
			result, err := p.Process(gctx, upload)
			if err != nil {
				return fmt.Errorf("%s: %w", upload.Filename, err)
			}
			results[i] = result
			return nil
		})
	}

	err := g.Wait()

	if run != nil {
		var accepted, rejected, duplicates int
		for _, r := range results {
			switch {
			case r == nil:
				continue
			case r.Duplicate:
				duplicates++
			case r.Valid:
				accepted++
			default:
				rejected++
			}
		}
		if cerr := database.CompleteIngestionRun(ctx, run.ID, accepted, rejected, duplicates, err != nil); cerr != nil {
			p.log.Error().Err(cerr).Str("runId", run.ID).Msg("failed to finalize ingestion run")
		}
	}

	if err != nil {
		return nil, err
	}
	return results, nil
}
