package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rxtrace/epcis-service/internal/database"
	"github.com/rxtrace/epcis-service/internal/epcis"
	"github.com/rxtrace/epcis-service/internal/pipeline"
	"github.com/rxtrace/epcis-service/internal/storage"
)

var (
	ingestConcurrency int
	ingestDryRun      bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <file or directory>",
	Short: "Process EPCIS documents into the portal",
	Long: `Run one or more EPCIS XML files through the full processing pipeline:
validation, extraction, archive storage, and database persistence. A
directory argument processes every .xml file in it. --dry-run skips the
archive and database writes.`,
	Example: `  epcis-service ingest ./shipment.xml
  epcis-service ingest ./inbox --concurrency 8
  epcis-service ingest ./shipment.xml --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 4, "Parallel uploads for directory ingest")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Validate and extract without persisting")
}

func runIngest(cmd *cobra.Command, args []string) error {
	uploads, err := collectUploads(args[0])
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		logger.Info().Msg("No XML files found, nothing to do")
		return nil
	}

	var store storage.Storage
	persist := !ingestDryRun
	if persist {
		backend, err := storage.New(storage.StorageType(cfg.Storage.Type), cfg.Storage.BasePath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		store = backend
		defer database.Close()
	}

	validator := epcis.NewValidator(*logger, epcis.ValidatorOptions{
		StrictVersion:              cfg.Validation.StrictVersion,
		ExpectedVersion:            cfg.Validation.ExpectedVersion,
		StrictTransactionStatement: cfg.Validation.StrictTransactionStatement,
		MaxFileSize:                cfg.Validation.MaxFileSize,
		StreamThreshold:            cfg.Validation.StreamThreshold,
	})
	processor := pipeline.NewProcessor(validator, store, persist, *logger)

	results, err := processor.ProcessBatch(cmd.Context(), uploads, "cli", ingestConcurrency)
	if err != nil {
		return err
	}

	accepted, rejected := 0, 0
	for i, result := range results {
		if result.Valid {
			accepted++
			fmt.Printf("OK   %s items=%d id=%s\n", uploads[i].Filename, len(result.Metadata.ProductItems), result.DocumentID)
		} else {
			rejected++
			fmt.Printf("FAIL %s [%s] %s\n", uploads[i].Filename, result.ErrorCode, result.ErrorMessage)
		}
	}
	fmt.Printf("Processed %d files: %d accepted, %d rejected\n", len(results), accepted, rejected)

	if rejected > 0 {
		return fmt.Errorf("%d documents rejected", rejected)
	}
	return nil
}

func collectUploads(path string) ([]pipeline.Upload, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var files []string
	if stat.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if ext := filepath.Ext(entry.Name()); ext == ".xml" || ext == ".XML" {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	} else {
		files = []string{path}
	}

	uploads := make([]pipeline.Upload, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		uploads = append(uploads, pipeline.Upload{Filename: filepath.Base(file), Content: content})
	}
	return uploads, nil
}
