package epcis

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rxtrace/epcis-service/internal/types"
)

// DefaultMaxFileSize is the upload size ceiling
const DefaultMaxFileSize = 50 * 1024 * 1024

// DefaultExpectedVersion is the schema version enforced in strict mode
const DefaultExpectedVersion = "1.2"

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// ValidatorOptions configures the validation pipeline. The zero value is the
// permissive production mode: version and transaction-statement mismatches
// are logged and waved through.
type ValidatorOptions struct {
	StrictVersion              bool
	ExpectedVersion            string
	StrictTransactionStatement bool
	MaxFileSize                int64
	StreamThreshold            int64
}

// Validator runs uploads through the ordered acceptance checks before
// handing the bytes to the extractor
type Validator struct {
	opts ValidatorOptions
	ex   *Extractor
	log  zerolog.Logger
}

// NewValidator creates a Validator, filling in option defaults
func NewValidator(log zerolog.Logger, opts ValidatorOptions) *Validator {
	if opts.ExpectedVersion == "" {
		opts.ExpectedVersion = DefaultExpectedVersion
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.StreamThreshold <= 0 {
		opts.StreamThreshold = DefaultStreamThreshold
	}
	return &Validator{opts: opts, ex: NewExtractor(log), log: log}
}

// Validate applies the check sequence, short-circuiting on the first
// failure: file type, size, parse, then the configurable strict checks.
func (v *Validator) Validate(filename string, content []byte) *types.ValidationResult {
	if err := checkFileType(filename, content); err != nil {
		return failure(err)
	}

	if int64(len(content)) > v.opts.MaxFileSize {
		return failure(types.NewValidationError(types.ErrFileTooLarge,
			fmt.Sprintf("document is %d bytes, limit is %d", len(content), v.opts.MaxFileSize)))
	}

	meta, err := v.extract(content)
	if err != nil {
		return failure(err)
	}

	if meta.SchemaVersion != v.opts.ExpectedVersion {
		if v.opts.StrictVersion {
			return failure(types.NewValidationError(types.ErrVersionMismatch,
				fmt.Sprintf("schema version %q, expected %q", meta.SchemaVersion, v.opts.ExpectedVersion)))
		}
		v.log.Warn().
			Str("version", meta.SchemaVersion).
			Str("expected", v.opts.ExpectedVersion).
			Msg("schema version differs from expected, proceeding")
	}

	if !meta.TransactionStatement {
		if v.opts.StrictTransactionStatement {
			return failure(types.NewValidationError(types.ErrTransactionStatementMissing,
				"document does not affirm a DSCSA transaction statement"))
		}
		v.log.Warn().Msg("transaction statement not affirmed, proceeding")
	}

	return &types.ValidationResult{Valid: true, Metadata: meta}
}

// extract picks the parse mode by size. A streaming failure falls back to
// the full in-memory parse; only the fallback's verdict is final.
func (v *Validator) extract(content []byte) (*types.DocumentMetadata, error) {
	if int64(len(content)) >= v.opts.StreamThreshold {
		meta, err := v.ex.ExtractStream(bytes.NewReader(content))
		if err == nil {
			return meta, nil
		}
		v.log.Warn().Err(err).Msg("streaming parse failed, falling back to full parse")
	}
	return v.ex.Extract(content)
}

// checkFileType rejects non-XML uploads. ZIP containers get their own error
// code instead of an expansion attempt.
func checkFileType(filename string, content []byte) error {
	if bytes.HasPrefix(content, zipMagic) {
		return types.NewValidationError(types.ErrZipNotSupported,
			"ZIP containers are not accepted, upload the EPCIS XML file directly")
	}

	if filename != "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".xml":
		case ".zip":
			return types.NewValidationError(types.ErrZipNotSupported,
				"ZIP containers are not accepted, upload the EPCIS XML file directly")
		default:
			return types.NewValidationError(types.ErrInvalidFileType,
				fmt.Sprintf("unsupported file type %q, expected an XML document", filepath.Ext(filename)))
		}
	}

	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	if !bytes.Contains(head, []byte("<")) {
		return types.NewValidationError(types.ErrInvalidFileType, "content does not look like XML")
	}
	return nil
}

func failure(err error) *types.ValidationResult {
	result := &types.ValidationResult{Valid: false, ErrorMessage: err.Error()}
	if ve, ok := err.(*types.ValidationError); ok {
		result.ErrorCode = ve.Code
		result.ErrorMessage = ve.Message
	}
	return result
}
