package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rxtrace/epcis-service/internal/epcis"
	"github.com/rxtrace/epcis-service/internal/reconcile"
	"github.com/rxtrace/epcis-service/internal/scan"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <payload>",
	Short: "Decode a raw barcode payload",
	Long: `Decode a scanned DataMatrix payload into GTIN, lot, serial, and expiration
fields. Accepts GS1 AI streams with FNC1 separators, the parenthesized
human-readable form, and hardware-scanner variants. Unrecognized payloads
are echoed back as unstructured.`,
	Example: `  epcis-service scan '(01)00301430957010(17)260930(10)LOT1(21)SER1'
  epcis-service scan "0100301430957010172609301024052241"`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var reconcileDocument string

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile <payload>",
	Short: "Match a scanned payload against an EPCIS document",
	Long: `Decode a scanned payload and rank it against the product items extracted
from an EPCIS XML file. Prints the best match tier and the per-item match
breakdown.`,
	Example: `  epcis-service reconcile "0100301430957010102405224121SNABC" --document ./shipment.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&reconcileDocument, "document", "", "EPCIS XML file to match against (required)")
	reconcileCmd.MarkFlagRequired("document")
}

func runScan(cmd *cobra.Command, args []string) error {
	code := scan.Parse(args[0])

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(code)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(reconcileDocument)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", reconcileDocument, err)
	}

	validator := epcis.NewValidator(*logger, epcis.ValidatorOptions{})
	result := validator.Validate(filepath.Base(reconcileDocument), content)
	if !result.Valid {
		return fmt.Errorf("document rejected: [%s] %s", result.ErrorCode, result.ErrorMessage)
	}

	code := scan.Parse(args[0])
	engine := reconcile.NewEngine(*logger)
	best := engine.Best(code, result.Metadata.ProductItems)
	ranked := engine.RankAll(code, result.Metadata.ProductItems)

	out := map[string]any{
		"code":       code,
		"bestMatch":  best,
		"candidates": ranked,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
