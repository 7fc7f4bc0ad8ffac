package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rxtrace/epcis-service/internal/epcis"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract document metadata from an EPCIS XML file",
	Long: `Parse an EPCIS XML file and print the extracted metadata as JSON: sender,
schema version, event counts, product master data, serialized items, and
purchase order references. Skips the validation policy checks; use the
validate command to apply them.`,
	Example: `  epcis-service extract ./shipment.xml
  epcis-service extract ./shipment.xml | jq '.productItems[].gtin'`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	extractor := epcis.NewExtractor(*logger)
	meta, err := extractor.Extract(content)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
