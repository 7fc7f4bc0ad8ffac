package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rxtrace/epcis-service/internal/epcis"
)

var (
	validateOutput string
	validateStrict bool
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate and extract an EPCIS XML document",
	Long: `Validate a local EPCIS XML file and extract its document metadata: sender,
schema version, event counts, product master data, serialized product items,
and purchase order references. By default version and transaction-statement
mismatches are reported as warnings; --strict turns them into failures.`,
	Example: `  epcis-service validate ./shipment.xml
  epcis-service validate ./shipment.xml --output json
  epcis-service validate ./shipment.xml --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateOutput, "output", "table", "Output format: table or json")
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Enforce schema version and transaction statement")
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	logger.Info().Str("file", filePath).Msg("Reading file")
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	validator := epcis.NewValidator(*logger, epcis.ValidatorOptions{
		StrictVersion:              validateStrict,
		StrictTransactionStatement: validateStrict,
	})
	result := validator.Validate(filepath.Base(filePath), content)

	if validateOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if !result.Valid {
		fmt.Printf("INVALID: [%s] %s\n", result.ErrorCode, result.ErrorMessage)
		return fmt.Errorf("document rejected")
	}

	meta := result.Metadata
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Schema version:\t%s\n", meta.SchemaVersion)
	fmt.Fprintf(w, "Sender:\t%s\n", meta.SenderIdentifier)
	fmt.Fprintf(w, "Transaction statement:\t%t\n", meta.TransactionStatement)
	fmt.Fprintf(w, "Object events:\t%d\n", meta.ObjectEventCount)
	fmt.Fprintf(w, "Aggregation events:\t%d\n", meta.AggregationEventCount)
	fmt.Fprintf(w, "Transaction events:\t%d\n", meta.TransactionEventCount)
	fmt.Fprintf(w, "Product items:\t%d\n", len(meta.ProductItems))
	fmt.Fprintf(w, "PO references:\t%d\n", len(meta.PurchaseOrderRefs))
	if meta.ProductInfo != nil && meta.ProductInfo.Name != nil {
		fmt.Fprintf(w, "Product:\t%s\n", *meta.ProductInfo.Name)
	}
	w.Flush()

	for i, item := range meta.ProductItems {
		if i >= 10 {
			fmt.Printf("  ... and %d more items\n", len(meta.ProductItems)-10)
			break
		}
		fmt.Printf("  %s serial=%s lot=%s exp=%s\n", item.GTIN, item.SerialNumber, item.LotNumber, item.ExpirationDate)
	}

	return nil
}
