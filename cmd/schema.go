package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/sentinelnexus/guard/internal/models"
)

var schemaType string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print JSON Schema for the wire types",
	Long:  `Emit the JSON Schema of the scan protocol types (event envelope, scan result, start message) for integrating against the API without this client.`,
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaType, "type", "event", "Which schema to print: event, result, start, finding")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	targets := map[string]any{
		"event":   &models.EventEnvelope{},
		"result":  &models.ScanResult{},
		"start":   &models.StartMessage{},
		"finding": &models.Finding{},
	}

	target, ok := targets[schemaType]
	if !ok {
		return fmt.Errorf("unknown schema type %q (want event, result, start or finding)", schemaType)
	}

	schema := jsonschema.Reflect(target)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(schema)
}
