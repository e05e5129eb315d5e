package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/kb-labs/pkgops/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the package.json schema as JSON Schema",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

var flagSchemaFormat string

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVarP(&flagSchemaFormat, "format", "f", "json", "output format: json or yaml")
}

func runSchema(cmd *cobra.Command, args []string) error {
	doc := schema.ToJSONSchema(schema.Package())
	out := cmd.OutOrStdout()

	switch flagSchemaFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", flagSchemaFormat)
	}
}
