package main

import (
	"github.com/artpar/postmeta/config"
	"github.com/artpar/postmeta/core/formatter"
	"github.com/artpar/postmeta/core/registry"
	"github.com/spf13/cobra"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Inspect registered fields",
}

var fieldsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the fields the configuration registers",
	Long: `List the fields registered from the configuration, including
their storage keys.

Examples:
  postmeta fields list
  postmeta fields list --type=post -o yaml`,
	RunE: runFieldsList,
}

var fieldsType string

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.AddCommand(fieldsListCmd)

	fieldsListCmd.Flags().StringVar(&fieldsType, "type", "", "only list fields of this resource type")
}

func runFieldsList(cmd *cobra.Command, args []string) error {
	f, err := output()
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}
	reg, err := config.BuildRegistry(cfg.Fields)
	if err != nil {
		return err
	}

	return f.FormatList(cmd.OutOrStdout(), "fields", fieldRecords(reg, fieldsType), formatter.FormatOptions{
		Columns: []string{"resource_type", "name", "type", "storage_key", "context", "readonly", "gate"},
	})
}

func fieldRecords(reg *registry.Registry, resourceType string) []formatter.Record {
	var records []formatter.Record
	for _, e := range reg.List() {
		if resourceType != "" && e.ResourceType != resourceType {
			continue
		}
		contexts := make([]string, len(e.Field.Schema.Context))
		for i, c := range e.Field.Schema.Context {
			contexts[i] = string(c)
		}
		records = append(records, formatter.Record{
			"resource_type": e.ResourceType,
			"name":          e.Field.Name,
			"type":          string(e.Field.Schema.Type),
			"storage_key":   e.Field.StorageKey,
			"context":       contexts,
			"readonly":      e.Field.Schema.Readonly,
			"gate":          string(e.Field.Gate),
		})
	}
	return records
}
