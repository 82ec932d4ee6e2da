package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chenhy0213/test-tool-with-db/core/cli/internal"
)

var listSearch string

// listCmd prints the template catalog from a configuration document.
var listCmd = &cobra.Command{
	Use:           "list",
	Short:         "List the query templates in a configuration document",
	RunE:          listTemplates,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&configFile, "file", "f", "", "Path to the configuration document (default: ./config.json)")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Filter templates by name or description")
}

func listTemplates(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		configFile = defaultConfigFileName
	}
	LoadEnvFiles(filepath.Dir(configFile))

	cfg, err := internal.LoadConfig(configFile)
	if err != nil {
		return err
	}

	matches := cfg.Templates.Search(listSearch)
	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		fmt.Fprintln(out, "No templates found.")
		return nil
	}

	for _, tpl := range matches {
		if tpl.Description != "" {
			fmt.Fprintf(out, "%s  -  %s\n", tpl.Name, tpl.Description)
		} else {
			fmt.Fprintln(out, tpl.Name)
		}
		for _, field := range tpl.Fields {
			fmt.Fprintf(out, "    %s (%s)\n", field.Label, field.Type)
		}
	}
	return nil
}
