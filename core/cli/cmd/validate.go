package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chenhy0213/test-tool-with-db/core/cli/internal"
	"github.com/chenhy0213/test-tool-with-db/core/config"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:           "validate [path]",
	Short:         "Validate a configuration document",
	RunE:          validateConfig,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&configFile, "file", "f", "", "Path to the configuration document (default: ./config.json)")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	log := logging.New("Validate")

	if err := resolveValidatePathArg(args); err != nil {
		return err
	}
	LoadEnvFiles(filepath.Dir(configFile))

	// No default fallback here: validating a broken document must fail.
	cfg, err := internal.LoadConfigStrict(configFile)
	if err != nil {
		return err
	}

	printValidationSummary(log, configFile, cfg)
	log.Successf("Configuration is valid: %s", configFile)
	return nil
}

func resolveValidatePathArg(args []string) error {
	if len(args) == 0 {
		if configFile == "" {
			configFile = defaultConfigFileName
		}
		return nil
	}

	if configFile != "" {
		return logging.WithTag("Validate", fmt.Errorf("cannot combine path argument with --file"))
	}

	target := args[0]
	info, err := os.Stat(target)
	if err != nil {
		return logging.WithTag("Validate", err)
	}
	if info.IsDir() {
		configFile = filepath.Join(target, defaultConfigFileName)
		return nil
	}

	configFile = target
	return nil
}

func printValidationSummary(log logging.Logger, loadFrom string, cfg *config.Config) {
	log.Info("Validation report:")
	log.Infof("  document: %s", loadFrom)
	log.Infof("  database: %s@%s:%d/%s (%s)",
		cfg.Database.Username, cfg.Database.Host, cfg.Database.Port,
		cfg.Database.Database, cfg.Database.Driver)
	if cfg.Server.Port > 0 {
		log.Infof("  server port: %d", cfg.Server.Port)
	}
	if timeout := cfg.Server.QueryTimeout(); timeout > 0 {
		log.Infof("  query timeout: %s", timeout)
	}

	log.Infof("  templates (%d):", cfg.Templates.Len())
	if cfg.Templates.Len() == 0 {
		log.Info("    - none")
		return
	}
	for _, tpl := range cfg.Templates.All() {
		log.Infof("    - %s: %d statement(s)", tpl.Name, len(tpl.Statements))
		for _, field := range tpl.Fields {
			log.Infof("        input: %s (%s)", field.Label, field.Type)
		}
		for _, warning := range config.PlaceholderWarnings(tpl) {
			log.Warnf("        %s", warning)
		}
	}
}
