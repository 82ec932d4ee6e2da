package cmd

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/chenhy0213/test-tool-with-db/core/cli/internal"
	"github.com/chenhy0213/test-tool-with-db/core/config"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/observability"
	"github.com/chenhy0213/test-tool-with-db/core/runtime"
)

// defaultConfigFileName is the document the tool reads when no --file is
// given, looked up relative to the working directory.
const defaultConfigFileName = "config.json"

// serveCmd runs the HTTP service over a configuration document.
var serveCmd = &cobra.Command{
	Use:           "serve",
	Short:         "Serve the query templates over HTTP",
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&configFile, "file", "f", "", "Path to the configuration document (default: ./config.json)")
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Server port (overrides config file and PORT env var)")
	serveCmd.Flags().IntVar(&logLevel, "log-level", 0, "Log level: 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG (overrides config file)")
	serveCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging (sets log level to DEBUG)")
	serveCmd.Flags().StringVar(&logTags, "log-tags", "", "Filter logs by tags (comma-separated, use -tag to exclude). Overrides DBRUN_LOG_TAGS env var")
	serveCmd.Flags().BoolVar(&logFile, "log-file", false, "Stream logs to file in /tmp/.dbrun/logs/")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, providers, err := PrepareRuntime()
	if err != nil {
		return err
	}
	defer shutdownObservability(providers)
	defer logging.CloseLogFile()

	return rt.Start()
}

// configureLogging applies the logging flags shared by the long-running
// commands. The level set here may be lowered later once the configuration
// document's log_level is known.
func configureLogging() error {
	if verbose {
		logging.SetLogLevel(logging.LogLevelDebug)
	} else if logLevel > 0 {
		logging.SetLogLevel(logLevel)
	} else {
		logging.SetLogLevel(logging.LogLevelInfo)
	}

	tagFilterStr := logTags
	if tagFilterStr == "" {
		tagFilterStr = os.Getenv("DBRUN_LOG_TAGS")
	}
	if tagFilterStr != "" {
		logging.SetTagFilter(tagFilterStr)
	}

	if logFile {
		filePath, err := logging.SetLogFile()
		if err != nil {
			return logging.WithTag("Main", err)
		}
		logging.New("Main").Infof("Log file: %s", filePath)
	}
	return nil
}

// PrepareRuntime loads the configuration and builds a runtime ready to
// start, along with the observability providers backing it.
func PrepareRuntime() (*runtime.Runtime, *observability.Providers, error) {
	if err := configureLogging(); err != nil {
		return nil, nil, err
	}

	if configFile == "" {
		configFile = defaultConfigFileName
	}
	LoadEnvFiles(filepath.Dir(configFile))

	cfg, err := internal.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}

	resolvedPort := internal.ResolvePort(port, cfg)
	resolvedLogLevel := internal.ResolveLogLevel(verbose, logLevel, cfg)
	if logLevel == 0 && !verbose {
		logging.SetLogLevel(resolvedLogLevel)
	}

	log := logging.New("Main")
	log.Infof("Configuration loaded")
	log.Debugf("Database: %s@%s:%d/%s (%s)",
		cfg.Database.Username, cfg.Database.Host, cfg.Database.Port,
		cfg.Database.Database, cfg.Database.Driver)
	log.Debugf("Templates: %d", cfg.Templates.Len())
	for _, tpl := range cfg.Templates.All() {
		log.Debugf("  Template: %s (%d statement(s), %d field(s))",
			tpl.Name, len(tpl.Statements), len(tpl.Fields))
		for _, warning := range config.PlaceholderWarnings(tpl) {
			log.Warn(warning)
		}
	}

	providers, err := observability.Setup(context.Background(), GetVersion())
	if err != nil {
		log.Warnf("Observability setup failed, continuing without exporters: %v", err)
	}

	rt := runtime.New(cfg, configFile, resolvedPort)
	log.Infof("Runtime initialized")
	return rt, providers, nil
}

func shutdownObservability(providers *observability.Providers) {
	if providers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(ctx); err != nil {
		logging.New("Main").Warnf("Observability shutdown: %v", err)
	}
}
