package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chenhy0213/test-tool-with-db/core/cli/internal"
	"github.com/chenhy0213/test-tool-with-db/core/engine"
	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
	"github.com/chenhy0213/test-tool-with-db/core/observability"
	"github.com/chenhy0213/test-tool-with-db/core/session"
	"github.com/chenhy0213/test-tool-with-db/core/shared/execctx"
)

var (
	runInputs     []string
	runInputsJSON string
)

// runCmd executes one template and prints its results as JSON.
var runCmd = &cobra.Command{
	Use:           "run <template>",
	Short:         "Execute a query template once and print the results",
	Args:          cobra.ExactArgs(1),
	RunE:          runTemplate,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&configFile, "file", "f", "", "Path to the configuration document (default: ./config.json)")
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "Input value as label=value (repeatable)")
	runCmd.Flags().StringVar(&runInputsJSON, "inputs-json", "", "Input values as a JSON object (alternative to --input)")
	runCmd.Flags().IntVar(&logLevel, "log-level", 0, "Log level: 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG (overrides config file)")
	runCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging (sets log level to DEBUG)")
	runCmd.Flags().StringVar(&logTags, "log-tags", "", "Filter logs by tags (comma-separated, use -tag to exclude). Overrides DBRUN_LOG_TAGS env var")
	runCmd.Flags().BoolVar(&logFile, "log-file", false, "Stream logs to file in /tmp/.dbrun/logs/")
}

func runTemplate(cmd *cobra.Command, args []string) error {
	if err := configureLogging(); err != nil {
		return err
	}
	defer logging.CloseLogFile()

	inputs, err := parseRunInputs()
	if err != nil {
		return logging.WithTag("Run", err)
	}

	if configFile == "" {
		configFile = defaultConfigFileName
	}
	LoadEnvFiles(filepath.Dir(configFile))

	cfg, err := internal.LoadConfig(configFile)
	if err != nil {
		return err
	}
	resolvedLogLevel := internal.ResolveLogLevel(verbose, logLevel, cfg)
	if logLevel == 0 && !verbose {
		logging.SetLogLevel(resolvedLogLevel)
	}

	providers, err := observability.Setup(context.Background(), GetVersion())
	if err != nil {
		logging.New("Run").Warnf("Observability setup failed, continuing without exporters: %v", err)
	}
	defer shutdownObservability(providers)

	ctx := execctx.Ensure(context.Background())
	if timeout := cfg.Server.QueryTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sess := session.New(cfg.Database)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sess.Connect(connectCtx); err != nil {
		return logging.WithTag("Session", err)
	}
	defer sess.Close()

	eng := engine.New(sess, cfg.Templates)
	outcome, err := eng.ExecuteTemplate(ctx, args[0], inputs)
	if err != nil {
		return logging.WithTag("Engine", err)
	}
	logging.New("Run").Debugf("Execution %s finished: %d row(s) returned, %d row(s) affected",
		outcome.ExecutionID, outcome.RowsReturned(), outcome.RowsAffected())

	// Print the per-statement results the way the result pane renders
	// them: an indented JSON array.
	results := outcome.Results
	if results == nil {
		results = []*engine.StatementResult{}
	}
	rendered, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return logging.WithTag("Run", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(rendered))
	return nil
}

// parseRunInputs merges the --input pairs into a raw inputs map. The JSON
// form replaces the pair form; mixing the two is ambiguous and rejected.
func parseRunInputs() (map[string]any, error) {
	if runInputsJSON != "" {
		if len(runInputs) > 0 {
			return nil, fmt.Errorf("cannot specify both --input and --inputs-json")
		}
		inputs := map[string]any{}
		if err := json.Unmarshal([]byte(runInputsJSON), &inputs); err != nil {
			return nil, fmt.Errorf("invalid --inputs-json: %w", err)
		}
		return inputs, nil
	}

	inputs := map[string]any{}
	for _, pair := range runInputs {
		label, value, found := strings.Cut(pair, "=")
		if !found || label == "" {
			return nil, fmt.Errorf("invalid --input %q, expected label=value", pair)
		}
		inputs[label] = value
	}
	return inputs, nil
}
