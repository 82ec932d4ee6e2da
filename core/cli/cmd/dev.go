package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/chenhy0213/test-tool-with-db/core/infrastructure/logging"
)

var devCmd = &cobra.Command{
	Use:           "dev",
	Short:         "Serve in development mode",
	Long:          `Serve the query templates and restart when the configuration document changes.`,
	RunE:          runDevServer,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(devCmd)
	devCmd.Flags().StringVarP(&configFile, "file", "f", "", "Path to the configuration document (default: ./config.json)")
	devCmd.Flags().StringVarP(&port, "port", "p", "", "Server port (overrides config file and PORT env var)")
	devCmd.Flags().IntVar(&logLevel, "log-level", 0, "Log level: 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG (overrides config file)")
	devCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (sets log level to DEBUG)")
	devCmd.Flags().StringVar(&logTags, "log-tags", "", "Filter logs by tags (comma-separated, use -tag to exclude). Overrides DBRUN_LOG_TAGS env var")
	devCmd.Flags().BoolVar(&logFile, "log-file", false, "Stream logs to file in /tmp/.dbrun/logs/")
}

func runDevServer(cmd *cobra.Command, args []string) error {
	log := logging.New("Dev")

	if configFile == "" {
		configFile = defaultConfigFileName
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(configFile); err != nil {
		return err
	}

	restart := make(chan struct{}, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Watch for file changes
	go func() {
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(500*time.Millisecond, func() {
						select {
						case restart <- struct{}{}:
						default:
						}
					})
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	log.Infof("Watching %s for changes...", configFile)

	for {
		rt, providers, err := PrepareRuntime()
		if err != nil {
			return err
		}

		if err := rt.StartAsync(); err != nil {
			shutdownObservability(providers)
			return err
		}

		select {
		case <-sigChan:
			err := rt.Stop()
			shutdownObservability(providers)
			logging.CloseLogFile()
			return err
		case <-restart:
			log.Infof("Configuration changed, restarting...")
			rt.Stop()
			shutdownObservability(providers)
		}
	}
}
