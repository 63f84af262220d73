package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"demandcast/config"
	"demandcast/internal/logger"
)

// Version is set at build time.
var Version = "dev"

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "demandcast",
	Short: "Inventory demand forecasting assistant",
	Long: `demandcast resolves free-text product questions to inventory items and
forecasts their daily consumption and stock level.

Example usage:
  demandcast ask -q "nitrile gloves for 2 weeks"   # Forecast an item
  demandcast resolve -q "face mask"                 # Show which items a query means
  demandcast index                                  # Embed catalog names for semantic search
  demandcast serve --transport sse                  # Serve MCP tools`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return errors.Wrap(err, "get working directory")
			}
		}

		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "load .env")
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return errors.Wrap(err, "load config")
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		return logger.Initialize(level, jsonLogs || cfg.Logging.JSON)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./demandcast.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as JSON to stderr")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
