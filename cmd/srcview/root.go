package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meigma/srcview/internal/config"
	"github.com/meigma/srcview/internal/logging"
)

// Loaded by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "srcview",
	Short:        "Browse a compressed source tarball",
	Long:         "Browse, extract and mirror the members of a compressed tar archive without unpacking it.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if archive, _ := cmd.Flags().GetString("archive"); archive != "" {
			loaded.ArchivePath = archive
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		logger = logging.Init(logging.Config{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Output: cfg.LogOutput,
		})
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "Path to a YAML config file")
	rootCmd.PersistentFlags().String("archive", "", "Archive path or http(s) URL (overrides config)")
}
