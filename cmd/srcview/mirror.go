package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meigma/srcview/internal/metrics"
	"github.com/meigma/srcview/internal/mirror"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Rebuild the static server-side-include mirror",
	Long:  "Rebuild the mirror directory: one hard link to a server-side-include page per archive directory and file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			cfg.MirrorDir = dir
		}
		if cfg.MirrorDir == "" {
			return errors.New("mirror directory is not set")
		}
		workers, _ := cmd.Flags().GetInt("workers")

		a, err := openArchive(cfg)
		if err != nil {
			return err
		}
		b, err := mirror.New(cfg.MirrorDir,
			mirror.WithScriptURL(cfg.ScriptURL),
			mirror.WithTitle(cfg.Title),
			mirror.WithExclude(cfg.MirrorExclude...),
			mirror.WithWorkers(workers),
			mirror.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		stats, err := b.Build(cmd.Context(), a)
		if err != nil {
			return err
		}
		metrics.RecordMirrorBuild(stats.Dirs+stats.Files, stats.Duration)
		if stats.Copied > 0 {
			logger.Warn("hard links unavailable, wrote copies", zap.Int("copies", stats.Copied))
		}
		cmd.Printf("srcview mirror: %d directories, %d files, %d skipped\n", stats.Dirs, stats.Files, stats.Skipped)
		return nil
	},
}

func init() {
	mirrorCmd.Flags().String("dir", "", "Mirror directory (overrides config)")
	mirrorCmd.Flags().Int("workers", 0, "Concurrent link workers (default GOMAXPROCS)")

	rootCmd.AddCommand(mirrorCmd)
}
