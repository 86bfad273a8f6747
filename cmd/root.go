package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/bananasnap/gridsnap/internal/config"
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gridsnap",
	Short: "Rebuild letter tile grids from photos",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		ll, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}

		switch strings.ToUpper(ll) {
		case "DEBUG":
			level = slog.LevelDebug
		case "WARN":
			level = slog.LevelWarn
		case "ERROR":
			level = slog.LevelError
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		handler := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(handler)

		return nil
	},
}

func init() {
	ll := os.Getenv("LOG_LEVEL")
	if ll == "" {
		ll = "INFO"
	}
	RootCmd.PersistentFlags().String("log-level", ll, "The logging level for the command")
	RootCmd.PersistentFlags().String("config", os.Getenv("GRIDSNAP_CONFIG"), "Path to a YAML config file")
}

// loadConfig reads the config file named by --config, then applies the
// tolerance flags of cmd when they were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Lookup("row-tolerance") != nil && flags.Changed("row-tolerance") {
		if cfg.RowTolerance, err = flags.GetFloat64("row-tolerance"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Lookup("column-tolerance") != nil && flags.Changed("column-tolerance") {
		if cfg.ColumnTolerance, err = flags.GetFloat64("column-tolerance"); err != nil {
			return config.Config{}, err
		}
	}

	return cfg, cfg.GridOptions().Validate()
}

func addToleranceFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("row-tolerance", 0, "Maximum normalized distance between letter centers on one row (overrides config)")
	cmd.Flags().Float64("column-tolerance", 0, "Maximum normalized distance between letter centers in one column (overrides config)")
}
