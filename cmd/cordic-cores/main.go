package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go-cordic-cores/internal/config"
	"go-cordic-cores/internal/logging"
)

var (
	envFile  string
	logLevel string

	cfg    *config.Config
	logger = logging.New(os.Stderr, "info")
)

var rootCmd = &cobra.Command{
	Use:           "cordic-cores",
	Short:         "Fixed-point CORDIC FM modulation and demodulation of IQ streams.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(envFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		logger = logging.New(os.Stderr, cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Optional dotenv file with configuration overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command failed.", slog.Any("error", err))
		os.Exit(1)
	}
}

// applyIQRate swaps in the --sample-rate override and recomputes the channel
// filter cutoff that depends on it.
func applyIQRate(cfg *config.Config) error {
	if iqRate <= 0 {
		return nil
	}
	cfg.IQSampleRate = iqRate
	cfg.ChannelFilterCutoff = 100000.0 / float64(iqRate)
	return cfg.Validate()
}
