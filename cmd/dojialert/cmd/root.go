// Package cmd implements the dojialert command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"

	"github.com/gopalvishwakrma/dojialert/internal/config"
)

var (
	verbose bool
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "dojialert",
	Short: "Intraday doji scanner for NSE equities",
	Long: `dojialert builds the first five-minute candle of the trading day for every
symbol in its universe, keeps doji and gravestone doji candles with a narrow
range, and mails the list.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		setupLogging()
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if os.Getenv("DOJI_PRETTY_LOGS") != "false" {
		slog.SetDefault(slog.New(
			console.NewHandler(os.Stderr, &console.HandlerOptions{Level: level}),
		))
		return
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
