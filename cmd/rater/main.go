package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"authenticity-survey/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	storeURL  string
	logFormat string

	cfg    *config.Config
	logger *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "rater",
		Short: "Rate sampled images as real photos or AI generated",
		Long: `rater shows a random sample of images, records how confident you are that
each one is AI generated and why, then stores the session under a
verification key you can use to look it up later.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
		PersistentPostRun: func(_ *cobra.Command, _ []string) { _ = logger.Sync() },
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in settings)")
	rootCmd.PersistentFlags().StringVar(&storeURL, "store-url", "", "submission store base URL (overrides store.url)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	// Add commands
	rootCmd.AddCommand(rateCmd())
	rootCmd.AddCommand(lookupCmd())
	rootCmd.AddCommand(keyCmd())
}

func main() {
	// Set up signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	var err error
	logger, err = newLogger(logFormat)
	if err != nil {
		return err
	}

	if cfgFile == "" {
		cfg = config.Default()
	} else {
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
	}

	if storeURL != "" {
		cfg.Store.URL = storeURL
	}

	logger.Debug("Configuration loaded",
		zap.String("config", cfgFile),
		zap.String("store_url", cfg.Store.URL),
		zap.String("write_pattern", cfg.Store.WritePattern))
	return nil
}

func newLogger(format string) (*zap.Logger, error) {
	switch format {
	case "console":
		return zap.NewDevelopment()
	case "json":
		return zap.NewProduction()
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json)", format)
	}
}
