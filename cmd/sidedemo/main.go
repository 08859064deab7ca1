package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidecore/side/internal/config"
	"github.com/sidecore/side/internal/version"
)

var (
	cfgFile  string
	logLevel string
	outFile  string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sidedemo",
		Short: "Demo harness for the side instrumentation library",
		Long: `sidedemo drives the side library through a scripted
scenario: it registers synthetic events and tracers, runs a state-dump
producer, and dispatches calls on a timer, so the library's fast path
and state-dump machinery can be observed outside of a unit test.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(
		&cfgFile, "config", "",
		"path to scenario config file (required)",
	)
	cmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"override log level (debug, info, warn, error)",
	)

	cmd.AddCommand(versionCmd())
	cmd.AddCommand(demoCmd())
	cmd.AddCommand(recordCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.FullWithPlatform())
		},
	}
}

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted scenario against the side library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(false)
		},
	}

	return cmd
}

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Run a scenario while recording dispatched calls and dumps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(true)
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "", "override the scenario's record.path")

	return cmd
}

func runScenario(forceRecord bool) error {
	if cfgFile == "" {
		return fmt.Errorf("--config is required")
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if forceRecord {
		cfg.Record.Enabled = true
		if outFile != "" {
			cfg.Record.Path = outFile
		}
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}

	log.SetLevel(level)

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	s, err := newScenario(log, cfg)
	if err != nil {
		return fmt.Errorf("building scenario: %w", err)
	}

	log.Info("starting sidedemo scenario")

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("starting scenario: %w", err)
	}

	<-ctx.Done()

	log.Info("shutting down sidedemo scenario")

	if err := s.Stop(); err != nil {
		log.WithError(err).Error("error during shutdown")
		return fmt.Errorf("stopping scenario: %w", err)
	}

	log.Info("shutdown complete")

	return nil
}
