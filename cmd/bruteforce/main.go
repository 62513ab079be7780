package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/config"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/server"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

var (
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "bruteforce",
		Short: "Exhaustive movement sequence search",
		Long: `bruteforce enumerates per-tic movement commands over a bounded
depth against a deterministic simulation and reports the first sequence
that satisfies the plan's conditions, or the best one for its target.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a search plan offline and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), runOpts, cmd.OutOrStdout(), newLogger())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP control API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("log-level") {
				logLevel = cfg.Log.Level
			}
			if !cmd.Flags().Changed("log-format") {
				logFormat = cfg.Log.Format
			}
			return server.Run(cmd.Context(), cfg, newLogger())
		},
	}

	runOpts runOptions
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logger.FormatConsole), "log format (console, json)")

	runCmd.Flags().StringVarP(&runOpts.planPath, "plan", "p", "", "plan file (.yaml or .json)")
	runCmd.Flags().Int64Var(&runOpts.seed, "seed", 0, "world seed, overriding the plan")
	runCmd.Flags().BoolVar(&runOpts.compress, "compress-keyframes", false, "store key frames zstd-compressed")
	runCmd.Flags().Uint64Var(&runOpts.progressInterval, "progress-interval", 0, "leaves between progress lines")
	runCmd.Flags().BoolVar(&runOpts.jsonOut, "json", false, "print the report as JSON")
	_ = runCmd.MarkFlagRequired("plan")

	rootCmd.AddCommand(runCmd, serveCmd)
}

func newLogger() *logger.Logger {
	return logger.NewWithOptions(os.Stderr, logLevel, logger.Format(logFormat))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
