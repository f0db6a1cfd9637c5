// Command pbuild is the CLI entry point: a cobra root command wiring
// the Config, Recipe Loader and Registry (§2) into one subcommand per
// pipeline stage (§6).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fcanata061/pbuild/internal/buildinfo"
	"github.com/fcanata061/pbuild/internal/config"
	"github.com/fcanata061/pbuild/internal/log"
	"github.com/fcanata061/pbuild/internal/recipe"
	"github.com/fcanata061/pbuild/internal/registry"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
)

// globalCtx is canceled on SIGINT/SIGTERM; commands use it for every
// cancellable operation (fetch, build, install).
var (
	globalCtx    context.Context
	globalCancel context.CancelFunc
)

// cfg, loader and reg are wired once by initRuntime and shared by every
// subcommand, mirroring the teacher's single-instance-per-process
// convention.
var (
	cfg    *config.Config
	loader *recipe.Loader
	reg    *registry.Registry
)

var rootCmd = &cobra.Command{
	Use:   "pbuild",
	Short: "A source-based package manager for Linux-From-Scratch style builds",
	Long: `pbuild drives the full lifecycle of a declarative build recipe: fetch,
verify, extract, patch, compile, test, stage, package and install, while
recording an authoritative file manifest in its registry.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Show errors only")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show verbose output (INFO level)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Show debug output (includes timestamps and source locations)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		initLogger()
		return initRuntime()
	}

	rootCmd.Version = buildinfo.Version()

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(revdepCmd)
}

func main() {
	globalCtx, globalCancel = context.WithCancel(context.Background())
	defer globalCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived %s, canceling operation...\n", sig)
		globalCancel()

		<-sigChan
		fmt.Fprintln(os.Stderr, "Forced exit")
		os.Exit(exitCancelled)
	}()

	if err := rootCmd.Execute(); err != nil {
		if globalCtx.Err() == context.Canceled {
			os.Exit(exitCancelled)
		}
		os.Exit(exitForErr(err))
	}
}

// initRuntime loads Config and wires the Recipe Loader and Registry
// shared by every subcommand. Run once, as the root command's
// PersistentPreRunE, so it executes after flag parsing but before any
// subcommand body.
func initRuntime() error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := c.EnsureDirectories(); err != nil {
		return fmt.Errorf("preparing directories: %w", err)
	}
	cfg = c
	loader = recipe.NewLoader(cfg.Repo)
	reg = registry.New(cfg.Registro)
	return nil
}

// initLogger wires the default logger from the persistent verbosity
// flags, flags taking precedence over environment variables.
func initLogger() {
	level := determineLogLevel()
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	log.SetDefault(log.New(handler))
}

func determineLogLevel() slog.Level {
	if debugFlag {
		return slog.LevelDebug
	}
	if verboseFlag {
		return slog.LevelInfo
	}
	if quietFlag {
		return slog.LevelError
	}

	if isTruthy(os.Getenv("PBUILD_DEBUG")) {
		return slog.LevelDebug
	}
	if isTruthy(os.Getenv("PBUILD_VERBOSE")) {
		return slog.LevelInfo
	}
	if isTruthy(os.Getenv("PBUILD_QUIET")) {
		return slog.LevelError
	}

	return slog.LevelWarn
}

func isTruthy(s string) bool {
	s = strings.ToLower(s)
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// colorEnabled resolves the COLOR policy against the output stream:
// "always"/"never" are absolute, "auto" defers to whether stdout is
// actually a terminal (§6's COLOR env var).
func colorEnabled() bool {
	switch cfg.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}
