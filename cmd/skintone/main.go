// Command skintone measures color differences, splits masked skin regions
// into tone clusters and reconstructs reflectance curves.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// app is the state shared by all subcommands.
type app struct {
	cfg        Config
	configPath string
	verbose    bool
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: DefaultConfig()}

	root := &cobra.Command{
		Use:           "skintone",
		Short:         "Skin tone clustering and spectral reflectance tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.log = newLogger(cmd.ErrOrStderr(), a.verbose)
			if a.configPath == "" {
				return nil
			}
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			a.log.Debug("config loaded", "path", a.configPath)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML file with default option values")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.distanceCmd(),
		a.clustersCmd(),
		a.spectrumCmd(),
		a.mixCmd(),
		a.tonesCmd(),
	)
	return root
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
