// Command nexusflow is the commuting client: an interactive terminal app by
// default, plus subcommands for scripting each feature.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nexusflow/nexusflow-client/internal/app/navigation"
	"github.com/nexusflow/nexusflow-client/internal/platform/config"
	"github.com/nexusflow/nexusflow-client/internal/platform/logger"
	"github.com/nexusflow/nexusflow-client/internal/tui"
)

const serviceName = "nexusflow"

// errSignInRequired is returned by commands behind the sign-in guard.
var errSignInRequired = errors.New("sign in first: nexusflow account login, or nexusflow account guest")

type rootFlags struct {
	backend  string
	logLevel string
	jsonOut  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "nexusflow",
		Short:         "Smart multimodal commuting: routes, ride sharing and trip planning",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), f)
		},
	}
	root.PersistentFlags().StringVar(&f.backend, "backend", "", "storage backend override (memory, badger, sqlite, postgres, redis)")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level override")
	root.PersistentFlags().BoolVar(&f.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		newRoutesCmd(f),
		newMatchesCmd(f),
		newPlacesCmd(f),
		newAccountCmd(f),
		newTripsCmd(f),
		newOracleCmd(f),
	)
	return root
}

func (f *rootFlags) loadConfig() (*config.Config, error) {
	if f.backend != "" {
		if err := os.Setenv("NEXUSFLOW_STORAGE_BACKEND", f.backend); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, nil
}

// withApp wires the client for a one-shot command logging to stderr.
func (f *rootFlags) withApp(fn func(ctx context.Context, a *app, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := f.loadConfig()
		if err != nil {
			return err
		}
		log := logger.NewConsole(serviceName, cfg.LogLevel)
		a, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd.Context(), a, cmd.OutOrStdout())
	}
}

// guard applies the navigation sign-in guard to a protected command.
func guard(a *app, v navigation.View) error {
	if a.shell.Navigate(v) != v {
		return errSignInRequired
	}
	return nil
}

func (f *rootFlags) print(out io.Writer, v any, text func(io.Writer)) error {
	if f.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(out)
	return nil
}

func runTUI(ctx context.Context, f *rootFlags) error {
	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}
	// The screen belongs to the UI; logs go to a file.
	log, closer, err := logger.NewFile(cfg.LogFile, serviceName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closer.Close()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().Str("backend", cfg.StorageBackend).Bool("online", a.gw.Online()).Msg("starting terminal ui")
	return tui.Run(ctx, tui.Deps{
		Shell:    a.shell,
		Store:    a.store,
		Gateway:  a.gw,
		Clock:    a.clk,
		Debounce: cfg.Debounce,
		Voice:    a.voiceDeps(filepath.Join(cfg.DataDir, "oracle-in.pcm"), filepath.Join(cfg.DataDir, "oracle-out.pcm"), true),
		Log:      log,
	})
}
