// Package main is the operator CLI: it drives a local workspace against the
// remote service and maintains the SQLite databases.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/garnizeh/talentflow/internal/config"
	"github.com/garnizeh/talentflow/internal/logger"
	"github.com/garnizeh/talentflow/internal/optimistic"
	"github.com/garnizeh/talentflow/internal/remote"
	"github.com/garnizeh/talentflow/internal/workspace"
)

var rootCmd = &cobra.Command{
	Use:           "talentctl",
	Short:         "TalentFlow operator CLI",
	Long:          "talentctl manages jobs, candidates and assessments through a local workspace synchronised with the TalentFlow service.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	noSync     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config YAML file")
	rootCmd.PersistentFlags().BoolVar(&noSync, "no-sync", false, "Skip pulling the service state before running the command")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	remote.SetLogger(log)
	return cfg, log, nil
}

// openWorkspace opens the local workspace and, unless --no-sync is set,
// mirrors the service into it.
func openWorkspace(ctx context.Context, stderr io.Writer) (*workspace.Workspace, *config.Config, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	notify := optimistic.NotifierFunc(func(command string, err error) {
		fmt.Fprintf(stderr, "%s failed, local changes rolled back: %v\n", command, err)
	})
	ws, err := workspace.Open(ctx, cfg, log, notify)
	if err != nil {
		return nil, nil, err
	}
	if !noSync {
		if err := ws.Sync(ctx); err != nil {
			_ = ws.Close()
			return nil, nil, fmt.Errorf("sync: %w", err)
		}
	}
	return ws, cfg, nil
}

// withWorkspace runs fn against an open workspace and closes it afterwards.
func withWorkspace(fn func(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, _, err := openWorkspace(ctx, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer ws.Close()
		return fn(ctx, cmd, ws, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
