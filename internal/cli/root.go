// Package cli implements the workflow command line: the HTTP server plus a
// few account and task commands that work on the local session.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"workflow/internal/app"
	"workflow/internal/config"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "workflow",
		Short:        "Task assignment and progress reporting board",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath(), "config file (yaml)")

	root.AddCommand(
		newServeCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newPasswdCommand(opts),
		newTasksCommand(opts),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		return 1
	}
	return 0
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

// open loads the config and assembles the services. Commands other than
// serve log to stderr only at warn level and above.
func (o *rootOptions) open(ctx context.Context, w io.Writer, quiet bool) (*app.App, *config.Config, *slog.Logger, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}
	level := cfg.Log.Level
	if quiet {
		level = "warn"
	}
	logger := newLogger(cfg.Log.Format, level, w)
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, cfg, logger, nil
}

func newLogger(format, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
