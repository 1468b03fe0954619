package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sqlerd/internal/output"
)

func (a *app) renderCmd() *cobra.Command {
	var outFile string
	var format string
	var watch bool

	cmd := &cobra.Command{
		Use:   "render <file.sql|->",
		Short: "Lay out a SQL schema as a draw.io or Mermaid diagram",
		Long: `Render interprets the DDL of a file (or stdin with "-"), lays the tables out
on a grid and prints the diagram. The format defaults to [diagram] format
from the configuration file (drawio).

Examples:
  sqlerd render schema.sql -o schema.drawio
  sqlerd render schema.sql --format mermaid
  sqlerd render schema.sql -o schema.drawio --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = a.cfg.Diagram.Format
			}
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			if watch && (args[0] == "-" || outFile == "") {
				return fmt.Errorf("--watch needs a schema file and --output")
			}

			renderOnce := func() error {
				text, err := readSource(cmd, args[0])
				if err != nil {
					return err
				}
				opts, err := a.pipeline()
				if err != nil {
					return err
				}
				r, err := report(text, opts, f, true)
				if err != nil {
					return err
				}
				return emit(cmd, r, f, outFile)
			}

			if err := renderOnce(); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.watchFile(ctx, args[0], renderOnce)
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", formatHelp())
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Render again whenever the schema file changes")
	return cmd
}

// watchFile calls fn every time path is written, created or renamed over,
// until ctx is done. Failures of fn are logged and watching goes on.
func (a *app) watchFile(ctx context.Context, path string, fn func() error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	a.logger.Info("watching schema file", zap.String("path", abs))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if err := fn(); err != nil {
				a.logger.Warn("render failed", zap.String("path", abs), zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", zap.Error(err))
		case <-ctx.Done():
			return nil
		}
	}
}
