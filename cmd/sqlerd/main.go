// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sqlerd/internal/config"
	"sqlerd/internal/core"
	"sqlerd/internal/erd"
	"sqlerd/internal/logging"
	"sqlerd/internal/output"

	_ "sqlerd/internal/introspect/mysql"
	_ "sqlerd/internal/introspect/postgresql"
	_ "sqlerd/internal/introspect/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the persistent flags and what PersistentPreRunE builds from
// them.
type app struct {
	configPath string
	dialect    string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:          "sqlerd",
		Short:        "Turn SQL schema definitions into entity-relationship diagrams",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to the configuration file (default ./"+config.DefaultFile+" if present)")
	flags.StringVarP(&a.dialect, "dialect", "d", "", "Try only this dialect before the fallback grammar (mysql, postgresql, generic)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(a.schemaCmd())
	rootCmd.AddCommand(a.renderCmd())
	rootCmd.AddCommand(a.introspectCmd())
	rootCmd.AddCommand(a.serveCmd())
	rootCmd.AddCommand(a.translationsCmd())

	return rootCmd
}

// setup loads the configuration, applies the flag overrides and builds the
// logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dialect != "" {
		d, err := core.ParseDialect(a.dialect)
		if err != nil {
			return err
		}
		cfg.Parser.Dialects = []string{string(d)}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var logger *zap.Logger
	if cfg.Log.File == "" {
		logger, err = logging.NewWriter(cfg.Log, cmd.ErrOrStderr())
	} else {
		logger, err = logging.New(cfg.Log)
	}
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) pipeline() (erd.Options, error) {
	opts, err := a.cfg.Pipeline(a.logger)
	if err != nil {
		return erd.Options{}, fmt.Errorf("failed to configure pipeline: %w", err)
	}
	return opts, nil
}

// readSource reads a file, or stdin when path is "-".
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read schema: %w", err)
	}
	return string(data), nil
}

// report interprets text, rendering it too when the format prints a diagram
// or always is set.
func report(text string, opts erd.Options, format output.Format, always bool) (*output.Report, error) {
	res, err := erd.Interpret(text, opts)
	if err != nil {
		return nil, err
	}
	r := &output.Report{Result: res}
	if always || format.NeedsRendering() {
		r.Rendering, err = erd.Render(res.Schema, opts)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// emit formats r and writes it to outFile, or to stdout when outFile is
// empty.
func emit(cmd *cobra.Command, r *output.Report, format output.Format, outFile string) error {
	formatter, err := output.NewFormatter(string(format))
	if err != nil {
		return err
	}
	formatted, err := formatter.Format(r)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if outFile == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), formatted)
		return err
	}
	if err := os.WriteFile(outFile, []byte(formatted), 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	printInfo(cmd, format, fmt.Sprintf("Output saved to %s", outFile))
	return nil
}

// printInfo writes a status line to stdout, or to stderr when stdout
// carries machine-readable output.
func printInfo(cmd *cobra.Command, format output.Format, msg string) {
	if format == output.FormatSummary {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), msg)
		return
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), msg)
}

func formatHelp() string {
	return "Output format: " + strings.Join(output.Formats(), ", ")
}
