package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sqlerd/internal/output"
)

func (a *app) schemaCmd() *cobra.Command {
	var outFile string
	var format string
	var strict bool

	cmd := &cobra.Command{
		Use:   "schema <file.sql|->",
		Short: "Interpret SQL DDL and print the resulting table list",
		Long: `Schema runs the DDL statements of a file (or stdin with "-") in order and
prints the resulting tables. Statements that cannot be applied are skipped
and reported as diagnostics; use --strict to fail when any were rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}
			text, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}
			opts, err := a.pipeline()
			if err != nil {
				return err
			}
			r, err := report(text, opts, f, false)
			if err != nil {
				return err
			}
			if err := emit(cmd, r, f, outFile); err != nil {
				return err
			}
			if warnings := r.Result.Warnings(); strict && len(warnings) > 0 {
				return fmt.Errorf("%d statement(s) rejected, first: %s", len(warnings), warnings[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "json", formatHelp())
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when any statement was rejected")
	return cmd
}
