package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sqlerd/internal/erd"
	"sqlerd/internal/translate"
)

func (a *app) translationsCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "translations <file.sql|->",
		Short: "Write a translation file template for a schema",
		Long: `Translations interprets a schema and writes a YAML catalog listing every
table, column and relation with empty display names. Fill it in and point
[translation] file at it to label diagrams in another language.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readSource(cmd, args[0])
			if err != nil {
				return err
			}
			opts, err := a.pipeline()
			if err != nil {
				return err
			}
			res, err := erd.Interpret(text, opts)
			if err != nil {
				return err
			}
			catalog := translate.Skeleton(res.Schema)

			if outFile == "" {
				return catalog.Write(cmd.OutOrStdout())
			}
			f, err := os.Create(outFile)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			if err := catalog.Write(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Output saved to %s\n", outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file (default stdout)")
	return cmd
}
