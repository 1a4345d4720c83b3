// Package ctl implements bizledgerctl, the offline command-line companion of
// the bizledger server. Every command reads JSON or CSV files and prints
// indented JSON on stdout; logs go to stderr.
package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bizledger/internal/importer"
	"bizledger/internal/log"
)

var version = "dev"

// app is the state shared by the subcommands of one invocation.
type app struct {
	logLevel  string
	logFormat string

	logger *log.Logger
	files  *importer.FileRepository
}

// NewRootCommand builds the command tree. A fresh tree is returned on each
// call so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	a := &app{files: importer.NewFileRepository()}

	root := &cobra.Command{
		Use:   "bizledgerctl",
		Short: "Offline reports and invoice rendering for bizledger data",
		Long: `bizledgerctl computes the dashboard figures of a small business from
invoice and expense exports, renders invoice templates and loads exports into
a bizledger data backend.

Input files may be JSON arrays or CSV files with a header row; the format is
chosen by the file extension.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(a.logLevel)
			if err != nil {
				return err
			}
			a.logger = log.New(log.Config{
				Level:     level,
				Format:    a.logFormat,
				Component: log.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", log.FormatConsole, "Log format (text, json, console)")

	root.AddCommand(
		newMetricsCommand(a),
		newCategoriesCommand(a),
		newAgingCommand(a),
		newRenderCommand(a),
		newImportCommand(a),
		newSheetsAuthCommand(a),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
