// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/groundtruth/internal/review"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ground-truth records as YAML or JSON",
	Long: `Export writes the current ground-truth record for every finalized
document. Superseded versions stay in the store's history and are not
exported.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	store, err := reviewStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	if err := store.Export(cmd.Context(), w, review.Format(format)); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported ground truth to %s\n", output)
	}
	return nil
}

func init() {
	exportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	exportCmd.Flags().String("output", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
