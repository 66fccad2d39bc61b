// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/groundtruth/internal/container"
	"github.com/pdiddy/groundtruth/internal/extraction"
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>...",
	Short: "Extract source bundles from PDFs",
	Long: `Extract runs each PDF through the layout-extraction container image
(docker or podman, network disabled) and writes <doc_id>.bundle.json to the
output directory. A failed PDF does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		cfg.Extraction.OutputDir = out
	}

	ctx := cmd.Context()
	rt, err := container.DetectRuntime(ctx)
	if err != nil {
		return err
	}
	ex, err := extraction.NewContainerExtractor(ctx, rt, cfg.Extraction, slog.Default())
	if err != nil {
		return err
	}

	var failed int
	for _, pdf := range args {
		b, err := ex.Extract(ctx, pdf)
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed    %s: %v\n", pdf, err)
			failed++
			continue
		}
		path, err := extraction.WriteBundle(b, cfg.Extraction.OutputDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "extracted %s -> %s (%d pages)\n", pdf, path, b.TotalPages)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d PDF(s) failed extraction", failed, len(args))
	}
	return nil
}

func init() {
	extractCmd.Flags().String("output", "", "bundle output directory (overrides extraction.output_dir)")
	rootCmd.AddCommand(extractCmd)
}
