// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/groundtruth/internal/extraction"
	"github.com/pdiddy/groundtruth/internal/orchestrate"
	"github.com/pdiddy/groundtruth/pkg/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify one classification against its source bundle",
	Long: `Verify runs the validators over a proposed classification, auto-fixing
mechanical defects up to the retry ceiling, and records the outcome: an
auto-accepted ground-truth record or a pending review packet.

Use --report to also print the final verification report.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	classPath, _ := cmd.Flags().GetString("classification")
	bundlePath, _ := cmd.Flags().GetString("bundle")
	refPath, _ := cmd.Flags().GetString("reference")
	reportFormat, _ := cmd.Flags().GetString("report")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	job, err := loadJob(classPath, bundlePath)
	if err != nil {
		return err
	}
	ref, err := loadReference(refPath)
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := cmd.Context()
	res, err := p.orchestrator.Run(ctx, job.Classification, job.Bundle)
	if err != nil {
		return err
	}
	if err := p.finalize(ctx, os.Stdout, job, res, ref); err != nil {
		return err
	}
	return printReport(res, reportFormat)
}

func loadJob(classPath, bundlePath string) (orchestrate.Job, error) {
	var c types.Classification
	if err := extraction.DecodeFile(classPath, &c); err != nil {
		return orchestrate.Job{}, fmt.Errorf("loading classification: %w", err)
	}
	b, err := extraction.LoadBundle(bundlePath)
	if err != nil {
		return orchestrate.Job{}, fmt.Errorf("loading bundle: %w", err)
	}
	return orchestrate.Job{Classification: &c, Bundle: b}, nil
}

func loadReference(path string) (*types.ReferenceClassification, error) {
	if path == "" {
		return nil, nil
	}
	var ref types.ReferenceClassification
	if err := extraction.DecodeFile(path, &ref); err != nil {
		return nil, fmt.Errorf("loading reference classification: %w", err)
	}
	return &ref, nil
}

// printReport writes the final report, decision and retry log to stdout.
func printReport(res *orchestrate.Result, format string) error {
	out := struct {
		Decision types.Decision            `json:"decision" yaml:"decision"`
		Report   *types.VerificationReport `json:"verification_report" yaml:"verification_report"`
		RetryLog []types.RetryEntry        `json:"retry_log" yaml:"retry_log"`
		Attempts int                       `json:"attempts" yaml:"attempts"`
	}{res.Decision, res.Report, res.RetryLog, res.Attempts}

	switch format {
	case "":
		return nil
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	}
	return fmt.Errorf("unsupported --report format %q: use json or yaml", format)
}

func init() {
	verifyCmd.Flags().String("classification", "", "proposed classification file (.json or .yaml)")
	verifyCmd.Flags().String("bundle", "", "source bundle file (.json or .yaml)")
	verifyCmd.Flags().String("reference", "", "optional independent classification for comparison")
	verifyCmd.Flags().String("report", "", "print the verification report: json or yaml")
	_ = verifyCmd.MarkFlagRequired("classification")
	_ = verifyCmd.MarkFlagRequired("bundle")

	rootCmd.AddCommand(verifyCmd)
}
