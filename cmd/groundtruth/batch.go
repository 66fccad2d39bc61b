// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/groundtruth/internal/extraction"
	"github.com/pdiddy/groundtruth/internal/orchestrate"
)

// classificationSuffix names classification files paired with bundles in a
// batch directory.
const classificationSuffix = ".classification.json"

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Verify every classification in a directory",
	Long: `Batch pairs each <id>.classification.json in dir with <id>.bundle.json
and runs them as independent verification runs, at most --concurrency at a
time. Each result is recorded the same way verify records one.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Verify.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}

	jobs, err := discoverJobs(args[0])
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintf(os.Stdout, "No classifications found in %s\n", args[0])
		return nil
	}

	p, err := newPipeline(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := cmd.Context()
	outcomes, summary := p.orchestrator.RunBatch(ctx, jobs, cfg.Verify.Concurrency)

	var failed int
	for i, out := range outcomes {
		if out.Err != nil {
			fmt.Fprintf(os.Stdout, "cancelled %s: %v\n", out.DocumentID, out.Err)
			continue
		}
		if err := p.finalize(ctx, os.Stdout, jobs[i], out.Result, nil); err != nil {
			slog.Error("recording result", "doc_id", out.DocumentID, "error", err)
			failed++
		}
	}

	fmt.Fprintf(os.Stdout, "\nRun %s: %d documents, %d accepted, %d escalated, %d cancelled\n",
		summary.RunID, summary.Documents, summary.Accepted, summary.Escalated, summary.Cancelled)
	fmt.Fprintf(os.Stdout, "Consistency score: mean %.2f, median %.2f\n", summary.ConsistencyMean, summary.ConsistencyMedian)
	fmt.Fprintf(os.Stdout, "Evidence score:    mean %.2f, median %.2f\n", summary.EvidenceMean, summary.EvidenceMedian)

	if failed > 0 {
		return fmt.Errorf("%d result(s) could not be recorded", failed)
	}
	return ctx.Err()
}

// discoverJobs loads every classification in dir that has a matching
// bundle. Classifications without a bundle are logged and skipped.
func discoverJobs(dir string) ([]orchestrate.Job, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+classificationSuffix))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(matches)

	var jobs []orchestrate.Job
	for _, classPath := range matches {
		id := strings.TrimSuffix(filepath.Base(classPath), classificationSuffix)
		bundlePath := filepath.Join(dir, id+extraction.BundleSuffix)
		if _, err := os.Stat(bundlePath); err != nil {
			slog.Warn("skipping classification without bundle", "doc_id", id, "bundle", bundlePath)
			continue
		}
		job, err := loadJob(classPath, bundlePath)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func init() {
	batchCmd.Flags().Int("concurrency", 0, "documents verified in parallel (overrides verify.concurrency)")
	rootCmd.AddCommand(batchCmd)
}
