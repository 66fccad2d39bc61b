// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"context"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/groundtruth/pkg/types"
)

// Job is one document queued for a batch run.
type Job struct {
	Classification *types.Classification
	Bundle         *types.SourceBundle
}

// Outcome pairs a job with its run result. Err is set only when the run was
// cancelled; Result still carries any partial report.
type Outcome struct {
	DocumentID string
	Result     *Result
	Err        error
}

// Summary aggregates a batch. Score statistics cover documents that
// completed at least one verification attempt.
type Summary struct {
	RunID     string `json:"run_id" yaml:"run_id"`
	Documents int    `json:"documents" yaml:"documents"`
	Accepted  int    `json:"accepted" yaml:"accepted"`
	Escalated int    `json:"escalated" yaml:"escalated"`
	Cancelled int    `json:"cancelled" yaml:"cancelled"`

	ConsistencyMean   float64 `json:"consistency_mean" yaml:"consistency_mean"`
	ConsistencyMedian float64 `json:"consistency_median" yaml:"consistency_median"`
	EvidenceMean      float64 `json:"evidence_mean" yaml:"evidence_mean"`
	EvidenceMedian    float64 `json:"evidence_median" yaml:"evidence_median"`
}

// RunBatch runs every job as an independent run, at most concurrency at a
// time. Outcomes are returned in job order.
func (o *Orchestrator) RunBatch(ctx context.Context, jobs []Job, concurrency int) ([]Outcome, Summary) {
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID)
	logger.InfoContext(ctx, "batch started", "documents", len(jobs), "concurrency", concurrency)

	outcomes := make([]Outcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))

	for i, job := range jobs {
		g.Go(func() error {
			res, err := o.Run(ctx, job.Classification, job.Bundle)
			outcomes[i] = Outcome{DocumentID: job.Bundle.DocumentID, Result: res, Err: err}
			return nil
		})
	}
	// Per-document failures live in the outcomes; no goroutine returns an error.
	_ = g.Wait()

	sum := summarize(runID, outcomes)
	logger.InfoContext(ctx, "batch complete",
		"accepted", sum.Accepted,
		"escalated", sum.Escalated,
		"cancelled", sum.Cancelled,
		"consistency_mean", sum.ConsistencyMean,
		"evidence_mean", sum.EvidenceMean,
	)
	return outcomes, sum
}

func summarize(runID string, outcomes []Outcome) Summary {
	sum := Summary{RunID: runID, Documents: len(outcomes)}
	var consistency, evidence []float64

	for _, oc := range outcomes {
		if oc.Err != nil {
			sum.Cancelled++
		} else {
			switch oc.Result.Decision.Disposition {
			case types.AutoAccept:
				sum.Accepted++
			case types.EscalateToSME:
				sum.Escalated++
			}
		}
		if oc.Result != nil && oc.Result.Report != nil {
			consistency = append(consistency, oc.Result.Report.ConsistencyScore)
			evidence = append(evidence, oc.Result.Report.EvidenceScore)
		}
	}

	// stats returns an error only for empty input, leaving the zero value.
	sum.ConsistencyMean, _ = stats.Mean(consistency)
	sum.ConsistencyMedian, _ = stats.Median(consistency)
	sum.EvidenceMean, _ = stats.Mean(evidence)
	sum.EvidenceMedian, _ = stats.Median(evidence)
	return sum
}
