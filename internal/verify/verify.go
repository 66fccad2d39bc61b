// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify inspects a proposed classification against its source
// document. Four validators run in a fixed order: structural rules,
// consistency (rules then model), traps (rules then model), and evidence
// quality (model only). Domain and model failures become Issues; nothing in
// this package returns a Go error to the caller.
package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pdiddy/groundtruth/internal/oracle"
	"github.com/pdiddy/groundtruth/pkg/types"
)

// Result is one validator's contribution to a VerificationReport.
type Result struct {
	Issues []types.Issue

	// Score is the consistency or evidence score; unused by the other validators.
	Score float64

	// Triggered is the number of traps found; set by the trap detector only.
	Triggered int

	ModelCalls int
}

// Runner runs the four validators in sequence. It holds no per-document
// state and is safe for concurrent use when its oracle is.
type Runner struct {
	consistency *ConsistencyChecker
	traps       *TrapDetector
	evidence    *EvidenceAssessor
	logger      *slog.Logger
}

// NewRunner creates a Runner whose model-assisted validators ask o. The
// oracle should already carry its retry and timeout policy.
func NewRunner(o oracle.Oracle, cfg types.VerifyConfig, logger *slog.Logger) *Runner {
	logger = orDiscard(logger)
	return &Runner{
		consistency: NewConsistencyChecker(o, logger),
		traps:       NewTrapDetector(o, cfg.TrapTextLimit, logger),
		evidence:    NewEvidenceAssessor(o, logger),
		logger:      logger,
	}
}

// Verify runs every validator over c and returns the combined report.
// Validators are never interrupted: ctx values flow through but its
// cancellation does not, so a run can only be abandoned between calls to
// Verify.
func (r *Runner) Verify(ctx context.Context, c *types.Classification, b *types.SourceBundle) *types.VerificationReport {
	ctx = context.WithoutCancel(ctx)

	structural := CheckStructure(c, b.TotalPages)
	consistency := r.consistency.Check(ctx, c, b)
	traps := r.traps.Check(ctx, c, b)
	evidence := r.evidence.Check(ctx, c, b)

	report := &types.VerificationReport{
		StructuralPassed: len(structural) == 0,
		ConsistencyScore: consistency.Score,
		TrapsTriggered:   traps.Triggered,
		EvidenceScore:    evidence.Score,
		ModelCalls:       consistency.ModelCalls + traps.ModelCalls + evidence.ModelCalls,
	}
	for _, part := range [][]types.Issue{structural, consistency.Issues, traps.Issues, evidence.Issues} {
		report.Issues = append(report.Issues, part...)
	}
	for _, is := range report.Issues {
		if is.Severity == types.SeverityBlocker {
			report.HasBlocker = true
			break
		}
	}

	counts := report.Counts()
	r.logger.InfoContext(ctx, "verification complete",
		"doc_id", b.DocumentID,
		"issues", len(report.Issues),
		"blockers", counts.Blockers,
		"majors", counts.Majors,
		"minors", counts.Minors,
		"consistency_score", report.ConsistencyScore,
		"evidence_score", report.EvidenceScore,
		"traps", report.TrapsTriggered,
		"model_calls", report.ModelCalls,
	)
	return report
}

// ask sends prompt to o and coerces the reply into issues.
func ask(ctx context.Context, o oracle.Oracle, logger *slog.Logger, task oracle.Task, prompt string) ([]types.Issue, error) {
	resp, err := o.Ask(ctx, oracle.Request{Task: task, Prompt: prompt})
	if err != nil {
		return nil, err
	}
	issues, discarded, err := coerceIssues(resp)
	if err != nil {
		return nil, err
	}
	if discarded > 0 {
		logger.WarnContext(ctx, "discarded malformed model issues", "discarded", discarded, "kept", len(issues))
	}
	return issues, nil
}

// modelFailure is the issue raised when a model-assisted phase could not
// complete, so a checker never passes silently.
func modelFailure(v types.Validator, err error) types.Issue {
	return types.Issue{
		Severity:     types.SeverityMajor,
		Message:      fmt.Sprintf("%s model check could not complete: %v", v, err),
		Location:     types.Location{Field: "model_check"},
		SuggestedFix: "Re-run verification or review manually",
	}
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
