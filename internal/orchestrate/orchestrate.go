// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrate drives one classification through verify, decide and
// fix rounds until the arbiter returns a terminal disposition, the retry
// ceiling is hit, or a fix round revisits an earlier state.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/groundtruth/internal/arbiter"
	"github.com/pdiddy/groundtruth/internal/autofix"
	"github.com/pdiddy/groundtruth/pkg/types"
)

// ErrRunCancelled is returned when the caller's context ends between
// attempts. The accompanying Result holds the last completed report.
var ErrRunCancelled = errors.New("verification run cancelled")

// State is the orchestrator's position in one run.
type State string

const (
	StateVerifying State = "VERIFYING"
	StateFixing    State = "FIXING"
	StateTerminal  State = "TERMINAL"
)

// Verifier produces a report for a classification. *verify.Runner
// satisfies it.
type Verifier interface {
	Verify(ctx context.Context, c *types.Classification, b *types.SourceBundle) *types.VerificationReport
}

// Fixer returns a corrected copy of a classification. *autofix.Engine
// satisfies it.
type Fixer interface {
	Apply(ctx context.Context, c *types.Classification, issues []types.Issue) (*types.Classification, autofix.Outcome)
}

// Result is the outcome of one run.
type Result struct {
	// Classification is the state that was last verified.
	Classification *types.Classification
	Report         *types.VerificationReport

	// Decision is the zero value when the run was cancelled.
	Decision types.Decision
	RetryLog []types.RetryEntry
	Attempts int
	State    State
}

// Orchestrator holds no per-run state; one instance may serve many
// concurrent runs.
type Orchestrator struct {
	verifier   Verifier
	fixer      Fixer
	maxRetries int
	logger     *slog.Logger
}

// New creates an Orchestrator allowing cfg.MaxRetries fix rounds, so at most
// cfg.MaxRetries+1 verification attempts per run.
func New(v Verifier, f Fixer, cfg types.VerifyConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		verifier:   v,
		fixer:      f,
		maxRetries: max(cfg.MaxRetries, 0),
		logger:     logger.With("component", "orchestrate"),
	}
}

// Run verifies c against b, applying auto-fixes while the arbiter asks for a
// retry. c is never mutated. The only error is ErrRunCancelled, checked
// between attempts.
func (o *Orchestrator) Run(ctx context.Context, c *types.Classification, b *types.SourceBundle) (*Result, error) {
	res := &Result{Classification: c, State: StateVerifying}
	seen := make(map[string]int)
	current := c

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			o.logger.WarnContext(ctx, "run cancelled", "doc_id", b.DocumentID, "completed_attempts", res.Attempts)
			return res, fmt.Errorf("%w: %w", ErrRunCancelled, err)
		}

		res.State = StateVerifying
		res.Attempts = attempt
		res.Classification = current
		report := o.verifier.Verify(ctx, current, b)
		res.Report = report

		fp := Fingerprint(current)
		if prev, ok := seen[fp]; ok {
			res.Decision = types.Decision{
				Disposition: types.EscalateToSME,
				Reason: fmt.Sprintf("Cycle detected in auto-fix loop after %d attempts: state repeats attempt %d",
					attempt, prev),
				Counts: report.Counts(),
			}
			return o.finish(ctx, res, b), nil
		}
		seen[fp] = attempt

		decision := arbiter.Decide(report)
		if decision.Disposition.Terminal() {
			res.Decision = decision
			return o.finish(ctx, res, b), nil
		}
		if attempt > o.maxRetries {
			res.Decision = types.Decision{
				Disposition: types.EscalateToSME,
				Reason:      fmt.Sprintf("Max retries (%d) reached. Auto-fix could not resolve all issues.", o.maxRetries),
				Counts:      decision.Counts,
			}
			return o.finish(ctx, res, b), nil
		}

		res.State = StateFixing
		fixable := report.Fixable()
		fixed, outcome := o.fixer.Apply(ctx, current, fixable)
		res.RetryLog = append(res.RetryLog, types.RetryEntry{
			Attempt:         attempt,
			IssuesBeforeFix: len(report.Issues),
			FixableIssues:   len(fixable),
			FixesApplied:    outcome.Applied,
			FixesSkipped:    outcome.Skipped,
			DecisionBefore:  decision.Disposition,
		})
		o.logger.InfoContext(ctx, "auto-fix round",
			"doc_id", b.DocumentID,
			"attempt", attempt,
			"issues", len(report.Issues),
			"applied", len(outcome.Applied),
			"skipped", len(outcome.Skipped),
		)
		current = fixed
	}
}

func (o *Orchestrator) finish(ctx context.Context, res *Result, b *types.SourceBundle) *Result {
	res.State = StateTerminal
	o.logger.InfoContext(ctx, "run complete",
		"doc_id", b.DocumentID,
		"decision", res.Decision.Disposition,
		"rule", res.Decision.Rule,
		"reason", res.Decision.Reason,
		"attempts", res.Attempts,
	)
	return res
}
