// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"log/slog"

	"github.com/pdiddy/groundtruth/internal/oracle"
	"github.com/pdiddy/groundtruth/pkg/types"
)

// EvidenceAssessor asks the model to re-derive every evidence snippet and
// anchor from the source pages it claims to come from.
type EvidenceAssessor struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

// NewEvidenceAssessor creates an assessor backed by o.
func NewEvidenceAssessor(o oracle.Oracle, logger *slog.Logger) *EvidenceAssessor {
	return &EvidenceAssessor{oracle: o, logger: orDiscard(logger).With("validator", types.ValidatorEvidence)}
}

// Check returns evidence issues and a quality score. A failed or
// unparseable model call fails open with no issues and a score of 1.0.
func (ea *EvidenceAssessor) Check(ctx context.Context, c *types.Classification, b *types.SourceBundle) Result {
	prompt, err := renderEvidencePrompt(c, b)
	if err != nil {
		ea.logger.WarnContext(ctx, "rendering prompt failed, passing evidence", "error", err)
		return Result{Score: 1.0}
	}

	issues, err := ask(ctx, ea.oracle, ea.logger, oracle.TaskEvidence, prompt)
	if err != nil {
		ea.logger.WarnContext(ctx, "model check failed, passing evidence", "error", err)
		return Result{Score: 1.0, ModelCalls: 1}
	}

	r := newRecorder(prefixEvidence, types.ValidatorEvidence)
	for _, is := range issues {
		r.add(is)
	}
	return Result{Issues: r.issues, Score: evidencePenalties.score(r.issues), ModelCalls: 1}
}
