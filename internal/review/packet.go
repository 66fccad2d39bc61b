// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review turns terminal decisions into escalation packets and
// ground-truth records, and persists both. A packet is reviewed exactly
// once; every ground-truth write is kept in an append-only history.
package review

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pdiddy/groundtruth/pkg/types"
)

var (
	ErrNotEscalated        = errors.New("decision is not an escalation")
	ErrNotAccepted         = errors.New("decision is not an auto-accept")
	ErrAlreadyReviewed     = errors.New("packet has already been reviewed")
	ErrCorrectionsRequired = errors.New("a disagreeing review must supply corrections")
)

const (
	defaultLocation = "General"
	defaultFix      = "Manual review needed"
)

// Outcome is a finished verification run for one document.
type Outcome struct {
	Bundle *types.SourceBundle

	// Proposed is the classification as submitted, before any auto-fix.
	Proposed *types.Classification

	// Final is the classification that was last verified.
	Final     *types.Classification
	Report    *types.VerificationReport
	Decision  types.Decision
	Reference *types.ReferenceClassification
}

// SummarizeIssues renders issues for reviewers, sorted BLOCKER, MAJOR,
// MINOR. Issues of equal severity keep their detection order.
func SummarizeIssues(issues []types.Issue) []types.IssueSummary {
	out := make([]types.IssueSummary, len(issues))
	for i, is := range issues {
		loc := defaultLocation
		if !is.Location.IsZero() {
			loc = is.Location.String()
		}
		fix := is.SuggestedFix
		if fix == "" {
			fix = defaultFix
		}
		out[i] = types.IssueSummary{
			ID:           is.ID,
			Validator:    is.Validator,
			Severity:     is.Severity,
			Message:      is.Message,
			Location:     loc,
			SuggestedFix: fix,
		}
	}
	slices.SortStableFunc(out, func(a, b types.IssueSummary) int {
		return cmp.Compare(a.Severity.Rank(), b.Severity.Rank())
	})
	return out
}

// BuildPacket creates a pending packet for an escalated outcome.
func BuildPacket(o Outcome, now time.Time) (*types.EscalationPacket, error) {
	if o.Decision.Disposition != types.EscalateToSME {
		return nil, fmt.Errorf("%w: %s", ErrNotEscalated, o.Decision.Disposition)
	}

	p := &types.EscalationPacket{
		DocumentID:     o.Bundle.DocumentID,
		Filename:       o.Bundle.Filename,
		TotalPages:     o.Bundle.TotalPages,
		Proposed:       *o.Proposed.Clone(),
		Classification: *o.Final.Clone(),
		Decision:       o.Decision,
		TotalIssues:    len(o.Report.Issues),
		Issues:         SummarizeIssues(o.Report.Issues),
		Reference:      o.Reference,
		Status:         types.ReviewPending,
		CreatedAt:      now,
	}
	if o.Reference != nil {
		differs := o.Reference.DominantCategory != o.Final.Dominant
		p.ReferenceDiffers = &differs
	}
	return p, nil
}

// AcceptRecord creates the ground-truth record for an auto-accepted outcome.
func AcceptRecord(o Outcome, now time.Time) (*types.GroundTruthRecord, error) {
	if o.Decision.Disposition != types.AutoAccept {
		return nil, fmt.Errorf("%w: %s", ErrNotAccepted, o.Decision.Disposition)
	}
	return &types.GroundTruthRecord{
		DocumentID:     o.Bundle.DocumentID,
		Filename:       o.Bundle.Filename,
		Proposed:       *o.Proposed.Clone(),
		Classification: *o.Final.Clone(),
		Provenance:     types.ProvenanceAutoAccepted,
		Decision:       o.Decision,
		TotalIssues:    len(o.Report.Issues),
		Issues:         SummarizeIssues(o.Report.Issues),
		Reference:      o.Reference,
		CreatedAt:      now,
	}, nil
}

// ApplyReview completes p with sub and returns the resulting ground-truth
// record. p is updated in place only when the review is accepted.
func ApplyReview(p *types.EscalationPacket, sub types.ReviewSubmission, reviewID string, now time.Time) (*types.GroundTruthRecord, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if sub.DocumentID != p.DocumentID {
		return nil, fmt.Errorf("review for %s submitted against packet %s", sub.DocumentID, p.DocumentID)
	}
	if p.Status == types.ReviewCompleted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyReviewed, p.DocumentID)
	}

	final := p.Classification.Clone()
	provenance := types.ProvenanceHumanValidated
	if sub.Agrees {
		sub.Corrections = nil
	} else {
		if sub.Corrections.Empty() {
			return nil, fmt.Errorf("%w: %s", ErrCorrectionsRequired, p.DocumentID)
		}
		applyCorrections(final, sub.Corrections)
		provenance = types.ProvenanceHumanCorrected
	}

	rev := &types.Review{ID: reviewID, ReviewedAt: now, ReviewSubmission: sub}
	p.Status = types.ReviewCompleted
	p.Review = rev
	p.UpdatedAt = &now

	return &types.GroundTruthRecord{
		DocumentID:     p.DocumentID,
		Filename:       p.Filename,
		Proposed:       *p.Proposed.Clone(),
		Classification: *final,
		Provenance:     provenance,
		Decision:       p.Decision,
		TotalIssues:    p.TotalIssues,
		Issues:         p.Issues,
		Reference:      p.Reference,
		Review:         rev,
		CreatedAt:      now,
	}, nil
}

// applyCorrections replaces, never merges, each field the reviewer set.
func applyCorrections(c *types.Classification, corr *types.Corrections) {
	if corr.Dominant != nil {
		c.Dominant = *corr.Dominant
	}
	if corr.Segments != nil {
		c.Segments = slices.Clone(corr.Segments)
		c.DeclaredSegments = len(corr.Segments)
	}
	if corr.Mixture != nil {
		c.Mixture = slices.Clone(corr.Mixture)
	}
}
