// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/pdiddy/groundtruth/internal/oracle"
	"github.com/pdiddy/groundtruth/pkg/types"
)

// ShareTolerance is the allowed deviation of a share sum from 1.0.
const ShareTolerance = 0.01

// ConsistencyChecker checks share arithmetic and page ordering by rule, then
// asks the model whether each segment's text supports its labels.
type ConsistencyChecker struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

// NewConsistencyChecker creates a checker backed by o.
func NewConsistencyChecker(o oracle.Oracle, logger *slog.Logger) *ConsistencyChecker {
	return &ConsistencyChecker{oracle: o, logger: orDiscard(logger).With("validator", types.ValidatorConsistency)}
}

// Check returns the consistency issues and score for c. When the rule phase
// finds a BLOCKER the model phase is skipped and the score is 0.
func (cc *ConsistencyChecker) Check(ctx context.Context, c *types.Classification, b *types.SourceBundle) Result {
	r := newRecorder(prefixConsistency, types.ValidatorConsistency)
	checkShareSums(r, c)
	checkPageOrdering(r, c)

	if r.hasBlocker() {
		cc.logger.InfoContext(ctx, "blocker found by rules, skipping model check", "issues", len(r.issues))
		return Result{Issues: r.issues, Score: 0.0}
	}

	var res Result
	prompt, err := renderConsistencyPrompt(c, b)
	if err == nil {
		res.ModelCalls++
		var issues []types.Issue
		issues, err = ask(ctx, cc.oracle, cc.logger, oracle.TaskConsistency, prompt)
		for _, is := range issues {
			r.add(is)
		}
	}
	if err != nil {
		cc.logger.WarnContext(ctx, "model check failed", "error", err)
		r.add(modelFailure(types.ValidatorConsistency, err))
	}

	res.Issues = r.issues
	res.Score = consistencyPenalties.score(r.issues)
	return res
}

func withinTolerance(sum float64) bool {
	return math.Abs(sum-1.0) <= ShareTolerance
}

func checkShareSums(r *recorder, c *types.Classification) {
	for i := range c.Segments {
		seg := &c.Segments[i]
		sum := seg.SegmentShareSum()
		if withinTolerance(sum) {
			continue
		}
		r.add(types.Issue{
			Severity:     types.SeverityMajor,
			Message:      fmt.Sprintf("Segment %d shares sum to %.3f instead of 1.0", seg.Index, sum),
			Location:     types.Location{Segment: seg.Index, Field: "segment_share"},
			SuggestedFix: "Normalize shares to sum to 1.0",
			Fixable:      true,
			Kind:         types.DefectSegmentShareSum,
		})
	}

	sum := c.MixtureShareSum()
	if !withinTolerance(sum) {
		r.add(types.Issue{
			Severity:     types.SeverityMajor,
			Message:      fmt.Sprintf("Document mixture overall_share sums to %.3f instead of 1.0", sum),
			Location:     types.Location{Field: "document_mixture"},
			SuggestedFix: "Normalize overall_share values",
			Fixable:      true,
			Kind:         types.DefectMixtureShareSum,
		})
	}
}

// checkPageOrdering sorts segments by start page and flags inverted ranges
// and any segment that ends on or after the next one's start.
func checkPageOrdering(r *recorder, c *types.Classification) {
	segs := make([]types.Segment, len(c.Segments))
	copy(segs, c.Segments)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].StartPage < segs[j].StartPage })

	for i, seg := range segs {
		if seg.StartPage > seg.EndPage {
			r.add(types.Issue{
				Severity:     types.SeverityBlocker,
				Message:      fmt.Sprintf("Segment %d: start_page (%d) > end_page (%d)", seg.Index, seg.StartPage, seg.EndPage),
				Location:     types.Location{Segment: seg.Index, Field: "page_range"},
				SuggestedFix: "Swap or adjust page range",
			})
		}
		if i == len(segs)-1 {
			continue
		}
		next := segs[i+1]
		if seg.EndPage >= next.StartPage {
			r.add(types.Issue{
				Severity: types.SeverityBlocker,
				Message: fmt.Sprintf("Segment %d ends at %d, overlaps with Segment %d starting at %d",
					seg.Index, seg.EndPage, next.Index, next.StartPage),
				Location:     types.Location{Segment: seg.Index, Field: "page_range"},
				SuggestedFix: "Adjust page ranges to eliminate overlap",
			})
		}
	}
}
