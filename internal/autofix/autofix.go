// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package autofix applies mechanical corrections to a classification. Each
// fixable issue carries a DefectKind; the engine matches it against a closed
// set of strategies and never mutates its input.
package autofix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/groundtruth/pkg/types"
)

var (
	errNoStrategy  = errors.New("no fix strategy for defect kind")
	errNoSegment   = errors.New("segment not found")
	errZeroSum     = errors.New("shares sum to zero, cannot normalize")
	errNotFixable  = errors.New("issue is not marked fixable")
	errNoneApplied = errors.New("fix made no change")
)

// strategy corrects c in place for one issue. It returns errNoneApplied
// when c already satisfies the invariant the issue describes.
type strategy func(c *types.Classification, is types.Issue) error

var strategies = map[types.DefectKind]strategy{
	types.DefectSegmentShareSum:  normalizeSegmentShares,
	types.DefectMixtureShareSum:  normalizeMixtureShares,
	types.DefectSegmentPageCount: recountSegmentPages,
	types.DefectSegmentCount:     recountSegments,
}

// Outcome is the log of one Apply call.
type Outcome struct {
	Applied []string
	Skipped []string
}

// Engine applies fix strategies.
type Engine struct {
	logger *slog.Logger
}

// New creates an Engine. A nil logger discards output.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger.With("component", "autofix")}
}

// Apply returns a corrected copy of c. Issues whose kind has no strategy,
// or whose target cannot be fixed safely, are recorded as skipped rather
// than failing the call.
func (e *Engine) Apply(ctx context.Context, c *types.Classification, issues []types.Issue) (*types.Classification, Outcome) {
	out := c.Clone()
	var oc Outcome

	for _, is := range issues {
		desc := fmt.Sprintf("%s for %s: %s", is.Kind, is.ID, shorten(is.Message, 60))

		err := errNotFixable
		if is.Fixable {
			err = errNoStrategy
			if fix, ok := strategies[is.Kind]; ok {
				err = fix(out, is)
			}
		}

		switch {
		case err == nil:
			oc.Applied = append(oc.Applied, desc)
			e.logger.InfoContext(ctx, "applied fix", "issue", is.ID, "kind", is.Kind)
		case errors.Is(err, errNoneApplied):
			e.logger.DebugContext(ctx, "fix already satisfied", "issue", is.ID, "kind", is.Kind)
		default:
			oc.Skipped = append(oc.Skipped, fmt.Sprintf("%s (%v)", desc, err))
			e.logger.WarnContext(ctx, "skipped fix", "issue", is.ID, "kind", is.Kind, "reason", err)
		}
	}
	return out, oc
}

func normalizeSegmentShares(c *types.Classification, is types.Issue) error {
	seg := c.SegmentByIndex(is.Location.Segment)
	if seg == nil {
		return fmt.Errorf("%w: %d", errNoSegment, is.Location.Segment)
	}
	sum := seg.SegmentShareSum()
	if sum == 0 {
		return errZeroSum
	}
	if sum == 1.0 {
		return errNoneApplied
	}
	for i := range seg.Composition {
		seg.Composition[i].Share /= sum
	}
	return nil
}

func normalizeMixtureShares(c *types.Classification, _ types.Issue) error {
	sum := c.MixtureShareSum()
	if sum == 0 {
		return errZeroSum
	}
	if sum == 1.0 {
		return errNoneApplied
	}
	for i := range c.Mixture {
		c.Mixture[i].OverallShare /= sum
	}
	return nil
}

func recountSegmentPages(c *types.Classification, is types.Issue) error {
	seg := c.SegmentByIndex(is.Location.Segment)
	if seg == nil {
		return fmt.Errorf("%w: %d", errNoSegment, is.Location.Segment)
	}
	want := seg.EndPage - seg.StartPage + 1
	if want < 1 {
		return fmt.Errorf("segment %d has an inverted page range", seg.Index)
	}
	if seg.PageCount == want {
		return errNoneApplied
	}
	seg.PageCount = want
	return nil
}

func recountSegments(c *types.Classification, _ types.Issue) error {
	if c.DeclaredSegments == len(c.Segments) {
		return errNoneApplied
	}
	c.DeclaredSegments = len(c.Segments)
	return nil
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
