// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"fmt"
	"strings"

	"github.com/pdiddy/groundtruth/pkg/types"
)

// CheckStructure runs the rule-only shape checks on c against a document of
// totalPages pages: declared segment count, segment index sequence, page
// bounds and declared page counts, confidence ranges, category completeness,
// and evidence presence.
// It never calls the model.
func CheckStructure(c *types.Classification, totalPages int) []types.Issue {
	r := newRecorder(prefixStructural, types.ValidatorStructural)
	checkSegmentCount(r, c)
	checkSegmentIndexes(r, c)
	checkPageBounds(r, c, totalPages)
	checkConfidenceRanges(r, c)
	checkCompleteness(r, c)
	checkEvidencePresence(r, c)
	return r.issues
}

func checkSegmentCount(r *recorder, c *types.Classification) {
	actual := len(c.Segments)
	if c.DeclaredSegments == actual {
		return
	}
	r.add(types.Issue{
		Severity:     types.SeverityBlocker,
		Message:      fmt.Sprintf("number_of_segments is %d but segments array has %d items", c.DeclaredSegments, actual),
		Location:     types.Location{Field: "number_of_segments"},
		SuggestedFix: fmt.Sprintf("Set number_of_segments = %d", actual),
		Fixable:      true,
		Kind:         types.DefectSegmentCount,
	})
}

// checkSegmentIndexes requires segment_index values to run 1..N in array
// order. Fixes address segments by index, so a repeated index would leave
// all but the first copy unreachable.
func checkSegmentIndexes(r *recorder, c *types.Classification) {
	seen := make(map[int]bool, len(c.Segments))
	for i, seg := range c.Segments {
		pos := i + 1
		var msg string
		switch {
		case seen[seg.Index]:
			msg = fmt.Sprintf("Segment at position %d repeats segment_index %d", pos, seg.Index)
		case seg.Index != pos:
			msg = fmt.Sprintf("Segment at position %d has segment_index %d, expected %d", pos, seg.Index, pos)
		}
		seen[seg.Index] = true
		if msg == "" {
			continue
		}
		r.add(types.Issue{
			Severity:     types.SeverityBlocker,
			Message:      msg,
			Location:     types.Location{Segment: pos, Field: "segment_index"},
			SuggestedFix: "Number segments 1..N in page order",
		})
	}
}

func checkPageBounds(r *recorder, c *types.Classification, totalPages int) {
	for _, seg := range c.Segments {
		if seg.StartPage < 1 || seg.StartPage > totalPages {
			r.add(types.Issue{
				Severity:     types.SeverityBlocker,
				Message:      fmt.Sprintf("Segment %d start_page=%d out of range [1, %d]", seg.Index, seg.StartPage, totalPages),
				Location:     types.Location{Segment: seg.Index, Field: "start_page"},
				SuggestedFix: fmt.Sprintf("Adjust start_page to valid range [1, %d]", totalPages),
			})
		}
		if seg.EndPage < 1 || seg.EndPage > totalPages {
			r.add(types.Issue{
				Severity:     types.SeverityBlocker,
				Message:      fmt.Sprintf("Segment %d end_page=%d out of range [1, %d]", seg.Index, seg.EndPage, totalPages),
				Location:     types.Location{Segment: seg.Index, Field: "end_page"},
				SuggestedFix: fmt.Sprintf("Adjust end_page to valid range [1, %d]", totalPages),
			})
		}
		if seg.StartPage > seg.EndPage {
			r.add(types.Issue{
				Severity:     types.SeverityBlocker,
				Message:      fmt.Sprintf("Segment %d: start_page (%d) > end_page (%d)", seg.Index, seg.StartPage, seg.EndPage),
				Location:     types.Location{Segment: seg.Index, Field: "page_range"},
				SuggestedFix: "Swap start_page and end_page or adjust page range",
			})
		}

		want := seg.EndPage - seg.StartPage + 1
		if seg.PageCount != want {
			r.add(types.Issue{
				Severity:     types.SeverityMajor,
				Message:      fmt.Sprintf("Segment %d: segment_page_count=%d but should be %d (end_page - start_page + 1)", seg.Index, seg.PageCount, want),
				Location:     types.Location{Segment: seg.Index, Field: "segment_page_count"},
				SuggestedFix: fmt.Sprintf("Set segment_page_count = %d", want),
				Fixable:      true,
				Kind:         types.DefectSegmentPageCount,
			})
		}
	}
}

func inUnitRange(v float64) bool {
	return v >= 0.0 && v <= 1.0
}

func checkConfidenceRanges(r *recorder, c *types.Classification) {
	outOfRange := func(msg string, loc types.Location) {
		r.add(types.Issue{
			Severity:     types.SeverityBlocker,
			Message:      msg,
			Location:     loc,
			SuggestedFix: "Adjust confidence to [0.0, 1.0]",
		})
	}

	for _, seg := range c.Segments {
		for _, e := range seg.Composition {
			if !inUnitRange(e.Confidence) {
				outOfRange(
					fmt.Sprintf("Segment %d, %s: confidence=%g out of range [0.0, 1.0]", seg.Index, e.Category, e.Confidence),
					types.Location{Segment: seg.Index, Category: e.Category, Field: "confidence"},
				)
			}
		}
	}
	for _, m := range c.Mixture {
		if !inUnitRange(m.Confidence) {
			outOfRange(
				fmt.Sprintf("Document mixture %s: confidence=%g out of range [0.0, 1.0]", m.Category, m.Confidence),
				types.Location{Category: m.Category, Field: "confidence"},
			)
		}
	}
	if !inUnitRange(c.SelfEvaluation.Confidence) {
		outOfRange(
			fmt.Sprintf("self_evaluation confidence=%g out of range [0.0, 1.0]", c.SelfEvaluation.Confidence),
			types.Location{Field: "self_evaluation.confidence"},
		)
	}
}

// categoryDiff compares a category list with the canonical set and returns
// the missing categories and the extra ones (unknown or repeated), both in
// a deterministic order.
func categoryDiff(got []types.Category) (missing, extra []types.Category) {
	seen := make(map[types.Category]int, len(got))
	for _, cat := range got {
		seen[cat]++
		if !cat.Known() || seen[cat] > 1 {
			extra = append(extra, cat)
		}
	}
	for _, cat := range types.Categories {
		if seen[cat] == 0 {
			missing = append(missing, cat)
		}
	}
	return missing, extra
}

func joinCategories(cats []types.Category) string {
	s := make([]string, len(cats))
	for i, c := range cats {
		s[i] = string(c)
	}
	return strings.Join(s, ", ")
}

func checkCompleteness(r *recorder, c *types.Classification) {
	report := func(scope string, loc types.Location, got []types.Category) {
		missing, extra := categoryDiff(got)
		if len(missing) > 0 {
			r.add(types.Issue{
				Severity:     types.SeverityBlocker,
				Message:      fmt.Sprintf("%s missing document types: %s", scope, joinCategories(missing)),
				Location:     loc,
				SuggestedFix: "Add missing types with NO_EVIDENCE presence_level",
				Fixable:      true,
				Kind:         types.DefectCategorySet,
			})
		}
		if len(extra) > 0 {
			r.add(types.Issue{
				Severity:     types.SeverityBlocker,
				Message:      fmt.Sprintf("%s has extra/duplicate types: %s", scope, joinCategories(extra)),
				Location:     loc,
				SuggestedFix: "Remove duplicate or unknown entries",
				Fixable:      true,
				Kind:         types.DefectCategorySet,
			})
		}
	}

	for _, seg := range c.Segments {
		cats := make([]types.Category, len(seg.Composition))
		for i, e := range seg.Composition {
			cats[i] = e.Category
		}
		report(fmt.Sprintf("Segment %d", seg.Index), types.Location{Segment: seg.Index, Field: "segment_composition"}, cats)
	}

	cats := make([]types.Category, len(c.Mixture))
	for i, m := range c.Mixture {
		cats[i] = m.Category
	}
	report("document_mixture", types.Location{Field: "document_mixture"}, cats)
}

func checkEvidencePresence(r *recorder, c *types.Classification) {
	for _, seg := range c.Segments {
		for _, e := range seg.Composition {
			if e.Presence == types.PresenceNone || len(e.Evidence) > 0 {
				continue
			}
			r.add(types.Issue{
				Severity:     types.SeverityMinor,
				Message:      fmt.Sprintf("Segment %d, %s has %s but no evidence provided", seg.Index, e.Category, e.Presence),
				Location:     types.Location{Segment: seg.Index, Category: e.Category, Field: "top_evidence"},
				SuggestedFix: "Add at least one evidence snippet or change to NO_EVIDENCE",
			})
		}
	}
}
