// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"fmt"
	"sync"

	"github.com/pdiddy/groundtruth/internal/oracle"
	"github.com/pdiddy/groundtruth/pkg/types"
)

// --- fake oracle ---

type fakeOracle struct {
	mu        sync.Mutex
	responses map[oracle.Task]string
	errs      map[oracle.Task]error
	prompts   map[oracle.Task][]string
	ctxErrs   []error
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		responses: map[oracle.Task]string{},
		errs:      map[oracle.Task]error{},
		prompts:   map[oracle.Task][]string{},
	}
}

func (f *fakeOracle) Ask(ctx context.Context, req oracle.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts[req.Task] = append(f.prompts[req.Task], req.Prompt)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if err := f.errs[req.Task]; err != nil {
		return "", err
	}
	if resp, ok := f.responses[req.Task]; ok {
		return resp, nil
	}
	return "[]", nil
}

func (f *fakeOracle) calls(task oracle.Task) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts[task])
}

// --- fixtures ---

// composition builds one entry per canonical category with the given
// shares. The first category is PRIMARY with one evidence item; the rest are
// NO_EVIDENCE.
func composition(shares ...float64) []types.CategoryEntry {
	out := make([]types.CategoryEntry, len(types.Categories))
	for i, cat := range types.Categories {
		e := types.CategoryEntry{Category: cat, Presence: types.PresenceNone, Confidence: 0.9}
		if i < len(shares) {
			e.Share = shares[i]
		}
		if i == 0 {
			e.Presence = types.PresencePrimary
			e.Evidence = []types.Evidence{{Page: 1, Snippet: "Assessment and plan", Anchors: []string{"Assessment"}}}
		}
		out[i] = e
	}
	return out
}

func mixture(shares ...float64) []types.MixtureEntry {
	comp := composition(shares...)
	out := make([]types.MixtureEntry, len(comp))
	for i, e := range comp {
		out[i] = types.MixtureEntry{
			Category:     e.Category,
			Presence:     e.Presence,
			Confidence:   e.Confidence,
			OverallShare: e.Share,
			Evidence:     e.Evidence,
		}
	}
	return out
}

var balanced = []float64{0.6, 0.2, 0.1, 0.05, 0.05}

// validClassification passes every rule check against testBundle.
func validClassification() *types.Classification {
	return &types.Classification{
		Dominant:         types.CategoryClinicalNote,
		DeclaredSegments: 2,
		Segments: []types.Segment{
			{Index: 1, StartPage: 1, EndPage: 2, PageCount: 2, Dominant: types.CategoryClinicalNote, Composition: composition(balanced...)},
			{Index: 2, StartPage: 3, EndPage: 4, PageCount: 2, Dominant: types.CategoryClinicalNote, Composition: composition(balanced...)},
		},
		Mixture:        mixture(balanced...),
		SelfEvaluation: types.SelfEvaluation{Confidence: 0.9, Summary: "ok"},
	}
}

func testBundle() *types.SourceBundle {
	b := &types.SourceBundle{DocumentID: "doc-1", Filename: "doc-1.pdf", TotalPages: 4}
	for n := 1; n <= 4; n++ {
		b.Pages = append(b.Pages, types.Page{
			Number:     n,
			Text:       fmt.Sprintf("Progress note page %d. Assessment and plan.", n),
			Paragraphs: []string{"Progress note", "Assessment and plan."},
		})
	}
	return b
}

func severities(issues []types.Issue) []types.Severity {
	out := make([]types.Severity, len(issues))
	for i, is := range issues {
		out[i] = is.Severity
	}
	return out
}
