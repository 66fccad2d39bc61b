// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/groundtruth/internal/oracle"
	"github.com/pdiddy/groundtruth/pkg/types"
)

func TestEvidenceAssessor_ScoresModelIssues(t *testing.T) {
	fake := newFakeOracle()
	fake.responses[oracle.TaskEvidence] = `[
		{"severity": "BLOCKER", "message": "Snippet 'KRAS G12D' not found on page 1", "location": {"segment_index": 1, "document_type": "Genomic Report"}},
		{"severity": "MAJOR", "message": "Anchor 'Impression' not on page 2"},
		{"severity": "MINOR", "message": "Snippet is very long"}
	]`

	res := NewEvidenceAssessor(fake, nil).Check(context.Background(), validClassification(), testBundle())

	require.Len(t, res.Issues, 3)
	assert.Equal(t, "EVQ-0001", res.Issues[0].ID)
	assert.Equal(t, types.ValidatorEvidence, res.Issues[0].Validator)
	assert.InDelta(t, 1.0-0.3-0.15-0.05, res.Score, 1e-9)
	assert.Equal(t, 1, res.ModelCalls)
}

func TestEvidenceAssessor_FailsOpen(t *testing.T) {
	tests := []struct {
		name string
		set  func(f *fakeOracle)
	}{
		{name: "call error", set: func(f *fakeOracle) { f.errs[oracle.TaskEvidence] = errors.New("connection reset") }},
		{name: "unparseable", set: func(f *fakeOracle) { f.responses[oracle.TaskEvidence] = "<html>502</html>" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeOracle()
			tt.set(fake)

			res := NewEvidenceAssessor(fake, nil).Check(context.Background(), validClassification(), testBundle())

			assert.Empty(t, res.Issues)
			assert.Equal(t, 1.0, res.Score)
		})
	}
}

func TestEvidenceContext(t *testing.T) {
	c := validClassification()
	c.Segments[1].EndPage = 9 // beyond the bundle; ignored

	pages := evidenceContext(c, testBundle())

	require.Len(t, pages, 4)
	assert.Equal(t, 2, pages[3].ParagraphCount)
	assert.Equal(t, "Progress note page 3. Assessment and plan.", pages[3].Text)
}
