// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/groundtruth/pkg/types"
)

func TestCoerceIssues(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		want          []types.Issue
		wantDiscarded int
		wantErr       bool
	}{
		{
			name:    "empty array",
			content: "[]",
		},
		{
			name:    "wrapped object",
			content: `{"issues": [{"severity": "MINOR", "message": "m"}]}`,
			want:    []types.Issue{{Severity: types.SeverityMinor, Message: "m"}},
		},
		{
			name:    "code fence without language",
			content: "Here you go:\n```\n[{\"severity\": \"BLOCKER\", \"message\": \"m\"}]\n```",
			want:    []types.Issue{{Severity: types.SeverityBlocker, Message: "m"}},
		},
		{
			name:    "missing severity becomes MAJOR",
			content: `[{"message": "m"}]`,
			want:    []types.Issue{{Severity: types.SeverityMajor, Message: "m"}},
		},
		{
			name:    "unknown severity becomes MINOR",
			content: `[{"severity": "CRITICAL", "message": "m"}]`,
			want:    []types.Issue{{Severity: types.SeverityMinor, Message: "m"}},
		},
		{
			name:          "missing message discarded",
			content:       `[{"severity": "BLOCKER"}, {"severity": "MAJOR", "message": "   "}, {"message": "kept"}]`,
			want:          []types.Issue{{Severity: types.SeverityMajor, Message: "kept"}},
			wantDiscarded: 2,
		},
		{
			name:          "undecodable record discarded",
			content:       `[{"message": 42}, "text", {"message": "kept"}]`,
			want:          []types.Issue{{Severity: types.SeverityMajor, Message: "kept"}},
			wantDiscarded: 2,
		},
		{
			name:    "fixable without defect kind is not fixable",
			content: `[{"severity": "MAJOR", "message": "m", "auto_fixable": true}]`,
			want:    []types.Issue{{Severity: types.SeverityMajor, Message: "m"}},
		},
		{
			name:    "fixable with known defect kind",
			content: `[{"severity": "MAJOR", "message": "m", "auto_fixable": true, "defect_kind": "segment_share_sum", "location": {"segment_index": 2}}]`,
			want: []types.Issue{{
				Severity: types.SeverityMajor,
				Message:  "m",
				Location: types.Location{Segment: 2},
				Fixable:  true,
				Kind:     types.DefectSegmentShareSum,
			}},
		},
		{
			name:    "invalid location fields cleared",
			content: `[{"severity": "MAJOR", "message": "m", "auto_fixable": true, "defect_kind": "rewrite_everything", "location": {"segment_index": -1, "document_type": "Invoice", "field": "x"}}]`,
			want:    []types.Issue{{Severity: types.SeverityMajor, Message: "m", Location: types.Location{Field: "x"}}},
		},
		{
			name:    "prose is unparseable",
			content: "No issues found.",
			wantErr: true,
		},
		{
			name:    "object without issues key is unparseable",
			content: `{"result": []}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, discarded, err := coerceIssues(tt.content)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnparseable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantDiscarded, discarded)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "日本", prefix("日本語", 2))
}
