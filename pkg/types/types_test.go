// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfig_Valid(t *testing.T) {
	cfg := DefaultPipelineConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Verify.MaxRetries)
	assert.Equal(t, 4000, cfg.Verify.TrapTextLimit)
	assert.Zero(t, cfg.AI.Temperature)
}

func TestPipelineConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
		field  string
	}{
		{name: "negative retries", mutate: func(c *PipelineConfig) { c.Verify.MaxRetries = -1 }, field: "MaxRetries"},
		{name: "temperature above one", mutate: func(c *PipelineConfig) { c.AI.Temperature = 1.5 }, field: "Temperature"},
		{name: "zero model timeout", mutate: func(c *PipelineConfig) { c.AI.Timeout = 0 }, field: "Timeout"},
		{name: "zero concurrency", mutate: func(c *PipelineConfig) { c.Verify.Concurrency = 0 }, field: "Concurrency"},
		{name: "missing store path", mutate: func(c *PipelineConfig) { c.Store.Path = "" }, field: "Path"},
		{name: "missing model", mutate: func(c *PipelineConfig) { c.AI.Model = "" }, field: "Model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestPipelineConfig_ZeroRetriesAllowed(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.Verify.MaxRetries = 0
	cfg.AI.MaxRetries = 0
	assert.NoError(t, cfg.Validate())
}

func sampleClassification() *Classification {
	return &Classification{
		Dominant:         CategoryGenomicReport,
		DeclaredSegments: 1,
		Segments: []Segment{{
			Index: 1, StartPage: 1, EndPage: 2, PageCount: 2,
			Dominant: CategoryGenomicReport,
			Embedded: []Category{CategoryPathologyReport},
			Composition: []CategoryEntry{{
				Category: CategoryGenomicReport, Share: 1,
				Evidence: []Evidence{{Page: 1, Snippet: "Variants detected", Anchors: []string{"RESULTS"}}},
			}},
		}},
		Mixture:       []MixtureEntry{{Category: CategoryGenomicReport, OverallShare: 1}},
		VendorSignals: []string{"foundation medicine"},
	}
}

func TestClassification_CloneIsDeep(t *testing.T) {
	orig := sampleClassification()
	cp := orig.Clone()
	require.Equal(t, orig, cp)

	cp.Segments[0].Composition[0].Share = 0.5
	cp.Segments[0].Composition[0].Evidence[0].Anchors[0] = "CHANGED"
	cp.Segments[0].Embedded[0] = CategoryOther
	cp.Mixture[0].OverallShare = 0.2
	cp.VendorSignals[0] = "other"

	assert.Equal(t, 1.0, orig.Segments[0].Composition[0].Share)
	assert.Equal(t, "RESULTS", orig.Segments[0].Composition[0].Evidence[0].Anchors[0])
	assert.Equal(t, CategoryPathologyReport, orig.Segments[0].Embedded[0])
	assert.Equal(t, 1.0, orig.Mixture[0].OverallShare)
	assert.Equal(t, "foundation medicine", orig.VendorSignals[0])
}

func TestClassification_ClonePreservesNilAndEmpty(t *testing.T) {
	c := &Classification{Mixture: []MixtureEntry{}}
	cp := c.Clone()
	assert.Nil(t, cp.Segments)
	assert.NotNil(t, cp.Mixture)
	assert.Empty(t, cp.Mixture)
	assert.Nil(t, cp.VendorSignals)
}

func TestShareSums(t *testing.T) {
	c := &Classification{
		Segments: []Segment{{Index: 3, Composition: []CategoryEntry{{Share: 0.6}, {Share: 0.3}}}},
		Mixture:  []MixtureEntry{{OverallShare: 0.5}, {OverallShare: 0.25}},
	}
	assert.InDelta(t, 0.9, c.Segments[0].SegmentShareSum(), 1e-9)
	assert.InDelta(t, 0.75, c.MixtureShareSum(), 1e-9)
	require.NotNil(t, c.SegmentByIndex(3))
	assert.Nil(t, c.SegmentByIndex(1))
}

func TestSourceBundle_Validate(t *testing.T) {
	pages := func(nums ...int) []Page {
		out := make([]Page, len(nums))
		for i, n := range nums {
			out[i] = Page{Number: n}
		}
		return out
	}
	tests := []struct {
		name    string
		bundle  SourceBundle
		wantErr string
	}{
		{name: "valid", bundle: SourceBundle{DocumentID: "d", TotalPages: 2, Pages: pages(1, 2)}},
		{name: "missing id", bundle: SourceBundle{TotalPages: 0}, wantErr: "no document id"},
		{name: "count mismatch", bundle: SourceBundle{DocumentID: "d", TotalPages: 3, Pages: pages(1, 2)}, wantErr: "declares 3 pages"},
		{name: "gap", bundle: SourceBundle{DocumentID: "d", TotalPages: 2, Pages: pages(1, 3)}, wantErr: "numbered 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bundle.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSourceBundle_PageAndFullText(t *testing.T) {
	b := SourceBundle{DocumentID: "d", TotalPages: 2, Pages: []Page{{Number: 1, Text: "one"}, {Number: 2, Text: "two"}}}

	p, ok := b.Page(2)
	require.True(t, ok)
	assert.Equal(t, "two", p.Text)
	_, ok = b.Page(0)
	assert.False(t, ok)
	_, ok = b.Page(3)
	assert.False(t, ok)
	assert.Equal(t, "one\ntwo", b.FullText())
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{Location{}, ""},
		{Location{Segment: 2}, "Segment 2"},
		{Location{Segment: 2, Category: CategoryGenomicReport, Field: "confidence"}, "Segment 2 / Genomic Report / confidence"},
		{Location{Field: "document_mixture"}, "document_mixture"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.loc.String())
		assert.Equal(t, tt.want == "", tt.loc.IsZero())
	}
}

func TestCountIssues(t *testing.T) {
	r := &VerificationReport{Issues: []Issue{
		{ID: "STR-0001", Severity: SeverityBlocker},
		{ID: "STR-0002", Severity: SeverityMajor, Fixable: true, Kind: DefectMixtureShareSum},
		{ID: "CON-0001", Severity: SeverityMajor},
		{ID: "EVQ-0001", Severity: SeverityMinor},
	}}

	got := r.Counts()
	assert.Equal(t, IssueCounts{Blockers: 1, Majors: 2, MajorFixable: 1, MajorNonFixable: 1, Minors: 1}, got)
	assert.Equal(t, 4, got.Total())

	fixable := r.Fixable()
	require.Len(t, fixable, 1)
	assert.Equal(t, "STR-0002", fixable[0].ID)
}

func TestSeverity_Rank(t *testing.T) {
	assert.Less(t, SeverityBlocker.Rank(), SeverityMajor.Rank())
	assert.Less(t, SeverityMajor.Rank(), SeverityMinor.Rank())
	assert.False(t, Severity("CRITICAL").Valid())
	assert.True(t, DefectCategorySet.Known())
	assert.False(t, DefectNone.Known())
}

func TestReviewSubmission_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sub     ReviewSubmission
		wantErr bool
	}{
		{name: "agree", sub: ReviewSubmission{DocumentID: "d", Reviewer: "r", Agrees: true, Confidence: 0.9}},
		{name: "missing reviewer", sub: ReviewSubmission{DocumentID: "d", Agrees: true}, wantErr: true},
		{name: "missing document", sub: ReviewSubmission{Reviewer: "r"}, wantErr: true},
		{name: "confidence out of range", sub: ReviewSubmission{DocumentID: "d", Reviewer: "r", Confidence: 1.2}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCorrections_Empty(t *testing.T) {
	var nilCorr *Corrections
	assert.True(t, nilCorr.Empty())
	assert.True(t, (&Corrections{Notes: "only notes"}).Empty())
	dom := CategoryOther
	assert.False(t, (&Corrections{Dominant: &dom}).Empty())
}

func TestDisposition_Terminal(t *testing.T) {
	assert.True(t, AutoAccept.Terminal())
	assert.True(t, EscalateToSME.Terminal())
	assert.False(t, AutoRetry.Terminal())
}

func TestSourceBundle_PageRange(t *testing.T) {
	b := SourceBundle{DocumentID: "d", TotalPages: 3, Pages: []Page{{Number: 1}, {Number: 2}, {Number: 3}}}
	numbers := func(ps []Page) []int {
		var out []int
		for _, p := range ps {
			out = append(out, p.Number)
		}
		return out
	}

	tests := []struct {
		name       string
		start, end int
		want       []int
	}{
		{name: "inside", start: 2, end: 3, want: []int{2, 3}},
		{name: "huge end clamped", start: 2, end: 1 << 40, want: []int{2, 3}},
		{name: "negative start clamped", start: -(1 << 40), end: 1, want: []int{1}},
		{name: "inverted", start: 3, end: 2},
		{name: "entirely past the end", start: 7, end: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, numbers(b.PageRange(tt.start, tt.end)))
		})
	}
}
