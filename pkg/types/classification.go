// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "slices"

// Category is one of the fixed document-type categories a classification
// scores every segment against.
type Category string

const (
	CategoryClinicalNote    Category = "Clinical Note"
	CategoryPathologyReport Category = "Pathology Report"
	CategoryGenomicReport   Category = "Genomic Report"
	CategoryRadiologyReport Category = "Radiology Report"
	CategoryOther           Category = "Other"
)

// Categories lists every known category in canonical order. Every
// Composition and the Mixture must contain exactly one entry per element.
var Categories = []Category{
	CategoryClinicalNote,
	CategoryPathologyReport,
	CategoryGenomicReport,
	CategoryRadiologyReport,
	CategoryOther,
}

// Known reports whether c is one of the fixed categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// PresenceLevel is the qualitative strength of a category within a scope.
type PresenceLevel string

const (
	PresencePrimary     PresenceLevel = "PRIMARY"
	PresenceEmbeddedRaw PresenceLevel = "EMBEDDED_RAW"
	PresenceMentionOnly PresenceLevel = "MENTION_ONLY"
	PresenceNone        PresenceLevel = "NO_EVIDENCE"
)

// Evidence ties a classification claim to a location in the source text.
type Evidence struct {
	// Page is the 1-based source page the snippet was taken from.
	Page int `json:"page" yaml:"page"`

	// Snippet is the quoted source text.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Anchors are structural phrases (headers, labels) found alongside the snippet.
	Anchors []string `json:"anchors_found" yaml:"anchors_found"`
}

// CategoryEntry scores one category inside a segment Composition.
type CategoryEntry struct {
	Category   Category      `json:"document_type" yaml:"document_type"`
	Presence   PresenceLevel `json:"presence_level" yaml:"presence_level"`
	Confidence float64       `json:"confidence" yaml:"confidence"`
	Share      float64       `json:"segment_share" yaml:"segment_share"`
	Evidence   []Evidence    `json:"top_evidence" yaml:"top_evidence"`
	Reasoning  string        `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// MixtureEntry scores one category across the whole document.
type MixtureEntry struct {
	Category         Category      `json:"document_type" yaml:"document_type"`
	Presence         PresenceLevel `json:"presence_level" yaml:"presence_level"`
	Confidence       float64       `json:"confidence" yaml:"confidence"`
	OverallShare     float64       `json:"overall_share" yaml:"overall_share"`
	ShareExplanation string        `json:"overall_share_explanation,omitempty" yaml:"overall_share_explanation,omitempty"`
	Evidence         []Evidence    `json:"top_evidence" yaml:"top_evidence"`
	Reasoning        string        `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// Segment is a contiguous page range with its own category composition.
// The page range is the segment's identity and is never rewritten by
// auto-fix; composition values may be.
type Segment struct {
	// Index is the 1-based position of the segment as declared by the proposer.
	Index int `json:"segment_index" yaml:"segment_index"`

	StartPage int `json:"start_page" yaml:"start_page"`
	EndPage   int `json:"end_page" yaml:"end_page"`

	// PageCount is the proposer's declared page count; it must equal
	// EndPage-StartPage+1.
	PageCount int `json:"segment_page_count" yaml:"segment_page_count"`

	Dominant    Category        `json:"dominant_type" yaml:"dominant_type"`
	Embedded    []Category      `json:"embedded_types,omitempty" yaml:"embedded_types,omitempty"`
	Composition []CategoryEntry `json:"segment_composition" yaml:"segment_composition"`
	Notes       string          `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// SelfEvaluation is the proposer's own account of its output.
type SelfEvaluation struct {
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Summary     string  `json:"evaluation_summary" yaml:"evaluation_summary"`
	ChangesMade string  `json:"changes_made,omitempty" yaml:"changes_made,omitempty"`
}

// Classification is a proposed labelling of a multi-page document: an
// overall dominant category, per-segment compositions, and a document-wide
// mixture.
type Classification struct {
	Dominant         Category       `json:"dominant_type_overall" yaml:"dominant_type_overall"`
	DeclaredSegments int            `json:"number_of_segments" yaml:"number_of_segments"`
	Segments         []Segment      `json:"segments" yaml:"segments"`
	Mixture          []MixtureEntry `json:"document_mixture" yaml:"document_mixture"`
	VendorSignals    []string       `json:"vendor_signals" yaml:"vendor_signals"`
	SelfEvaluation   SelfEvaluation `json:"self_evaluation" yaml:"self_evaluation"`
}

// Clone returns a deep copy so callers can mutate the result without
// touching c.
func (c *Classification) Clone() *Classification {
	out := *c
	out.VendorSignals = slices.Clone(c.VendorSignals)

	if c.Segments == nil {
		out.Segments = nil
	} else {
		out.Segments = make([]Segment, len(c.Segments))
	}
	for i, seg := range c.Segments {
		s := seg
		s.Embedded = slices.Clone(seg.Embedded)
		if seg.Composition != nil {
			s.Composition = make([]CategoryEntry, len(seg.Composition))
			for j, e := range seg.Composition {
				e.Evidence = cloneEvidence(e.Evidence)
				s.Composition[j] = e
			}
		}
		out.Segments[i] = s
	}

	if c.Mixture == nil {
		out.Mixture = nil
	} else {
		out.Mixture = make([]MixtureEntry, len(c.Mixture))
	}
	for i, m := range c.Mixture {
		m.Evidence = cloneEvidence(m.Evidence)
		out.Mixture[i] = m
	}
	return &out
}

func cloneEvidence(in []Evidence) []Evidence {
	if in == nil {
		return nil
	}
	out := make([]Evidence, len(in))
	for i, ev := range in {
		ev.Anchors = slices.Clone(ev.Anchors)
		out[i] = ev
	}
	return out
}

// SegmentShareSum returns the sum of a segment's category shares.
func (s *Segment) SegmentShareSum() float64 {
	var total float64
	for _, e := range s.Composition {
		total += e.Share
	}
	return total
}

// MixtureShareSum returns the sum of the mixture's overall shares.
func (c *Classification) MixtureShareSum() float64 {
	var total float64
	for _, m := range c.Mixture {
		total += m.OverallShare
	}
	return total
}

// SegmentByIndex returns a pointer to the segment whose declared Index is
// idx, or nil.
func (c *Classification) SegmentByIndex(idx int) *Segment {
	for i := range c.Segments {
		if c.Segments[i].Index == idx {
			return &c.Segments[i]
		}
	}
	return nil
}
