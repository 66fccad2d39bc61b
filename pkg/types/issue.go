// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Severity ranks an Issue. BLOCKER > MAJOR > MINOR.
type Severity string

const (
	SeverityBlocker Severity = "BLOCKER"
	SeverityMajor   Severity = "MAJOR"
	SeverityMinor   Severity = "MINOR"
)

// Rank orders severities for sorting; lower sorts first.
func (s Severity) Rank() int {
	switch s {
	case SeverityBlocker:
		return 0
	case SeverityMajor:
		return 1
	case SeverityMinor:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is one of the three known severities.
func (s Severity) Valid() bool {
	return s.Rank() < 3
}

// Validator names the component that raised an Issue.
type Validator string

const (
	ValidatorStructural  Validator = "structural"
	ValidatorConsistency Validator = "consistency"
	ValidatorTraps       Validator = "traps"
	ValidatorEvidence    Validator = "evidence"
)

// DefectKind is the machine-readable kind of a fixable defect. The validator
// that detects a defect sets it; the auto-fix engine matches on it.
type DefectKind string

const (
	DefectNone             DefectKind = ""
	DefectSegmentCount     DefectKind = "segment_count"
	DefectSegmentPageCount DefectKind = "segment_page_count"
	DefectCategorySet      DefectKind = "category_set"
	DefectSegmentShareSum  DefectKind = "segment_share_sum"
	DefectMixtureShareSum  DefectKind = "mixture_share_sum"
)

// Known reports whether k is a defined defect kind other than DefectNone.
func (k DefectKind) Known() bool {
	switch k {
	case DefectSegmentCount, DefectSegmentPageCount, DefectCategorySet,
		DefectSegmentShareSum, DefectMixtureShareSum:
		return true
	}
	return false
}

// Location points at the part of a Classification an Issue concerns.
// Segment is the 1-based segment index; zero means document level.
type Location struct {
	Segment  int      `json:"segment_index,omitempty" yaml:"segment_index,omitempty"`
	Category Category `json:"document_type,omitempty" yaml:"document_type,omitempty"`
	Field    string   `json:"field,omitempty" yaml:"field,omitempty"`
}

// IsZero reports whether l points at nothing in particular.
func (l Location) IsZero() bool {
	return l == Location{}
}

// String renders l for reviewers, e.g. "Segment 2 / Genomic Report / confidence".
// A zero Location renders as the empty string.
func (l Location) String() string {
	var parts []string
	if l.Segment > 0 {
		parts = append(parts, fmt.Sprintf("Segment %d", l.Segment))
	}
	if l.Category != "" {
		parts = append(parts, string(l.Category))
	}
	if l.Field != "" {
		parts = append(parts, l.Field)
	}
	return strings.Join(parts, " / ")
}

// Issue is an immutable finding raised by a validator.
type Issue struct {
	ID           string     `json:"issue_id" yaml:"issue_id"`
	Validator    Validator  `json:"agent" yaml:"agent"`
	Severity     Severity   `json:"severity" yaml:"severity"`
	Message      string     `json:"message" yaml:"message"`
	Location     Location   `json:"location" yaml:"location"`
	SuggestedFix string     `json:"suggested_fix,omitempty" yaml:"suggested_fix,omitempty"`
	Fixable      bool       `json:"auto_fixable" yaml:"auto_fixable"`
	Kind         DefectKind `json:"defect_kind,omitempty" yaml:"defect_kind,omitempty"`
}

// IssueCounts are the aggregates the arbiter decides on.
type IssueCounts struct {
	Blockers        int `json:"blockers" yaml:"blockers"`
	Majors          int `json:"majors" yaml:"majors"`
	MajorFixable    int `json:"major_fixable" yaml:"major_fixable"`
	MajorNonFixable int `json:"major_non_fixable" yaml:"major_non_fixable"`
	Minors          int `json:"minors" yaml:"minors"`
}

// Total returns the number of issues counted.
func (c IssueCounts) Total() int {
	return c.Blockers + c.Majors + c.Minors
}

// CountIssues tallies issues by severity and fixability.
func CountIssues(issues []Issue) IssueCounts {
	var c IssueCounts
	for _, is := range issues {
		switch is.Severity {
		case SeverityBlocker:
			c.Blockers++
		case SeverityMajor:
			c.Majors++
			if is.Fixable {
				c.MajorFixable++
			} else {
				c.MajorNonFixable++
			}
		default:
			c.Minors++
		}
	}
	return c
}

// VerificationReport aggregates one verification pass over a Classification.
type VerificationReport struct {
	Issues []Issue `json:"issues" yaml:"issues"`

	StructuralPassed bool    `json:"structural_passed" yaml:"structural_passed"`
	ConsistencyScore float64 `json:"consistency_score" yaml:"consistency_score"`
	TrapsTriggered   int     `json:"traps_triggered" yaml:"traps_triggered"`
	EvidenceScore    float64 `json:"evidence_quality_score" yaml:"evidence_quality_score"`

	HasBlocker bool `json:"has_blocker_issues" yaml:"has_blocker_issues"`
	ModelCalls int  `json:"model_calls_made" yaml:"model_calls_made"`
}

// Counts tallies the report's issues.
func (r *VerificationReport) Counts() IssueCounts {
	return CountIssues(r.Issues)
}

// Fixable returns the subset of issues flagged fixable, in detection order.
func (r *VerificationReport) Fixable() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Fixable {
			out = append(out, is)
		}
	}
	return out
}
