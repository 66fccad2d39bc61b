// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// ReviewStatus tracks an escalation packet through human review. A packet
// moves from pending to completed exactly once.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewCompleted ReviewStatus = "completed"
)

// Provenance records how a ground-truth classification was established.
type Provenance string

const (
	ProvenanceAutoAccepted   Provenance = "auto-accepted"
	ProvenanceHumanValidated Provenance = "human-validated"
	ProvenanceHumanCorrected Provenance = "human-corrected"
)

// ReferenceClassification is the output of an independent classifier used
// for comparison in escalation packets.
type ReferenceClassification struct {
	DominantCategory Category   `json:"dominant_type" yaml:"dominant_type"`
	Categories       []Category `json:"all_types,omitempty" yaml:"all_types,omitempty"`
	Vendor           string     `json:"vendor,omitempty" yaml:"vendor,omitempty"`
}

// IssueSummary is the reviewer-facing rendering of an Issue.
type IssueSummary struct {
	ID           string    `json:"id" yaml:"id"`
	Validator    Validator `json:"agent" yaml:"agent"`
	Severity     Severity  `json:"severity" yaml:"severity"`
	Message      string    `json:"message" yaml:"message"`
	Location     string    `json:"location" yaml:"location"`
	SuggestedFix string    `json:"suggested_fix" yaml:"suggested_fix"`
}

// Corrections carries reviewer-supplied replacement fields. Non-nil fields
// fully replace the corresponding Classification fields.
type Corrections struct {
	Dominant *Category      `json:"corrected_dominant_type,omitempty" yaml:"corrected_dominant_type,omitempty"`
	Segments []Segment      `json:"corrected_segments,omitempty" yaml:"corrected_segments,omitempty"`
	Mixture  []MixtureEntry `json:"corrected_document_mixture,omitempty" yaml:"corrected_document_mixture,omitempty"`
	Notes    string         `json:"correction_notes,omitempty" yaml:"correction_notes,omitempty"`
}

// Empty reports whether no replacement field is set.
func (c *Corrections) Empty() bool {
	return c == nil || (c.Dominant == nil && c.Segments == nil && c.Mixture == nil)
}

// ReviewSubmission is a reviewer's decision on an escalated document.
type ReviewSubmission struct {
	DocumentID  string       `json:"doc_id" yaml:"doc_id" validate:"required"`
	Reviewer    string       `json:"reviewer_name" yaml:"reviewer_name" validate:"required"`
	Agrees      bool         `json:"agrees_with_primary_agent" yaml:"agrees_with_primary_agent"`
	Corrections *Corrections `json:"corrections,omitempty" yaml:"corrections,omitempty"`
	Notes       string       `json:"review_notes" yaml:"review_notes"`
	Confidence  float64      `json:"confidence_in_review" yaml:"confidence_in_review" validate:"gte=0,lte=1"`
}

// Validate checks the submission's required fields and confidence range.
func (s ReviewSubmission) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid review submission: %w", err)
	}
	return nil
}

// Review is a completed submission as recorded on a packet and record.
type Review struct {
	ID         string    `json:"review_id" yaml:"review_id"`
	ReviewedAt time.Time `json:"review_date" yaml:"review_date"`
	ReviewSubmission `yaml:",inline"`
}

// EscalationPacket collects everything a human reviewer needs to judge an
// escalated classification.
type EscalationPacket struct {
	DocumentID string `json:"doc_id" yaml:"doc_id"`
	Filename   string `json:"pdf_filename" yaml:"pdf_filename"`
	TotalPages int    `json:"total_pages" yaml:"total_pages"`

	// Proposed is the classification as submitted, before any auto-fix.
	// Classification is the state that was last verified and escalated.
	Proposed       Classification `json:"primary_agent_classification" yaml:"primary_agent_classification"`
	Classification Classification `json:"classification_at_escalation" yaml:"classification_at_escalation"`
	Decision       Decision       `json:"decision" yaml:"decision"`
	TotalIssues    int            `json:"total_issues" yaml:"total_issues"`
	Issues         []IssueSummary `json:"issues_summary" yaml:"issues_summary"`

	Reference        *ReferenceClassification `json:"production_classification,omitempty" yaml:"production_classification,omitempty"`
	ReferenceDiffers *bool                    `json:"production_differs,omitempty" yaml:"production_differs,omitempty"`

	Status ReviewStatus `json:"review_status" yaml:"review_status"`
	Review *Review      `json:"sme_review,omitempty" yaml:"sme_review,omitempty"`

	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// GroundTruthRecord is the permanent output for a finalized document.
type GroundTruthRecord struct {
	DocumentID string `json:"doc_id" yaml:"doc_id"`
	Filename   string `json:"pdf_filename" yaml:"pdf_filename"`

	Proposed       Classification `json:"primary_agent_classification" yaml:"primary_agent_classification"`
	Classification Classification `json:"ground_truth_classification" yaml:"ground_truth_classification"`
	Provenance     Provenance     `json:"ground_truth_source" yaml:"ground_truth_source"`

	Decision    Decision       `json:"decision" yaml:"decision"`
	TotalIssues int            `json:"total_issues" yaml:"total_issues"`
	Issues      []IssueSummary `json:"issues_summary,omitempty" yaml:"issues_summary,omitempty"`

	Reference *ReferenceClassification `json:"production_classification,omitempty" yaml:"production_classification,omitempty"`
	Review    *Review                  `json:"sme_review,omitempty" yaml:"sme_review,omitempty"`

	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}
