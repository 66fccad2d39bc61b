// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Disposition is the arbiter's verdict on a verification report.
type Disposition string

const (
	AutoAccept    Disposition = "AUTO_ACCEPT"
	AutoRetry     Disposition = "AUTO_RETRY"
	EscalateToSME Disposition = "ESCALATE_TO_SME"
)

// Terminal reports whether d ends a verification run.
func (d Disposition) Terminal() bool {
	return d == AutoAccept || d == EscalateToSME
}

// Decision is created fresh for every orchestrator iteration and never
// mutated afterwards.
type Decision struct {
	Disposition Disposition `json:"decision" yaml:"decision"`
	Reason      string      `json:"reason" yaml:"reason"`

	// Rule is the 1-based arbiter rule that matched. Zero marks an
	// orchestrator override (cycle or retry ceiling).
	Rule   int         `json:"rule" yaml:"rule"`
	Counts IssueCounts `json:"counts" yaml:"counts"`
}

// RetryEntry records one auto-fix round.
type RetryEntry struct {
	Attempt         int         `json:"attempt" yaml:"attempt"`
	IssuesBeforeFix int         `json:"issues_before_fix" yaml:"issues_before_fix"`
	FixableIssues   int         `json:"fixable_issues" yaml:"fixable_issues"`
	FixesApplied    []string    `json:"fixes_applied" yaml:"fixes_applied"`
	FixesSkipped    []string    `json:"fixes_skipped,omitempty" yaml:"fixes_skipped,omitempty"`
	DecisionBefore  Disposition `json:"decision_before_retry" yaml:"decision_before_retry"`
}
