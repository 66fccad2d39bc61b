// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arbiter turns a verification report into a disposition. Decide is
// a pure function of the report's issue counts.
package arbiter

import (
	"fmt"

	"github.com/pdiddy/groundtruth/pkg/types"
)

// FallbackRule is the number of the safety-net rule. Reaching it means the
// earlier rules have a gap.
const FallbackRule = 7

type rule struct {
	match       func(c types.IssueCounts) bool
	disposition types.Disposition
	reason      func(c types.IssueCounts) string
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{
		match:       func(c types.IssueCounts) bool { return c.Blockers > 0 },
		disposition: types.EscalateToSME,
		reason: func(c types.IssueCounts) string {
			return fmt.Sprintf("Critical failure: %d BLOCKER issue(s) found", c.Blockers)
		},
	},
	{
		match:       func(c types.IssueCounts) bool { return c.Majors >= 3 },
		disposition: types.EscalateToSME,
		reason: func(c types.IssueCounts) string {
			return fmt.Sprintf("Too many errors to auto-correct: %d MAJOR issues", c.Majors)
		},
	},
	{
		match:       func(c types.IssueCounts) bool { return c.MajorNonFixable >= 2 },
		disposition: types.EscalateToSME,
		reason: func(c types.IssueCounts) string {
			return fmt.Sprintf("Requires human judgment: %d non-fixable MAJOR issues", c.MajorNonFixable)
		},
	},
	{
		match:       func(c types.IssueCounts) bool { return c.MajorNonFixable >= 1 },
		disposition: types.EscalateToSME,
		reason: func(c types.IssueCounts) string {
			return "Non-fixable MAJOR issue requires human review"
		},
	},
	{
		match:       func(c types.IssueCounts) bool { return c.MajorFixable >= 1 && c.MajorFixable <= 2 },
		disposition: types.AutoRetry,
		reason: func(c types.IssueCounts) string {
			return fmt.Sprintf("%d fixable MAJOR issue(s), attempting auto-fix", c.MajorFixable)
		},
	},
	{
		match:       func(c types.IssueCounts) bool { return c.Blockers == 0 && c.Majors == 0 },
		disposition: types.AutoAccept,
		reason: func(c types.IssueCounts) string {
			if c.Minors == 0 {
				return "No issues found"
			}
			return fmt.Sprintf("Only %d MINOR issue(s), acceptable", c.Minors)
		},
	},
}

// Decide returns the disposition for report. It has no side effects and
// returns the same Decision for the same counts.
func Decide(report *types.VerificationReport) types.Decision {
	return DecideCounts(report.Counts())
}

// DecideCounts applies the rules to pre-computed counts.
func DecideCounts(c types.IssueCounts) types.Decision {
	for i, r := range rules {
		if r.match(c) {
			return types.Decision{
				Disposition: r.disposition,
				Reason:      r.reason(c),
				Rule:        i + 1,
				Counts:      c,
			}
		}
	}
	return types.Decision{
		Disposition: types.EscalateToSME,
		Reason:      "Ambiguous case, escalating for safety",
		Rule:        FallbackRule,
		Counts:      c,
	}
}
