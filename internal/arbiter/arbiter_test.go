// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/groundtruth/pkg/types"
)

func issue(sev types.Severity, fixable bool) types.Issue {
	return types.Issue{Severity: sev, Message: "m", Fixable: fixable}
}

func TestDecide_Rules(t *testing.T) {
	tests := []struct {
		name     string
		issues   []types.Issue
		want     types.Disposition
		wantRule int
	}{
		{
			name:     "blocker escalates",
			issues:   []types.Issue{issue(types.SeverityBlocker, true)},
			want:     types.EscalateToSME,
			wantRule: 1,
		},
		{
			name: "three majors escalate even when fixable",
			issues: []types.Issue{
				issue(types.SeverityMajor, true),
				issue(types.SeverityMajor, true),
				issue(types.SeverityMajor, true),
			},
			want:     types.EscalateToSME,
			wantRule: 2,
		},
		{
			name: "two non-fixable majors",
			issues: []types.Issue{
				issue(types.SeverityMajor, false),
				issue(types.SeverityMajor, false),
			},
			want:     types.EscalateToSME,
			wantRule: 3,
		},
		{
			name: "one non-fixable major with one fixable",
			issues: []types.Issue{
				issue(types.SeverityMajor, true),
				issue(types.SeverityMajor, false),
			},
			want:     types.EscalateToSME,
			wantRule: 4,
		},
		{
			name:     "one fixable major retries",
			issues:   []types.Issue{issue(types.SeverityMajor, true), issue(types.SeverityMinor, false)},
			want:     types.AutoRetry,
			wantRule: 5,
		},
		{
			name:     "two fixable majors retry",
			issues:   []types.Issue{issue(types.SeverityMajor, true), issue(types.SeverityMajor, true)},
			want:     types.AutoRetry,
			wantRule: 5,
		},
		{
			name:     "only minors accepted",
			issues:   []types.Issue{issue(types.SeverityMinor, false), issue(types.SeverityMinor, true)},
			want:     types.AutoAccept,
			wantRule: 6,
		},
		{
			name:     "no issues accepted",
			want:     types.AutoAccept,
			wantRule: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &types.VerificationReport{Issues: tt.issues}
			got := Decide(report)
			assert.Equal(t, tt.want, got.Disposition)
			assert.Equal(t, tt.wantRule, got.Rule)
			assert.NotEmpty(t, got.Reason)
			assert.Equal(t, report.Counts(), got.Counts)
		})
	}
}

// Scenario: a lone fixable BLOCKER still escalates under rule 1.
func TestDecide_FixableBlockerEscalates(t *testing.T) {
	got := Decide(&types.VerificationReport{Issues: []types.Issue{issue(types.SeverityBlocker, true)}})
	assert.Equal(t, types.EscalateToSME, got.Disposition)
	assert.Equal(t, 1, got.Rule)
}

func TestDecide_Deterministic(t *testing.T) {
	report := &types.VerificationReport{Issues: []types.Issue{
		issue(types.SeverityMajor, true),
		issue(types.SeverityMinor, false),
	}}
	assert.Equal(t, Decide(report), Decide(report))
}

// Every count tuple a report can produce matches one of rules 1-6; the
// fallback must never be reached.
func TestDecideCounts_FallbackUnreachable(t *testing.T) {
	for blockers := 0; blockers <= 3; blockers++ {
		for fixable := 0; fixable <= 5; fixable++ {
			for nonFixable := 0; nonFixable <= 5; nonFixable++ {
				for minors := 0; minors <= 3; minors++ {
					c := types.IssueCounts{
						Blockers:        blockers,
						Majors:          fixable + nonFixable,
						MajorFixable:    fixable,
						MajorNonFixable: nonFixable,
						Minors:          minors,
					}
					got := DecideCounts(c)
					if got.Rule == FallbackRule || got.Rule < 1 || got.Rule > 6 {
						t.Fatalf("counts %+v reached rule %d", c, got.Rule)
					}
					if got.Disposition == types.AutoAccept {
						assert.Zero(t, c.Blockers+c.Majors, "accepted with %+v", c)
					}
					if got.Disposition == types.AutoRetry {
						assert.Zero(t, c.Blockers+c.MajorNonFixable, "retry with %+v", c)
					}
				}
			}
		}
	}
}
