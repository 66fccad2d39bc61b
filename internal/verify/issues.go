// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"fmt"

	"github.com/pdiddy/groundtruth/pkg/types"
)

// Issue id prefixes, one per validator.
const (
	prefixStructural  = "STR"
	prefixConsistency = "CON"
	prefixTraps       = "TRP"
	prefixEvidence    = "EVQ"
)

// recorder stamps issues with a validator and a sequential id such as
// CON-0003. Ids are stable for a given input within one attempt.
type recorder struct {
	prefix    string
	validator types.Validator
	issues    []types.Issue
}

func newRecorder(prefix string, v types.Validator) *recorder {
	return &recorder{prefix: prefix, validator: v}
}

func (r *recorder) add(is types.Issue) {
	is.ID = fmt.Sprintf("%s-%04d", r.prefix, len(r.issues)+1)
	is.Validator = r.validator
	r.issues = append(r.issues, is)
}

func (r *recorder) hasBlocker() bool {
	for _, is := range r.issues {
		if is.Severity == types.SeverityBlocker {
			return true
		}
	}
	return false
}

// penalties maps severities to score deductions.
type penalties struct {
	blocker, major, minor float64
}

var (
	consistencyPenalties = penalties{blocker: 0.4, major: 0.2, minor: 0.05}
	evidencePenalties    = penalties{blocker: 0.3, major: 0.15, minor: 0.05}
)

// score returns 1.0 minus the summed penalties of issues, floored at 0.
func (p penalties) score(issues []types.Issue) float64 {
	total := 0.0
	for _, is := range issues {
		switch is.Severity {
		case types.SeverityBlocker:
			total += p.blocker
		case types.SeverityMajor:
			total += p.major
		default:
			total += p.minor
		}
	}
	if total >= 1.0 {
		return 0.0
	}
	return 1.0 - total
}
