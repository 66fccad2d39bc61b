// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pdiddy/groundtruth/internal/oracle"
	"github.com/pdiddy/groundtruth/pkg/types"
)

// DefaultTrapTextLimit is the number of leading characters of the document
// shown to the model when no limit is configured.
const DefaultTrapTextLimit = 4000

var (
	routineLabVendors = []string{"quest", "labcorp", "lab corp"}

	adminKeywords = []string{
		"requisition",
		"authorization number",
		"fax cover",
		"test request",
		"specimen receipt",
	}

	// reportCategories may not be present at all in an administrative document.
	reportCategories = []types.Category{types.CategoryGenomicReport, types.CategoryPathologyReport}

	headerFooterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)page \d+ of \d+`),
		regexp.MustCompile(`(?i)fax.*?\d{3}[-.]?\d{3}[-.]?\d{4}`),
		regexp.MustCompile(`(?i)medical record number|\bmrn\b`),
		regexp.MustCompile(`(?i)date of birth.*?\d{2}/\d{2}/\d{4}`),
	}
)

// TrapDetector flags classifications that look plausible but break a known
// clinical or administrative rule.
type TrapDetector struct {
	oracle    oracle.Oracle
	textLimit int
	logger    *slog.Logger
}

// NewTrapDetector creates a detector backed by o that shows the model the
// first textLimit characters of the document.
func NewTrapDetector(o oracle.Oracle, textLimit int, logger *slog.Logger) *TrapDetector {
	if textLimit <= 0 {
		textLimit = DefaultTrapTextLimit
	}
	return &TrapDetector{
		oracle:    o,
		textLimit: textLimit,
		logger:    orDiscard(logger).With("validator", types.ValidatorTraps),
	}
}

// Check runs the pattern rules and then the model scan; both always run.
// Triggered counts trap findings and excludes a model-failure issue.
func (td *TrapDetector) Check(ctx context.Context, c *types.Classification, b *types.SourceBundle) Result {
	r := newRecorder(prefixTraps, types.ValidatorTraps)
	fullText := b.FullText()

	checkRoutineLabVendor(r, c)
	checkAdminDocument(r, c, fullText)
	checkHeaderFooterEvidence(r, c)
	triggered := len(r.issues)

	calls := 0
	prompt, err := renderTrapPrompt(c, fullText, td.textLimit)
	if err == nil {
		calls++
		var issues []types.Issue
		issues, err = ask(ctx, td.oracle, td.logger, oracle.TaskTraps, prompt)
		for _, is := range issues {
			r.add(is)
		}
		triggered += len(issues)
	}
	if err != nil {
		td.logger.WarnContext(ctx, "model check failed", "error", err)
		r.add(modelFailure(types.ValidatorTraps, err))
	}

	return Result{Issues: r.issues, Triggered: triggered, ModelCalls: calls}
}

func hasRoutineLabVendor(signals []string) bool {
	for _, sig := range signals {
		s := strings.ToLower(sig)
		for _, v := range routineLabVendors {
			if strings.Contains(s, v) {
				return true
			}
		}
	}
	return false
}

func checkRoutineLabVendor(r *recorder, c *types.Classification) {
	if !hasRoutineLabVendor(c.VendorSignals) {
		return
	}
	for _, m := range c.Mixture {
		if m.Category != types.CategoryGenomicReport || m.Presence != types.PresencePrimary {
			continue
		}
		r.add(types.Issue{
			Severity: types.SeverityBlocker,
			Message: fmt.Sprintf("Routine lab vendor detected (%s) but %s marked %s; likely routine labs, not genomic",
				strings.Join(c.VendorSignals, ", "), m.Category, m.Presence),
			Location:     types.Location{Category: m.Category, Field: "presence_level"},
			SuggestedFix: "Reclassify as 'Other' or downgrade to MENTION_ONLY",
		})
	}
}

func hasAdminKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range adminKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isReportCategory(cat types.Category) bool {
	for _, rc := range reportCategories {
		if cat == rc {
			return true
		}
	}
	return false
}

func checkAdminDocument(r *recorder, c *types.Classification, fullText string) {
	if !hasAdminKeyword(fullText) {
		return
	}
	for _, m := range c.Mixture {
		if !isReportCategory(m.Category) || m.Presence == types.PresenceNone {
			continue
		}
		r.add(types.Issue{
			Severity:     types.SeverityBlocker,
			Message:      fmt.Sprintf("Administrative keywords found (requisition/authorization/fax) but %s marked as %s", m.Category, m.Presence),
			Location:     types.Location{Category: m.Category, Field: "presence_level"},
			SuggestedFix: "Reclassify as 'Other' (administrative document)",
		})
	}
}

func looksLikeHeaderFooter(snippet string) bool {
	for _, re := range headerFooterPatterns {
		if re.MatchString(snippet) {
			return true
		}
	}
	return false
}

// checkHeaderFooterEvidence flags each composition evidence snippet that
// matches a header or footer pattern, at most once per snippet.
func checkHeaderFooterEvidence(r *recorder, c *types.Classification) {
	for _, seg := range c.Segments {
		for _, e := range seg.Composition {
			for _, ev := range e.Evidence {
				if !looksLikeHeaderFooter(ev.Snippet) {
					continue
				}
				r.add(types.Issue{
					Severity:     types.SeverityMinor,
					Message:      fmt.Sprintf("Evidence snippet in Segment %d appears to contain header/footer content: %q", seg.Index, truncate(ev.Snippet, 50)),
					Location:     types.Location{Segment: seg.Index, Category: e.Category, Field: "top_evidence"},
					SuggestedFix: "Exclude header/footer content from evidence",
				})
			}
		}
	}
}
