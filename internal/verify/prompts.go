// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/groundtruth/pkg/types"
)

// outputFormat is shared by every model-assisted check.
const outputFormat = `Return a JSON array of issue objects. Each issue must have:
{"severity": "BLOCKER" | "MAJOR" | "MINOR",
 "location": {"segment_index": 1, "document_type": "Genomic Report", "field": "segment_share"},
 "message": "...",
 "suggested_fix": "...",
 "auto_fixable": false,
 "defect_kind": ""}

Set auto_fixable to true only for purely mechanical defects, and then set
defect_kind to one of: segment_count, segment_page_count, category_set,
segment_share_sum, mixture_share_sum. Leave defect_kind empty otherwise.
If there are no issues, return [].`

var consistencyPromptTmpl = template.Must(template.New("consistency").Parse(`You are auditing the internal consistency of a clinical document classification.

Check whether each segment's text semantically supports its dominant type, its
presence levels, and its share values, and whether the document mixture agrees
with the segments. Do not re-check arithmetic on share sums or page ranges;
those are verified separately.

===== OUTPUT FORMAT =====

{{.OutputFormat}}

===== CLASSIFICATION OUTPUT =====

{{.Classification}}

===== SEGMENT TEXTS (full text of every page in every segment) =====

{{.SegmentTexts}}

===== YOUR OUTPUT (JSON array only) =====
`))

var trapPromptTmpl = template.Must(template.New("traps").Parse(`You are checking a clinical document classification for domain traps: cases
where a label looks plausible but violates a known clinical or administrative
rule. Examples: gene names mentioned only in patient history counted as a
genomic report; a test order or requisition counted as a result report;
routine chemistry panels counted as genomic testing; headers and footers
used as evidence.

===== OUTPUT FORMAT =====

{{.OutputFormat}}

===== CLASSIFICATION OUTPUT =====

{{.Classification}}

===== DOCUMENT TEXT (first {{.Limit}} characters) =====

{{.Text}}

===== YOUR OUTPUT (JSON array only) =====
`))

var evidencePromptTmpl = template.Must(template.New("evidence").Parse(`You are independently verifying the evidence behind a clinical document
classification against the actual source text.

Tasks:
1. Assess the specificity and relevance of every evidence snippet for every
   document type across all segments.
2. Verify that each snippet's text literally occurs on its claimed page.
3. Verify that each anchor phrase occurs on its claimed page.
4. Flag any evidence that cannot be located in the source text as fabricated.

Severity levels:
- BLOCKER: fabricated or missing evidence for a PRIMARY presence level, or a
  snippet not found in the source text
- MAJOR: weak evidence, confidence misalignment, or an anchor not found
- MINOR: snippet too long or too short, other style issues

===== OUTPUT FORMAT =====

{{.OutputFormat}}

===== CLASSIFICATION OUTPUT =====

{{.Classification}}

===== SOURCE TEXT BY PAGE =====

{{.Pages}}

===== YOUR OUTPUT (JSON array only) =====
`))

// pageContext is the evidence assessor's view of one source page.
type pageContext struct {
	Text           string `json:"text"`
	ParagraphCount int    `json:"paragraph_count"`
}

func renderConsistencyPrompt(c *types.Classification, b *types.SourceBundle) (string, error) {
	texts := make(map[int]string, len(c.Segments))
	for _, seg := range c.Segments {
		var sb strings.Builder
		for _, page := range b.PageRange(seg.StartPage, seg.EndPage) {
			fmt.Fprintf(&sb, "--- PAGE %d ---\n%s\n\n", page.Number, page.Text)
		}
		texts[seg.Index] = sb.String()
	}
	return render(consistencyPromptTmpl, c, map[string]any{"SegmentTexts": texts})
}

func renderTrapPrompt(c *types.Classification, text string, limit int) (string, error) {
	return render(trapPromptTmpl, c, map[string]any{
		"Text":  prefix(text, limit),
		"Limit": limit,
	})
}

func renderEvidencePrompt(c *types.Classification, b *types.SourceBundle) (string, error) {
	return render(evidencePromptTmpl, c, map[string]any{"Pages": evidenceContext(c, b)})
}

// evidenceContext collects the text and paragraph count of every page
// referenced by any segment, keyed by page number.
func evidenceContext(c *types.Classification, b *types.SourceBundle) map[int]pageContext {
	pages := make(map[int]pageContext)
	for _, seg := range c.Segments {
		for _, page := range b.PageRange(seg.StartPage, seg.EndPage) {
			pages[page.Number] = pageContext{Text: page.Text, ParagraphCount: len(page.Paragraphs)}
		}
	}
	return pages
}

// render executes tmpl with the classification and extra values. Map and
// struct values are embedded as indented JSON; strings and numbers as is.
func render(tmpl *template.Template, c *types.Classification, extra map[string]any) (string, error) {
	data := map[string]any{"OutputFormat": outputFormat}

	cj, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling classification: %w", err)
	}
	data["Classification"] = string(cj)

	for k, v := range extra {
		switch v.(type) {
		case string, int:
			data[k] = v
		default:
			j, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return "", fmt.Errorf("marshaling %s: %w", k, err)
			}
			data[k] = string(j)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
