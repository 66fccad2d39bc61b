// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// LayoutMetadata summarises the layout extractor's view of a page.
type LayoutMetadata struct {
	BlockTypes []string `json:"block_types" yaml:"block_types"`
	HasTables  bool     `json:"has_tables" yaml:"has_tables"`
}

// Page is one page of extracted source text.
type Page struct {
	// Number is the 1-based page number.
	Number     int            `json:"page_num" yaml:"page_num"`
	Text       string         `json:"text" yaml:"text"`
	Paragraphs []string       `json:"paragraphs" yaml:"paragraphs"`
	Layout     LayoutMetadata `json:"layout_metadata" yaml:"layout_metadata"`
}

// SourceBundle is the read-only ground-truth text of a document as produced
// by the extraction step.
type SourceBundle struct {
	DocumentID string `json:"doc_id" yaml:"doc_id"`
	Filename   string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	TotalPages int    `json:"total_pages" yaml:"total_pages"`
	Pages      []Page `json:"pages" yaml:"pages"`
}

// Page returns the page with 1-based number n, or false when n is out of
// range.
func (b *SourceBundle) Page(n int) (Page, bool) {
	if n < 1 || n > len(b.Pages) {
		return Page{}, false
	}
	return b.Pages[n-1], true
}

// PageRange returns the pages numbered start..end inclusive, clamped to
// the pages the bundle actually has.
func (b *SourceBundle) PageRange(start, end int) []Page {
	start = max(start, 1)
	end = min(end, len(b.Pages))
	if start > end {
		return nil
	}
	return b.Pages[start-1 : end]
}

// FullText joins every page's text with newlines.
func (b *SourceBundle) FullText() string {
	parts := make([]string, len(b.Pages))
	for i, p := range b.Pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}

// Validate checks that the bundle is internally consistent: a document id,
// a page count matching the page list, and pages numbered 1..N in order.
func (b *SourceBundle) Validate() error {
	if b.DocumentID == "" {
		return fmt.Errorf("bundle has no document id")
	}
	if b.TotalPages != len(b.Pages) {
		return fmt.Errorf("bundle %s declares %d pages but contains %d", b.DocumentID, b.TotalPages, len(b.Pages))
	}
	for i, p := range b.Pages {
		if p.Number != i+1 {
			return fmt.Errorf("bundle %s: page at position %d is numbered %d", b.DocumentID, i+1, p.Number)
		}
	}
	return nil
}
