// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/groundtruth/pkg/types"
)

// ErrUnparseable is returned when a model response contains no JSON issue
// list, either bare or inside a markdown code fence.
var ErrUnparseable = errors.New("unparseable model response")

var jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

// modelIssue is one issue record as returned by the model. Fields are
// validated individually so a single bad field degrades the record instead
// of discarding the whole response.
type modelIssue struct {
	Severity     string        `json:"severity"`
	Message      string        `json:"message" validate:"required"`
	Location     modelLocation `json:"location"`
	SuggestedFix string        `json:"suggested_fix"`
	Fixable      bool          `json:"auto_fixable"`
	Kind         string        `json:"defect_kind" validate:"omitempty,defectkind"`
}

type modelLocation struct {
	Segment  int    `json:"segment_index" validate:"gte=0"`
	Category string `json:"document_type" validate:"omitempty,category"`
	Field    string `json:"field"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return types.Category(fl.Field().String()).Known()
	})
	v.RegisterValidation("defectkind", func(fl validator.FieldLevel) bool {
		return types.DefectKind(fl.Field().String()).Known()
	})
	return v
}

// parseIssueList extracts the raw issue records from a model response. It
// accepts a bare JSON array, an object with an "issues" array, and either of
// those wrapped in a markdown code fence.
func parseIssueList(content string) ([]json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if list, ok := decodeIssueList(content); ok {
		return list, nil
	}

	matches := jsonBlockRegex.FindStringSubmatch(content)
	if len(matches) >= 2 {
		if list, ok := decodeIssueList(strings.TrimSpace(matches[1])); ok {
			return list, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnparseable, truncate(content, 200))
}

func decodeIssueList(content string) ([]json.RawMessage, bool) {
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return list, true
	}
	var wrapped struct {
		Issues *[]json.RawMessage `json:"issues"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Issues != nil {
		return *wrapped.Issues, true
	}
	return nil, false
}

// coerceIssues converts a model response into Issue values and reports how
// many records were discarded. Records that cannot be decoded or carry no
// message are discarded. A missing severity becomes MAJOR and an
// unrecognised one is down-graded to MINOR. Fixability is honoured only with
// a known defect kind.
func coerceIssues(content string) ([]types.Issue, int, error) {
	raw, err := parseIssueList(content)
	if err != nil {
		return nil, 0, err
	}

	var (
		out       []types.Issue
		discarded int
	)
	for _, r := range raw {
		var mi modelIssue
		if err := json.Unmarshal(r, &mi); err != nil {
			discarded++
			continue
		}
		mi.Message = strings.TrimSpace(mi.Message)

		if err := validate.Struct(mi); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				discarded++
				continue
			}
			drop := false
			for _, fe := range verrs {
				switch fe.StructField() {
				case "Message":
					drop = true
				case "Segment":
					mi.Location.Segment = 0
				case "Category":
					mi.Location.Category = ""
				case "Kind":
					mi.Kind = ""
				}
			}
			if drop {
				discarded++
				continue
			}
		}

		kind := types.DefectKind(mi.Kind)
		out = append(out, types.Issue{
			Severity: coerceSeverity(mi.Severity),
			Message:  mi.Message,
			Location: types.Location{
				Segment:  mi.Location.Segment,
				Category: types.Category(mi.Location.Category),
				Field:    mi.Location.Field,
			},
			SuggestedFix: strings.TrimSpace(mi.SuggestedFix),
			Fixable:      mi.Fixable && kind.Known(),
			Kind:         kind,
		})
	}
	return out, discarded, nil
}

func coerceSeverity(s string) types.Severity {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return types.SeverityMajor
	}
	sev := types.Severity(s)
	if !sev.Valid() {
		return types.SeverityMinor
	}
	return sev
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
