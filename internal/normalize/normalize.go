// Package normalize turns untrusted provider output into a domain.Critique.
//
// Every provider answers through here so that decoding, defaults and
// severity handling are identical no matter which backend won.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tjfontaine/ux-auditor/internal/domain"
	"github.com/tjfontaine/ux-auditor/internal/laws"
)

// Field names of the critique object.
const (
	fieldUXScore       = "ux_score"
	fieldUIScore       = "ui_score"
	fieldAccessibility = "accessibility_score"
	fieldGrade         = "visual_hierarchy_grade"
	fieldConversion    = "conversion_optimization"
	fieldGood          = "good_points"
	fieldBad           = "bad_points"
	fieldIssues        = "critical_issues"
)

var knownFields = []string{
	fieldUXScore, fieldUIScore, fieldAccessibility, fieldGrade,
	fieldConversion, fieldGood, fieldBad, fieldIssues,
}

// gradeScores derives a UI score from the visual hierarchy grade when the
// provider gives no ui_score. A grade outside the table scores unknownGradeScore.
var gradeScores = map[byte]int{'A': 95, 'B': 85, 'C': 75, 'D': 65, 'F': 50}

const unknownGradeScore = 70

// GradePrefix starts the synthetic first improvement entry.
const GradePrefix = "Visual Hierarchy Grade: "

// Critique normalizes raw. Content may be a JSON string (optionally inside a
// code fence), json.RawMessage, []byte or an already decoded value.
func Critique(raw *domain.RawCritique) (*domain.Critique, error) {
	if raw == nil {
		return nil, &domain.NormalizationError{Reason: "nil critique"}
	}

	data, err := contentBytes(raw.Content)
	if err != nil {
		return nil, &domain.NormalizationError{Provider: raw.Provider, Reason: "unreadable content", Err: err}
	}

	fields, err := decodeObject(data)
	if err != nil {
		return nil, &domain.NormalizationError{Provider: raw.Provider, Reason: "content is not a JSON object", Err: err}
	}
	if !hasAnyField(fields) {
		return nil, &domain.NormalizationError{Provider: raw.Provider, Reason: "no critique fields in response"}
	}

	return build(fields), nil
}

func contentBytes(content any) ([]byte, error) {
	switch v := content.(type) {
	case nil:
		return nil, fmt.Errorf("empty content")
	case string:
		return []byte(StripFence(v)), nil
	case json.RawMessage:
		return rawBytes(v)
	case []byte:
		return rawBytes(v)
	default:
		return json.Marshal(v)
	}
}

// rawBytes unwraps a JSON string literal that itself holds the object text.
func rawBytes(b []byte) ([]byte, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, err
		}
		return []byte(StripFence(s)), nil
	}
	return []byte(StripFence(string(b))), nil
}

// StripFence removes a surrounding Markdown code fence such as ```json ... ```.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string (json, JSON, javascript...)
		if info := strings.TrimSpace(s[:nl]); !strings.ContainsAny(info, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	err := json.Unmarshal(data, &fields)
	if err == nil && fields != nil {
		return fields, nil
	}

	// Some models wrap the object in prose; retry on the outermost braces.
	start, end := bytes.IndexByte(data, '{'), bytes.LastIndexByte(data, '}')
	if start >= 0 && end > start {
		fields = nil
		if err2 := json.Unmarshal(data[start:end+1], &fields); err2 == nil && fields != nil {
			return fields, nil
		}
	}
	if err == nil {
		err = fmt.Errorf("null object")
	}
	return nil, err
}

func hasAnyField(fields map[string]json.RawMessage) bool {
	for _, f := range knownFields {
		if _, ok := fields[f]; ok {
			return true
		}
	}
	return false
}

type issue struct {
	element     string
	issue       string
	lawViolated string
	severity    domain.Severity
	fix         string
}

func build(fields map[string]json.RawMessage) *domain.Critique {
	grade := strings.TrimSpace(str(fields[fieldGrade]))

	ui, ok := number(fields[fieldUIScore])
	if !ok {
		ui = gradeScore(grade)
	}
	ux, _ := number(fields[fieldUXScore])
	acc, _ := number(fields[fieldAccessibility])

	c := &domain.Critique{
		Scores:       domain.ScoreSet{UX: ux, UI: ui, Accessibility: acc}.Clamp(),
		Good:         strs(fields[fieldGood]),
		Bad:          strs(fields[fieldBad]),
		FlowAnalysis: strings.TrimSpace(str(fields[fieldConversion])),
		ActionItems:  []domain.ActionItem{},
		Laws:         []domain.LawObservation{},
	}

	gradeText := grade
	if gradeText == "" {
		gradeText = "N/A"
	}
	c.Improvements = []string{GradePrefix + gradeText}

	for _, is := range issues(fields[fieldIssues]) {
		c.ActionItems = append(c.ActionItems, domain.ActionItem{
			Element:  is.element,
			Issue:    is.issue,
			Severity: is.severity,
			Fix:      is.fix,
		})

		status := domain.LawSuggestion
		line := formatIssue(is)
		if is.severity.IsViolation() {
			status = domain.LawViolated
			c.Bad = append(c.Bad, line)
		} else {
			c.Improvements = append(c.Improvements, line)
		}

		c.Laws = append(c.Laws, domain.LawObservation{
			Law:         laws.Resolve(is.lawViolated),
			Status:      status,
			Observation: is.issue,
		})
	}

	return c
}

func formatIssue(is issue) string {
	element := is.element
	if element == "" {
		element = "Page"
	}
	line := fmt.Sprintf("%s: %s (%s)", element, is.issue, strings.ToUpper(string(is.severity)))
	if is.fix != "" {
		line += " - Fix: " + is.fix
	}
	return line
}

func gradeScore(grade string) int {
	if grade == "" {
		return 0
	}
	if score, ok := gradeScores[strings.ToUpper(grade)[0]]; ok {
		return score
	}
	return unknownGradeScore
}

// issues decodes critical_issues, skipping entries that are not objects or
// carry neither an element nor an issue.
func issues(raw json.RawMessage) []issue {
	var entries []json.RawMessage
	if json.Unmarshal(raw, &entries) != nil {
		return nil
	}

	out := make([]issue, 0, len(entries))
	for _, e := range entries {
		var obj map[string]json.RawMessage
		if json.Unmarshal(e, &obj) != nil || obj == nil {
			continue
		}
		is := issue{
			element:     strings.TrimSpace(str(obj["element"])),
			issue:       strings.TrimSpace(str(obj["issue"])),
			lawViolated: strings.TrimSpace(str(obj["law_violated"])),
			severity:    domain.ParseSeverity(str(obj["severity"])),
			fix:         strings.TrimSpace(str(obj["fix"])),
		}
		if is.element == "" && is.issue == "" {
			continue
		}
		out = append(out, is)
	}
	return out
}

// number reads an integer score from a JSON number or numeric string.
func number(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return round(f)
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if i := strings.IndexByte(s, '/'); i > 0 {
			s = strings.TrimSpace(s[:i])
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return round(f)
		}
	}
	return 0, false
}

func round(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	if f < math.MinInt32 {
		f = math.MinInt32
	}
	return int(math.Round(f)), true
}

// str reads a JSON string; numbers and booleans are rendered, anything else is empty.
func str(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var v any
	if json.Unmarshal(raw, &v) == nil {
		switch t := v.(type) {
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

// strs reads an array of strings, dropping blanks and non-string entries.
// A single string is accepted as a one-element list.
func strs(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}

	var entries []json.RawMessage
	if json.Unmarshal(raw, &entries) != nil {
		if s := strings.TrimSpace(str(raw)); s != "" {
			out = append(out, s)
		}
		return out
	}
	for _, e := range entries {
		var s string
		if json.Unmarshal(e, &s) != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
