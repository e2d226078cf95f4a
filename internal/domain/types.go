// Package domain holds the canonical audit types shared by every stage of the pipeline.
package domain

import "strings"

// AnalysisRequest is the inbound audit request. One request maps to one pipeline run.
type AnalysisRequest struct {
	URL string `json:"url"`
}

// StaticSignals are the deterministic findings derived from fetched markup.
type StaticSignals struct {
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	H1Count         int    `json:"h1Count"`
	TotalImages     int    `json:"totalImages"`
	MissingAltCount int    `json:"missingAltCount"`
	LinkCount       int    `json:"linkCount"`
}

// Severity is the closed set of action item severities.
type Severity string

const (
	SeverityCritical   Severity = "Critical"
	SeverityWarning    Severity = "Warning"
	SeveritySuggestion Severity = "Suggestion"
)

// ParseSeverity maps free-form severity text onto the closed enumeration.
// Matching is case-insensitive; text mentioning "critical" or "warning" maps to
// that level and anything else is a suggestion.
func ParseSeverity(s string) Severity {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(lower, "critical"):
		return SeverityCritical
	case strings.Contains(lower, "warning"):
		return SeverityWarning
	default:
		return SeveritySuggestion
	}
}

// IsViolation reports whether the severity marks a violated law.
func (s Severity) IsViolation() bool {
	return s == SeverityCritical || s == SeverityWarning
}

// ActionItem is a single prioritized fix.
type ActionItem struct {
	Element  string   `json:"element"`
	Issue    string   `json:"issue"`
	Severity Severity `json:"severity"`
	Fix      string   `json:"fix"`
}

// LawStatus describes how a page relates to a Law of UX.
type LawStatus string

const (
	LawViolated   LawStatus = "violated"
	LawSuggestion LawStatus = "suggestion"
	LawPassed     LawStatus = "passed"
)

// Law is a named heuristic from the Laws of UX catalog.
type Law struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// LawObservation ties a law to what was observed on the page.
type LawObservation struct {
	Law         Law       `json:"law"`
	Status      LawStatus `json:"status"`
	Observation string    `json:"observation"`
}

// ScoreSet holds the three headline scores, each within [0,100].
type ScoreSet struct {
	UX            int `json:"ux"`
	UI            int `json:"ui"`
	Accessibility int `json:"accessibility"`
}

// Clamp returns a copy with every score limited to [0,100].
func (s ScoreSet) Clamp() ScoreSet {
	return ScoreSet{
		UX:            ClampScore(s.UX),
		UI:            ClampScore(s.UI),
		Accessibility: ClampScore(s.Accessibility),
	}
}

// ClampScore limits a score to [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// AnalysisReport is the canonical report returned to the caller.
type AnalysisReport struct {
	URL             string           `json:"url"`
	Title           string           `json:"title"`
	Scores          ScoreSet         `json:"scores"`
	Good            []string         `json:"good"`
	Bad             []string         `json:"bad"`
	Improvements    []string         `json:"improvements"`
	ActionItems     []ActionItem     `json:"actionItems"`
	LawsObservation []LawObservation `json:"lawsObservation"`
	FlowAnalysis    string           `json:"flowAnalysis"`
	AIEnabled       bool             `json:"aiEnabled"`

	// Provider names the backend whose critique was used, empty when AI did not run.
	Provider string `json:"provider,omitempty"`
	// DebugError carries raw diagnostics for recoverable failures.
	DebugError string `json:"debugError,omitempty"`
}

// RawCritique is the undecoded content a provider returned for a screenshot.
// Content is either a string (JSON text, possibly wrapped in a code fence) or an
// already-decoded value such as json.RawMessage or map[string]any. It is untrusted.
type RawCritique struct {
	Provider string
	Model    string
	Content  any
}

// Critique is a normalized provider response, ready to merge into a report.
type Critique struct {
	Scores       ScoreSet
	Good         []string
	Bad          []string
	Improvements []string
	ActionItems  []ActionItem
	Laws         []LawObservation
	FlowAnalysis string
}
