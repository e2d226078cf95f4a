package heuristics

import (
	"fmt"
	"unicode/utf8"

	"github.com/tjfontaine/ux-auditor/internal/domain"
)

const (
	baselineScore       = 70
	badPenalty          = 5
	goodBonus           = 2
	accessibilityAdjust = 10

	// minMetaDescription is the length a meta description must exceed to count as present.
	minMetaDescription = 50
)

// Findings are the report entries and scores derived from static signals.
type Findings struct {
	Good         []string
	Bad          []string
	Improvements []string
	// ActionItems mirror the bad findings and improvements as fixes, for reports
	// that have no AI critique.
	ActionItems []domain.ActionItem
	Scores      domain.ScoreSet
}

// Evaluate applies the heading, alt text and meta description rules and
// computes the baseline scores.
func Evaluate(s domain.StaticSignals) Findings {
	f := Findings{
		Good:         []string{},
		Bad:          []string{},
		Improvements: []string{},
		ActionItems:  []domain.ActionItem{},
	}

	switch {
	case s.H1Count == 1:
		f.Good = append(f.Good, "Semantic HTML: Page has exactly one H1 tag.")
	case s.H1Count == 0:
		f.Bad = append(f.Bad, "SEO Issue: Missing H1 tag.")
		f.ActionItems = append(f.ActionItems, domain.ActionItem{
			Element:  "Page heading",
			Issue:    "The page has no top-level H1 heading.",
			Severity: domain.SeverityWarning,
			Fix:      "Add a single H1 that states the page's primary purpose.",
		})
	default:
		f.Bad = append(f.Bad, fmt.Sprintf("SEO Issue: Multiple H1 tags found (%d).", s.H1Count))
		f.ActionItems = append(f.ActionItems, domain.ActionItem{
			Element:  "Page heading",
			Issue:    fmt.Sprintf("The page has %d H1 headings competing for attention.", s.H1Count),
			Severity: domain.SeverityWarning,
			Fix:      "Keep one H1 and demote the others to H2 or lower.",
		})
	}

	switch {
	case s.MissingAltCount == 0 && s.TotalImages > 0:
		f.Good = append(f.Good, "Accessibility: All images have alt tags.")
	case s.MissingAltCount > 0:
		f.Bad = append(f.Bad, fmt.Sprintf("Accessibility: %d images are missing alt text.", s.MissingAltCount))
		f.ActionItems = append(f.ActionItems, domain.ActionItem{
			Element:  "Images",
			Issue:    fmt.Sprintf("%d of %d images have no alternative text.", s.MissingAltCount, s.TotalImages),
			Severity: domain.SeverityCritical,
			Fix:      "Add descriptive alt attributes, or alt=\"\" for purely decorative images.",
		})
	}

	if utf8.RuneCountInString(s.MetaDescription) > minMetaDescription {
		f.Good = append(f.Good, "SEO: Meta description is present.")
	} else {
		f.Improvements = append(f.Improvements, "SEO: Add a descriptive meta description.")
		f.ActionItems = append(f.ActionItems, domain.ActionItem{
			Element:  "Meta description",
			Issue:    "The meta description is missing or too short to summarize the page.",
			Severity: domain.SeveritySuggestion,
			Fix:      "Write a meta description of roughly 120-160 characters.",
		})
	}

	f.Scores = Baseline(s, len(f.Good), len(f.Bad))
	return f
}

// Baseline computes the code-only scores from the finding counts.
func Baseline(s domain.StaticSignals, good, bad int) domain.ScoreSet {
	score := baselineScore - bad*badPenalty + good*goodBonus
	access := score + accessibilityAdjust
	if s.MissingAltCount > 0 {
		access = score - accessibilityAdjust
	}
	return domain.ScoreSet{UX: score, UI: score, Accessibility: access}.Clamp()
}
