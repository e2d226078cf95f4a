package laws

import (
	"reflect"
	"testing"

	"github.com/tjfontaine/ux-auditor/internal/domain"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{name: "exact", input: "Hick's Law", want: "Hick's Law", found: true},
		{name: "curly apostrophe", input: "Fitts’s Law", want: "Fitts's Law", found: true},
		{name: "case insensitive", input: "  jakob's law ", want: "Jakob's Law", found: true},
		{name: "usability heuristic", input: "user control and freedom", want: "User Control and Freedom", found: true},
		{name: "heuristic with commas", input: "Help users recognize, diagnose, and recover from errors", want: "Help Users Recognize, Diagnose, and Recover from Errors", found: true},
		{name: "unknown", input: "Law of Gravity", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(tt.input)
			if ok != tt.found {
				t.Fatalf("Lookup(%q) found = %v, want %v", tt.input, ok, tt.found)
			}
			if ok && got.Name != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.input, got.Name, tt.want)
			}
		})
	}
}

func TestAll_CatalogSize(t *testing.T) {
	all := All()
	if len(all) != 31 {
		t.Errorf("catalog has %d laws, want 31", len(all))
	}
	seen := map[string]bool{}
	for _, l := range all {
		if l.Summary == "" || seen[key(l.Name)] {
			t.Errorf("bad or duplicate entry %+v", l)
		}
		seen[key(l.Name)] = true
	}
}

func TestResolve_Unknown(t *testing.T) {
	got := Resolve("Law of Gravity")
	if got.Name != "Law of Gravity" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.Summary != "Strategic application of Law of Gravity for improved UX." {
		t.Errorf("Summary = %q", got.Summary)
	}

	if empty := Resolve(""); empty.Name == "" {
		t.Error("empty law name should resolve to a named heuristic")
	}
}

func TestFallback_Deterministic(t *testing.T) {
	signals := domain.StaticSignals{H1Count: 1, LinkCount: 12}

	first := Fallback(signals)
	second := Fallback(signals)

	if !reflect.DeepEqual(first, second) {
		t.Fatal("Fallback should be deterministic for identical signals")
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(first))
	}
	if first[0].Status != domain.LawPassed {
		t.Errorf("single H1 should pass Jakob's Law, got %s", first[0].Status)
	}
}

func TestFallback_MissingHeading(t *testing.T) {
	obs := Fallback(domain.StaticSignals{H1Count: 0})
	if obs[0].Status != domain.LawSuggestion {
		t.Errorf("missing H1 should be a suggestion, got %s", obs[0].Status)
	}
	for _, o := range obs {
		if o.Status == domain.LawViolated {
			t.Errorf("fallback should never claim a violation without evidence: %+v", o)
		}
	}
}
