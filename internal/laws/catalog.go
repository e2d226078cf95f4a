// Package laws holds the static Laws of UX reference catalog.
package laws

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/ux-auditor/internal/domain"
)

var catalog = []domain.Law{
	{Name: "Aesthetic-Usability Effect", Summary: "Users often perceive aesthetically pleasing design as design that's more usable."},
	{Name: "Doherty Threshold", Summary: "Productivity soars when a computer and its users interact at a pace (<400ms) that ensures that neither has to wait on the other."},
	{Name: "Fitts's Law", Summary: "The time to acquire a target is a function of the distance to and size of the target."},
	{Name: "Hick's Law", Summary: "The time it takes to make a decision increases with the number and complexity of choices."},
	{Name: "Jakob's Law", Summary: "Users spend most of their time on other sites, so they prefer your site to work the same way as all the other sites they already know."},
	{Name: "Law of Proximity", Summary: "Objects that are near, or proximate to each other, tend to be grouped together."},
	{Name: "Miller's Law", Summary: "The average person can only keep 7 (plus or minus 2) items in their working memory."},
	{Name: "Pareto Principle", Summary: "For many events, roughly 80% of the effects come from 20% of the causes."},
	{Name: "Parkinson's Law", Summary: "Any task will inflate until all of the available time is spent."},
	{Name: "Peak-End Rule", Summary: "People judge an experience largely based on how they felt at its peak and at its end."},
	{Name: "Postel's Law", Summary: "Be liberal in what you accept, and conservative in what you send."},
	{Name: "Serial Position Effect", Summary: "Users have a propensity to best remember the first and last items in a series."},
	{Name: "Tesler's Law", Summary: "For any system there is a certain amount of complexity which cannot be reduced."},
	{Name: "Von Restorff Effect", Summary: "When multiple similar objects are present, the one that differs from the rest is most likely to be remembered."},
	{Name: "Zeigarnik Effect", Summary: "People remember uncompleted or interrupted tasks better than completed tasks."},
	{Name: "Goal-Gradient Effect", Summary: "The tendency to approach a goal increases with proximity to the goal."},
	{Name: "Law of Common Region", Summary: "Elements tend to be perceived into groups if they are sharing an area with a clearly defined boundary."},
	{Name: "Law of Prägnanz", Summary: "People will perceive and interpret ambiguous or complex images as the simplest form possible."},
	{Name: "Law of Similarity", Summary: "The human eye tends to perceive similar elements as a complete picture, shape, or group, even if those elements are separated."},
	{Name: "Law of Uniform Connectedness", Summary: "Elements that are visually connected are perceived as more related than elements with no connection."},
	{Name: "Occam's Razor", Summary: "Among competing hypotheses that predict equally well, the one with the fewest assumptions should be selected."},
	{Name: "Visibility of System Status", Summary: "The design should always keep users informed about what is going on, through appropriate feedback within a reasonable amount of time."},
	{Name: "Match Between the System and the Real World", Summary: "The design should speak the users' language. Use words, phrases, and concepts familiar to the user, rather than internal jargon."},
	{Name: "User Control and Freedom", Summary: "Users often perform actions by mistake. They need a clearly marked \"emergency exit\" to leave the unwanted action without having to go through an extended process."},
	{Name: "Consistency and Standards", Summary: "Users should not have to wonder whether different words, situations, or actions mean the same thing."},
	{Name: "Error Prevention", Summary: "The best designs carefully prevent problems from occurring in the first place."},
	{Name: "Recognition Rather than Recall", Summary: "Minimize the user's memory load by making elements, actions, and options visible."},
	{Name: "Flexibility and Efficiency of Use", Summary: "Shortcuts, hidden from novice users, may speed up the interaction for the expert user so that the design can cater to both inexperienced and experienced users."},
	{Name: "Aesthetic and Minimalist Design", Summary: "Interfaces should not contain information that is irrelevant or rarely needed."},
	{Name: "Help Users Recognize, Diagnose, and Recover from Errors", Summary: "Error messages should be expressed in plain language (no error codes), precisely indicate the problem, and constructively suggest a solution."},
	{Name: "Help and Documentation", Summary: "It's best if the system doesn't need any additional explanation. However, it may be necessary to provide documentation to help users understand how to complete their tasks."},
}

var byKey = func() map[string]domain.Law {
	m := make(map[string]domain.Law, len(catalog))
	for _, l := range catalog {
		m[key(l.Name)] = l
	}
	return m
}()

// All returns a copy of the catalog in its fixed order.
func All() []domain.Law {
	out := make([]domain.Law, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a law by name, ignoring case and apostrophe style.
func Lookup(name string) (domain.Law, bool) {
	l, ok := byKey[key(name)]
	return l, ok
}

// Resolve returns the catalog entry for name, or a synthetic entry when the
// name is not catalogued. Empty names resolve to a generic heuristic.
func Resolve(name string) domain.Law {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "General Usability Heuristic"
	}
	if l, ok := Lookup(name); ok {
		return l
	}
	return domain.Law{
		Name:    name,
		Summary: fmt.Sprintf("Strategic application of %s for improved UX.", name),
	}
}

// Fallback returns the fixed observations used when no AI critique is available.
// The selection and wording depend only on the static signals.
func Fallback(s domain.StaticSignals) []domain.LawObservation {
	jakob, _ := Lookup("Jakob's Law")
	hick, _ := Lookup("Hick's Law")
	fitts, _ := Lookup("Fitts's Law")

	structure := domain.LawObservation{
		Law:         jakob,
		Status:      domain.LawPassed,
		Observation: fmt.Sprintf("The page structure generally adheres to common conventions, aligning with %s.", jakob.Name),
	}
	if s.H1Count != 1 {
		structure.Status = domain.LawSuggestion
		structure.Observation = fmt.Sprintf("A single clear page heading is a convention users expect; review %s.", jakob.Name)
	}

	return []domain.LawObservation{
		structure,
		{
			Law:         hick,
			Status:      domain.LawSuggestion,
			Observation: fmt.Sprintf("Consider how %s could be applied to reduce choice overload across %d links.", hick.Name, s.LinkCount),
		},
		{
			Law:         fitts,
			Status:      domain.LawSuggestion,
			Observation: fmt.Sprintf("Visual analysis was unavailable; review primary targets against %s.", fitts.Name),
		},
	}
}

func key(name string) string {
	r := strings.NewReplacer("’", "'", "‘", "'", "`", "'")
	return strings.ToLower(strings.TrimSpace(r.Replace(name)))
}
