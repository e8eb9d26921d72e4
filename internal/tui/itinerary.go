package tui

import (
	"fmt"
	"strings"

	"github.com/nexusflow/nexusflow-client/internal/domain"
)

// Itinerary renders a route as markdown for the glamour renderer.
func Itinerary(r domain.RouteOption) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s · %s · %s\n\n", modeLabel(r.Mode), r.Duration, r.Cost)
	if r.ComfortLevel != "" {
		fmt.Fprintf(&b, "*Comfort: %s*\n\n", r.ComfortLevel)
	}
	if r.Summary != "" {
		b.WriteString(r.Summary)
		b.WriteString("\n\n")
	}
	for i, s := range r.Segments {
		fmt.Fprintf(&b, "%d. **%s** %s (%s", i+1, modeLabel(s.Mode), s.Instruction, s.Duration)
		if s.Distance != nil && *s.Distance != "" {
			fmt.Fprintf(&b, ", %s", *s.Distance)
		}
		b.WriteString(")\n")
	}
	return b.String()
}

func modeLabel(m domain.TransportMode) string {
	if m == "" {
		return "MIXED"
	}
	return string(m)
}
