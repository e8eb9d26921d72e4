package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nexusflow/nexusflow-client/internal/app/connect"
	"github.com/nexusflow/nexusflow-client/internal/app/navigation"
	"github.com/nexusflow/nexusflow-client/internal/app/oracle"
	"github.com/nexusflow/nexusflow-client/internal/app/planahead"
	"github.com/nexusflow/nexusflow-client/internal/app/profile"
	"github.com/nexusflow/nexusflow-client/internal/app/routes"
	"github.com/nexusflow/nexusflow-client/internal/domain"
)

const brand = "NEXUSFLOW"

var menuLabels = map[navigation.View][2]string{
	navigation.ViewRoutes:    {"Optimized Routes", "Multimodal itineraries tuned to your preferences"},
	navigation.ViewConnect:   {"Connect People", "Split a cab or auto with travellers nearby"},
	navigation.ViewPlanAhead: {"Plan Ahead", "Find commute partners for a future slot"},
	navigation.ViewProfile:   {"Profile", "Your stats and upcoming syncs"},
	navigation.ViewOracle:    {"Nexus Oracle", "Talk to the city co-pilot"},
	navigation.ViewVision:    {"Vision", "Where the network is heading"},
}

func (m *model) View() string {
	var body string
	switch m.shell.View() {
	case navigation.ViewIntro:
		return m.introView()
	case navigation.ViewAuth:
		body = m.authView()
	case navigation.ViewDashboard:
		body = m.dashboardView()
	case navigation.ViewRoutes:
		body = m.routesView()
	case navigation.ViewConnect:
		body = m.connectView()
	case navigation.ViewPlanAhead:
		body = m.planView()
	case navigation.ViewProfile:
		body = m.profileView()
	case navigation.ViewOracle:
		body = m.oracleView()
	case navigation.ViewVision:
		body = visionView()
	}
	if m.notice != "" {
		body += "\n" + errorStyle.Render(m.notice) + "\n"
	}
	return body
}

func (m *model) introView() string {
	logo := titleStyle.Render("◆ " + brand)
	tagline := subtleStyle.Render("Smart Mobility Together")
	switch m.stage {
	case navigation.SplashLogo:
		return "\n\n  " + logo + "\n"
	case navigation.SplashText:
		return "\n\n  " + logo + "\n  " + tagline + "\n"
	case navigation.SplashFadeOut, navigation.SplashDone:
		return "\n\n  " + fadedStyle.Render("◆ "+brand) + "\n  " + fadedStyle.Render("Smart Mobility Together") + "\n"
	}
	return ""
}

func header(title string) string {
	return titleStyle.Render(brand) + subtleStyle.Render("  /  ") + accentStyle.Render(title) + "\n\n"
}

func help(keys string) string { return "\n" + subtleStyle.Render(keys) + "\n" }

func field(label, value string, focused, secret bool) string {
	if secret {
		value = strings.Repeat("•", len([]rune(value)))
	}
	line := fmt.Sprintf("%-10s %s", label, value)
	if focused {
		return selectedStyle.Render("› "+line+"▏") + "\n"
	}
	return "  " + line + "\n"
}

func (m *model) authView() string {
	var b strings.Builder
	if m.mode == authRegister {
		b.WriteString(header("Create account"))
		b.WriteString(field("Name", m.name, m.focus == 0, false))
		b.WriteString(field("Email", m.email, m.focus == 1, false))
		b.WriteString(field("Password", m.password, m.focus == 2, true))
	} else {
		b.WriteString(header("Sign in"))
		b.WriteString(field("Email", m.email, m.focus == 0, false))
		b.WriteString(field("Password", m.password, m.focus == 1, true))
	}
	if p := m.shell.Pending(); p != "" {
		b.WriteString("\n" + subtleStyle.Render("Sign in to continue to "+menuLabels[p][0]+".") + "\n")
	}
	b.WriteString(help("enter submit · tab next field · ctrl+r sign in/register · ctrl+g continue as guest · ctrl+c quit"))
	return b.String()
}

func (m *model) dashboardView() string {
	var b strings.Builder
	b.WriteString(header("Dashboard"))
	if u := m.shell.User(); u != nil {
		fmt.Fprintf(&b, "Hello, %s\n", accentStyle.Render(u.Name))
	}
	if m.deps.Gateway != nil && !m.deps.Gateway.Online() {
		b.WriteString(subtleStyle.Render("Offline mode: showing sample results.") + "\n")
	}
	b.WriteString("\n")
	for i, v := range menu {
		l := menuLabels[v]
		line := fmt.Sprintf("%d  %-18s %s", i+1, l[0], subtleStyle.Render(l[1]))
		if i == m.menu {
			b.WriteString(selectedStyle.Render("› ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString(help("↑/↓ move · enter open · 1-6 jump · q quit"))
	return b.String()
}

func (m *model) destView(label string, focused bool) string {
	st := m.dest.State()
	var b strings.Builder
	b.WriteString(field(label, st.Value, focused, false))
	if !focused || !st.Open {
		return b.String()
	}
	if st.Loading {
		b.WriteString(subtleStyle.Render("             searching…") + "\n")
	}
	for i, s := range st.Suggestions {
		if i == m.sugIdx {
			b.WriteString("             " + selectedStyle.Render(s) + "\n")
		} else {
			b.WriteString("             " + subtleStyle.Render(s) + "\n")
		}
	}
	return b.String()
}

func (m *model) routesView() string {
	st := m.routes.State()
	var b strings.Builder
	b.WriteString(header("Optimized Routes"))
	switch st.Step {
	case routes.StepInput:
		b.WriteString(field("From", st.Origin, m.originFocus, false))
		b.WriteString(m.destView("To", !m.originFocus))
		b.WriteString(help("type to edit · tab switch field · ↑/↓ suggestions · enter continue · esc back"))
	case routes.StepPreferences:
		fmt.Fprintf(&b, "%s → %s\n\n", st.Origin, st.Destination)
		for i, p := range domain.RoutePreferences {
			mark := "[ ]"
			for _, sel := range st.Preferences {
				if sel == p {
					mark = okStyle.Render("[x]")
				}
			}
			fmt.Fprintf(&b, "  %d %s %s\n", i+1, mark, p)
		}
		b.WriteString(help("1-3 toggle · enter calculate routes · esc back"))
	case routes.StepResults:
		fmt.Fprintf(&b, "%s → %s\n\n", st.Origin, st.Destination)
		if st.Loading {
			b.WriteString(subtleStyle.Render("Calculating routes…") + "\n")
			break
		}
		if len(st.Routes) == 0 {
			b.WriteString("No routes found.\n")
		}
		for _, r := range st.Routes {
			line := fmt.Sprintf("%-8s %-10s %-8s %s", r.Mode, r.Duration, r.Cost, r.Summary)
			if st.Selected != nil && st.Selected.ID == r.ID {
				b.WriteString(selectedStyle.Render("› "+line) + "\n")
			} else {
				b.WriteString("  " + line + "\n")
			}
		}
		if st.Selected != nil {
			b.WriteString("\n" + m.renderMarkdown(Itinerary(*st.Selected)))
			b.WriteString(subtleStyle.Render("Map: "+routes.MapURL(st.Origin, st.Destination, *st.Selected)) + "\n")
			b.WriteString(subtleStyle.Render("Navigate: "+routes.DirectionsURL(st.Origin, st.Destination)) + "\n")
		}
		b.WriteString(help("↑/↓ select route · r recalculate · esc back"))
	}
	return b.String()
}

func (m *model) renderMarkdown(md string) string {
	if m.md == nil {
		return md + "\n"
	}
	out, err := m.md.Render(md)
	if err != nil {
		m.log.Debug().Err(err).Msg("render itinerary")
		return md + "\n"
	}
	return out
}

func profileLine(u domain.UserProfile) string {
	line := fmt.Sprintf("%-16s ★ %.1f  → %s", u.Name, u.Rating, u.Destination)
	if u.ScheduledTime != nil {
		line += "  @ " + *u.ScheduledTime
	}
	return line
}

func (m *model) connectView() string {
	st := m.connect.State()
	var b strings.Builder
	b.WriteString(header("Connect People"))
	switch st.Step {
	case connect.StepInput:
		b.WriteString(m.destView("To", true))
		fmt.Fprintf(&b, "  %-10s %s\n", "Mode", accentStyle.Render(string(st.Mode)))
		b.WriteString(help("type destination · tab cab/auto · enter search nearby · esc back"))
	case connect.StepMatching:
		if st.Loading {
			b.WriteString(subtleStyle.Render("Scanning the mesh for travellers…") + "\n")
			break
		}
		if len(st.Matches) == 0 {
			b.WriteString("Nobody nearby right now.\n")
		}
		for _, u := range st.Matches {
			b.WriteString("  " + profileLine(u) + "\n")
		}
		vehicle := "Cabs"
		if st.Mode == domain.TransportModeAuto {
			vehicle = "Autos"
		}
		b.WriteString("\n" + okStyle.Render("High availability for "+vehicle+" in this area. Estimated wait: 2 mins.") + "\n")
		b.WriteString(help("enter connect · esc back"))
	case connect.StepGroup:
		g := st.Group
		fmt.Fprintf(&b, "Group %s  %s  %d/%d\n\n", subtleStyle.Render(string(g.ID)), g.Status, len(g.Users), g.MaxUsers)
		for _, u := range g.Users {
			name := u.Name
			if u.ID == connect.SelfID {
				name += " (You)"
			}
			b.WriteString("  " + name + "\n")
		}
		b.WriteString(help("enter verify & start · esc back"))
	case connect.StepVerify:
		switch {
		case st.Verified:
			b.WriteString(okStyle.Render("Partner verified. Enjoy the ride!") + "\n")
			b.WriteString(help("enter back to home"))
		case st.Scanning:
			b.WriteString(subtleStyle.Render("Scanning partner's QR…") + "\n")
		default:
			b.WriteString(boxStyle.Render("▚▞▚▞▚▞\n▞▚▞▚▞▚\n▚▞▚▞▚▞") + "\n")
			b.WriteString(help("enter scan partner's QR · esc cancel"))
		}
	}
	return b.String()
}

func (m *model) planView() string {
	st := m.plan.State()
	var b strings.Builder
	b.WriteString(header("Plan Ahead"))
	switch st.Step {
	case planahead.StepDetails:
		b.WriteString(m.destView("To", true))
		fmt.Fprintf(&b, "  %-10s %s\n", "Date", st.Date)
		fmt.Fprintf(&b, "  %-10s %s\n", "Time", st.Time)
		b.WriteString(help("type destination · tab date · shift+tab time · enter search future syncs · esc back"))
	case planahead.StepMatches:
		fmt.Fprintf(&b, "%s · %s\n\n", st.Destination, st.Slot())
		if st.Loading {
			b.WriteString(subtleStyle.Render("Looking for future syncs…") + "\n")
			break
		}
		for _, u := range st.Matches {
			b.WriteString("  " + profileLine(u) + "\n")
		}
		b.WriteString(help("enter confirm trip · esc back"))
	case planahead.StepConfirmed:
		b.WriteString(okStyle.Render("Trip confirmed.") + "\n")
		if st.Trip != nil {
			fmt.Fprintf(&b, "%s · %s @ %s\n", st.Trip.Destination, st.Trip.Date, st.Trip.Time)
		}
		b.WriteString(help("enter back to home"))
	}
	return b.String()
}

func (m *model) profileView() string {
	var b strings.Builder
	b.WriteString(header("Profile"))
	if u := m.profile.User(); u != nil {
		fmt.Fprintf(&b, "%s  %s  %s\n", boxStyle.Render(u.Initial()), accentStyle.Render(u.Name), subtleStyle.Render(u.Email))
		b.WriteString(okStyle.Render("Verified Commuter") + "\n\n")
	}
	cards := make([]string, 0, len(profile.Stats))
	for _, s := range profile.Stats {
		cards = append(cards, boxStyle.Render(s.Label+"\n"+accentStyle.Render(s.Value)+"\n"+subtleStyle.Render(s.Sub)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n\n")

	trips := m.profile.Trips()
	if len(trips) == 0 {
		b.WriteString("No future syncs found in your grid.\n")
		b.WriteString(help("p plan a trip · o end session · esc back"))
		return b.String()
	}
	b.WriteString(titleStyle.Render("Upcoming Syncs") + "\n")
	for i, t := range trips {
		line := fmt.Sprintf("%-24s %s @ %s  %d Users  %s", t.Destination, t.Date, t.Time, t.GroupSize, t.Status)
		if i == m.pick {
			b.WriteString(selectedStyle.Render("› "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	b.WriteString(help("↑/↓ select · x cancel trip · o end session · esc back"))
	return b.String()
}

func (m *model) oracleView() string {
	var b strings.Builder
	b.WriteString(header("Nexus Oracle"))
	switch m.oracle.State() {
	case oracle.StateConnecting:
		b.WriteString(subtleStyle.Render("Connecting…") + "\n")
	case oracle.StateActive:
		b.WriteString(okStyle.Render("● Listening") + "\n")
	default:
		b.WriteString(subtleStyle.Render("○ Idle") + "\n")
	}
	b.WriteString("\n")
	for _, line := range m.oracle.Transcript() {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString(help("enter start/stop · esc back"))
	return b.String()
}

type phase struct {
	name, title, status string
	items               []string
}

var roadmap = []phase{
	{"Phase 01", "Social Transit", "LIVE", []string{"Multimodal Engine", "Commute Buddy Sync", "Identity Verification"}},
	{"Phase 02", "Autonomous Link", "Q4 2024", []string{"AI Agent Negotiation", "IoT Transit Integration", "Escrow Fare Pooling"}},
	{"Phase 03", "Urban Autonomy", "VISION 2026", []string{"Fleet Orchestration", "Predictive Demand Mesh", "ZKP Privacy Shield"}},
}

func visionView() string {
	var b strings.Builder
	b.WriteString(header("Vision"))
	cards := make([]string, 0, len(roadmap))
	for _, p := range roadmap {
		cards = append(cards, boxStyle.Render(subtleStyle.Render(p.name)+"\n"+accentStyle.Render(p.title)+"\n"+p.status+"\n\n• "+strings.Join(p.items, "\n• ")))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n")
	b.WriteString(help("esc back"))
	return b.String()
}
