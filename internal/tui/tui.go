// Package tui is the interactive terminal front end. It renders one view at
// a time over the navigation shell and the feature flows.
package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/nexusflow/nexusflow-client/internal/app/autocomplete"
	"github.com/nexusflow/nexusflow-client/internal/app/connect"
	"github.com/nexusflow/nexusflow-client/internal/app/localstore"
	"github.com/nexusflow/nexusflow-client/internal/app/navigation"
	"github.com/nexusflow/nexusflow-client/internal/app/oracle"
	"github.com/nexusflow/nexusflow-client/internal/app/planahead"
	"github.com/nexusflow/nexusflow-client/internal/app/profile"
	"github.com/nexusflow/nexusflow-client/internal/app/routes"
	"github.com/nexusflow/nexusflow-client/internal/domain"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/clock"
)

// Gateway is the generative backend used by the flows.
type Gateway interface {
	routes.Planner
	connect.Matcher
	planahead.Matcher
	autocomplete.Suggester
	Online() bool
}

type Deps struct {
	Shell    *navigation.Shell
	Store    *localstore.Store
	Gateway  Gateway
	Clock    clock.Clock
	Debounce time.Duration
	// Voice configures the assistant. Its Log and OnChange are set here.
	Voice oracle.Deps
	Log   zerolog.Logger
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, deps Deps) error {
	m := newModel(ctx, deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.send = p.Send
	m.startSplash()
	_, err := p.Run()
	m.teardown()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type (
	stageMsg     struct{ stage navigation.SplashStage }
	refreshMsg   struct{}
	routesMsg    struct {
		ticket routes.Ticket
		routes []domain.RouteOption
	}
	nearbyMsg struct {
		ticket  connect.Ticket
		matches []domain.UserProfile
	}
	scheduledMsg struct {
		ticket  planahead.Ticket
		matches []domain.UserProfile
	}
	oracleMsg struct{ err error }
)

type authMode int

const (
	authSignIn authMode = iota
	authRegister
)

type model struct {
	ctx  context.Context
	deps Deps
	log  zerolog.Logger
	// send delivers messages from timer and session goroutines.
	send func(tea.Msg)

	shell  *navigation.Shell
	splash *navigation.Splash
	stage  navigation.SplashStage
	oracle *oracle.Controller
	md     *glamour.TermRenderer
	width  int

	// auth
	mode     authMode
	name     string
	email    string
	password string
	focus    int
	notice   string

	menu int

	routes  *routes.Flow
	connect *connect.Flow
	plan    *planahead.Flow
	profile *profile.Profile
	dest    *autocomplete.Input
	sugIdx  int
	pick    int
	// originFocus selects the origin field on the first routes step.
	originFocus bool
}

func newModel(ctx context.Context, deps Deps) *model {
	m := &model{
		ctx:   ctx,
		deps:  deps,
		log:   deps.Log.With().Str("component", "tui").Logger(),
		shell: deps.Shell,
		width: 80,
	}
	v := deps.Voice
	v.Log = deps.Log
	v.OnChange = m.refresh
	m.oracle = oracle.New(v)
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle("dark"), glamour.WithWordWrap(76))
	if err != nil {
		m.log.Warn().Err(err).Msg("markdown renderer unavailable")
	} else {
		m.md = r
	}
	return m
}

func (m *model) startSplash() {
	m.splash = navigation.StartSplash(m.deps.Clock, func(s navigation.SplashStage) {
		m.post(stageMsg{stage: s})
	})
}

// post never blocks: callbacks may fire on the Update goroutine itself.
func (m *model) post(msg tea.Msg) {
	if send := m.send; send != nil {
		go send(msg)
	}
}

func (m *model) refresh() { m.post(refreshMsg{}) }

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case stageMsg:
		m.stage = msg.stage
		if msg.stage == navigation.SplashDone {
			m.leaveIntro()
		}
	case routesMsg:
		if m.routes != nil && m.routes.Resolve(msg.ticket, msg.routes) {
			m.pick = 0
		}
	case nearbyMsg:
		if m.connect != nil {
			m.connect.Resolve(msg.ticket, msg.matches)
		}
	case scheduledMsg:
		if m.plan != nil {
			m.plan.Resolve(msg.ticket, msg.matches)
		}
	case oracleMsg:
		m.notice = ""
		switch {
		case errors.Is(msg.err, oracle.ErrNoCredential):
			m.notice = "Voice needs a model API key (NEXUSFLOW_API_KEY)."
		case msg.err != nil:
			m.notice = "Could not start the session."
			m.log.Error().Err(msg.err).Msg("oracle start")
		}
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(k tea.KeyMsg) tea.Cmd {
	switch m.shell.View() {
	case navigation.ViewIntro:
		m.leaveIntro()
	case navigation.ViewAuth:
		return m.authKey(k)
	case navigation.ViewDashboard:
		return m.dashboardKey(k)
	case navigation.ViewRoutes:
		return m.routesKey(k)
	case navigation.ViewConnect:
		return m.connectKey(k)
	case navigation.ViewPlanAhead:
		return m.planKey(k)
	case navigation.ViewProfile:
		return m.profileKey(k)
	case navigation.ViewOracle:
		return m.oracleKey(k)
	case navigation.ViewVision:
		if k.Type == tea.KeyEsc || k.Type == tea.KeyEnter {
			m.goTo(navigation.ViewDashboard)
		}
	}
	return nil
}

func (m *model) leaveIntro() {
	if m.splash != nil {
		m.splash.Stop()
	}
	m.shell.CompleteIntro()
}

// goTo navigates and prepares the flow of the view actually reached.
func (m *model) goTo(v navigation.View) {
	m.closeFlows()
	m.notice = ""
	reached := m.shell.Navigate(v)
	m.enter(reached)
}

func (m *model) enter(v navigation.View) {
	m.sugIdx, m.pick, m.originFocus = 0, 0, false
	switch v {
	case navigation.ViewRoutes:
		m.routes = routes.New(m.deps.Gateway)
		m.routes.OnChange(m.refresh)
		m.newDest()
	case navigation.ViewConnect:
		u := domain.NewGuestUser()
		if cur := m.shell.User(); cur != nil {
			u = *cur
		}
		m.connect = connect.New(m.deps.Gateway, m.deps.Clock, u)
		m.connect.OnChange(m.refresh)
		m.newDest()
	case navigation.ViewPlanAhead:
		m.plan = planahead.New(m.deps.Gateway, m.deps.Store, m.deps.Clock)
		m.plan.OnChange(m.refresh)
		m.newDest()
	case navigation.ViewProfile:
		m.profile = profile.New(m.ctx, m.deps.Store, m.shell)
	}
}

func (m *model) newDest() {
	m.dest = autocomplete.New(m.ctx, m.deps.Gateway, m.deps.Clock, m.deps.Debounce)
	m.dest.OnChange(m.refresh)
}

func (m *model) closeFlows() {
	if m.dest != nil {
		m.dest.Close()
	}
	if m.connect != nil {
		m.connect.Close()
	}
	m.routes, m.connect, m.plan, m.profile, m.dest = nil, nil, nil, nil, nil
}

func (m *model) teardown() {
	m.closeFlows()
	if m.splash != nil {
		m.splash.Stop()
	}
	m.oracle.Stop()
}

func (m *model) afterSession(v navigation.View) {
	m.name, m.email, m.password, m.focus = "", "", "", 0
	m.notice = ""
	m.enter(v)
}

func (m *model) authKey(k tea.KeyMsg) tea.Cmd {
	fields := m.authFields()
	switch k.Type {
	case tea.KeyTab, tea.KeyDown:
		m.focus = (m.focus + 1) % len(fields)
	case tea.KeyShiftTab, tea.KeyUp:
		m.focus = (m.focus + len(fields) - 1) % len(fields)
	case tea.KeyCtrlR:
		if m.mode == authSignIn {
			m.mode = authRegister
		} else {
			m.mode = authSignIn
		}
		m.focus, m.notice = 0, ""
	case tea.KeyCtrlG:
		m.afterSession(m.shell.EnterAsGuest(m.ctx))
	case tea.KeyEnter:
		var (
			v   navigation.View
			err error
		)
		if m.mode == authRegister {
			v, err = m.shell.Register(m.ctx, m.name, m.email, m.password)
		} else {
			v, err = m.shell.SignIn(m.ctx, m.email, m.password)
		}
		var ne *navigation.Error
		switch {
		case errors.As(err, &ne):
			m.notice = ne.Message
		case err != nil:
			m.notice = "Something went wrong. Try again."
			m.log.Error().Err(err).Msg("auth")
		default:
			m.afterSession(v)
		}
	default:
		p := fields[m.focus%len(fields)]
		*p = editText(*p, k)
	}
	return nil
}

func (m *model) authFields() []*string {
	if m.mode == authRegister {
		return []*string{&m.name, &m.email, &m.password}
	}
	return []*string{&m.email, &m.password}
}

var menu = []navigation.View{
	navigation.ViewRoutes,
	navigation.ViewConnect,
	navigation.ViewPlanAhead,
	navigation.ViewProfile,
	navigation.ViewOracle,
	navigation.ViewVision,
}

func (m *model) dashboardKey(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "up", "k":
		m.menu = (m.menu + len(menu) - 1) % len(menu)
	case "down", "j":
		m.menu = (m.menu + 1) % len(menu)
	case "enter":
		m.goTo(menu[m.menu])
	case "1", "2", "3", "4", "5", "6":
		m.menu = int(k.String()[0] - '1')
		m.goTo(menu[m.menu])
	case "q":
		return tea.Quit
	}
	return nil
}

// destKey feeds a key to the destination input. It reports whether the key
// was consumed.
func (m *model) destKey(k tea.KeyMsg, set func(string)) bool {
	st := m.dest.State()
	hasList := st.Open && len(st.Suggestions) > 0
	switch k.Type {
	case tea.KeyUp:
		if hasList {
			m.sugIdx = (m.sugIdx + len(st.Suggestions) - 1) % len(st.Suggestions)
		}
		return true
	case tea.KeyDown:
		if hasList {
			m.sugIdx = (m.sugIdx + 1) % len(st.Suggestions)
		}
		return true
	case tea.KeyEnter:
		if !hasList {
			return false
		}
		m.dest.Select(st.Suggestions[m.sugIdx%len(st.Suggestions)])
		set(m.dest.Value())
		m.sugIdx = 0
		return true
	case tea.KeyCtrlU:
		m.dest.Clear()
		set("")
		return true
	}
	next := editText(st.Value, k)
	if next == st.Value {
		return false
	}
	m.dest.Edit(next)
	set(next)
	m.sugIdx = 0
	return true
}

func (m *model) routesKey(k tea.KeyMsg) tea.Cmd {
	st := m.routes.State()
	if k.Type == tea.KeyEsc {
		if !m.routes.Back() {
			m.goTo(navigation.ViewDashboard)
		}
		return nil
	}
	switch st.Step {
	case routes.StepInput:
		if k.Type == tea.KeyTab {
			m.originFocus = !m.originFocus
			return nil
		}
		if m.originFocus {
			if k.Type == tea.KeyEnter {
				m.originFocus = false
				return nil
			}
			m.routes.SetOrigin(editText(st.Origin, k))
			return nil
		}
		if m.destKey(k, m.routes.SetDestination) {
			return nil
		}
		if k.Type == tea.KeyEnter && m.routes.Next() {
			m.dest.Blur()
		}
	case routes.StepPreferences:
		switch k.String() {
		case "1", "2", "3":
			m.routes.TogglePreference(domain.RoutePreferences[k.String()[0]-'1'])
		case "enter":
			return m.searchRoutes()
		}
	case routes.StepResults:
		switch k.String() {
		case "up", "k":
			if n := len(st.Routes); n > 0 {
				m.pick = (m.pick + n - 1) % n
				m.routes.Select(st.Routes[m.pick].ID)
			}
		case "down", "j":
			if n := len(st.Routes); n > 0 {
				m.pick = (m.pick + 1) % n
				m.routes.Select(st.Routes[m.pick].ID)
			}
		case "r":
			return m.searchRoutes()
		}
	}
	return nil
}

func (m *model) searchRoutes() tea.Cmd {
	t, q := m.routes.Begin()
	ctx, gw := m.ctx, m.deps.Gateway
	return func() tea.Msg {
		return routesMsg{ticket: t, routes: gw.SmartRoutes(ctx, q.Origin, q.Destination, q.Preferences)}
	}
}

func (m *model) connectKey(k tea.KeyMsg) tea.Cmd {
	st := m.connect.State()
	if k.Type == tea.KeyEsc {
		if !m.connect.Back() {
			m.goTo(navigation.ViewDashboard)
		}
		return nil
	}
	switch st.Step {
	case connect.StepInput:
		if k.Type == tea.KeyTab {
			if st.Mode == domain.TransportModeCab {
				m.connect.SetMode(domain.TransportModeAuto)
			} else {
				m.connect.SetMode(domain.TransportModeCab)
			}
			return nil
		}
		if m.destKey(k, m.connect.SetDestination) {
			return nil
		}
		if k.Type == tea.KeyEnter {
			t, q, ok := m.connect.Begin()
			if !ok {
				return nil
			}
			ctx, gw := m.ctx, m.deps.Gateway
			return func() tea.Msg {
				return nearbyMsg{ticket: t, matches: gw.NearbyMatches(ctx, q.Destination, q.Mode)}
			}
		}
	case connect.StepMatching:
		if k.Type == tea.KeyEnter {
			m.connect.Join()
		}
	case connect.StepGroup:
		if k.Type == tea.KeyEnter {
			m.connect.StartVerify()
		}
	case connect.StepVerify:
		if k.Type == tea.KeyEnter {
			if st.Verified {
				m.goTo(navigation.ViewDashboard)
				return nil
			}
			m.connect.Scan()
		}
	}
	return nil
}

func (m *model) planKey(k tea.KeyMsg) tea.Cmd {
	st := m.plan.State()
	if k.Type == tea.KeyEsc {
		if !m.plan.Back() {
			m.goTo(navigation.ViewDashboard)
		}
		return nil
	}
	switch st.Step {
	case planahead.StepDetails:
		switch k.Type {
		case tea.KeyTab:
			m.plan.SetDate(cycle(planahead.Dates, st.Date))
			return nil
		case tea.KeyShiftTab:
			m.plan.SetTime(cycle(planahead.TimeSlots, st.Time))
			return nil
		}
		if m.destKey(k, m.plan.SetDestination) {
			return nil
		}
		if k.Type == tea.KeyEnter {
			t, q, ok := m.plan.Begin()
			if !ok {
				return nil
			}
			ctx, gw := m.ctx, m.deps.Gateway
			return func() tea.Msg {
				return scheduledMsg{ticket: t, matches: gw.ScheduledMatches(ctx, q.Destination, q.Slot())}
			}
		}
	case planahead.StepMatches:
		if k.Type == tea.KeyEnter && !st.Loading {
			if _, err := m.plan.Confirm(m.ctx); err != nil {
				m.notice = "Could not save the trip."
				m.log.Error().Err(err).Msg("confirm trip")
			}
		}
	case planahead.StepConfirmed:
		if k.Type == tea.KeyEnter {
			m.goTo(navigation.ViewDashboard)
		}
	}
	return nil
}

func (m *model) profileKey(k tea.KeyMsg) tea.Cmd {
	trips := m.profile.Trips()
	switch k.String() {
	case "esc":
		m.goTo(navigation.ViewDashboard)
	case "up", "k":
		if len(trips) > 0 {
			m.pick = (m.pick + len(trips) - 1) % len(trips)
		}
	case "down", "j":
		if len(trips) > 0 {
			m.pick = (m.pick + 1) % len(trips)
		}
	case "x", "delete":
		if m.pick < len(trips) {
			left, err := m.profile.Cancel(m.ctx, trips[m.pick].ID)
			if err != nil {
				m.notice = "Could not cancel the trip."
				m.log.Error().Err(err).Msg("cancel trip")
			}
			m.pick = min(m.pick, max(0, len(left)-1))
		}
	case "p":
		if len(trips) == 0 {
			m.goTo(navigation.ViewPlanAhead)
		}
	case "o":
		m.oracle.Stop()
		v := m.profile.Logout(m.ctx)
		m.closeFlows()
		m.afterSession(v)
	}
	return nil
}

func (m *model) oracleKey(k tea.KeyMsg) tea.Cmd {
	switch k.Type {
	case tea.KeyEsc:
		m.oracle.Stop()
		m.goTo(navigation.ViewDashboard)
	case tea.KeyEnter, tea.KeySpace:
		if m.oracle.State() != oracle.StateIdle {
			ctrl := m.oracle
			return func() tea.Msg { ctrl.Stop(); return refreshMsg{} }
		}
		ctx, ctrl := m.ctx, m.oracle
		return func() tea.Msg { return oracleMsg{err: ctrl.Start(ctx)} }
	}
	return nil
}

// editText applies a printable key or backspace to s.
func editText(s string, k tea.KeyMsg) string {
	switch k.Type {
	case tea.KeyRunes:
		return s + string(k.Runes)
	case tea.KeySpace:
		return s + " "
	case tea.KeyBackspace:
		r := []rune(s)
		if len(r) == 0 {
			return s
		}
		return string(r[:len(r)-1])
	}
	return s
}

// cycle returns the option after cur, wrapping around.
func cycle(opts []string, cur string) string {
	for i, o := range opts {
		if o == cur {
			return opts[(i+1)%len(opts)]
		}
	}
	return opts[0]
}
