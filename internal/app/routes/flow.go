// Package routes is the optimized-routes flow: destination input, route
// preferences, then generated itineraries with one selected for the map.
package routes

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/nexusflow/nexusflow-client/internal/domain"
)

// DefaultOrigin is the origin shown before the user edits it.
const DefaultOrigin = "Current Location"

type Step int

const (
	StepInput Step = iota + 1
	StepPreferences
	StepResults
)

// Planner produces route options. The AI gateway satisfies it.
type Planner interface {
	SmartRoutes(ctx context.Context, origin, destination string, prefs []domain.RoutePreference) []domain.RouteOption
}

// Ticket identifies one search. Only the latest ticket may resolve.
type Ticket uint64

// State is a snapshot of the flow.
type State struct {
	Step        Step
	Origin      string
	Destination string
	Preferences []domain.RoutePreference
	Loading     bool
	Routes      []domain.RouteOption
	Selected    *domain.RouteOption
}

type Flow struct {
	planner Planner

	mu       sync.Mutex
	st       State
	ticket   Ticket
	onChange func()
}

func New(planner Planner) *Flow {
	return &Flow{planner: planner, st: State{Step: StepInput, Origin: DefaultOrigin}}
}

// OnChange registers a callback run after every state change, outside the lock.
func (f *Flow) OnChange(fn func()) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.st
	st.Preferences = slices.Clone(f.st.Preferences)
	st.Routes = slices.Clone(f.st.Routes)
	if f.st.Selected != nil {
		sel := *f.st.Selected
		st.Selected = &sel
	}
	return st
}

func (f *Flow) SetOrigin(s string)      { f.update(func(st *State) { st.Origin = s }) }
func (f *Flow) SetDestination(s string) { f.update(func(st *State) { st.Destination = s }) }

// Next moves from input to preferences. It requires a destination.
func (f *Flow) Next() bool {
	ok := false
	f.update(func(st *State) {
		if st.Step == StepInput && strings.TrimSpace(st.Destination) != "" {
			st.Step = StepPreferences
			ok = true
		}
	})
	return ok
}

// Back steps back one screen. It reports false on the first step, where the
// caller leaves the flow.
func (f *Flow) Back() bool {
	ok := false
	f.update(func(st *State) {
		if st.Step > StepInput {
			st.Step--
			st.Loading = false
			// Leaving results abandons any search in flight.
			f.ticket++
			ok = true
		}
	})
	return ok
}

// TogglePreference adds p when absent and removes it when present.
func (f *Flow) TogglePreference(p domain.RoutePreference) {
	f.update(func(st *State) {
		if i := slices.Index(st.Preferences, p); i >= 0 {
			st.Preferences = slices.Delete(slices.Clone(st.Preferences), i, i+1)
			return
		}
		st.Preferences = append(slices.Clone(st.Preferences), p)
	})
}

// Begin enters the results step in the loading state and returns the ticket
// the result must be resolved with, plus the current query.
func (f *Flow) Begin() (Ticket, State) {
	f.mu.Lock()
	f.ticket++
	t := f.ticket
	f.st.Step = StepResults
	f.st.Loading = true
	f.st.Routes = nil
	f.st.Selected = nil
	f.mu.Unlock()
	f.notify()
	return t, f.State()
}

// Resolve installs routes for ticket t and selects the first one. A stale
// ticket is ignored and Resolve reports false.
func (f *Flow) Resolve(t Ticket, routes []domain.RouteOption) bool {
	f.mu.Lock()
	if t != f.ticket {
		f.mu.Unlock()
		return false
	}
	f.st.Loading = false
	f.st.Routes = slices.Clone(routes)
	f.st.Selected = nil
	if len(routes) > 0 {
		sel := routes[0]
		f.st.Selected = &sel
	}
	f.mu.Unlock()
	f.notify()
	return true
}

// Search runs a full search synchronously.
func (f *Flow) Search(ctx context.Context) State {
	t, q := f.Begin()
	f.Resolve(t, f.planner.SmartRoutes(ctx, q.Origin, q.Destination, q.Preferences))
	return f.State()
}

// Select marks the route with id as selected. Unknown ids are ignored.
func (f *Flow) Select(id domain.RouteID) bool {
	ok := false
	f.update(func(st *State) {
		for _, r := range st.Routes {
			if r.ID == id {
				sel := r
				st.Selected = &sel
				ok = true
				return
			}
		}
	})
	return ok
}

func (f *Flow) update(fn func(*State)) {
	f.mu.Lock()
	fn(&f.st)
	f.mu.Unlock()
	f.notify()
}

func (f *Flow) notify() {
	f.mu.Lock()
	cb := f.onChange
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// DirectionFlag picks the maps travel mode for a route: d when cabs and
// autos make up more than half the segments, w when every segment is
// walking, r otherwise.
func DirectionFlag(r domain.RouteOption) string {
	road := 0
	walking := 0
	for _, s := range r.Segments {
		switch s.Mode {
		case domain.TransportModeCab, domain.TransportModeAuto:
			road++
		case domain.TransportModeWalking:
			walking++
		}
	}
	switch {
	case float64(road) > float64(len(r.Segments))/2:
		return "d"
	case walking == len(r.Segments):
		return "w"
	default:
		return "r"
	}
}

// MapURL is the embeddable map for a route between origin and destination.
func MapURL(origin, destination string, r domain.RouteOption) string {
	return "https://maps.google.com/maps?saddr=" + encodeComponent(origin) +
		"&daddr=" + encodeComponent(destination) +
		"&dirflg=" + DirectionFlag(r) +
		"&t=m&ie=UTF8&iwloc=&output=embed"
}

// DirectionsURL opens turn-by-turn transit directions in the maps app.
func DirectionsURL(origin, destination string) string {
	return "https://www.google.com/maps/dir/?api=1&origin=" + encodeComponent(origin) +
		"&destination=" + encodeComponent(destination) + "&travelmode=transit"
}

// encodeComponent escapes s for a query value with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
