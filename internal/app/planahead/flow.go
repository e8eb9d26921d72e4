// Package planahead is the Plan Ahead flow: pick a destination and a future
// slot, review travellers on the same schedule, then confirm the trip.
package planahead

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/nexusflow/nexusflow-client/internal/domain"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/clock"
)

type Step int

const (
	StepDetails Step = iota + 1
	StepMatches
	StepConfirmed
)

const (
	DefaultDate = "Tomorrow"
	DefaultTime = "09:00 AM"
)

// Dates and TimeSlots are the choices offered by the scheduler.
var (
	Dates     = []string{"Today", "Tomorrow", "Day After", "Next Monday"}
	TimeSlots = []string{"08:00 AM", "09:00 AM", "10:00 AM", "05:00 PM", "06:00 PM", "07:00 PM"}
)

// ErrNotReady is returned by Confirm outside a settled matches step.
var ErrNotReady = errors.New("planahead: no search to confirm")

// Matcher finds travellers on a schedule. The AI gateway satisfies it.
type Matcher interface {
	ScheduledMatches(ctx context.Context, destination, timeSlot string) []domain.UserProfile
}

// TripStore persists confirmed trips.
type TripStore interface {
	GetTrips(ctx context.Context) []domain.ScheduledTrip
	SaveTrip(ctx context.Context, t domain.ScheduledTrip) error
}

type Ticket uint64

type State struct {
	Step        Step
	Destination string
	Date        string
	Time        string
	Loading     bool
	Matches     []domain.UserProfile
	Trip        *domain.ScheduledTrip
}

// Slot is the time slot phrase sent to the matcher.
func (s State) Slot() string { return fmt.Sprintf("%s at %s", s.Date, s.Time) }

type Flow struct {
	matcher Matcher
	trips   TripStore
	clk     clock.Clock

	mu       sync.Mutex
	st       State
	ticket   Ticket
	onChange func()

	// lastStamp is the timestamp of the last trip id issued.
	lastStamp int64
}

func New(matcher Matcher, trips TripStore, clk clock.Clock) *Flow {
	return &Flow{
		matcher: matcher,
		trips:   trips,
		clk:     clk,
		st:      State{Step: StepDetails, Date: DefaultDate, Time: DefaultTime},
	}
}

func (f *Flow) OnChange(fn func()) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.st
	st.Matches = slices.Clone(f.st.Matches)
	if f.st.Trip != nil {
		tr := *f.st.Trip
		st.Trip = &tr
	}
	return st
}

func (f *Flow) SetDestination(s string) { f.update(func(st *State) { st.Destination = s }) }
func (f *Flow) SetDate(s string)        { f.update(func(st *State) { st.Date = s }) }

// SetTime selects one of TimeSlots. Other values are rejected.
func (f *Flow) SetTime(s string) bool {
	if !slices.Contains(TimeSlots, s) {
		return false
	}
	f.update(func(st *State) { st.Time = s })
	return true
}

// Begin moves to the matches step in the loading state. It reports ok=false
// without a destination.
func (f *Flow) Begin() (Ticket, State, bool) {
	f.mu.Lock()
	if f.st.Step != StepDetails || strings.TrimSpace(f.st.Destination) == "" {
		f.mu.Unlock()
		return 0, f.State(), false
	}
	f.ticket++
	t := f.ticket
	f.st.Step = StepMatches
	f.st.Loading = true
	f.st.Matches = nil
	f.mu.Unlock()
	f.notify()
	return t, f.State(), true
}

// Resolve installs matches for ticket t. Stale tickets are ignored.
func (f *Flow) Resolve(t Ticket, matches []domain.UserProfile) bool {
	f.mu.Lock()
	if t != f.ticket || f.st.Step != StepMatches {
		f.mu.Unlock()
		return false
	}
	f.st.Loading = false
	f.st.Matches = slices.Clone(matches)
	f.mu.Unlock()
	f.notify()
	return true
}

// Search runs a full search synchronously.
func (f *Flow) Search(ctx context.Context) State {
	t, q, ok := f.Begin()
	if !ok {
		return q
	}
	f.Resolve(t, f.matcher.ScheduledMatches(ctx, q.Destination, q.Slot()))
	return f.State()
}

// Confirm saves the planned trip and moves to the confirmation step. The
// flow stays on the matches step when the trip cannot be saved.
func (f *Flow) Confirm(ctx context.Context) (domain.ScheduledTrip, error) {
	f.mu.Lock()
	if f.st.Step != StepMatches || f.st.Loading {
		f.mu.Unlock()
		return domain.ScheduledTrip{}, ErrNotReady
	}
	now := f.clk.Now().UnixMilli()
	trip := domain.ScheduledTrip{
		Destination: f.st.Destination,
		Date:        f.st.Date,
		Time:        f.st.Time,
		GroupSize:   domain.DefaultGroupSize,
		Status:      domain.TripStatusConfirmed,
	}
	f.mu.Unlock()

	trip.Timestamp = f.freeStamp(ctx, now)
	trip.ID = tripID(trip.Timestamp)
	if err := f.trips.SaveTrip(ctx, trip); err != nil {
		return domain.ScheduledTrip{}, fmt.Errorf("save trip: %w", err)
	}
	f.update(func(st *State) {
		st.Step = StepConfirmed
		st.Trip = &trip
	})
	return trip, nil
}

func tripID(ms int64) domain.TripID { return domain.TripID(fmt.Sprintf("trip-%d", ms)) }

// freeStamp returns the first millisecond at or after now, and after any
// stamp this flow issued, whose trip id is not already stored.
func (f *Flow) freeStamp(ctx context.Context, now int64) int64 {
	taken := make(map[domain.TripID]bool)
	for _, t := range f.trips.GetTrips(ctx) {
		taken[t.ID] = true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ms := max(now, f.lastStamp+1)
	for taken[tripID(ms)] {
		ms++
	}
	f.lastStamp = ms
	return ms
}

// Back returns to trip details from the matches step. It reports false
// elsewhere, where the caller leaves the flow.
func (f *Flow) Back() bool {
	ok := false
	f.update(func(st *State) {
		if st.Step == StepMatches {
			st.Step, st.Loading = StepDetails, false
			f.ticket++
			ok = true
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
