// Package connect is the Connect People flow: find travellers heading the
// same way, form a fare-splitting group and verify the partner in person.
package connect

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexusflow/nexusflow-client/internal/domain"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/clock"
)

type Step string

const (
	StepInput    Step = "INPUT"
	StepMatching Step = "MATCHING"
	StepGroup    Step = "GROUP"
	StepVerify   Step = "VERIFY"
)

// ScanDuration is how long the simulated QR scan takes.
const ScanDuration = 2 * time.Second

// groupMatches is how many matches join the current user in a group.
const groupMatches = 2

// SelfID identifies the current user inside a group.
const SelfID domain.ProfileID = "self"

// Capacity is the group size limit per shared mode.
func Capacity(m domain.TransportMode) int {
	if m == domain.TransportModeAuto {
		return 3
	}
	return 4
}

// Matcher finds nearby travellers. The AI gateway satisfies it.
type Matcher interface {
	NearbyMatches(ctx context.Context, destination string, mode domain.TransportMode) []domain.UserProfile
}

type Ticket uint64

type State struct {
	Step        Step
	Destination string
	Mode        domain.TransportMode
	Loading     bool
	Matches     []domain.UserProfile
	Group       *domain.MatchGroup
	Scanning    bool
	Verified    bool
}

type Flow struct {
	matcher Matcher
	clk     clock.Clock

	newGroupID func() domain.GroupID

	mu       sync.Mutex
	st       State
	user     domain.SessionUser
	ticket   Ticket
	scan     clock.Timer
	scanGen  uint64
	onChange func()
}

// New starts a flow for user. Its name heads the group roster.
func New(matcher Matcher, clk clock.Clock, user domain.SessionUser) *Flow {
	return &Flow{
		matcher: matcher,
		clk:     clk,
		user:    user,
		st:      State{Step: StepInput, Mode: domain.TransportModeCab},
		newGroupID: func() domain.GroupID {
			return domain.GroupID(uuid.NewString())
		},
	}
}

// SetNewGroupIDForTest overrides group ID generation for deterministic tests.
// It should not be used in production code.
func (f *Flow) SetNewGroupIDForTest(fn func() domain.GroupID) {
	if fn != nil {
		f.newGroupID = fn
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
	if f.st.Group != nil {
		g := *f.st.Group
		g.Users = slices.Clone(g.Users)
		st.Group = &g
	}
	return st
}

func (f *Flow) SetDestination(s string) { f.update(func(st *State) { st.Destination = s }) }

// SetMode selects CAB or AUTO. Other modes are ignored.
func (f *Flow) SetMode(m domain.TransportMode) bool {
	if m != domain.TransportModeCab && m != domain.TransportModeAuto {
		return false
	}
	f.update(func(st *State) { st.Mode = m })
	return true
}

// Begin starts a search. It reports ok=false without a destination.
func (f *Flow) Begin() (Ticket, State, bool) {
	f.mu.Lock()
	if strings.TrimSpace(f.st.Destination) == "" {
		f.mu.Unlock()
		return 0, f.State(), false
	}
	f.ticket++
	t := f.ticket
	f.st.Step = StepMatching
	f.st.Loading = true
	f.st.Matches = nil
	f.mu.Unlock()
	f.notify()
	return t, f.State(), true
}

// Resolve installs the matches for ticket t. Stale tickets are ignored.
func (f *Flow) Resolve(t Ticket, matches []domain.UserProfile) bool {
	f.mu.Lock()
	if t != f.ticket || f.st.Step != StepMatching {
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
	f.Resolve(t, f.matcher.NearbyMatches(ctx, q.Destination, q.Mode))
	return f.State()
}

// Join forms the group from the current user and the first matches.
func (f *Flow) Join() bool {
	f.mu.Lock()
	if f.st.Step != StepMatching || f.st.Loading || len(f.st.Matches) == 0 {
		f.mu.Unlock()
		return false
	}
	users := []domain.UserProfile{{
		ID:          SelfID,
		Name:        f.user.Name,
		Destination: f.st.Destination,
	}}
	users = append(users, f.st.Matches[:min(groupMatches, len(f.st.Matches))]...)
	maxUsers := Capacity(f.st.Mode)
	status := domain.GroupStatusForming
	if len(users) >= maxUsers {
		status = domain.GroupStatusFull
	}
	f.st.Group = &domain.MatchGroup{
		ID:       f.newGroupID(),
		Mode:     f.st.Mode,
		Users:    users,
		MaxUsers: maxUsers,
		Status:   status,
	}
	f.st.Step = StepGroup
	f.mu.Unlock()
	f.notify()
	return true
}

// StartVerify moves from the group to the verification screen.
func (f *Flow) StartVerify() bool {
	ok := false
	f.update(func(st *State) {
		if st.Step == StepGroup {
			st.Step = StepVerify
			ok = true
		}
	})
	return ok
}

// Scan simulates scanning the partner's code. After ScanDuration the group
// is verified.
func (f *Flow) Scan() bool {
	f.mu.Lock()
	if f.st.Step != StepVerify || f.st.Scanning || f.st.Verified {
		f.mu.Unlock()
		return false
	}
	f.st.Scanning = true
	f.scanGen++
	gen := f.scanGen
	f.scan = f.clk.AfterFunc(ScanDuration, func() { f.finishScan(gen) })
	f.mu.Unlock()
	f.notify()
	return true
}

func (f *Flow) finishScan(gen uint64) {
	f.mu.Lock()
	if f.scan == nil || f.scanGen != gen {
		f.mu.Unlock()
		return
	}
	f.scan = nil
	f.st.Scanning = false
	f.st.Verified = true
	if f.st.Group != nil {
		f.st.Group.Status = domain.GroupStatusVerified
	}
	f.mu.Unlock()
	f.notify()
}

// Back returns to the previous step. It reports false on INPUT and once
// verified, where the caller leaves the flow.
func (f *Flow) Back() bool {
	ok := false
	f.update(func(st *State) {
		switch {
		case st.Verified:
		case st.Step == StepMatching:
			st.Step, st.Loading = StepInput, false
			f.ticket++
			ok = true
		case st.Step == StepGroup:
			st.Step, st.Group = StepMatching, nil
			ok = true
		case st.Step == StepVerify:
			f.stopScanLocked()
			st.Step, st.Scanning = StepGroup, false
			ok = true
		}
	})
	return ok
}

// Close cancels a pending scan. It is safe to call more than once.
func (f *Flow) Close() {
	f.mu.Lock()
	f.stopScanLocked()
	f.st.Scanning = false
	f.mu.Unlock()
}

func (f *Flow) stopScanLocked() {
	if f.scan != nil {
		f.scan.Stop()
		f.scan = nil
	}
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
