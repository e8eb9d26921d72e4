// Package autocomplete is a debounced place-suggestion input shared by the
// destination fields of every flow.
package autocomplete

import (
	"context"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/nexusflow/nexusflow-client/internal/ports/out/clock"
)

const (
	DefaultDebounce = 400 * time.Millisecond
	// MinQueryLen is the shortest value that is sent for suggestions.
	MinQueryLen = 3
)

// Suggester completes place names. The AI gateway satisfies it.
type Suggester interface {
	PlaceSuggestions(ctx context.Context, query string) []string
}

type State struct {
	Value       string
	Suggestions []string
	// Open is true while the suggestion list should be shown.
	Open    bool
	Loading bool
}

// Input owns a text value and its suggestion list. Every edit restarts the
// debounce timer; only the lookup for the latest edit may install results.
type Input struct {
	suggester Suggester
	clk       clock.Clock
	debounce  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	st       State
	gen      uint64
	timer    clock.Timer
	closed   bool
	onChange func()
}

// New returns an input whose lookups run under ctx. A debounce of zero or
// less uses DefaultDebounce.
func New(ctx context.Context, s Suggester, clk clock.Clock, debounce time.Duration) *Input {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Input{suggester: s, clk: clk, debounce: debounce, ctx: ctx, cancel: cancel}
}

func (in *Input) OnChange(fn func()) {
	in.mu.Lock()
	in.onChange = fn
	in.mu.Unlock()
}

func (in *Input) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	st := in.st
	st.Suggestions = slices.Clone(in.st.Suggestions)
	return st
}

func (in *Input) Value() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.st.Value
}

// Edit replaces the value, opens the suggestion list and restarts the debounce.
func (in *Input) Edit(value string) {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.st.Value = value
	in.st.Open = true
	in.scheduleLocked()
	in.mu.Unlock()
	in.notify()
}

// Focus reopens the list for a value long enough to complete.
func (in *Input) Focus() {
	in.mu.Lock()
	if in.closed || utf8.RuneCountInString(in.st.Value) < MinQueryLen {
		in.mu.Unlock()
		return
	}
	in.st.Open = true
	in.scheduleLocked()
	in.mu.Unlock()
	in.notify()
}

// Blur hides the list, as clicking outside the field does.
func (in *Input) Blur() {
	in.mu.Lock()
	in.st.Open = false
	in.scheduleLocked()
	in.mu.Unlock()
	in.notify()
}

// Select takes a suggestion as the value and closes the list.
func (in *Input) Select(s string) {
	in.mu.Lock()
	in.stopLocked()
	in.st.Value = s
	in.st.Open = false
	in.st.Suggestions = nil
	in.st.Loading = false
	in.mu.Unlock()
	in.notify()
}

// Clear empties the value and the list.
func (in *Input) Clear() {
	in.mu.Lock()
	in.stopLocked()
	in.st.Value = ""
	in.st.Suggestions = nil
	in.st.Loading = false
	in.mu.Unlock()
	in.notify()
}

// Close cancels the pending timer and any lookup in flight. Later edits are
// ignored. It is safe to call more than once.
func (in *Input) Close() {
	in.mu.Lock()
	in.closed = true
	in.stopLocked()
	in.mu.Unlock()
	in.cancel()
}

// scheduleLocked supersedes any pending or in-flight lookup.
func (in *Input) scheduleLocked() {
	in.stopLocked()
	gen := in.gen
	in.timer = in.clk.AfterFunc(in.debounce, func() { in.fire(gen) })
}

func (in *Input) stopLocked() {
	in.gen++
	if in.timer != nil {
		in.timer.Stop()
		in.timer = nil
	}
}

func (in *Input) fire(gen uint64) {
	in.mu.Lock()
	if gen != in.gen || in.closed {
		in.mu.Unlock()
		return
	}
	in.timer = nil
	value, open := in.st.Value, in.st.Open
	if !open || utf8.RuneCountInString(value) < MinQueryLen {
		in.st.Suggestions = nil
		in.st.Loading = false
		in.mu.Unlock()
		in.notify()
		return
	}
	in.st.Loading = true
	in.mu.Unlock()
	in.notify()

	results := in.suggester.PlaceSuggestions(in.ctx, value)

	in.mu.Lock()
	if gen != in.gen || in.closed {
		in.mu.Unlock()
		return
	}
	in.st.Loading = false
	in.st.Suggestions = slices.Clone(results)
	in.mu.Unlock()
	in.notify()
}

func (in *Input) notify() {
	in.mu.Lock()
	cb := in.onChange
	in.mu.Unlock()
	if cb != nil {
		cb()
	}
}
