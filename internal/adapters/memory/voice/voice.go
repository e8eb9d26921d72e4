// Package voice provides in-memory voice session and audio device fakes.
package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nexusflow/nexusflow-client/internal/ports/out/voice"
)

var ErrClosed = errors.New("voice fake: closed")

// Session is a scripted voice.Session. Emit pushes server events; End
// simulates a remote close.
type Session struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool

	events  chan voice.Event
	endOnce sync.Once
}

func NewSession() *Session {
	return &Session{events: make(chan voice.Event, 64)}
}

func (s *Session) SendAudio(ctx context.Context, pcm []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.sent = append(s.sent, append([]byte(nil), pcm...))
	return nil
}

func (s *Session) Events() <-chan voice.Event { return s.events }

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.End()
	return nil
}

// Emit delivers ev to the consumer. It is a no-op after End.
func (s *Session) Emit(ev voice.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// End closes the event stream.
func (s *Session) End() {
	s.endOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()
	})
}

func (s *Session) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Dialer hands out Session, or fails with Err.
type Dialer struct {
	mu      sync.Mutex
	Session *Session
	Err     error
	configs []voice.Config
}

func (d *Dialer) Dial(ctx context.Context, cfg voice.Config) (voice.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configs = append(d.configs, cfg)
	if d.Err != nil {
		return nil, d.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Session, nil
}

func (d *Dialer) Configs() []voice.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]voice.Config(nil), d.configs...)
}

// Microphone emits frames pushed with Feed.
type Microphone struct {
	mu     sync.Mutex
	frames chan []float32
	rate   int
	opens  int
	closed bool
	Err    error
}

func (m *Microphone) Open(ctx context.Context, sampleRate int) (<-chan []float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.frames = make(chan []float32, 16)
	m.rate = sampleRate
	m.opens++
	m.closed = false
	return m.frames, nil
}

// Feed delivers one captured frame. It reports false when capture is not running.
func (m *Microphone) Feed(frame []float32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frames == nil || m.closed {
		return false
	}
	m.frames <- frame
	return true
}

func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frames != nil && !m.closed {
		close(m.frames)
	}
	m.closed = true
	return nil
}

func (m *Microphone) SampleRate() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rate
}

// Running reports whether capture is open.
func (m *Microphone) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames != nil && !m.closed
}

// Scheduled is one chunk handed to Speaker.
type Scheduled struct {
	At         time.Duration
	Samples    []int16
	SampleRate int
	stopped    bool
}

func (s *Scheduled) Stopped() bool { return s.stopped }

type source struct {
	sp *Speaker
	s  *Scheduled
}

func (src source) Stop() {
	src.sp.mu.Lock()
	defer src.sp.mu.Unlock()
	src.s.stopped = true
}

// Speaker records scheduled chunks on a timeline moved by SetNow.
type Speaker struct {
	mu     sync.Mutex
	now    time.Duration
	chunks []*Scheduled
	closed bool
}

func (sp *Speaker) Now() time.Duration {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.now
}

func (sp *Speaker) SetNow(d time.Duration) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.now = d
}

func (sp *Speaker) Schedule(samples []int16, sampleRate int, at time.Duration) (voice.Source, error) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.closed {
		return nil, ErrClosed
	}
	s := &Scheduled{At: at, Samples: append([]int16(nil), samples...), SampleRate: sampleRate}
	sp.chunks = append(sp.chunks, s)
	return source{sp: sp, s: s}, nil
}

func (sp *Speaker) Close() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.closed = true
	return nil
}

// Chunks returns snapshots of every scheduled chunk in scheduling order.
func (sp *Speaker) Chunks() []Scheduled {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]Scheduled, 0, len(sp.chunks))
	for _, c := range sp.chunks {
		out = append(out, *c)
	}
	return out
}

func (sp *Speaker) Closed() bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.closed
}
