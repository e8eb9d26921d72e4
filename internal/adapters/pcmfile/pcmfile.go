// Package pcmfile provides file-backed audio devices so the voice assistant
// can run without sound hardware. Files hold raw mono little-endian PCM16.
package pcmfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/nexusflow/nexusflow-client/internal/platform/audio"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/clock"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/voice"
)

// DefaultFrameSamples matches the capture buffer size of browser microphones.
const DefaultFrameSamples = 4096

// Microphone replays a PCM16 file as capture frames.
type Microphone struct {
	Path         string
	FrameSamples int
	// Realtime paces frames at the capture rate instead of as fast as possible.
	Realtime bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ voice.Microphone = (*Microphone)(nil)

func (m *Microphone) Open(ctx context.Context, sampleRate int) (<-chan []float32, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}
	n := m.FrameSamples
	if n <= 0 {
		n = DefaultFrameSamples
	}

	m.mu.Lock()
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	out := make(chan []float32)
	go func() {
		defer close(done)
		defer close(out)
		defer f.Close()

		var tick <-chan time.Time
		if m.Realtime {
			t := time.NewTicker(audio.Duration(n, sampleRate))
			defer t.Stop()
			tick = t.C
		}
		buf := make([]byte, 2*n)
		for {
			k, err := io.ReadFull(f, buf)
			if k >= 2 {
				frame := audio.PCM16ToFloat(audio.DecodeLE(buf[:k]))
				select {
				case out <- frame:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				return
			}
			if tick != nil {
				select {
				case <-tick:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close stops capture and waits for the reader to finish.
func (m *Microphone) Close() error {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop = nil
	m.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

type chunk struct {
	at      time.Duration
	samples []int16
	rate    int
	// cut, when set, truncates playback at that timeline position.
	cut *time.Duration
}

// Speaker renders scheduled chunks into a PCM16 file on Close. Chunks are
// placed at their timeline offsets; a stopped chunk keeps only what played
// before Stop.
type Speaker struct {
	path  string
	clk   clock.Clock
	start time.Time

	mu     sync.Mutex
	chunks []*chunk
	closed bool
}

var _ voice.Speaker = (*Speaker)(nil)

func NewSpeaker(path string, clk clock.Clock) *Speaker {
	return &Speaker{path: path, clk: clk, start: clk.Now()}
}

func (s *Speaker) Now() time.Duration { return s.clk.Now().Sub(s.start) }

func (s *Speaker) Schedule(samples []int16, sampleRate int, at time.Duration) (voice.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("pcmfile: speaker closed")
	}
	c := &chunk{at: at, samples: append([]int16(nil), samples...), rate: sampleRate}
	s.chunks = append(s.chunks, c)
	return source{s: s, c: c}, nil
}

type source struct {
	s *Speaker
	c *chunk
}

func (src source) Stop() {
	now := src.s.Now()
	src.s.mu.Lock()
	defer src.s.mu.Unlock()
	if src.c.cut == nil {
		src.c.cut = &now
	}
}

// Close writes the rendered timeline. It is idempotent.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create playback file: %w", err)
	}
	for _, c := range s.chunks {
		samples := c.samples
		if c.cut != nil {
			played := int((*c.cut - c.at) * time.Duration(c.rate) / time.Second)
			samples = samples[:max(0, min(played, len(samples)))]
		}
		if len(samples) == 0 {
			continue
		}
		off := int64(c.at*time.Duration(c.rate)/time.Second) * 2
		if _, err := f.WriteAt(audio.EncodeLE(samples), off); err != nil {
			_ = f.Close()
			return fmt.Errorf("write playback: %w", err)
		}
	}
	return f.Close()
}
