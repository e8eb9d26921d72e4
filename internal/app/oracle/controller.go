// Package oracle runs the real-time voice assistant session.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexusflow/nexusflow-client/internal/platform/audio"
	"github.com/nexusflow/nexusflow-client/internal/ports/out/voice"
)

const (
	VoiceName        = "Zephyr"
	Persona          = "You are Nexus Oracle, a helpful city co-pilot. Direct, smart, and futuristic."
	InputSampleRate  = 16000
	OutputSampleRate = 24000

	// TranscriptLines is how many transcript lines are kept.
	TranscriptLines = 5
)

var (
	ErrNoCredential  = errors.New("oracle: a model API key is required")
	ErrAlreadyActive = errors.New("oracle: session already running")
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
)

type Deps struct {
	// Dialer is nil when no credential is configured.
	Dialer     voice.Dialer
	Microphone voice.Microphone
	NewSpeaker func() (voice.Speaker, error)
	Model      string
	Log        zerolog.Logger

	// OnChange, if set, is called after state or transcript changes. It runs
	// without locks held and may be called from any goroutine.
	OnChange func()
}

type playing struct {
	src voice.Source
	end time.Duration
}

// Controller owns one voice session at a time.
type Controller struct {
	deps Deps
	log  zerolog.Logger

	mu         sync.Mutex
	state      State
	session    voice.Session
	speaker    voice.Speaker
	cancel     context.CancelFunc
	next       time.Duration
	sources    []playing
	transcript []string
	// drained closes once the goroutines of the last session have exited.
	drained chan struct{}

	wg sync.WaitGroup
}

func New(deps Deps) *Controller {
	return &Controller{
		deps:  deps,
		log:   deps.Log.With().Str("component", "oracle").Logger(),
		state: StateIdle,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns the most recent lines, oldest first.
func (c *Controller) Transcript() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.transcript...)
}

func (c *Controller) sessionConfig() voice.Config {
	return voice.Config{
		Model:               c.deps.Model,
		VoiceName:           VoiceName,
		SystemInstruction:   Persona,
		InputSampleRate:     InputSampleRate,
		OutputSampleRate:    OutputSampleRate,
		InputTranscription:  true,
		OutputTranscription: true,
	}
}

// Start connects, opens capture and playback, and begins streaming. ctx bounds
// only the connection attempt; the session runs until Stop or a remote close.
func (c *Controller) Start(ctx context.Context) error {
	if c.deps.Dialer == nil {
		return ErrNoCredential
	}
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	c.state = StateConnecting
	prev := c.drained
	c.mu.Unlock()
	c.notify()

	// Goroutines of a remotely closed session may still be draining.
	if prev != nil {
		<-prev
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sess, spk, frames, err := c.open(ctx, runCtx)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		c.notify()
		return err
	}

	drained := make(chan struct{})
	c.mu.Lock()
	c.session = sess
	c.speaker = spk
	c.cancel = cancel
	c.next = 0
	c.sources = nil
	c.state = StateActive
	c.drained = drained
	c.mu.Unlock()

	var run sync.WaitGroup
	run.Add(2)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		run.Wait()
		close(drained)
	}()
	go func() { defer run.Done(); c.pump(runCtx, sess, frames) }()
	go func() { defer run.Done(); c.consume(sess) }()

	c.log.Info().Msg("voice session started")
	c.notify()
	return nil
}

// open dials within ctx. Capture runs under runCtx.
func (c *Controller) open(ctx, runCtx context.Context) (voice.Session, voice.Speaker, <-chan []float32, error) {
	sess, err := c.deps.Dialer.Dial(ctx, c.sessionConfig())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect voice session: %w", err)
	}
	spk, err := c.deps.NewSpeaker()
	if err != nil {
		_ = sess.Close()
		return nil, nil, nil, fmt.Errorf("open speaker: %w", err)
	}
	frames, err := c.deps.Microphone.Open(runCtx, InputSampleRate)
	if err != nil {
		_ = spk.Close()
		_ = sess.Close()
		return nil, nil, nil, fmt.Errorf("open microphone: %w", err)
	}
	return sess, spk, frames, nil
}

// Stop ends the session and releases the session, microphone and speaker.
// It is idempotent.
func (c *Controller) Stop() {
	c.release(nil)
	c.wg.Wait()
}

// release tears down the current session. With only set, it does nothing
// unless only is still the current session.
func (c *Controller) release(only voice.Session) {
	c.mu.Lock()
	if c.session == nil || (only != nil && c.session != only) {
		c.mu.Unlock()
		return
	}
	sess, spk, cancel := c.session, c.speaker, c.cancel
	c.stopPlaybackLocked()
	c.session, c.speaker, c.cancel = nil, nil, nil
	c.state = StateIdle
	c.mu.Unlock()

	cancel()
	if err := c.deps.Microphone.Close(); err != nil {
		c.log.Warn().Err(err).Msg("close microphone")
	}
	if err := sess.Close(); err != nil {
		c.log.Warn().Err(err).Msg("close voice session")
	}
	if err := spk.Close(); err != nil {
		c.log.Warn().Err(err).Msg("close speaker")
	}
	c.log.Info().Msg("voice session stopped")
	c.notify()
}

func (c *Controller) pump(ctx context.Context, sess voice.Session, frames <-chan []float32) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			pcm := audio.EncodeLE(audio.FloatToPCM16(f))
			if err := sess.SendAudio(ctx, pcm); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn().Err(err).Msg("send audio")
			}
		}
	}
}

func (c *Controller) consume(sess voice.Session) {
	for ev := range sess.Events() {
		c.handle(sess, ev)
	}
	c.release(sess)
}

func (c *Controller) handle(sess voice.Session, ev voice.Event) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	changed := false
	if len(ev.Audio) > 0 {
		c.scheduleLocked(audio.DecodeLE(ev.Audio))
	}
	if ev.OutputText != "" {
		c.appendLineLocked("Oracle: " + ev.OutputText)
		changed = true
	}
	if ev.InputText != "" {
		c.appendLineLocked("You: " + ev.InputText)
		changed = true
	}
	if ev.Interrupted {
		c.stopPlaybackLocked()
	}
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// scheduleLocked queues samples gaplessly after whatever is already queued,
// or at the current playback time if the queue has drained.
func (c *Controller) scheduleLocked(samples []int16) {
	if len(samples) == 0 {
		return
	}
	now := c.speaker.Now()
	at := max(c.next, now)
	src, err := c.speaker.Schedule(samples, OutputSampleRate, at)
	if err != nil {
		c.log.Warn().Err(err).Msg("schedule playback")
		return
	}
	end := at + audio.Duration(len(samples), OutputSampleRate)
	c.next = end

	live := c.sources[:0]
	for _, p := range c.sources {
		if p.end > now {
			live = append(live, p)
		}
	}
	c.sources = append(live, playing{src: src, end: end})
}

func (c *Controller) stopPlaybackLocked() {
	for _, p := range c.sources {
		p.src.Stop()
	}
	c.sources = nil
	c.next = 0
}

func (c *Controller) appendLineLocked(line string) {
	c.transcript = append(c.transcript, line)
	if n := len(c.transcript); n > TranscriptLines {
		c.transcript = append([]string(nil), c.transcript[n-TranscriptLines:]...)
	}
}

func (c *Controller) notify() {
	if c.deps.OnChange != nil {
		c.deps.OnChange()
	}
}
