package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memvoice "github.com/nexusflow/nexusflow-client/internal/adapters/memory/voice"
	"github.com/nexusflow/nexusflow-client/internal/platform/audio"
	portvoice "github.com/nexusflow/nexusflow-client/internal/ports/out/voice"
)

type rig struct {
	c       *Controller
	sess    *memvoice.Session
	dialer  *memvoice.Dialer
	mic     *memvoice.Microphone
	speaker *memvoice.Speaker
	changes chan struct{}
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		sess:    memvoice.NewSession(),
		mic:     &memvoice.Microphone{},
		speaker: &memvoice.Speaker{},
		changes: make(chan struct{}, 256),
	}
	r.dialer = &memvoice.Dialer{Session: r.sess}
	r.c = New(Deps{
		Dialer:     r.dialer,
		Microphone: r.mic,
		NewSpeaker: func() (portvoice.Speaker, error) { return r.speaker, nil },
		Model:      "live-model",
		Log:        zerolog.Nop(),
		OnChange: func() {
			select {
			case r.changes <- struct{}{}:
			default:
			}
		},
	})
	t.Cleanup(r.c.Stop)
	return r
}

// chunk returns n samples of PCM16 audio as wire bytes.
func chunk(n int) []byte { return audio.EncodeLE(make([]int16, n)) }

func TestStart_WithoutCredential(t *testing.T) {
	t.Parallel()
	c := New(Deps{Log: zerolog.Nop()})
	require.ErrorIs(t, c.Start(context.Background()), ErrNoCredential)
	assert.Equal(t, StateIdle, c.State())
	c.Stop()
}

func TestStart_ConfiguresSessionAndStreamsMic(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	require.NoError(t, r.c.Start(context.Background()))
	assert.Equal(t, StateActive, r.c.State())
	require.ErrorIs(t, r.c.Start(context.Background()), ErrAlreadyActive)

	cfgs := r.dialer.Configs()
	require.Len(t, cfgs, 1)
	assert.Equal(t, "live-model", cfgs[0].Model)
	assert.Equal(t, "Zephyr", cfgs[0].VoiceName)
	assert.Equal(t, Persona, cfgs[0].SystemInstruction)
	assert.Equal(t, 16000, cfgs[0].InputSampleRate)
	assert.Equal(t, 24000, cfgs[0].OutputSampleRate)
	assert.True(t, cfgs[0].InputTranscription)
	assert.True(t, cfgs[0].OutputTranscription)
	assert.Equal(t, 16000, r.mic.SampleRate())

	require.True(t, r.mic.Feed([]float32{0.5, -0.5}))
	require.Eventually(t, func() bool { return len(r.sess.Sent()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, audio.EncodeLE([]int16{16384, -16384}), r.sess.Sent()[0])
}

func TestStart_WhileActiveReturnsPromptly(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	require.NoError(t, r.c.Start(context.Background()))

	errc := make(chan error, 1)
	go func() { errc <- r.c.Start(context.Background()) }()
	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrAlreadyActive)
	case <-time.After(2 * time.Second):
		t.Fatal("second Start did not return while a session was running")
	}
	assert.Equal(t, StateActive, r.c.State())
	assert.Len(t, r.dialer.Configs(), 1)
}

func TestPlayback_GaplessThenResetOnInterrupt(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	require.NoError(t, r.c.Start(context.Background()))

	r.speaker.SetNow(100 * time.Millisecond)
	r.sess.Emit(portvoice.Event{Audio: chunk(2400)}) // 100ms
	r.sess.Emit(portvoice.Event{Audio: chunk(4800)}) // 200ms
	require.Eventually(t, func() bool { return len(r.speaker.Chunks()) == 2 }, time.Second, time.Millisecond)

	got := r.speaker.Chunks()
	assert.Equal(t, 100*time.Millisecond, got[0].At, "first chunk starts now")
	assert.Equal(t, 200*time.Millisecond, got[1].At, "second chunk follows the first")
	assert.Equal(t, OutputSampleRate, got[1].SampleRate)

	r.sess.Emit(portvoice.Event{Interrupted: true})
	require.Eventually(t, func() bool {
		cs := r.speaker.Chunks()
		return cs[0].Stopped() && cs[1].Stopped()
	}, time.Second, time.Millisecond)

	// After an interruption scheduling restarts from the playback clock.
	r.speaker.SetNow(150 * time.Millisecond)
	r.sess.Emit(portvoice.Event{Audio: chunk(240)})
	require.Eventually(t, func() bool { return len(r.speaker.Chunks()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 150*time.Millisecond, r.speaker.Chunks()[2].At)
	assert.False(t, r.speaker.Chunks()[2].Stopped())
}

func TestPlayback_DrainedQueueStartsAtNow(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	require.NoError(t, r.c.Start(context.Background()))

	r.sess.Emit(portvoice.Event{Audio: chunk(240)}) // 10ms at t=0
	require.Eventually(t, func() bool { return len(r.speaker.Chunks()) == 1 }, time.Second, time.Millisecond)
	r.speaker.SetNow(time.Second)
	r.sess.Emit(portvoice.Event{Audio: chunk(240)})
	require.Eventually(t, func() bool { return len(r.speaker.Chunks()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, time.Second, r.speaker.Chunks()[1].At)
}

func TestTranscript_KeepsLastFiveLines(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	require.NoError(t, r.c.Start(context.Background()))

	r.sess.Emit(portvoice.Event{InputText: "fastest split to Terminal 2"})
	r.sess.Emit(portvoice.Event{OutputText: "Take the metro.", InputText: "and then?"})
	for i := range 4 {
		r.sess.Emit(portvoice.Event{OutputText: fmt.Sprintf("line %d", i)})
	}
	require.Eventually(t, func() bool {
		tr := r.c.Transcript()
		return len(tr) == TranscriptLines && tr[len(tr)-1] == "Oracle: line 3"
	}, time.Second, time.Millisecond)

	assert.Equal(t, []string{"You: and then?", "Oracle: line 0", "Oracle: line 1", "Oracle: line 2", "Oracle: line 3"}, r.c.Transcript())
}

func TestStop_ReleasesEverythingAndIsIdempotent(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	require.NoError(t, r.c.Start(context.Background()))
	r.sess.Emit(portvoice.Event{Audio: chunk(24000)})
	require.Eventually(t, func() bool { return len(r.speaker.Chunks()) == 1 }, time.Second, time.Millisecond)

	r.c.Stop()
	r.c.Stop()

	assert.Equal(t, StateIdle, r.c.State())
	assert.True(t, r.sess.Closed())
	assert.True(t, r.speaker.Closed())
	assert.False(t, r.mic.Running())
	assert.True(t, r.speaker.Chunks()[0].Stopped())
}

func TestRemoteClose_ReturnsToIdleAndCanRestart(t *testing.T) {
	t.Parallel()
	r := newRig(t)
	require.NoError(t, r.c.Start(context.Background()))

	r.sess.End()
	require.Eventually(t, func() bool { return r.c.State() == StateIdle }, time.Second, time.Millisecond)
	assert.True(t, r.speaker.Closed())
	assert.False(t, r.mic.Running())

	next := memvoice.NewSession()
	r.dialer.Session = next
	require.NoError(t, r.c.Start(context.Background()))
	assert.Equal(t, StateActive, r.c.State())
}

func TestStart_FailuresLeaveIdle(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	r.dialer.Err = errors.New("handshake refused")
	require.Error(t, r.c.Start(context.Background()))
	assert.Equal(t, StateIdle, r.c.State())

	r2 := newRig(t)
	r2.mic.Err = errors.New("no input device")
	require.Error(t, r2.c.Start(context.Background()))
	assert.Equal(t, StateIdle, r2.c.State())
	assert.True(t, r2.sess.Closed(), "session is closed when capture cannot start")
	assert.True(t, r2.speaker.Closed())
}
