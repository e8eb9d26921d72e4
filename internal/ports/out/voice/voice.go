package voice

import (
	"context"
	"time"
)

// Config describes a real-time voice session.
type Config struct {
	Model             string
	VoiceName         string
	SystemInstruction string

	// InputSampleRate and OutputSampleRate are mono PCM16 rates in Hz.
	InputSampleRate  int
	OutputSampleRate int

	InputTranscription  bool
	OutputTranscription bool
}

// Event is one message received from the remote session. Several fields may be set at once.
type Event struct {
	// Audio is little-endian PCM16 at Config.OutputSampleRate.
	Audio []byte

	InputText  string
	OutputText string

	// Interrupted means the user spoke over the model: queued playback must stop.
	Interrupted  bool
	TurnComplete bool
}

// Session is an open bidirectional audio session.
type Session interface {
	// SendAudio sends little-endian PCM16 at Config.InputSampleRate.
	SendAudio(ctx context.Context, pcm []byte) error

	// Events is closed when the session ends, whether locally or remotely.
	Events() <-chan Event

	Close() error
}

// Dialer opens sessions against the remote voice service.
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Session, error)
}

// Microphone captures mono float32 frames in [-1, 1].
type Microphone interface {
	// Open starts capture at sampleRate. The returned channel is closed when
	// capture stops.
	Open(ctx context.Context, sampleRate int) (<-chan []float32, error)
	Close() error
}

// Source is one scheduled chunk of playback.
type Source interface {
	Stop()
}

// Speaker plays PCM16 chunks on a timeline.
type Speaker interface {
	// Now is the speaker's current playback time.
	Now() time.Duration

	// Schedule queues samples to start at the given timeline position.
	Schedule(samples []int16, sampleRate int, at time.Duration) (Source, error)

	Close() error
}
