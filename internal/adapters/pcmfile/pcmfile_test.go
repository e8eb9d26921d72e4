package pcmfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	memclock "github.com/nexusflow/nexusflow-client/internal/adapters/memory/clock"
	"github.com/nexusflow/nexusflow-client/internal/platform/audio"
)

func TestMicrophone_ReplaysFileInFrames(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "in.pcm")
	if err := os.WriteFile(path, audio.EncodeLE([]int16{16384, -16384, 0, 8192, 1}), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	mic := &Microphone{Path: path, FrameSamples: 2}
	frames, err := mic.Open(context.Background(), 16000)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var got [][]float32
	for f := range frames {
		got = append(got, f)
	}
	if len(got) != 3 {
		t.Fatalf("frames=%d, want 3 (last one short)", len(got))
	}
	if got[0][0] != 0.5 || got[0][1] != -0.5 || len(got[2]) != 1 {
		t.Fatalf("frames=%v", got)
	}
	if err := mic.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := mic.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestMicrophone_CloseStopsBlockedReader(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "in.pcm")
	if err := os.WriteFile(path, make([]byte, 2*DefaultFrameSamples*4), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mic := &Microphone{Path: path}
	frames, err := mic.Open(context.Background(), 16000)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	<-frames

	done := make(chan struct{})
	go func() { _ = mic.Close(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close did not return")
	}
}

func TestMicrophone_MissingFile(t *testing.T) {
	t.Parallel()
	mic := &Microphone{Path: filepath.Join(t.TempDir(), "absent.pcm")}
	if _, err := mic.Open(context.Background(), 16000); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSpeaker_RendersTimelineAndTruncatesStopped(t *testing.T) {
	t.Parallel()
	clk := memclock.NewManualClock(time.Unix(0, 0))
	path := filepath.Join(t.TempDir(), "out.pcm")
	sp := NewSpeaker(path, clk)

	// 1000 Hz keeps the arithmetic readable: one sample per millisecond.
	if _, err := sp.Schedule([]int16{1, 2, 3, 4}, 1000, 2*time.Millisecond); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	src, err := sp.Schedule([]int16{5, 6, 7, 8}, 1000, 6*time.Millisecond)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	clk.Advance(8 * time.Millisecond)
	if sp.Now() != 8*time.Millisecond {
		t.Fatalf("Now()=%v", sp.Now())
	}
	src.Stop()

	if err := sp.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sp.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := sp.Schedule([]int16{1}, 1000, 0); err == nil {
		t.Fatalf("Schedule after Close succeeded")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := audio.DecodeLE(b)
	want := []int16{0, 0, 1, 2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("samples=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples=%v, want %v", got, want)
		}
	}
}
