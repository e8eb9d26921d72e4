package audio

import (
	"testing"
	"time"
)

func TestFloatToPCM16_ScalesAndClamps(t *testing.T) {
	got := FloatToPCM16([]float32{0, 0.5, -0.5, 1, -1, 2, -2})
	want := []int16{0, 16384, -16384, 32767, -32768, 32767, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d=%d, want %d", i, got[i], want[i])
		}
	}
}

func TestEncodeDecodeLE(t *testing.T) {
	in := []int16{1, -2, 32767, -32768}
	b := EncodeLE(in)
	if len(b) != 8 || b[0] != 1 || b[1] != 0 || b[2] != 0xfe || b[3] != 0xff {
		t.Fatalf("EncodeLE=%v", b)
	}
	out := DecodeLE(append(b, 0x7f))
	if len(out) != len(in) {
		t.Fatalf("DecodeLE len=%d, want %d (odd byte dropped)", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d=%d, want %d", i, out[i], in[i])
		}
	}
	if f := PCM16ToFloat([]int16{-32768})[0]; f != -1 {
		t.Fatalf("PCM16ToFloat=%v", f)
	}
}

func TestDuration(t *testing.T) {
	if d := Duration(24000, 24000); d != time.Second {
		t.Fatalf("Duration=%v", d)
	}
	if d := Duration(4096, 16000); d != 256*time.Millisecond {
		t.Fatalf("Duration=%v", d)
	}
	if d := Duration(10, 0); d != 0 {
		t.Fatalf("Duration with zero rate=%v", d)
	}
}
