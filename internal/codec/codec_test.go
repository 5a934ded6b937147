package codec

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/satindergrewal/confluence/internal/audio"
)

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	b := SamplesToBytes(samples)
	if len(b) != 10 {
		t.Fatalf("len = %d, want 10", len(b))
	}
	// -1 as little-endian int16 is 0xFF 0xFF
	if b[4] != 0xFF || b[5] != 0xFF {
		t.Errorf("bytes for -1 = %02x %02x, want ff ff", b[4], b[5])
	}
	got := BytesToSamples(append(b, 0x7F))
	if len(got) != len(samples) {
		t.Fatalf("round trip len = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestToInt16Clips(t *testing.T) {
	b := audio.New(48000, 1, []float64{0, 0.5, -0.5, 1.5, -2, math.NaN()})
	got := ToInt16(b)
	want := []int16{0, 16384, -16384, 32767, -32768, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToInt16[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestParseBitrate(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"192k", 192000, false},
		{"320K", 320000, false},
		{"96000", 96000, false},
		{"", 0, true},
		{"fast", 0, true},
		{"-5k", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBitrate(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBitrate(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ext  string
		mime string
	}{
		{"", WAV, ".wav", "audio/wav"},
		{"MP3", MP3, ".mp3", "audio/mpeg"},
		{"flac", FLAC, ".flac", "audio/flac"},
		{"opus", Opus, ".ogg", "audio/ogg"},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
			continue
		}
		if got.Ext() != tt.ext || got.ContentType() != tt.mime {
			t.Errorf("%v: ext %q mime %q", got, got.Ext(), got.ContentType())
		}
	}
	if _, err := ParseFormat("aiff"); err == nil {
		t.Error("ParseFormat(aiff) should fail")
	}
}

func ramp(rate, channels, frames int) *audio.Buffer {
	s := make([]float64, frames*channels)
	for i := range s {
		s[i] = float64(i%200)/200 - 0.5
	}
	return audio.New(rate, channels, s)
}

func TestWAVRoundTrip(t *testing.T) {
	for _, tc := range []struct{ rate, ch int }{{48000, 2}, {44100, 1}, {22050, 2}} {
		in := ramp(tc.rate, tc.ch, 4410)
		path := filepath.Join(t.TempDir(), "mix.wav")
		if err := EncodeFile(context.Background(), path, in, Options{Format: WAV}); err != nil {
			t.Fatalf("EncodeFile: %v", err)
		}
		out, err := Decode(context.Background(), path)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if out.SampleRate != tc.rate || out.Channels != tc.ch || out.Frames() != in.Frames() {
			t.Fatalf("decoded %d Hz %d ch %d frames, want %d Hz %d ch %d frames",
				out.SampleRate, out.Channels, out.Frames(), tc.rate, tc.ch, in.Frames())
		}
		for i := range in.Samples {
			if math.Abs(out.Samples[i]-in.Samples[i]) > 1e-4 {
				t.Fatalf("sample %d = %v, want %v", i, out.Samples[i], in.Samples[i])
			}
		}
	}
}

func TestWAVMonoOption(t *testing.T) {
	in := ramp(48000, 2, 480)
	path := filepath.Join(t.TempDir(), "mono.wav")
	if err := EncodeFile(context.Background(), path, in, Options{Format: WAV, Mono: true}); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	out, err := DecodeWAV(f)
	if err != nil {
		t.Fatal(err)
	}
	if out.Channels != 1 || out.Frames() != 480 {
		t.Errorf("mono export = %d ch %d frames, want 1 ch 480 frames", out.Channels, out.Frames())
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, err := DecodeWAV(bytes.NewReader([]byte("definitely not a riff file")))
	if !errors.Is(err, ErrUnsupportedWAV) {
		t.Errorf("err = %v, want ErrUnsupportedWAV", err)
	}
}
