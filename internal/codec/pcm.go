// Package codec moves audio between files and audio.Buffer. WAV is handled
// natively, Opus through libopus and an Ogg writer, everything else through
// FFmpeg.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/satindergrewal/confluence/internal/audio"
)

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// BytesToSamples converts little-endian s16 bytes to samples. A trailing odd
// byte is ignored.
func BytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return samples
}

// ToInt16 quantizes a buffer to 16-bit, clipping anything outside ±1.
func ToInt16(b *audio.Buffer) []int16 {
	out := make([]int16, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = quantize(s)
	}
	return out
}

// FromInt16 wraps interleaved 16-bit samples as a float buffer.
func FromInt16(sampleRate, channels int, samples []int16) *audio.Buffer {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768
	}
	return audio.New(sampleRate, channels, out)
}

func quantize(s float64) int16 {
	switch {
	case math.IsNaN(s):
		return 0
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return math.MinInt16
	}
	return int16(math.Round(s * 32767))
}

// ParseBitrate parses "192k", "192K" or "192000" into bits per second.
func ParseBitrate(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	mult := 1
	if strings.HasSuffix(s, "k") {
		mult = 1000
		s = strings.TrimSuffix(s, "k")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid bitrate %q", s)
	}
	return n * mult, nil
}
