package codec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"

	"github.com/satindergrewal/confluence/internal/audio"
)

// ErrUnsupportedWAV is returned by DecodeWAV for files the native decoder
// cannot read (non-PCM payloads, broken headers).
var ErrUnsupportedWAV = errors.New("codec: unsupported wav")

// Decode reads an audio file into a buffer. WAV files are decoded natively
// at their own rate and channel count; anything else, and any WAV the native
// decoder rejects, goes through FFmpeg.
func Decode(ctx context.Context, path string) (*audio.Buffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		b, err := DecodeWAV(f)
		f.Close()
		if err == nil {
			return b, nil
		}
		log.Debug().Err(err).Str("path", path).Msg("Native WAV decode failed, trying ffmpeg")
	}
	return decodeFFmpeg(ctx, path)
}

// DecodeWAV decodes integer PCM WAV data.
func DecodeWAV(r io.ReadSeeker) (*audio.Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrUnsupportedWAV
	}
	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, d.WavAudioFormat)
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav decode: %w", err)
	}

	depth := int(d.BitDepth)
	if depth <= 0 || depth > 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrUnsupportedWAV, depth)
	}
	full := float64(int64(1) << (depth - 1))
	samples := make([]float64, len(pcm.Data))
	for i, v := range pcm.Data {
		if depth == 8 {
			// 8-bit WAV is unsigned.
			v -= 128
		}
		samples[i] = float64(v) / full
	}
	return audio.New(int(d.SampleRate), int(d.NumChans), samples), nil
}
