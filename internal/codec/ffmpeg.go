package codec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/satindergrewal/confluence/internal/audio"
)

// FFmpeg is the binary used for every format not handled natively.
var FFmpeg = "ffmpeg"

// decodeFFmpeg runs FFmpeg to decode any audio file to 48kHz stereo s16le.
func decodeFFmpeg(ctx context.Context, path string) (*audio.Buffer, error) {
	cmd := exec.CommandContext(ctx, FFmpeg,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-loglevel", "error",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w%s", path, err, stderrSuffix(&stderr))
	}
	return FromInt16(audio.SampleRate, audio.Channels, BytesToSamples(out)), nil
}

// encodeFFmpeg pipes the buffer as s16le into FFmpeg and lets it write path
// with the given codec arguments.
func encodeFFmpeg(ctx context.Context, path string, b *audio.Buffer, codecArgs ...string) error {
	args := []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(b.SampleRate),
		"-ac", strconv.Itoa(b.Channels),
		"-i", "pipe:0",
	}
	args = append(args, codecArgs...)
	args = append(args, "-loglevel", "error", "-y", path)

	cmd := exec.CommandContext(ctx, FFmpeg, args...)
	cmd.Stdin = bytes.NewReader(SamplesToBytes(ToInt16(b)))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w%s", path, err, stderrSuffix(&stderr))
	}
	return nil
}

func stderrSuffix(b *bytes.Buffer) string {
	msg := strings.TrimSpace(b.String())
	if msg == "" {
		return ""
	}
	return ": " + msg
}
