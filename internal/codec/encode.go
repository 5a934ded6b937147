package codec

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"

	"github.com/satindergrewal/confluence/internal/audio"
)

// Format is an export container/codec.
type Format int

const (
	WAV Format = iota
	MP3
	FLAC
	Opus
)

// ParseFormat maps "wav" (or ""), "mp3", "flac" and "opus".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wav":
		return WAV, nil
	case "mp3":
		return MP3, nil
	case "flac":
		return FLAC, nil
	case "opus", "ogg":
		return Opus, nil
	}
	return WAV, fmt.Errorf("unknown format %q", s)
}

func (f Format) String() string {
	switch f {
	case MP3:
		return "mp3"
	case FLAC:
		return "flac"
	case Opus:
		return "opus"
	}
	return "wav"
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == Opus {
		return ".ogg"
	}
	return "." + f.String()
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case MP3:
		return "audio/mpeg"
	case FLAC:
		return "audio/flac"
	case Opus:
		return "audio/ogg"
	}
	return "audio/wav"
}

// DefaultBitrate applies to MP3 and Opus when Options.Bitrate is empty.
const DefaultBitrate = "192k"

// Options controls EncodeFile.
type Options struct {
	Format  Format
	Bitrate string // "192k"; ignored by WAV and FLAC
	Mono    bool
}

// EncodeFile writes b to path in the requested format.
func EncodeFile(ctx context.Context, path string, b *audio.Buffer, opts Options) error {
	if opts.Mono {
		b = b.ToMono()
	}
	if opts.Bitrate == "" {
		opts.Bitrate = DefaultBitrate
	}

	switch opts.Format {
	case MP3:
		return encodeFFmpeg(ctx, path, b, "-c:a", "libmp3lame", "-b:a", opts.Bitrate)
	case FLAC:
		return encodeFFmpeg(ctx, path, b, "-c:a", "flac")
	case Opus:
		bps, err := ParseBitrate(opts.Bitrate)
		if err != nil {
			return err
		}
		return writeFile(path, func(f *os.File) error { return EncodeOpus(f, b, bps) })
	default:
		return writeFile(path, func(f *os.File) error { return EncodeWAV(f, b) })
	}
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// EncodeWAV writes b as 16-bit PCM WAV.
func EncodeWAV(w io.WriteSeeker, b *audio.Buffer) error {
	enc := wav.NewEncoder(w, b.SampleRate, audio.BitDepth, b.Channels, 1)

	pcm := ToInt16(b)
	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           data,
		SourceBitDepth: audio.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav encode: %w", err)
	}
	return nil
}

const (
	opusRate        = 48000
	opusFrameFrames = opusRate / 50 // 20ms
)

// EncodeOpus writes b as Ogg Opus at bitrate bits per second. The buffer is
// resampled to 48kHz and at most two channels first.
func EncodeOpus(w io.Writer, b *audio.Buffer, bitrate int) error {
	ch := min(b.Channels, 2)
	b = b.Conform(opusRate, ch)

	enc, err := opus.NewEncoder(opusRate, ch, opus.AppAudio)
	if err != nil {
		return fmt.Errorf("opus encoder: %w", err)
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return fmt.Errorf("opus bitrate %d: %w", bitrate, err)
	}

	// oggwriter closes writers that implement io.Closer; the caller owns w.
	ogg, err := oggwriter.NewWith(struct{ io.Writer }{w}, opusRate, uint16(ch))
	if err != nil {
		return fmt.Errorf("ogg writer: %w", err)
	}

	pcm := ToInt16(b)
	frame := make([]int16, opusFrameFrames*ch)
	packet := make([]byte, 4000)
	var seq uint16
	var ts uint32
	for pos := 0; pos < len(pcm); pos += len(frame) {
		n := copy(frame, pcm[pos:])
		clear(frame[n:])

		size, err := enc.Encode(frame, packet)
		if err != nil {
			ogg.Close()
			return fmt.Errorf("opus encode: %w", err)
		}
		p := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				SequenceNumber: seq,
				Timestamp:      ts,
			},
			Payload: append([]byte(nil), packet[:size]...),
		}
		if err := ogg.WriteRTP(p); err != nil {
			ogg.Close()
			return fmt.Errorf("ogg write: %w", err)
		}
		seq++
		ts += opusFrameFrames
	}
	return ogg.Close()
}
