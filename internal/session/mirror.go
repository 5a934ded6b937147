package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/satindergrewal/confluence/internal/codec"
	"github.com/satindergrewal/confluence/internal/confluence"
)

// FileMirror keeps the last result as a 16-bit WAV file. Only the audio is
// durable; a restored snapshot gets a fresh ID and its stats are recomputed.
type FileMirror struct {
	Path string
}

// NewFileMirror stores the mirror as last_mix.wav inside dir.
func NewFileMirror(dir string) *FileMirror {
	return &FileMirror{Path: filepath.Join(dir, "last_mix.wav")}
}

// Save writes to a temp file in the same directory and renames it over Path.
func (m *FileMirror) Save(snap *Snapshot) error {
	dir := filepath.Dir(m.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".mix-*.wav")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := codec.EncodeWAV(f, snap.Buffer); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, m.Path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Load reads the mirror back. A missing file yields ErrNoResult.
func (m *FileMirror) Load() (*Snapshot, error) {
	f, err := os.Open(m.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoResult
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := codec.DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", m.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		ID:         uuid.NewString(),
		Buffer:     buf,
		DurationMs: buf.LengthMs(),
		PeakDBFS:   buf.PeakDBFS(),
		Engine:     confluence.Overlay,
		CreatedAt:  info.ModTime(),
		Path:       m.Path,
	}, nil
}
