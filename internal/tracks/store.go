// Package tracks stores uploaded tributaries on disk, one file per slot,
// named M1..M5 with the uploaded file's extension.
package tracks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/satindergrewal/confluence/internal/codec"
	"github.com/satindergrewal/confluence/internal/confluence"
)

// Extensions are tried in this order when a slot is loaded.
var Extensions = []string{".wav", ".mp3", ".flac", ".m4a", ".ogg", ".opus"}

// Store manages the upload directory.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *Store) Dir() string { return s.dir }

func slotName(slot int) string { return fmt.Sprintf("M%d", slot+1) }

func validSlot(slot int) error {
	if slot < 0 || slot >= confluence.Slots {
		return fmt.Errorf("slot %d out of range", slot)
	}
	return nil
}

// Save writes r as the file for slot (0-based), keeping filename's
// extension when it is a known one and defaulting to .wav. Files left in the
// slot under other extensions are removed.
func (s *Store) Save(slot int, filename string, r io.Reader) (string, error) {
	if err := validSlot(slot); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !known(ext) {
		ext = ".wav"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, slotName(slot)+ext)
	f, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("save %s: %w", slotName(slot), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", err
	}

	for _, other := range Extensions {
		if other != ext {
			s.remove(filepath.Join(s.dir, slotName(slot)+other))
		}
	}
	log.Debug().Str("slot", slotName(slot)).Str("path", path).Msg("Track saved")
	return path, nil
}

// Purge deletes the files of every slot not in keep.
func (s *Store) Purge(keep map[int]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot := 0; slot < confluence.Slots; slot++ {
		if keep[slot] {
			continue
		}
		for _, ext := range Extensions {
			s.remove(filepath.Join(s.dir, slotName(slot)+ext))
		}
	}
}

func (s *Store) remove(path string) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("Remove failed")
	}
}

// Path returns the file stored for slot, or "" if the slot is empty.
func (s *Store) Path(slot int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path(slot)
}

func (s *Store) path(slot int) string {
	for _, ext := range Extensions {
		p := filepath.Join(s.dir, slotName(slot)+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load decodes every stored slot. A slot whose file fails to decode is
// treated as absent.
func (s *Store) Load(ctx context.Context) (confluence.Tracks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tr confluence.Tracks
	for slot := 0; slot < confluence.Slots; slot++ {
		if err := ctx.Err(); err != nil {
			return confluence.Tracks{}, err
		}
		p := s.path(slot)
		if p == "" {
			continue
		}
		b, err := codec.Decode(ctx, p)
		if err != nil {
			log.Warn().Err(err).Str("slot", slotName(slot)).Msg("Decode failed, slot skipped")
			continue
		}
		if b.IsEmpty() {
			log.Warn().Str("slot", slotName(slot)).Msg("Track is empty, slot skipped")
			continue
		}
		tr[slot] = b
	}
	return tr, nil
}

// Durations returns each slot's length in ms, 0 for absent slots.
func (s *Store) Durations(ctx context.Context) ([confluence.Slots]int, error) {
	tr, err := s.Load(ctx)
	if err != nil {
		return [confluence.Slots]int{}, err
	}
	return tr.Durations(), nil
}

func known(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
