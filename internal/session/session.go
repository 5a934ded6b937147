// Package session keeps the last rendered result so it can be exported after
// the request that produced it has returned.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/satindergrewal/confluence/internal/audio"
	"github.com/satindergrewal/confluence/internal/confluence"
)

// ErrNoResult is returned by Last before anything has been published.
var ErrNoResult = errors.New("session: no result yet")

// Snapshot is one published result. It is never modified after Publish.
type Snapshot struct {
	ID         string
	Buffer     *audio.Buffer
	DurationMs int
	PeakDBFS   float64
	Tracks     int
	Engine     confluence.Engine
	Offsets    confluence.Offsets
	CreatedAt  time.Time
	Path       string // mirror file, empty without a FileMirror
}

// Mirror persists the latest snapshot so it survives a restart.
type Mirror interface {
	Save(*Snapshot) error
	Load() (*Snapshot, error)
}

// Session holds the last published snapshot.
type Session struct {
	pub    sync.Mutex // serializes Publish so memory and mirror agree
	mu     sync.RWMutex
	last   *Snapshot
	mirror Mirror
}

// New creates a session. mirror may be nil.
func New(mirror Mirror) *Session {
	return &Session{mirror: mirror}
}

// Publish records res as the last result, writing the mirror first. If the
// mirror write fails the previous result stays current.
func (s *Session) Publish(res *confluence.Result) (*Snapshot, error) {
	if res == nil || res.Buffer == nil {
		return nil, confluence.ErrNoInput
	}
	snap := &Snapshot{
		ID:         uuid.NewString(),
		Buffer:     res.Buffer,
		DurationMs: res.DurationMs(),
		PeakDBFS:   res.PeakDBFS(),
		Tracks:     res.Tracks,
		Engine:     res.Engine,
		Offsets:    res.Offsets,
		CreatedAt:  time.Now(),
	}

	s.pub.Lock()
	defer s.pub.Unlock()

	if s.mirror != nil {
		if err := s.mirror.Save(snap); err != nil {
			return nil, fmt.Errorf("mirror result: %w", err)
		}
		if fm, ok := s.mirror.(*FileMirror); ok {
			snap.Path = fm.Path
		}
	}

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()

	log.Info().
		Str("id", snap.ID).
		Str("engine", snap.Engine.String()).
		Int("tracks", snap.Tracks).
		Int("duration_ms", snap.DurationMs).
		Float64("peak_dbfs", snap.PeakDBFS).
		Msg("Result published")
	return snap, nil
}

// Last returns the last published snapshot. After a restart it falls back to
// the mirror and caches what it finds.
func (s *Session) Last() (*Snapshot, error) {
	s.mu.RLock()
	snap := s.last
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	if s.mirror == nil {
		return nil, ErrNoResult
	}

	s.pub.Lock()
	defer s.pub.Unlock()

	// A publisher may have won while we waited.
	s.mu.RLock()
	snap = s.last
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	snap, err := s.mirror.Load()
	if err != nil {
		if !errors.Is(err, ErrNoResult) {
			log.Warn().Err(err).Msg("Mirror load failed")
		}
		return nil, ErrNoResult
	}

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
	return snap, nil
}
