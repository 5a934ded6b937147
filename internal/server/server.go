// Package server exposes the mixer over HTTP: upload the tributaries, then
// preview, render, concatenate and export.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/satindergrewal/confluence/internal/audio"
	"github.com/satindergrewal/confluence/internal/codec"
	"github.com/satindergrewal/confluence/internal/config"
	"github.com/satindergrewal/confluence/internal/confluence"
	"github.com/satindergrewal/confluence/internal/session"
	"github.com/satindergrewal/confluence/internal/tracks"
)

// Version is reported by /health.
var Version = "confluence-v1"

// Server handles every route. One mutex serializes load, mix and publish so
// concurrent requests never see a half-written upload set or result.
type Server struct {
	cfg     config.Config
	store   *tracks.Store
	session *session.Session

	mu  sync.Mutex
	mux *http.ServeMux
}

// New wires the routes.
func New(cfg config.Config, store *tracks.Store, sess *session.Session) *Server {
	s := &Server{cfg: cfg, store: store, session: sess, mux: http.NewServeMux()}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/upload", s.handleUpload)
	s.mux.HandleFunc("/status/durations", s.handleDurations)
	s.mux.HandleFunc("/preview", s.handlePreview)
	s.mux.HandleFunc("/render", s.handleRender)
	s.mux.HandleFunc("/concat", s.handleConcat)
	s.mux.HandleFunc("/export", s.handleExport)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// decodeBody reads an optional JSON body into v. An empty body keeps v's
// zero value.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// render loads the current uploads and renders them. The caller holds s.mu.
func (s *Server) render(r *http.Request, plan confluence.Plan) (*confluence.Result, int, error) {
	tr, err := s.store.Load(r.Context())
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("load tracks: %w", err)
	}
	res, err := confluence.Render(tr, plan)
	if errors.Is(err, confluence.ErrNoInput) {
		return nil, http.StatusBadRequest, errors.New("no tributaries uploaded (M1..M5)")
	}
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return res, http.StatusOK, nil
}

// serveAudio encodes b to a temp file under the output dir and streams it.
func (s *Server) serveAudio(w http.ResponseWriter, r *http.Request, b *audio.Buffer, opts codec.Options, name string, attachment bool) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	f, err := os.CreateTemp(s.cfg.OutputDir, ".export-*"+opts.Format.Ext())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := codec.EncodeFile(r.Context(), path, b, opts); err != nil {
		log.Error().Err(err).Str("format", opts.Format.String()).Msg("Encode failed")
		writeError(w, http.StatusInternalServerError, "encode failed: "+err.Error())
		return
	}

	out, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer out.Close()
	info, err := out.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", opts.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, name))
	http.ServeContent(w, r, name, info.ModTime(), out)
}

// details is the summary returned by /render and /concat.
type details struct {
	TracksCount   int                   `json:"tracks_count"`
	TotalDuration float64               `json:"total_duration"` // seconds
	PeakDBFS      *float64              `json:"peak_dbfs"`      // null for silence
	OffsetsMs     [confluence.Slots]int `json:"offsets_ms"`
	Engine        string                `json:"engine"`
	Format        string                `json:"format"`
	FileSize      string                `json:"file_size"`
}

func newDetails(snap *session.Snapshot) details {
	d := details{
		TracksCount:   snap.Tracks,
		TotalDuration: float64(snap.DurationMs) / 1000,
		OffsetsMs:     snap.Offsets,
		Engine:        snap.Engine.String(),
		Format:        codec.WAV.String(),
		FileSize:      fmt.Sprintf("%d KB", wavSize(snap.Buffer)/1024),
	}
	if pk := snap.PeakDBFS; !math.IsInf(pk, 0) && !math.IsNaN(pk) {
		d.PeakDBFS = &pk
	}
	return d
}

// wavSize is the size of the 16-bit WAV the session mirror writes for b.
func wavSize(b *audio.Buffer) int {
	return 44 + len(b.Samples)*audio.BitDepth/8
}
