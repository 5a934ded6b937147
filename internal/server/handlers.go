package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/satindergrewal/confluence/internal/codec"
	"github.com/satindergrewal/confluence/internal/confluence"
	"github.com/satindergrewal/confluence/internal/session"
)

// Preview window: 30s around the point 2.5s after M2 enters.
const (
	previewLeadMs   = 2500
	previewHalfMs   = 15000
	previewWindowMs = 30000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "version": Version})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxUploadMB)<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	s.mu.Lock()
	defer s.mu.Unlock()

	sent := map[int]bool{}
	for slot := 0; slot < confluence.Slots; slot++ {
		f, hdr, err := r.FormFile(fmt.Sprintf("file%d", slot+1))
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, err = s.store.Save(slot, hdr.Filename, f)
		f.Close()
		if err != nil {
			log.Error().Err(err).Int("slot", slot+1).Msg("Upload save failed")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		sent[slot] = true
	}
	if len(sent) > 0 {
		s.store.Purge(sent)
	}
	log.Info().Int("files", len(sent)).Msg("Upload received")
	writeJSON(w, http.StatusOK, map[string]any{"success": len(sent) > 0})
}

func (s *Server) handleDurations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	d, err := s.store.Durations(r.Context())
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"durations_ms": d})
}

// decodePlan parses the request body into a plan with the server defaults.
func (s *Server) decodePlan(w http.ResponseWriter, r *http.Request) (planRequest, confluence.Plan, bool) {
	var req planRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return req, confluence.Plan{}, false
	}
	plan, err := req.plan(s.cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, confluence.Plan{}, false
	}
	return req, plan, true
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	req, plan, ok := s.decodePlan(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	res, status, err := s.render(r, plan)
	s.mu.Unlock()
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	buf := res.Buffer
	if !req.previewFull() {
		start := max(0, res.Offsets[1]+previewLeadMs-previewHalfMs)
		buf = buf.Slice(start, start+previewWindowMs)
	}
	s.serveAudio(w, r, buf, codec.Options{Format: codec.WAV}, "preview.wav", false)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	_, plan, ok := s.decodePlan(w, r)
	if !ok {
		return
	}
	s.publish(w, r, plan)
}

func (s *Server) handleConcat(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	plan := confluence.DefaultPlan(confluence.Absolute)
	plan.Engine = confluence.Concatenate
	plan.HeadroomDB = s.cfg.HeadroomDB
	s.publish(w, r, plan)
}

// publish renders plan, makes it the session result and reports it.
func (s *Server) publish(w http.ResponseWriter, r *http.Request, plan confluence.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, status, err := s.render(r, plan)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	snap, err := s.session.Publish(res)
	if err != nil {
		log.Error().Err(err).Msg("Publish failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"mix_id":       snap.ID,
		"details":      newDetails(snap),
		"download_url": "/export",
	})
}

type exportRequest struct {
	Format  string `json:"format"`
	Bitrate string `json:"bitrate"`
	Mono    bool   `json:"mono"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	format, err := codec.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bitrate := req.Bitrate
	if bitrate == "" {
		bitrate = s.cfg.DefaultBitrate
	}
	if _, err := codec.ParseBitrate(bitrate); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.session.Last()
	if errors.Is(err, session.ErrNoResult) {
		writeError(w, http.StatusConflict, "no mix in memory; render one first")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("id", snap.ID).Str("format", format.String()).Bool("mono", req.Mono).Msg("Export")
	opts := codec.Options{Format: format, Bitrate: bitrate, Mono: req.Mono}
	s.serveAudio(w, r, snap.Buffer, opts, "confluence"+format.Ext(), true)
}
