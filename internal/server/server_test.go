package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/satindergrewal/confluence/internal/audio"
	"github.com/satindergrewal/confluence/internal/codec"
	"github.com/satindergrewal/confluence/internal/config"
	"github.com/satindergrewal/confluence/internal/session"
	"github.com/satindergrewal/confluence/internal/tracks"
)

func newTestServer(t *testing.T) (*Server, config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		UploadDir:      filepath.Join(dir, "uploads"),
		OutputDir:      filepath.Join(dir, "outputs"),
		HeadroomDB:     1,
		AmbienceGainDB: -24,
		DefaultBitrate: "192k",
		MaxUploadMB:    10,
		MaxTimelineMs:  60000,
	}
	store, err := tracks.New(cfg.UploadDir)
	if err != nil {
		t.Fatal(err)
	}
	return New(cfg, store, session.New(session.NewFileMirror(cfg.OutputDir))), cfg
}

func wavFile(t *testing.T, ms int, v float64) []byte {
	t.Helper()
	b := audio.Silence(48000, 2, ms)
	for i := range b.Samples {
		b.Samples[i] = v
	}
	f, err := os.CreateTemp(t.TempDir(), "*.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := codec.EncodeWAV(f, b); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// upload posts the given files keyed by form field (file1..file5).
func upload(t *testing.T, s *Server, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".wav")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func post(s *Server, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return m
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if m := decodeJSON(t, rec); m["ok"] != true {
		t.Errorf("health = %v", m)
	}
}

func TestRenderWithoutTracks(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/render", "/preview", "/concat"} {
		rec := post(s, path, `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, rec.Code)
			continue
		}
		if m := decodeJSON(t, rec); m["success"] != false || m["error"] == "" {
			t.Errorf("%s body = %v", path, m)
		}
	}
}

func TestExportBeforeRender(t *testing.T) {
	s, _ := newTestServer(t)
	rec := post(s, "/export", `{"format":"wav"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/render", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /render status = %d, want 405", rec.Code)
	}
}

func TestUploadDurationsAndPurge(t *testing.T) {
	s, _ := newTestServer(t)
	rec := upload(t, s, map[string][]byte{
		"file1": wavFile(t, 400, 0.1),
		"file3": wavFile(t, 250, 0.1),
	})
	if rec.Code != http.StatusOK || decodeJSON(t, rec)["success"] != true {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}

	durations := func() []any {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/durations", nil))
		return decodeJSON(t, rec)["durations_ms"].([]any)
	}
	want := []float64{400, 0, 250, 0, 0}
	for i, d := range durations() {
		if d.(float64) != want[i] {
			t.Errorf("durations[%d] = %v, want %v", i, d, want[i])
		}
	}

	// A new set replaces the old one entirely.
	upload(t, s, map[string][]byte{"file2": wavFile(t, 100, 0.1)})
	want = []float64{0, 100, 0, 0, 0}
	for i, d := range durations() {
		if d.(float64) != want[i] {
			t.Errorf("after purge durations[%d] = %v, want %v", i, d, want[i])
		}
	}
}

func TestUploadNothing(t *testing.T) {
	s, _ := newTestServer(t)
	rec := upload(t, s, nil)
	if m := decodeJSON(t, rec); m["success"] != false {
		t.Errorf("empty upload = %v, want success false", m)
	}
}

func TestRenderThenExport(t *testing.T) {
	s, cfg := newTestServer(t)
	upload(t, s, map[string][]byte{
		"file1": wavFile(t, 2000, 0.2),
		"file2": wavFile(t, 1000, 0.2),
	})

	rec := post(s, "/render", `{"mode":"anchored","placement_ms":[0,500],"crossfade_ms":[0,250],"pan":[0,0]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("render: %d %s", rec.Code, rec.Body.String())
	}
	m := decodeJSON(t, rec)
	if m["success"] != true || m["mix_id"] == "" || m["download_url"] != "/export" {
		t.Errorf("render body = %v", m)
	}
	d := m["details"].(map[string]any)
	if d["tracks_count"].(float64) != 2 {
		t.Errorf("tracks_count = %v", d["tracks_count"])
	}
	if d["total_duration"].(float64) != 2.5 {
		t.Errorf("total_duration = %v, want 2.5", d["total_duration"])
	}
	if offs := d["offsets_ms"].([]any); offs[1].(float64) != 1500 {
		t.Errorf("offsets_ms = %v, want slot 2 at 1500", offs)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "last_mix.wav")); err != nil {
		t.Errorf("mirror not written: %v", err)
	}

	rec = post(s, "/export", `{"format":"wav","mono":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	out, err := codec.DecodeWAV(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if out.Channels != 1 || out.LengthMs() != 2500 {
		t.Errorf("export = %d ch %d ms, want mono 2500 ms", out.Channels, out.LengthMs())
	}
}

func TestConcatRoute(t *testing.T) {
	s, _ := newTestServer(t)
	upload(t, s, map[string][]byte{
		"file2": wavFile(t, 300, 0.1),
		"file5": wavFile(t, 200, 0.1),
	})
	rec := post(s, "/concat", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("concat: %d %s", rec.Code, rec.Body.String())
	}
	d := decodeJSON(t, rec)["details"].(map[string]any)
	if d["total_duration"].(float64) != 0.5 || d["engine"] != "concatenate" {
		t.Errorf("details = %v", d)
	}
}

func TestPreviewWindow(t *testing.T) {
	s, _ := newTestServer(t)
	upload(t, s, map[string][]byte{
		"file1": wavFile(t, 40000, 0.1),
		"file2": wavFile(t, 20000, 0.1),
	})

	// M2 enters at 30000; the window starts at 30000+2500-15000.
	body := `{"mode":"absolute","placement_ms":[0,30000],"crossfade_ms":[0,0],"preview_full":false}`
	rec := post(s, "/preview", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "inline") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	out, err := codec.DecodeWAV(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if out.LengthMs() != 30000 {
		t.Errorf("preview = %d ms, want 30000", out.LengthMs())
	}

	rec = post(s, "/preview", `{"mode":"absolute","placement_ms":[0,30000],"crossfade_ms":[0,0]}`)
	out, err = codec.DecodeWAV(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if out.LengthMs() != 50000 {
		t.Errorf("full preview = %d ms, want 50000", out.LengthMs())
	}
}

func TestBadPlan(t *testing.T) {
	s, _ := newTestServer(t)
	upload(t, s, map[string][]byte{"file1": wavFile(t, 100, 0.1)})
	for _, body := range []string{
		`{"mode":"sideways"}`,
		`{"engine":"splice"}`,
		`{"ambience":"traffic"}`,
		`{"curve":"cubic"}`,
		`{not json`,
	} {
		if rec := post(s, "/render", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
	if rec := post(s, "/export", `{"format":"aiff"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("export aiff status = %d, want 400", rec.Code)
	}
}

func TestRenderClampsPlacement(t *testing.T) {
	s, cfg := newTestServer(t)
	upload(t, s, map[string][]byte{
		"file1": wavFile(t, 100, 0.1),
		"file2": wavFile(t, 100, 0.1),
	})
	rec := post(s, "/render", `{"mode":"absolute","placement_ms":[0,1e15],"crossfade_ms":[0,0],"engine":"mix"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("render: %d %s", rec.Code, rec.Body.String())
	}
	d := decodeJSON(t, rec)["details"].(map[string]any)
	want := float64(cfg.MaxTimelineMs+100) / 1000
	if d["total_duration"].(float64) != want {
		t.Errorf("total_duration = %v, want %v", d["total_duration"], want)
	}
}
