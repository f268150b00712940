package app

import (
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relabs-tech/angle_viewer/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWeb(t *testing.T, cfg *config.Config) (*Viewer, http.Handler) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>gauges</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	v := NewViewer(cfg, discardLogger())
	return v, newWebMux(v, dir, discardLogger())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestOrientation_NoDataYet(t *testing.T) {
	_, h := newTestWeb(t, config.Default())

	rec := get(t, h, "/api/orientation")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no data yet") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestOrientation_LatestValues(t *testing.T) {
	v, h := newTestWeb(t, config.Default())
	v.Vertical.Refresh(10)
	v.Horizontal.Refresh(-20)
	v.Vertical.Refresh(45)

	rec := get(t, h, "/api/orientation")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got orientationView
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Vertical.Value == nil || *got.Vertical.Value != 45 {
		t.Errorf("vertical value = %v, want 45", got.Vertical.Value)
	}
	if got.Horizontal.Value == nil || *got.Horizontal.Value != -20 {
		t.Errorf("horizontal value = %v, want -20", got.Horizontal.Value)
	}
	if got.Vertical.Min != -45 || got.Vertical.Max != 45 {
		t.Errorf("vertical range = [%v, %v]", got.Vertical.Min, got.Vertical.Max)
	}
	if got.Vertical.Title != "Vertical Angle" || got.Horizontal.Title != "Horizontal Angle" {
		t.Errorf("titles = %q, %q", got.Vertical.Title, got.Horizontal.Title)
	}
	if got.Vertical.Updates != 2 {
		t.Errorf("vertical updates = %d, want 2", got.Vertical.Updates)
	}
}

func TestOrientation_NonFiniteIsNull(t *testing.T) {
	v, h := newTestWeb(t, config.Default())
	v.Vertical.Refresh(math.NaN())
	v.Horizontal.Refresh(math.Inf(-1))

	rec := get(t, h, "/api/orientation")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	for _, name := range []string{"vertical", "horizontal"} {
		value, ok := raw[name]["value"]
		if !ok || value != nil {
			t.Errorf("%s value = %v, want null", name, value)
		}
	}
}

func TestGaugePNG(t *testing.T) {
	v, h := newTestWeb(t, config.Default())
	v.Horizontal.Refresh(30)

	tests := []struct {
		path   string
		status int
		w, h   int
	}{
		{path: "/api/gauge/vertical", status: http.StatusOK, w: 240, h: 160},
		{path: "/api/gauge/horizontal?w=64&h=32", status: http.StatusOK, w: 64, h: 32},
		{path: "/api/gauge/pitch", status: http.StatusNotFound},
		{path: "/api/gauge/vertical?w=abc", status: http.StatusBadRequest},
		{path: "/api/gauge/vertical?h=4096", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
				t.Errorf("Content-Type = %q", ct)
			}
			img, err := png.Decode(rec.Body)
			if err != nil {
				t.Fatalf("png.Decode() error = %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.w, tt.h)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	_, h := newTestWeb(t, config.Default())

	rec := get(t, h, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got statusView
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Connection.State != "disconnected" {
		t.Errorf("connection state = %q, want disconnected", got.Connection.State)
	}
	if got.Connection.URL != "ws://localhost:5801" {
		t.Errorf("connection url = %q", got.Connection.URL)
	}
	if got.Publisher.Enabled {
		t.Error("publisher enabled without a broker")
	}
	if got.Version == "" {
		t.Error("version missing")
	}
}

func TestStatus_PublisherConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.MQTTBroker = "tcp://127.0.0.1:1"
	v, h := newTestWeb(t, cfg)
	defer v.Publisher.Disconnect()

	var got statusView
	if err := json.NewDecoder(get(t, h, "/api/status").Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Publisher.Enabled || got.Publisher.Connected {
		t.Errorf("publisher = %+v, want enabled and disconnected", got.Publisher)
	}
}

func TestHealthzAndStatic(t *testing.T) {
	_, h := newTestWeb(t, config.Default())

	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(t, h, "/"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "gauges") {
		t.Errorf("index = %d %q", rec.Code, rec.Body.String())
	}
}
