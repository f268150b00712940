package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/angle_viewer/internal/config"
	"github.com/relabs-tech/angle_viewer/internal/connection"
	"github.com/relabs-tech/angle_viewer/internal/gauge"
	"github.com/relabs-tech/angle_viewer/internal/version"
)

const (
	defaultGaugeWidth  = 240
	defaultGaugeHeight = 160
	maxGaugeSide       = 1024
)

// RunWeb runs the viewer behind the web page and JSON API until ctx ends.
// A connection handler that gives up is logged; the page keeps serving the
// last values and /api/status reports the failure.
func RunWeb(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	v := NewViewer(cfg, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newWebMux(v, cfg.WebStaticDir, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := v.Run(gctx); err != nil {
			logger.Error("connection handler stopped", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("web server listening", "addr", srv.Addr, "static_dir", cfg.WebStaticDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.PanelEnabled {
		g.Go(func() error {
			interval := time.Duration(cfg.PanelUpdateInterval) * time.Millisecond
			if err := RunPanel(gctx, v.Vertical, v.Horizontal, interval, logger.With("component", "panel")); err != nil {
				logger.Error("panel stopped", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// gaugeView is the JSON form of a reading. Non-finite values encode as null.
type gaugeView struct {
	Title     string    `json:"title"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	Value     *float64  `json:"value"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	Updates   uint64    `json:"updates"`
}

type orientationView struct {
	Vertical   gaugeView `json:"vertical"`
	Horizontal gaugeView `json:"horizontal"`
}

type publisherView struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Dropped   uint64 `json:"dropped"`
	Skipped   uint64 `json:"skipped"`
}

type statusView struct {
	Version    string           `json:"version"`
	Connection connection.Stats `json:"connection"`
	Publisher  publisherView    `json:"publisher"`
}

func newGaugeView(r gauge.Reading) gaugeView {
	gv := gaugeView{
		Title:     r.Title,
		Min:       r.Min,
		Max:       r.Max,
		UpdatedAt: r.UpdatedAt,
		Updates:   r.Updates,
	}
	if !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) {
		value := r.Value
		gv.Value = &value
	}
	return gv
}

func newWebMux(v *Viewer, staticDir string, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	// JSON API endpoint: latest angles on both gauges
	mux.HandleFunc("GET /api/orientation", func(w http.ResponseWriter, r *http.Request) {
		if !v.HasData() {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, logger, orientationView{
			Vertical:   newGaugeView(v.Vertical.Reading()),
			Horizontal: newGaugeView(v.Horizontal.Reading()),
		})
	})

	// PNG rendering of one gauge, optional ?w=&h=
	mux.HandleFunc("GET /api/gauge/{name}", func(w http.ResponseWriter, r *http.Request) {
		var g *gauge.Gauge
		switch r.PathValue("name") {
		case "vertical":
			g = v.Vertical
		case "horizontal":
			g = v.Horizontal
		default:
			http.Error(w, "unknown gauge", http.StatusNotFound)
			return
		}

		width, err := sizeParam(r, "w", defaultGaugeWidth)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		height, err := sizeParam(r, "h", defaultGaugeHeight)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		if err := gauge.RenderPNG(w, g.Reading(), width, height); err != nil {
			logger.Warn("gauge render failed", "gauge", r.PathValue("name"), "error", err)
		}
	})

	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		status := statusView{
			Version:    version.String(),
			Connection: v.Client.Stats(),
		}
		if v.Publisher != nil {
			status.Publisher = publisherView{
				Enabled:   true,
				Connected: v.Publisher.IsConnected(),
				Dropped:   v.Publisher.Dropped(),
				Skipped:   v.Publisher.Skipped(),
			}
		}
		writeJSON(w, logger, status)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Static files from the web directory as the root
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))

	return mux
}

func sizeParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 16 || n > maxGaugeSide {
		return 0, fmt.Errorf("%s must be an integer between 16 and %d", key, maxGaugeSide)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("json encode error", "error", err)
	}
}
