package sensorlog

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MonitorConfig configures the HTTP monitor surface.
type MonitorConfig struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string

	// Hub, when set, is served on /live as a WebSocket stream of flushed
	// readings.
	Hub *LiveHub

	// Gatherer backs /metrics. Defaults to the default Prometheus
	// gatherer.
	Gatherer prometheus.Gatherer

	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Monitor serves liveness, statistics, Prometheus metrics, and the live
// reading stream over HTTP. It only ever issues read paths against the
// store; the writer is never disturbed beyond the serialization the handle
// itself imposes.
type Monitor struct {
	store  *Store
	cfg    MonitorConfig
	logger *slog.Logger
	srv    *http.Server
	ln     net.Listener
}

// NewMonitor builds a monitor for store.
func NewMonitor(store *Store, cfg MonitorConfig) *Monitor {
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m := &Monitor{store: store, cfg: cfg, logger: cfg.Logger}
	m.srv = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return m
}

// Handler returns the monitor's HTTP handler, usable without Start for
// embedding in an existing server.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/stats", m.handleStats)
	mux.Handle("/metrics", promhttp.HandlerFor(m.cfg.Gatherer, promhttp.HandlerOpts{}))
	if m.cfg.Hub != nil {
		mux.Handle("/live", m.cfg.Hub)
	}
	return mux
}

// Start begins serving in the background. It returns once the listener is
// bound, so Addr is immediately usable.
func (m *Monitor) Start() error {
	ln, err := net.Listen("tcp", m.cfg.Addr)
	if err != nil {
		return err
	}
	m.ln = ln
	go func() {
		if err := m.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			m.logger.Error("monitor server stopped", "error", err)
		}
	}()
	m.logger.Info("monitor listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, empty before Start.
func (m *Monitor) Addr() string {
	if m.ln == nil {
		return ""
	}
	return m.ln.Addr().String()
}

// Close stops the server.
func (m *Monitor) Close() error {
	return m.srv.Close()
}

func (m *Monitor) handleHealth(w http.ResponseWriter, _ *http.Request) {
	healthy := m.store.IsHealthy()
	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"healthy": healthy})
}

func (m *Monitor) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := m.store.Stats()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}
