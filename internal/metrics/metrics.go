// Package metrics exposes tracker counters over Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all tracker metrics. Hot-path updates are plain atomics;
// Prometheus reads them lazily on scrape.
type Metrics struct {
	// Capture loop
	FramesCaptured atomic.Uint64
	CaptureErrors  atomic.Uint64
	TicksSkipped   atomic.Uint64 // recognition still in flight

	// Recognition
	Recognitions        atomic.Uint64
	RecognitionErrors   atomic.Uint64
	RecognitionTimeouts atomic.Uint64
	CacheHits           atomic.Uint64

	// Detection and counting
	Encounters     atomic.Uint64
	EncounterCount atomic.Uint64 // current persistent count
	DetectorState  atomic.Uint64 // 0=idle, 1=armed, 2=cooldown

	// Persistence
	Saves      atomic.Uint64
	SaveErrors atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.register()
	return m
}

func (m *Metrics) register() {
	gauge := func(name, help string, load func() uint64) {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			func() float64 { return float64(load()) },
		))
	}

	gauge("tracker_frames_captured_total", "Total frames captured from the screen",
		m.FramesCaptured.Load)
	gauge("tracker_capture_errors_total", "Total screen capture failures",
		m.CaptureErrors.Load)
	gauge("tracker_ticks_skipped_total", "Polls skipped because recognition was still in flight",
		m.TicksSkipped.Load)

	gauge("tracker_recognitions_total", "Total recognition requests completed",
		m.Recognitions.Load)
	gauge("tracker_recognition_errors_total", "Total recognition failures",
		m.RecognitionErrors.Load)
	gauge("tracker_recognition_timeouts_total", "Recognitions that exceeded the per-frame budget",
		m.RecognitionTimeouts.Load)
	gauge("tracker_cache_hits_total", "Frames served from the perceptual-hash cache",
		m.CacheHits.Load)

	gauge("tracker_encounters_total", "Total confirmed encounter events",
		m.Encounters.Load)
	gauge("tracker_encounter_count", "Current persistent encounter count",
		m.EncounterCount.Load)
	gauge("tracker_detector_state", "Detector state (0=idle, 1=armed, 2=cooldown)",
		m.DetectorState.Load)

	gauge("tracker_state_saves_total", "Total successful state saves",
		m.Saves.Load)
	gauge("tracker_state_save_errors_total", "Total failed state saves",
		m.SaveErrors.Load)
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
