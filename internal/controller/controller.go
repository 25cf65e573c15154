// Package controller drives the capture, recognize, detect, count pipeline.
//
// A ticker fires at the poll interval. Each tick captures one frame and
// hands it to the recognizer on a worker goroutine; at most one recognition
// is ever in flight, and ticks that arrive while one is pending are skipped
// rather than queued, so a slow recognizer can never build a backlog of
// stale frames.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/encounter-tracker/internal/config"
	"github.com/GriffinCanCode/encounter-tracker/internal/counter"
	"github.com/GriffinCanCode/encounter-tracker/internal/detect"
	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
	"github.com/GriffinCanCode/encounter-tracker/internal/metrics"
	"github.com/GriffinCanCode/encounter-tracker/internal/recognize"
	"github.com/GriffinCanCode/encounter-tracker/internal/store"
)

// Event is one confirmed encounter, enriched with the resulting count.
type Event struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Count      int       `json:"count"`
	At         time.Time `json:"at"`
}

// Status is the live pipeline view served by the control API.
type Status struct {
	Count         int       `json:"count"`
	Running       bool      `json:"running"`
	DetectorState string    `json:"detector_state"`
	Candidate     string    `json:"candidate,omitempty"`
	Streak        int       `json:"streak,omitempty"`
	CooldownUntil time.Time `json:"cooldown_until"`
	LastError     string    `json:"last_error,omitempty"`
}

// Deps are the pipeline components the controller coordinates.
type Deps struct {
	Source     frame.Source
	Recognizer recognize.Recognizer
	Detector   *detect.Detector
	Counter    *counter.Counter
	Store      *store.Store
	Metrics    *metrics.Metrics
}

// Controller owns the poll loop and serializes all detector access and
// command handling behind one mutex.
type Controller struct {
	cfg *config.Config

	source   frame.Source
	rec      recognize.Recognizer
	detector *detect.Detector
	counter  *counter.Counter
	store    *store.Store
	metrics  *metrics.Metrics

	// resettable is non-nil when the recognizer carries per-session state
	// (the perceptual-hash cache) that a counter reset must also clear.
	resettable interface{ Reset() }

	mu             sync.Mutex
	captureFails   int
	permissionSeen bool
	lastError      string

	inflight atomic.Bool

	eventCh  chan Event
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New wires a controller. It does not start the loop.
func New(cfg *config.Config, deps Deps) *Controller {
	c := &Controller{
		cfg:      cfg,
		source:   deps.Source,
		rec:      deps.Recognizer,
		detector: deps.Detector,
		counter:  deps.Counter,
		store:    deps.Store,
		metrics:  deps.Metrics,
		eventCh:  make(chan Event, eventBufSize),
		stopCh:   make(chan struct{}),
	}
	if r, ok := deps.Recognizer.(interface{ Reset() }); ok {
		c.resettable = r
	}
	return c
}

// Events returns the channel of confirmed encounters.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Start launches the poll loop.
func (c *Controller) Start(ctx context.Context) {
	go c.pollLoop(ctx)
}

// Stop terminates the poll loop. In-flight recognition is abandoned; its
// result will be discarded when it completes.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Controller) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	if !c.counter.Snapshot().Running {
		return
	}
	if !c.inflight.CompareAndSwap(false, true) {
		c.metrics.TicksSkipped.Add(1)
		slog.Debug("recognition in flight, skipping poll")
		return
	}

	frm, err := c.source.Capture()
	if err != nil {
		c.inflight.Store(false)
		c.onCaptureError(err)
		return
	}
	c.onCaptureSuccess()
	c.metrics.FramesCaptured.Add(1)

	go c.recognizeFrame(ctx, frm)
}

func (c *Controller) recognizeFrame(ctx context.Context, frm frame.Frame) {
	defer c.inflight.Store(false)

	rctx, cancel := context.WithTimeout(ctx, c.cfg.Budget())
	defer cancel()

	res, err := c.rec.Recognize(rctx, frm)
	if err != nil {
		c.metrics.RecognitionErrors.Add(1)
		if apperrors.IsCode(err, apperrors.CodeRecognitionTimeout) {
			c.metrics.RecognitionTimeouts.Add(1)
		}
		slog.Warn("recognition failed", "error", err)
		c.setLastError(err)
		return
	}
	c.metrics.Recognitions.Add(1)
	c.apply(res)
}

// apply feeds one recognition result through the detector and handles the
// resulting event, if any.
func (c *Controller) apply(res recognize.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.counter.Snapshot()
	if !snap.Running {
		// Paused while this recognition was in flight.
		slog.Debug("discarding stale recognition result", "label", res.Label)
		return
	}

	evt, ok := c.detector.Observe(res, time.Now())
	c.metrics.DetectorState.Store(uint64(c.detector.State()))
	if !ok {
		return
	}

	st := c.counter.Increment()
	c.metrics.Encounters.Add(1)
	c.metrics.EncounterCount.Store(uint64(st.Count))
	slog.Info("encounter confirmed",
		"label", evt.Label,
		"confidence", evt.Confidence,
		"count", st.Count)

	c.persistLocked(st)

	select {
	case c.eventCh <- Event{Label: evt.Label, Confidence: evt.Confidence, Count: st.Count, At: evt.At}:
	default:
		slog.Debug("event channel full, dropping")
	}
}

// Resume enables counting and persists the run flag.
func (c *Controller) Resume() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.counter.Resume()
	slog.Info("counting resumed", "count", st.Count)
	c.persistLocked(st)
	return c.statusLocked()
}

// Pause disables counting and persists immediately so the count survives a
// crash while paused.
func (c *Controller) Pause() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.counter.Pause()
	slog.Info("counting paused", "count", st.Count)
	c.persistLocked(st)
	return c.statusLocked()
}

// Reset zeroes the count, clears the detector and recognition cache, and
// persists the zero.
func (c *Controller) Reset() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.counter.Reset()
	c.detector.Reset()
	if c.resettable != nil {
		c.resettable.Reset()
	}
	c.metrics.EncounterCount.Store(0)
	c.metrics.DetectorState.Store(uint64(detect.Idle))
	slog.Info("count reset")
	c.persistLocked(st)
	return c.statusLocked()
}

// Flush persists the current state if it is ahead of the last save. Called
// on shutdown.
func (c *Controller) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.counter.Dirty() {
		return
	}
	c.persistLocked(c.counter.Snapshot())
}

// Status returns the live pipeline view.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	snap := c.counter.Snapshot()
	d := c.detector.Snapshot()
	return Status{
		Count:         snap.Count,
		Running:       snap.Running,
		DetectorState: d.State.String(),
		Candidate:     d.Label,
		Streak:        d.Streak,
		CooldownUntil: d.CooldownUntil,
		LastError:     c.lastError,
	}
}

// persistLocked saves the given state. A failed save keeps the in-memory
// count authoritative and is retried on the next persist point.
func (c *Controller) persistLocked(st counter.State) {
	err := c.store.Save(store.Record{Count: st.Count, Running: st.Running})
	if err != nil {
		c.metrics.SaveErrors.Add(1)
		c.lastError = err.Error()
		slog.Error("state save failed", "error", err, "count", st.Count)
		return
	}
	c.metrics.Saves.Add(1)
	c.counter.MarkSaved(st.Count)
}

func (c *Controller) onCaptureSuccess() {
	c.mu.Lock()
	c.captureFails = 0
	c.mu.Unlock()
}

func (c *Controller) onCaptureError(err error) {
	c.metrics.CaptureErrors.Add(1)

	if apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		c.mu.Lock()
		seen := c.permissionSeen
		c.permissionSeen = true
		c.lastError = err.Error()
		c.mu.Unlock()
		if !seen {
			slog.Error("screen recording permission denied, grant access and restart", "error", err)
		}
		return
	}

	c.mu.Lock()
	c.captureFails++
	n := c.captureFails
	c.lastError = err.Error()
	c.mu.Unlock()

	if c.cfg.CaptureWarnStreak > 0 && n%c.cfg.CaptureWarnStreak == 0 {
		slog.Warn("screen capture failing", "consecutive", n, "error", err)
	} else {
		slog.Debug("screen capture failed", "error", err)
	}
}

func (c *Controller) setLastError(err error) {
	c.mu.Lock()
	c.lastError = err.Error()
	c.mu.Unlock()
}
