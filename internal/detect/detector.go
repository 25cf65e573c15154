// Package detect turns the noisy stream of recognition results into
// discrete encounter events.
//
// A single recognition hit is not an encounter: OCR glitches produce
// one-frame phantom labels, and a real encounter screen stays visible
// across many polls. The detector therefore requires Confirm consecutive
// matches of the same label before emitting an event, then suppresses
// further matches for a cooldown window.
package detect

import (
	"time"

	"github.com/GriffinCanCode/encounter-tracker/internal/recognize"
)

// State is the detector phase.
type State int

const (
	Idle     State = iota // no candidate seen
	Armed                 // candidate seen, awaiting confirmation
	Cooldown              // event emitted, matches suppressed until expiry
)

func (s State) String() string {
	return [...]string{"idle", "armed", "cooldown"}[s]
}

// Config holds the detection tunables. Changing them never changes the
// algorithm, only its sensitivity.
type Config struct {
	Threshold float64       // minimum confidence for a result to count as a match
	Confirm   int           // consecutive same-label matches required before an event
	Cooldown  time.Duration // suppression window after an event
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{Threshold: 0.8, Confirm: 2, Cooldown: 4 * time.Second}
}

// Event is one accepted encounter.
type Event struct {
	Label      string
	Confidence float64
	At         time.Time
}

// Detector is the debouncing state machine. It is single-owner: the
// controller serializes all access, so no internal locking is needed. It
// holds no reference to the counter; events are returned to the caller.
type Detector struct {
	cfg           Config
	state         State
	label         string
	streak        int
	cooldownUntil time.Time
}

// Snapshot is a read-only view of the detector for status reporting.
type Snapshot struct {
	State         State
	Label         string
	Streak        int
	CooldownUntil time.Time
}

// New creates a detector in the idle state.
func New(cfg Config) *Detector {
	if cfg.Confirm < 1 {
		cfg.Confirm = 1
	}
	return &Detector{cfg: cfg}
}

// Observe feeds one recognition result through the state machine. The
// returned event is valid only when the second return value is true.
func (d *Detector) Observe(res recognize.Result, now time.Time) (Event, bool) {
	if d.state == Cooldown {
		if now.Before(d.cooldownUntil) {
			return Event{}, false
		}
		// Cooldown elapsed: drop back to idle and re-evaluate this same
		// result, so evidence arriving exactly at expiry is not lost.
		d.toIdle()
	}

	match := !res.Empty() && res.Confidence >= d.cfg.Threshold

	switch d.state {
	case Idle:
		if !match {
			return Event{}, false
		}
		d.state = Armed
		d.label = res.Label
		d.streak = 1
		return d.maybeEmit(res, now)

	case Armed:
		if !match {
			// Candidate was transient noise.
			d.toIdle()
			return Event{}, false
		}
		if res.Label == d.label {
			d.streak++
		} else {
			// New candidate; restart confirmation from scratch.
			d.label = res.Label
			d.streak = 1
		}
		return d.maybeEmit(res, now)
	}

	return Event{}, false
}

// maybeEmit fires an event once the confirmation streak is satisfied.
func (d *Detector) maybeEmit(res recognize.Result, now time.Time) (Event, bool) {
	if d.streak < d.cfg.Confirm {
		return Event{}, false
	}
	d.state = Cooldown
	d.cooldownUntil = now.Add(d.cfg.Cooldown)
	d.streak = 0
	return Event{Label: res.Label, Confidence: res.Confidence, At: now}, true
}

// Reset forces the detector back to idle, discarding any candidate and any
// in-progress cooldown.
func (d *Detector) Reset() {
	d.toIdle()
}

// State returns the current phase.
func (d *Detector) State() State {
	return d.state
}

// Snapshot returns the current detector view for status reporting.
func (d *Detector) Snapshot() Snapshot {
	return Snapshot{
		State:         d.state,
		Label:         d.label,
		Streak:        d.streak,
		CooldownUntil: d.cooldownUntil,
	}
}

func (d *Detector) toIdle() {
	d.state = Idle
	d.label = ""
	d.streak = 0
	d.cooldownUntil = time.Time{}
}
