package recognize

import (
	"context"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
)

// Cached wraps a Recognizer and reuses the previous result when the new
// frame is perceptually identical to the last recognized one. An encounter
// screen persists across many polls; skipping redundant recognition keeps
// the heavy call off the hot path without losing evidence, since identical
// pixels map to an identical result.
type Cached struct {
	inner       Recognizer
	maxDistance int
	onHit       func()

	mu        sync.Mutex
	lastHash  *goimagehash.ImageHash
	lastRes   Result
	hasResult bool
}

// NewCached creates the caching decorator. Frames whose perceptual-hash
// Hamming distance to the previous frame is at most maxDistance are treated
// as identical.
func NewCached(inner Recognizer, maxDistance int) *Cached {
	return &Cached{inner: inner, maxDistance: maxDistance}
}

// WithHook sets a callback invoked on every cache hit (for metrics).
func (c *Cached) WithHook(fn func()) *Cached {
	c.onHit = fn
	return c
}

// Recognize returns the cached result for a perceptually unchanged frame,
// otherwise delegates to the wrapped recognizer.
func (c *Cached) Recognize(ctx context.Context, f frame.Frame) (Result, error) {
	hash, err := goimagehash.PerceptionHash(f.Image)
	if err != nil {
		// Hashing failed; fall through to the real recognizer.
		return c.inner.Recognize(ctx, f)
	}

	c.mu.Lock()
	if c.hasResult && c.lastHash != nil {
		if dist, err := c.lastHash.Distance(hash); err == nil && dist <= c.maxDistance {
			res := c.lastRes
			res.FrameTime = f.Timestamp
			c.mu.Unlock()
			if c.onHit != nil {
				c.onHit()
			}
			return res, nil
		}
	}
	c.mu.Unlock()

	res, err := c.inner.Recognize(ctx, f)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	c.lastHash = hash
	c.lastRes = res
	c.hasResult = true
	c.mu.Unlock()
	return res, nil
}

// Reset clears the cache. Called when the detector is forced back to idle
// so stale evidence cannot resurface after a manual reset.
func (c *Cached) Reset() {
	c.mu.Lock()
	c.lastHash = nil
	c.lastRes = Result{}
	c.hasResult = false
	c.mu.Unlock()
}
