package recognize

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
)

type countingRecognizer struct {
	calls int
	res   Result
	err   error
}

func (c *countingRecognizer) Recognize(_ context.Context, _ frame.Frame) (Result, error) {
	c.calls++
	return c.res, c.err
}

// uniformFrame and checkerFrame produce perceptually distant images.
func uniformFrame(ts time.Time) frame.Frame {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	return frame.Frame{Image: img, Timestamp: ts}
}

func checkerFrame(ts time.Time) frame.Frame {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return frame.Frame{Image: img, Timestamp: ts}
}

func TestCachedReusesResultForIdenticalFrame(t *testing.T) {
	inner := &countingRecognizer{res: Result{Label: "snorlax", Confidence: 0.9}}
	hits := 0
	c := NewCached(inner, 8).WithHook(func() { hits++ })

	t0 := time.Now()
	res1, err := c.Recognize(context.Background(), uniformFrame(t0))
	if err != nil {
		t.Fatal(err)
	}

	t1 := t0.Add(400 * time.Millisecond)
	res2, err := c.Recognize(context.Background(), uniformFrame(t1))
	if err != nil {
		t.Fatal(err)
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1 (second frame served from cache)", inner.calls)
	}
	if hits != 1 {
		t.Errorf("cache hits = %d, want 1", hits)
	}
	if res1.Label != res2.Label || res1.Confidence != res2.Confidence {
		t.Errorf("cached result differs: %+v vs %+v", res1, res2)
	}
	if !res2.FrameTime.Equal(t1) {
		t.Error("cached result must carry the new frame's timestamp")
	}
}

func TestCachedRecognizesChangedFrame(t *testing.T) {
	inner := &countingRecognizer{res: Result{Label: "snorlax", Confidence: 0.9}}
	c := NewCached(inner, 8)

	now := time.Now()
	if _, err := c.Recognize(context.Background(), uniformFrame(now)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Recognize(context.Background(), checkerFrame(now)); err != nil {
		t.Fatal(err)
	}

	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 (changed frame must be recognized)", inner.calls)
	}
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	inner := &countingRecognizer{err: errors.New("service down")}
	c := NewCached(inner, 8)

	now := time.Now()
	if _, err := c.Recognize(context.Background(), uniformFrame(now)); err == nil {
		t.Fatal("expected error")
	}

	// Same frame again: the failure must not be served from cache.
	inner.err = nil
	inner.res = Result{Label: "snorlax", Confidence: 0.9}
	res, err := c.Recognize(context.Background(), uniformFrame(now))
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != "snorlax" {
		t.Errorf("label = %q, want snorlax", res.Label)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}

func TestCachedReset(t *testing.T) {
	inner := &countingRecognizer{res: Result{Label: "snorlax", Confidence: 0.9}}
	c := NewCached(inner, 8)

	now := time.Now()
	if _, err := c.Recognize(context.Background(), uniformFrame(now)); err != nil {
		t.Fatal(err)
	}
	c.Reset()
	if _, err := c.Recognize(context.Background(), uniformFrame(now)); err != nil {
		t.Fatal(err)
	}

	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 after Reset", inner.calls)
	}
}
