// Package recognize extracts encounter evidence from captured frames
package recognize

import (
	"context"
	"time"

	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
)

// Result is one recognition outcome: a label with a confidence score in
// [0,1], tied to the timestamp of the frame it came from. A zero result
// means "no evidence this tick".
type Result struct {
	Label      string
	Confidence float64
	FrameTime  time.Time
}

// Empty reports whether the result carries no evidence.
func (r Result) Empty() bool { return r.Label == "" }

// Recognizer maps a frame to a recognition result. Implementations are
// opaque to the rest of the pipeline: any classifier that honors the
// per-call deadline on ctx satisfies the contract.
type Recognizer interface {
	Recognize(ctx context.Context, f frame.Frame) (Result, error)
}
