// Package frame provides region-scoped screen capture
package frame

import (
	"image"
	"time"
)

// Frame is one captured screen image. Frames are transient: the controller
// hands them to the recognizer and discards them.
type Frame struct {
	Image     image.Image
	Timestamp time.Time
	Region    string // source-region identifier, e.g. "(150,50)-(1920,540)"
}

// Region selects the part of a display to capture. A zero Width or Height
// extends to the display edge.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Source produces screen frames on demand.
type Source interface {
	Capture() (Frame, error)
	Close()
}
