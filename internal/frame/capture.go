package frame

import (
	"image"
	"strings"
	"time"

	"github.com/kbinani/screenshot"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// ScreenSource captures a fixed region of one display.
type ScreenSource struct {
	display int
	region  Region
}

// NewScreenSource creates a capturer for the given display and region.
func NewScreenSource(display int, region Region) *ScreenSource {
	return &ScreenSource{display: display, region: region}
}

// Capture grabs the configured region of the display. Failures are classified
// so the controller can tell a transient glitch from a missing screen-recording
// permission.
func (s *ScreenSource) Capture() (Frame, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return Frame{}, apperrors.New(apperrors.CodeCaptureUnavailable, "no active displays")
	}
	if s.display >= n {
		return Frame{}, apperrors.Newf(apperrors.CodeCaptureUnavailable, "display %d not available (%d active)", s.display, n)
	}

	bounds := screenshot.GetDisplayBounds(s.display)
	rect := s.region.rect(bounds)
	if rect.Empty() {
		return Frame{}, apperrors.Newf(apperrors.CodeCaptureUnavailable, "capture region %v outside display bounds %v", rect, bounds)
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return Frame{}, classifyCaptureError(err)
	}

	return Frame{Image: img, Timestamp: time.Now(), Region: rect.String()}, nil
}

// Close releases capture resources. The native backend holds none.
func (s *ScreenSource) Close() {}

// rect resolves the region against the display bounds, clamping to the edges.
func (r Region) rect(display image.Rectangle) image.Rectangle {
	rect := image.Rect(
		display.Min.X+r.X,
		display.Min.Y+r.Y,
		display.Max.X,
		display.Max.Y,
	)
	if r.Width > 0 {
		rect.Max.X = rect.Min.X + r.Width
	}
	if r.Height > 0 {
		rect.Max.Y = rect.Min.Y + r.Height
	}
	return rect.Intersect(display)
}

// classifyCaptureError maps platform capture failures onto the error taxonomy.
// Permission failures must stay distinguishable so they are surfaced to the
// user exactly once instead of flooding the log every poll.
func classifyCaptureError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"permission", "not authorized", "not permitted", "access denied", "declined"} {
		if strings.Contains(msg, marker) {
			return apperrors.Wrap(err, apperrors.CodePermissionDenied, "screen recording permission denied")
		}
	}
	return apperrors.Wrap(err, apperrors.CodeCaptureUnavailable, "screen capture failed")
}
