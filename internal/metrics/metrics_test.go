package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.FramesCaptured.Add(3)
	m.Encounters.Add(2)
	m.EncounterCount.Store(42)
	m.DetectorState.Store(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"tracker_frames_captured_total 3",
		"tracker_encounters_total 2",
		"tracker_encounter_count 42",
		"tracker_detector_state 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}
