package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))

	if err := s.Save(Record{Count: 37, Running: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.Count != 37 || !rec.Running {
		t.Errorf("Load = %+v, want count 37 running", rec)
	}
	if rec.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", rec.SchemaVersion, SchemaVersion)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))

	_, err := s.Load()
	if !apperrors.IsCode(err, apperrors.CodeStateNotFound) {
		t.Errorf("Load on missing file: err = %v, want CodeStateNotFound", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"truncated json", `{"schema_version":1,"cou`},
		{"not json", "count=5\n"},
		{"wrong schema", `{"schema_version":99,"count":5,"running":true}`},
		{"negative count", `{"schema_version":1,"count":-3,"running":true}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := New(path).Load()
			if !apperrors.IsCode(err, apperrors.CodeStateCorrupt) {
				t.Errorf("err = %v, want CodeStateCorrupt", err)
			}
		})
	}
}

func TestSaveSurvivesLeftoverTemp(t *testing.T) {
	// A crash between temp write and rename leaves a temp file behind. It
	// must not shadow the real record or break the next save.
	dir := t.TempDir()
	s := New(filepath.Join(dir, "state.json"))

	if err := s.Save(Record{Count: 5, Running: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	leftover := filepath.Join(dir, ".state-12345.tmp")
	if err := os.WriteFile(leftover, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Load()
	if err != nil || rec.Count != 5 {
		t.Fatalf("Load with leftover temp = (%+v, %v), want count 5", rec, err)
	}

	if err := s.Save(Record{Count: 6, Running: true}); err != nil {
		t.Fatalf("Save after leftover temp: %v", err)
	}
	rec, err = s.Load()
	if err != nil || rec.Count != 6 {
		t.Fatalf("Load after second save = (%+v, %v), want count 6", rec, err)
	}
}

func TestSaveOverwritesPreviousRecord(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "state.json"))

	for i := 1; i <= 3; i++ {
		if err := s.Save(Record{Count: i, Running: true}); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	rec, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.Count != 3 {
		t.Errorf("Count = %d, want 3", rec.Count)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "state.json"))

	if err := s.Save(Record{Count: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind after successful save", e.Name())
		}
	}
}
