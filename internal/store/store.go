// Package store persists the counter across restarts.
//
// Saves are atomic: the record is written to a temp file in the same
// directory, fsynced, then renamed over the target. A crash at any point
// leaves either the previous record or the new one on disk, never a
// partial write.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	apperrors "github.com/GriffinCanCode/encounter-tracker/internal/errors"
)

// SchemaVersion tags the on-disk record format. Loads reject records
// written by an incompatible version instead of guessing.
const SchemaVersion = 1

// Record is the on-disk shape of the counter state.
type Record struct {
	SchemaVersion int  `json:"schema_version"`
	Count         int  `json:"count"`
	Running       bool `json:"running"`
}

// Store reads and writes the single state record at a fixed path.
type Store struct {
	path string
}

// New creates a store for the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the target file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes the record atomically. The record's schema version is set
// here; callers never populate it.
func (s *Store) Save(rec Record) error {
	rec.SchemaVersion = SchemaVersion

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeIOFailed, "encode state record")
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeIOFailed, "create temp state file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(err, apperrors.CodeIOFailed, "write temp state file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Wrap(err, apperrors.CodeIOFailed, "sync temp state file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(err, apperrors.CodeIOFailed, "close temp state file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperrors.Wrap(err, apperrors.CodeIOFailed, "replace state file")
	}
	return nil
}

// Load reads the record. A missing file returns CodeStateNotFound so the
// caller can start fresh; unparseable or wrong-version content returns
// CodeStateCorrupt.
func (s *Store) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, apperrors.Wrap(err, apperrors.CodeStateNotFound, "no saved state")
		}
		return Record{}, apperrors.Wrap(err, apperrors.CodeIOFailed, "read state file")
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, apperrors.Wrap(err, apperrors.CodeStateCorrupt, "decode state file")
	}
	if rec.SchemaVersion != SchemaVersion {
		return Record{}, apperrors.Newf(apperrors.CodeStateCorrupt,
			"unsupported state schema version %d", rec.SchemaVersion)
	}
	if rec.Count < 0 {
		return Record{}, apperrors.Newf(apperrors.CodeStateCorrupt,
			"negative count %d in state file", rec.Count)
	}
	return rec, nil
}
