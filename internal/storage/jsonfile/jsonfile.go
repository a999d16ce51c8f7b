// Package jsonfile provides the default storage.Storage backend: the whole
// registry as one indented JSON document on disk.
//
// WRITE STRATEGY
// ──────────────
// Save never writes into the target file directly. It writes a temporary
// file in the same directory, flushes it, and renames it over the target.
// rename(2) within one directory is atomic, so a crash mid-save leaves
// either the old document or the new one, never a truncated mix.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aanand-mishra/scms/internal/types"
)

// File is a storage.Storage backed by a single JSON file.
type File struct {
	path string
}

// New returns a backend for path. Nothing is touched on disk until the
// first Save or Load.
func New(path string) *File {
	return &File{path: path}
}

// Path is the file the backend reads and writes.
func (f *File) Path() string {
	return f.path
}

// Save encodes snap and atomically replaces the file with it.
func (f *File) Save(ctx context.Context, snap types.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("jsonfile.Save: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return fmt.Errorf("jsonfile.Save: encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("jsonfile.Save: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Any failure past this point must not leave the temp file behind.
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile.Save: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile.Save: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile.Save: close: %w", err)
	}
	if err := os.Chmod(tmpName, f.fileMode()); err != nil {
		return fmt.Errorf("jsonfile.Save: chmod: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("jsonfile.Save: rename: %w", err)
	}
	committed = true
	return nil
}

// fileMode is the mode of the existing file, or 0644 for a new one.
func (f *File) fileMode() fs.FileMode {
	if fi, err := os.Stat(f.path); err == nil {
		return fi.Mode().Perm()
	}
	return 0o644
}

// Load reads and decodes the file. A missing file is reported as
// found == false with a nil error.
func (f *File) Load(ctx context.Context) (types.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.Snapshot{}, false, fmt.Errorf("jsonfile.Load: %w", err)
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.NewSnapshot(), false, nil
	}
	if err != nil {
		return types.Snapshot{}, false, fmt.Errorf("jsonfile.Load: read: %w", err)
	}

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return types.Snapshot{}, false, fmt.Errorf("%w: %s: %s", types.ErrMalformedData, f.path, err.Error())
	}
	normalize(&snap)
	return snap, true, nil
}

// Close is a no-op; the file is only open during Save and Load.
func (f *File) Close() error {
	return nil
}

// normalize replaces JSON nulls and absent arrays/maps with empty values,
// so a document written by hand behaves like one written by Save.
func normalize(snap *types.Snapshot) {
	if snap.Students == nil {
		snap.Students = make([]types.Student, 0)
	}
	if snap.Instructors == nil {
		snap.Instructors = make([]types.Instructor, 0)
	}
	if snap.Courses == nil {
		snap.Courses = make([]types.Course, 0)
	}
	for i := range snap.Students {
		if snap.Students[i].Enrollments == nil {
			snap.Students[i].Enrollments = make([]types.Enrollment, 0)
		}
	}
	for i := range snap.Instructors {
		if snap.Instructors[i].Courses == nil {
			snap.Instructors[i].Courses = make([]int, 0)
		}
	}
	for i := range snap.Courses {
		if snap.Courses[i].Roster == nil {
			snap.Courses[i].Roster = make([]int, 0)
		}
		if snap.Courses[i].Grades == nil {
			snap.Courses[i].Grades = make(map[int]float64)
		}
	}
}
