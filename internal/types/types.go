// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// the registry, the storage backends, the report and the shell can all
// import types without depending on each other.
//
// Every entity validates itself when it is constructed (NewStudent,
// NewInstructor, NewCourse). A constructor either returns a fully valid
// value or an error; a half-built entity never exists.
//
// Struct tags serve three purposes:
//
//  1. json:"..."     the key names in the persisted data file.
//  2. yaml:"..."     the key names used by `scms export --format yaml`.
//  3. validate:"..." rules checked by go-playground/validator, registered
//     in internal/utils/validate.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aanand-mishra/scms/internal/utils/validate"
)

// Error kinds. Every error returned by this package, the registry and the
// storage backends wraps exactly one of these, so callers can branch with
// errors.Is while still showing the wrapped, human-readable message.
var (
	// ErrValidation: a field failed its rule; the entity was not created
	// or the value was not recorded.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound: a referenced student, instructor or course ID is unknown.
	ErrNotFound = errors.New("not found")

	// ErrConflict: the operation clashes with current state (already
	// enrolled, not enrolled, duplicate assignment).
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized: the acting instructor does not own the course.
	ErrUnauthorized = errors.New("not authorized")

	// ErrMalformedData: persisted data could not be decoded or violates
	// the registry's invariants.
	ErrMalformedData = errors.New("malformed data")
)

// checkFields runs the struct's validate tags and wraps any failure as
// ErrValidation.
func checkFields(entity string, v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrValidation, entity, err)
	}
	return nil
}

// StudentType tags the student variant. All variants carry identical
// fields and behaviour.
type StudentType string

const (
	StudentGeneric       StudentType = "student"
	StudentUndergraduate StudentType = "undergraduate"
	StudentGraduate      StudentType = "graduate"
)

// ParseStudentType maps free text to a variant, case-insensitively.
// Anything that is not "undergraduate" or "graduate" is a generic student.
func ParseStudentType(s string) StudentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(StudentUndergraduate):
		return StudentUndergraduate
	case string(StudentGraduate):
		return StudentGraduate
	default:
		return StudentGeneric
	}
}

// Snapshot is the serialisable representation of the whole registry:
// the three collections plus both ID counters. It is the unit of
// persistence; storage backends save and load whole Snapshots.
type Snapshot struct {
	Students     []Student    `json:"students" yaml:"students"`
	Instructors  []Instructor `json:"instructors" yaml:"instructors"`
	Courses      []Course     `json:"courses" yaml:"courses"`
	NextPersonID int          `json:"next_person_id" yaml:"next_person_id"`
	NextCourseID int          `json:"next_course_id" yaml:"next_course_id"`
}

// NewSnapshot returns an empty snapshot with both counters at 1.
// The slices are non-nil so they encode as [] rather than null.
func NewSnapshot() Snapshot {
	return Snapshot{
		Students:     make([]Student, 0),
		Instructors:  make([]Instructor, 0),
		Courses:      make([]Course, 0),
		NextPersonID: 1,
		NextCourseID: 1,
	}
}
