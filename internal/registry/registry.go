// Package registry owns every student, instructor and course in memory
// and is the only code allowed to change relationships between them.
//
// INVARIANTS KEPT HERE
// ────────────────────
//   - Students and instructors draw IDs from ONE shared counter; courses
//     from a separate one. Both start at 1 and only move forward.
//   - Student S is on course C's roster  ⇔  C is in S's enrollments.
//   - A course's grades only name students on its roster.
//   - An instructor's course list is exactly the courses created with that
//     instructor as owner.
//
// Entities enforce their own local rules (types.Course.EnrollStudent etc.);
// the registry checks every precondition on BOTH sides of a relationship
// before mutating either, so a failed call leaves nothing half-done.
//
// Values handed out by the registry are deep copies. Changing them has no
// effect on the registry.
package registry

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/aanand-mishra/scms/internal/types"
)

// Registry is the in-memory store. It is not safe for concurrent use; the
// application has exactly one actor (the shell or a one-shot command).
type Registry struct {
	students    map[int]*types.Student
	instructors map[int]*types.Instructor
	courses     map[int]*types.Course

	nextPersonID int
	nextCourseID int

	log *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for mutation and persistence events.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// New returns an empty registry with both counters at 1.
func New(opts ...Option) *Registry {
	r := &Registry{log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.students = make(map[int]*types.Student)
	r.instructors = make(map[int]*types.Instructor)
	r.courses = make(map[int]*types.Course)
	r.nextPersonID = 1
	r.nextCourseID = 1
}

// NextPersonID is the ID the next student or instructor will receive.
func (r *Registry) NextPersonID() int { return r.nextPersonID }

// NextCourseID is the ID the next course will receive.
func (r *Registry) NextCourseID() int { return r.nextCourseID }

// ─────────────────────────────────────────────────────────────────────────────
// Creation
// ─────────────────────────────────────────────────────────────────────────────

// CreateStudent validates and stores a new student. studentType selects
// the variant ("undergraduate", "graduate", anything else is generic).
// A validation failure consumes no ID.
func (r *Registry) CreateStudent(name, email string, age, year int, studentType string) (types.Student, error) {
	s, err := types.NewStudent(r.nextPersonID, name, email, age, year, types.ParseStudentType(studentType))
	if err != nil {
		return types.Student{}, fmt.Errorf("create student: %w", err)
	}

	r.students[s.ID] = s
	r.nextPersonID++

	r.log.Debug("student created",
		slog.Int("id", s.ID),
		slog.String("type", string(s.StudentType)))
	return s.Clone(), nil
}

// CreateInstructor validates and stores a new instructor, drawing its ID
// from the same counter as students.
func (r *Registry) CreateInstructor(name, email string) (types.Instructor, error) {
	in, err := types.NewInstructor(r.nextPersonID, name, email)
	if err != nil {
		return types.Instructor{}, fmt.Errorf("create instructor: %w", err)
	}

	r.instructors[in.ID] = in
	r.nextPersonID++

	r.log.Debug("instructor created", slog.Int("id", in.ID))
	return in.Clone(), nil
}

// CreateCourse validates and stores a new course. instructorID 0 leaves
// the course unassigned; any other value must name an existing instructor,
// who becomes the course's owner. year 0 means unspecified.
func (r *Registry) CreateCourse(title, description string, instructorID, year int) (types.Course, error) {
	var owner *types.Instructor
	if instructorID != 0 {
		in, ok := r.instructors[instructorID]
		if !ok {
			return types.Course{}, fmt.Errorf("create course: %w: instructor with id %d does not exist", types.ErrNotFound, instructorID)
		}
		owner = in
	}

	c, err := types.NewCourse(r.nextCourseID, title, description, year, instructorID)
	if err != nil {
		return types.Course{}, fmt.Errorf("create course: %w", err)
	}
	if owner != nil {
		// A fresh course ID cannot already be assigned.
		if err := owner.AssignCourse(c.ID); err != nil {
			return types.Course{}, fmt.Errorf("create course: %w", err)
		}
	}

	r.courses[c.ID] = c
	r.nextCourseID++

	r.log.Debug("course created",
		slog.Int("id", c.ID),
		slog.Int("instructor_id", instructorID))
	return c.Clone(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Relationships
// ─────────────────────────────────────────────────────────────────────────────

// EnrollStudentInCourse puts the student on the course's roster and the
// course in the student's enrollments, or changes nothing.
func (r *Registry) EnrollStudentInCourse(studentID, courseID int) error {
	s, c, err := r.pair(studentID, courseID)
	if err != nil {
		return fmt.Errorf("enroll: %w", err)
	}
	if c.IsEnrolled(studentID) || s.IsEnrolled(courseID) {
		return fmt.Errorf("enroll: %w: student %d is already enrolled in course %d", types.ErrConflict, studentID, courseID)
	}

	// Both preconditions hold, so neither call can fail.
	if err := c.EnrollStudent(studentID); err != nil {
		return fmt.Errorf("enroll: %w", err)
	}
	if err := s.Enroll(courseID); err != nil {
		return fmt.Errorf("enroll: %w", err)
	}

	r.log.Debug("student enrolled",
		slog.Int("student_id", studentID),
		slog.Int("course_id", courseID))
	return nil
}

// UnenrollStudentFromCourse removes the relationship from both sides and
// drops the student's grade in the course, or changes nothing.
func (r *Registry) UnenrollStudentFromCourse(studentID, courseID int) error {
	s, c, err := r.pair(studentID, courseID)
	if err != nil {
		return fmt.Errorf("unenroll: %w", err)
	}
	if !c.IsEnrolled(studentID) || !s.IsEnrolled(courseID) {
		return fmt.Errorf("unenroll: %w: student %d is not enrolled in course %d", types.ErrConflict, studentID, courseID)
	}

	if err := c.UnenrollStudent(studentID); err != nil {
		return fmt.Errorf("unenroll: %w", err)
	}
	if err := s.Unenroll(courseID); err != nil {
		return fmt.Errorf("unenroll: %w", err)
	}

	r.log.Debug("student unenrolled",
		slog.Int("student_id", studentID),
		slog.Int("course_id", courseID))
	return nil
}

// SetGrade records a grade on behalf of instructorID, who must own the
// course. The student must be enrolled and the grade within [0, 100].
func (r *Registry) SetGrade(instructorID, courseID, studentID int, grade float64) error {
	c, ok := r.courses[courseID]
	if !ok {
		return fmt.Errorf("set grade: %w: course with id %d does not exist", types.ErrNotFound, courseID)
	}
	if !c.OwnedBy(instructorID) {
		return fmt.Errorf("set grade: %w: instructor with id %d is not assigned to course %d", types.ErrUnauthorized, instructorID, courseID)
	}
	if err := c.SetGrade(studentID, grade); err != nil {
		return fmt.Errorf("set grade: %w", err)
	}

	r.log.Debug("grade recorded",
		slog.Int("instructor_id", instructorID),
		slog.Int("course_id", courseID),
		slog.Int("student_id", studentID),
		slog.Float64("grade", grade))
	return nil
}

func (r *Registry) pair(studentID, courseID int) (*types.Student, *types.Course, error) {
	s, ok := r.students[studentID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: student with id %d does not exist", types.ErrNotFound, studentID)
	}
	c, ok := r.courses[courseID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: course with id %d does not exist", types.ErrNotFound, courseID)
	}
	return s, c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups. The bool result reports whether the entity exists.
// ─────────────────────────────────────────────────────────────────────────────

// Student returns a copy of the student with id.
func (r *Registry) Student(id int) (types.Student, bool) {
	s, ok := r.students[id]
	if !ok {
		return types.Student{}, false
	}
	return s.Clone(), true
}

// Instructor returns a copy of the instructor with id.
func (r *Registry) Instructor(id int) (types.Instructor, bool) {
	in, ok := r.instructors[id]
	if !ok {
		return types.Instructor{}, false
	}
	return in.Clone(), true
}

// Course returns a copy of the course with id.
func (r *Registry) Course(id int) (types.Course, bool) {
	c, ok := r.courses[id]
	if !ok {
		return types.Course{}, false
	}
	return c.Clone(), true
}

// FindStudentByEmail returns the lowest-ID student whose email matches,
// ignoring case.
func (r *Registry) FindStudentByEmail(email string) (types.Student, bool) {
	for _, id := range sortedKeys(r.students) {
		s := r.students[id]
		if strings.EqualFold(s.Email, email) {
			return s.Clone(), true
		}
	}
	return types.Student{}, false
}

// Students returns copies of every student, ordered by ID.
func (r *Registry) Students() []types.Student {
	out := make([]types.Student, 0, len(r.students))
	for _, id := range sortedKeys(r.students) {
		out = append(out, r.students[id].Clone())
	}
	return out
}

// Instructors returns copies of every instructor, ordered by ID.
func (r *Registry) Instructors() []types.Instructor {
	out := make([]types.Instructor, 0, len(r.instructors))
	for _, id := range sortedKeys(r.instructors) {
		out = append(out, r.instructors[id].Clone())
	}
	return out
}

// Courses returns copies of every course, ordered by ID.
func (r *Registry) Courses() []types.Course {
	out := make([]types.Course, 0, len(r.courses))
	for _, id := range sortedKeys(r.courses) {
		out = append(out, r.courses[id].Clone())
	}
	return out
}

// InstructorCourses returns copies of the courses owned by instructorID,
// in assignment order.
func (r *Registry) InstructorCourses(instructorID int) ([]types.Course, error) {
	in, ok := r.instructors[instructorID]
	if !ok {
		return nil, fmt.Errorf("%w: instructor with id %d does not exist", types.ErrNotFound, instructorID)
	}
	out := make([]types.Course, 0, len(in.Courses))
	for _, cid := range in.Courses {
		if c, ok := r.courses[cid]; ok {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[int]V) []int {
	return slices.Sorted(maps.Keys(m))
}
