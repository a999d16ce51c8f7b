package types

import (
	"fmt"
	"slices"
)

// Enrollment is the student-side record of a course the student is in.
type Enrollment struct {
	CourseID int `json:"course_id" yaml:"course_id"`
}

// Student represents a student record.
//
// Enrollments mirrors the rosters of the courses the student is in. Only
// the registry keeps the two sides consistent; Enroll/Unenroll here check
// this side alone.
type Student struct {
	ID          int          `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name" validate:"required,person_name"`
	Email       string       `json:"email" yaml:"email" validate:"required,email_address"`
	Age         int          `json:"age" yaml:"age" validate:"age"`
	Year        int          `json:"year" yaml:"year" validate:"study_year"`
	Enrollments []Enrollment `json:"enrollments" yaml:"enrollments"`
	StudentType StudentType  `json:"student_type" yaml:"student_type"`
}

// NewStudent builds and validates a student with no enrollments.
func NewStudent(id int, name, email string, age, year int, kind StudentType) (*Student, error) {
	s := &Student{
		ID:          id,
		Name:        name,
		Email:       email,
		Age:         age,
		Year:        year,
		Enrollments: make([]Enrollment, 0),
		StudentType: ParseStudentType(string(kind)),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the student's own fields and that no course appears
// twice in Enrollments.
func (s *Student) Validate() error {
	if err := checkFields("student", s); err != nil {
		return err
	}
	seen := make(map[int]struct{}, len(s.Enrollments))
	for _, e := range s.Enrollments {
		if _, dup := seen[e.CourseID]; dup {
			return fmt.Errorf("%w: student %d lists course %d twice", ErrValidation, s.ID, e.CourseID)
		}
		seen[e.CourseID] = struct{}{}
	}
	return nil
}

// IsEnrolled reports whether the student has an enrollment for courseID.
func (s *Student) IsEnrolled(courseID int) bool {
	return s.enrollmentIndex(courseID) >= 0
}

// CourseIDs returns the enrolled course IDs in enrollment order.
func (s *Student) CourseIDs() []int {
	ids := make([]int, 0, len(s.Enrollments))
	for _, e := range s.Enrollments {
		ids = append(ids, e.CourseID)
	}
	return ids
}

// Enroll appends an enrollment for courseID.
func (s *Student) Enroll(courseID int) error {
	if s.IsEnrolled(courseID) {
		return fmt.Errorf("%w: student %d is already enrolled in course %d", ErrConflict, s.ID, courseID)
	}
	s.Enrollments = append(s.Enrollments, Enrollment{CourseID: courseID})
	return nil
}

// Unenroll removes the enrollment for courseID.
func (s *Student) Unenroll(courseID int) error {
	i := s.enrollmentIndex(courseID)
	if i < 0 {
		return fmt.Errorf("%w: student %d is not enrolled in course %d", ErrConflict, s.ID, courseID)
	}
	s.Enrollments = slices.Delete(s.Enrollments, i, i+1)
	return nil
}

// Clone returns a deep copy.
func (s *Student) Clone() Student {
	out := *s
	out.Enrollments = append(make([]Enrollment, 0, len(s.Enrollments)), s.Enrollments...)
	return out
}

func (s *Student) enrollmentIndex(courseID int) int {
	return slices.IndexFunc(s.Enrollments, func(e Enrollment) bool {
		return e.CourseID == courseID
	})
}
