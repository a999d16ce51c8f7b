package types

import (
	"fmt"
	"slices"
)

// Instructor represents a teaching staff member. Courses lists the IDs of
// the courses created with this instructor as owner.
type Instructor struct {
	ID      int    `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name" validate:"required,person_name"`
	Email   string `json:"email" yaml:"email" validate:"required,email_address"`
	Courses []int  `json:"courses" yaml:"courses"`
}

// NewInstructor builds and validates an instructor with no courses.
func NewInstructor(id int, name, email string) (*Instructor, error) {
	in := &Instructor{ID: id, Name: name, Email: email, Courses: make([]int, 0)}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// Validate checks the instructor's fields and that no course is listed twice.
func (in *Instructor) Validate() error {
	if err := checkFields("instructor", in); err != nil {
		return err
	}
	seen := make(map[int]struct{}, len(in.Courses))
	for _, id := range in.Courses {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: instructor %d lists course %d twice", ErrValidation, in.ID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Teaches reports whether courseID is assigned to the instructor.
func (in *Instructor) Teaches(courseID int) bool {
	return slices.Contains(in.Courses, courseID)
}

// AssignCourse adds courseID to the instructor's courses.
func (in *Instructor) AssignCourse(courseID int) error {
	if in.Teaches(courseID) {
		return fmt.Errorf("%w: instructor %d is already assigned to course %d", ErrConflict, in.ID, courseID)
	}
	in.Courses = append(in.Courses, courseID)
	return nil
}

// UnassignCourse removes courseID from the instructor's courses.
func (in *Instructor) UnassignCourse(courseID int) error {
	i := slices.Index(in.Courses, courseID)
	if i < 0 {
		return fmt.Errorf("%w: instructor %d is not assigned to course %d", ErrConflict, in.ID, courseID)
	}
	in.Courses = slices.Delete(in.Courses, i, i+1)
	return nil
}

// Clone returns a deep copy.
func (in *Instructor) Clone() Instructor {
	out := *in
	out.Courses = append(make([]int, 0, len(in.Courses)), in.Courses...)
	return out
}
