package types

import (
	"fmt"
	"slices"
)

// Course represents a course offering.
//
// InstructorID is nil when no instructor owns the course; it encodes as
// JSON null. Grades is keyed by student ID and only ever holds students
// that are on the Roster.
type Course struct {
	ID           int             `json:"id" yaml:"id"`
	Title        string          `json:"title" yaml:"title" validate:"required,nonblank"`
	Description  string          `json:"description" yaml:"description" validate:"required,nonblank"`
	Year         int             `json:"year" yaml:"year" validate:"course_year"`
	InstructorID *int            `json:"instructor_id" yaml:"instructor_id"`
	Roster       []int           `json:"roster" yaml:"roster"`
	Grades       map[int]float64 `json:"grades" yaml:"grades" validate:"dive,grade"`
}

// NewCourse builds and validates a course with an empty roster.
// instructorID 0 means the course is unassigned; year 0 means unspecified.
func NewCourse(id int, title, description string, year, instructorID int) (*Course, error) {
	c := &Course{
		ID:          id,
		Title:       title,
		Description: description,
		Year:        year,
		Roster:      make([]int, 0),
		Grades:      make(map[int]float64),
	}
	if instructorID != 0 {
		c.InstructorID = &instructorID
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the course's fields, roster uniqueness, and that every
// graded student is on the roster.
func (c *Course) Validate() error {
	if err := checkFields("course", c); err != nil {
		return err
	}
	seen := make(map[int]struct{}, len(c.Roster))
	for _, sid := range c.Roster {
		if _, dup := seen[sid]; dup {
			return fmt.Errorf("%w: course %d lists student %d twice", ErrValidation, c.ID, sid)
		}
		seen[sid] = struct{}{}
	}
	for sid := range c.Grades {
		if _, ok := seen[sid]; !ok {
			return fmt.Errorf("%w: course %d has a grade for student %d who is not enrolled", ErrValidation, c.ID, sid)
		}
	}
	return nil
}

// OwnedBy reports whether instructorID owns the course.
func (c *Course) OwnedBy(instructorID int) bool {
	return c.InstructorID != nil && *c.InstructorID == instructorID
}

// IsEnrolled reports whether studentID is on the roster.
func (c *Course) IsEnrolled(studentID int) bool {
	return slices.Contains(c.Roster, studentID)
}

// EnrollStudent appends studentID to the roster.
func (c *Course) EnrollStudent(studentID int) error {
	if c.IsEnrolled(studentID) {
		return fmt.Errorf("%w: student %d is already enrolled in course %d", ErrConflict, studentID, c.ID)
	}
	c.Roster = append(c.Roster, studentID)
	return nil
}

// UnenrollStudent removes studentID from the roster and drops any grade.
func (c *Course) UnenrollStudent(studentID int) error {
	i := slices.Index(c.Roster, studentID)
	if i < 0 {
		return fmt.Errorf("%w: student %d is not enrolled in course %d", ErrConflict, studentID, c.ID)
	}
	c.Roster = slices.Delete(c.Roster, i, i+1)
	delete(c.Grades, studentID)
	return nil
}

// SetGrade records or overwrites the grade of an enrolled student.
func (c *Course) SetGrade(studentID int, grade float64) error {
	if !c.IsEnrolled(studentID) {
		return fmt.Errorf("%w: student %d is not enrolled in course %d", ErrConflict, studentID, c.ID)
	}
	if err := checkGrade(grade); err != nil {
		return err
	}
	if c.Grades == nil {
		c.Grades = make(map[int]float64)
	}
	c.Grades[studentID] = grade
	return nil
}

// Grade returns the recorded grade for studentID, if any.
func (c *Course) Grade(studentID int) (float64, bool) {
	g, ok := c.Grades[studentID]
	return g, ok
}

// AverageGrade is the mean of the recorded grades, or 0 when none are
// recorded.
func (c *Course) AverageGrade() float64 {
	if len(c.Grades) == 0 {
		return 0
	}
	var sum float64
	for _, g := range c.Grades {
		sum += g
	}
	return sum / float64(len(c.Grades))
}

// Clone returns a deep copy.
func (c *Course) Clone() Course {
	out := *c
	if c.InstructorID != nil {
		id := *c.InstructorID
		out.InstructorID = &id
	}
	out.Roster = append(make([]int, 0, len(c.Roster)), c.Roster...)
	out.Grades = make(map[int]float64, len(c.Grades))
	for k, v := range c.Grades {
		out.Grades[k] = v
	}
	return out
}

func checkGrade(grade float64) error {
	return checkFields("grade", struct {
		Grade float64 `json:"grade" validate:"grade"`
	}{grade})
}
