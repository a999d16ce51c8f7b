// Package report renders read-only summaries of registry data.
package report

import (
	"fmt"
	"io"

	"github.com/aanand-mishra/scms/internal/types"
)

// NotGraded is printed in place of a grade the instructor has not set yet.
const NotGraded = "Marks not available at moment"

// unknownStudent stands in for a roster entry the lookup cannot resolve.
const unknownStudent = "<unknown student>"

// StudentLookup resolves a student ID. The bool is false when the student
// does not exist.
type StudentLookup func(id int) (types.Student, bool)

// CourseReport summarises one course's roster and grades.
type CourseReport struct {
	course types.Course
	lookup StudentLookup
}

// NewCourseReport returns a report over course. The course is copied, so
// later changes to the caller's value do not show up in the report.
func NewCourseReport(course types.Course, lookup StudentLookup) *CourseReport {
	return &CourseReport{course: course.Clone(), lookup: lookup}
}

// Lines returns the report, one entry per printed line.
//
// An empty roster produces a header and a "No students enrolled" line only.
// Otherwise every roster entry is listed in roster order as
// "<id>:<name>:<grade>", followed by the class average.
func (r *CourseReport) Lines() []string {
	c := r.course
	lines := []string{fmt.Sprintf("Report for course name: %s with id %d", c.Title, c.ID)}

	if len(c.Roster) == 0 {
		return append(lines, fmt.Sprintf("No students enrolled in %s", c.Title))
	}

	for _, sid := range c.Roster {
		name := unknownStudent
		if r.lookup != nil {
			if s, ok := r.lookup(sid); ok {
				name = s.Name
			}
		}

		grade := NotGraded
		if g, ok := c.Grade(sid); ok {
			grade = fmt.Sprintf("%.1f", g)
		}
		lines = append(lines, fmt.Sprintf("%d:%s:%s", sid, name, grade))
	}

	return append(lines, fmt.Sprintf("class average: %.2f", c.AverageGrade()))
}

// Write prints the report to w.
func (r *CourseReport) Write(w io.Writer) error {
	for _, line := range r.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("report.Write: %w", err)
		}
	}
	return nil
}
