package registry

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// ============================================================================
// Property-Based Tests for Registry Invariants
// ============================================================================

// randomRegistry drives a registry through a random sequence of operations,
// including ones that are expected to fail, and returns it.
func randomRegistry(t *rapid.T) *Registry {
	reg := New(WithLogger(quietLogger()))

	numInstructors := rapid.IntRange(0, 3).Draw(t, "numInstructors")
	for i := 0; i < numInstructors; i++ {
		_, err := reg.CreateInstructor(fmt.Sprintf("Instructor %c", 'A'+i), fmt.Sprintf("inst%d@example.com", i))
		require.NoError(t, err)
	}

	numStudents := rapid.IntRange(0, 6).Draw(t, "numStudents")
	for i := 0; i < numStudents; i++ {
		_, err := reg.CreateStudent(fmt.Sprintf("Student %c", 'A'+i), fmt.Sprintf("s%d@example.com", i),
			rapid.IntRange(11, 29).Draw(t, "age"),
			rapid.IntRange(1, 5).Draw(t, "year"),
			rapid.SampledFrom([]string{"", "undergraduate", "graduate"}).Draw(t, "type"))
		require.NoError(t, err)
	}

	numCourses := rapid.IntRange(0, 4).Draw(t, "numCourses")
	for i := 0; i < numCourses; i++ {
		// 0 = unassigned; IDs beyond the person counter are rejected.
		owner := rapid.IntRange(0, reg.NextPersonID()).Draw(t, "owner")
		_, _ = reg.CreateCourse(fmt.Sprintf("Course %d", i), "desc", owner, rapid.IntRange(0, 5).Draw(t, "courseYear"))
	}

	maxPerson := reg.NextPersonID()
	maxCourse := reg.NextCourseID()
	ops := rapid.IntRange(0, 40).Draw(t, "ops")
	for i := 0; i < ops; i++ {
		sid := rapid.IntRange(0, maxPerson).Draw(t, "sid")
		cid := rapid.IntRange(0, maxCourse).Draw(t, "cid")
		switch rapid.IntRange(0, 2).Draw(t, "op") {
		case 0:
			_ = reg.EnrollStudentInCourse(sid, cid)
		case 1:
			_ = reg.UnenrollStudentFromCourse(sid, cid)
		case 2:
			iid := rapid.IntRange(0, maxPerson).Draw(t, "iid")
			grade := rapid.Float64Range(-10, 110).Draw(t, "grade")
			_ = reg.SetGrade(iid, cid, sid, grade)
		}
	}
	return reg
}

// checkInvariants asserts every cross-entity rule on the registry's
// internal state.
func checkInvariants(t require.TestingT, reg *Registry) {
	for _, s := range reg.students {
		for _, cid := range s.CourseIDs() {
			c, ok := reg.courses[cid]
			require.True(t, ok, "student %d enrolled in missing course %d", s.ID, cid)
			require.True(t, c.IsEnrolled(s.ID), "student %d lists course %d without roster entry", s.ID, cid)
		}
	}
	for _, c := range reg.courses {
		for _, sid := range c.Roster {
			s, ok := reg.students[sid]
			require.True(t, ok, "course %d lists missing student %d", c.ID, sid)
			require.True(t, s.IsEnrolled(c.ID), "course %d lists student %d without enrollment", c.ID, sid)
		}
		for sid, g := range c.Grades {
			require.True(t, c.IsEnrolled(sid), "course %d grades student %d off roster", c.ID, sid)
			require.GreaterOrEqual(t, g, 0.0)
			require.LessOrEqual(t, g, 100.0)
		}
		if c.InstructorID != nil {
			in, ok := reg.instructors[*c.InstructorID]
			require.True(t, ok)
			require.True(t, in.Teaches(c.ID))
		}
	}
	for _, in := range reg.instructors {
		for _, cid := range in.Courses {
			require.True(t, reg.courses[cid].OwnedBy(in.ID))
		}
		_, clash := reg.students[in.ID]
		require.False(t, clash, "person id %d shared", in.ID)
	}
}

func TestProperty_RelationshipsStayReciprocal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		checkInvariants(t, randomRegistry(t))
	})
}

func TestProperty_FailedOperationsChangeNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := randomRegistry(t)

		sid := rapid.IntRange(0, reg.NextPersonID()+1).Draw(t, "sid")
		cid := rapid.IntRange(0, reg.NextCourseID()+1).Draw(t, "cid")
		iid := rapid.IntRange(0, reg.NextPersonID()+1).Draw(t, "iid")
		grade := rapid.Float64Range(-10, 110).Draw(t, "grade")

		for _, op := range []func() error{
			func() error { return reg.EnrollStudentInCourse(sid, cid) },
			func() error { return reg.UnenrollStudentFromCourse(sid, cid) },
			func() error { return reg.SetGrade(iid, cid, sid, grade) },
		} {
			snap := reg.Snapshot()
			if err := op(); err != nil {
				require.Equal(t, snap, reg.Snapshot())
			}
		}
		checkInvariants(t, reg)
	})
}

func TestProperty_EnrollThenUnenrollRestoresState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := randomRegistry(t)
		students := reg.Students()
		courses := reg.Courses()
		if len(students) == 0 || len(courses) == 0 {
			t.Skip("nothing to enroll")
		}
		s := rapid.SampledFrom(students).Draw(t, "student")
		c := rapid.SampledFrom(courses).Draw(t, "course")
		if c.IsEnrolled(s.ID) {
			t.Skip("already enrolled")
		}

		before := reg.Snapshot()
		require.NoError(t, reg.EnrollStudentInCourse(s.ID, c.ID))
		require.Error(t, reg.EnrollStudentInCourse(s.ID, c.ID))
		require.NoError(t, reg.UnenrollStudentFromCourse(s.ID, c.ID))
		require.Error(t, reg.UnenrollStudentFromCourse(s.ID, c.ID))
		require.Equal(t, before, reg.Snapshot())
	})
}

func TestProperty_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	n := 0
	rapid.Check(t, func(rt *rapid.T) {
		reg := randomRegistry(rt)
		n++
		path := filepath.Join(dir, fmt.Sprintf("scms_%d.json", n))

		require.NoError(rt, reg.SaveToFile(path))

		fresh := New(WithLogger(quietLogger()))
		loaded, err := fresh.LoadFromFile(path)
		require.NoError(rt, err)
		require.True(rt, loaded)
		require.Equal(rt, reg.Snapshot(), fresh.Snapshot())
		checkInvariants(rt, fresh)
	})
}
