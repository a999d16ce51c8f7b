package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/scms/internal/types"
)

func sampleSnapshot() types.Snapshot {
	owner := 1
	return types.Snapshot{
		Students: []types.Student{{
			ID: 2, Name: "john", Email: "john@example.com", Age: 15, Year: 3,
			Enrollments: []types.Enrollment{{CourseID: 1}},
			StudentType: types.StudentUndergraduate,
		}},
		Instructors: []types.Instructor{{
			ID: 1, Name: "Dr Test", Email: "dr.test@example.com", Courses: []int{1},
		}},
		Courses: []types.Course{{
			ID: 1, Title: "Python 101", Description: "Intro to Python", Year: 1,
			InstructorID: &owner, Roster: []int{2}, Grades: map[int]float64{2: 95.5},
		}},
		NextPersonID: 3,
		NextCourseID: 2,
	}
}

func TestLoad_MissingFile(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "scms_data.json"))

	snap, found, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, snap.Students)
	assert.Equal(t, 1, snap.NextPersonID)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "scms_data.json"))
	want := sampleSnapshot()

	require.NoError(t, f.Save(context.Background(), want))

	got, found, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestSave_DocumentShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scms_data.json")
	require.NoError(t, New(path).Save(context.Background(), sampleSnapshot()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"students": [{"id": 2, "name": "john", "email": "john@example.com", "age": 15, "year": 3,
			"enrollments": [{"course_id": 1}], "student_type": "undergraduate"}],
		"instructors": [{"id": 1, "name": "Dr Test", "email": "dr.test@example.com", "courses": [1]}],
		"courses": [{"id": 1, "title": "Python 101", "description": "Intro to Python", "year": 1,
			"instructor_id": 1, "roster": [2], "grades": {"2": 95.5}}],
		"next_person_id": 3,
		"next_course_id": 2
	}`, string(data))
}

func TestSave_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scms_data.json")
	f := New(path)

	require.NoError(t, f.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, f.Save(context.Background(), types.NewSnapshot()))

	got, found, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, got.Students)
	assert.Empty(t, got.Courses)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "scms_data.json", entries[0].Name())
}

func TestSave_PermissionsKeptOrDefaulted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scms_data.json")
	f := New(path)

	require.NoError(t, f.Save(context.Background(), sampleSnapshot()))
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), fi.Mode().Perm())

	require.NoError(t, os.Chmod(path, 0o600))
	require.NoError(t, f.Save(context.Background(), types.NewSnapshot()))
	fi, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestSave_MissingDirectory(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "nope", "scms_data.json"))
	assert.Error(t, f.Save(context.Background(), sampleSnapshot()))
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scms_data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"students": [`), 0o644))

	_, _, err := New(path).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMalformedData))
}

func TestLoad_NormalizesNulls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scms_data.json")
	doc := `{"students": [{"id": 1, "name": "Ann", "email": "ann@example.com", "age": 20, "year": 1}],
		"courses": [{"id": 1, "title": "T", "description": "D", "year": null, "instructor_id": null}],
		"next_person_id": 2, "next_course_id": 2}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	snap, found, err := New(path).Load(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotNil(t, snap.Instructors)
	assert.NotNil(t, snap.Students[0].Enrollments)
	assert.NotNil(t, snap.Courses[0].Roster)
	assert.NotNil(t, snap.Courses[0].Grades)
	assert.Nil(t, snap.Courses[0].InstructorID)
}

func TestContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(filepath.Join(t.TempDir(), "scms_data.json"))
	assert.ErrorIs(t, f.Save(ctx, sampleSnapshot()), context.Canceled)
	_, _, err := f.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
