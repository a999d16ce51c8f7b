package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/scms/internal/types"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "scms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleSnapshot() types.Snapshot {
	owner := 1
	return types.Snapshot{
		Students: []types.Student{
			{
				ID: 2, Name: "john", Email: "john@example.com", Age: 15, Year: 3,
				Enrollments: []types.Enrollment{{CourseID: 2}, {CourseID: 1}},
				StudentType: types.StudentUndergraduate,
			},
			{
				ID: 4, Name: "Ann", Email: "ann@example.com", Age: 22, Year: 5,
				Enrollments: []types.Enrollment{},
				StudentType: types.StudentGeneric,
			},
		},
		Instructors: []types.Instructor{
			{ID: 1, Name: "Dr Test", Email: "dr.test@example.com", Courses: []int{1}},
			{ID: 3, Name: "Dr Idle", Email: "idle@example.com", Courses: []int{}},
		},
		Courses: []types.Course{
			{
				ID: 1, Title: "Python 101", Description: "Intro to Python", Year: 1,
				InstructorID: &owner, Roster: []int{2}, Grades: map[int]float64{2: 95.5},
			},
			{
				ID: 2, Title: "Go", Description: "Unowned", Year: 0,
				Roster: []int{2}, Grades: map[int]float64{},
			},
		},
		NextPersonID: 5,
		NextCourseID: 3,
	}
}

func TestNew_CreatesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scms.db")

	first, err := New(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestLoad_EmptyDatabase(t *testing.T) {
	db := newTestDB(t)

	snap, found, err := db.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, types.NewSnapshot(), snap)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	want := sampleSnapshot()

	require.NoError(t, db.Save(context.Background(), want))

	got, found, err := db.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestSave_ReplacesPreviousData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, sampleSnapshot()))

	smaller := types.NewSnapshot()
	smaller.NextPersonID = 9
	smaller.NextCourseID = 4
	require.NoError(t, db.Save(ctx, smaller))

	got, found, err := db.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, smaller, got)
}

func TestSave_CancelledContextKeepsOldData(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Save(context.Background(), sampleSnapshot()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, db.Save(ctx, types.NewSnapshot()))

	got, _, err := db.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Students, 2)
}
