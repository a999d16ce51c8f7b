// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. Selecting it (storage.driver: sqlite) keeps the registry's data
// queryable with the sqlite3 CLI while preserving exactly the same
// snapshot semantics as the JSON backend.
//
// The blank import below registers the sqlite3 driver with database/sql.
// The driver's init() function does this automatically when the package
// is loaded; we never call anything from it directly.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aanand-mishra/scms/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// schema is idempotent and safe to run on every startup.
//
// Ordered lists (enrollments, instructor courses, rosters) carry a
// position column so Load restores them in the order they were saved.
const schema = `
	CREATE TABLE IF NOT EXISTS students (
		id           INTEGER PRIMARY KEY,
		name         TEXT    NOT NULL,
		email        TEXT    NOT NULL,
		age          INTEGER NOT NULL,
		year         INTEGER NOT NULL,
		student_type TEXT    NOT NULL
	);
	CREATE TABLE IF NOT EXISTS enrollments (
		student_id INTEGER NOT NULL,
		course_id  INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		PRIMARY KEY (student_id, course_id)
	);
	CREATE TABLE IF NOT EXISTS instructors (
		id    INTEGER PRIMARY KEY,
		name  TEXT    NOT NULL,
		email TEXT    NOT NULL
	);
	CREATE TABLE IF NOT EXISTS instructor_courses (
		instructor_id INTEGER NOT NULL,
		course_id     INTEGER NOT NULL,
		position      INTEGER NOT NULL,
		PRIMARY KEY (instructor_id, course_id)
	);
	CREATE TABLE IF NOT EXISTS courses (
		id            INTEGER PRIMARY KEY,
		title         TEXT    NOT NULL,
		description   TEXT    NOT NULL,
		year          INTEGER NOT NULL,
		instructor_id INTEGER
	);
	CREATE TABLE IF NOT EXISTS roster (
		course_id  INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		position   INTEGER NOT NULL,
		PRIMARY KEY (course_id, student_id)
	);
	CREATE TABLE IF NOT EXISTS grades (
		course_id  INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		grade      REAL    NOT NULL,
		PRIMARY KEY (course_id, student_id)
	);
	CREATE TABLE IF NOT EXISTS counters (
		name  TEXT    PRIMARY KEY,
		value INTEGER NOT NULL
	);
`

// tables in the order Save clears them.
var tables = []string{
	"grades", "roster", "courses", "instructor_courses",
	"instructors", "enrollments", "students", "counters",
}

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at path, creates the tables if they do not
// already exist, and returns a ready-to-use *SQLite.
func New(path string) (*SQLite, error) {
	// sql.Open does NOT open a real connection yet; it just validates
	// the driver name and data source name (DSN).
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create tables: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Save replaces every row with the contents of snap inside one transaction.
//
// Either the whole snapshot is committed or, on any error, the transaction
// is rolled back and the previously saved data stays intact.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Save(ctx context.Context, snap types.Snapshot) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: begin: %w", err)
	}
	// Rollback after a successful Commit is a no-op returning ErrTxDone.
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("Save: clear %s: %w", table, err)
		}
	}

	if err := saveStudents(ctx, tx, snap.Students); err != nil {
		return err
	}
	if err := saveInstructors(ctx, tx, snap.Instructors); err != nil {
		return err
	}
	if err := saveCourses(ctx, tx, snap.Courses); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO counters (name, value) VALUES ('next_person_id', ?), ('next_course_id', ?)",
		snap.NextPersonID, snap.NextCourseID,
	)
	if err != nil {
		return fmt.Errorf("Save: counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Save: commit: %w", err)
	}
	return nil
}

func saveStudents(ctx context.Context, tx *sql.Tx, students []types.Student) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO students (id, name, email, age, year, student_type) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("saveStudents: prepare: %w", err)
	}
	defer stmt.Close()

	enroll, err := tx.PrepareContext(ctx,
		"INSERT INTO enrollments (student_id, course_id, position) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("saveStudents: prepare enrollments: %w", err)
	}
	defer enroll.Close()

	for _, st := range students {
		if _, err := stmt.ExecContext(ctx, st.ID, st.Name, st.Email, st.Age, st.Year, string(st.StudentType)); err != nil {
			return fmt.Errorf("saveStudents: student %d: %w", st.ID, err)
		}
		for pos, e := range st.Enrollments {
			if _, err := enroll.ExecContext(ctx, st.ID, e.CourseID, pos); err != nil {
				return fmt.Errorf("saveStudents: enrollment %d/%d: %w", st.ID, e.CourseID, err)
			}
		}
	}
	return nil
}

func saveInstructors(ctx context.Context, tx *sql.Tx, instructors []types.Instructor) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO instructors (id, name, email) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("saveInstructors: prepare: %w", err)
	}
	defer stmt.Close()

	assign, err := tx.PrepareContext(ctx,
		"INSERT INTO instructor_courses (instructor_id, course_id, position) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("saveInstructors: prepare courses: %w", err)
	}
	defer assign.Close()

	for _, in := range instructors {
		if _, err := stmt.ExecContext(ctx, in.ID, in.Name, in.Email); err != nil {
			return fmt.Errorf("saveInstructors: instructor %d: %w", in.ID, err)
		}
		for pos, cid := range in.Courses {
			if _, err := assign.ExecContext(ctx, in.ID, cid, pos); err != nil {
				return fmt.Errorf("saveInstructors: course %d/%d: %w", in.ID, cid, err)
			}
		}
	}
	return nil
}

func saveCourses(ctx context.Context, tx *sql.Tx, courses []types.Course) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO courses (id, title, description, year, instructor_id) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("saveCourses: prepare: %w", err)
	}
	defer stmt.Close()

	roster, err := tx.PrepareContext(ctx,
		"INSERT INTO roster (course_id, student_id, position) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("saveCourses: prepare roster: %w", err)
	}
	defer roster.Close()

	grades, err := tx.PrepareContext(ctx,
		"INSERT INTO grades (course_id, student_id, grade) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("saveCourses: prepare grades: %w", err)
	}
	defer grades.Close()

	for _, c := range courses {
		// A nil *int becomes SQL NULL.
		var instructorID sql.NullInt64
		if c.InstructorID != nil {
			instructorID = sql.NullInt64{Int64: int64(*c.InstructorID), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.Title, c.Description, c.Year, instructorID); err != nil {
			return fmt.Errorf("saveCourses: course %d: %w", c.ID, err)
		}
		for pos, sid := range c.Roster {
			if _, err := roster.ExecContext(ctx, c.ID, sid, pos); err != nil {
				return fmt.Errorf("saveCourses: roster %d/%d: %w", c.ID, sid, err)
			}
		}
		for sid, g := range c.Grades {
			if _, err := grades.ExecContext(ctx, c.ID, sid, g); err != nil {
				return fmt.Errorf("saveCourses: grade %d/%d: %w", c.ID, sid, err)
			}
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Load reads every table back into a snapshot.
//
// The counters row is written by every Save, so its absence means nothing
// has been saved yet: found == false.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) Load(ctx context.Context) (types.Snapshot, bool, error) {
	snap := types.NewSnapshot()

	counters, err := s.loadCounters(ctx)
	if err != nil {
		return types.Snapshot{}, false, err
	}
	if len(counters) == 0 {
		return snap, false, nil
	}
	snap.NextPersonID = counters["next_person_id"]
	snap.NextCourseID = counters["next_course_id"]

	if snap.Students, err = s.loadStudents(ctx); err != nil {
		return types.Snapshot{}, false, err
	}
	if snap.Instructors, err = s.loadInstructors(ctx); err != nil {
		return types.Snapshot{}, false, err
	}
	if snap.Courses, err = s.loadCourses(ctx); err != nil {
		return types.Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *SQLite) loadCounters(ctx context.Context) (map[string]int, error) {
	rows, err := s.Db.QueryContext(ctx, "SELECT name, value FROM counters")
	if err != nil {
		return nil, fmt.Errorf("loadCounters: query: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]int)
	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("loadCounters: scan row: %w", err)
		}
		counters[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loadCounters: rows iteration: %w", err)
	}
	return counters, nil
}

func (s *SQLite) loadStudents(ctx context.Context) ([]types.Student, error) {
	rows, err := s.Db.QueryContext(ctx,
		"SELECT id, name, email, age, year, student_type FROM students ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("loadStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	index := make(map[int]int)
	for rows.Next() {
		var st types.Student
		var kind string
		if err := rows.Scan(&st.ID, &st.Name, &st.Email, &st.Age, &st.Year, &kind); err != nil {
			return nil, fmt.Errorf("loadStudents: scan row: %w", err)
		}
		st.StudentType = types.StudentType(kind)
		st.Enrollments = make([]types.Enrollment, 0)
		index[st.ID] = len(students)
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loadStudents: rows iteration: %w", err)
	}

	err = s.eachPair(ctx,
		"SELECT student_id, course_id FROM enrollments ORDER BY student_id, position",
		func(sid, cid int) error {
			i, ok := index[sid]
			if !ok {
				return fmt.Errorf("%w: enrollment for unknown student %d", types.ErrMalformedData, sid)
			}
			students[i].Enrollments = append(students[i].Enrollments, types.Enrollment{CourseID: cid})
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loadStudents: %w", err)
	}
	return students, nil
}

func (s *SQLite) loadInstructors(ctx context.Context) ([]types.Instructor, error) {
	rows, err := s.Db.QueryContext(ctx, "SELECT id, name, email FROM instructors ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("loadInstructors: query: %w", err)
	}
	defer rows.Close()

	instructors := make([]types.Instructor, 0)
	index := make(map[int]int)
	for rows.Next() {
		var in types.Instructor
		if err := rows.Scan(&in.ID, &in.Name, &in.Email); err != nil {
			return nil, fmt.Errorf("loadInstructors: scan row: %w", err)
		}
		in.Courses = make([]int, 0)
		index[in.ID] = len(instructors)
		instructors = append(instructors, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loadInstructors: rows iteration: %w", err)
	}

	err = s.eachPair(ctx,
		"SELECT instructor_id, course_id FROM instructor_courses ORDER BY instructor_id, position",
		func(iid, cid int) error {
			i, ok := index[iid]
			if !ok {
				return fmt.Errorf("%w: course assignment for unknown instructor %d", types.ErrMalformedData, iid)
			}
			instructors[i].Courses = append(instructors[i].Courses, cid)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loadInstructors: %w", err)
	}
	return instructors, nil
}

func (s *SQLite) loadCourses(ctx context.Context) ([]types.Course, error) {
	rows, err := s.Db.QueryContext(ctx,
		"SELECT id, title, description, year, instructor_id FROM courses ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("loadCourses: query: %w", err)
	}
	defer rows.Close()

	courses := make([]types.Course, 0)
	index := make(map[int]int)
	for rows.Next() {
		var c types.Course
		var instructorID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Year, &instructorID); err != nil {
			return nil, fmt.Errorf("loadCourses: scan row: %w", err)
		}
		if instructorID.Valid {
			id := int(instructorID.Int64)
			c.InstructorID = &id
		}
		c.Roster = make([]int, 0)
		c.Grades = make(map[int]float64)
		index[c.ID] = len(courses)
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loadCourses: rows iteration: %w", err)
	}

	err = s.eachPair(ctx,
		"SELECT course_id, student_id FROM roster ORDER BY course_id, position",
		func(cid, sid int) error {
			i, ok := index[cid]
			if !ok {
				return fmt.Errorf("%w: roster entry for unknown course %d", types.ErrMalformedData, cid)
			}
			courses[i].Roster = append(courses[i].Roster, sid)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("loadCourses: %w", err)
	}

	grades, err := s.Db.QueryContext(ctx, "SELECT course_id, student_id, grade FROM grades")
	if err != nil {
		return nil, fmt.Errorf("loadCourses: query grades: %w", err)
	}
	defer grades.Close()

	for grades.Next() {
		var cid, sid int
		var g float64
		if err := grades.Scan(&cid, &sid, &g); err != nil {
			return nil, fmt.Errorf("loadCourses: scan grade: %w", err)
		}
		i, ok := index[cid]
		if !ok {
			return nil, fmt.Errorf("loadCourses: %w: grade for unknown course %d", types.ErrMalformedData, cid)
		}
		courses[i].Grades[sid] = g
	}
	if err := grades.Err(); err != nil {
		return nil, fmt.Errorf("loadCourses: grades iteration: %w", err)
	}
	return courses, nil
}

// eachPair runs a two-integer-column query and calls fn for every row.
func (s *SQLite) eachPair(ctx context.Context, query string, fn func(a, b int) error) error {
	rows, err := s.Db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a, b int
		if err := rows.Scan(&a, &b); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if err := fn(a, b); err != nil {
			return err
		}
	}
	return rows.Err()
}
