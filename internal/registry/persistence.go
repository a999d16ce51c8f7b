package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aanand-mishra/scms/internal/storage"
	"github.com/aanand-mishra/scms/internal/storage/jsonfile"
	"github.com/aanand-mishra/scms/internal/types"
)

// Snapshot returns a deep copy of the whole registry, collections ordered
// by ID.
func (r *Registry) Snapshot() types.Snapshot {
	return types.Snapshot{
		Students:     r.Students(),
		Instructors:  r.Instructors(),
		Courses:      r.Courses(),
		NextPersonID: r.nextPersonID,
		NextCourseID: r.nextCourseID,
	}
}

// Restore replaces the registry's entire state with snap.
//
// snap is checked first: every entity must pass its own validation, IDs
// must be unique (person IDs across students AND instructors), every
// reference must resolve, and both sides of every relationship must agree.
// A zero counter is derived as the highest ID in use plus one. On any
// failure the registry is left untouched and the error wraps
// types.ErrMalformedData.
func (r *Registry) Restore(snap types.Snapshot) error {
	students := make(map[int]*types.Student, len(snap.Students))
	instructors := make(map[int]*types.Instructor, len(snap.Instructors))
	courses := make(map[int]*types.Course, len(snap.Courses))
	maxPerson, maxCourse := 0, 0

	for i := range snap.Students {
		s := snap.Students[i].Clone()
		s.StudentType = types.ParseStudentType(string(s.StudentType))
		if err := checkID("student", s.ID, s.Validate()); err != nil {
			return err
		}
		if _, dup := students[s.ID]; dup {
			return malformed("student id %d appears twice", s.ID)
		}
		students[s.ID] = &s
		maxPerson = max(maxPerson, s.ID)
	}

	for i := range snap.Instructors {
		in := snap.Instructors[i].Clone()
		if err := checkID("instructor", in.ID, in.Validate()); err != nil {
			return err
		}
		if _, dup := instructors[in.ID]; dup {
			return malformed("instructor id %d appears twice", in.ID)
		}
		if _, clash := students[in.ID]; clash {
			return malformed("person id %d is used by both a student and an instructor", in.ID)
		}
		instructors[in.ID] = &in
		maxPerson = max(maxPerson, in.ID)
	}

	for i := range snap.Courses {
		c := snap.Courses[i].Clone()
		if err := checkID("course", c.ID, c.Validate()); err != nil {
			return err
		}
		if _, dup := courses[c.ID]; dup {
			return malformed("course id %d appears twice", c.ID)
		}
		courses[c.ID] = &c
		maxCourse = max(maxCourse, c.ID)
	}

	if err := checkRelationships(students, instructors, courses); err != nil {
		return err
	}

	nextPerson, err := counter("next_person_id", snap.NextPersonID, maxPerson)
	if err != nil {
		return err
	}
	nextCourse, err := counter("next_course_id", snap.NextCourseID, maxCourse)
	if err != nil {
		return err
	}

	r.students = students
	r.instructors = instructors
	r.courses = courses
	r.nextPersonID = nextPerson
	r.nextCourseID = nextCourse
	return nil
}

func checkRelationships(
	students map[int]*types.Student,
	instructors map[int]*types.Instructor,
	courses map[int]*types.Course,
) error {
	for _, s := range students {
		for _, cid := range s.CourseIDs() {
			c, ok := courses[cid]
			if !ok {
				return malformed("student %d is enrolled in unknown course %d", s.ID, cid)
			}
			if !c.IsEnrolled(s.ID) {
				return malformed("student %d lists course %d but is not on its roster", s.ID, cid)
			}
		}
	}

	for _, c := range courses {
		for _, sid := range c.Roster {
			s, ok := students[sid]
			if !ok {
				return malformed("course %d lists unknown student %d", c.ID, sid)
			}
			if !s.IsEnrolled(c.ID) {
				return malformed("course %d lists student %d who is not enrolled in it", c.ID, sid)
			}
		}
		if c.InstructorID != nil {
			in, ok := instructors[*c.InstructorID]
			if !ok {
				return malformed("course %d is owned by unknown instructor %d", c.ID, *c.InstructorID)
			}
			if !in.Teaches(c.ID) {
				return malformed("course %d is owned by instructor %d who does not list it", c.ID, in.ID)
			}
		}
	}

	for _, in := range instructors {
		for _, cid := range in.Courses {
			c, ok := courses[cid]
			if !ok {
				return malformed("instructor %d lists unknown course %d", in.ID, cid)
			}
			if !c.OwnedBy(in.ID) {
				return malformed("instructor %d lists course %d owned by someone else", in.ID, cid)
			}
		}
	}
	return nil
}

func checkID(kind string, id int, validationErr error) error {
	if id < 1 {
		return malformed("%s id %d is not positive", kind, id)
	}
	if validationErr != nil {
		return fmt.Errorf("%w: %w", types.ErrMalformedData, validationErr)
	}
	return nil
}

func counter(name string, value, maxID int) (int, error) {
	if value == 0 {
		return maxID + 1, nil
	}
	if value <= maxID {
		return 0, malformed("%s is %d but id %d is already in use", name, value, maxID)
	}
	return value, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{types.ErrMalformedData}, args...)...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Save / Load through any storage backend
// ─────────────────────────────────────────────────────────────────────────────

// Save writes the whole registry to store.
func (r *Registry) Save(ctx context.Context, store storage.Storage) error {
	snap := r.Snapshot()
	if err := store.Save(ctx, snap); err != nil {
		return fmt.Errorf("registry.Save: %w", err)
	}
	r.log.Info("registry saved",
		slog.Int("students", len(snap.Students)),
		slog.Int("instructors", len(snap.Instructors)),
		slog.Int("courses", len(snap.Courses)))
	return nil
}

// Load replaces the registry with the contents of store. When store holds
// nothing yet the registry is emptied and loaded is false; that is not an
// error.
func (r *Registry) Load(ctx context.Context, store storage.Storage) (loaded bool, err error) {
	snap, found, err := store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("registry.Load: %w", err)
	}
	if !found {
		r.reset()
		r.log.Info("no saved data found, starting with empty registry")
		return false, nil
	}
	if err := r.Restore(snap); err != nil {
		return false, fmt.Errorf("registry.Load: %w", err)
	}
	r.log.Info("registry loaded",
		slog.Int("students", len(r.students)),
		slog.Int("instructors", len(r.instructors)),
		slog.Int("courses", len(r.courses)))
	return true, nil
}

// SaveToFile writes the registry as a JSON document at path, replacing the
// file wholesale.
func (r *Registry) SaveToFile(path string) error {
	return r.Save(context.Background(), jsonfile.New(path))
}

// LoadFromFile replaces the registry with the JSON document at path.
// A missing file empties the registry and returns loaded == false.
func (r *Registry) LoadFromFile(path string) (loaded bool, err error) {
	return r.Load(context.Background(), jsonfile.New(path))
}
