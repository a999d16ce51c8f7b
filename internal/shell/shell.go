// Package shell implements the interactive numbered-menu interface.
//
// The shell only reads lines, calls the registry and prints results. Every
// failed operation is printed as one error line and the current menu is
// shown again; nothing a user types can stop the process. Closing the
// input (EOF) or cancelling the context behaves like choosing "Save and
// Exit", even while a prompt is waiting for input.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aanand-mishra/scms/internal/registry"
	"github.com/aanand-mishra/scms/internal/report"
	"github.com/aanand-mishra/scms/internal/storage"
	"github.com/aanand-mishra/scms/internal/types"
	"github.com/aanand-mishra/scms/internal/utils/response"
)

// MaxLineLength is the longest input line accepted, in bytes. Longer
// lines are rejected as a user error and the prompt moves on.
const MaxLineLength = 4096

var (
	// errInputClosed unwinds every menu when the input reaches EOF.
	errInputClosed = errors.New("input closed")

	// errInterrupted unwinds every menu when the context is cancelled.
	errInterrupted = errors.New("interrupted")

	errLineTooLong = fmt.Errorf("%w: input line is longer than %d bytes", types.ErrValidation, MaxLineLength)
)

// Shell drives a registry from line-oriented input.
type Shell struct {
	reg   *registry.Registry
	store storage.Storage
	in    *bufio.Reader
	out   io.Writer
	log   *slog.Logger

	// Set by Run.
	lines     <-chan inputLine
	interrupt <-chan struct{}
}

type inputLine struct {
	text    string
	tooLong bool
	err     error
}

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the logger used for session events.
func WithLogger(log *slog.Logger) Option {
	return func(s *Shell) {
		if log != nil {
			s.log = log
		}
	}
}

// New returns a shell that reads from in, prints to out and persists reg
// through store.
func New(reg *registry.Registry, store storage.Storage, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		reg:   reg,
		store: store,
		in:    bufio.NewReaderSize(in, MaxLineLength),
		out:   out,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loads the registry from the store, serves the main menu until the
// user saves and exits, input ends or ctx is cancelled, and then saves.
//
// Data that cannot be loaded is returned as an error before any menu is
// shown, so a damaged file is never overwritten.
func (s *Shell) Run(ctx context.Context) error {
	loaded, err := s.reg.Load(ctx, s.store)
	if err != nil {
		return fmt.Errorf("shell.Run: %w", err)
	}
	if !loaded {
		response.Line(s.out, "No saved data found. Starting with an empty registry.")
	}

	done := make(chan struct{})
	defer close(done)
	s.lines = s.readLines(done)
	s.interrupt = ctx.Done()

	for {
		exit, err := s.mainMenu()
		if exit {
			return s.saveAndExit(ctx)
		}
		if err != nil {
			return s.stop(ctx, err)
		}
	}
}

func (s *Shell) mainMenu() (exit bool, err error) {
	response.Title(s.out, "========= Student Course Management System =========")
	response.Line(s.out, "1. Student Management Portal")
	response.Line(s.out, "2. Instructor Management Portal")
	response.Line(s.out, "3. Course Management Portal")
	response.Line(s.out, "4. Save and Exit")

	choice, err := s.prompt("Enter your choice: ")
	if err != nil {
		return false, err
	}
	switch choice {
	case "1":
		return false, s.studentPortal()
	case "2":
		return false, s.instructorPortal()
	case "3":
		return false, s.coursePortal()
	case "4":
		return true, nil
	default:
		s.invalidChoice()
		return false, nil
	}
}

// stop saves the session after the menus were left without "Save and
// Exit". EOF and interrupts are normal endings; anything else is returned
// after the save.
func (s *Shell) stop(ctx context.Context, cause error) error {
	switch {
	case errors.Is(cause, errInputClosed):
		s.log.Info("input closed, saving")
	case errors.Is(cause, errInterrupted):
		s.log.Info("interrupted, saving")
	default:
		s.log.Error("input failed, saving", slog.String("error", cause.Error()))
	}

	if err := s.saveAndExit(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if errors.Is(cause, errInputClosed) || errors.Is(cause, errInterrupted) {
		return nil
	}
	return cause
}

func (s *Shell) saveAndExit(ctx context.Context) error {
	if err := s.reg.Save(ctx, s.store); err != nil {
		response.Error(s.out, err)
		return fmt.Errorf("shell.Run: %w", err)
	}
	response.Line(s.out, "Data saved. Goodbye! and see you next time.")
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Student portal
// ─────────────────────────────────────────────────────────────────────────────

func (s *Shell) studentPortal() error {
	for {
		response.Title(s.out, "---=== Student Management Portal ===---")
		response.Line(s.out, "1. Register")
		response.Line(s.out, "2. Login")
		response.Line(s.out, "3. Back to Main Menu")

		choice, err := s.prompt("Enter your choice: ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			err = s.registerStudent()
		case "2":
			err = s.loginStudent()
		case "3":
			return nil
		default:
			s.invalidChoice()
		}
		if err != nil {
			return err
		}
	}
}

func (s *Shell) registerStudent() error {
	name, err := s.prompt("Enter student name: ")
	if err != nil {
		return err
	}
	email, err := s.prompt("Enter student email: ")
	if err != nil {
		return err
	}
	age, err := s.promptInt("Enter student age: ", "age")
	if err != nil {
		return s.fail(err)
	}
	year, err := s.promptInt("Enter student year: ", "year")
	if err != nil {
		return s.fail(err)
	}
	kind, err := s.prompt("Enter student type (undergraduate/graduate, blank for none): ")
	if err != nil {
		return err
	}

	st, err := s.reg.CreateStudent(name, email, age, year, kind)
	if err != nil {
		return s.fail(err)
	}
	response.Line(s.out, "Student added with ID: %d", st.ID)
	return nil
}

func (s *Shell) loginStudent() error {
	email, err := s.prompt("Enter your email: ")
	if err != nil {
		return err
	}
	st, ok := s.reg.FindStudentByEmail(email)
	if !ok {
		return s.fail(fmt.Errorf("%w: no student registered with email %q", types.ErrNotFound, email))
	}
	return s.studentMenu(st.ID, st.Name)
}

func (s *Shell) studentMenu(studentID int, name string) error {
	for {
		response.Title(s.out, fmt.Sprintf("---=== Student Menu for %s ===---", name))
		response.Line(s.out, "1. Enroll in a Course")
		response.Line(s.out, "2. Unenroll from a Course")
		response.Line(s.out, "3. View Enrolled Courses")
		response.Line(s.out, "4. Back to Student Management Portal")

		choice, err := s.prompt("Enter your choice: ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			err = s.changeEnrollment(studentID, true)
		case "2":
			err = s.changeEnrollment(studentID, false)
		case "3":
			s.printEnrollments(studentID)
		case "4":
			return nil
		default:
			s.invalidChoice()
		}
		if err != nil {
			return err
		}
	}
}

func (s *Shell) changeEnrollment(studentID int, enroll bool) error {
	verb := "unenroll"
	if enroll {
		verb = "enroll"
	}
	courseID, err := s.promptInt(fmt.Sprintf("Enter course ID to %s: ", verb), "course ID")
	if err != nil {
		return s.fail(err)
	}

	if enroll {
		err = s.reg.EnrollStudentInCourse(studentID, courseID)
	} else {
		err = s.reg.UnenrollStudentFromCourse(studentID, courseID)
	}
	if err != nil {
		return s.fail(err)
	}

	if enroll {
		response.Line(s.out, "Enrolled in course %d successfully.", courseID)
	} else {
		response.Line(s.out, "Unenrolled from course %d successfully.", courseID)
	}
	return nil
}

func (s *Shell) printEnrollments(studentID int) {
	st, ok := s.reg.Student(studentID)
	if !ok || len(st.Enrollments) == 0 {
		response.Line(s.out, "No enrolled courses.")
		return
	}
	for _, cid := range st.CourseIDs() {
		title := "<unknown course>"
		if c, ok := s.reg.Course(cid); ok {
			title = c.Title
		}
		response.Line(s.out, "Course ID: %d, Title: %s", cid, title)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Instructor portal
// ─────────────────────────────────────────────────────────────────────────────

func (s *Shell) instructorPortal() error {
	for {
		response.Title(s.out, "---=== Instructor Management Portal ===---")
		response.Line(s.out, "1. Register")
		response.Line(s.out, "2. Login")
		response.Line(s.out, "3. Back to Main Menu")

		choice, err := s.prompt("Enter your choice: ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			err = s.registerInstructor()
		case "2":
			err = s.loginInstructor()
		case "3":
			return nil
		default:
			s.invalidChoice()
		}
		if err != nil {
			return err
		}
	}
}

func (s *Shell) registerInstructor() error {
	name, err := s.prompt("Enter instructor name: ")
	if err != nil {
		return err
	}
	email, err := s.prompt("Enter instructor email: ")
	if err != nil {
		return err
	}

	in, err := s.reg.CreateInstructor(name, email)
	if err != nil {
		return s.fail(err)
	}
	response.Line(s.out, "Instructor added with ID: %d", in.ID)
	return nil
}

func (s *Shell) loginInstructor() error {
	id, err := s.promptInt("Enter your instructor ID: ", "instructor ID")
	if err != nil {
		return s.fail(err)
	}
	in, ok := s.reg.Instructor(id)
	if !ok {
		return s.fail(fmt.Errorf("%w: instructor with id %d does not exist", types.ErrNotFound, id))
	}
	return s.instructorMenu(in.ID, in.Name)
}

func (s *Shell) instructorMenu(instructorID int, name string) error {
	for {
		response.Title(s.out, fmt.Sprintf("---=== Instructor Menu for %s ===---", name))
		response.Line(s.out, "1. Create Course")
		response.Line(s.out, "2. View my Courses")
		response.Line(s.out, "3. Set Grade")
		response.Line(s.out, "4. Generate Course Report")
		response.Line(s.out, "5. Back to Instructor Management Portal")

		choice, err := s.prompt("Enter your choice: ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			err = s.createCourse(instructorID)
		case "2":
			s.printInstructorCourses(instructorID)
		case "3":
			err = s.setGrade(instructorID)
		case "4":
			err = s.courseReport(instructorID)
		case "5":
			return nil
		default:
			s.invalidChoice()
		}
		if err != nil {
			return err
		}
	}
}

func (s *Shell) createCourse(instructorID int) error {
	title, err := s.prompt("Enter course title: ")
	if err != nil {
		return err
	}
	desc, err := s.prompt("Enter course description: ")
	if err != nil {
		return err
	}
	year, err := s.promptInt("Enter course year: ", "year")
	if err != nil {
		return s.fail(err)
	}

	c, err := s.reg.CreateCourse(title, desc, instructorID, year)
	if err != nil {
		return s.fail(err)
	}
	response.Line(s.out, "Course created %s with ID: %d", c.Title, c.ID)
	return nil
}

func (s *Shell) printInstructorCourses(instructorID int) {
	courses, err := s.reg.InstructorCourses(instructorID)
	if err != nil {
		response.Error(s.out, err)
		return
	}
	if len(courses) == 0 {
		response.Line(s.out, "No assigned courses.")
		return
	}
	for _, c := range courses {
		response.Line(s.out, "Course ID: %d, Title: %s, Description: %s, Year: %s",
			c.ID, c.Title, c.Description, yearLabel(c.Year))
	}
}

func (s *Shell) setGrade(instructorID int) error {
	courseID, err := s.promptInt("Enter course ID: ", "course ID")
	if err != nil {
		return s.fail(err)
	}
	studentID, err := s.promptInt("Enter student ID: ", "student ID")
	if err != nil {
		return s.fail(err)
	}
	grade, err := s.promptFloat("Enter grade (0-100): ", "grade")
	if err != nil {
		return s.fail(err)
	}

	if err := s.reg.SetGrade(instructorID, courseID, studentID, grade); err != nil {
		return s.fail(err)
	}
	response.Line(s.out, "Grade %.1f recorded for student %d in course %d.", grade, studentID, courseID)
	return nil
}

func (s *Shell) courseReport(instructorID int) error {
	courseID, err := s.promptInt("Enter course ID to generate report: ", "course ID")
	if err != nil {
		return s.fail(err)
	}
	c, ok := s.reg.Course(courseID)
	if !ok {
		return s.fail(fmt.Errorf("%w: course with id %d does not exist", types.ErrNotFound, courseID))
	}
	if !c.OwnedBy(instructorID) {
		return s.fail(fmt.Errorf("%w: instructor with id %d is not assigned to course %d", types.ErrUnauthorized, instructorID, courseID))
	}
	if err := report.NewCourseReport(c, s.reg.Student).Write(s.out); err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Course portal
// ─────────────────────────────────────────────────────────────────────────────

func (s *Shell) coursePortal() error {
	for {
		response.Title(s.out, "---=== Course Management Portal ===---")
		response.Line(s.out, "1. List all Courses")
		response.Line(s.out, "2. Back to Main Menu")

		choice, err := s.prompt("Enter your choice: ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			PrintCourses(s.out, s.reg)
		case "2":
			return nil
		default:
			s.invalidChoice()
		}
	}
}

// PrintCourses lists every course with its owner's name.
func PrintCourses(w io.Writer, reg *registry.Registry) {
	courses := reg.Courses()
	if len(courses) == 0 {
		response.Line(w, "No courses found.")
		return
	}
	for _, c := range courses {
		owner := "No Instructor Assigned"
		if c.InstructorID != nil {
			if in, ok := reg.Instructor(*c.InstructorID); ok {
				owner = in.Name
			}
		}
		response.Line(w, "ID: %d, Title: %s, Description: %s, Year: %s, Instructor: %s",
			c.ID, c.Title, c.Description, yearLabel(c.Year), owner)
	}
}

func yearLabel(year int) string {
	if year == 0 {
		return "unspecified"
	}
	return strconv.Itoa(year)
}

// ─────────────────────────────────────────────────────────────────────────────
// Input helpers
// ─────────────────────────────────────────────────────────────────────────────

// prompt prints label and returns the next trimmed input line. An
// over-long line is reported and read as empty.
func (s *Shell) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)

	select {
	case <-s.interrupt:
		fmt.Fprintln(s.out)
		return "", errInterrupted
	default:
	}

	select {
	case <-s.interrupt:
		fmt.Fprintln(s.out)
		return "", errInterrupted
	case l, ok := <-s.lines:
		switch {
		case !ok || errors.Is(l.err, io.EOF):
			fmt.Fprintln(s.out)
			return "", errInputClosed
		case l.err != nil:
			fmt.Fprintln(s.out)
			return "", fmt.Errorf("shell: read input: %w", l.err)
		case l.tooLong:
			fmt.Fprintln(s.out)
			response.Error(s.out, errLineTooLong)
			return "", nil
		}
		return strings.TrimSpace(l.text), nil
	}
}

// readLines feeds input lines to the prompts until the input fails or
// done is closed.
func (s *Shell) readLines(done <-chan struct{}) <-chan inputLine {
	ch := make(chan inputLine)
	go func() {
		defer close(ch)
		for {
			l := s.readLine()
			select {
			case ch <- l:
			case <-done:
				return
			}
			if l.err != nil {
				return
			}
		}
	}()
	return ch
}

// readLine reads one line without holding more than MaxLineLength bytes
// of it. The rest of an over-long line is discarded.
func (s *Shell) readLine() inputLine {
	var buf []byte
	tooLong := false
	for {
		chunk, err := s.in.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, chunk...)
			if len(buf) > MaxLineLength+2 {
				tooLong, buf = true, nil
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(buf) == 0 && !tooLong {
				return inputLine{err: io.EOF}
			}
		case err != nil:
			return inputLine{err: err}
		}

		text := strings.TrimRight(string(buf), "\r\n")
		if tooLong || len(text) > MaxLineLength {
			return inputLine{tooLong: true}
		}
		return inputLine{text: text}
	}
}

// promptInt reads a whole number. A malformed number wraps
// types.ErrValidation; a closed input is returned unchanged.
func (s *Shell) promptInt(label, field string) (int, error) {
	raw, err := s.prompt(label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %q", types.ErrValidation, field, raw)
	}
	return n, nil
}

func (s *Shell) promptFloat(label, field string) (float64, error) {
	raw, err := s.prompt(label)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", types.ErrValidation, field, raw)
	}
	return f, nil
}

// fail prints a failed operation and lets the menu carry on. Input and
// I/O failures are passed back up instead.
func (s *Shell) fail(err error) error {
	if errors.Is(err, errInputClosed) || !isUserError(err) {
		return err
	}
	s.log.Debug("operation failed", slog.String("error", err.Error()))
	response.Error(s.out, err)
	return nil
}

func (s *Shell) invalidChoice() {
	response.Line(s.out, "Invalid choice. Please try again.")
}

func isUserError(err error) bool {
	return errors.Is(err, types.ErrValidation) ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrConflict) ||
		errors.Is(err, types.ErrUnauthorized)
}
