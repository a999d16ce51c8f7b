package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/scms/internal/config"
	"github.com/aanand-mishra/scms/internal/registry"
	"github.com/aanand-mishra/scms/internal/report"
	"github.com/aanand-mishra/scms/internal/shell"
	"github.com/aanand-mishra/scms/internal/storage"
	"github.com/aanand-mishra/scms/internal/storage/jsonfile"
	"github.com/aanand-mishra/scms/internal/storage/sqlite"
	"github.com/aanand-mishra/scms/internal/types"
	"github.com/aanand-mishra/scms/internal/utils/response"
)

// app carries the flag values and what is built from them for one run.
type app struct {
	cfgFile  string
	dataPath string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "scms",
		Short: "Student Course Management System",
		Long: `Manage students, instructors, courses, enrollments and grades.

Without a subcommand an interactive menu is started. All changes are saved
when you choose "Save and Exit" or close the input.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStorage()
			if err != nil {
				return err
			}
			defer store.Close()

			reg := registry.New(registry.WithLogger(a.log))
			sh := shell.New(reg, store, cmd.InOrStdin(), cmd.OutOrStdout(), shell.WithLogger(a.log))
			return sh.Run(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: $CONFIG_PATH, else environment only)")
	root.PersistentFlags().StringVarP(&a.dataPath, "data", "d", "",
		"data file for the configured storage driver (overrides config)")

	root.AddCommand(
		newListCmd(a),
		newReportCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.ResolvePath(a.cfgFile))
	if err != nil {
		return err
	}
	if a.dataPath != "" {
		if cfg.Storage.Driver == storage.DriverSQLite {
			cfg.Storage.SQLitePath = a.dataPath
		} else {
			cfg.DataPath = a.dataPath
		}
	}

	a.cfg = cfg
	a.log = setupLogger(cfg.Env, cmd.ErrOrStderr())
	a.log.Debug("config loaded",
		slog.String("env", cfg.Env),
		slog.String("driver", cfg.Storage.Driver))
	return nil
}

func (a *app) openStorage() (storage.Storage, error) {
	switch a.cfg.Storage.Driver {
	case storage.DriverSQLite:
		db, err := sqlite.New(a.cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.log.Info("storage initialised",
			slog.String("driver", storage.DriverSQLite),
			slog.String("path", a.cfg.Storage.SQLitePath))
		return db, nil
	default:
		a.log.Info("storage initialised",
			slog.String("driver", storage.DriverJSON),
			slog.String("path", a.cfg.DataPath))
		return jsonfile.New(a.cfg.DataPath), nil
	}
}

// loadRegistry opens the configured storage and loads it into a new
// registry. The storage is closed before returning.
func (a *app) loadRegistry(ctx context.Context) (*registry.Registry, error) {
	store, err := a.openStorage()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	reg := registry.New(registry.WithLogger(a.log))
	if _, err := reg.Load(ctx, store); err != nil {
		return nil, err
	}
	return reg, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// list
// ─────────────────────────────────────────────────────────────────────────────

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "list students|instructors|courses",
		Short:     "List stored students, instructors or courses",
		ValidArgs: []string{"students", "instructors", "courses"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.loadRegistry(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch args[0] {
			case "students":
				printStudents(out, reg.Students())
			case "instructors":
				printInstructors(out, reg.Instructors())
			case "courses":
				shell.PrintCourses(out, reg)
			}
			return nil
		},
	}
}

func printStudents(w io.Writer, students []types.Student) {
	if len(students) == 0 {
		response.Line(w, "No students found.")
		return
	}
	for _, s := range students {
		response.Line(w, "ID: %d, Name: %s, Email: %s, Age: %d, Year: %d, Type: %s, Enrolled Courses: %v",
			s.ID, s.Name, s.Email, s.Age, s.Year, s.StudentType, s.CourseIDs())
	}
}

func printInstructors(w io.Writer, instructors []types.Instructor) {
	if len(instructors) == 0 {
		response.Line(w, "No instructors found.")
		return
	}
	for _, in := range instructors {
		response.Line(w, "ID: %d, Name: %s, Email: %s, Assigned Courses: %v",
			in.ID, in.Name, in.Email, in.Courses)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// report
// ─────────────────────────────────────────────────────────────────────────────

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report <course-id>",
		Short: "Print the roster and grades of one course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: course id must be a whole number, got %q", types.ErrValidation, args[0])
			}
			reg, err := a.loadRegistry(cmd.Context())
			if err != nil {
				return err
			}
			c, ok := reg.Course(id)
			if !ok {
				return fmt.Errorf("%w: course with id %d does not exist", types.ErrNotFound, id)
			}
			return report.NewCourseReport(c, reg.Student).Write(cmd.OutOrStdout())
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// export
// ─────────────────────────────────────────────────────────────────────────────

func newExportCmd(a *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored record as JSON or YAML",
		Long: `Write the whole registry (students, instructors, courses and both ID
counters) as a single JSON or YAML document.

Examples:
  scms export
  scms export --format yaml --out backup.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if err := response.CheckFormat(format); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			reg, err := a.loadRegistry(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, ferr := os.Create(out)
				if ferr != nil {
					return fmt.Errorf("export: %w", ferr)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = fmt.Errorf("export: %w", cerr)
					}
				}()
				w = f
			}

			if err := response.Write(w, format, reg.Snapshot()); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if out != "" {
				a.log.Info("export written", slog.String("path", out), slog.String("format", format))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", response.FormatJSON, "output format: json or yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}
