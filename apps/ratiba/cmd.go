package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/handoff"
	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/view"
)

var (
	terminalWidthFunc = terminalWidth // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	svc        timetable.Service
	meta       *metadata.Service
	handoffs   handoff.Store
	downloader view.Downloader
	logger     core.Logger
	out        io.Writer
	openDB     func() (*sql.DB, error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  show [-token T] [-saved ID] [-semester ID] [-batch ID] [-faculty ID] [-student ID] [-format text|html|xlsx]")
	fmt.Fprintln(cli.out, "                                      - display a timetable")
	fmt.Fprintln(cli.out, "  generate [-show] [-format ...]      - generate a new timetable")
	fmt.Fprintln(cli.out, "  saved                               - list saved timetables")
	fmt.Fprintln(cli.out, "  export -ids ID,ID...|-all           - export saved timetables as PDF")
	fmt.Fprintln(cli.out, "  addstudent -id ID -name NAME -batch ID [-courses ID,ID,ID]")
	fmt.Fprintln(cli.out, "                                      - add a student")
	fmt.Fprintln(cli.out, "  addfaculty -id ID -name NAME -workload HOURS [-expertise ID,ID...]")
	fmt.Fprintln(cli.out, "                                      - add a faculty member")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]              - run handoff store migrations (postgres)")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse parses `args` into `fs`; asking for help is not an error worth reporting.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	showCmd := cli.newFlagSet("show")
	showOpts := bindShowFlags(showCmd)

	generateCmd := cli.newFlagSet("generate")
	generateShow := generateCmd.Bool("show", false, "Display the generated timetable right away.")
	generateOpts := bindShowFlags(generateCmd)

	exportCmd := cli.newFlagSet("export")
	exportIDs := exportCmd.String("ids", "", "Comma-separated ids of the saved timetables to export.")
	exportAll := exportCmd.Bool("all", false, "Export every saved timetable.")

	addStudentCmd := cli.newFlagSet("addstudent")
	studentID := addStudentCmd.Int("id", 0, "The student's id.")
	studentName := addStudentCmd.String("name", "", "The student's name.")
	studentBatch := addStudentCmd.Int("batch", 0, "The student's batch id.")
	studentCourses := addStudentCmd.String("courses", "", "Up to 3 comma-separated elective course ids.")

	addFacultyCmd := cli.newFlagSet("addfaculty")
	facultyID := addFacultyCmd.Int("id", 0, "The faculty member's id.")
	facultyName := addFacultyCmd.String("name", "", "The faculty member's name.")
	facultyWorkload := addFacultyCmd.Int("workload", 0, "Weekly workload limit, in hours.")
	facultyExpertise := addFacultyCmd.String("expertise", "", "Comma-separated ids of the courses they can teach.")

	switch args[1] {
	case "show":
		if err := parse(showCmd, args[2:]); err != nil {
			return err
		}
		return cli.show(ctx, *showOpts)

	case "generate":
		if err := parse(generateCmd, args[2:]); err != nil {
			return err
		}
		return cli.generate(ctx, *generateShow, *generateOpts)

	case "saved":
		return cli.listSaved(ctx)

	case "export":
		if err := parse(exportCmd, args[2:]); err != nil {
			return err
		}
		ids, err := parseIDs("ids", *exportIDs)
		if err != nil {
			return err
		}
		if len(ids) == 0 && !*exportAll {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(ctx, ids, *exportAll)

	case "addstudent":
		if err := parse(addStudentCmd, args[2:]); err != nil {
			return err
		}
		courses, err := parseIDs("courses", *studentCourses)
		if err != nil {
			return err
		}
		return cli.addStudent(ctx, metadata.NewStudent{
			ID:            *studentID,
			Name:          *studentName,
			BatchID:       *studentBatch,
			CourseChoices: courses,
		})

	case "addfaculty":
		if err := parse(addFacultyCmd, args[2:]); err != nil {
			return err
		}
		expertise, err := parseIDs("expertise", *facultyExpertise)
		if err != nil {
			return err
		}
		return cli.addFaculty(ctx, metadata.NewFaculty{
			ID:                 *facultyID,
			Name:               *facultyName,
			WorkloadLimitHours: *facultyWorkload,
			Expertise:          expertise,
		})

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

// parseIDs reads a comma-separated list of positive ids.
func parseIDs(field, s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || id <= 0 {
			return nil, core.NewValidationError(
				pkgerrors.Errorf("invalid %s %q", field, s),
				core.FieldError{Field: field, Error: fmt.Sprintf("%q is not a positive integer", p)},
			)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

// truncate shortens `s` to `width` runes; a zero width means unlimited.
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// printError shows `err` the way users should see it.
func printError(w io.Writer, err error, debug bool) {
	fmt.Fprintf(w, "\nerror: %s\n", core.UserMessage(err))
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			fmt.Fprintf(w, "  %s: %s\n", f.Field, f.Error)
		}
	}
	if debug {
		fmt.Fprintf(w, "  (%v)\n", err)
	}
}
