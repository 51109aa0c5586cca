package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/view"
	"github.com/trezcool/ratiba/storage/database/inmem"
	"github.com/trezcool/ratiba/tests"
)

var savedDS = schedule.Dataset{
	testutil.Session("Monday", "9:00-10:00", "Math", "CS-A"),
	testutil.Session("Tuesday", "10:00-11:00", "Physics", "CS-B"),
}

type fixture struct {
	cli *commandLine
	svc *testutil.FakeService
	out *bytes.Buffer
	dl  []timetable.Artifact
}

func setup(t *testing.T) *fixture {
	svc := &testutil.FakeService{}
	testutil.SampleMetadata(svc)
	svc.LatestFunc = func(context.Context) (schedule.Dataset, error) { return savedDS, nil }
	svc.ListSavedFunc = func(context.Context) ([]timetable.Summary, error) {
		return []timetable.Summary{
			{ID: 1, Name: "Week 1", Timestamp: "2024-01-01T10:00:00"},
			{ID: 2, Name: "Week 2 with a rather long name", Timestamp: "2024-01-08T10:00:00"},
		}, nil
	}

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	validate, translator := core.NewValidator()

	fx := &fixture{svc: svc, out: new(bytes.Buffer)}
	fx.cli = &commandLine{
		conf:     &core.Config{Handoff: core.HandoffConfig{Store: core.HandoffStoreMemory}},
		svc:      svc,
		meta:     metadata.NewService(metadata.NewCache(svc), svc, validate, translator),
		handoffs: inmemdb.NewHandoffStore(db, time.Minute),
		downloader: view.DownloaderFunc(func(_ context.Context, a timetable.Artifact) (string, error) {
			fx.dl = append(fx.dl, a)
			return "/tmp/" + a.Filename, nil
		}),
		logger: core.DiscardLogger{},
		out:    fx.out,
		openDB: func() (*sql.DB, error) {
			db, _, err := sqlmock.New()
			return db, err
		},
	}
	return fx
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func (fx *fixture) check(t *testing.T, tt cliTest) {
	fx.out.Reset()
	args := append([]string{"ratiba"}, tt.args...)
	err := fx.cli.run(args)
	switch {
	case tt.wantErr != nil:
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || core.UserMessage(err) != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
	for _, want := range tt.wantOut {
		assert.Contains(t, fx.out.String(), want)
	}
}

func Test_commandLine_run(t *testing.T) {
	fx := setup(t)
	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: []string{"Usage:"}},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "flag help", args: []string{"show", "-h"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { fx.check(t, tt) })
	}
}

func Test_commandLine_show(t *testing.T) {
	fx := setup(t)
	fx.svc.GetFunc = func(_ context.Context, id int) (schedule.Dataset, error) {
		return schedule.Dataset{testutil.Session("Friday", "14:00-15:00", "Art", "ED-A")}, nil
	}

	tests := []cliTest{
		{
			name:    "latest saved",
			args:    []string{"show"},
			wantOut: []string{"== Latest Saved Timetable ==", "-- CS-A --", "Math (Dr. X, R1)"},
		},
		{
			name:    "filtered by batch",
			args:    []string{"show", "-batch", "10"},
			wantOut: []string{"== Timetable for Batch: CS-A =="},
		},
		{
			name:       "unknown batch",
			args:       []string{"show", "-batch", "99"},
			wantErrStr: "unknown batch \"99\"",
		},
		{
			name:    "saved",
			args:    []string{"show", "-saved", "1"},
			wantOut: []string{`Timetable "Week 1" loaded successfully!`, "== Week 1 ==", "Art (Dr. X, R1)"},
		},
		{
			name:    "html",
			args:    []string{"show", "-format", "html"},
			wantOut: []string{"<table", "Latest Saved Timetable"},
		},
		{
			name:    "xlsx",
			args:    []string{"show", "-format", "xlsx"},
			wantOut: []string{"Written to /tmp/timetable.xlsx"},
		},
		{name: "bad format", args: []string{"show", "-format", "pdf"}, wantErrStr: "unknown format \"pdf\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { fx.check(t, tt) })
	}
}

func Test_commandLine_showEmpty(t *testing.T) {
	fx := setup(t)
	fx.svc.LatestFunc = nil

	fx.check(t, cliTest{args: []string{"show"}, wantOut: []string{schedule.EmptyMessage}})
	assert.NotContains(t, fx.out.String(), "Overall Fitness Score")
}

func Test_commandLine_showServiceDown(t *testing.T) {
	fx := setup(t)
	fx.svc.LatestFunc = func(context.Context) (schedule.Dataset, error) {
		return nil, core.NewRemoteError(500, "Database unavailable")
	}
	fx.svc.SemestersFunc = func(context.Context) ([]metadata.Semester, error) {
		return nil, core.NewRemoteError(500, "")
	}

	fx.check(t, cliTest{
		args: []string{"show"},
		wantOut: []string{
			"warning: One or more API endpoints failed to load.",
			"warning: Database unavailable",
			schedule.EmptyMessage,
		},
	})
}

func Test_commandLine_generate(t *testing.T) {
	fx := setup(t)
	generated := schedule.Dataset{testutil.Session("Friday", "14:00-15:00", "Art", "CS-A")}
	generated[0].Fitness = testutil.Fitness(0.8734)
	fx.svc.GenerateFunc = func(context.Context) (timetable.Generated, error) {
		return timetable.Generated{Name: "Generated - 2024-01-01 10:00:00", Dataset: generated}, nil
	}

	fx.check(t, cliTest{
		args:    []string{"generate", "-show"},
		wantOut: []string{"== Generated - 2024-01-01 10:00:00 ==", "Overall Fitness Score: 0.8734"},
	})
	assert.Equal(t, 0, fx.svc.Calls("Latest"))

	fx.check(t, cliTest{args: []string{"generate"}, wantOut: []string{"note: the memory handoff store"}})

	fx.svc.GenerateFunc = func(context.Context) (timetable.Generated, error) {
		return timetable.Generated{}, core.NewRemoteError(500, "Solver timed out")
	}
	fx.check(t, cliTest{args: []string{"generate"}, wantErrStr: "Solver timed out"})
}

func Test_commandLine_saved(t *testing.T) {
	fx := setup(t)
	terminalWidthFunc = func() int { return 40 }
	t.Cleanup(func() { terminalWidthFunc = terminalWidth })

	fx.check(t, cliTest{args: []string{"saved"}, wantOut: []string{
		"     1  Week 1 (2024-01-01 10:00)\n",
		"     2  Week 2 with a rather long nam...\n",
	}})

	fx.svc.ListSavedFunc = nil
	fx.check(t, cliTest{args: []string{"saved"}, wantOut: []string{"No saved timetables."}})
}

func Test_commandLine_export(t *testing.T) {
	var exported [][]int
	tests := []cliTest{
		{name: "no selection", args: []string{"export"}, wantErr: errHelp},
		{name: "bad ids", args: []string{"export", "-ids", "1,x"}, wantErrStr: "invalid ids \"1,x\""},
		{name: "not listed", args: []string{"export", "-ids", "9"}, wantErr: view.ErrNotListed},
		{
			name:    "some",
			args:    []string{"export", "-ids", "2"},
			wantOut: []string{"Successfully exported 1 timetable(s) as PDF.", "Written to /tmp/exported_timetables.pdf"},
		},
		{
			name:    "all",
			args:    []string{"export", "-all"},
			wantOut: []string{"Successfully exported 2 timetable(s) as PDF."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := setup(t)
			fx.svc.ExportFunc = func(_ context.Context, ids []int) (timetable.Artifact, error) {
				exported = append(exported, ids)
				return timetable.Artifact{Filename: "exported_timetables.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}, nil
			}
			fx.check(t, tt)
		})
	}
	assert.Equal(t, [][]int{{2}, {1, 2}}, exported)
}

func Test_commandLine_addPeople(t *testing.T) {
	fx := setup(t)
	tests := []cliTest{
		{
			name:    "student",
			args:    []string{"addstudent", "-id", "1700000000000", "-name", "Amina Odhiambo", "-batch", "10", "-courses", "100"},
			wantOut: []string{"Student added successfully"},
		},
		{
			name:       "student missing name",
			args:       []string{"addstudent", "-id", "1", "-batch", "10"},
			wantErrStr: "invalid student",
		},
		{
			name:       "student bad courses",
			args:       []string{"addstudent", "-id", "1", "-name", "Amina", "-batch", "10", "-courses", "a"},
			wantErrStr: "invalid courses \"a\"",
		},
		{
			name:    "faculty",
			args:    []string{"addfaculty", "-id", "9", "-name", "Dr. Wanjiru", "-workload", "16", "-expertise", "100,101"},
			wantOut: []string{"Faculty added successfully"},
		},
		{
			name:       "faculty missing workload",
			args:       []string{"addfaculty", "-id", "9", "-name", "Dr. Wanjiru"},
			wantErrStr: "invalid faculty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { fx.check(t, tt) })
	}
	assert.Equal(t, 1, fx.svc.Calls("CreateStudent"))
	assert.Equal(t, 1, fx.svc.Calls("CreateFaculty"))
}

func Test_commandLine_migrate(t *testing.T) {
	fx := setup(t)
	origRunFunc := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRunFunc })

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if dir != "migrations" {
			return fmt.Errorf("unexpected dir %q", dir)
		}
		if _, err := fs.Stat(fsys, dir+"/00001_create_view_handoffs.sql"); err != nil {
			return err
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []struct {
		name       string
		args       []string
		wantErr    error
		wantErrStr string
	}{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "rooms", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"ratiba"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := fx.cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, want an error")
			}
		})
	}
}

func Test_printError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		debug bool
		want  string
	}{
		{
			name: "remote",
			err:  errors.Wrap(core.NewRemoteError(500, "Database unavailable"), "loading"),
			want: "\nerror: Database unavailable\n",
		},
		{
			name: "validation",
			err:  core.NewValidationError(errors.New("invalid student"), core.FieldError{Field: "batch_id", Error: "this field is required"}),
			want: "\nerror: invalid student\n  batch_id: this field is required\n",
		},
		{
			name:  "other, debug",
			err:   errors.New("boom"),
			debug: true,
			want:  "\nerror: " + core.GenericErrorMessage + "\n  (boom)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err, tt.debug)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func Test_truncate(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{s: "Week 1", width: 0, want: "Week 1"},
		{s: "Week 1", width: 6, want: "Week 1"},
		{s: "Week 12", width: 6, want: "Wee..."},
		{s: "Semaine été", width: 9, want: "Semain..."},
		{s: "Week 12", width: 2, want: "We"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, truncate(tt.s, tt.width), "truncate(%q, %d)", tt.s, tt.width)
	}
}
