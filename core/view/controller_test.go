package view_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/handoff"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/view"
	"github.com/trezcool/ratiba/storage/database/inmem"
	"github.com/trezcool/ratiba/tests"
)

var (
	savedDS = schedule.Dataset{
		testutil.Session("Monday", "9:00-10:00", "Math", "CS-A"),
		testutil.Session("Tuesday", "10:00-11:00", "Physics", "CS-B"),
	}
	batchDS = schedule.Dataset{testutil.Session("Monday", "9:00-10:00", "Math", "CS-A")}
)

type fixture struct {
	svc   *testutil.FakeService
	store handoff.Store
	ctrl  *view.Controller
	dl    []timetable.Artifact
}

func setup(t *testing.T) *fixture {
	svc := &testutil.FakeService{}
	testutil.SampleMetadata(svc)
	svc.LatestFunc = func(context.Context) (schedule.Dataset, error) { return savedDS, nil }

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	fx := &fixture{svc: svc, store: inmemdb.NewHandoffStore(db, time.Minute)}
	fx.ctrl = view.NewController("v1", view.Deps{
		Service:  svc,
		Handoffs: fx.store,
		Metadata: testutil.LoadedCache(t, svc),
		Downloader: view.DownloaderFunc(func(_ context.Context, a timetable.Artifact) (string, error) {
			fx.dl = append(fx.dl, a)
			return "/tmp/" + a.Filename, nil
		}),
	})
	return fx
}

func TestController_Activate(t *testing.T) {
	generated := schedule.Dataset{testutil.Session("Friday", "14:00-15:00", "Art", "CS-A")}

	tests := []struct {
		name      string
		token     func(fx *fixture) string
		latest    func(context.Context) (schedule.Dataset, error)
		wantErr   bool
		wantState view.State
		wantTitle string
		wantData  schedule.Dataset
	}{
		{
			name: "handoff",
			token: func(fx *fixture) string {
				tok, _ := view.Generate(context.Background(), fx.svc, fx.store)
				return tok
			},
			wantState: view.StateNewGenerated,
			wantTitle: "Generated - 2024-01-01 10:00:00",
			wantData:  generated,
		},
		{
			name: "consumed handoff falls back to latest",
			token: func(fx *fixture) string {
				tok, _ := view.Generate(context.Background(), fx.svc, fx.store)
				_, _ = fx.store.Take(context.Background(), tok)
				return tok
			},
			wantState: view.StateLatestSaved,
			wantTitle: view.TitleLatestSaved,
			wantData:  savedDS,
		},
		{
			name:      "latest saved",
			wantState: view.StateLatestSaved,
			wantTitle: view.TitleLatestSaved,
			wantData:  savedDS,
		},
		{
			name:      "nothing saved",
			latest:    func(context.Context) (schedule.Dataset, error) { return nil, timetable.ErrNotFound },
			wantState: view.StateEmpty,
			wantTitle: view.TitleDefault,
			wantData:  schedule.Dataset{},
		},
		{
			name:      "transport failure",
			latest:    func(context.Context) (schedule.Dataset, error) { return nil, errors.New("connection refused") },
			wantErr:   true,
			wantState: view.StateEmpty,
			wantTitle: view.TitleDefault,
			wantData:  schedule.Dataset{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := setup(t)
			fx.svc.GenerateFunc = func(context.Context) (timetable.Generated, error) {
				return timetable.Generated{Name: "Generated - 2024-01-01 10:00:00", Dataset: generated}, nil
			}
			if tt.latest != nil {
				fx.svc.LatestFunc = tt.latest
			}
			var token string
			if tt.token != nil {
				token = tt.token(fx)
			}

			err := fx.ctrl.Activate(context.Background(), token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Activate() error = %v, wantErr %v", err, tt.wantErr)
			}
			v := fx.ctrl.Snapshot()
			assert.Equal(t, tt.wantState, v.State)
			assert.Equal(t, tt.wantTitle, v.Title)
			assert.Equal(t, tt.wantData, v.Dataset)
			assert.Equal(t, view.AllSelection(), v.Selection)
		})
	}
}

func TestController_handoffIsOneShot(t *testing.T) {
	fx := setup(t)
	fx.svc.GenerateFunc = func(context.Context) (timetable.Generated, error) {
		return timetable.Generated{Dataset: batchDS}, nil
	}
	tok, err := view.Generate(context.Background(), fx.svc, fx.store)
	require.NoError(t, err)

	require.NoError(t, fx.ctrl.Activate(context.Background(), tok))
	assert.Equal(t, view.StateNewGenerated, fx.ctrl.Snapshot().State)
	assert.Equal(t, view.TitleNewGenerated, fx.ctrl.Snapshot().Title)

	other := view.NewController("v2", view.Deps{Service: fx.svc, Handoffs: fx.store})
	require.NoError(t, other.Activate(context.Background(), tok))
	assert.Equal(t, view.StateLatestSaved, other.Snapshot().State)
}

func TestController_SelectFilter_allReuseVsRefetch(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	require.NoError(t, fx.ctrl.Activate(ctx, ""))
	fx.svc.ScopedFunc = func(context.Context, timetable.Scope, string) (schedule.Dataset, error) { return batchDS, nil }

	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimBatch, "10"))
	v := fx.ctrl.Snapshot()
	assert.Equal(t, view.StateFiltered, v.State)
	assert.Equal(t, view.DimBatch, v.Dimension)
	assert.Equal(t, "Timetable for Batch: CS-A", v.Title)
	assert.Equal(t, batchDS, v.Dataset)

	before := fx.svc.TotalCalls()
	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimBatch, view.All))
	assert.Equal(t, before, fx.svc.TotalCalls(), "batch=all must not issue a request")
	v = fx.ctrl.Snapshot()
	assert.Equal(t, view.StateLatestSaved, v.State)
	assert.Equal(t, view.TitleLatest, v.Title)
	assert.Equal(t, savedDS, v.Dataset)

	latestCalls := fx.svc.Calls("Latest")
	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimSemester, view.All))
	assert.Equal(t, latestCalls+1, fx.svc.Calls("Latest"), "semester=all must re-fetch the latest saved")
	assert.Equal(t, view.TitleLatestSaved, fx.ctrl.Snapshot().Title)
}

func TestController_SelectFilter_semesterReplacesBase(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	require.NoError(t, fx.ctrl.Activate(ctx, ""))

	semDS := schedule.Dataset{testutil.Session("Monday", "9:00-10:00", "Math", "ED-A")}
	fx.svc.ScopedFunc = func(_ context.Context, scope timetable.Scope, _ string) (schedule.Dataset, error) {
		if scope == timetable.ScopeSemester {
			return semDS, nil
		}
		return batchDS, nil
	}

	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimSemester, "2"))
	v := fx.ctrl.Snapshot()
	assert.Equal(t, "Timetable for Semester: Semester 2", v.Title)
	assert.Len(t, v.BatchChoices, 1)
	assert.Equal(t, 20, v.BatchChoices[0].ID)

	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimFaculty, "5"))
	assert.Equal(t, "Timetable for Faculty: Dr. X", fx.ctrl.Snapshot().Title)

	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimFaculty, view.All))
	v = fx.ctrl.Snapshot()
	assert.Equal(t, semDS, v.Dataset)
	assert.Equal(t, view.StateFiltered, v.State)
	assert.Equal(t, view.DimSemester, v.Dimension)

	// saving persists the semester-scoped base, not the faculty view
	var saved schedule.Dataset
	fx.svc.SaveFunc = func(_ context.Context, ds schedule.Dataset) (string, error) {
		saved = ds
		return "Timetable saved successfully", nil
	}
	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimFaculty, "5"))
	msg, err := fx.ctrl.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Timetable saved successfully", msg)
	assert.Equal(t, semDS, saved)
	assert.Equal(t, batchDS, fx.ctrl.Snapshot().Dataset)
}

func TestController_SelectFilter_unknownValue(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	require.NoError(t, fx.ctrl.Activate(ctx, ""))
	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimSemester, "2"))

	before := fx.svc.TotalCalls()
	err := fx.ctrl.SelectFilter(ctx, view.DimBatch, "10") // belongs to semester 1
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, before, fx.svc.TotalCalls())
}

func TestController_failurePreservesState(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	require.NoError(t, fx.ctrl.Activate(ctx, ""))
	before := fx.ctrl.Snapshot()

	fx.svc.ScopedFunc = func(context.Context, timetable.Scope, string) (schedule.Dataset, error) {
		return nil, core.NewRemoteError(404, "Student not found")
	}
	err := fx.ctrl.SelectFilter(ctx, view.DimStudent, "7")
	require.Error(t, err)
	assert.Equal(t, "Student not found", core.UserMessage(err))

	after := fx.ctrl.Snapshot()
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Dataset, after.Dataset)
	assert.Equal(t, "7", after.Selection.Student)

	// base is untouched too
	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimStudent, view.All))
	assert.Equal(t, savedDS, fx.ctrl.Snapshot().Dataset)
}

func TestController_Save_emptyRejectedBeforeRequest(t *testing.T) {
	fx := setup(t)
	fx.svc.LatestFunc = func(context.Context) (schedule.Dataset, error) { return nil, timetable.ErrNotFound }
	ctx := context.Background()
	require.NoError(t, fx.ctrl.Activate(ctx, ""))

	_, err := fx.ctrl.Save(ctx)
	assert.ErrorIs(t, err, view.ErrNothingToSave)
	assert.Equal(t, "No timetable data available to save.", core.UserMessage(err))
	assert.Equal(t, 0, fx.svc.Calls("Save"))
}

func TestController_staleResponseDiscarded(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	require.NoError(t, fx.ctrl.Activate(ctx, ""))

	slowDS := schedule.Dataset{testutil.Session("Monday", "9:00-10:00", "Slow", "CS-A")}
	fastDS := schedule.Dataset{testutil.Session("Monday", "9:00-10:00", "Fast", "CS-B")}
	release := make(chan struct{})
	started := make(chan struct{})
	fx.svc.ScopedFunc = func(_ context.Context, _ timetable.Scope, id string) (schedule.Dataset, error) {
		if id == "10" {
			close(started)
			<-release
			return slowDS, nil
		}
		return fastDS, nil
	}

	slowErr := make(chan error, 1)
	go func() { slowErr <- fx.ctrl.SelectFilter(ctx, view.DimBatch, "10") }()
	<-started
	require.NoError(t, fx.ctrl.SelectFilter(ctx, view.DimBatch, "11"))
	close(release)

	assert.ErrorIs(t, <-slowErr, view.ErrSuperseded)
	v := fx.ctrl.Snapshot()
	assert.Equal(t, fastDS, v.Dataset)
	assert.Equal(t, "Timetable for Batch: CS-B", v.Title)
}

func TestController_savedDialogAndExport(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	require.NoError(t, fx.ctrl.Activate(ctx, ""))

	fx.svc.ListSavedFunc = func(context.Context) ([]timetable.Summary, error) {
		return []timetable.Summary{
			{ID: 3, Name: "Timetable - 2024-03-01 09:00:00", Timestamp: "2024-03-01T09:00:00.123456"},
			{ID: 1, Name: "Timetable - 2024-01-01 09:00:00", Timestamp: "2024-01-01T09:00:00"},
		}, nil
	}
	var exported []int
	fx.svc.ExportFunc = func(_ context.Context, ids []int) (timetable.Artifact, error) {
		exported = ids
		return timetable.Artifact{Filename: "exported_timetables.pdf", Data: []byte("%PDF")}, nil
	}

	_, err := fx.ctrl.Export(ctx)
	assert.ErrorIs(t, err, view.ErrDialogClosed)

	dlg, err := fx.ctrl.OpenSavedDialog(ctx)
	require.NoError(t, err)
	assert.Len(t, dlg.Timetables, 2)
	assert.False(t, dlg.ExportEnabled)

	_, err = fx.ctrl.Export(ctx)
	assert.ErrorIs(t, err, view.ErrNothingSelected)
	assert.Equal(t, 0, fx.svc.Calls("Export"))

	_, err = fx.ctrl.ToggleExport(99)
	assert.Error(t, err)

	require.NoError(t, fx.ctrl.ToggleAllExport(true))
	assert.True(t, fx.ctrl.Snapshot().Dialog.ExportEnabled)

	loc, err := fx.ctrl.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/exported_timetables.pdf", loc)
	assert.Equal(t, []int{3, 1}, exported)
	assert.Len(t, fx.dl, 1)
	assert.Nil(t, fx.ctrl.Snapshot().Dialog)
}

func TestController_LoadSaved(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	require.NoError(t, fx.ctrl.Activate(ctx, ""))

	fx.svc.ListSavedFunc = func(context.Context) ([]timetable.Summary, error) {
		return []timetable.Summary{{ID: 3, Name: "Spring"}}, nil
	}
	fx.svc.GetFunc = func(_ context.Context, id int) (schedule.Dataset, error) {
		if id == 404 {
			return nil, timetable.ErrNotFound
		}
		return batchDS, nil
	}

	tests := []struct {
		name      string
		open      bool
		id        int
		wantErr   error
		wantTitle string
	}{
		{name: "listed", open: true, id: 3, wantTitle: "Spring"},
		{name: "not listed", open: true, id: 8, wantTitle: "Timetable ID: 8"},
		{name: "dialog closed", id: 3, wantTitle: "Timetable ID: 3"},
		{name: "not found", open: true, id: 404, wantErr: timetable.ErrNotFound, wantTitle: "Timetable ID: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.open {
				_, err := fx.ctrl.OpenSavedDialog(ctx)
				require.NoError(t, err)
			}
			err := fx.ctrl.LoadSaved(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			v := fx.ctrl.Snapshot()
			assert.Equal(t, tt.wantTitle, v.Title)
			assert.Equal(t, view.StateLoadedSaved, v.State)
			assert.Nil(t, v.Dialog)
		})
	}
}

func TestController_Deactivate(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, fx.ctrl.SelectFilter(ctx, view.DimBatch, view.All), view.ErrInactive)
	require.NoError(t, fx.ctrl.Activate(ctx, ""))

	fx.ctrl.Deactivate()
	assert.False(t, fx.ctrl.Active())
	assert.ErrorIs(t, fx.ctrl.Activate(ctx, ""), view.ErrInactive)
	_, err := fx.ctrl.Save(ctx)
	assert.ErrorIs(t, err, view.ErrInactive)
	_, err = fx.ctrl.OpenSavedDialog(ctx)
	assert.ErrorIs(t, err, view.ErrInactive)
	assert.ErrorIs(t, fx.ctrl.LoadSaved(ctx, 1), view.ErrInactive)
}
