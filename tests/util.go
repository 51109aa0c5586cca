package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/timetable"
)

// FakeService is a programmable timetable.Service. Unset funcs return zero values.
// Every call is counted by method name.
type FakeService struct {
	BatchesFunc       func(ctx context.Context) ([]metadata.Batch, error)
	CoursesFunc       func(ctx context.Context) ([]metadata.Course, error)
	FacultyFunc       func(ctx context.Context) ([]metadata.Faculty, error)
	StudentsFunc      func(ctx context.Context) ([]metadata.Student, error)
	SemestersFunc     func(ctx context.Context) ([]metadata.Semester, error)
	CreateStudentFunc func(ctx context.Context, ns metadata.NewStudent) (string, error)
	CreateFacultyFunc func(ctx context.Context, nf metadata.NewFaculty) (string, error)
	GenerateFunc      func(ctx context.Context) (timetable.Generated, error)
	SaveFunc          func(ctx context.Context, ds schedule.Dataset) (string, error)
	ListSavedFunc     func(ctx context.Context) ([]timetable.Summary, error)
	GetFunc           func(ctx context.Context, id int) (schedule.Dataset, error)
	LatestFunc        func(ctx context.Context) (schedule.Dataset, error)
	ScopedFunc        func(ctx context.Context, scope timetable.Scope, id string) (schedule.Dataset, error)
	ExportFunc        func(ctx context.Context, ids []int) (timetable.Artifact, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ timetable.Service = (*FakeService)(nil)

func (f *FakeService) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

// Calls returns how many times method `name` was called.
func (f *FakeService) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// TotalCalls returns the number of calls made to any method.
func (f *FakeService) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeService) Batches(ctx context.Context) ([]metadata.Batch, error) {
	f.record("Batches")
	if f.BatchesFunc == nil {
		return nil, nil
	}
	return f.BatchesFunc(ctx)
}

func (f *FakeService) Courses(ctx context.Context) ([]metadata.Course, error) {
	f.record("Courses")
	if f.CoursesFunc == nil {
		return nil, nil
	}
	return f.CoursesFunc(ctx)
}

func (f *FakeService) Faculty(ctx context.Context) ([]metadata.Faculty, error) {
	f.record("Faculty")
	if f.FacultyFunc == nil {
		return nil, nil
	}
	return f.FacultyFunc(ctx)
}

func (f *FakeService) Students(ctx context.Context) ([]metadata.Student, error) {
	f.record("Students")
	if f.StudentsFunc == nil {
		return nil, nil
	}
	return f.StudentsFunc(ctx)
}

func (f *FakeService) Semesters(ctx context.Context) ([]metadata.Semester, error) {
	f.record("Semesters")
	if f.SemestersFunc == nil {
		return nil, nil
	}
	return f.SemestersFunc(ctx)
}

func (f *FakeService) CreateStudent(ctx context.Context, ns metadata.NewStudent) (string, error) {
	f.record("CreateStudent")
	if f.CreateStudentFunc == nil {
		return "Student added successfully", nil
	}
	return f.CreateStudentFunc(ctx, ns)
}

func (f *FakeService) CreateFaculty(ctx context.Context, nf metadata.NewFaculty) (string, error) {
	f.record("CreateFaculty")
	if f.CreateFacultyFunc == nil {
		return "Faculty added successfully", nil
	}
	return f.CreateFacultyFunc(ctx, nf)
}

func (f *FakeService) Generate(ctx context.Context) (timetable.Generated, error) {
	f.record("Generate")
	if f.GenerateFunc == nil {
		return timetable.Generated{}, nil
	}
	return f.GenerateFunc(ctx)
}

func (f *FakeService) Save(ctx context.Context, ds schedule.Dataset) (string, error) {
	f.record("Save")
	if f.SaveFunc == nil {
		return "Timetable saved successfully", nil
	}
	return f.SaveFunc(ctx, ds)
}

func (f *FakeService) ListSaved(ctx context.Context) ([]timetable.Summary, error) {
	f.record("ListSaved")
	if f.ListSavedFunc == nil {
		return nil, nil
	}
	return f.ListSavedFunc(ctx)
}

func (f *FakeService) Get(ctx context.Context, id int) (schedule.Dataset, error) {
	f.record("Get")
	if f.GetFunc == nil {
		return nil, timetable.ErrNotFound
	}
	return f.GetFunc(ctx, id)
}

func (f *FakeService) Latest(ctx context.Context) (schedule.Dataset, error) {
	f.record("Latest")
	if f.LatestFunc == nil {
		return nil, timetable.ErrNotFound
	}
	return f.LatestFunc(ctx)
}

func (f *FakeService) Scoped(ctx context.Context, scope timetable.Scope, id string) (schedule.Dataset, error) {
	f.record("Scoped")
	if f.ScopedFunc == nil {
		return schedule.Dataset{}, nil
	}
	return f.ScopedFunc(ctx, scope, id)
}

func (f *FakeService) Export(ctx context.Context, ids []int) (timetable.Artifact, error) {
	f.record("Export")
	if f.ExportFunc == nil {
		return timetable.Artifact{Filename: "exported_timetables.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}, nil
	}
	return f.ExportFunc(ctx, ids)
}

// Fixtures.

func Fitness(f float64) *float64 { return &f }

// Session builds a class session for tests.
func Session(day, slot, subject, batch string) schedule.ClassSession {
	return schedule.ClassSession{Day: day, TimeSlot: slot, Subject: subject, Teacher: "Dr. X", Room: "R1", Batch: batch}
}

// SampleMetadata wires a FakeService with two semesters, three batches and a few people.
func SampleMetadata(f *FakeService) {
	f.SemestersFunc = func(context.Context) ([]metadata.Semester, error) {
		return []metadata.Semester{{ID: 1, Name: "Semester 1"}, {ID: 2, Name: "Semester 2"}}, nil
	}
	f.BatchesFunc = func(context.Context) ([]metadata.Batch, error) {
		return []metadata.Batch{
			{ID: 10, Name: "CS-A", ProgramID: 1, SemesterID: 1},
			{ID: 11, Name: "CS-B", ProgramID: 1, SemesterID: 1},
			{ID: 20, Name: "ED-A", ProgramID: 2, SemesterID: 2},
		}, nil
	}
	f.CoursesFunc = func(context.Context) ([]metadata.Course, error) {
		return []metadata.Course{{ID: 100, Name: "Algebra", Code: "MTH101", Credits: 4, TypeID: 1}}, nil
	}
	f.FacultyFunc = func(context.Context) ([]metadata.Faculty, error) {
		return []metadata.Faculty{{ID: 5, Name: "Dr. X", WorkloadLimitHours: 16}}, nil
	}
	f.StudentsFunc = func(context.Context) ([]metadata.Student, error) {
		return []metadata.Student{{ID: 7, Name: "Amina"}}, nil
	}
}

// LoadedCache returns a metadata cache loaded from `f`.
func LoadedCache(t *testing.T, f *FakeService) *metadata.Cache {
	t.Helper()
	cache := metadata.NewCache(f)
	if err := cache.Load(context.Background()); err != nil {
		t.Fatalf("cache.Load() failed: %v", err)
	}
	return cache
}
