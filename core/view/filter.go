package view

import (
	"strconv"
	"sync"

	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/timetable"
)

// All is the filter value meaning "no restriction".
const All = "all"

// Dimension is one of the four filter controls.
type Dimension string

const (
	DimSemester Dimension = "semester"
	DimBatch    Dimension = "batch"
	DimFaculty  Dimension = "faculty"
	DimStudent  Dimension = "student"
)

var Dimensions = []Dimension{DimSemester, DimBatch, DimFaculty, DimStudent}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, bool) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// Label is the capitalized name used in titles.
func (d Dimension) Label() string {
	switch d {
	case DimSemester:
		return "Semester"
	case DimBatch:
		return "Batch"
	case DimFaculty:
		return "Faculty"
	case DimStudent:
		return "Student"
	}
	return string(d)
}

func (d Dimension) Scope() timetable.Scope { return timetable.Scope(d) }

// Collection is the metadata collection the dimension picks from.
func (d Dimension) Collection() metadata.Collection {
	switch d {
	case DimSemester:
		return metadata.CollSemesters
	case DimBatch:
		return metadata.CollBatches
	case DimFaculty:
		return metadata.CollFaculty
	default:
		return metadata.CollStudents
	}
}

// Selection holds the value of every filter control: All or an id.
type Selection struct {
	Semester string `json:"semester"`
	Batch    string `json:"batch"`
	Faculty  string `json:"faculty"`
	Student  string `json:"student"`
}

func AllSelection() Selection {
	return Selection{Semester: All, Batch: All, Faculty: All, Student: All}
}

func (s Selection) Get(dim Dimension) string {
	switch dim {
	case DimSemester:
		return s.Semester
	case DimBatch:
		return s.Batch
	case DimFaculty:
		return s.Faculty
	case DimStudent:
		return s.Student
	}
	return ""
}

func (s *Selection) set(dim Dimension, value string) {
	switch dim {
	case DimSemester:
		s.Semester = value
	case DimBatch:
		s.Batch = value
	case DimFaculty:
		s.Faculty = value
	case DimStudent:
		s.Student = value
	}
}

// Action is what a filter change requires from the controller.
type Action int

const (
	// ActionRefetchLatest re-fetches the latest saved timetable (semester back to all).
	ActionRefetchLatest Action = iota + 1
	// ActionReuseBase redisplays the base dataset without any request.
	ActionReuseBase
	// ActionFetchScoped fetches the timetable narrowed to the selected value.
	ActionFetchScoped
)

// Decide maps a filter change to the work it needs.
func Decide(dim Dimension, value string) Action {
	switch {
	case value != All:
		return ActionFetchScoped
	case dim == DimSemester:
		return ActionRefetchLatest
	default:
		return ActionReuseBase
	}
}

// CascadeBatches narrows the batch choices to `semesterID` and keeps `currentBatch`
// when it is still offered, falling back to All otherwise.
func CascadeBatches(all []metadata.Batch, semesterID, currentBatch string) ([]metadata.Batch, string) {
	choices := all
	if semesterID != All {
		choices = make([]metadata.Batch, 0, len(all))
		for _, b := range all {
			if strconv.Itoa(b.SemesterID) == semesterID {
				choices = append(choices, b)
			}
		}
	}
	choices = append([]metadata.Batch(nil), choices...)

	if currentBatch == All {
		return choices, All
	}
	for _, b := range choices {
		if strconv.Itoa(b.ID) == currentBatch {
			return choices, currentBatch
		}
	}
	return choices, All
}

// BatchSource provides the complete batch list; *metadata.Cache is one.
type BatchSource interface {
	Batches() []metadata.Batch
}

// Resolver keeps the filter selection and the batch choices consistent with the semester.
type Resolver struct {
	batches BatchSource

	mu      sync.Mutex
	sel     Selection
	choices []metadata.Batch
}

func NewResolver(batches BatchSource) *Resolver {
	r := &Resolver{batches: batches}
	r.Reset()
	return r
}

// Reset puts every control back to All and offers every batch.
func (r *Resolver) Reset() {
	all := r.batches.Batches()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sel = AllSelection()
	r.choices = all
}

// OnSemesterChange sets the semester and cascades the batch choices and value.
func (r *Resolver) OnSemesterChange(semesterID string) Selection {
	all := r.batches.Batches()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sel.Semester = semesterID
	r.choices, r.sel.Batch = CascadeBatches(all, semesterID, r.sel.Batch)
	return r.sel
}

// Select applies a filter change and returns the work it needs.
func (r *Resolver) Select(dim Dimension, value string) Action {
	if value == "" {
		value = All
	}
	if dim == DimSemester {
		r.OnSemesterChange(value)
	} else {
		r.mu.Lock()
		r.sel.set(dim, value)
		r.mu.Unlock()
	}
	return Decide(dim, value)
}

func (r *Resolver) Selection() Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sel
}

// BatchChoices returns the batches currently offered by the batch control.
func (r *Resolver) BatchChoices() []metadata.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]metadata.Batch(nil), r.choices...)
}

// Offers reports whether `value` is an acceptable value for `dim`: All, or a listed id.
func (r *Resolver) Offers(dim Dimension, value string, cache *metadata.Cache) bool {
	if value == All {
		return true
	}
	if dim == DimBatch {
		for _, b := range r.BatchChoices() {
			if strconv.Itoa(b.ID) == value {
				return true
			}
		}
		return false
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return false
	}
	_, ok := cache.ByID(dim.Collection(), id)
	return ok
}
