package view

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrNotListed is returned when toggling an id the dialog does not list.
var ErrNotListed = errors.New("timetable is not listed")

// ExportSelection is the set of checked timetables in one opening of the saved-timetables dialog.
// It only ever contains listed ids.
type ExportSelection struct {
	mu      sync.Mutex
	listed  []int
	checked map[int]bool
}

func NewExportSelection(ids []int) *ExportSelection {
	return &ExportSelection{
		listed:  append([]int(nil), ids...),
		checked: make(map[int]bool, len(ids)),
	}
}

func (es *ExportSelection) isListed(id int) bool {
	for _, l := range es.listed {
		if l == id {
			return true
		}
	}
	return false
}

// ToggleOne flips the checked state of `id` and returns the new state.
func (es *ExportSelection) ToggleOne(id int) (bool, error) {
	es.mu.Lock()
	defer es.mu.Unlock()
	if !es.isListed(id) {
		return false, ErrNotListed
	}
	if es.checked[id] {
		delete(es.checked, id)
		return false, nil
	}
	es.checked[id] = true
	return true, nil
}

// Set checks or unchecks `id`.
func (es *ExportSelection) Set(id int, checked bool) error {
	es.mu.Lock()
	defer es.mu.Unlock()
	if !es.isListed(id) {
		return ErrNotListed
	}
	if checked {
		es.checked[id] = true
	} else {
		delete(es.checked, id)
	}
	return nil
}

// ToggleAll checks every listed id, or none.
func (es *ExportSelection) ToggleAll(checked bool) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.checked = make(map[int]bool, len(es.listed))
	if checked {
		for _, id := range es.listed {
			es.checked[id] = true
		}
	}
}

// Enabled reports whether export may be triggered.
func (es *ExportSelection) Enabled() bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.checked) > 0
}

// Selected returns the checked ids in list order.
func (es *ExportSelection) Selected() []int {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]int, 0, len(es.checked))
	for _, id := range es.listed {
		if es.checked[id] {
			out = append(out, id)
		}
	}
	return out
}

func (es *ExportSelection) Clear() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.listed = nil
	es.checked = make(map[int]bool)
}
