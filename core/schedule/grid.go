package schedule

import (
	"fmt"
	"sort"
)

// EmptyMessage is shown in place of grids when a view has no sessions.
const EmptyMessage = "No timetable data available for this view."

type (
	// Cell is one (day, slot) position of a batch grid.
	Cell struct {
		Session *ClassSession
	}

	// Grid is the 5x5 week of a single batch, indexed [day][slot].
	Grid struct {
		Batch string
		Cells [][]Cell
	}

	// Layout is everything a renderer needs to draw one view.
	Layout struct {
		Title   string
		Grids   []Grid
		Fitness *float64
		// Dropped holds, in input order, the sessions that could not be placed:
		// duplicates of an occupied cell and sessions outside the fixed axes.
		Dropped []ClassSession
	}
)

func (c Cell) Empty() bool { return c.Session == nil }

// String renders the cell as it appears in a text grid.
func (c Cell) String() string {
	if c.Empty() {
		return "--"
	}
	return fmt.Sprintf("%s (%s, %s)", c.Session.Subject, c.Session.Teacher, c.Session.Room)
}

// Cell returns the cell at (day, slot) by label, and false when either label is off-axis.
func (g Grid) Cell(day, slot string) (Cell, bool) {
	d, s := DayIndex(day), SlotIndex(slot)
	if d < 0 || s < 0 {
		return Cell{}, false
	}
	return g.Cells[d][s], true
}

// Sessions returns the placed sessions of the grid, day-major.
func (g Grid) Sessions() []ClassSession {
	var out []ClassSession
	for _, row := range g.Cells {
		for _, c := range row {
			if !c.Empty() {
				out = append(out, *c.Session)
			}
		}
	}
	return out
}

func (l Layout) IsEmpty() bool { return len(l.Grids) == 0 }

// EmptyMessage returns the message to display instead of grids, if any.
func (l Layout) EmptyMessage() string {
	if l.IsEmpty() {
		return EmptyMessage
	}
	return ""
}

// FitnessLabel returns the fitness line, or "" when it must be hidden.
func (l Layout) FitnessLabel() string {
	if l.Fitness == nil {
		return ""
	}
	return fmt.Sprintf("Overall Fitness Score: %.4f", *l.Fitness)
}

func newGrid(batch string) Grid {
	cells := make([][]Cell, len(Days))
	for i := range cells {
		cells[i] = make([]Cell, len(TimeSlots))
	}
	return Grid{Batch: batch, Cells: cells}
}

// BuildLayout partitions `ds` into one grid per batch name (sorted), placing the first
// session found for each (day, slot, batch). The dataset is not modified.
func BuildLayout(ds Dataset, title string) Layout {
	layout := Layout{Title: title}
	if len(ds) == 0 {
		return layout
	}
	if f, ok := ds.FitnessScore(); ok {
		layout.Fitness = &f
	}

	sessions := ds.Clone()
	grids := make(map[string]*Grid)
	for i := range sessions {
		s := &sessions[i]
		name := s.BatchName()
		g, ok := grids[name]
		if !ok {
			ng := newGrid(name)
			g = &ng
			grids[name] = g
		}

		d, slot := DayIndex(s.Day), SlotIndex(s.TimeSlot)
		if d < 0 || slot < 0 || !g.Cells[d][slot].Empty() {
			layout.Dropped = append(layout.Dropped, *s)
			continue
		}
		g.Cells[d][slot].Session = s
	}

	names := make([]string, 0, len(grids))
	for name := range grids {
		names = append(names, name)
	}
	sort.Strings(names)

	layout.Grids = make([]Grid, 0, len(names))
	for _, name := range names {
		layout.Grids = append(layout.Grids, *grids[name])
	}
	return layout
}
