// Package exportsvc renders grid layouts into downloadable documents.
package exportsvc

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/timetable"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultSheet    = "Sheet1"
	maxSheetName    = 31
)

var sheetNameReplacer = strings.NewReplacer(":", "-", "\\", "-", "/", "-", "?", "", "*", "", "[", "(", "]", ")")

func cell(col, row int) string {
	ref, _ := excelize.CoordinatesToCellName(col, row)
	return ref
}

// sheetName makes `name` a valid, unused sheet name.
func sheetName(name string, used map[string]bool) string {
	base := strings.TrimSpace(sheetNameReplacer.Replace(name))
	if base == "" {
		base = schedule.UnknownBatch
	}
	if r := []rune(base); len(r) > maxSheetName {
		base = string(r[:maxSheetName])
	}
	candidate := base
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := " (" + strconv.Itoa(i) + ")"
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		candidate = string(r) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// writeHeader writes the title and fitness rows and returns the next free row.
func writeHeader(f *excelize.File, sheet string, l schedule.Layout) (int, error) {
	row := 1
	if err := f.SetCellStr(sheet, cell(1, row), l.Title); err != nil {
		return 0, err
	}
	row++
	if lbl := l.FitnessLabel(); lbl != "" {
		if err := f.SetCellStr(sheet, cell(1, row), lbl); err != nil {
			return 0, err
		}
		row++
	}
	return row + 1, nil
}

func writeGrid(f *excelize.File, sheet string, g schedule.Grid, l schedule.Layout, bold int) error {
	row, err := writeHeader(f, sheet, l)
	if err != nil {
		return err
	}
	if err := f.SetCellStr(sheet, cell(1, row), g.Batch); err != nil {
		return err
	}
	row++

	header := append([]string{"Day"}, schedule.TimeSlots...)
	for i, h := range header {
		if err := f.SetCellStr(sheet, cell(i+1, row), h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, cell(1, row), cell(len(header), row), bold); err != nil {
		return err
	}
	row++

	for d, day := range schedule.Days {
		if err := f.SetCellStr(sheet, cell(1, row+d), day); err != nil {
			return err
		}
		for s := range schedule.TimeSlots {
			c := g.Cells[d][s]
			val := "--"
			if !c.Empty() {
				val = c.Session.Subject + "\nT: " + c.Session.Teacher + "\nR: " + c.Session.Room
			}
			if err := f.SetCellStr(sheet, cell(s+2, row+d), val); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(sheet, "A", "F", 22)
}

// WriteXLSX writes `l` as a workbook with one sheet per batch grid.
func WriteXLSX(w io.Writer, l schedule.Layout) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}

	if l.IsEmpty() {
		sheet := "Timetable"
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return errors.Wrap(err, "naming sheet")
		}
		row, err := writeHeader(f, sheet, l)
		if err != nil {
			return errors.Wrap(err, "writing header")
		}
		if err := f.SetCellStr(sheet, cell(1, row), l.EmptyMessage()); err != nil {
			return errors.Wrap(err, "writing sheet")
		}
	} else {
		used := make(map[string]bool, len(l.Grids))
		for i, g := range l.Grids {
			sheet := sheetName(g.Batch, used)
			if i == 0 {
				if err := f.SetSheetName(defaultSheet, sheet); err != nil {
					return errors.Wrap(err, "naming sheet")
				}
			} else if _, err := f.NewSheet(sheet); err != nil {
				return errors.Wrapf(err, "adding sheet %q", sheet)
			}
			if err := writeGrid(f, sheet, g, l, bold); err != nil {
				return errors.Wrapf(err, "writing sheet %q", sheet)
			}
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

// XLSXArtifact renders `l` into a downloadable workbook.
func XLSXArtifact(l schedule.Layout, filename string) (timetable.Artifact, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, l); err != nil {
		return timetable.Artifact{}, err
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		filename += ".xlsx"
	}
	return timetable.Artifact{Filename: filename, ContentType: XLSXContentType, Data: buf.Bytes()}, nil
}
