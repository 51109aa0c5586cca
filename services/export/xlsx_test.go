package exportsvc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/ratiba/core/schedule"
)

func TestWriteXLSX(t *testing.T) {
	ds := schedule.Dataset{
		{Day: "Monday", TimeSlot: "9:00-10:00", Subject: "Math", Teacher: "Dr. X", Room: "R1", Batch: "CS/B"},
		{Day: "Friday", TimeSlot: "14:00-15:00", Subject: "Art", Teacher: "Dr. Y", Room: "R2", Batch: "CS-A"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, schedule.BuildLayout(ds, "Latest Saved Timetable")))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"CS-A", "CS-B"}, f.GetSheetList())

	v, err := f.GetCellValue("CS-B", "B5")
	require.NoError(t, err)
	assert.Equal(t, "Math\nT: Dr. X\nR: R1", v)

	v, err = f.GetCellValue("CS-B", "C5")
	require.NoError(t, err)
	assert.Equal(t, "--", v)

	// days run down the rows, slots across the columns
	for ref, want := range map[string]string{
		"A3": "CS-B",
		"A4": "Day",
		"B4": "9:00-10:00",
		"F4": "14:00-15:00",
		"A5": "Monday",
		"A9": "Friday",
	} {
		v, err = f.GetCellValue("CS-B", ref)
		require.NoError(t, err)
		assert.Equal(t, want, v, ref)
	}

	v, err = f.GetCellValue("CS-A", "F9")
	require.NoError(t, err)
	assert.Equal(t, "Art\nT: Dr. Y\nR: R2", v)

	v, err = f.GetCellValue("CS-A", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Latest Saved Timetable", v)
}

func TestWriteXLSX_empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, schedule.BuildLayout(nil, "Optimal Timetable (AI)")))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Timetable", "A3")
	require.NoError(t, err)
	assert.Equal(t, schedule.EmptyMessage, v)
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "CS-A", sheetName("CS-A", used))
	assert.Equal(t, "cs-a (2)", sheetName("cs-a", used))
	assert.Equal(t, schedule.UnknownBatch, sheetName("  ", used))
	assert.Len(t, []rune(sheetName("A very long batch name that overflows", used)), maxSheetName)
}
