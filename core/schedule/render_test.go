package schedule

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderHTML(t *testing.T) {
	ds := Dataset{
		{Day: "Monday", TimeSlot: "9:00-10:00", Subject: "Physics Lab", Teacher: "Dr. <X>", Room: "L1", Batch: "CS-A", Fitness: fitness(0.9)},
	}
	var buf bytes.Buffer
	if err := RenderHTML(&buf, BuildLayout(ds, "Latest Saved Timetable")); err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	out := buf.String()

	assert.Contains(t, out, "<h2>Latest Saved Timetable</h2>")
	assert.Contains(t, out, "Overall Fitness Score: 0.9000")
	assert.Contains(t, out, "<h3>CS-A</h3>")
	assert.Contains(t, out, `class="lab"`)
	assert.Contains(t, out, "T: Dr. &lt;X&gt;")
	assert.Equal(t, len(Days)*len(TimeSlots)-1, strings.Count(out, `<td class="empty">--</td>`))
}

func TestRenderHTML_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, BuildLayout(nil, "Optimal Timetable (AI)")); err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	assert.Contains(t, buf.String(), EmptyMessage)
	assert.NotContains(t, buf.String(), "<table>")
	assert.NotContains(t, buf.String(), "Overall Fitness Score")
}

func TestRenderText(t *testing.T) {
	ds := Dataset{{Day: "Tuesday", TimeSlot: "10:00-11:00", Subject: "Math", Teacher: "Dr. X", Room: "R1", Batch: "CS-A"}}
	out, err := TextString(BuildLayout(ds, "Timetable ID: 7"))
	if err != nil {
		t.Fatalf("TextString() error = %v", err)
	}
	assert.True(t, strings.HasPrefix(out, "== Timetable ID: 7 =="))
	assert.Contains(t, out, "-- CS-A --\nMonday\n  9:00-10:00  --\n")
	assert.Contains(t, out, "Tuesday\n  9:00-10:00  --\n  10:00-11:00 Math (Dr. X, R1)\n")
}

func TestRenderHTML_daysAreRows(t *testing.T) {
	ds := Dataset{{Day: "Monday", TimeSlot: "9:00-10:00", Subject: "Math", Teacher: "Dr. X", Room: "R1", Batch: "B1"}}
	var buf bytes.Buffer
	if err := RenderHTML(&buf, BuildLayout(ds, "Latest Saved Timetable")); err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	out := buf.String()

	assert.Contains(t, out, "<h3>B1</h3>")
	assert.NotContains(t, out, "Timetable for Batch")

	header := "<tr><th>Day</th>"
	for _, slot := range TimeSlots {
		header += "<th>" + slot + "</th>"
	}
	assert.Contains(t, out, header+"</tr>")

	body := out[strings.Index(out, "<tbody>"):]
	rows := strings.Split(body, "<tr>")[1:]
	if assert.Len(t, rows, len(Days)) {
		for i, day := range Days {
			assert.Contains(t, rows[i], `<td class="day">`+day+"</td>", "row %d", i)
		}
		first := rows[0]
		assert.Less(t, strings.Index(first, "Math"), strings.Index(first, `<td class="empty">`))
	}
}
