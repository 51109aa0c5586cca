package schedule

import "strings"

// Days and TimeSlots are the fixed axes of every grid, in display order.
var (
	Days      = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	TimeSlots = []string{"9:00-10:00", "10:00-11:00", "11:00-12:00", "13:00-14:00", "14:00-15:00"}
)

// UnknownBatch is the grid heading for sessions without a batch name.
const UnknownBatch = "Unknown Batch"

// ClassSession is one scheduled class as produced by the timetable service.
type ClassSession struct {
	Day       string   `json:"day"`
	TimeSlot  string   `json:"time"`
	Subject   string   `json:"subject"`
	Teacher   string   `json:"teacher"`
	Room      string   `json:"room"`
	Batch     string   `json:"batch"`
	BatchID   int      `json:"batch_id,omitempty"`
	FacultyID int      `json:"faculty_id,omitempty"`
	Fitness   *float64 `json:"fitness,omitempty"`
}

// BatchName returns the grid heading this session belongs to.
func (s ClassSession) BatchName() string {
	if s.Batch == "" {
		return UnknownBatch
	}
	return s.Batch
}

// IsLab reports whether the session is a practical, which grids highlight.
func (s ClassSession) IsLab() bool {
	return strings.Contains(s.Subject, "Lab")
}

// Dataset is an ordered list of sessions. Order matters: the first session wins a contested cell.
type Dataset []ClassSession

// FitnessScore returns the first defined fitness in input order.
func (ds Dataset) FitnessScore() (float64, bool) {
	for _, s := range ds {
		if s.Fitness != nil {
			return *s.Fitness, true
		}
	}
	return 0, false
}

// Clone returns a deep copy so that holders never share backing arrays or fitness pointers.
func (ds Dataset) Clone() Dataset {
	if ds == nil {
		return nil
	}
	out := make(Dataset, len(ds))
	copy(out, ds)
	for i := range out {
		if f := out[i].Fitness; f != nil {
			v := *f
			out[i].Fitness = &v
		}
	}
	return out
}

func (ds Dataset) IsEmpty() bool { return len(ds) == 0 }

func indexOf(axis []string, v string) int {
	for i, a := range axis {
		if a == v {
			return i
		}
	}
	return -1
}

// DayIndex returns the position of `day` on the day axis, or -1.
func DayIndex(day string) int { return indexOf(Days, day) }

// SlotIndex returns the position of `slot` on the time-slot axis, or -1.
func SlotIndex(slot string) int { return indexOf(TimeSlots, slot) }
