// Package timetable describes what the app needs from the remote timetable service.
package timetable

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/schedule"
)

// ErrNotFound matches any "nothing there" answer from the service (eg. no saved timetable yet).
var ErrNotFound = errors.New("timetable not found")

// Scope is a dimension a saved timetable can be narrowed to.
type Scope string

const (
	ScopeSemester Scope = "semester"
	ScopeBatch    Scope = "batch"
	ScopeFaculty  Scope = "faculty"
	ScopeStudent  Scope = "student"
)

// TimestampLayout is how the service formats saved timestamps (python isoformat, no zone).
const TimestampLayout = "2006-01-02T15:04:05.999999"

type (
	// Summary is one entry of the saved-timetables list.
	Summary struct {
		ID        int              `json:"timetable_id"`
		Name      string           `json:"timetable_name"`
		Timestamp string           `json:"timestamp"`
		Schedule  schedule.Dataset `json:"schedule,omitempty"`
	}

	// Generated is a freshly generated, not yet saved, timetable.
	Generated struct {
		Name    string           `json:"timetable_name"`
		Dataset schedule.Dataset `json:"schedule_data"`
	}

	// Artifact is an exported document.
	Artifact struct {
		Filename    string
		ContentType string
		Data        []byte
	}

	Service interface {
		metadata.Fetcher
		metadata.Creator

		Generate(ctx context.Context) (Generated, error)
		// Save persists `ds` and returns the server's confirmation message.
		Save(ctx context.Context, ds schedule.Dataset) (string, error)
		ListSaved(ctx context.Context) ([]Summary, error)
		Get(ctx context.Context, id int) (schedule.Dataset, error)
		Latest(ctx context.Context) (schedule.Dataset, error)
		Scoped(ctx context.Context, scope Scope, id string) (schedule.Dataset, error)
		// Export renders the saved timetables `ids`, in that order, into a single document.
		Export(ctx context.Context, ids []int) (Artifact, error)
	}
)

// CreatedAt parses the timestamp; the zero time is returned when it can't be parsed.
func (s Summary) CreatedAt() time.Time {
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s.Timestamp); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Label is how the summary is listed in the saved-timetables dialog.
func (s Summary) Label() string {
	if t := s.CreatedAt(); !t.IsZero() {
		return s.Name + " (" + t.Format("2006-01-02 15:04") + ")"
	}
	return s.Name
}
