package metadata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Collection names one of the five reference lists.
type Collection string

const (
	CollBatches   Collection = "batches"
	CollCourses   Collection = "courses"
	CollFaculty   Collection = "faculty"
	CollStudents  Collection = "students"
	CollSemesters Collection = "semesters"
)

// Collections lists every collection in canonical order.
var Collections = []Collection{CollBatches, CollCourses, CollFaculty, CollStudents, CollSemesters}

// ParseCollection validates a collection name.
func ParseCollection(s string) (Collection, bool) {
	for _, c := range Collections {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Fetcher retrieves the reference lists from the timetable service.
type Fetcher interface {
	Batches(ctx context.Context) ([]Batch, error)
	Courses(ctx context.Context) ([]Course, error)
	Faculty(ctx context.Context) ([]Faculty, error)
	Students(ctx context.Context) ([]Student, error)
	Semesters(ctx context.Context) ([]Semester, error)
}

// LoadFailedMessage is what users see when any collection fails to load.
const LoadFailedMessage = "One or more API endpoints failed to load."

// CollectionError is the failure of a single collection fetch.
type CollectionError struct {
	Collection Collection
	Err        error
}

// LoadError reports every collection that failed during one Load, in canonical order.
type LoadError struct {
	Failures []CollectionError
}

func (e *LoadError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Collection, f.Err))
	}
	return LoadFailedMessage + " (" + strings.Join(parts, "; ") + ")"
}

func (e *LoadError) UserMessage() string { return LoadFailedMessage }

// Failed reports whether `c` is among the failed collections.
func (e *LoadError) Failed(c Collection) bool {
	for _, f := range e.Failures {
		if f.Collection == c {
			return true
		}
	}
	return false
}

type snapshot struct {
	batches   []Batch
	courses   []Course
	faculty   []Faculty
	students  []Student
	semesters []Semester
	index     map[Collection]map[int]Entity
}

func newSnapshot(b []Batch, c []Course, f []Faculty, st []Student, se []Semester) *snapshot {
	snap := &snapshot{batches: b, courses: c, faculty: f, students: st, semesters: se}
	snap.index = make(map[Collection]map[int]Entity, len(Collections))
	for _, coll := range Collections {
		entities := snap.all(coll)
		idx := make(map[int]Entity, len(entities))
		for _, e := range entities {
			if _, dup := idx[e.EntityID()]; !dup {
				idx[e.EntityID()] = e
			}
		}
		snap.index[coll] = idx
	}
	return snap
}

func (s *snapshot) all(coll Collection) []Entity {
	var out []Entity
	switch coll {
	case CollBatches:
		out = make([]Entity, 0, len(s.batches))
		for _, e := range s.batches {
			out = append(out, e)
		}
	case CollCourses:
		out = make([]Entity, 0, len(s.courses))
		for _, e := range s.courses {
			out = append(out, e)
		}
	case CollFaculty:
		out = make([]Entity, 0, len(s.faculty))
		for _, e := range s.faculty {
			out = append(out, e)
		}
	case CollStudents:
		out = make([]Entity, 0, len(s.students))
		for _, e := range s.students {
			out = append(out, e)
		}
	case CollSemesters:
		out = make([]Entity, 0, len(s.semesters))
		for _, e := range s.semesters {
			out = append(out, e)
		}
	}
	return out
}

// Cache holds the last complete set of reference lists.
// Readers always see either the previous or the new snapshot, never a mix.
type Cache struct {
	fetcher Fetcher
	mu      sync.RWMutex
	snap    *snapshot
}

func NewCache(fetcher Fetcher) *Cache {
	return &Cache{fetcher: fetcher}
}

// Load fetches all five collections concurrently and swaps them in together.
// If any fetch fails nothing is replaced and a *LoadError is returned.
func (c *Cache) Load(ctx context.Context) error {
	var (
		g    errgroup.Group
		b    []Batch
		co   []Course
		f    []Faculty
		st   []Student
		se   []Semester
		errs = make([]error, len(Collections))
	)
	// no group context: each fetch runs to completion so that every failure gets reported
	fetch := func(i int, fn func() error) {
		g.Go(func() error {
			errs[i] = fn()
			return errs[i]
		})
	}
	fetch(0, func() (err error) { b, err = c.fetcher.Batches(ctx); return })
	fetch(1, func() (err error) { co, err = c.fetcher.Courses(ctx); return })
	fetch(2, func() (err error) { f, err = c.fetcher.Faculty(ctx); return })
	fetch(3, func() (err error) { st, err = c.fetcher.Students(ctx); return })
	fetch(4, func() (err error) { se, err = c.fetcher.Semesters(ctx); return })

	if err := g.Wait(); err != nil {
		var lerr LoadError
		for i, ferr := range errs {
			if ferr != nil {
				lerr.Failures = append(lerr.Failures, CollectionError{Collection: Collections[i], Err: ferr})
			}
		}
		return &lerr
	}

	snap := newSnapshot(b, co, f, st, se)
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}

func (c *Cache) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return &snapshot{}
	}
	return c.snap
}

func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap != nil
}

// ByID returns the entity of `coll` with the given id.
func (c *Cache) ByID(coll Collection, id int) (Entity, bool) {
	e, ok := c.current().index[coll][id]
	return e, ok
}

// All returns the entities of `coll` in the order the service sent them.
func (c *Cache) All(coll Collection) []Entity {
	return c.current().all(coll)
}

// DisplayName returns the name of the entity of `coll` keyed by `key`, or `key` itself when unknown.
func (c *Cache) DisplayName(coll Collection, key string) string {
	if id, err := strconv.Atoi(key); err == nil {
		if e, ok := c.ByID(coll, id); ok {
			return e.DisplayName()
		}
	}
	return key
}

func (c *Cache) Batches() []Batch { return append([]Batch(nil), c.current().batches...) }
func (c *Cache) Courses() []Course { return append([]Course(nil), c.current().courses...) }
func (c *Cache) Faculty() []Faculty { return append([]Faculty(nil), c.current().faculty...) }
func (c *Cache) Students() []Student { return append([]Student(nil), c.current().students...) }
func (c *Cache) Semesters() []Semester { return append([]Semester(nil), c.current().semesters...) }
