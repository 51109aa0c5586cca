// Package view holds the state of one timetable view: what is displayed, how it was obtained,
// the filter controls, and the saved-timetables dialog.
package view

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/handoff"
	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/timetable"
)

// State is how the displayed dataset was obtained.
type State int

const (
	StateEmpty State = iota
	StateNewGenerated
	StateLatestSaved
	StateFiltered
	StateLoadedSaved
)

func (s State) String() string {
	switch s {
	case StateNewGenerated:
		return "new_generated"
	case StateLatestSaved:
		return "latest_saved"
	case StateFiltered:
		return "filtered"
	case StateLoadedSaved:
		return "loaded_saved"
	default:
		return "empty"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Titles.
const (
	TitleDefault      = "Optimal Timetable (AI)"
	TitleNewGenerated = "Newly Generated Timetable"
	TitleLatestSaved  = "Latest Saved Timetable"
	TitleLatest       = "Latest Timetable"
)

var (
	ErrInactive   = errors.New("view is not active")
	ErrSuperseded = errors.New("response superseded by a newer request")

	ErrNothingToSave   = core.NewValidationError(errors.New("No timetable data available to save."))
	ErrNothingSelected = core.NewValidationError(errors.New("Please select at least one timetable to export."))
	ErrDialogClosed    = core.NewValidationError(errors.New("The saved timetables dialog is not open."))
)

// FilterTitle is the title of a view narrowed to one filter value.
func FilterTitle(dim Dimension, name string) string {
	return fmt.Sprintf("Timetable for %s: %s", dim.Label(), name)
}

// SavedTitle is the fallback title of a saved timetable missing from the dialog's list.
func SavedTitle(id int) string {
	return "Timetable ID: " + strconv.Itoa(id)
}

// LoadedMessage confirms that a saved timetable is displayed.
func LoadedMessage(title string) string {
	return fmt.Sprintf("Timetable %q loaded successfully!", title)
}

// ExportedMessage confirms an export of `n` timetables.
func ExportedMessage(n int) string {
	return fmt.Sprintf("Successfully exported %d timetable(s) as PDF.", n)
}

// Downloader delivers an exported artifact to the user and returns where it went.
type Downloader interface {
	Download(ctx context.Context, a timetable.Artifact) (string, error)
}

// DownloaderFunc adapts a function to Downloader.
type DownloaderFunc func(ctx context.Context, a timetable.Artifact) (string, error)

func (f DownloaderFunc) Download(ctx context.Context, a timetable.Artifact) (string, error) {
	return f(ctx, a)
}

type (
	// View is an immutable copy of the controller's state.
	View struct {
		ID           string           `json:"id"`
		State        State            `json:"state"`
		Dimension    Dimension        `json:"dimension,omitempty"`
		Title        string           `json:"title"`
		Selection    Selection        `json:"selection"`
		BatchChoices []metadata.Batch `json:"batch_choices"`
		Dataset      schedule.Dataset `json:"dataset"`
		Layout       schedule.Layout  `json:"-"`
		Dialog       *DialogView      `json:"saved_dialog,omitempty"`
	}

	// DialogView is the saved-timetables dialog as currently open.
	DialogView struct {
		Timetables    []timetable.Summary `json:"timetables"`
		Selected      []int               `json:"selected"`
		ExportEnabled bool                `json:"export_enabled"`
	}

	displayed struct {
		state State
		dim   Dimension
		title string
		data  schedule.Dataset
	}

	savedDialog struct {
		list      []timetable.Summary
		selection *ExportSelection
	}

	Deps struct {
		Service    timetable.Service
		Handoffs   handoff.Store
		Metadata   *metadata.Cache
		Downloader Downloader
		Logger     core.Logger
	}
)

// Controller drives a single view. Its methods are safe for concurrent use; requests are issued
// without holding the lock and only the response of the latest request is applied.
type Controller struct {
	id         string
	svc        timetable.Service
	handoffs   handoff.Store
	meta       *metadata.Cache
	filters    *Resolver
	downloader Downloader
	log        core.Logger

	mu          sync.Mutex
	active      bool
	deactivated bool
	seq         uint64
	dialogSeq   uint64
	current     displayed
	base        displayed
	dialog      *savedDialog
}

func NewController(id string, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = core.DiscardLogger{}
	}
	meta := deps.Metadata
	if meta == nil {
		meta = metadata.NewCache(deps.Service)
	}
	c := &Controller{
		id:         id,
		svc:        deps.Service,
		handoffs:   deps.Handoffs,
		meta:       meta,
		filters:    NewResolver(meta),
		downloader: deps.Downloader,
		log:        logger,
	}
	c.assignLocked(displayed{title: TitleDefault}, true)
	return c
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) person() core.LogPerson { return core.LogPerson{ID: c.id} }

// begin checks the view is usable and takes a new request token.
func (c *Controller) begin() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return 0, ErrInactive
	}
	c.seq++
	return c.seq, nil
}

// finish applies `fn` if `token` is still the latest request.
func (c *Controller) finish(token uint64, fn func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return ErrInactive
	}
	if token != c.seq {
		return ErrSuperseded
	}
	if fn != nil {
		fn()
	}
	return nil
}

// fail reports a failed request; stale failures are reported as superseded.
func (c *Controller) fail(token uint64, err error) error {
	if ferr := c.finish(token, nil); ferr != nil {
		return ferr
	}
	return err
}

// assignLocked displays `d`; with `asBase` it also becomes what "all" filters go back to.
func (c *Controller) assignLocked(d displayed, asBase bool) {
	d.data = d.data.Clone()
	if d.data == nil {
		d.data = schedule.Dataset{}
	}
	c.current = d
	if asBase {
		c.base = d
	}
	layout := schedule.BuildLayout(c.current.data, c.current.title)
	if n := len(layout.Dropped); n > 0 {
		c.log.Warn(fmt.Sprintf("view: %d session(s) not placed in %q", n, c.current.title), c.person())
	}
}

// Activate enters the view. A non-empty `token` names a generation handoff to display; when it is
// missing or already consumed the latest saved timetable is shown instead. A transport failure
// leaves the view empty and is returned for display.
func (c *Controller) Activate(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.deactivated {
		c.mu.Unlock()
		return ErrInactive
	}
	c.active = true
	c.mu.Unlock()

	seq, err := c.begin()
	if err != nil {
		return err
	}
	c.filters.Reset()

	if token != "" && c.handoffs != nil {
		h, err := c.handoffs.Take(ctx, token)
		switch {
		case err == nil:
			title := h.Name
			if title == "" {
				title = TitleNewGenerated
			}
			return c.finish(seq, func() {
				c.assignLocked(displayed{state: StateNewGenerated, title: title, data: h.Dataset}, true)
			})
		case errors.Is(err, handoff.ErrNotFound):
			c.log.Info("view: handoff not found, showing latest saved", c.person())
		default:
			c.log.Error("view: taking handoff", errors.Wrap(err, "taking handoff"), c.person())
		}
	}

	ds, err := c.svc.Latest(ctx)
	switch {
	case err == nil:
		return c.finish(seq, func() {
			c.assignLocked(displayed{state: StateLatestSaved, title: TitleLatestSaved, data: ds}, true)
		})
	case errors.Is(err, timetable.ErrNotFound):
		return c.finish(seq, func() {
			c.assignLocked(displayed{state: StateEmpty, title: TitleDefault}, true)
		})
	default:
		if ferr := c.finish(seq, func() {
			c.assignLocked(displayed{state: StateEmpty, title: TitleDefault}, true)
		}); ferr != nil {
			return ferr
		}
		return errors.Wrap(err, "loading latest saved timetable")
	}
}

// SelectFilter applies a filter control change and updates the displayed dataset accordingly.
// The control value is kept even when the fetch fails.
func (c *Controller) SelectFilter(ctx context.Context, dim Dimension, value string) error {
	if value == "" {
		value = All
	}
	if _, ok := ParseDimension(string(dim)); !ok {
		return core.NewValidationError(errors.Errorf("unknown filter %q", dim))
	}
	if c.meta.Loaded() && !c.filters.Offers(dim, value, c.meta) {
		return core.NewValidationError(
			errors.Errorf("unknown %s %q", dim, value),
			core.FieldError{Field: string(dim), Error: "not one of the available choices"},
		)
	}

	seq, err := c.begin()
	if err != nil {
		return err
	}

	switch c.filters.Select(dim, value) {
	case ActionReuseBase:
		return c.finish(seq, func() {
			base := c.base
			base.title = TitleLatest
			c.assignLocked(base, false)
		})

	case ActionRefetchLatest:
		ds, err := c.svc.Latest(ctx)
		if errors.Is(err, timetable.ErrNotFound) {
			return c.finish(seq, func() {
				c.assignLocked(displayed{state: StateEmpty, title: TitleLatestSaved}, true)
			})
		}
		if err != nil {
			return c.fail(seq, errors.Wrap(err, "loading latest saved timetable"))
		}
		return c.finish(seq, func() {
			c.assignLocked(displayed{state: StateLatestSaved, title: TitleLatestSaved, data: ds}, true)
		})

	default: // ActionFetchScoped
		ds, err := c.svc.Scoped(ctx, dim.Scope(), value)
		if err != nil {
			return c.fail(seq, errors.Wrapf(err, "loading %s timetable", dim))
		}
		title := FilterTitle(dim, c.meta.DisplayName(dim.Collection(), value))
		return c.finish(seq, func() {
			c.assignLocked(displayed{state: StateFiltered, dim: dim, title: title, data: ds}, dim == DimSemester)
		})
	}
}

// Save persists the base dataset and returns the server's message. The display is unchanged.
func (c *Controller) Save(ctx context.Context) (string, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return "", ErrInactive
	}
	ds := c.base.data.Clone()
	c.mu.Unlock()

	if ds.IsEmpty() {
		return "", ErrNothingToSave
	}
	msg, err := c.svc.Save(ctx, ds)
	if err != nil {
		return "", errors.Wrap(err, "saving timetable")
	}
	return msg, nil
}

// LoadSaved closes the dialog and displays the saved timetable `id`.
func (c *Controller) LoadSaved(ctx context.Context, id int) error {
	c.mu.Lock()
	title := SavedTitle(id)
	if c.dialog != nil {
		for _, s := range c.dialog.list {
			if s.ID == id {
				title = s.Name
				break
			}
		}
	}
	c.dialog = nil
	c.mu.Unlock()

	seq, err := c.begin()
	if err != nil {
		return err
	}
	ds, err := c.svc.Get(ctx, id)
	if err != nil {
		return c.fail(seq, errors.Wrap(err, "loading timetable"))
	}
	return c.finish(seq, func() {
		c.filters.Reset()
		c.assignLocked(displayed{state: StateLoadedSaved, title: title, data: ds}, true)
	})
}

// Deactivate tears the view down. Every later call fails with ErrInactive.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.deactivated = true
	c.seq++
	c.dialog = nil
	c.current, c.base = displayed{}, displayed{}
}

func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Snapshot returns a copy of everything the view displays.
func (c *Controller) Snapshot() View {
	sel, choices := c.filters.Selection(), c.filters.BatchChoices()

	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		ID:           c.id,
		State:        c.current.state,
		Dimension:    c.current.dim,
		Title:        c.current.title,
		Selection:    sel,
		BatchChoices: choices,
		Dataset:      c.current.data.Clone(),
		Layout:       schedule.BuildLayout(c.current.data, c.current.title),
	}
	if c.dialog != nil {
		v.Dialog = c.dialog.view()
	}
	return v
}

func (d *savedDialog) view() *DialogView {
	list := make([]timetable.Summary, len(d.list))
	for i, s := range d.list {
		s.Schedule = nil
		list[i] = s
	}
	return &DialogView{
		Timetables:    list,
		Selected:      d.selection.Selected(),
		ExportEnabled: d.selection.Enabled(),
	}
}

// OpenSavedDialog fetches the saved timetables and starts a fresh export selection.
// On failure the dialog opens empty and the error is returned.
func (c *Controller) OpenSavedDialog(ctx context.Context) (*DialogView, error) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil, ErrInactive
	}
	c.dialogSeq++
	seq := c.dialogSeq
	c.mu.Unlock()

	list, fetchErr := c.svc.ListSaved(ctx)
	if fetchErr != nil {
		list = nil
		fetchErr = errors.Wrap(fetchErr, "loading saved timetables")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil, ErrInactive
	}
	if seq != c.dialogSeq {
		return nil, ErrSuperseded
	}
	ids := make([]int, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	c.dialog = &savedDialog{list: list, selection: NewExportSelection(ids)}
	return c.dialog.view(), fetchErr
}

// CloseSavedDialog drops the listed timetables and the export selection.
func (c *Controller) CloseSavedDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialogSeq++
	if c.dialog != nil {
		c.dialog.selection.Clear()
	}
	c.dialog = nil
}

func (c *Controller) exportSelection() (*ExportSelection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil, ErrInactive
	}
	if c.dialog == nil {
		return nil, ErrDialogClosed
	}
	return c.dialog.selection, nil
}

// ToggleExport flips one timetable's export checkbox.
func (c *Controller) ToggleExport(id int) (bool, error) {
	sel, err := c.exportSelection()
	if err != nil {
		return false, err
	}
	checked, err := sel.ToggleOne(id)
	if errors.Is(err, ErrNotListed) {
		return false, core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
	}
	return checked, err
}

// SetExport sets one timetable's export checkbox.
func (c *Controller) SetExport(id int, checked bool) error {
	sel, err := c.exportSelection()
	if err != nil {
		return err
	}
	if err := sel.Set(id, checked); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
	}
	return nil
}

// ToggleAllExport is the select-all checkbox.
func (c *Controller) ToggleAllExport(checked bool) error {
	sel, err := c.exportSelection()
	if err != nil {
		return err
	}
	sel.ToggleAll(checked)
	return nil
}

// Export sends the checked timetables, in list order, for rendering and hands the result to the
// downloader. The dialog is closed on success.
func (c *Controller) Export(ctx context.Context) (string, error) {
	sel, err := c.exportSelection()
	if err != nil {
		return "", err
	}
	ids := sel.Selected()
	if len(ids) == 0 {
		return "", ErrNothingSelected
	}

	art, err := c.svc.Export(ctx, ids)
	if err != nil {
		return "", errors.Wrap(err, "exporting timetables")
	}
	if c.downloader == nil {
		return "", errors.New("no downloader configured")
	}
	loc, err := c.downloader.Download(ctx, art)
	if err != nil {
		return "", errors.Wrap(err, "downloading export")
	}

	c.CloseSavedDialog()
	c.log.Info(ExportedMessage(len(ids)), c.person())
	return loc, nil
}
