package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/view"
	exportsvc "github.com/trezcool/ratiba/services/export"
)

const (
	formatText = "text"
	formatHTML = "html"
	formatXLSX = "xlsx"
)

type showOptions struct {
	token   string
	saved   int
	filters map[view.Dimension]*string
	format  string
}

func bindShowFlags(fs *flag.FlagSet) *showOptions {
	opts := &showOptions{filters: make(map[view.Dimension]*string, len(view.Dimensions))}
	fs.StringVar(&opts.token, "token", "", "Display the generated timetable parked under this token.")
	fs.IntVar(&opts.saved, "saved", 0, "Display this saved timetable.")
	for _, dim := range view.Dimensions {
		opts.filters[dim] = fs.String(string(dim), "", "Narrow the view to this "+dim.Label()+" id (or \"all\").")
	}
	fs.StringVar(&opts.format, "format", formatText, "Output format: text, html or xlsx (written to the export dir).")
	return opts
}

// newView opens a view the way a page load does: metadata first, then the initial timetable.
// Failures to load either are reported but leave a usable (possibly empty) view.
func (cli *commandLine) newView(ctx context.Context, token string) (*view.Controller, error) {
	if err := cli.meta.Cache().Load(ctx); err != nil {
		cli.warn(err)
	}
	c := view.NewController(uuid.NewString(), view.Deps{
		Service:    cli.svc,
		Handoffs:   cli.handoffs,
		Metadata:   cli.meta.Cache(),
		Downloader: cli.downloader,
		Logger:     cli.logger,
	})
	if err := c.Activate(ctx, token); err != nil {
		if errors.Is(err, view.ErrInactive) {
			return nil, err
		}
		cli.warn(err)
	}
	return c, nil
}

func (cli *commandLine) warn(err error) {
	cli.logger.Debug(err.Error())
	fmt.Fprintf(cli.out, "warning: %s\n", core.UserMessage(err))
}

func (cli *commandLine) show(ctx context.Context, opts showOptions) error {
	switch opts.format {
	case formatText, formatHTML, formatXLSX:
	default:
		return core.NewValidationError(
			errors.Errorf("unknown format %q", opts.format),
			core.FieldError{Field: "format", Error: "must be one of text, html, xlsx"},
		)
	}

	c, err := cli.newView(ctx, opts.token)
	if err != nil {
		return err
	}
	defer c.Deactivate()

	if opts.saved > 0 {
		// the dialog's list names the timetable
		if _, err = c.OpenSavedDialog(ctx); err != nil {
			cli.warn(err)
		}
		if err = c.LoadSaved(ctx, opts.saved); err != nil {
			return err
		}
	}
	for _, dim := range view.Dimensions {
		if v := *opts.filters[dim]; v != "" {
			if err = c.SelectFilter(ctx, dim, v); err != nil {
				return err
			}
		}
	}

	snap := c.Snapshot()
	if snap.State == view.StateLoadedSaved {
		fmt.Fprintln(cli.out, view.LoadedMessage(snap.Title))
	}
	return cli.render(ctx, snap.Layout, opts.format)
}

func (cli *commandLine) render(ctx context.Context, l schedule.Layout, format string) error {
	switch format {
	case formatHTML:
		return schedule.RenderHTML(cli.out, l)
	case formatXLSX:
		art, err := exportsvc.XLSXArtifact(l, "timetable.xlsx")
		if err != nil {
			return err
		}
		loc, err := cli.downloader.Download(ctx, art)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Written to %s\n", loc)
		return nil
	default:
		return schedule.RenderText(cli.out, l)
	}
}

// generate asks for a new timetable. Without `display`, the handoff token is printed for a later
// `show -token`, which only works with a shared handoff store.
func (cli *commandLine) generate(ctx context.Context, display bool, opts showOptions) error {
	token, err := view.Generate(ctx, cli.svc, cli.handoffs)
	if err != nil {
		return err
	}
	if !display {
		if cli.conf.Handoff.Store == core.HandoffStoreMemory {
			fmt.Fprintln(cli.out, "note: the memory handoff store does not outlive this process; use -show")
		}
		fmt.Fprintln(cli.out, token)
		return nil
	}
	opts.token = token
	return cli.show(ctx, opts)
}
