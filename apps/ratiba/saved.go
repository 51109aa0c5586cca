package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/view"
)

func (cli *commandLine) listSaved(ctx context.Context) error {
	list, err := cli.svc.ListSaved(ctx)
	if err != nil {
		return errors.Wrap(err, "loading saved timetables")
	}
	if len(list) == 0 {
		fmt.Fprintln(cli.out, "No saved timetables.")
		return nil
	}
	width := terminalWidthFunc()
	for _, s := range list {
		fmt.Fprintln(cli.out, truncate(fmt.Sprintf("%6d  %s", s.ID, s.Label()), width))
	}
	return nil
}

// export checks `ids` (or every listed timetable) in the saved dialog and exports them.
func (cli *commandLine) export(ctx context.Context, ids []int, all bool) error {
	c, err := cli.newView(ctx, "")
	if err != nil {
		return err
	}
	defer c.Deactivate()

	if _, err = c.OpenSavedDialog(ctx); err != nil {
		return err
	}
	if all {
		if err = c.ToggleAllExport(true); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err = c.SetExport(id, true); err != nil {
			return err
		}
	}

	n := len(c.Snapshot().Dialog.Selected)
	loc, err := c.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, view.ExportedMessage(n))
	fmt.Fprintf(cli.out, "Written to %s\n", loc)
	return nil
}
