package view

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/handoff"
	"github.com/trezcool/ratiba/core/timetable"
)

// Generate asks the service for a new timetable and parks it in `store` for the view that will
// display it. The returned token is passed to Controller.Activate.
func Generate(ctx context.Context, svc timetable.Service, store handoff.Store) (string, error) {
	gen, err := svc.Generate(ctx)
	if err != nil {
		return "", errors.Wrap(err, "generating timetable")
	}
	token, err := store.Put(ctx, handoff.Handoff{Name: gen.Name, Dataset: gen.Dataset})
	if err != nil {
		return "", errors.Wrap(err, "storing generated timetable")
	}
	return token, nil
}
