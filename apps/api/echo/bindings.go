package echoapi

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/view"
)

type (
	createViewRequest struct {
		Token string `json:"token"`
	}

	filterRequest struct {
		Value string `json:"value"`
	}

	// exportSelectionRequest sets one checkbox (`id` + `checked`), toggles one (`id` only),
	// or drives the select-all checkbox (`all`).
	exportSelectionRequest struct {
		ID      *int  `json:"id" validate:"omitempty,gt=0"`
		Checked *bool `json:"checked"`
		All     *bool `json:"all"`
	}

	messageResponse struct {
		Message string `json:"message"`
		Warning string `json:"warning,omitempty"`
	}

	viewResponse struct {
		view.View
		Fitness      string `json:"fitness,omitempty"`
		EmptyMessage string `json:"empty_message,omitempty"`
		Message      string `json:"message,omitempty"`
		Warning      string `json:"warning,omitempty"`
	}

	dialogResponse struct {
		*view.DialogView
		Warning string `json:"warning,omitempty"`
	}
)

func newViewResponse(v view.View) viewResponse {
	return viewResponse{
		View:         v,
		Fitness:      v.Layout.FitnessLabel(),
		EmptyMessage: v.Layout.EmptyMessage(),
	}
}

// bindIntParam reads the path param `name` as a positive int.
func bindIntParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(
			errors.Errorf("invalid %s %q", name, ctx.Param(name)),
			core.FieldError{Field: name, Error: "must be a positive integer"},
		)
	}
	return id, nil
}

// layoutFilename turns a layout title into a file name with extension `ext`.
func layoutFilename(l schedule.Layout, ext string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return unicode.ToLower(r)
		}
		return '_'
	}, strings.TrimSpace(l.Title))
	name = strings.Trim(name, "_")
	if name == "" {
		name = "timetable"
	}
	return name + ext
}
