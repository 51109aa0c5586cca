package echoapi

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/handoff"
	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/view"
	exportsvc "github.com/trezcool/ratiba/services/export"
)

var errNoSelection = core.NewValidationError(errors.New("one of `id` or `all` is required"))

type viewApi struct {
	svc        timetable.Service
	handoffs   handoff.Store
	meta       *metadata.Service
	sessions   *sessions
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
}

func registerViewAPI(g *echo.Group, api *viewApi) {
	g.POST("/generate", api.generate)
	g.POST("/views", api.create)

	vg := g.Group("/views/:id", viewMiddleware(api.sessions))
	vg.GET("", api.retrieve)
	vg.DELETE("", api.destroy)
	vg.PUT("/filters/:dimension", api.selectFilter)
	vg.POST("/save", api.save)
	vg.GET("/grid", api.gridHTML)
	vg.GET("/grid.txt", api.gridText)
	vg.GET("/grid.xlsx", api.gridXLSX)
	vg.POST("/saved", api.openSaved)
	vg.DELETE("/saved", api.closeSaved)
	vg.PUT("/saved/selection", api.selectExport)
	vg.POST("/saved/:tid/load", api.loadSaved)
	vg.POST("/export", api.export)
}

// Handlers

func (api *viewApi) generate(ctx echo.Context) error {
	token, err := view.Generate(ctx.Request().Context(), api.svc, api.handoffs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"token": token})
}

// create opens a view. The metadata is loaded on first use; a load failure does not prevent the
// view from opening and is reported as a warning, as is a failure to fetch the initial timetable.
func (api *viewApi) create(ctx echo.Context) error {
	var data createViewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to createViewRequest")
	}
	reqCtx := ctx.Request().Context()

	var warning string
	if cache := api.meta.Cache(); !cache.Loaded() {
		if err := cache.Load(reqCtx); err != nil {
			api.logger.Warn("loading metadata", err)
			warning = core.UserMessage(err)
		}
	}

	c := view.NewController(uuid.NewString(), view.Deps{
		Service:    api.svc,
		Handoffs:   api.handoffs,
		Metadata:   api.meta.Cache(),
		Downloader: contextDownloader{},
		Logger:     api.logger,
	})
	api.sessions.add(c)

	if err := c.Activate(reqCtx, data.Token); err != nil {
		if errors.Is(err, view.ErrInactive) {
			api.sessions.remove(c.ID())
			return err
		}
		api.logger.Warn("activating view", err, core.LogPerson{ID: c.ID()})
		warning = core.UserMessage(err)
	}

	resp := newViewResponse(c.Snapshot())
	resp.Warning = warning
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *viewApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, newViewResponse(getContextView(ctx).Snapshot()))
}

func (api *viewApi) destroy(ctx echo.Context) error {
	if c, ok := api.sessions.remove(ctx.Param("id")); ok {
		c.Deactivate()
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *viewApi) selectFilter(ctx echo.Context) error {
	dim, ok := view.ParseDimension(ctx.Param("dimension"))
	if !ok {
		return errHttpNotFound
	}
	var data filterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to filterRequest")
	}

	c := getContextView(ctx)
	if err := c.SelectFilter(ctx.Request().Context(), dim, data.Value); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newViewResponse(c.Snapshot()))
}

func (api *viewApi) save(ctx echo.Context) error {
	msg, err := getContextView(ctx).Save(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (api *viewApi) gridHTML(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := schedule.RenderHTML(&buf, getContextView(ctx).Snapshot().Layout); err != nil {
		return errors.Wrap(err, "rendering grid")
	}
	return ctx.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (api *viewApi) gridText(ctx echo.Context) error {
	var buf bytes.Buffer
	if err := schedule.RenderText(&buf, getContextView(ctx).Snapshot().Layout); err != nil {
		return errors.Wrap(err, "rendering grid")
	}
	return ctx.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, buf.Bytes())
}

func (api *viewApi) gridXLSX(ctx echo.Context) error {
	l := getContextView(ctx).Snapshot().Layout
	art, err := exportsvc.XLSXArtifact(l, layoutFilename(l, ".xlsx"))
	if err != nil {
		return err
	}
	return sendArtifact(ctx, art)
}

func (api *viewApi) openSaved(ctx echo.Context) error {
	dialog, err := getContextView(ctx).OpenSavedDialog(ctx.Request().Context())
	if dialog == nil {
		return err
	}
	resp := dialogResponse{DialogView: dialog}
	if err != nil {
		api.logger.Warn("listing saved timetables", err, person(ctx))
		resp.Warning = core.UserMessage(err)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *viewApi) closeSaved(ctx echo.Context) error {
	getContextView(ctx).CloseSavedDialog()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *viewApi) selectExport(ctx echo.Context) error {
	var data exportSelectionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to exportSelectionRequest")
	}
	if err := core.ValidateStruct(api.validate, api.translator, data, "invalid selection"); err != nil {
		return err
	}

	c := getContextView(ctx)
	var err error
	switch {
	case data.All != nil:
		err = c.ToggleAllExport(*data.All)
	case data.ID != nil && data.Checked != nil:
		err = c.SetExport(*data.ID, *data.Checked)
	case data.ID != nil:
		_, err = c.ToggleExport(*data.ID)
	default:
		err = errNoSelection
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c.Snapshot().Dialog)
}

func (api *viewApi) loadSaved(ctx echo.Context) error {
	id, err := bindIntParam(ctx, "tid")
	if err != nil {
		return err
	}

	c := getContextView(ctx)
	if err = c.LoadSaved(ctx.Request().Context(), id); err != nil {
		return err
	}
	resp := newViewResponse(c.Snapshot())
	resp.Message = view.LoadedMessage(resp.Title)
	return ctx.JSON(http.StatusOK, resp)
}

// export answers with the exported document itself.
func (api *viewApi) export(ctx echo.Context) error {
	c := getContextView(ctx)
	var n int
	if d := c.Snapshot().Dialog; d != nil {
		n = len(d.Selected)
	}

	var art timetable.Artifact
	reqCtx := context.WithValue(ctx.Request().Context(), artifactSinkKey{}, &art)
	if _, err := c.Export(reqCtx); err != nil {
		return err
	}
	ctx.Response().Header().Set(headerMessage, view.ExportedMessage(n))
	return sendArtifact(ctx, art)
}

const headerMessage = "X-Ratiba-Message"

type artifactSinkKey struct{}

// contextDownloader hands the artifact back to the request that triggered the export.
type contextDownloader struct{}

var _ view.Downloader = contextDownloader{}

func (contextDownloader) Download(ctx context.Context, a timetable.Artifact) (string, error) {
	sink, ok := ctx.Value(artifactSinkKey{}).(*timetable.Artifact)
	if !ok {
		return "", errors.New("no artifact sink in context")
	}
	*sink = a
	return a.Filename, nil
}

func sendArtifact(ctx echo.Context, a timetable.Artifact) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+strconv.Quote(a.Filename))
	return ctx.Blob(http.StatusOK, a.ContentType, a.Data)
}
