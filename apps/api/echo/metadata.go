package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/metadata"
)

type metadataApi struct {
	meta   *metadata.Service
	logger core.Logger
}

func registerMetadataAPI(g *echo.Group, api *metadataApi) {
	g.GET("/metadata/:collection", api.query)
	g.POST("/metadata/reload", api.reload)
	g.POST("/students", api.createStudent)
	g.POST("/faculty", api.createFaculty)
}

// Handlers

func (api *metadataApi) query(ctx echo.Context) error {
	coll, ok := metadata.ParseCollection(ctx.Param("collection"))
	if !ok {
		return errHttpNotFound
	}
	cache := api.meta.Cache()
	if !cache.Loaded() {
		if err := cache.Load(ctx.Request().Context()); err != nil {
			return err
		}
	}
	return ctx.JSON(http.StatusOK, cache.All(coll))
}

func (api *metadataApi) reload(ctx echo.Context) error {
	if err := api.meta.Cache().Load(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *metadataApi) createStudent(ctx echo.Context) error {
	var data metadata.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	msg, err := api.meta.CreateStudent(ctx.Request().Context(), data)
	return api.created(ctx, msg, err)
}

func (api *metadataApi) createFaculty(ctx echo.Context) error {
	var data metadata.NewFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFaculty")
	}
	msg, err := api.meta.CreateFaculty(ctx.Request().Context(), data)
	return api.created(ctx, msg, err)
}

// created reports a create; once the record exists upstream, a failed reload is only a warning.
func (api *metadataApi) created(ctx echo.Context, msg string, err error) error {
	if err != nil && msg == "" {
		return err
	}
	resp := messageResponse{Message: msg}
	if err != nil {
		api.logger.Warn("reloading metadata after create", err)
		resp.Warning = core.UserMessage(err)
	}
	return ctx.JSON(http.StatusCreated, resp)
}
