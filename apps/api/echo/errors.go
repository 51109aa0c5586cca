package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/handoff"
	"github.com/trezcool/ratiba/core/metadata"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/view"
)

var (
	errViewNotFound = echo.NewHTTPError(http.StatusNotFound, "view not found")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
	errViewClosed   = echo.NewHTTPError(http.StatusGone, "view closed")
	errSuperseded   = echo.NewHTTPError(http.StatusConflict, view.ErrSuperseded.Error())
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch {
		case errors.Is(err, view.ErrInactive):
			err = errViewClosed
		case errors.Is(err, view.ErrSuperseded):
			err = errSuperseded
		}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.RemoteError:
			// client errors of the timetable service are passed through, anything else is a bad gateway
			code = origErr.Status
			if code < http.StatusBadRequest || code >= http.StatusInternalServerError {
				code = http.StatusBadGateway
			}
			message = core.UserMessage(origErr)
			logger.Warn("timetable service error", errors.Wrap(err, "remote"), person(ctx))
		case *metadata.LoadError:
			code = http.StatusBadGateway
			message = origErr.UserMessage()
			logger.Error(origErr.Error(), err, person(ctx))
		default:
			if errors.Is(err, timetable.ErrNotFound) || errors.Is(err, handoff.ErrNotFound) {
				code = http.StatusNotFound
				message = err.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), person(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// person identifies the view a request targets, if any.
func person(ctx echo.Context) core.LogPerson {
	return core.LogPerson{ID: ctx.Param("id")}
}
