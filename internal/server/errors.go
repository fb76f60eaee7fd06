package server

import (
	"errors"
	"net/http"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// errorHandler renders every failure as {status:"error", message, errors?}.
// Causes attached to server-side errors are logged, never returned.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := http.StatusInternalServerError, dto.ErrorResponse{Status: "error", Message: "Internal server error"}

		var httpErr *echo.HTTPError
		if appErr, ok := apperr.As(err); ok {
			code = appErr.Status()
			body.Message = appErr.Message
			body.Errors = appErr.Fields
			if code >= http.StatusInternalServerError {
				logger.Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, appErr)
			}
		} else if errors.As(err, &httpErr) {
			code = httpErr.Code
			if msg, ok := httpErr.Message.(string); ok {
				body.Message = msg
			} else {
				body.Message = http.StatusText(code)
			}
		} else {
			logger.Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Errorf("write error response: %v", err)
		}
	}
}
