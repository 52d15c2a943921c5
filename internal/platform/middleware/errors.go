package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tvusvet/backend/pkg/apperror"
)

// HTTPErrorHandler renders every error as {"detail": message}. Application
// errors take precedence over an *echo.HTTPError wrapping them, which is how
// a body-limit failure surfaces through Bind.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, detail := http.StatusInternalServerError, "internal server error"
		var ae *apperror.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status, detail = apperror.HTTPStatus(ae), apperror.Message(ae)
		case errors.As(err, &he):
			status = he.Code
			if m, ok := he.Message.(string); ok {
				detail = m
			} else {
				detail = fmt.Sprint(he.Message)
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", requestID(c)).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, map[string]string{"detail": detail})
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}
