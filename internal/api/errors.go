package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/logging"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	Field string `json:"field,omitempty"`
	Type  string `json:"type,omitempty"`
	Trace string `json:"trace,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

// statusOf maps an error to its HTTP status and response body.
func statusOf(err error) (int, ErrorResponse) {
	var (
		validation  *ficha.ValidationError
		notFound    *ficha.NotFoundError
		fault       *ficha.CalculationFault
		unavailable *ficha.EngineUnavailableError
		he          *echo.HTTPError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, ErrorResponse{Error: validation.Error(), Field: validation.Field}
	case errors.As(err, &notFound):
		return http.StatusNotFound, ErrorResponse{Error: notFound.Error()}
	case errors.As(err, &fault):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: fault.Message,
			Type:  fault.Type,
			Trace: fault.Trace,
			RunID: fault.RunID,
		}
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Error: unavailable.Error()}
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, ErrorResponse{Error: msg}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}
	}
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, body := statusOf(err)
	body.Code = code

	log := logging.FromContext(c.Request().Context(), s.logger)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", code), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Int("status", code), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}
