package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/roach88/fichas/internal/logging"
)

// requestContext assigns a request id and stores a logger carrying it in
// the request context, where the service layer picks it up.
func requestContext(logger *zap.Logger, gen func() string) echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: gen,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			ctx := logging.WithContext(req.Context(), logger.With(zap.String("request_id", id)))
			c.SetRequest(req.WithContext(ctx))
		},
	})
}

// requestLogger writes one entry per request through the request logger.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log := logging.FromContext(c.Request().Context(), nil)
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Status >= 500 {
				log.Warn("request", fields...)
			} else {
				log.Info("request", fields...)
			}
			return nil
		},
	})
}
