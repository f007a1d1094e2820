// Package api exposes the catalog and technical sheets over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/roach88/fichas/internal/sheet"
)

// Interpreter reports the calculation interpreter in use.
// *calc.Invoker satisfies it.
type Interpreter interface {
	Interpreter(ctx context.Context) (string, error)
}

// Options tune the HTTP server. Zero values are valid.
type Options struct {
	// AllowOrigins lists CORS origins. Empty allows any origin.
	AllowOrigins []string

	// ReadTimeout bounds reading one request. Zero means no limit.
	ReadTimeout time.Duration

	// Now replaces time.Now for health responses.
	Now func() time.Time

	// RequestID replaces the request id generator.
	RequestID func() string
}

// Server is the HTTP front end of a sheet.Service.
type Server struct {
	router *echo.Echo
	svc    *sheet.Service
	interp Interpreter
	logger *zap.Logger
	now    func() time.Time
}

// New wires routes and middleware.
func New(svc *sheet.Service, interp Interpreter, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RequestID == nil {
		opts.RequestID = uuid.NewString
	}
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"*"}
	}

	s := &Server{
		router: echo.New(),
		svc:    svc,
		interp: interp,
		logger: logger,
		now:    opts.Now,
	}

	r := s.router
	r.HideBanner = true
	r.HidePort = true
	r.Server.ReadTimeout = opts.ReadTimeout
	r.Validator = NewValidator()
	r.Binder = NewBinder()
	r.JSONSerializer = jsonSerializer{}
	r.HTTPErrorHandler = s.httpErrorHandler

	r.Use(middleware.Recover())
	r.Use(requestContext(logger, opts.RequestID))
	r.Use(requestLogger())
	r.Use(middleware.BodyLimit("1M"))
	r.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	r.GET("/healthz", s.health)

	api := r.Group("/api")

	categories := api.Group("/categorias")
	categories.GET("", s.listCategories)
	categories.GET("/:id/cultivos", s.listCategoryCrops)

	api.GET("/cultivos", s.listCrops)

	sheets := api.Group("/fichas")
	sheets.POST("/calcular", s.computeSheet)
	sheets.GET("", s.listSheets)
	sheets.GET("/:id", s.getSheet)
	sheets.DELETE("/:id", s.deleteSheet)

	return s
}

// ServeHTTP lets the server be mounted or driven by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown. A clean shutdown returns nil.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	if err := s.router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.router.Shutdown(ctx)
}
