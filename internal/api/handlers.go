package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/sheet"
	"github.com/roach88/fichas/internal/store"
)

// computeRequest is the body of POST /api/fichas/calcular. Hectares may be
// sent as a number or a numeric string.
type computeRequest struct {
	Hectares     *decimal.Decimal `json:"hectareas" validate:"required"`
	CategoryCode string           `json:"categoria_id" validate:"max=32"`
	CropID       *int64           `json:"cultivo_id" validate:"omitempty,gt=0"`
	Province     *string          `json:"provincia" validate:"omitempty,max=100"`
	EngineKey    string           `json:"motor" validate:"max=64"`
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Interpreter string    `json:"interpreter"`
	Error       string    `json:"error,omitempty"`
}

func (s *Server) health(c echo.Context) error {
	resp := healthResponse{Status: "ok", Timestamp: s.now().UTC()}
	code := http.StatusOK

	path, err := s.interp.Interpreter(c.Request().Context())
	if err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
	}
	resp.Interpreter = path

	return c.JSON(code, resp)
}

func (s *Server) listCategories(c echo.Context) error {
	categories, err := s.svc.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

func (s *Server) listCrops(c echo.Context) error {
	code := strings.TrimSpace(c.QueryParam("categoria_id"))
	crops, err := s.svc.ListCrops(c.Request().Context(), code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, crops)
}

func (s *Server) listCategoryCrops(c echo.Context) error {
	ctx := c.Request().Context()
	category, err := s.svc.GetCategory(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	crops, err := s.svc.ListCrops(ctx, category.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, crops)
}

func (s *Server) computeSheet(c echo.Context) error {
	var req computeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	hectares, _ := req.Hectares.Float64()
	res, err := s.svc.ComputeAndStore(c.Request().Context(), sheet.ComputeRequest{
		Hectares:     hectares,
		CategoryCode: req.CategoryCode,
		CropID:       req.CropID,
		Province:     req.Province,
		EngineKey:    req.EngineKey,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) listSheets(c echo.Context) error {
	var filter store.SheetFilter
	filter.CategoryCode = strings.TrimSpace(c.QueryParam("categoria_id"))
	if province := strings.TrimSpace(c.QueryParam("provincia")); province != "" {
		filter.Province = &province
	}

	sheets, err := s.svc.ListSheets(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sheets)
}

func (s *Server) getSheet(c echo.Context) error {
	id, err := sheetID(c)
	if err != nil {
		return err
	}
	sh, err := s.svc.GetSheet(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sh)
}

func (s *Server) deleteSheet(c echo.Context) error {
	id, err := sheetID(c)
	if err != nil {
		return err
	}
	if err := s.svc.DeleteSheet(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func sheetID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ficha.NewValidationError("id_ficha", "%q is not a sheet id", raw)
	}
	return id, nil
}
