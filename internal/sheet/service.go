// Package sheet orchestrates technical sheet computation: it validates a
// request, runs the calculation engine and persists the result.
package sheet

import (
	"context"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roach88/fichas/internal/calc"
	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/logging"
	"github.com/roach88/fichas/internal/store"
)

// Catalog is the read side of the crop catalog.
type Catalog interface {
	ListCategories(ctx context.Context) ([]ficha.Category, error)
	ListCropsByCategory(ctx context.Context, code string) ([]ficha.Crop, error)
	ListAllCrops(ctx context.Context) ([]ficha.Crop, error)
	GetCategory(ctx context.Context, code string) (ficha.Category, error)
	GetCrop(ctx context.Context, id int64) (ficha.Crop, error)
}

// Sheets persists technical sheets.
type Sheets interface {
	CreateSheet(ctx context.Context, in store.NewSheet) (int64, error)
	ListSheets(ctx context.Context, filter store.SheetFilter) ([]ficha.Sheet, error)
	GetSheet(ctx context.Context, id int64) (ficha.Sheet, error)
	DeleteSheet(ctx context.Context, id int64) error
}

// Repository is everything the service needs from storage.
// *store.Store satisfies it.
type Repository interface {
	Catalog
	Sheets
}

// Calculator runs a calculation engine.
// *calc.Invoker satisfies it.
type Calculator interface {
	Invoke(ctx context.Context, engine string, hectares float64) (ficha.Payload, error)
}

// Defaults fill in request fields the caller left empty. A zero value
// disables the fallback and makes the field required.
type Defaults struct {
	Category string
	CropID   int64
	Province string
	Engine   string
}

// StandardDefaults returns the fallbacks existing clients rely on.
func StandardDefaults() Defaults {
	return Defaults{
		Category: "PEREN_SEMI",
		CropID:   1,
		Province: ficha.DefaultProvince,
		Engine:   calc.DefaultEngine,
	}
}

// ComputeRequest asks for a sheet to be computed and stored.
type ComputeRequest struct {
	Hectares     float64
	CategoryCode string
	CropID       *int64
	Province     *string
	EngineKey    string
}

// Service computes and stores technical sheets.
type Service struct {
	repo     Repository
	calc     Calculator
	defaults Defaults
	logger   *zap.Logger
}

// NewService creates a Service.
func NewService(repo Repository, calculator Calculator, defaults Defaults, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, calc: calculator, defaults: defaults, logger: logger}
}

// ComputeAndStore validates req, runs the engine and persists the payload.
//
// Validation failures happen before any subprocess or write. Engine faults
// are returned unchanged and nothing is stored. If the engine succeeds but
// the write fails, the storage error is returned and the calculation is not
// repeated.
func (s *Service) ComputeAndStore(ctx context.Context, req ComputeRequest) (Result, error) {
	log := logging.FromContext(ctx, s.logger)

	if err := ValidateHectares(req.Hectares); err != nil {
		return Result{}, err
	}

	resolved, err := s.resolve(ctx, log, req)
	if err != nil {
		return Result{}, err
	}

	payload, err := s.calc.Invoke(ctx, resolved.EngineKey, resolved.Hectares)
	if err != nil {
		return Result{}, err
	}

	id, err := s.repo.CreateSheet(ctx, store.NewSheet{
		CategoryCode: resolved.CategoryCode,
		CropID:       resolved.CropID,
		Province:     resolved.Province,
		Hectares:     resolved.Hectares,
		Payload:      payload,
	})
	if err != nil {
		log.Error("calculated sheet could not be stored",
			zap.String("categoria_id", resolved.CategoryCode),
			zap.Float64("hectareas", resolved.Hectares),
			zap.Error(err))
		return Result{}, err
	}

	log.Info("sheet stored",
		zap.Int64("id_ficha", id),
		zap.String("motor", resolved.EngineKey),
		zap.String("categoria_id", resolved.CategoryCode))

	return Result{SheetID: id, Payload: payload}, nil
}

// resolve applies defaults and checks that catalog references exist.
func (s *Service) resolve(ctx context.Context, log *zap.Logger, req ComputeRequest) (ComputeRequest, error) {
	out := req

	out.CategoryCode = strings.TrimSpace(req.CategoryCode)
	if out.CategoryCode == "" {
		if s.defaults.Category == "" {
			return ComputeRequest{}, ficha.NewValidationError("categoria_id", "is required")
		}
		out.CategoryCode = s.defaults.Category
		log.Warn("categoria_id missing, using default", zap.String("default", out.CategoryCode))
	}

	if req.CropID == nil {
		if s.defaults.CropID == 0 {
			return ComputeRequest{}, ficha.NewValidationError("cultivo_id", "is required")
		}
		crop := s.defaults.CropID
		out.CropID = &crop
		log.Warn("cultivo_id missing, using default", zap.Int64("default", crop))
	}

	if req.Province == nil || strings.TrimSpace(*req.Province) == "" {
		if s.defaults.Province == "" {
			return ComputeRequest{}, ficha.NewValidationError("provincia", "is required")
		}
		province := s.defaults.Province
		out.Province = &province
		log.Debug("provincia missing, using default", zap.String("default", province))
	} else {
		province := strings.TrimSpace(*req.Province)
		out.Province = &province
	}

	out.EngineKey = strings.TrimSpace(req.EngineKey)
	if out.EngineKey == "" {
		if s.defaults.Engine == "" {
			return ComputeRequest{}, ficha.NewValidationError("motor", "is required")
		}
		out.EngineKey = s.defaults.Engine
		log.Debug("motor missing, using default", zap.String("default", out.EngineKey))
	}

	if _, err := s.repo.GetCategory(ctx, out.CategoryCode); err != nil {
		if ficha.IsNotFound(err) {
			return ComputeRequest{}, ficha.NewValidationError("categoria_id", "unknown category %q", out.CategoryCode)
		}
		return ComputeRequest{}, err
	}
	if _, err := s.repo.GetCrop(ctx, *out.CropID); err != nil {
		if ficha.IsNotFound(err) {
			return ComputeRequest{}, ficha.NewValidationError("cultivo_id", "unknown crop %d", *out.CropID)
		}
		return ComputeRequest{}, err
	}

	return out, nil
}

// ValidateHectares checks that h is a finite number greater than zero.
func ValidateHectares(h float64) error {
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return ficha.NewValidationError("hectareas", "must be a finite number > 0, got %v", h)
	}
	return nil
}

// ParseHectares converts caller text into hectares.
// Non-numeric text, zero and negative values are validation errors.
func ParseHectares(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, ficha.NewValidationError("hectareas", "is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ficha.NewValidationError("hectareas", "%q is not a number", s)
	}
	h, _ := d.Float64()
	if err := ValidateHectares(h); err != nil {
		return 0, err
	}
	return h, nil
}

// ListCategories returns every category.
func (s *Service) ListCategories(ctx context.Context) ([]ficha.Category, error) {
	return s.repo.ListCategories(ctx)
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, code string) (ficha.Category, error) {
	return s.repo.GetCategory(ctx, code)
}

// ListCrops returns the crops of one category, or every crop when code is
// empty.
func (s *Service) ListCrops(ctx context.Context, code string) ([]ficha.Crop, error) {
	if code == "" {
		return s.repo.ListAllCrops(ctx)
	}
	return s.repo.ListCropsByCategory(ctx, code)
}

// ListSheets returns stored sheets, newest first.
func (s *Service) ListSheets(ctx context.Context, filter store.SheetFilter) ([]ficha.Sheet, error) {
	return s.repo.ListSheets(ctx, filter)
}

// GetSheet returns one stored sheet.
func (s *Service) GetSheet(ctx context.Context, id int64) (ficha.Sheet, error) {
	return s.repo.GetSheet(ctx, id)
}

// DeleteSheet removes a stored sheet. Missing ids are not an error.
func (s *Service) DeleteSheet(ctx context.Context, id int64) error {
	return s.repo.DeleteSheet(ctx, id)
}
