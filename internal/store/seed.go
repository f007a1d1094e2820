package store

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/fichas/internal/ficha"
)

// seedCategories is the fixed category set. Codes are referenced by
// existing sheets and must never change.
var seedCategories = []ficha.Category{
	{Code: "TEMP_CAMP", Name: "TEMPORALES O DE CAMPAÑA", Description: "Cultivos de ciclo corto"},
	{Code: "HORT", Name: "CAMPAÑA EN HORTALIZAS", Description: "Cultivos hortícolas"},
	{Code: "PEREN_SEMI", Name: "DE PERENNES Y SEMIPERENNES", Description: "Cultivos de ciclo largo"},
	{Code: "PECUARIOS", Name: "PRODUCTOS PECUARIOS", Description: "Ganadería y producción animal"},
}

// seedCrops is the fixed crop set, in insertion order. On a fresh database
// crop ids follow this order starting at 1.
var seedCrops = []ficha.Crop{
	// TEMPORALES O DE CAMPAÑA
	{CategoryCode: "TEMP_CAMP", Name: "maíz blanco - grano (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "maíz blanco - grano (orgánico)"},
	{CategoryCode: "TEMP_CAMP", Name: "maíz blanco - choclo (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "maíz blanco gigante - grano (mecanizado)"},
	{CategoryCode: "TEMP_CAMP", Name: "maíz blanco gigante - grano (semi mecanizado)"},
	{CategoryCode: "TEMP_CAMP", Name: "maíz amarillo - grano (orgánico)"},
	{CategoryCode: "TEMP_CAMP", Name: "papa nativa o de color (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "papa nativa o de color (orgánico)"},
	{CategoryCode: "TEMP_CAMP", Name: "papa comercial (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "papa comercial (orgánico)"},
	{CategoryCode: "TEMP_CAMP", Name: "olluco (orgánico)"},
	{CategoryCode: "TEMP_CAMP", Name: "oca (orgánico)"},
	{CategoryCode: "TEMP_CAMP", Name: "haba grano seco (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "haba grano verde (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "arveja grano seco (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "arveja grano verde (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "tarwi (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "tarwi (orgánico)"},
	{CategoryCode: "TEMP_CAMP", Name: "avena grano (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "avena forraje (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "cebada grano (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "cebada forraje (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "quinua (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "quinua (orgánico)"},
	{CategoryCode: "TEMP_CAMP", Name: "trigo (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "trigo (orgánico)"},
	{CategoryCode: "TEMP_CAMP", Name: "frijol (convencional)"},
	{CategoryCode: "TEMP_CAMP", Name: "papa mahuay (convencional)"},

	// CAMPAÑA EN HORTALIZAS
	{CategoryCode: "HORT", Name: "zapallo (convencional)"},
	{CategoryCode: "HORT", Name: "zapallito italiano (convencional)"},
	{CategoryCode: "HORT", Name: "tomate (convencional)"},
	{CategoryCode: "HORT", Name: "tomate (orgánico)"},
	{CategoryCode: "HORT", Name: "cebolla roja (convencional)"},
	{CategoryCode: "HORT", Name: "zanahoria (convencional)"},
	{CategoryCode: "HORT", Name: "lechuga (convencional)"},
	{CategoryCode: "HORT", Name: "acelga (convencional)"},
	{CategoryCode: "HORT", Name: "coliflor (convencional)"},
	{CategoryCode: "HORT", Name: "brócoli (convencional)"},
	{CategoryCode: "HORT", Name: "repollo (convencional)"},

	// PERENNES Y SEMIPERENNES
	{CategoryCode: "PEREN_SEMI", Name: "fresa (convencional)"},
	{CategoryCode: "PEREN_SEMI", Name: "rosas (convencional)"},
	{CategoryCode: "PEREN_SEMI", Name: "astromelias (convencional)"},
	{CategoryCode: "PEREN_SEMI", Name: "palto (convencional)"},
	{CategoryCode: "PEREN_SEMI", Name: "palto (orgánico)"},
	{CategoryCode: "PEREN_SEMI", Name: "café (convencional)"},
	{CategoryCode: "PEREN_SEMI", Name: "café (orgánico)"},
	{CategoryCode: "PEREN_SEMI", Name: "cacao (convencional)"},
	{CategoryCode: "PEREN_SEMI", Name: "cacao (orgánico)"},
	{CategoryCode: "PEREN_SEMI", Name: "naranjo (orgánico)"},

	// PRODUCTOS PECUARIOS
	{CategoryCode: "PECUARIOS", Name: "ganado tradicional (semi intensivo)"},
	{CategoryCode: "PECUARIOS", Name: "ganado levante (semi técnico)"},
	{CategoryCode: "PECUARIOS", Name: "ganado acabado (técnico)"},
	{CategoryCode: "PECUARIOS", Name: "cuyes (semi técnico)"},
	{CategoryCode: "PECUARIOS", Name: "cuyes (técnico)"},
	{CategoryCode: "PECUARIOS", Name: "truchas (semi técnico)"},
}

// SeedReport summarizes one Initialize run.
type SeedReport struct {
	CategoriesInserted int `json:"categories_inserted" yaml:"categories_inserted"`
	CropsInserted      int `json:"crops_inserted" yaml:"crops_inserted"`
	Failures           int `json:"failures" yaml:"failures"`
}

// Initialize inserts the fixed catalog. Rows that already exist are left
// untouched, so repeated calls are no-ops.
//
// Each row is inserted on its own. A failing row is logged and counted in
// the report; it does not stop the remaining rows and is not returned as an
// error.
func (s *Store) Initialize(ctx context.Context) SeedReport {
	var report SeedReport

	for _, c := range seedCategories {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO categorias (id, nombre, descripcion)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, c.Code, norm.NFC.String(c.Name), norm.NFC.String(c.Description))
		if err != nil {
			report.Failures++
			s.logger.Warn("seed category failed", zap.String("categoria_id", c.Code), zap.Error(err))
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			report.CategoriesInserted++
		}
	}

	for _, c := range seedCrops {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO cultivos (categoria_id, nombre)
			VALUES (?, ?)
			ON CONFLICT(categoria_id, nombre) DO NOTHING
		`, c.CategoryCode, norm.NFC.String(c.Name))
		if err != nil {
			report.Failures++
			s.logger.Warn("seed crop failed",
				zap.String("categoria_id", c.CategoryCode),
				zap.String("nombre", c.Name),
				zap.Error(err))
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			report.CropsInserted++
		}
	}

	s.logger.Debug("catalog seeded",
		zap.Int("categories_inserted", report.CategoriesInserted),
		zap.Int("crops_inserted", report.CropsInserted),
		zap.Int("failures", report.Failures))

	return report
}
