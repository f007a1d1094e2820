package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/fichas/internal/ficha"
)

func TestInitialize_FreshDatabase(t *testing.T) {
	s, _ := createTestStore(t)

	report := s.Initialize(context.Background())

	assert.Equal(t, SeedReport{
		CategoriesInserted: len(seedCategories),
		CropsInserted:      len(seedCrops),
	}, report)
	assert.Len(t, seedCategories, 4)
	assert.Len(t, seedCrops, 55)
}

func TestInitialize_Idempotent(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	s.Initialize(ctx)
	second := s.Initialize(ctx)
	third := s.Initialize(ctx)

	assert.Equal(t, SeedReport{}, second)
	assert.Equal(t, SeedReport{}, third)

	var categories, crops, distinct int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM categorias`).Scan(&categories))
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM cultivos`).Scan(&crops))
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM (SELECT DISTINCT categoria_id, nombre FROM cultivos)`).Scan(&distinct))

	assert.Equal(t, 4, categories)
	assert.Equal(t, len(seedCrops), crops)
	assert.Equal(t, crops, distinct)
}

func TestInitialize_Concurrent(t *testing.T) {
	s, _ := createTestStore(t)

	var wg sync.WaitGroup
	reports := make([]SeedReport, 4)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i] = s.Initialize(context.Background())
		}(i)
	}
	wg.Wait()

	var crops int
	for _, r := range reports {
		assert.Zero(t, r.Failures)
		crops += r.CropsInserted
	}
	assert.Equal(t, len(seedCrops), crops)
}

func TestInitialize_PreservesExistingRows(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO categorias (id, nombre, descripcion) VALUES ('HORT', 'Hortalizas', 'renombrada')`)
	require.NoError(t, err)

	report := s.Initialize(context.Background())
	assert.Equal(t, len(seedCategories)-1, report.CategoriesInserted)

	c, err := s.GetCategory(context.Background(), "HORT")
	require.NoError(t, err)
	assert.Equal(t, "Hortalizas", c.Name)
}

func TestInitialize_RowFailuresAreLoggedAndSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s, _ := createTestStore(t)
	s.logger = zap.New(core)

	// Crops of a category that cannot be inserted fail the foreign key.
	_, err := s.db.Exec(`
		CREATE TRIGGER block_pecuarios BEFORE INSERT ON categorias
		WHEN NEW.id = 'PECUARIOS'
		BEGIN SELECT RAISE(ABORT, 'blocked'); END
	`)
	require.NoError(t, err)

	report := s.Initialize(context.Background())

	var pecuarios int
	for _, c := range seedCrops {
		if c.CategoryCode == "PECUARIOS" {
			pecuarios++
		}
	}
	assert.Equal(t, 1+pecuarios, report.Failures)
	assert.Equal(t, len(seedCategories)-1, report.CategoriesInserted)
	assert.Equal(t, len(seedCrops)-pecuarios, report.CropsInserted)
	assert.Equal(t, 1+pecuarios, logs.FilterMessageSnippet("seed").Len())
}

func TestInitialize_SeededCatalogGolden(t *testing.T) {
	s, _ := createSeededStore(t)
	ctx := context.Background()

	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	crops, err := s.ListAllCrops(ctx)
	require.NoError(t, err)

	data, err := json.MarshalIndent(struct {
		Categories []ficha.Category `json:"categorias"`
		Crops      []ficha.Crop     `json:"cultivos"`
	}{categories, crops}, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "seeded_catalog", data)
}
