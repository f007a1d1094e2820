package store

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fichas/internal/ficha"
)

func TestCreateSheet_RoundTrip(t *testing.T) {
	s, _ := createSeededStore(t)
	ctx := context.Background()

	in := NewSheet{
		CategoryCode: "PEREN_SEMI",
		CropID:       ptr(int64(7)),
		Province:     ptr("La Convención"),
		Hectares:     2.5,
		Payload: ficha.Payload{
			"costo_total": json.Number("1000"),
			"detalle":     map[string]any{"insumos": []any{json.Number("1.50"), "urea"}},
		},
	}

	id, err := s.CreateSheet(ctx, in)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := s.GetSheet(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, got.ID)
	assert.Equal(t, in.CategoryCode, got.CategoryCode)
	assert.Equal(t, in.CropID, got.CropID)
	assert.Equal(t, in.Province, got.Province)
	assert.Equal(t, in.Hectares, got.Hectares)
	assert.Equal(t, in.Payload, got.Payload)
	assert.Equal(t, testEpoch, got.CreatedAt)
}

func TestCreateSheet_NullableFields(t *testing.T) {
	s, _ := createSeededStore(t)

	id, err := s.CreateSheet(context.Background(), createTestSheet("HORT", 1))
	require.NoError(t, err)

	got, err := s.GetSheet(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, got.CropID)
	assert.Nil(t, got.Province)
}

func TestCreateSheet_StoresCanonicalPayload(t *testing.T) {
	s, _ := createSeededStore(t)

	id, err := s.CreateSheet(context.Background(), NewSheet{
		CategoryCode: "HORT",
		Hectares:     1,
		Payload:      ficha.Payload{"z": 1, "a": "<b>"},
	})
	require.NoError(t, err)

	var raw string
	require.NoError(t, s.db.QueryRow(`SELECT datos_json FROM fichas_tecnicas WHERE id_ficha = ?`, id).Scan(&raw))
	assert.Equal(t, `{"a":"<b>","z":1}`, raw)
}

func TestCreateSheet_RejectsInvalidHectares(t *testing.T) {
	s, _ := createSeededStore(t)

	for _, h := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := s.CreateSheet(context.Background(), createTestSheet("HORT", h))
		require.Error(t, err)
		assert.True(t, ficha.IsValidation(err), "hectares %v", h)
	}

	n, err := s.CountSheets(context.Background(), SheetFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateSheet_RequiresCategory(t *testing.T) {
	s, _ := createSeededStore(t)

	_, err := s.CreateSheet(context.Background(), createTestSheet("", 1))
	assert.True(t, ficha.IsValidation(err))
}

func TestCreateSheet_UnencodablePayload(t *testing.T) {
	s, _ := createSeededStore(t)

	_, err := s.CreateSheet(context.Background(), NewSheet{
		CategoryCode: "HORT",
		Hectares:     1,
		Payload:      ficha.Payload{"costo": math.NaN()},
	})
	require.Error(t, err)
	assert.True(t, ficha.IsSerialization(err))
}

func TestCreateSheet_UnknownReferencesAreStorageErrors(t *testing.T) {
	s, _ := createSeededStore(t)

	_, err := s.CreateSheet(context.Background(), createTestSheet("NOPE", 1))
	require.Error(t, err)
	assert.True(t, ficha.IsStorage(err))

	in := createTestSheet("HORT", 1)
	in.CropID = ptr(int64(9999))
	_, err = s.CreateSheet(context.Background(), in)
	require.Error(t, err)
	assert.True(t, ficha.IsStorage(err))
}

func TestCreateSheet_IDsAreUnique(t *testing.T) {
	s, _ := createSeededStore(t)

	seen := map[int64]bool{}
	for i := 0; i < 10; i++ {
		id, err := s.CreateSheet(context.Background(), createTestSheet("HORT", 1))
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestCreateSheet_TimestampNeverGoesBackwards(t *testing.T) {
	s, clock := createSeededStore(t)
	ctx := context.Background()

	first, err := s.CreateSheet(ctx, createTestSheet("HORT", 1))
	require.NoError(t, err)

	clock.Set(testEpoch.Add(-24 * time.Hour))
	second, err := s.CreateSheet(ctx, createTestSheet("HORT", 1))
	require.NoError(t, err)

	a, err := s.GetSheet(ctx, first)
	require.NoError(t, err)
	b, err := s.GetSheet(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, a.CreatedAt, b.CreatedAt)

	sheets, err := s.ListSheets(ctx, SheetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{second, first}, sheetIDs(sheets))
}

func TestGetSheet_NotFound(t *testing.T) {
	s, _ := createSeededStore(t)

	_, err := s.GetSheet(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, ficha.IsNotFound(err))
	assert.EqualError(t, err, "ficha 42 not found")
}

func TestListSheets_EmptyStore(t *testing.T) {
	s, _ := createSeededStore(t)

	sheets, err := s.ListSheets(context.Background(), SheetFilter{})
	require.NoError(t, err)
	assert.NotNil(t, sheets)
	assert.Empty(t, sheets)
}

func TestListSheets_NewestFirst(t *testing.T) {
	s, _ := createSeededStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.CreateSheet(ctx, createTestSheet("HORT", float64(i+1)))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	sheets, err := s.ListSheets(ctx, SheetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, sheetIDs(sheets))
	assert.True(t, sheets[0].CreatedAt.After(sheets[1].CreatedAt))
}

func TestListSheets_SameTimestampTiebreakOnID(t *testing.T) {
	s, clock := createSeededStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		clock.Set(testEpoch)
		id, err := s.CreateSheet(ctx, createTestSheet("HORT", 1))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	sheets, err := s.ListSheets(ctx, SheetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, sheetIDs(sheets))
}

func TestListSheets_Filters(t *testing.T) {
	s, _ := createSeededStore(t)
	ctx := context.Background()

	mk := func(category, province string) int64 {
		in := createTestSheet(category, 1)
		in.Province = ptr(province)
		id, err := s.CreateSheet(ctx, in)
		require.NoError(t, err)
		return id
	}
	x1 := mk("PECUARIOS", "Cusco")
	y := mk("HORT", "Cusco")
	x2 := mk("PECUARIOS", "Puno")

	tests := []struct {
		name   string
		filter SheetFilter
		want   []int64
	}{
		{"none", SheetFilter{}, []int64{x2, y, x1}},
		{"category", SheetFilter{CategoryCode: "PECUARIOS"}, []int64{x2, x1}},
		{"province", SheetFilter{Province: ptr("Cusco")}, []int64{y, x1}},
		{"both", SheetFilter{CategoryCode: "PECUARIOS", Province: ptr("Cusco")}, []int64{x1}},
		{"no match", SheetFilter{CategoryCode: "TEMP_CAMP"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheets, err := s.ListSheets(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sheetIDs(sheets))

			n, err := s.CountSheets(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), n)
		})
	}
}

func TestListSheets_CorruptPayloadFailsWholeCall(t *testing.T) {
	s, _ := createSeededStore(t)
	ctx := context.Background()

	_, err := s.CreateSheet(ctx, createTestSheet("HORT", 1))
	require.NoError(t, err)
	bad, err := s.CreateSheet(ctx, createTestSheet("HORT", 1))
	require.NoError(t, err)

	_, err = s.db.Exec(`UPDATE fichas_tecnicas SET datos_json = '{not json' WHERE id_ficha = ?`, bad)
	require.NoError(t, err)

	_, err = s.ListSheets(ctx, SheetFilter{})
	require.Error(t, err)
	assert.True(t, ficha.IsSerialization(err))
	assert.Contains(t, err.Error(), "ficha 2")

	_, err = s.GetSheet(ctx, bad)
	assert.True(t, ficha.IsSerialization(err))
}

func TestDeleteSheet_Idempotent(t *testing.T) {
	s, _ := createSeededStore(t)
	ctx := context.Background()

	id, err := s.CreateSheet(ctx, createTestSheet("HORT", 1))
	require.NoError(t, err)

	require.NoError(t, s.DeleteSheet(ctx, id))
	require.NoError(t, s.DeleteSheet(ctx, id))
	require.NoError(t, s.DeleteSheet(ctx, 9999))

	_, err = s.GetSheet(ctx, id)
	assert.True(t, ficha.IsNotFound(err))
}

func TestSheetStore_CanceledContext(t *testing.T) {
	s, _ := createSeededStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListSheets(ctx, SheetFilter{})
	require.Error(t, err)
	assert.True(t, ficha.IsStorage(err))
}

func sheetIDs(sheets []ficha.Sheet) []int64 {
	ids := []int64{}
	for _, s := range sheets {
		ids = append(ids, s.ID)
	}
	return ids
}
