package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/testutil"
)

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new temp-dir store with a deterministic clock.
func createTestStore(t *testing.T) (*Store, *testutil.DeterministicClock) {
	t.Helper()
	clock := testutil.NewDeterministicClock(testEpoch, time.Second)
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(clock))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// createSeededStore creates a test store with the catalog loaded.
func createSeededStore(t *testing.T) (*Store, *testutil.DeterministicClock) {
	t.Helper()
	s, clock := createTestStore(t)
	if report := s.Initialize(context.Background()); report.Failures != 0 {
		t.Fatalf("Initialize() reported %d failures", report.Failures)
	}
	return s, clock
}

// createTestSheet builds a NewSheet with minimal required fields.
func createTestSheet(category string, hectares float64) NewSheet {
	return NewSheet{
		CategoryCode: category,
		Hectares:     hectares,
		Payload:      ficha.Payload{"costo_total": ficha.Number(1000)},
	}
}

func ptr[T any](v T) *T {
	return &v
}
