package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/eddiefleurent/options_calculator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInterface runs the common contract against both implementations
func TestInterface(t *testing.T) {
	t.Run("MockStorage", func(t *testing.T) {
		testInterface(t, NewMockStorage())
	})

	t.Run("JSONStorage", func(t *testing.T) {
		s, err := NewJSONStorage(filepath.Join(t.TempDir(), "history.json"), 10)
		require.NoError(t, err)
		testInterface(t, s)
	})
}

func sampleRecord(kind models.AnalysisKind, price float64) models.AnalysisRecord {
	return models.AnalysisRecord{
		Kind:         kind,
		Mode:         "stocks",
		CurrentPrice: price,
		TargetPrice:  price * 1.05,
		RiskFreeRate: 0.05,
		Multiplier:   100,
		Positions: []models.OptionPosition{
			{OptionType: models.Call, PositionType: models.Long, Strike: price, Premium: 5, Quantity: 1, DaysToExpiry: 30, ImpliedVolatility: 0.25},
		},
		TotalPLAtExpiry: 500,
	}
}

func testInterface(t *testing.T, storage Interface) {
	assert.Zero(t, storage.Count())
	assert.Empty(t, storage.List(0))

	first, err := storage.Add(sampleRecord(models.AnalysisPortfolio, 100))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := storage.Add(sampleRecord(models.AnalysisCurve, 200))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := storage.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 100.0, got.CurrentPrice)
	assert.Len(t, got.Positions, 1)

	list := storage.List(0)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Len(t, storage.List(1), 1)
	assert.Equal(t, 2, storage.Count())

	_, err = storage.Get("missing")
	assert.True(t, errors.Is(err, ErrRecordNotFound))

	_, err = storage.Add(models.AnalysisRecord{Kind: "bogus"})
	assert.Error(t, err)
	assert.Equal(t, 2, storage.Count())

	require.NoError(t, storage.Save())
	require.NoError(t, storage.Load())
	assert.Equal(t, 2, storage.Count())
}

func TestMockStorageSpecificFeatures(t *testing.T) {
	m := NewMockStorage()
	saveErr := errors.New("disk full")
	m.SetSaveError(saveErr)

	_, err := m.Add(sampleRecord(models.AnalysisOption, 50))
	assert.ErrorIs(t, err, saveErr)
	assert.Zero(t, m.Count())
	assert.Equal(t, 1, m.GetSaveCallCount())

	loadErr := errors.New("corrupt")
	m.SetLoadError(loadErr)
	assert.ErrorIs(t, m.Load(), loadErr)
	assert.Equal(t, 1, m.GetLoadCallCount())
}
