package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	"Booster/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseHeatmapGrid(t *testing.T) {
	grid := [][]string{
		{"", "weekday_name", "0", "01:00", "02:00:00", "Среднее", "Медиана (ч)"},
		{"0", "Пн", "1,5", "2.25", "", "9", "9"},
		{"1", "Вт", "x", "3", "4"},
		{"2", ""},
	}
	hm, err := parseHeatmapGrid(grid)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"00:00": 1.5, "01:00": 2.25}, hm["Пн"])
	assert.Equal(t, map[string]float64{"01:00": 3, "02:00": 4}, hm["Вт"])
	assert.Len(t, hm, 2)

	_, err = parseHeatmapGrid([][]string{{"weekday_name", "Среднее"}, {"Пн", "1"}})
	assert.Error(t, err)
	_, err = parseHeatmapGrid(nil)
	assert.Error(t, err)
}

func TestCSVHeatmapSource(t *testing.T) {
	dir := t.TempDir()
	body := "\ufeffweekday_name,00:00,01:00\nПн,1.0,2.0\nВс,3.0,4.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BTCUSDTSWAP_H1.csv"), []byte(body), 0o644))

	src := NewCSVHeatmapSource(dir, "_H1")
	hm, err := src.Load(context.Background(), "BTCUSDTSWAP")
	require.NoError(t, err)

	// 2025-03-16 was a Sunday
	v, ok := hm.Lookup(time.Date(2025, 3, 16, 1, 30, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 4.0, v)

	_, err = src.Load(context.Background(), "ETHUSDTSWAP")
	assert.ErrorIs(t, err, domrepo.ErrMissingHeatmap)
}

func TestXLSXHeatmapSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heatmaps.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("BTCUSDTSWAP_H1")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("BTCUSDTSWAP_H1", "A1", &[]any{"weekday_name", "00:00", "01:00", "Среднее"}))
	require.NoError(t, f.SetSheetRow("BTCUSDTSWAP_H1", "A2", &[]any{"Ср", 0.5, 0.75, 0.6}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src := NewXLSXHeatmapSource(path, "_H1")
	hm, err := src.Load(context.Background(), "BTCUSDTSWAP")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"00:00": 0.5, "01:00": 0.75}, hm["Ср"])

	_, err = src.Load(context.Background(), "SOLUSDTSWAP")
	assert.ErrorIs(t, err, domrepo.ErrMissingHeatmap)

	_, err = NewXLSXHeatmapSource(filepath.Join(t.TempDir(), "none.xlsx"), "_H1").Load(context.Background(), "BTCUSDTSWAP")
	assert.ErrorIs(t, err, domrepo.ErrMissingHeatmap)
}

type countingHeatmapSource struct {
	calls map[string]int
	data  map[string]models.Heatmap
}

func (s *countingHeatmapSource) Load(_ context.Context, ticker string) (models.Heatmap, error) {
	s.calls[ticker]++
	hm, ok := s.data[ticker]
	if !ok {
		return nil, domrepo.ErrMissingHeatmap
	}
	return hm, nil
}

func TestCachedHeatmapSource(t *testing.T) {
	hm := models.Heatmap{}
	hm.Set("Пн", "10:00", 1.25)
	inner := &countingHeatmapSource{
		calls: map[string]int{},
		data:  map[string]models.Heatmap{"BTCUSDTSWAP": hm},
	}
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	src := NewCachedHeatmapSource(inner, mc, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := src.Load(ctx, "BTCUSDTSWAP")
		require.NoError(t, err)
		assert.Equal(t, hm, got)

		_, err = src.Load(ctx, "DOGEUSDTSWAP")
		assert.ErrorIs(t, err, domrepo.ErrMissingHeatmap)
	}
	assert.Equal(t, 1, inner.calls["BTCUSDTSWAP"])
	assert.Equal(t, 1, inner.calls["DOGEUSDTSWAP"])
}
