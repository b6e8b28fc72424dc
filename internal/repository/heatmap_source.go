package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	"Booster/pkg/cache"
	applogger "Booster/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// Summary columns of the heatmap workbook that are not hour buckets.
var heatmapExcluded = []string{"Среднее", "Медиана"}

// parseHeatmapGrid reads a sheet laid out as a header row of hour labels and
// one row per weekday. The weekday column is "weekday_name" when present,
// otherwise the first column.
func parseHeatmapGrid(grid [][]string) (models.Heatmap, error) {
	if len(grid) < 2 {
		return nil, fmt.Errorf("heatmap grid has %d rows", len(grid))
	}
	header := grid[0]

	dayCol := 0
	for i, h := range header {
		if strings.TrimSpace(h) == "weekday_name" {
			dayCol = i
			break
		}
	}

	hours := make(map[int]string, len(header))
	for i, h := range header {
		if i == dayCol || excludedHeatmapColumn(h) {
			continue
		}
		if key, ok := normalizeHour(h); ok {
			hours[i] = key
		}
	}
	if len(hours) == 0 {
		return nil, errors.New("heatmap has no hour columns")
	}

	hm := models.Heatmap{}
	for _, row := range grid[1:] {
		if dayCol >= len(row) {
			continue
		}
		day := strings.TrimSpace(row[dayCol])
		if day == "" {
			continue
		}
		for i, key := range hours {
			if i >= len(row) {
				continue
			}
			cell := strings.TrimSpace(strings.ReplaceAll(row[i], ",", "."))
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			hm.Set(day, key, v)
		}
	}
	return hm, nil
}

func excludedHeatmapColumn(h string) bool {
	for _, ex := range heatmapExcluded {
		if strings.Contains(h, ex) {
			return true
		}
	}
	return false
}

// normalizeHour maps "7", "07:00" or "07:00:00" to "07:00".
func normalizeHour(h string) (string, bool) {
	h = strings.TrimSpace(h)
	if i := strings.IndexByte(h, ':'); i >= 0 {
		h = h[:i]
	}
	n, err := strconv.Atoi(h)
	if err != nil || n < 0 || n > 23 {
		return "", false
	}
	return fmt.Sprintf("%02d:00", n), true
}

// XLSXHeatmapSource reads sheet {TICKER}{suffix} of one workbook.
type XLSXHeatmapSource struct {
	path   string
	suffix string
	mu     sync.Mutex
}

var _ domrepo.HeatmapSource = (*XLSXHeatmapSource)(nil)

func NewXLSXHeatmapSource(path, suffix string) *XLSXHeatmapSource {
	return &XLSXHeatmapSource{path: path, suffix: suffix}
}

func (s *XLSXHeatmapSource) Load(ctx context.Context, ticker string) (models.Heatmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: workbook %s", domrepo.ErrMissingHeatmap, s.path)
		}
		return nil, fmt.Errorf("open heatmap workbook: %w", err)
	}
	defer f.Close()

	sheet := ticker + s.suffix
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: sheet %s", domrepo.ErrMissingHeatmap, sheet)
	}
	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	hm, err := parseHeatmapGrid(grid)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %s: %w", domrepo.ErrMissingHeatmap, sheet, err)
	}
	return hm, nil
}

// CSVHeatmapSource reads {dir}/{TICKER}{suffix}.csv with the workbook layout.
type CSVHeatmapSource struct {
	dir    string
	suffix string
}

var _ domrepo.HeatmapSource = (*CSVHeatmapSource)(nil)

func NewCSVHeatmapSource(dir, suffix string) *CSVHeatmapSource {
	return &CSVHeatmapSource{dir: dir, suffix: suffix}
}

func (s *CSVHeatmapSource) Load(ctx context.Context, ticker string) (models.Heatmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, ticker+s.suffix+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domrepo.ErrMissingHeatmap, path)
		}
		return nil, fmt.Errorf("open heatmap: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	grid, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read heatmap %s: %w", path, err)
	}
	if len(grid) > 0 && len(grid[0]) > 0 {
		grid[0][0] = strings.TrimPrefix(grid[0][0], "\ufeff")
	}
	hm, err := parseHeatmapGrid(grid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domrepo.ErrMissingHeatmap, path, err)
	}
	return hm, nil
}

type cachedHeatmap struct {
	Missing bool           `json:"missing,omitempty"`
	Cells   models.Heatmap `json:"cells,omitempty"`
}

// CachedHeatmapSource memoizes another source in a cache.Service under
// heatmap:{TICKER}. Missing sheets are cached too.
type CachedHeatmapSource struct {
	inner domrepo.HeatmapSource
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

var _ domrepo.HeatmapSource = (*CachedHeatmapSource)(nil)

func NewCachedHeatmapSource(inner domrepo.HeatmapSource, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedHeatmapSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedHeatmapSource{inner: inner, cache: c, ttl: ttl, l: l}
}

func (s *CachedHeatmapSource) Load(ctx context.Context, ticker string) (models.Heatmap, error) {
	key := cache.GenerateKey("heatmap", ticker)

	var hit cachedHeatmap
	err := s.cache.Get(ctx, key, &hit)
	switch {
	case err == nil:
		if hit.Missing {
			return nil, fmt.Errorf("%w: %s (cached)", domrepo.ErrMissingHeatmap, ticker)
		}
		return hit.Cells, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.l.Warn("heatmap cache read failed", applogger.String("ticker", ticker), applogger.Error(err))
	}

	hm, err := s.inner.Load(ctx, ticker)
	missing := errors.Is(err, domrepo.ErrMissingHeatmap)
	if err != nil && !missing {
		return nil, err
	}
	if setErr := s.cache.Set(ctx, key, cachedHeatmap{Missing: missing, Cells: hm}, s.ttl); setErr != nil {
		s.l.Warn("heatmap cache write failed", applogger.String("ticker", ticker), applogger.Error(setErr))
	}
	return hm, err
}
