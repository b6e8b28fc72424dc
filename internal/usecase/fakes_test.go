package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	"Booster/internal/repository"

	"github.com/stretchr/testify/require"
)

var btc = models.NewInstrument("BTC-USDT-SWAP")

func moscow(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)
	return loc
}

// synthCandles returns n ascending 3m candles from local midnight of
// 2025-03-10 with a slow sine close so the HMAs cross now and then.
func synthCandles(loc *time.Location, n int) []models.Candle {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, loc)
	out := make([]models.Candle, n)
	for i := range out {
		p := 100 + 5*math.Sin(float64(i)/15)
		out[i] = models.Candle{
			Instrument: btc.Ticker,
			Per:        3,
			Time:       start.Add(time.Duration(i) * 3 * time.Minute),
			Open:       p,
			High:       p + 1,
			Low:        p - 1,
			Close:      p + 0.2,
			Volume:     float64(i%7 + 1),
		}
	}
	return out
}

type fakeFetcher struct {
	res *models.FetchResult
	err error
}

func (f *fakeFetcher) FetchCandles(_ context.Context, inst models.Instrument, _ domrepo.Timeframe, _ int) (*models.FetchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	res.Instrument = inst
	return &res, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.TableEvent
}

func (p *recordingPublisher) PublishTableEvent(_ context.Context, ev *models.TableEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// failingStore fails Replace for one timeframe.
type failingStore struct {
	*repository.MemoryTableStore
	failTF domrepo.Timeframe
}

func (s *failingStore) Replace(ctx context.Context, key domrepo.TableKey, rows []models.Row) error {
	if key.Timeframe == s.failTF {
		return fmt.Errorf("%w: disk full", domrepo.ErrStoreIO)
	}
	return s.MemoryTableStore.Replace(ctx, key, rows)
}

type staticHeatmaps map[string]models.Heatmap

func (s staticHeatmaps) Load(_ context.Context, ticker string) (models.Heatmap, error) {
	hm, ok := s[ticker]
	if !ok {
		return nil, domrepo.ErrMissingHeatmap
	}
	return hm, nil
}

func downloadConfig() DownloadConfig {
	return DownloadConfig{Target: 3360, DailyAnchor: 3 * time.Hour, Window3m: 20, Window1h: 24}
}
