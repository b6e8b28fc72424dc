package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"Booster/internal/domain/models"
	drepo "Booster/internal/domain/repository"
	xhttp "Booster/pkg/http"
	"Booster/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const step = int64(3 * time.Minute / time.Millisecond)

var base = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC).UnixMilli()

// page renders n candles newest first, ending at newest.
func page(newest int64, n int) string {
	rows := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ts := newest - int64(i)*step
		rows = append(rows, fmt.Sprintf(`["%d","1","2","0.5","1.5","10","20","30","1"]`, ts))
	}
	return `{"code":"0","msg":"","data":[` + strings.Join(rows, ",") + `]}`
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	defaults := []Option{
		WithPacing(0),
		WithTransientRetry(2, time.Millisecond, time.Millisecond),
		WithRateLimitRetry(time.Millisecond, 5),
	}
	return New(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)), append(defaults, opts...)...)
}

func TestFetchCandlesDeduplicatesOverlappingPages(t *testing.T) {
	newest := base + 300*step
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, historyCandlesPath, r.URL.Path)
		assert.Equal(t, "3m", r.URL.Query().Get("bar"))
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			assert.Empty(t, r.URL.Query().Get("after"))
			fmt.Fprint(w, page(newest, 100))
		case 2:
			oldest := newest - 99*step
			assert.Equal(t, strconv.FormatInt(oldest, 10), r.URL.Query().Get("after"))
			// five candles repeat the tail of the previous page
			fmt.Fprint(w, page(oldest+4*step, 100))
		default:
			fmt.Fprint(w, `{"code":"0","data":[]}`)
		}
	})

	res, err := c.FetchCandles(context.Background(), models.NewInstrument("BTC-USDT-SWAP"), drepo.TF3m, 1000)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Equal(t, 3, res.Pages)
	require.Len(t, res.Candles, 195)

	for i := 1; i < len(res.Candles); i++ {
		assert.True(t, res.Candles[i-1].Time.Before(res.Candles[i].Time))
	}
	first := res.Candles[0]
	assert.Equal(t, "BTCUSDTSWAP", first.Instrument)
	assert.Equal(t, 3, first.Per)
	assert.Equal(t, 30.0, first.Volume)
	assert.Equal(t, 2.0, first.High)
}

func TestFetchCandlesStopsAtTarget(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, page(base, 100))
	})

	res, err := c.FetchCandles(context.Background(), models.NewInstrument("ETH-USDT-SWAP"), drepo.TF3m, 100)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Len(t, res.Candles, 100)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchCandlesRateLimitDoesNotUseTransientBudget(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1, 2:
			w.WriteHeader(http.StatusTooManyRequests)
		case 3:
			fmt.Fprint(w, `{"code":"50011","msg":"Too Many Requests","data":[]}`)
		default:
			fmt.Fprint(w, page(base, 50))
		}
	}, WithTransientRetry(1, time.Millisecond, time.Millisecond))

	res, err := c.FetchCandles(context.Background(), models.NewInstrument("SOL-USDT-SWAP"), drepo.TF3m, 50)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Len(t, res.Candles, 50)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestFetchCandlesExhaustedRetriesKeepsPartial(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, page(base, 100))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	res, err := c.FetchCandles(context.Background(), models.NewInstrument("DOGE-USDT-SWAP"), drepo.TF3m, 300)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Len(t, res.Candles, 100)
	require.Error(t, res.Err)
	assert.True(t, retry.IsExhausted(res.Err))
	assert.Equal(t, drepo.KindTransientNetwork, drepo.Classify(res.Err))

	var se *xhttp.StatusError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	// first page, then two attempts at the second
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetchCandlesTransientBudgetIsTotalRequests(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, WithTransientRetry(2, time.Millisecond, time.Millisecond))

	res, err := c.FetchCandles(context.Background(), models.NewInstrument("BTC-USDT-SWAP"), drepo.TF3m, 100)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Empty(t, res.Candles)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchCandlesRateLimitWaitBudget(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, WithRateLimitRetry(time.Millisecond, 2))

	res, err := c.FetchCandles(context.Background(), models.NewInstrument("BTC-USDT-SWAP"), drepo.TF3m, 100)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Equal(t, drepo.KindRateLimited, drepo.Classify(res.Err))
	// two waits, three requests
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetchCandlesEmptyFirstPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"0","msg":"","data":[]}`)
	})

	res, err := c.FetchCandles(context.Background(), models.NewInstrument("XRP-USDT-SWAP"), drepo.TF3m, 3360)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Empty(t, res.Candles)
}

func TestFetchCandlesMalformedRowIsTransient(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"code":"0","data":[["abc","1","2","0.5","1.5","10","20","30","1"]]}`)
	})

	res, err := c.FetchCandles(context.Background(), models.NewInstrument("ADA-USDT-SWAP"), drepo.TF3m, 10)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestFetchCandlesContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithTransientRetry(5, 10*time.Second, 10*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := c.FetchCandles(ctx, models.NewInstrument("BTC-USDT-SWAP"), drepo.TF3m, 100)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, res)
	assert.False(t, res.Complete)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLiquidInstruments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tickersPath, r.URL.Path)
		assert.Equal(t, "SWAP", r.URL.Query().Get("instType"))
		fmt.Fprint(w, `{"code":"0","data":[
			{"instId":"BTC-USDT-SWAP","volCcy24h":"50000000"},
			{"instId":"ETH-USDT-SWAP","volCcy24h":"120000000.5"},
			{"instId":"BTC-USD-SWAP","volCcy24h":"900000000"},
			{"instId":"TINY-USDT-SWAP","volCcy24h":"30000000"},
			{"instId":"BAD-USDT-SWAP","volCcy24h":""}
		]}`)
	})

	got, err := c.LiquidInstruments(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ETH-USDT-SWAP", got[0].ID)
	assert.Equal(t, "ETHUSDTSWAP", got[0].Ticker)
	assert.Equal(t, "BTC-USDT-SWAP", got[1].ID)
	assert.Equal(t, 50000000.0, got[1].Volume24h)
}

func TestLiquidInstrumentsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`)
	})

	_, err := c.LiquidInstruments(context.Background(), 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, drepo.ErrTransientNetwork)
}
