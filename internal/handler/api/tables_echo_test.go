package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"Booster/internal/domain/models"
	domrepo "Booster/internal/domain/repository"
	domsvc "Booster/internal/domain/service"
	"Booster/internal/orchestrator"
	"Booster/internal/repository"
	"Booster/internal/services/enrich"
	"Booster/internal/usecase"
	"Booster/pkg/cache"
	xhttp "Booster/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu   sync.Mutex
	reqs []models.RunRequest
	err  error
}

func (r *recordingRunner) Start(_ context.Context, req models.RunRequest) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	return req.RunID, nil
}

func seededStore(t *testing.T) domrepo.TableStore {
	t.Helper()
	store := repository.NewMemoryTableStore()
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := make([]models.Row, 40)
	for i := range rows {
		p := 10 + math.Sin(float64(i))
		rows[i] = models.Row{Candle: models.Candle{
			Instrument: "ETHUSDTSWAP", Per: 60, Time: start.Add(time.Duration(i) * time.Hour),
			Open: p, High: p + 0.2, Low: p - 0.2, Close: p, Volume: 1,
		}, Amplitude: float64(i%5) + 1}
	}
	enrich.Enrich(rows, nil)
	require.NoError(t, store.Replace(context.Background(), domrepo.TableKey{Ticker: "ETHUSDTSWAP", Timeframe: domrepo.TF1h}, rows))
	return store
}

func newTestServer(t *testing.T, runner usecase.RunStarter, c cache.Service) *echo.Echo {
	t.Helper()
	h := NewTablesEchoHandler(nil, usecase.NewTablesUseCase(seededStore(t)), runner)
	if c != nil {
		h.SetCache(c)
	}
	return xhttp.NewServer(h, xhttp.WithMetricsPath(""), xhttp.WithCORS(false)).Echo()
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	Status int `json:"status"`
	Data   struct {
		Rows  json.RawMessage `json:"rows"`
		Total int64           `json:"total"`
	} `json:"data"`
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder, rows any) int64 {
	t.Helper()
	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NoError(t, json.Unmarshal(body.Data.Rows, rows))
	return body.Data.Total
}

func TestTablesAndCandles(t *testing.T) {
	e := newTestServer(t, nil, nil)

	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/api/tables/1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tickers []string
	assert.EqualValues(t, 1, decodeList(t, rec, &tickers))
	assert.Equal(t, []string{"ETHUSDTSWAP"}, tickers)

	rec = do(e, http.MethodGet, "/api/tables/5m", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/candles?instrument=ETH-USDT-SWAP&limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []models.RowView
	decodeList(t, rec, &rows)
	require.Len(t, rows, 3)
	assert.Equal(t, "20250311", rows[2].Date)
	assert.Equal(t, "150000", rows[2].Time)
	assert.NotNil(t, rows[2].AmpEffLast6)

	rec = do(e, http.MethodGet, "/api/candles?instrument=BTC-USDT-SWAP", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/api/candles", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/candles?instrument=ETH-USDT-SWAP&limit=0", "")
	assert.Equal(t, http.StatusOK, rec.Code, "zero limit falls back to the default")
}

func TestThresholdsCached(t *testing.T) {
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	e := newTestServer(t, nil, mc)

	rec := do(e, http.MethodGet, "/api/thresholds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var th []models.Threshold
	decodeList(t, rec, &th)
	require.Len(t, th, 1)
	assert.Equal(t, "ETH", th[0].Ticker)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	rec = do(e, http.MethodGet, "/api/thresholds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestRunsTrigger(t *testing.T) {
	runner := &recordingRunner{}
	e := newTestServer(t, runner, nil)

	rec := do(e, http.MethodPost, "/api/runs", `{"stages":["enrich"],"instruments":["ETH-USDT-SWAP"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	runID := body.Data["run_id"]
	assert.NotEmpty(t, runID)

	runner.mu.Lock()
	require.Len(t, runner.reqs, 1)
	assert.Equal(t, runID, runner.reqs[0].RunID)
	assert.Equal(t, []string{"enrich"}, runner.reqs[0].Stages)
	runner.mu.Unlock()

	rec = do(e, http.MethodPost, "/api/runs", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRunsRejectsUnknownStage(t *testing.T) {
	e := newTestServer(t, &recordingRunner{}, nil)
	rec := do(e, http.MethodPost, "/api/runs", `{"stages":["upload"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunsAnswersUnavailableWhileBusy(t *testing.T) {
	runner := &recordingRunner{err: fmt.Errorf("acquire: %w", domrepo.ErrRunInProgress)}
	e := newTestServer(t, runner, nil)

	rec := do(e, http.MethodPost, "/api/runs", `{"stages":["download"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "run_id")
	assert.Empty(t, runner.reqs)
}

func TestRunsAgainstOrchestratorLock(t *testing.T) {
	release := make(chan struct{})
	stage := &blockingStage{release: release}
	orch := orchestrator.New(orchestrator.Config{Instruments: []string{"BTC-USDT-SWAP"}}, []domsvc.Stage{stage})

	e := newTestServer(t, orch, nil)
	first := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{}`))
	first.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	first.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, first)
	require.Equal(t, http.StatusAccepted, rec.Code)

	second := httptest.NewRequest(http.MethodPost, "/api/runs", strings.NewReader(`{}`))
	second.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	second.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	close(release)
}

type blockingStage struct{ release chan struct{} }

func (s *blockingStage) Name() string { return models.StageDownload }

func (s *blockingStage) Run(ctx context.Context, _ models.Instrument) domsvc.Outcome {
	<-s.release
	return domsvc.Outcome{}
}
