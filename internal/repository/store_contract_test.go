package repository

import (
	"context"
	"testing"

	domrepo "Booster/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runTableStoreContract exercises the behaviour every TableStore backend shares.
func runTableStoreContract(t *testing.T, s domrepo.TableStore) {
	t.Helper()
	loc := moscow(t)
	ctx := context.Background()

	t.Run("missing table", func(t *testing.T) {
		_, err := s.Load(ctx, domrepo.TableKey{Ticker: "MISSINGUSDTSWAP", Timeframe: domrepo.TF3m})
		assert.ErrorIs(t, err, domrepo.ErrTableNotFound)
	})

	t.Run("round trip per timeframe", func(t *testing.T) {
		for _, tf := range domrepo.AllTimeframes {
			key := domrepo.TableKey{Ticker: "BTCUSDTSWAP", Timeframe: tf}
			rows := sampleRows(loc, tf, 12)
			require.NoError(t, s.Replace(ctx, key, rows))

			got, err := s.Load(ctx, key)
			require.NoError(t, err)
			requireSameRows(t, rows, got)
		}
	})

	t.Run("replace swaps whole table", func(t *testing.T) {
		key := domrepo.TableKey{Ticker: "ETHUSDTSWAP", Timeframe: domrepo.TF1h}
		require.NoError(t, s.Replace(ctx, key, sampleRows(loc, domrepo.TF1h, 30)))
		require.NoError(t, s.Replace(ctx, key, sampleRows(loc, domrepo.TF1h, 4)))

		got, err := s.Load(ctx, key)
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("list", func(t *testing.T) {
		got, err := s.List(ctx, domrepo.TF1h)
		require.NoError(t, err)
		assert.Equal(t, []string{"BTCUSDTSWAP", "ETHUSDTSWAP"}, got)

		got, err = s.List(ctx, domrepo.TF1d)
		require.NoError(t, err)
		assert.Equal(t, []string{"BTCUSDTSWAP"}, got)
	})
}

func TestMemoryTableStoreContract(t *testing.T) {
	runTableStoreContract(t, NewMemoryTableStore())
}

func TestFileTableStoreContract(t *testing.T) {
	s, err := NewFileTableStore(t.TempDir(), nil, moscow(t))
	require.NoError(t, err)
	runTableStoreContract(t, s)
}
