package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeframeGeometry(t *testing.T) {
	assert.Equal(t, 3, TF3m.Per())
	assert.Equal(t, 60, TF1h.Per())
	assert.Equal(t, 1440, TF1d.Per())
	assert.Equal(t, "3m", TF3m.Bar())
	assert.Equal(t, "1H", TF1h.Bar())
}

func TestTimeframeAligned(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

	assert.True(t, TF3m.Aligned(at(7, 0)))
	assert.False(t, TF3m.Aligned(at(7, 3)))
	assert.True(t, TF1h.Aligned(at(0, 0)))
	assert.False(t, TF1h.Aligned(at(7, 0)))
	assert.False(t, TF1d.Aligned(at(0, 0)))
}

func TestTimeframeColumns(t *testing.T) {
	assert.Len(t, TF3m.Columns(), 18)
	assert.Contains(t, TF1h.Columns(), "zscore_delta")
	assert.Equal(t, "amp_eff_avg", TF1d.Columns()[len(TF1d.Columns())-1])
	assert.NotContains(t, TF1d.Columns(), "hma9")
}

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("1d")
	require.NoError(t, err)
	assert.Equal(t, TF1d, tf)

	_, err = ParseTimeframe("5m")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, TF1h, NormalizeTimeframe("5m"))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{fmt.Errorf("page 3: %w", ErrRateLimited), KindRateLimited},
		{fmt.Errorf("page 3: %w", ErrTransientNetwork), KindTransientNetwork},
		{fmt.Errorf("load BTC 1h: %w", ErrTableNotFound), KindMissingSibling},
		{ErrMissingHeatmap, KindMissingHeatmap},
		{fmt.Errorf("write: %w", ErrStoreIO), KindStoreIO},
		{context.Canceled, KindCanceled},
		{errors.New("other"), KindUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), "%v", c.err)
	}
}
