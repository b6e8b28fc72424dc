package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "environment: test\n")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Europe/Moscow", c.Pipeline.Timezone)
	assert.Equal(t, 3*time.Hour, c.Pipeline.DailyAnchor)
	assert.Equal(t, 3360, c.Pipeline.Target)
	assert.Equal(t, 5, c.Pipeline.Concurrency.Fetch)
	assert.Equal(t, 20, c.Pipeline.Density.Window3m)
	assert.Equal(t, 24, c.Pipeline.Density.Window1h)
	assert.Equal(t, 2, c.OKX.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Second, c.OKX.Retry.Delay)
	assert.Equal(t, 10*time.Second, c.OKX.Retry.ErrorDelay)
	assert.Equal(t, 2*time.Second, c.OKX.RateLimit.Delay)
	assert.Equal(t, 250*time.Millisecond, c.OKX.Pacing)
	assert.Equal(t, "file", c.Storage.Backend)
	assert.Equal(t, "3mtf", c.Storage.Folders["3m"])
	assert.Equal(t, "1dtf", c.Storage.Folders["1d"])
	assert.Equal(t, DefaultInstruments, c.Pipeline.Instruments)
	assert.Equal(t, "Europe/Moscow", c.Location().String())
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown backend":    "environment: test\nstorage:\n  backend: s3\n",
		"postgres no dsn":    "environment: test\nstorage:\n  backend: postgres\n",
		"bad timezone":       "environment: test\npipeline:\n  timezone: Mars/Olympus\n",
		"anchor out of day":  "environment: test\npipeline:\n  daily_anchor: 25h\n",
		"kafka no brokers":   "environment: test\nkafka:\n  enabled: true\n",
		"unknown stage":      "environment: test\npipeline:\n  stages: [download, publish]\n",
		"collector no kafka": "environment: test\nlog:\n  collector:\n    enabled: true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "environment: test\n")
	t.Setenv("BOOSTER_ENV", "production")
	t.Setenv("INSTRUMENTS", "BTC-USDT-SWAP, ETH-USDT-SWAP")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost:5432/booster")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, []string{"BTC-USDT-SWAP", "ETH-USDT-SWAP"}, c.Pipeline.Instruments)
	assert.Equal(t, "postgres", c.Storage.Backend)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestSampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"download", "enrich", "density"}, c.Pipeline.Stages)
	assert.Contains(t, c.Pipeline.Instruments, "BTC-USDT-SWAP")
}
