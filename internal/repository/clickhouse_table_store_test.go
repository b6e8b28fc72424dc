package repository

import (
	"context"
	"strconv"
	"testing"
	"time"

	domrepo "Booster/internal/domain/repository"
	pkgch "Booster/pkg/clickhouse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupClickHouse(t *testing.T) *pkgch.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "clickhouse/clickhouse-server:24.1-alpine",
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Application: Ready for connections").WithStartupTimeout(60*time.Second),
				wait.ForListeningPort("9000/tcp"),
			),
			Env: map[string]string{
				"CLICKHOUSE_USER":     "default",
				"CLICKHOUSE_PASSWORD": "",
			},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)
	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	ch, err := pkgch.NewClient(ctx,
		pkgch.WithHost(host),
		pkgch.WithPort(p),
		pkgch.WithDatabase("booster_test"),
		pkgch.WithCreateDatabase(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func TestClickHouseTableStore(t *testing.T) {
	ch := setupClickHouse(t)
	s := NewClickHouseTableStore(ch, moscow(t))
	runTableStoreContract(t, s)

	ok, err := ch.TableExists(context.Background(), "candles_BTCUSDTSWAP_3m")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := s.List(context.Background(), domrepo.TF3m)
	require.NoError(t, err)
	assert.NotContains(t, list, "BTCUSDTSWAP_3m_staging")
}
