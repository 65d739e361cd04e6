package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"txfeed/internal/config"
	"txfeed/internal/infrastructure/metadataapi"
	"txfeed/internal/infrastructure/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestContractSource_SelectionOrder(t *testing.T) {
	logger := zap.NewNop()

	source, closeFn, err := ContractSource(config.Config{
		MetadataAPIURL:     "http://metadata.local",
		MetadataSQLitePath: ":memory:",
	}, logger)
	require.NoError(t, err)
	assert.IsType(t, &metadataapi.Client{}, source)
	require.NoError(t, closeFn())

	source, closeFn, err = ContractSource(config.Config{MetadataSQLitePath: ":memory:"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Registry{}, source)
	assert.NoError(t, source.Ping(context.Background()))
	require.NoError(t, closeFn())

	_, _, err = ContractSource(config.Config{}, logger)
	assert.Error(t, err)
}

func TestPager_RequiresAPIKey(t *testing.T) {
	contracts, closeFn, err := ContractSource(config.Config{MetadataSQLitePath: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	_, err = Pager(config.Config{}, contracts, nil, zap.NewNop())
	assert.Error(t, err)

	pager, err := Pager(config.Config{MoralisAPIKey: "key", TxPageSize: 10, TransferPageSize: 5}, contracts, nil, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, pager)
}

func TestLogger_UsesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.log")
	logger, closeFn, err := Logger(config.Config{LogLevel: "info"}, path)
	require.NoError(t, err)
	logger.Info("started")
	closeFn()
	assert.FileExists(t, path)
}

func TestTracing_NoEndpoint(t *testing.T) {
	shutdown := Tracing(context.Background(), config.Config{}, "txfeed-test", "dev", zap.NewNop())
	shutdown()
}
