package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("EVENTHUB_UPSTREAM_API_KEY", "k")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTP.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "serpapi", cfg.Upstream.Kind)
	assert.Equal(t, "eventos em recife", cfg.Upstream.Query)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 3, cfg.Ingest.MaxPages)
	assert.Equal(t, 5, cfg.Ingest.TargetNew)
	assert.Equal(t, 10, cfg.Ingest.PageSize)
	assert.Equal(t, 150, cfg.Ingest.DescriptionCap)
	assert.Equal(t, time.Duration(0), cfg.Ingest.RefreshInterval)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("EVENTHUB_STORE_DRIVER", "file")
	t.Setenv("EVENTHUB_STORE_PATH", "/tmp/db.json")
	t.Setenv("EVENTHUB_UPSTREAM_KIND", "page")
	t.Setenv("EVENTHUB_INGEST_MAX_PAGES", "7")
	t.Setenv("EVENTHUB_INGEST_REFRESH_INTERVAL", "30m")
	t.Setenv("EVENTHUB_HTTP_TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")
	t.Setenv("EVENTHUB_UPSTREAM_LANGUAGE", "en")
	t.Setenv("EVENTHUB_SYNC_TCP_ADDR", ":7777")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "/tmp/db.json", cfg.Store.Path)
	assert.Equal(t, "page", cfg.Upstream.Kind)
	assert.Equal(t, 7, cfg.Ingest.MaxPages)
	assert.Equal(t, 30*time.Minute, cfg.Ingest.RefreshInterval)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.HTTP.TrustedProxies)
	assert.Equal(t, "en", cfg.Upstream.Language)
	assert.Equal(t, ":7777", cfg.Sync.TCPAddr)
}

func TestLoadConfig_IgnoresUnprefixedVariables(t *testing.T) {
	t.Setenv("PATH", "/usr/bin:/bin")
	t.Setenv("API_KEY", "leaked")
	t.Setenv("DRIVER", "file")
	t.Setenv("EVENTHUB_UPSTREAM_BASE_URL", "http://localhost:9000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Store.Path)
	assert.Equal(t, "", cfg.Upstream.APIKey)
	assert.Equal(t, "sqlite", cfg.Store.Driver)

	sc, err := LoadStoreConfig()
	require.NoError(t, err)
	assert.Equal(t, "", sc.Path)
	assert.Equal(t, "sqlite", sc.Driver)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("EVENTHUB_UPSTREAM_API_KEY", "k")
		t.Setenv("EVENTHUB_STORE_DRIVER", "postgres")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "Driver")
	})

	t.Run("zero max pages", func(t *testing.T) {
		t.Setenv("EVENTHUB_UPSTREAM_API_KEY", "k")
		t.Setenv("EVENTHUB_INGEST_MAX_PAGES", "0")
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "MaxPages")
	})

	t.Run("serpapi without key", func(t *testing.T) {
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "API_KEY")
	})

	t.Run("mirror needs no key", func(t *testing.T) {
		t.Setenv("EVENTHUB_UPSTREAM_BASE_URL", "http://localhost:9000")
		_, err := LoadConfig()
		assert.NoError(t, err)
	})
}

func TestNewConfigForTesting_IsValid(t *testing.T) {
	assert.NoError(t, NewConfigForTesting().Validate())
}
