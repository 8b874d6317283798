package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORE_DRIVER", "ID_STRATEGY", "ID_MAX_RETRIES", "ID_FALLBACK", "CACHE_TTL_SECONDS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	c := Load()

	assert.Equal(t, "mongo", c.StoreDriver)
	assert.Equal(t, "scan", c.IDStrategy)
	assert.Equal(t, 5, c.IDMaxRetries)
	assert.True(t, c.IDFallback)
	assert.Equal(t, 300*time.Second, c.CacheTTL)
	assert.Equal(t, []string{"*"}, c.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "MySQL")
	t.Setenv("ID_STRATEGY", "counter")
	t.Setenv("ID_MAX_RETRIES", "0")
	t.Setenv("ID_FALLBACK", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	c := Load()

	assert.Equal(t, "mysql", c.StoreDriver)
	assert.Equal(t, "counter", c.IDStrategy)
	assert.Equal(t, 1, c.IDMaxRetries, "retries are clamped to at least one attempt")
	assert.False(t, c.IDFallback)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
}

func TestLoad_UnknownStrategyFallsBackToScan(t *testing.T) {
	t.Setenv("ID_STRATEGY", "uuid")
	assert.Equal(t, "scan", Load().IDStrategy)
}
