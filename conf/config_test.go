package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSampleConfig(t *testing.T) {
	Init("config-sample.yaml")

	assert.Equal(t, 5*time.Minute, App.Interval)
	assert.Equal(t, 10*time.Second, App.Timeout)
	assert.Equal(t, time.Hour, App.CacheTTL)
	assert.Equal(t, "/var/lib/ddnswolf/state.json", App.StateFile)
	assert.Equal(t, 5, Retry.Attempts)
	assert.Equal(t, 2*time.Second, Retry.Backoff)

	require.Contains(t, Sources, "wan")
	assert.Equal(t, "web", Sources["wan"].Type)
	assert.Len(t, Sources["wan"].URLs, 2)
	require.Contains(t, Sources, "lan")
	assert.Equal(t, "iface", Sources["lan"].Type)
	assert.Equal(t, "eth0", Sources["lan"].Iface)
	assert.Equal(t, []string{"global", "sorted", "first"}, Sources["lan"].Filters)

	require.Contains(t, Providers, "cf")
	assert.Equal(t, "cloudflare", Providers["cf"].Type)
	assert.True(t, Providers["cf"].CreateRecords)
	assert.Equal(t, 60, Providers["cf"].TTL)

	require.Len(t, Records, 1)
	assert.Equal(t, "home.example.com", Records[0].Name)
	assert.Equal(t, "A", Records[0].Type)
	assert.Equal(t, []string{"wan", "lan"}, Records[0].Sources)
	assert.Equal(t, "provider", Records[0].Check)

	assert.Len(t, Resolvers, 2)
}
