package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  name: harvest-advisor
  log_level: debug
lmstfy:
  host: 127.0.0.1
  port: 7777
  namespace: agri
  token: t
advisor:
  transport_cost_per_km: 0.1
  consider_distance: true
workers:
  - name: harvest_recommend
    queue_name: harvest_recommend
    callback_queue: harvest_callback
    subscriber:
      threads: 2
      timeout: 3s
      ttr: 60s
    processor:
      threads: 4
      buffer_size: 16
      timeout: 30s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "harvest-advisor", cfg.App.Name)
	assert.Equal(t, 0.1, cfg.Advisor.TransportCostPerKm)
	assert.True(t, cfg.Advisor.ConsiderDistance)
	assert.Equal(t, 7, cfg.Advisor.CacheTTLDays)
	assert.Equal(t, 3, cfg.Advisor.StaleCacheDays)
	assert.Equal(t, 5, cfg.Advisor.RuleLimit)
	assert.Equal(t, "Agmarknet", cfg.Advisor.PrimaryMarketSource)
	assert.Equal(t, "AIKosh", cfg.Advisor.SecondaryMarketSource)

	require.Len(t, cfg.Workers, 1)
	assert.Equal(t, 60*time.Second, cfg.Workers[0].Subscriber.TTR)
	assert.Equal(t, 16, cfg.Workers[0].Processor.BufferSize)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ADVISOR_ADVISOR_RULE_LIMIT", "3")
	t.Setenv("ADVISOR_APP_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Advisor.RuleLimit)
	assert.Equal(t, "warn", cfg.App.LogLevel)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	cfg.Lmstfy.Host = ""
	assert.Error(t, cfg.Validate())

	cfg, err = Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	cfg.Advisor.RuleLimit = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
