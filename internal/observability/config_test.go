package observability

import (
	"testing"

	"github.com/smallbiznis/glazeops/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEPLOYMENT_ENV", "")

	cfg := LoadConfig(config.Config{AppName: "glazeops", Environment: "production", AppVersion: "1.2.3"})
	assert.Equal(t, "glazeops", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := LoadConfig(config.Config{Environment: "production"})
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
	assert.True(t, cfg.Debug())
}

func TestDerivedConfigs(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEPLOYMENT_ENV", "")

	cfg := LoadConfig(config.Config{AppName: "glazeops", Environment: "development"})

	logCfg := cfg.LoggerConfig()
	assert.True(t, logCfg.Debug)
	assert.True(t, logCfg.IncludeStackOnError)

	traceCfg := cfg.TracingConfig()
	assert.True(t, traceCfg.Enabled)
	assert.Equal(t, "glazeops", traceCfg.ServiceName)

	assert.Equal(t, cfg.OtelExporterEndpoint, cfg.MetricsConfig().ExporterEndpoint)
}
