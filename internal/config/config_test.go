package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "router.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{ConfigFile: writeConfig(t, "server:\n  listen_addr: \":9090\"\n"), EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.ListenAddr)
	require.Equal(t, 5*time.Minute, cfg.Catalog.TTL)
	require.Equal(t, "memory", cfg.Catalog.Store)
	require.Equal(t, 3, cfg.Routing.FailureThreshold)
	require.Equal(t, time.Minute, cfg.Routing.Cooldown)
	require.Empty(t, cfg.Configured())
}

func TestLoadProvidersFromFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
catalog:
  ttl: 0
providers:
  openrouter:
    api_key: sk-or
    model_id: anthropic/claude-sonnet-4
    temperature: 0.2
  bedrock:
    enabled: false
    region: us-east-1
routing:
  fallbacks:
    openrouter: [deepinfra]
`)
	t.Setenv("ROUTER_PROVIDERS_DEEPINFRA_API_KEY", "di-key")

	cfg, err := Load(Options{ConfigFile: path, EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)
	require.Zero(t, cfg.Catalog.TTL)

	or, ok := cfg.Provider("OpenRouter")
	require.True(t, ok)
	require.Equal(t, "sk-or", or.APIKey)
	require.NotNil(t, or.Temperature)
	require.InDelta(t, 0.2, *or.Temperature, 1e-9)

	di, ok := cfg.Provider("deepinfra")
	require.True(t, ok)
	require.Equal(t, "di-key", di.APIKey)

	require.Equal(t, []string{"deepinfra", "openrouter"}, cfg.Configured())
	require.Equal(t, []string{"deepinfra"}, cfg.Routing.Fallbacks["openrouter"])
}

func TestValidateRejectsBadValues(t *testing.T) {
	hot := 3.0
	cases := map[string]Config{
		"temperature":   {Server: ServerConfig{BodyLimitMB: 1}, Providers: map[string]ProviderSettings{"x": {Temperature: &hot}}},
		"store":         {Server: ServerConfig{BodyLimitMB: 1}, Catalog: CatalogConfig{Store: "disk"}},
		"redis store":   {Server: ServerConfig{BodyLimitMB: 1}, Catalog: CatalogConfig{Store: "redis"}},
		"limits":        {Server: ServerConfig{BodyLimitMB: 1}, RateLimits: RateLimitConfig{Enabled: true}},
		"self fallback": {Server: ServerConfig{BodyLimitMB: 1}, Routing: RoutingConfig{Fallbacks: map[string][]string{"a": {"A"}}}},
		"negative ttl":  {Server: ServerConfig{BodyLimitMB: 1}, Catalog: CatalogConfig{TTL: -time.Second}},
		"no body limit": {},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, cfg.Validate())
		})
	}
}

func TestDurationAcceptsBareSeconds(t *testing.T) {
	cfg, err := Load(Options{ConfigFile: writeConfig(t, "health:\n  check_interval: 30\n"), EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, cfg.Health.CheckInterval)
	require.Equal(t, 10*time.Second, cfg.Health.ProbeTimeout)
}
