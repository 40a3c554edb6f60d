package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Loads config from file", func(t *testing.T) {
		path := writeTestConfigFile(t, `
queryServer: "https://ip.example.com"
interval: 5m
services:
  - fqdn: "example.com"
    recordName: "www"
    suffix: "::ab:cd:ef:1"
    provider: "gandi-main"
providers:
  gandi-main:
    gandi:
      apiKey: "test-key"
`)
		setTestArgs(t, path)

		err := LoadConfig()
		require.NoError(t, err)

		cfg := Get()
		require.NotNil(t, cfg)
		assert.Equal(t, "https://ip.example.com", cfg.QueryServer)
		assert.Equal(t, Duration(5*time.Minute), cfg.Interval)
		assert.Equal(t, path, cfg.GetLoadedConfigPath())

		require.Len(t, cfg.Services, 1)
		assert.Equal(t, "example.com", cfg.Services[0].FQDN)

		require.Contains(t, cfg.Providers, "gandi-main")
		require.NotNil(t, cfg.Providers["gandi-main"].Gandi)
		assert.Equal(t, "test-key", cfg.Providers["gandi-main"].Gandi.APIKey)
	})

	t.Run("Rejects unknown fields", func(t *testing.T) {
		path := writeTestConfigFile(t, `
queryServer: "https://ip.example.com"
notARealOption: true
`)
		setTestArgs(t, path)

		err := LoadConfig()
		require.Error(t, err)

		var confErr *ConfigError
		require.ErrorAs(t, err, &confErr)
	})

	t.Run("Missing config file", func(t *testing.T) {
		setTestArgs(t, filepath.Join(t.TempDir(), "does-not-exist.yaml"))

		err := LoadConfig()
		require.Error(t, err)

		var confErr *ConfigError
		require.ErrorAs(t, err, &confErr)
		assert.Contains(t, confErr.Error(), "Config file not found")
	})
}

func TestConfigValidate(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Sets default values", func(t *testing.T) {
		cfg := validTestConfig()

		err := cfg.Validate(log)
		require.NoError(t, err)

		assert.Equal(t, "https://ifconfig.co", cfg.QueryServer)
		assert.Equal(t, "www.example.com", cfg.Services[0].Name)
		assert.Equal(t, 300, cfg.Services[0].TTL)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("Parses the service suffix", func(t *testing.T) {
		cfg := validTestConfig()

		err := cfg.Validate(log)
		require.NoError(t, err)

		assert.Equal(t, "::ab:cd:ef:1", cfg.Services[0].SuffixAddr().String())
	})

	t.Run("Preserves explicit values", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.QueryServer = "https://ip.example.com"
		cfg.Services[0].Name = "web"
		cfg.Services[0].TTL = 60

		err := cfg.Validate(log)
		require.NoError(t, err)

		assert.Equal(t, "https://ip.example.com", cfg.QueryServer)
		assert.Equal(t, "web", cfg.Services[0].Name)
		assert.Equal(t, 60, cfg.Services[0].TTL)
	})

	t.Run("Requires at least one service", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Services = nil

		err := cfg.Validate(log)
		require.Error(t, err)
		require.ErrorContains(t, err, "at least one service")
	})

	t.Run("Requires service fields", func(t *testing.T) {
		for _, field := range []string{"fqdn", "recordName", "suffix", "provider"} {
			cfg := validTestConfig()
			switch field {
			case "fqdn":
				cfg.Services[0].FQDN = ""
			case "recordName":
				cfg.Services[0].RecordName = ""
			case "suffix":
				cfg.Services[0].Suffix = ""
			case "provider":
				cfg.Services[0].Provider = ""
			}

			err := cfg.Validate(log)
			require.Error(t, err)
			require.ErrorContains(t, err, "'"+field+"' is empty")
		}
	})

	t.Run("Rejects unknown provider reference", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Services[0].Provider = "nope"

		err := cfg.Validate(log)
		require.Error(t, err)
		require.ErrorContains(t, err, "not configured")
	})

	t.Run("Rejects invalid suffix", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Services[0].Suffix = "not-an-ip"

		err := cfg.Validate(log)
		require.Error(t, err)
		require.ErrorContains(t, err, "not a valid IP address")
	})

	t.Run("Rejects IPv4 suffix", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Services[0].Suffix = "10.0.0.1"

		err := cfg.Validate(log)
		require.Error(t, err)
		require.ErrorContains(t, err, "must be an IPv6 address")
	})

	t.Run("Rejects provider with no type set", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Providers["gandi-main"] = ConfigDNSProvider{}

		err := cfg.Validate(log)
		require.Error(t, err)
		require.ErrorContains(t, err, "exactly one provider type")
	})

	t.Run("Rejects provider with multiple types set", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Providers["gandi-main"] = ConfigDNSProvider{
			Gandi:      &GandiConfig{APIKey: "a"},
			Cloudflare: &CloudflareConfig{APIToken: "b", ZoneID: "c"},
		}

		err := cfg.Validate(log)
		require.Error(t, err)
		require.ErrorContains(t, err, "exactly one provider type")
	})

	t.Run("Disables the status server without an interval", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.Enabled = true
		cfg.Interval = 0

		err := cfg.Validate(log)
		require.NoError(t, err)
		assert.False(t, cfg.Server.Enabled)
	})

	t.Run("Keeps the status server with an interval", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.Enabled = true
		cfg.Interval = Duration(time.Minute)

		err := cfg.Validate(log)
		require.NoError(t, err)
		assert.True(t, cfg.Server.Enabled)
	})
}

func TestDurationUnmarshalYAML(t *testing.T) {
	tests := []struct {
		input   string
		want    Duration
		wantErr bool
	}{
		{input: `"5m"`, want: Duration(5 * time.Minute)},
		{input: `"1h30m"`, want: Duration(90 * time.Minute)},
		{input: `300`, want: Duration(300 * time.Second)},
		{input: `"0"`, want: Duration(0)},
		{input: `"banana"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var d Duration
			err := yaml.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestCountSetProperties(t *testing.T) {
	assert.Equal(t, 0, countSetProperties(ConfigDNSProvider{}))
	assert.Equal(t, 1, countSetProperties(ConfigDNSProvider{
		Gandi: &GandiConfig{APIKey: "a"},
	}))
	assert.Equal(t, 2, countSetProperties(ConfigDNSProvider{
		Gandi: &GandiConfig{APIKey: "a"},
		Azure: &AzureConfig{SubscriptionID: "b"},
	}))
}

func validTestConfig() *Config {
	return &Config{
		Services: []*ConfigService{
			{
				FQDN:       "example.com",
				RecordName: "www",
				Suffix:     "::ab:cd:ef:1",
				Provider:   "gandi-main",
			},
		},
		Providers: map[string]ConfigDNSProvider{
			"gandi-main": {
				Gandi: &GandiConfig{APIKey: "test-key"},
			},
		},
	}
}

func writeTestConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)
	return path
}

// setTestArgs points the config loader at the given file, restoring os.Args
// when the test ends
func setTestArgs(t *testing.T, path string) {
	t.Helper()

	oldArgs := os.Args
	os.Args = []string{oldArgs[0], path}
	t.Cleanup(func() {
		os.Args = oldArgs
	})
}
