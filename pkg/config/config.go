package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"reflect"
)

// Config represents the application configuration
type Config struct {
	// URL of the service used to discover the host's public IPv6 address
	// +default "https://ifconfig.co"
	QueryServer string `yaml:"queryServer"`

	// Interval between reconciliation passes, as a duration
	// When zero (the default), a single pass is performed and the process exits
	Interval Duration `yaml:"interval"`

	Services  []*ConfigService             `yaml:"services"`
	Providers map[string]ConfigDNSProvider `yaml:"providers"`
	Logs      ConfigLogs                   `yaml:"logs"`
	Server    ConfigServer                 `yaml:"server"`

	// Dev is meant for development only; it's undocumented
	Dev ConfigDev `yaml:"-"`

	// Internal keys
	internal internal `yaml:"-"`
}

// ConfigService represents a single service whose AAAA record is reconciled
type ConfigService struct {
	// Service name, used for logging purposes
	// Defaults to "<recordName>.<fqdn>"
	Name string `yaml:"name"`

	// Domain the record belongs to
	// +required
	FQDN string `yaml:"fqdn"`

	// Name of the AAAA record within the domain
	// +required
	RecordName string `yaml:"recordName"`

	// Interface identifier for the service: an IPv6 address whose last 64 bits
	// are combined with the discovered prefix
	// +required
	Suffix string `yaml:"suffix"`

	// TTL for the record, in seconds
	// +default 300
	TTL int `yaml:"ttl"`

	// Name of the DNS provider to use, referencing a key in the providers map
	// +required
	Provider string `yaml:"provider"`

	suffixAddr netip.Addr
}

// SuffixAddr returns the parsed interface identifier
// It is only set after the configuration has been validated
func (s *ConfigService) SuffixAddr() netip.Addr {
	return s.suffixAddr
}

type ConfigDNSProvider struct {
	// Config for the Gandi LiveDNS provider
	Gandi *GandiConfig `yaml:"gandi"`

	// Config for the Cloudflare provider
	Cloudflare *CloudflareConfig `yaml:"cloudflare"`

	// Config for the Azure DNS provider
	Azure *AzureConfig `yaml:"azure"`
}

// GandiConfig represents Gandi-specific configuration
type GandiConfig struct {
	APIKey string `yaml:"apiKey"`

	// API endpoint, for testing mostly
	// +default "https://api.gandi.net/v5"
	Endpoint string `yaml:"endpoint"`
}

// CloudflareConfig represents Cloudflare-specific configuration
type CloudflareConfig struct {
	APIToken string `yaml:"apiToken"`
	ZoneID   string `yaml:"zoneId"`
}

// AzureConfig represents Azure-specific configuration
type AzureConfig struct {
	SubscriptionID    string `yaml:"subscriptionId"`
	ResourceGroupName string `yaml:"resourceGroupName"`
	ZoneName          string `yaml:"zoneName"`

	// Optional; azidentity's default credential chain is used when unset
	TenantID                string `yaml:"tenantId"`
	ClientID                string `yaml:"clientId"`
	ClientSecret            string `yaml:"clientSecret"`
	ManagedIdentityClientID string `yaml:"managedIdentityClientId"`
}

// ConfigLogs represents logging configuration
type ConfigLogs struct {
	// Controls log level and verbosity. Supported values: `debug`, `info` (default), `warn`, `error`.
	// +default "info"
	Level string `yaml:"level"`

	// If true, emits logs formatted as JSON, otherwise uses a text-based structured log format.
	// Defaults to false if a TTY is attached (e.g. in development); true otherwise.
	JSON bool `yaml:"json"`
}

// ConfigServer represents the status server configuration
// The status server is only started when running with an interval
type ConfigServer struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

// ConfigDev includes options using during development only
type ConfigDev struct {
	EnableCORS bool
}

// Internal properties
type internal struct {
	configFileLoaded string // Path to the config file that was loaded
}

// String implements fmt.Stringer and prints out the config for debugging
func (c *Config) String() string {
	enc, _ := json.Marshal(c)
	return string(enc)
}

// GetLoadedConfigPath returns the path to the config file that was loaded
func (c *Config) GetLoadedConfigPath() string {
	return c.internal.configFileLoaded
}

// SetLoadedConfigPath sets the path to the config file that was loaded
func (c *Config) SetLoadedConfigPath(filePath string) {
	c.internal.configFileLoaded = filePath
}

// Validates the configuration and performs some sanitization
func (c *Config) Validate(logger *slog.Logger) error {
	// Set default values
	if c.QueryServer == "" {
		c.QueryServer = "https://ifconfig.co"
	}

	if len(c.Services) == 0 {
		return errors.New("at least one service must be configured")
	}

	// Ensure that one and only one provider type is set for each configured provider
	for name, p := range c.Providers {
		count := countSetProperties(p)
		if count != 1 {
			return fmt.Errorf("provider '%s' is invalid: exactly one provider type must be configured", name)
		}
	}

	// Validate all services
	for i, s := range c.Services {
		switch {
		case s.FQDN == "":
			return fmt.Errorf("service %d is invalid: 'fqdn' is empty", i)
		case s.RecordName == "":
			return fmt.Errorf("service %d is invalid: 'recordName' is empty", i)
		case s.Suffix == "":
			return fmt.Errorf("service %d is invalid: 'suffix' is empty", i)
		case s.Provider == "":
			return fmt.Errorf("service %d is invalid: 'provider' is empty", i)
		}

		if _, ok := c.Providers[s.Provider]; !ok {
			return fmt.Errorf("service %d references DNS provider '%s' that is not configured", i, s.Provider)
		}

		addr, err := netip.ParseAddr(s.Suffix)
		if err != nil {
			return fmt.Errorf("service %d is invalid: 'suffix' is not a valid IP address: %w", i, err)
		}
		if !addr.Is6() || addr.Is4In6() {
			return fmt.Errorf("service %d is invalid: 'suffix' must be an IPv6 address", i)
		}
		s.suffixAddr = addr

		// Set the default values
		if s.Name == "" {
			s.Name = s.RecordName + "." + s.FQDN
		}
		if s.TTL <= 0 {
			s.TTL = 300
		}
	}

	// The status server requires running on an interval
	if c.Server.Enabled && c.Interval <= 0 {
		logger.Warn("The status server is enabled but no interval is configured; the server will not be started")
		c.Server.Enabled = false
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}

	return nil
}

func countSetProperties(s any) int {
	typ := reflect.TypeOf(s)
	val := reflect.ValueOf(s)

	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
		val = val.Elem()
	}
	if typ.Kind() != reflect.Struct {
		// Indicates a development-time error
		panic("param must be a struct")
	}

	var count int
	for i := range val.NumField() {
		field := val.Field(i)
		if field.IsValid() && !field.IsZero() {
			count++
		}
	}

	return count
}
