package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dynsix/dynsix/pkg/utils"
)

// Default paths where the config file is searched, in order
var defaultConfigPaths = []string{
	"config.yaml",
	"/etc/dynsix/config.yaml",
}

// Global configuration object
var appConfig *Config

// Get returns the global configuration object
func Get() *Config {
	return appConfig
}

// LoadConfig loads the configuration from the first file found and stores it
// in the global configuration object
// The config file can be passed as the first CLI argument or with the
// DYNSIX_CONFIG environmental variable; otherwise the default paths are searched
func LoadConfig() error {
	paths := defaultConfigPaths
	switch {
	case len(os.Args) > 1 && os.Args[1] != "":
		paths = []string{os.Args[1]}
	case os.Getenv("DYNSIX_CONFIG") != "":
		paths = []string{os.Getenv("DYNSIX_CONFIG")}
	}

	var filePath string
	for _, p := range paths {
		ok, err := utils.FileExists(p)
		if err != nil {
			return fmt.Errorf("failed to check if config file exists at '%s': %w", p, err)
		}
		if ok {
			filePath = p
			break
		}
	}
	if filePath == "" {
		return NewConfigError(
			fmt.Sprintf("could not find a config file in any of the paths: %v", paths),
			"Config file not found",
		)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open config file '%s': %w", filePath, err)
	}
	defer f.Close() //nolint:errcheck

	cfg := &Config{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(cfg)
	if err != nil {
		return NewConfigError(err.Error(), "Failed to parse config file '"+filePath+"'")
	}

	cfg.SetLoadedConfigPath(filePath)
	cfg.Dev = defaultDevConfig
	appConfig = cfg

	return nil
}

// Default dev config, which can be changed at build time
var defaultDevConfig ConfigDev

// ConfigError is a configuration error that carries a message safe to show to users
type ConfigError struct {
	detail string
	msg    string
}

// NewConfigError creates a new ConfigError
func NewConfigError(detail string, msg string) *ConfigError {
	return &ConfigError{
		detail: detail,
		msg:    msg,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return e.msg + ": " + e.detail
}

// LogFatal logs the error and exits the process with a non-zero status code
func (e *ConfigError) LogFatal(log *slog.Logger) {
	log.Error(e.msg, slog.String("detail", e.detail))
	os.Exit(1)
}
