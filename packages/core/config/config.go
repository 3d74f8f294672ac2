package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the gocurl configuration file. Boolean fields are
// pointers so a later layer can tell "explicitly false" apart from
// "not set".
type Config struct {
	Backend        string            `yaml:"backend,omitempty"`
	UserAgent      string            `yaml:"userAgent,omitempty"`
	ConnectTimeout int               `yaml:"connectTimeout,omitempty"` // seconds
	MaxTime        int               `yaml:"maxTime,omitempty"`        // seconds
	MaxRedirects   int               `yaml:"maxRedirects,omitempty"`
	Proxy          string            `yaml:"proxy,omitempty"`
	Insecure       *bool             `yaml:"insecure,omitempty"`
	Verbose        *bool             `yaml:"verbose,omitempty"`
	NoColor        *bool             `yaml:"noColor,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty"` // default headers for every request
}

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetInsecure returns the insecure setting, defaulting to false
func (c *Config) GetInsecure() bool {
	return getBool(c.Insecure, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".gocurl.yml",
	".gocurl.yaml",
}

// LoadConfig loads configuration from the specified path. When the path
// is empty it layers a config file from HOME underneath one from the
// working directory, so per-project settings override per-user ones.
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		file, err := loadConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		return DefaultConfig().Merge(file), nil
	}

	cfg := DefaultConfig()
	if home, err := os.UserHomeDir(); err == nil {
		if p, ok := findConfigFile(home); ok {
			file, err := loadConfigFromFile(p)
			if err != nil {
				return nil, err
			}
			cfg = cfg.Merge(file)
		}
	}
	if p, ok := findConfigFile("."); ok {
		file, err := loadConfigFromFile(p)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(file)
	}
	return cfg, nil
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	if p, ok := findConfigFile(dir); ok {
		file, err := loadConfigFromFile(p)
		if err != nil {
			return nil, err
		}
		return DefaultConfig().Merge(file), nil
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func findConfigFile(dir string) (string, bool) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, true
		}
	}
	return "", false
}

// loadConfigFromFile parses one file. The result holds only the values
// the file actually set, so it can be merged over lower layers.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.Backend != "" {
		result.Backend = other.Backend
	}
	if other.UserAgent != "" {
		result.UserAgent = other.UserAgent
	}
	if other.ConnectTimeout > 0 {
		result.ConnectTimeout = other.ConnectTimeout
	}
	if other.MaxTime > 0 {
		result.MaxTime = other.MaxTime
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Insecure != nil {
		result.Insecure = other.Insecure
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge headers into a fresh map so neither input is mutated
	if len(other.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range other.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}

	return &result
}
