package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"medow/internal/logger"
	"medow/pkg/models"
)

const (
	DefaultUserAgent         = "Mozilla/5.0 Linux Medow/0.1"
	DefaultAPIURL            = "https://mediathekviewweb.de"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 2.0
	DefaultQualityPolicy     = "sd-first"

	ConfigDir  = ".medow"
	ConfigFile = "medow.yml"
)

// configDirOverride lets tests point the loader at a temporary directory
var configDirOverride string

func GetConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	if dir := os.Getenv("MEDOW_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ConfigDir), nil
}

func EnsureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(configDir, 0755)
}

// Default returns a configuration with every field set to its default
func Default() *models.Config {
	return &models.Config{
		UserAgent:         DefaultUserAgent,
		APIURL:            DefaultAPIURL,
		Timeout:           DefaultTimeout,
		RequestsPerSecond: DefaultRequestsPerSecond,
		QualityPolicy:     DefaultQualityPolicy,
	}
}

func LoadConfig() (*models.Config, error) {
	if err := EnsureConfigDir(); err != nil {
		return nil, err
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, ConfigFile)
	config := Default()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Create default config if it doesn't exist
		return config, SaveConfig(config)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.QualityPolicy == "" {
		config.QualityPolicy = DefaultQualityPolicy
	}

	return config, nil
}

func SaveConfig(config *models.Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, ConfigFile)
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Flags carries the command line overrides; zero values mean "not set"
type Flags struct {
	UserAgent     string
	APIURL        string
	Timeout       time.Duration
	QualityPolicy string
}

// MergeWithFlags merges configuration with command line flags and environment variables
// Priority: flags > config file > environment variables
func MergeWithFlags(config *models.Config, flags Flags) {
	if flags.UserAgent != "" {
		config.UserAgent = flags.UserAgent
	} else if envUA := os.Getenv("MEDOW_USER_AGENT"); envUA != "" && config.UserAgent == DefaultUserAgent {
		config.UserAgent = envUA
	}

	if flags.APIURL != "" {
		config.APIURL = flags.APIURL
	} else if envURL := os.Getenv("MEDOW_API_URL"); envURL != "" && config.APIURL == DefaultAPIURL {
		config.APIURL = envURL
	}

	if flags.Timeout != 0 {
		config.Timeout = flags.Timeout
	} else if envTimeout := os.Getenv("MEDOW_TIMEOUT"); envTimeout != "" && config.Timeout == DefaultTimeout {
		if parsed, err := time.ParseDuration(envTimeout); err == nil {
			config.Timeout = parsed
		}
	}

	if envRate := os.Getenv("MEDOW_REQUESTS_PER_SECOND"); envRate != "" && config.RequestsPerSecond == DefaultRequestsPerSecond {
		if parsed, err := strconv.ParseFloat(envRate, 64); err == nil {
			config.RequestsPerSecond = parsed
		}
	}

	if flags.QualityPolicy != "" {
		config.QualityPolicy = flags.QualityPolicy
	} else if envPolicy := os.Getenv("MEDOW_QUALITY_POLICY"); envPolicy != "" && config.QualityPolicy == DefaultQualityPolicy {
		config.QualityPolicy = envPolicy
	}
}

func ValidateConfig(config *models.Config) error {
	if config.UserAgent == "" {
		return fmt.Errorf("user agent is required (--user-agent, config file, or MEDOW_USER_AGENT env var)")
	}
	if config.APIURL == "" {
		return fmt.Errorf("API URL is required (--api-url, config file, or MEDOW_API_URL env var)")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", config.Timeout)
	}
	if config.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", config.RequestsPerSecond)
	}
	switch config.QualityPolicy {
	case "sd-first", "hd-first":
	default:
		return fmt.Errorf("quality_policy must be sd-first or hd-first, got %q", config.QualityPolicy)
	}

	if config.Timeout == 0 {
		logger.Warn("No request timeout configured. A hanging search will wait indefinitely.")
	}

	return nil
}
