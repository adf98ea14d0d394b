package models

import (
	"time"
)

type Config struct {
	UserAgent         string        `yaml:"user_agent"`
	APIURL            string        `yaml:"api_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	QualityPolicy     string        `yaml:"quality_policy"`
}

type ServerConfig struct {
	Port          int
	RateLimit     int
	SessionMaxAge time.Duration
}
