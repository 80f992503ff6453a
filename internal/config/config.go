// Package config loads the pipeline configuration from a YAML file with
// environment variable overrides, the way every deploy target (local run,
// CodeBuild, ECS) supplies its secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the attendance pipeline.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	AWS      AWSConfig      `yaml:"aws"`
	Report   ReportConfig   `yaml:"report"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Redis    RedisConfig    `yaml:"redis"`
	RunLog   RunLogConfig   `yaml:"run_log"`
}

// ServerConfig holds the hook HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, listening on all interfaces in containers.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// AWSConfig holds credentials and resource names for S3, SES and SQS.
// Empty AccessKey/SecretKey means the default credential chain (IAM role).
type AWSConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Bucket         string `yaml:"bucket"`
	QueueURL       string `yaml:"queue_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c AWSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ReportConfig holds the filtering and tier computation settings.
type ReportConfig struct {
	// BaseFee is the full monthly subscription fee in rupees.
	BaseFee int `yaml:"base_fee"`
	// DateWindow selects the billing window mode: "none" or "previous-month".
	DateWindow string `yaml:"date_window"`
	// ExcludeHeaders overrides the default sensitive-column exclusion list.
	ExcludeHeaders []string `yaml:"exclude_headers"`
	// MarkerSuffix is appended to the input key for the completion marker.
	MarkerSuffix string `yaml:"marker_suffix"`
}

// DispatchConfig holds email routing settings.
type DispatchConfig struct {
	// AdminEmail receives the audit copy with the assembled CSV attached.
	AdminEmail string `yaml:"admin_email"`
	// SourceEmail is the From address for all outgoing mail.
	SourceEmail string `yaml:"source_email"`
	// ReplaceEmails, when true, overrides every resolved recipient with
	// ReplacementEmail. Staging affordance only; never silently on.
	ReplaceEmails    bool   `yaml:"replace_emails"`
	ReplacementEmail string `yaml:"replacement_email"`
}

// RedisConfig holds the optional Redis connection for the trigger lock.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RunLogConfig holds the optional Postgres run audit log.
type RunLogConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DatabaseURL string `yaml:"database_url"`
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.AWS.TimeoutSeconds == 0 {
		cfg.AWS.TimeoutSeconds = 30
	}
	if cfg.Report.BaseFee == 0 {
		cfg.Report.BaseFee = 5500
	}
	if cfg.Report.DateWindow == "" {
		cfg.Report.DateWindow = "previous-month"
	}
	if cfg.Report.MarkerSuffix == "" {
		cfg.Report.MarkerSuffix = ".emails_sent_marker"
	}
}

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Dispatch.AdminEmail == "" {
		return fmt.Errorf("dispatch.admin_email is required")
	}
	if c.Dispatch.SourceEmail == "" {
		return fmt.Errorf("dispatch.source_email is required")
	}
	if c.AWS.QueueURL == "" {
		return fmt.Errorf("aws.queue_url is required")
	}
	if c.Dispatch.ReplaceEmails && c.Dispatch.ReplacementEmail == "" {
		return fmt.Errorf("dispatch.replacement_email is required when replace_emails is on")
	}
	switch c.Report.DateWindow {
	case "none", "previous-month":
	default:
		return fmt.Errorf("report.date_window must be %q or %q, got %q", "none", "previous-month", c.Report.DateWindow)
	}
	return nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars on CodeBuild/ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY"); v != "" {
		cfg.AWS.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_KEY"); v != "" {
		cfg.AWS.SecretKey = v
	}
	if v := os.Getenv("S3_BUCKET_NAME"); v != "" {
		cfg.AWS.Bucket = v
	}
	if v := os.Getenv("EMAIL_QUEUE_URL"); v != "" {
		cfg.AWS.QueueURL = v
	}
	if v := os.Getenv("TARGET_EMAIL"); v != "" {
		cfg.Dispatch.AdminEmail = v
	}
	if v := os.Getenv("SOURCE_EMAIL"); v != "" {
		cfg.Dispatch.SourceEmail = v
	}
	if v := os.Getenv("REPLACE_EMAILS"); v != "" {
		// Only an explicit "true" enables replacement. The old automation
		// read this flag inverted; the corrected semantics are intentional.
		cfg.Dispatch.ReplaceEmails = v == "true"
	}
	if v := os.Getenv("REPLACEMENT_EMAIL"); v != "" {
		cfg.Dispatch.ReplacementEmail = v
	}
	if v := os.Getenv("BASE_FEE"); v != "" {
		if fee, err := strconv.Atoi(v); err == nil && fee > 0 {
			cfg.Report.BaseFee = fee
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.RunLog.DatabaseURL = v
		cfg.RunLog.Enabled = true
	}

	return cfg, nil
}
