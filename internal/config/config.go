package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server config
	Server ServerConfig

	// CSRF and session cookie config
	Security SecurityConfig

	// Analysis service config
	Analysis AnalysisConfig

	// Upload and download limits
	Limits LimitsConfig

	Log LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string
	Environment  string // development, staging, production
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	CSRFKey            string
	SecureCookies      bool
	TrustedOrigins     []string
	SessionCookieName  string
	SessionIdleTimeout time.Duration
	MaxSessions        int
}

// AnalysisConfig describes the external analysis service.
type AnalysisConfig struct {
	BaseURL string
	Timeout time.Duration
	// ResumeID and JobID are the placeholder identifiers sent on every
	// analyze request.
	ResumeID       int
	JobID          int
	IncludeContent bool
}

// LimitsConfig holds size limits.
type LimitsConfig struct {
	MaxUploadBytes   int64
	MaxDownloadBytes int64
}

// LogConfig selects zap's level and encoder.
type LogConfig struct {
	Level  string
	Format string
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "90s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "60s")

	v.SetDefault("CSRF_SECURE", false)
	v.SetDefault("CSRF_TRUSTED_ORIGINS", "")
	v.SetDefault("SESSION_COOKIE_NAME", "resume_optimizer_session")
	v.SetDefault("SESSION_IDLE_TIMEOUT", "2h")
	v.SetDefault("SESSION_MAX_COUNT", 10000)

	v.SetDefault("ANALYSIS_BASE_URL", "http://127.0.0.1:5000")
	v.SetDefault("ANALYSIS_TIMEOUT", "60s")
	v.SetDefault("ANALYSIS_RESUME_ID", 1)
	v.SetDefault("ANALYSIS_JOB_ID", 1)
	v.SetDefault("ANALYSIS_INCLUDE_CONTENT", false)

	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("MAX_DOWNLOAD_BYTES", 20<<20)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// Load reads .env (if present), an optional config.yaml and the environment.
// Environment variables win over the file.
func Load() (*Config, error) {
	// .env is a local development convenience; missing is fine
	_ = godotenv.Load()
	return LoadFrom(viper.New())
}

// LoadFrom builds a Config from v. Tests pass their own viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Address:      v.GetString("SERVER_ADDRESS"),
			Environment:  v.GetString("APP_ENV"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Security: SecurityConfig{
			CSRFKey:            v.GetString("CSRF_KEY"),
			SecureCookies:      v.GetBool("CSRF_SECURE"),
			TrustedOrigins:     strings.Fields(v.GetString("CSRF_TRUSTED_ORIGINS")),
			SessionCookieName:  v.GetString("SESSION_COOKIE_NAME"),
			SessionIdleTimeout: v.GetDuration("SESSION_IDLE_TIMEOUT"),
			MaxSessions:        v.GetInt("SESSION_MAX_COUNT"),
		},
		Analysis: AnalysisConfig{
			BaseURL:        strings.TrimRight(v.GetString("ANALYSIS_BASE_URL"), "/"),
			Timeout:        v.GetDuration("ANALYSIS_TIMEOUT"),
			ResumeID:       v.GetInt("ANALYSIS_RESUME_ID"),
			JobID:          v.GetInt("ANALYSIS_JOB_ID"),
			IncludeContent: v.GetBool("ANALYSIS_INCLUDE_CONTENT"),
		},
		Limits: LimitsConfig{
			MaxUploadBytes:   v.GetInt64("MAX_UPLOAD_BYTES"),
			MaxDownloadBytes: v.GetInt64("MAX_DOWNLOAD_BYTES"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
	}
	// production always gets secure cookies
	if cfg.IsProduction() {
		cfg.Security.SecureCookies = true
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks that all required configuration is present and valid.
func (c *Config) validate() error {
	var errs []error

	if c.Security.CSRFKey == "" {
		errs = append(errs, errors.New("CSRF_KEY is required"))
	} else if len(c.Security.CSRFKey) < 32 {
		errs = append(errs, errors.New("CSRF_KEY must be at least 32 characters"))
	}

	if u, err := url.Parse(c.Analysis.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("ANALYSIS_BASE_URL must be an absolute URL (got: %q)", c.Analysis.BaseURL))
	}
	if c.Analysis.Timeout <= 0 {
		errs = append(errs, errors.New("ANALYSIS_TIMEOUT must be positive"))
	}
	if c.Limits.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.Limits.MaxDownloadBytes <= 0 {
		errs = append(errs, errors.New("MAX_DOWNLOAD_BYTES must be positive"))
	}
	if c.Security.MaxSessions <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_COUNT must be positive"))
	}
	if c.Security.SessionCookieName == "" {
		errs = append(errs, errors.New("SESSION_COOKIE_NAME must not be empty"))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}
	return nil
}

// MustLoad is like Load but panics on error.
// Used in main() where its required to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
