// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like DATABASE_POSTGRES_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the first candidate location that exists.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("Loaded .env from: %s\n", path)
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			v.Set(key, os.ExpandEnv(strVal))
		}
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Scoring.APIKey == "" {
		switch cfg.Scoring.Provider {
		case "gemini":
			cfg.Scoring.APIKey = firstEnv("LLM_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
		default:
			cfg.Scoring.APIKey = firstEnv("LLM_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY")
		}
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = firstEnv("JWT_SECRET", "SUPABASE_JWT_SECRET")
	}

	if cfg.Notifications.Email.ResendAPIKey == "" {
		cfg.Notifications.Email.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	}
	if cfg.Notifications.Email.FromEmail == "" {
		if val := os.Getenv("EMAIL_FROM"); val != "" {
			cfg.Notifications.Email.FromEmail = val
		}
	}

	if cfg.Tasks.AMQPURL == "" {
		cfg.Tasks.AMQPURL = os.Getenv("RABBITMQ_URL")
	}

	if len(cfg.Server.CORSOrigins) == 0 {
		if val := os.Getenv("CORS_ORIGINS"); val != "" {
			for _, origin := range strings.Split(val, ",") {
				if origin = strings.TrimSpace(origin); origin != "" {
					cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, origin)
				}
			}
		}
		if frontend := os.Getenv("FRONTEND_URL"); frontend != "" {
			cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, frontend)
		}
	}

	if cfg.PDF.LicenseKey == "" {
		cfg.PDF.LicenseKey = os.Getenv("UNIDOC_LICENSE_API_KEY")
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "hris-api"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownGrace == 0 {
		cfg.Server.ShutdownGrace = 30000
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// Rate limit defaults
	if cfg.PDF.Backend == "" {
		cfg.PDF.Backend = "auto"
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if cfg.RateLimit.PerIP == 0 {
		cfg.RateLimit.PerIP = 10
	}
	if cfg.RateLimit.PerProject == 0 {
		cfg.RateLimit.PerProject = 100
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 3600
	}
	if cfg.RateLimit.SweepInterval == 0 {
		cfg.RateLimit.SweepInterval = 300000
	}

	// Intake defaults
	if cfg.Intake.MaxFileSize == 0 {
		cfg.Intake.MaxFileSize = 5 * 1024 * 1024
	}
	if cfg.Intake.MinTextLength == 0 {
		cfg.Intake.MinTextLength = 500
	}
	if cfg.Intake.MaxTextLength == 0 {
		cfg.Intake.MaxTextLength = 50000
	}
	if cfg.Intake.MaxGarbageRatio == 0 {
		cfg.Intake.MaxGarbageRatio = 0.3
	}
	if cfg.Intake.MaxOCRArtifacts == 0 {
		cfg.Intake.MaxOCRArtifacts = 10
	}
	if cfg.Intake.MinRelevanceTerms == 0 {
		cfg.Intake.MinRelevanceTerms = 3
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = cfg.Intake.MaxFileSize + 1<<20
	}

	// Scoring defaults
	if cfg.Scoring.Provider == "" {
		cfg.Scoring.Provider = "openai"
	}
	if cfg.Scoring.Model == "" {
		if cfg.Scoring.Provider == "gemini" {
			cfg.Scoring.Model = "gemini-2.0-flash"
		} else {
			cfg.Scoring.Model = "llama-3.1-8b-instant"
		}
	}
	if cfg.Scoring.BaseURL == "" && cfg.Scoring.Provider == "openai" {
		cfg.Scoring.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Scoring.Timeout == 0 {
		cfg.Scoring.Timeout = 60000
	}
	if cfg.Scoring.PassThreshold == 0 {
		cfg.Scoring.PassThreshold = 50
	}
	if cfg.Scoring.MaxRetries == 0 {
		cfg.Scoring.MaxRetries = 3
	}

	// Task delivery defaults
	if cfg.Tasks.Backend == "" {
		cfg.Tasks.Backend = "inprocess"
	}
	if cfg.Tasks.Workers == 0 {
		cfg.Tasks.Workers = 4
	}
	if cfg.Tasks.QueueSize == 0 {
		cfg.Tasks.QueueSize = 100
	}
	if cfg.Tasks.QueueName == "" {
		cfg.Tasks.QueueName = "cv-scoring"
	}
	if cfg.Tasks.Prefetch == 0 {
		cfg.Tasks.Prefetch = cfg.Tasks.Workers
	}
	if cfg.Tasks.ProcessID == "" {
		cfg.Tasks.ProcessID = "cv-screening"
	}

	if cfg.Auth.LeewaySeconds == 0 {
		cfg.Auth.LeewaySeconds = 120
	}

	// Notification defaults
	if cfg.Notifications.Email.Provider == "" {
		if cfg.Notifications.Email.ResendAPIKey != "" {
			cfg.Notifications.Email.Provider = "resend"
		} else {
			cfg.Notifications.Email.Provider = "log"
		}
	}
	if cfg.Notifications.Email.FromEmail == "" {
		cfg.Notifications.Email.FromEmail = "onboarding@resend.dev"
	}
	if cfg.Notifications.Email.ResendBaseURL == "" {
		cfg.Notifications.Email.ResendBaseURL = "https://api.resend.com"
	}
	if cfg.Notifications.Email.Timeout == 0 {
		cfg.Notifications.Email.Timeout = 10000
	}
	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}

	// Policy defaults
	if cfg.Policy.Dir == "" {
		cfg.Policy.Dir = "policies"
	}
	if cfg.Policy.Index == "" {
		cfg.Policy.Index = "policy-logs"
	}
	if cfg.Policy.CacheTTL == 0 {
		cfg.Policy.CacheTTL = 600
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	switch cfg.RateLimit.Backend {
	case "memory":
	case "redis":
		if !cfg.Database.Redis.Enabled() {
			return fmt.Errorf("database.redis.address is required for the redis rate limiter")
		}
	default:
		return fmt.Errorf("ratelimit.backend must be memory or redis, got %q", cfg.RateLimit.Backend)
	}

	switch cfg.Tasks.Backend {
	case "inprocess":
	case "amqp":
		if cfg.Tasks.AMQPURL == "" {
			return fmt.Errorf("tasks.amqp_url is required for the amqp backend")
		}
	case "zeebe":
		if cfg.Camunda.BrokerAddress == "" {
			return fmt.Errorf("camunda.broker_address is required for the zeebe backend")
		}
	default:
		return fmt.Errorf("tasks.backend must be inprocess, amqp or zeebe, got %q", cfg.Tasks.Backend)
	}

	switch cfg.PDF.Backend {
	case "auto", "native":
	case "unipdf":
		if cfg.PDF.LicenseKey == "" {
			return fmt.Errorf("pdf.license_key is required for the unipdf backend")
		}
	default:
		return fmt.Errorf("pdf.backend must be auto, native or unipdf, got %q", cfg.PDF.Backend)
	}

	switch cfg.Scoring.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("scoring.provider must be gemini or openai, got %q", cfg.Scoring.Provider)
	}

	switch cfg.Notifications.Email.Provider {
	case "ses", "log":
	case "resend":
		if cfg.Notifications.Email.ResendAPIKey == "" {
			return fmt.Errorf("notifications.email.resend_api_key is required for the resend provider")
		}
	default:
		return fmt.Errorf("notifications.email.provider must be ses, resend or log, got %q", cfg.Notifications.Email.Provider)
	}

	if cfg.Intake.MaxGarbageRatio <= 0 || cfg.Intake.MaxGarbageRatio >= 1 {
		return fmt.Errorf("intake.max_garbage_ratio must be between 0 and 1")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
