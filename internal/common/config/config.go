// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Camunda       CamundaConfig      `mapstructure:"camunda"`
	Database      DatabaseConfig     `mapstructure:"database"`
	RateLimit     RateLimitConfig    `mapstructure:"ratelimit"`
	Intake        IntakeConfig       `mapstructure:"intake"`
	Scoring       ScoringConfig      `mapstructure:"scoring"`
	Tasks         TasksConfig        `mapstructure:"tasks"`
	Auth          AuthConfig         `mapstructure:"auth"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Policy        PolicyConfig       `mapstructure:"policy"`
	PDF           PDFConfig          `mapstructure:"pdf"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	ReadTimeout    int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownGrace  int      `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// Enabled reports whether any elasticsearch endpoint is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether a redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// --- Recruitment Pipeline Configuration ---

// RateLimitConfig selects the limiter backend and the submission quotas.
type RateLimitConfig struct {
	Backend       string `mapstructure:"backend"` // "memory" or "redis"
	PerIP         int    `mapstructure:"per_ip"`
	PerProject    int    `mapstructure:"per_project"`
	WindowSeconds int    `mapstructure:"window_seconds"`
	SweepInterval int    `mapstructure:"sweep_interval"` // milliseconds
}

// Window returns the sliding window length.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// IntakeConfig holds the CV gate thresholds.
type IntakeConfig struct {
	MaxFileSize       int64   `mapstructure:"max_file_size"`
	MinTextLength     int     `mapstructure:"min_text_length"`
	MaxTextLength     int     `mapstructure:"max_text_length"`
	MaxGarbageRatio   float64 `mapstructure:"max_garbage_ratio"`
	MaxOCRArtifacts   int     `mapstructure:"max_ocr_artifacts"`
	MinRelevanceTerms int     `mapstructure:"min_relevance_terms"`
}

// ScoringConfig configures the model used for CV screening and policy Q&A.
type ScoringConfig struct {
	Provider      string `mapstructure:"provider"` // "gemini" or "openai"
	Model         string `mapstructure:"model"`
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
	PassThreshold int    `mapstructure:"pass_threshold"`
	MaxRetries    int    `mapstructure:"max_retries"`
}

// TasksConfig selects how background scoring tasks are delivered.
type TasksConfig struct {
	Backend   string `mapstructure:"backend"` // "inprocess", "amqp" or "zeebe"
	Workers   int    `mapstructure:"workers"`
	QueueSize int    `mapstructure:"queue_size"`
	AMQPURL   string `mapstructure:"amqp_url"`
	QueueName string `mapstructure:"queue_name"`
	Prefetch  int    `mapstructure:"prefetch"`
	ProcessID string `mapstructure:"process_id"`
}

// AuthConfig holds settings for HR bearer token verification.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	LeewaySeconds int    `mapstructure:"leeway_seconds"`
}

// NotificationConfig holds settings for decision emails and status events.
type NotificationConfig struct {
	Email struct {
		Provider      string `mapstructure:"provider"` // "ses", "resend" or "log"
		FromEmail     string `mapstructure:"from_email"`
		ResendAPIKey  string `mapstructure:"resend_api_key"`
		ResendBaseURL string `mapstructure:"resend_base_url"`
		Timeout       int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"email"`
	Events struct {
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"events"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// PolicyConfig holds settings for the policy document store and Q&A.
type PolicyConfig struct {
	Dir      string `mapstructure:"dir"`
	Index    string `mapstructure:"index"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

// PDFConfig selects the PDF text backend. unipdf needs a metered license key.
type PDFConfig struct {
	Backend    string `mapstructure:"backend"`
	LicenseKey string `mapstructure:"license_key"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
