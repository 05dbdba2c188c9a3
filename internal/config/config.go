package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ticketify/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Database   DatabaseConfig   `yaml:"database"`
	Directory  DirectoryConfig  `yaml:"directory"`
	Admin      AdminConfig      `yaml:"admin"`
	Notify     NotifyConfig     `yaml:"notify"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	Attempts  APIAttemptsConfig  `yaml:"attempts"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
	// WriteTimeout bounds a whole submit: queueing for the admission mutex
	// plus the notification. Defaults to notify.timeout + 30s.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// APIAttemptsConfig caps verify/submit calls per client within a window.
type APIAttemptsConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type BookingConfig struct {
	OpensAt          string  `yaml:"opens_at"`
	ClosesAt         string  `yaml:"closes_at"`
	EarlyBirdCap     int     `yaml:"early_bird_cap"`
	StandardPrice    float64 `yaml:"standard_price"`
	StandardCategory string  `yaml:"standard_category"`
}

// Window parses the configured booking window. A zero bound is unbounded.
func (b BookingConfig) Window() (models.Window, error) {
	var w models.Window
	if strings.TrimSpace(b.OpensAt) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(b.OpensAt))
		if err != nil {
			return w, fmt.Errorf("booking.opens_at: %w", err)
		}
		w.Open = t
	}
	if strings.TrimSpace(b.ClosesAt) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(b.ClosesAt))
		if err != nil {
			return w, fmt.Errorf("booking.closes_at: %w", err)
		}
		w.Close = t
	}
	if !w.Open.IsZero() && !w.Close.IsZero() && !w.Close.After(w.Open) {
		return w, errors.New("booking.closes_at must be after booking.opens_at")
	}
	return w, nil
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, file
	Path   string `yaml:"path"`
}

type DirectoryConfig struct {
	Path string `yaml:"path"`
}

type AdminConfig struct {
	PasswordFile string `yaml:"password_file"`
}

type NotifyConfig struct {
	Driver         string               `yaml:"driver"` // webhook, telegram, log
	Timeout        time.Duration        `yaml:"timeout"`
	Webhook        WebhookConfig        `yaml:"webhook"`
	Telegram       TelegramConfig       `yaml:"telegram"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Redelivery     RedeliveryConfig     `yaml:"redelivery"`
}

type WebhookConfig struct {
	URL string `yaml:"url"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRequests      uint32        `yaml:"max_requests"`
}

type RedeliveryConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Interval     time.Duration `yaml:"interval"`
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	// Jitter spreads each retry by up to this fraction either way.
	Jitter float64 `yaml:"jitter"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	switch c.Database.Driver {
	case "sqlite", "file":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Directory.Path == "" {
		return errors.New("directory path is required")
	}
	if c.Admin.PasswordFile == "" {
		return errors.New("admin password_file is required")
	}

	switch c.Notify.Driver {
	case "webhook":
		if c.Notify.Webhook.URL == "" {
			return errors.New("notify.webhook.url is required for the webhook driver")
		}
	case "telegram":
		if c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == 0 {
			return errors.New("notify.telegram.bot_token and chat_id are required for the telegram driver")
		}
	case "log":
	default:
		return fmt.Errorf("unknown notify driver %q", c.Notify.Driver)
	}

	if c.API.HTTP.WriteTimeout > 0 && c.API.HTTP.WriteTimeout <= c.Notify.Timeout {
		return errors.New("api.http.write_timeout must exceed notify.timeout")
	}
	if j := c.Notify.Redelivery.Jitter; j < 0 || j >= 1 {
		return errors.New("notify.redelivery.jitter must be in [0, 1)")
	}

	if _, err := c.Booking.Window(); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 3000
	}
	if c.API.Attempts.Limit == 0 {
		c.API.Attempts.Limit = models.DefaultAttemptLimit
	}
	if c.API.Attempts.Window == 0 {
		c.API.Attempts.Window = models.DefaultAttemptWindow
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Booking.EarlyBirdCap == 0 {
		c.Booking.EarlyBirdCap = models.DefaultEarlyBirdCap
	}
	if c.Booking.StandardPrice == 0 {
		c.Booking.StandardPrice = models.StandardSeatPrice
	}
	if c.Booking.StandardCategory == "" {
		c.Booking.StandardCategory = models.CategoryStandard
	}

	if c.Notify.Driver == "" {
		c.Notify.Driver = "log"
	}
	if c.Notify.Timeout == 0 {
		c.Notify.Timeout = models.DefaultNotifyTimeout
	}
	if c.Notify.CircuitBreaker.FailureThreshold == 0 {
		c.Notify.CircuitBreaker.FailureThreshold = 5
	}
	if c.Notify.CircuitBreaker.Timeout == 0 {
		c.Notify.CircuitBreaker.Timeout = 30 * time.Second
	}
	if c.Notify.CircuitBreaker.MaxRequests == 0 {
		c.Notify.CircuitBreaker.MaxRequests = 1
	}
	if c.Notify.Redelivery.Interval == 0 {
		c.Notify.Redelivery.Interval = time.Minute
	}
	if c.API.HTTP.WriteTimeout == 0 {
		c.API.HTTP.WriteTimeout = c.Notify.Timeout + 30*time.Second
	}

	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
}
