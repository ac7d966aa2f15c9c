// Package config загружает конфигурацию сервера из YAML файла и переменных окружения.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Хранилища индекса refresh токенов
const (
	RefreshStoreMemory = "memory"
	RefreshStoreSQLite = "sqlite"
)

// Config - корневая конфигурация сервера.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. только переменные окружения.
//
// Переменные окружения всегда накладываются поверх значений из файла.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Payment   PaymentConfig   `yaml:"payment"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// HTTPConfig - сетевые настройки HTTP сервера
type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr возвращает адрес в формате host:port
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DBConfig - путь к файлу SQLite
type DBConfig struct {
	Path string `yaml:"path" env:"DB_PATH" env-default:"themeshop.db"`
}

// LogConfig - настройки логирования
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// SlogLevel переводит уровень из конфига в slog.Level.
// Неизвестные значения дают info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AuthConfig - параметры выпуска и валидации токенов
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer          string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"themeshop"`
	RefreshStore    string        `yaml:"refresh_store" env:"REFRESH_STORE" env-default:"sqlite"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"1h"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"TOKEN_CLEANUP_INTERVAL" env-default:"10m"`
}

// PaymentConfig - параметры платежного шлюза (Stripe)
type PaymentConfig struct {
	StripeAPIKey  string `yaml:"stripe_api_key" env:"STRIPE_API_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	// APIURL переопределяет адрес Stripe API (например stripe-mock)
	APIURL     string `yaml:"api_url" env:"STRIPE_API_URL"`
	SuccessURL string `yaml:"success_url" env:"PAYMENT_SUCCESS_URL" env-default:"http://localhost:3000/?success=true"`
	CancelURL  string `yaml:"cancel_url" env:"PAYMENT_CANCEL_URL" env-default:"http://localhost:3000/?canceled=true"`
	Currency   string `yaml:"currency" env:"PAYMENT_CURRENCY" env-default:"usd"`
	// InsecureSkipWebhookVerification разрешает работу без webhook секрета
	InsecureSkipWebhookVerification bool          `yaml:"insecure_skip_webhook_verification" env:"PAYMENT_INSECURE_SKIP_WEBHOOK_VERIFICATION" env-default:"false"`
	GatewayTimeout                  time.Duration `yaml:"gateway_timeout" env:"PAYMENT_GATEWAY_TIMEOUT" env-default:"10s"`
	PendingTTL                      time.Duration `yaml:"pending_ttl" env:"PAYMENT_PENDING_TTL" env-default:"24h"`
	SweepInterval                   time.Duration `yaml:"sweep_interval" env:"PAYMENT_SWEEP_INTERVAL" env-default:"5m"`
	MaxNetworkRetries               int64         `yaml:"max_network_retries" env:"STRIPE_MAX_NETWORK_RETRIES" env-default:"2"`
}

// RateLimitConfig - ограничение частоты запросов к /auth на IP
type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst             int           `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" env:"RATE_LIMIT_CLEANUP_INTERVAL" env-default:"1m"`
	Disabled          bool          `yaml:"disabled" env:"RATE_LIMIT_DISABLED"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers" env:"RATE_LIMIT_TRUST_PROXY" env-default:"false"`
}

// Validate проверяет значения, которые нельзя выразить через теги cleanenv
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (JWT_SECRET) is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.access_token_ttl must be positive"))
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("auth.refresh_token_ttl must be longer than auth.access_token_ttl"))
	}
	switch c.Auth.RefreshStore {
	case RefreshStoreMemory, RefreshStoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("auth.refresh_store must be %q or %q, got %q",
			RefreshStoreMemory, RefreshStoreSQLite, c.Auth.RefreshStore))
	}

	if c.Payment.StripeAPIKey == "" {
		errs = append(errs, errors.New("payment.stripe_api_key (STRIPE_API_KEY) is required"))
	}
	if c.Payment.WebhookSecret == "" && !c.Payment.InsecureSkipWebhookVerification {
		errs = append(errs, errors.New("payment.webhook_secret (STRIPE_WEBHOOK_SECRET) is required; "+
			"set PAYMENT_INSECURE_SKIP_WEBHOOK_VERIFICATION=true to accept unsigned webhooks"))
	}
	if c.Payment.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("payment.gateway_timeout must be positive"))
	}

	if !c.RateLimit.Disabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limit requires positive requests_per_second and burst"))
	}

	return errors.Join(errs...)
}

// MustLoad - обертка над Load с panic при ошибке
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает и валидирует конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	// явный путь или CONFIG_PATH
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", path, err)
		}
		// ReadConfig накладывает ENV поверх значений из файла
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}
		return &cfg, nil
	}

	// только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	return &cfg, nil
}
