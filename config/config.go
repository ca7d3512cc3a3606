package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
// Values come from an optional YAML file (CONFIG_FILE), then environment
// variables, with .env loaded into the environment first.
type Config struct {
	CatalogPath  string `yaml:"catalog_path" validate:"required"`
	NearestCount int    `yaml:"nearest_count" validate:"min=1,max=10"`

	MaxConcurrency int    `yaml:"max_concurrency" validate:"min=1"`
	FetchTimeoutMs int    `yaml:"fetch_timeout_ms" validate:"min=100"`
	FetchRetries   int    `yaml:"fetch_retries" validate:"min=1,max=5"`
	RetryBaseMs    int    `yaml:"retry_base_ms" validate:"min=0"`
	FetchMode      string `yaml:"fetch_mode" validate:"oneof=http browser"`
	ChromeBin      string `yaml:"chrome_bin"`
	UserAgent      string `yaml:"user_agent"`

	ListenAddr string `yaml:"listen_addr" validate:"required"`
	LogLevel   string `yaml:"log_level" validate:"oneof=debug info warn warning error"`

	CSVOutputPath string `yaml:"csv_output_path"`

	PostgresEnabled  bool   `yaml:"postgres_enabled"`
	PostgresHost     string `yaml:"postgres_host" validate:"required_if=PostgresEnabled true"`
	PostgresPort     string `yaml:"postgres_port" validate:"required_if=PostgresEnabled true"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db" validate:"required_if=PostgresEnabled true"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		CatalogPath:  "ettu2.json",
		NearestCount: 3,

		MaxConcurrency: 3,
		FetchTimeoutMs: 10000,
		FetchRetries:   1,
		RetryBaseMs:    500,
		FetchMode:      "http",
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) ettu-nearby/1.0",

		ListenAddr: ":8080",
		LogLevel:   "info",

		PostgresHost:    "localhost",
		PostgresPort:    "5432",
		PostgresUser:    "ettu",
		PostgresDB:      "ettu",
		PostgresSSLMode: "disable",
	}
}

// Load reads .env, the optional YAML file and the environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.CatalogPath = getEnv("CATALOG_PATH", c.CatalogPath)
	c.NearestCount = getEnvInt("NEAREST_COUNT", c.NearestCount)

	c.MaxConcurrency = getEnvInt("MAX_CONCURRENCY", c.MaxConcurrency)
	c.FetchTimeoutMs = getEnvInt("FETCH_TIMEOUT_MS", c.FetchTimeoutMs)
	c.FetchRetries = getEnvInt("FETCH_RETRIES", c.FetchRetries)
	c.RetryBaseMs = getEnvInt("RETRY_BASE_MS", c.RetryBaseMs)
	c.FetchMode = getEnv("FETCH_MODE", c.FetchMode)
	c.ChromeBin = getEnv("CHROME_BIN", c.ChromeBin)
	c.UserAgent = getEnv("USER_AGENT", c.UserAgent)

	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.CSVOutputPath = getEnv("CSV_OUTPUT_PATH", c.CSVOutputPath)

	c.PostgresEnabled = getEnvBool("POSTGRES_ENABLED", c.PostgresEnabled)
	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)
}

// FetchTimeout is the per-station live page timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

// RetryBase is the first back-off delay between fetch attempts.
func (c *Config) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseMs) * time.Millisecond
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
