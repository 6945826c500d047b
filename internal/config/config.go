package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Browser  BrowserConfig
	Scraper  ScraperConfig
	Scoring  ScoringConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// SessionTTL bounds how long a captured login session is replayed.
	SessionTTL time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
	ProxyServer    string
}

type ScraperConfig struct {
	Type                 string
	MaxProducts          int
	Retries              int
	DelayBetweenRequests time.Duration
	StagnantLimit        int
	APIBaseURL           string
	APIKey               string
	APITimeout           time.Duration
}

type ScoringConfig struct {
	AIAPIBaseURL string
	AIAPIKey     string
	AIModel      string
	AITimeout    time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("PORT", 8090),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "offerscout"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 20)),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			SessionTTL: getEnvDuration("REDIS_SESSION_TTL", 24*time.Hour),
		},
		Browser: BrowserConfig{
			Headless:       getEnvBool("BROWSER_HEADLESS", true),
			Timeout:        getEnvDuration("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getEnvInt("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getEnvInt("BROWSER_VIEWPORT_HEIGHT", 1080),
			Locale:         getEnv("BROWSER_LOCALE", "pt-BR"),
			TimezoneID:     getEnv("BROWSER_TIMEZONE", "America/Sao_Paulo"),
			ProxyServer:    getEnv("BROWSER_PROXY", ""),
		},
		Scraper: ScraperConfig{
			Type:                 getEnv("SCRAPER_TYPE", "browser"),
			MaxProducts:          getEnvInt("SCRAPER_MAX_PRODUCTS", 100),
			Retries:              getEnvInt("SCRAPER_RETRIES", 3),
			DelayBetweenRequests: getEnvDuration("SCRAPER_DELAY", 2*time.Second),
			StagnantLimit:        getEnvInt("SCRAPER_STAGNANT_LIMIT", 3),
			APIBaseURL:           getEnv("SCRAPE_API_URL", ""),
			APIKey:               getEnv("SCRAPE_API_KEY", ""),
			APITimeout:           getEnvDuration("SCRAPE_API_TIMEOUT", 60*time.Second),
		},
		Scoring: ScoringConfig{
			AIAPIBaseURL: getEnv("AI_API_URL", "https://api.openai.com/v1/chat/completions"),
			AIAPIKey:     getEnv("AI_API_KEY", ""),
			AIModel:      getEnv("AI_MODEL", "gpt-4o-mini"),
			AITimeout:    getEnvDuration("AI_TIMEOUT", 20*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be a valid port number")
	}
	if c.Scraper.MaxProducts < 1 {
		return fmt.Errorf("SCRAPER_MAX_PRODUCTS must be at least 1")
	}
	if c.Scraper.Type == "fetch" && c.Scraper.APIBaseURL == "" {
		return fmt.Errorf("SCRAPE_API_URL is required for the fetch scraper type")
	}
	return nil
}

// AIEnabled reports whether an AI provider is configured for V2 scoring.
func (c *Config) AIEnabled() bool {
	return c.Scoring.AIAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
