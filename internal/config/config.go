package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Scraper  ScraperConfig
	Matcher  MatcherConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type ScraperConfig struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MinDelay   time.Duration
	MaxDelay   time.Duration
	UseBrowser bool
	Headless   bool
}

type MatcherConfig struct {
	// HomeBrands is the list of retailer-owned brand names used by the
	// home-brand filter. Configuration data: override via HOME_BRANDS
	// without a code change.
	HomeBrands []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getIntOrDefault("SERVER_PORT", 8080),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "grocery_tracker"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			CacheTTL: getDurationOrDefault("SEARCH_CACHE_TTL", 10*time.Minute),
		},
		Scraper: ScraperConfig{
			BaseURL:    getEnvOrDefault("SCRAPER_BASE_URL", "https://www.aldi.com.au"),
			UserAgent:  getEnvOrDefault("SCRAPER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
			Timeout:    getDurationOrDefault("SCRAPER_TIMEOUT", 30*time.Second),
			MinDelay:   getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 2*time.Second),
			MaxDelay:   getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 5*time.Second),
			UseBrowser: getBoolOrDefault("SCRAPER_USE_BROWSER", false),
			Headless:   getBoolOrDefault("BROWSER_HEADLESS", true),
		},
		Matcher: MatcherConfig{
			HomeBrands: getStringSliceOrDefault("HOME_BRANDS", defaultHomeBrands()),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MinDelay > c.Scraper.MaxDelay {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if len(c.Matcher.HomeBrands) == 0 {
		return fmt.Errorf("HOME_BRANDS must contain at least one brand name")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be a valid port number")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// defaultHomeBrands lists the Aldi Australia private-label brands. Used when
// HOME_BRANDS is not set.
func defaultHomeBrands() []string {
	return []string{
		"choceur", "westacre", "blackstone", "mamia", "bakers life",
		"farmdale", "remano", "dairy fine", "logix", "trimat", "cowbelle",
		"emporium selection", "brooklea", "yoguri", "bramwells",
		"goldenvale", "imperial grain", "asia green garden", "sprinters",
		"belmont", "knoppers", "nutoka", "broad oak frams", "berg",
		"ironbark", "ocean rise", "tandil", "di-san", "power force",
		"confidence", "just organic",
	}
}
