package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Auth     AuthConfig
	Services ServicesConfig
	Wizard   WizardConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// AuthConfig holds the per-request credential store.
// AUTH_USERS is a comma-separated list of login:bcrypt-hash:display-name
// entries; bcrypt hashes never contain ':' or ','.
type AuthConfig struct {
	Users []UserEntry
}

// UserEntry is one operator account.
type UserEntry struct {
	Login        string
	PasswordHash string
	DisplayName  string
}

// ServicesConfig holds base URLs and the shared timeout for the external
// parser, spatial-analysis, document-generator and Kaiten services.
type ServicesConfig struct {
	ParserURL    string
	AnalyzerURL  string
	GeneratorURL string
	KaitenURL    string
	Timeout      time.Duration
}

// WizardConfig holds wizard session settings.
type WizardConfig struct {
	SessionTTL time.Duration
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "gpzu")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("PARSER_URL", "http://localhost:9001")
	v.SetDefault("ANALYZER_URL", "http://localhost:9002")
	v.SetDefault("GENERATOR_URL", "http://localhost:9003")
	v.SetDefault("KAITEN_URL", "http://localhost:9004")
	v.SetDefault("SERVICES_TIMEOUT_SECONDS", 60)
	v.SetDefault("WIZARD_SESSION_TTL_MINUTES", 60)

	// Bind environment variables
	v.AutomaticEnv()

	users, err := parseUsers(v.GetString("AUTH_USERS"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse AUTH_USERS: %w", err)
	}

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Auth: AuthConfig{
			Users: users,
		},
		Services: ServicesConfig{
			ParserURL:    v.GetString("PARSER_URL"),
			AnalyzerURL:  v.GetString("ANALYZER_URL"),
			GeneratorURL: v.GetString("GENERATOR_URL"),
			KaitenURL:    v.GetString("KAITEN_URL"),
			Timeout:      time.Duration(v.GetInt("SERVICES_TIMEOUT_SECONDS")) * time.Second,
		},
		Wizard: WizardConfig{
			SessionTTL: time.Duration(v.GetInt("WIZARD_SESSION_TTL_MINUTES")) * time.Minute,
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate external service config
	if c.Services.ParserURL == "" {
		return fmt.Errorf("PARSER_URL is required")
	}
	if c.Services.AnalyzerURL == "" {
		return fmt.Errorf("ANALYZER_URL is required")
	}
	if c.Services.GeneratorURL == "" {
		return fmt.Errorf("GENERATOR_URL is required")
	}
	if c.Services.Timeout <= 0 {
		return fmt.Errorf("SERVICES_TIMEOUT_SECONDS must be positive")
	}

	if c.Wizard.SessionTTL <= 0 {
		return fmt.Errorf("WIZARD_SESSION_TTL_MINUTES must be positive")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseUsers parses the AUTH_USERS value. An empty value is allowed and
// disables authentication (development mode).
func parseUsers(raw string) ([]UserEntry, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	entries := strings.Split(raw, ",")
	users := make([]UserEntry, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid user entry %q, want login:hash[:name]", entry)
		}
		user := UserEntry{
			Login:        parts[0],
			PasswordHash: parts[1],
			DisplayName:  parts[0],
		}
		if len(parts) == 3 && parts[2] != "" {
			user.DisplayName = parts[2]
		}
		users = append(users, user)
	}
	return users, nil
}
