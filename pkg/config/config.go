package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Token     TokenConfig
	Cleanup   CleanupConfig
	Mail      MailConfig
	Google    GoogleConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// TokenConfig holds the lifetimes of the single-use account tokens.
type TokenConfig struct {
	RegistrationTTLHours int
	VerificationTTLHours int
	ResetTTLMinutes      int
}

// CleanupConfig holds the sweep schedules (standard 5-field cron syntax).
type CleanupConfig struct {
	DailyCron  string
	WeeklyCron string
}

type MailConfig struct {
	BaseURL string
	From    string
}

type GoogleConfig struct {
	ClientID string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (t *TokenConfig) RegistrationTTL() time.Duration {
	return time.Duration(t.RegistrationTTLHours) * time.Hour
}

func (t *TokenConfig) VerificationTTL() time.Duration {
	return time.Duration(t.VerificationTTLHours) * time.Hour
}

func (t *TokenConfig) ResetTTL() time.Duration {
	return time.Duration(t.ResetTTLMinutes) * time.Minute
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "warden")
	v.SetDefault("DATABASE_PASSWORD", "warden_secret")
	v.SetDefault("DATABASE_NAME", "warden")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("REGISTRATION_TOKEN_TTL_HOURS", 24)
	v.SetDefault("VERIFICATION_TOKEN_TTL_HOURS", 24)
	v.SetDefault("RESET_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("CLEANUP_DAILY_CRON", "0 3 * * *")
	v.SetDefault("CLEANUP_WEEKLY_CRON", "0 4 * * 0")
	v.SetDefault("MAIL_BASE_URL", "http://localhost:3000")
	v.SetDefault("MAIL_FROM", "no-reply@localhost")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Token: TokenConfig{
			RegistrationTTLHours: v.GetInt("REGISTRATION_TOKEN_TTL_HOURS"),
			VerificationTTLHours: v.GetInt("VERIFICATION_TOKEN_TTL_HOURS"),
			ResetTTLMinutes:      v.GetInt("RESET_TOKEN_TTL_MINUTES"),
		},
		Cleanup: CleanupConfig{
			DailyCron:  v.GetString("CLEANUP_DAILY_CRON"),
			WeeklyCron: v.GetString("CLEANUP_WEEKLY_CRON"),
		},
		Mail: MailConfig{
			BaseURL: v.GetString("MAIL_BASE_URL"),
			From:    v.GetString("MAIL_FROM"),
		},
		Google: GoogleConfig{
			ClientID: v.GetString("GOOGLE_CLIENT_ID"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	return cfg, nil
}
