package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Host, User, Password, DBName, SSLMode string
	Port                                  int
}

// SMTPConfig drives outbound notification mail. Delivery is disabled when
// Host is empty.
type SMTPConfig struct {
	Host, From string
	Port       int
}

// PolicyConfig is one rate-limit policy.
type PolicyConfig struct {
	MaxAttempts   int
	WindowMinutes int
	BlockMinutes  int
}

type SweepConfig struct {
	Schedule string
	Workers  int
}

type Config struct {
	WebHost           string
	WebPort           int
	LogLevel          string
	SessionExpireDays int
	UploadDir         string
	DB                DBConfig
	SMTP              SMTPConfig
	Sweep             SweepConfig
	RateLimits        map[string]PolicyConfig
}

// Load reads the optional config file plus DIWAN_* environment overrides.
func Load(path string) (Config, error) {
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("session_expire_days", 30)
	viper.SetDefault("upload_dir", "./uploads")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("smtp.port", 25)
	viper.SetDefault("sweep.schedule", "@every 15m")
	viper.SetDefault("sweep.workers", 4)

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		_ = viper.ReadInConfig() // ignore missing config file
	}

	c := Config{
		WebHost:           viper.GetString("web.host"),
		WebPort:           viper.GetInt("web.port"),
		LogLevel:          viper.GetString("log_level"),
		SessionExpireDays: viper.GetInt("session_expire_days"),
		UploadDir:         viper.GetString("upload_dir"),
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetInt("db.port"),
			User:     viper.GetString("db.user"),
			Password: viper.GetString("db.password"),
			DBName:   viper.GetString("db.name"),
			SSLMode:  viper.GetString("db.sslmode"),
		},
		SMTP: SMTPConfig{
			Host: viper.GetString("smtp.host"),
			Port: viper.GetInt("smtp.port"),
			From: viper.GetString("smtp.from"),
		},
		Sweep: SweepConfig{
			Schedule: viper.GetString("sweep.schedule"),
			Workers:  viper.GetInt("sweep.workers"),
		},
		RateLimits: DefaultRateLimits(),
	}

	// ---- OVERRIDE WITH ENV VARS (STRICT) ----
	if v := os.Getenv("DIWAN_DB_HOST"); v != "" {
		c.DB.Host = v
	}
	if v := os.Getenv("DIWAN_DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.DB.Port = p
		}
	}
	if v := os.Getenv("DIWAN_DB_USER"); v != "" {
		c.DB.User = v
	}
	if v := os.Getenv("DIWAN_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("DIWAN_DB_NAME"); v != "" {
		c.DB.DBName = v
	}
	if v := os.Getenv("DIWAN_WEB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.WebPort = p
		}
	}
	if v := os.Getenv("DIWAN_UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := os.Getenv("DIWAN_SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}

	if err := os.MkdirAll(c.UploadDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("mkdir upload dir: %w", err)
	}

	return c, nil
}

// DefaultRateLimits returns the per-endpoint policies. Unknown endpoints
// fall back to the "api" policy.
func DefaultRateLimits() map[string]PolicyConfig {
	return map[string]PolicyConfig{
		"login":  {MaxAttempts: 5, WindowMinutes: 15, BlockMinutes: 30},
		"signup": {MaxAttempts: 3, WindowMinutes: 60, BlockMinutes: 120},
		"api":    {MaxAttempts: 100, WindowMinutes: 1, BlockMinutes: 5},
	}
}
