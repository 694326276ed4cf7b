// Package config loads service settings from configs/.env, the process
// environment and an optional CONFIG_FILE, in increasing precedence of the
// environment over the file.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"supplychain/internal/model"
	"supplychain/internal/service"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "default_super_secret_key"

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// DSN builds the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type Config struct {
	Port          string
	GinMode       string
	Database      DatabaseConfig
	JWTSecret     []byte
	CORSOrigins   []string
	SnowflakeNode int64
	MRP           service.MRPConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "supplychain.db")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("SNOWFLAKE_NODE", 1)
	v.SetDefault("MRP_DEFAULT_HORIZON_DAYS", 30)
	v.SetDefault("MRP_SHORTAGE_ACTION", string(model.ActionPurchase))
	v.SetDefault("MRP_INCLUDE_SAFETY_STOCK", false)
}

// Load reads envFile when present and resolves the settings. A missing
// envFile is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("No %s file found or error loading it", envFile)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:    v.GetString("PORT"),
		GinMode: v.GetString("GIN_MODE"),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("DB_DRIVER")),
			Host:       v.GetString("DB_HOST"),
			Port:       v.GetString("DB_PORT"),
			User:       v.GetString("DB_USER"),
			Password:   v.GetString("DB_PASSWORD"),
			Name:       v.GetString("DB_NAME"),
			SSLMode:    v.GetString("DB_SSLMODE"),
			SQLitePath: v.GetString("SQLITE_PATH"),
		},
		JWTSecret:     []byte(v.GetString("JWT_SECRET")),
		CORSOrigins:   splitList(v.GetString("CORS_ORIGINS")),
		SnowflakeNode: v.GetInt64("SNOWFLAKE_NODE"),
		MRP: service.MRPConfig{
			DefaultHorizonDays: v.GetInt("MRP_DEFAULT_HORIZON_DAYS"),
			ShortageAction:     model.SuggestedAction(strings.ToLower(v.GetString("MRP_SHORTAGE_ACTION"))),
			IncludeSafetyStock: v.GetBool("MRP_INCLUDE_SAFETY_STOCK"),
		},
	}

	if len(cfg.JWTSecret) == 0 && cfg.GinMode != "release" {
		cfg.JWTSecret = []byte(devJWTSecret) // Development fallback only
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if len(c.JWTSecret) == 0 {
		return errors.New("JWT_SECRET is required in release mode")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.MRP.ShortageAction {
	case model.ActionPurchase, model.ActionProduce:
	default:
		return fmt.Errorf("MRP_SHORTAGE_ACTION must be purchase or produce, got %q", c.MRP.ShortageAction)
	}
	if c.MRP.DefaultHorizonDays <= 0 {
		return errors.New("MRP_DEFAULT_HORIZON_DAYS must be positive")
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return fmt.Errorf("SNOWFLAKE_NODE must be between 0 and 1023, got %d", c.SnowflakeNode)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
