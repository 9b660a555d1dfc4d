package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from config.yaml and
// environment variables.
type Config struct {
	Env      string `mapstructure:"env"`       // local, dev, prod
	HTTPAddr string `mapstructure:"http_addr"` // listen address

	DBDriver string `mapstructure:"db_driver"` // sqlite|postgres
	DBDSN    string `mapstructure:"-"`         // connection string, env only

	SnapshotDir string `mapstructure:"snapshot_dir"` // local session mirror directory
	SiteID      string `mapstructure:"site_id"`      // tag on audit events

	AuthHMACSecret string `mapstructure:"-"` // JWT signing secret, env only
	LocalUser      string `mapstructure:"local_user"`
	LocalPassHash  string `mapstructure:"-"` // bcrypt hash, env only

	AutosaveDelay time.Duration `mapstructure:"autosave_delay"` // remote write debounce
	ProbeInterval time.Duration `mapstructure:"probe_interval"` // connectivity re-check

	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Load reads configuration from config files and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetDefault("env", "local")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("snapshot_dir", "./data")
	v.SetDefault("site_id", "local")
	v.SetDefault("local_user", "admin")
	v.SetDefault("autosave_delay", "30s")
	v.SetDefault("probe_interval", "60s")
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("http_addr", "HTTP_ADDR")
	_ = v.BindEnv("db_driver", "DB_DRIVER")
	_ = v.BindEnv("db_dsn", "DB_DSN")
	_ = v.BindEnv("snapshot_dir", "SNAPSHOT_DIR")
	_ = v.BindEnv("auth_hmac_secret", "AUTH_HMAC_SECRET")
	_ = v.BindEnv("local_pass_hash", "LOCAL_PASS_HASH")
	_ = v.BindEnv("autosave_delay", "AUTOSAVE_DELAY")
	_ = v.BindEnv("probe_interval", "PROBE_INTERVAL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Sensitive values come from the environment only.
	cfg.DBDSN = v.GetString("db_dsn")
	cfg.AuthHMACSecret = v.GetString("auth_hmac_secret")
	if cfg.AuthHMACSecret == "" {
		cfg.AuthHMACSecret = "supersecret-dev-key"
	}
	// dev-only default hash; override in any non-local deployment
	cfg.LocalPassHash = v.GetString("local_pass_hash")
	if cfg.LocalPassHash == "" {
		cfg.LocalPassHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	}
	return &cfg, nil
}
