// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env      string
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr            string
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN              string
		MaxConns         int32         `mapstructure:"max_conns"`
		MinConns         int32         `mapstructure:"min_conns"`
		StatementTimeout time.Duration `mapstructure:"statement_timeout"`
		MigrateOnStart   bool          `mapstructure:"migrate_on_start"`
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Alerts struct {
		// Rule is an optional CEL expression evaluated per batch,
		// e.g. "quantity <= warning * 2.0". Empty means the plain
		// quantity <= warning check.
		Rule string
	} `mapstructure:"alerts"`
}

// Load reads configuration from path (optional) with CLINIC_* env overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "production")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.statement_timeout", 30*time.Second)
	v.SetDefault("postgres.migrate_on_start", true)
	v.SetDefault("metrics.enabled", true)

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
