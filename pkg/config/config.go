package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		Username        string        `mapstructure:"username"`
		Password        string        `mapstructure:"password"`
		Database        string        `mapstructure:"database"`
		SSLMode         string        `mapstructure:"sslmode"`
		MaxConnections  int           `mapstructure:"max_connections"`
		MaxIdleConns    int           `mapstructure:"max_idle_connections"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
		Retry           struct {
			MaxAttempts     int           `mapstructure:"max_attempts"`
			InitialDelay    time.Duration `mapstructure:"initial_delay"`
			MaxDelay        time.Duration `mapstructure:"max_delay"`
			BackoffMultiple float64       `mapstructure:"backoff_multiple"`
		} `mapstructure:"retry"`
	} `mapstructure:"database"`

	API struct {
		Port    int    `mapstructure:"port"`
		TLSCert string `mapstructure:"tls_cert"`
		TLSKey  string `mapstructure:"tls_key"`
	} `mapstructure:"api"`

	CloudAPI struct {
		BaseURL  string        `mapstructure:"base_url"`
		Timeout  time.Duration `mapstructure:"timeout"`
		Insecure bool          `mapstructure:"insecure"`
	} `mapstructure:"cloudapi"`

	Auth struct {
		JWTSecret   string        `mapstructure:"jwt_secret"`
		TokenExpiry time.Duration `mapstructure:"token_expiry"`
	} `mapstructure:"auth"`

	Session struct {
		IdleTimeoutMinutes int `mapstructure:"idle_timeout_minutes"`
		Site               struct {
			Name string `mapstructure:"name"`
			ID   string `mapstructure:"id"`
		} `mapstructure:"site"`
		Location string `mapstructure:"location"`
	} `mapstructure:"session"`

	Cache struct {
		MaxEntries int           `mapstructure:"max_entries"`
		TTL        time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`

	// Dev mode authenticates against the local console_users table instead
	// of the CloudAPI, so the console runs against fixtures without a live
	// backend.
	Dev struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"dev"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func Load() (*Config, error) {
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", "ssvirt_console")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_connections", 10)
	viper.SetDefault("database.conn_max_lifetime", "1h")
	viper.SetDefault("database.conn_max_idle_time", "10m")
	viper.SetDefault("database.retry.max_attempts", 30)
	viper.SetDefault("database.retry.initial_delay", "2s")
	viper.SetDefault("database.retry.max_delay", "30s")
	viper.SetDefault("database.retry.backoff_multiple", 1.5)
	viper.SetDefault("api.port", 8081)
	viper.SetDefault("cloudapi.base_url", "http://localhost:8080")
	viper.SetDefault("cloudapi.timeout", "30s")
	viper.SetDefault("cloudapi.insecure", false)
	// JWT secret MUST be explicitly configured - no insecure default
	if os.Getenv("SSVIRT_CONSOLE_AUTH_JWT_SECRET") == "" {
		log.Println("WARNING: JWT secret not configured. Set SSVIRT_CONSOLE_AUTH_JWT_SECRET environment variable.")
		viper.SetDefault("auth.jwt_secret", "development-secret-change-in-production")
	}
	viper.SetDefault("auth.token_expiry", "24h")
	viper.SetDefault("session.idle_timeout_minutes", 30)
	viper.SetDefault("session.site.name", "ssvirt")
	viper.SetDefault("session.site.id", "urn:vcloud:site:00000000-0000-0000-0000-000000000001")
	viper.SetDefault("session.location", "us-east-1")
	viper.SetDefault("cache.max_entries", 512)
	viper.SetDefault("cache.ttl", "60s")
	viper.SetDefault("dev.enabled", false)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	viper.SetEnvPrefix("SSVIRT_CONSOLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/ssvirt-console/")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
