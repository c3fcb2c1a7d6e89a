package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort    int    `mapstructure:"http_port"`
	GRPCPort    int    `mapstructure:"grpc_port"`
	LogLevel    string `mapstructure:"log_level"`
	ServiceName string `mapstructure:"service_name"` // used for consul registration

	Database   DatabaseConfig   `mapstructure:"database"`
	Session    SessionConfig    `mapstructure:"session"`
	CSRF       CSRFConfig       `mapstructure:"csrf"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Consul     ConsulConfig     `mapstructure:"consul"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or mysql
	DSN    string `mapstructure:"dsn"`
}

type SessionConfig struct {
	// Secret signs the session cookie. CHANGE THIS IN PRODUCTION.
	Secret       string        `mapstructure:"secret"`
	Store        string        `mapstructure:"store"` // db or badger
	BadgerPath   string        `mapstructure:"badger_path"`
	TTL          time.Duration `mapstructure:"ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
}

type CSRFConfig struct {
	HeaderName string `mapstructure:"header_name"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"` // 0 disables
}

type PaginationConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type ConsulConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

var AppConfig Config

const DefaultSessionSecret = "default-very-insecure-session-secret"

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "moviebox")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "moviebox.db?_foreign_keys=on")

	v.SetDefault("session.secret", DefaultSessionSecret)
	v.SetDefault("session.store", "db")
	v.SetDefault("session.badger_path", "data/sessions")
	v.SetDefault("session.ttl", 14*24*time.Hour)
	v.SetDefault("session.cookie_name", "sessionid")
	v.SetDefault("session.cookie_secure", false)

	v.SetDefault("csrf.header_name", "X-CSRFToken")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("rate_limit.requests_per_minute", 600)
	v.SetDefault("pagination.page_size", 12)

	v.SetDefault("consul.enabled", false)
	v.SetDefault("consul.address", "127.0.0.1:8500")
}

// Load reads config.yaml from . or ./config, then .env and MOVIEBOX_* overrides.
func Load(paths ...string) (Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("MOVIEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if cfg.Pagination.PageSize <= 0 {
		cfg.Pagination.PageSize = 12
	}
	return cfg, nil
}

func InitConfig() {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Errorf("fatal error loading config: %w", err))
	}
	AppConfig = cfg
}
