package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the pipeline binaries.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Store struct {
		// Backend is one of "http", "local" or "postgres".
		Backend      string        `mapstructure:"backend"`
		URL          string        `mapstructure:"url"`
		LocalDir     string        `mapstructure:"local_dir"`
		CacheDir     string        `mapstructure:"cache_dir"`
		PollInterval time.Duration `mapstructure:"poll_interval"`
		OAuth        struct {
			TokenURL     string   `mapstructure:"token_url"`
			ClientID     string   `mapstructure:"client_id"`
			ClientSecret string   `mapstructure:"client_secret"`
			Scopes       []string `mapstructure:"scopes"`
		} `mapstructure:"oauth"`
	} `mapstructure:"store"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Server struct {
		Addr string `mapstructure:"addr"`
		TLS  struct {
			Enable    bool     `mapstructure:"enable"`
			CertFile  string   `mapstructure:"cert_file"`
			KeyFile   string   `mapstructure:"key_file"`
			Hostnames []string `mapstructure:"hostnames"`
		} `mapstructure:"tls"`
	} `mapstructure:"server"`
	Auth struct {
		Enabled  bool   `mapstructure:"enabled"`
		Issuer   string `mapstructure:"issuer"`
		Audience string `mapstructure:"audience"`
	} `mapstructure:"auth"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// Backends understood by store.backend.
const (
	BackendHTTP     = "http"
	BackendLocal    = "local"
	BackendPostgres = "postgres"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.backend", BackendHTTP)
	v.SetDefault("store.url", "http://localhost:8080")
	v.SetDefault("store.local_dir", "./artifacts")
	v.SetDefault("store.cache_dir", "./.artifact-cache")
	v.SetDefault("store.poll_interval", "500ms")
	v.SetDefault("store.oauth.token_url", "")
	v.SetDefault("store.oauth.client_id", "")
	v.SetDefault("store.oauth.client_secret", "")
	v.SetDefault("store.oauth.scopes", []string{"artifacts:read", "artifacts:write"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "pipeline")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "artifacts")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.tls.enable", false)
	v.SetDefault("server.tls.cert_file", "")
	v.SetDefault("server.tls.key_file", "")
	v.SetDefault("server.tls.hostnames", []string{"localhost"})

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
}

// LoadConfig loads the configuration from a file and the environment.
// With an empty path, config.yaml is looked up in "." and "./config" and may
// be absent. Environment variables use the PIPELINE_ prefix, e.g.
// PIPELINE_STORE_BACKEND.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.ConfigFile = v.ConfigFileUsed()

	config.Store.URL = normalizeURL(config.Store.URL)
	config.Auth.Issuer = normalizeURL(config.Auth.Issuer)
	config.Store.Backend = strings.ToLower(strings.TrimSpace(config.Store.Backend))

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendHTTP, BackendLocal, BackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Auth.Enabled && c.Auth.Issuer == "" {
		return errors.New("auth is enabled but auth.issuer is empty")
	}
	return nil
}

// DSN returns the libpq connection string for the database section.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// normalizeURL strips surrounding whitespace and trailing slashes so base
// URLs can be joined with paths without producing double slashes.
func normalizeURL(input string) string {
	return strings.TrimRight(strings.TrimSpace(input), "/")
}
