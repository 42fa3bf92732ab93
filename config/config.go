package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the authorization server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort   string `mapstructure:"HTTP_PORT"`
	Issuer     string `mapstructure:"ISSUER"`      // Absolute base URL this server is reachable at
	ConsentURL string `mapstructure:"CONSENT_URL"` // Base URL of the external consent UI

	Storage     string `mapstructure:"STORAGE"` // "memory" or "mongodb"
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"` // Optional; pending authorizations move to Redis when set

	SigningKeyFile string `mapstructure:"SIGNING_KEY_FILE"` // RSA private key PEM; generated in-memory when empty

	OperatorEmail        string `mapstructure:"OPERATOR_EMAIL"`
	OperatorPasswordHash string `mapstructure:"OPERATOR_PASSWORD_HASH"` // bcrypt hash
	OperatorPassword     string `mapstructure:"OPERATOR_PASSWORD"`      // Plaintext fallback for development

	RefreshReuseRevokesLineage bool `mapstructure:"REFRESH_REUSE_REVOKES_LINEAGE"`

	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/onegate/")
	v.AddConfigPath("$HOME/.onegate")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// AutomaticEnv only surfaces keys viper already knows about, so every
	// struct key needs a default registered here, empty ones included.
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("ISSUER", "http://localhost:8080")
	v.SetDefault("CONSENT_URL", "http://localhost:8080/consent")
	v.SetDefault("STORAGE", "memory")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/onegate_dev")
	v.SetDefault("MONGO_DB_NAME", "onegate_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("SIGNING_KEY_FILE", "")
	v.SetDefault("OPERATOR_EMAIL", "operator@localhost")
	v.SetDefault("OPERATOR_PASSWORD_HASH", "")
	v.SetDefault("OPERATOR_PASSWORD", "")
	v.SetDefault("REFRESH_REUSE_REVOKES_LINEAGE", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "onegate-server")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ServerConfig) validate() error {
	if c.Storage != "memory" && c.Storage != "mongodb" {
		return fmt.Errorf("unsupported STORAGE %q: expected memory or mongodb", c.Storage)
	}
	if c.OperatorPasswordHash == "" && c.OperatorPassword == "" {
		return errors.New("one of OPERATOR_PASSWORD_HASH or OPERATOR_PASSWORD is required")
	}
	return nil
}
