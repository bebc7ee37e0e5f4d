// Package config loads the bridge configuration from config.yaml and
// BRIDGE_-prefixed environment variables.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Chatmeter ChatmeterConfig `yaml:"chatmeter" mapstructure:"chatmeter"`
	Zendesk   ZendeskConfig   `yaml:"zendesk" mapstructure:"zendesk"`
	Locations LocationsConfig `yaml:"locations" mapstructure:"locations"`
	Poll      PollConfig      `yaml:"poll" mapstructure:"poll"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ChatmeterConfig holds review API credentials.
type ChatmeterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ZendeskConfig holds helpdesk credentials and custom field ids.
type ZendeskConfig struct {
	Subdomain string `yaml:"subdomain" mapstructure:"subdomain"`
	Email     string `yaml:"email" mapstructure:"email"`
	APIToken  string `yaml:"api_token" mapstructure:"api_token"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`

	FieldReviewID int64 `yaml:"field_review_id" mapstructure:"field_review_id"`
	FieldProvider int64 `yaml:"field_provider" mapstructure:"field_provider"`
	FieldLocation int64 `yaml:"field_location" mapstructure:"field_location"`
	FieldRating   int64 `yaml:"field_rating" mapstructure:"field_rating"`
}

// LocationsConfig points at the location alias table.
type LocationsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PollConfig configures the poll loop.
type PollConfig struct {
	Limit         int  `yaml:"limit" mapstructure:"limit"`
	Workers       int  `yaml:"workers" mapstructure:"workers"`
	LookbackHours int  `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	Sweep         bool `yaml:"sweep" mapstructure:"sweep"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("chatmeter.base_url", "https://live.chatmeter.com/v5")
	v.SetDefault("zendesk.rate_limit_rps", 10.0)
	v.SetDefault("zendesk.rate_limit_burst", 10)
	v.SetDefault("locations.path", "locations.yaml")
	v.SetDefault("poll.limit", 100)
	v.SetDefault("poll.workers", 4)
	v.SetDefault("poll.lookback_hours", 24)
	v.SetDefault("poll.sweep", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "bridge.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
