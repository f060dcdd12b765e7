// Package config loads runtime configuration from an optional YAML file with
// BIGTWO_* environment overrides. Every collaborator is optional: an empty
// address disables the corresponding adapter and the engine runs standalone.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Game     GameConfig     `mapstructure:"game"`
	Bots     BotsConfig     `mapstructure:"bots"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

type GameConfig struct {
	// TurnTimeout is the auto-pass countdown duration.
	TurnTimeout time.Duration `mapstructure:"turn_timeout"`
	// NextMatchDelay is the pause between a finished match and the next deal.
	NextMatchDelay time.Duration `mapstructure:"next_match_delay"`
}

type BotsConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	IdentityFile  string        `mapstructure:"identity_file"`
	MinDelay      time.Duration `mapstructure:"min_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	AutoFillDelay time.Duration `mapstructure:"auto_fill_delay"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load reads the config file at path, or defaults when path is empty.
// Environment variables override file values: game.turn_timeout becomes
// BIGTWO_GAME_TURN_TIMEOUT.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("bigtwo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "bigtwo")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("game.turn_timeout", 15*time.Second)
	v.SetDefault("game.next_match_delay", 5*time.Second)
	v.SetDefault("bots.enabled", true)
	v.SetDefault("bots.identity_file", "")
	v.SetDefault("bots.min_delay", time.Second)
	v.SetDefault("bots.max_delay", 3*time.Second)
	v.SetDefault("bots.auto_fill_delay", 5*time.Second)
	// Adapter addresses default empty (adapter disabled). The defaults must
	// be registered even so: viper only consults the environment for keys it
	// knows about, and an unregistered key would make BIGTWO_NATS_URL and
	// friends unreachable.
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.dsn", "")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
