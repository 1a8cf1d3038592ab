// Package config contains gateway Config and the code to load it.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the full configuration of the gateway process.
type Config struct {
	// LogLevel sets zerolog level. Debug level enables join/leave logging.
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	// LogFile is an optional file to write logs into instead of stdout.
	LogFile string `mapstructure:"log_file" json:"log_file"`
	// DevMode is a shorthand which forces LogLevel to debug.
	DevMode bool `mapstructure:"dev_mode" json:"dev_mode"`

	// OpsAddress is a bind address for the ops HTTP server (health, metrics).
	OpsAddress string `mapstructure:"ops_address" json:"ops_address"`
	// OpsPort is a port for the ops HTTP server.
	OpsPort int `mapstructure:"ops_port" json:"ops_port"`

	// Database selects the cross-process pub/sub backend. Empty string
	// disables the application bridge publisher, "redis" enables it.
	Database string `mapstructure:"database" json:"database"`
	// Redis is used when Database is "redis".
	Redis Redis `mapstructure:"redis" json:"redis"`

	// AuthStub selects the built-in authenticator used by the serve command:
	// "allow" admits every private channel join, "deny" rejects every one.
	// Embedders inject a real authenticator instead.
	AuthStub string `mapstructure:"auth_stub" json:"auth_stub"`

	// ChannelPatterns configure channel and event name classification.
	ChannelPatterns ChannelPatterns `mapstructure:"channel_patterns" json:"channel_patterns"`
}

// Redis is a configuration of Redis connection.
type Redis struct {
	Address  string `mapstructure:"address" json:"address"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
}

// ChannelPatterns hold glob-like patterns used by the channel classifier.
// They are read once at startup, compiled and never mutated after that.
type ChannelPatterns struct {
	Private      []string `mapstructure:"private" json:"private"`
	ClientEvents []string `mapstructure:"client_events" json:"client_events"`
	App          string   `mapstructure:"app" json:"app"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("dev_mode", false)
	v.SetDefault("ops_address", "127.0.0.1")
	v.SetDefault("ops_port", 6001)
	v.SetDefault("database", "")
	v.SetDefault("auth_stub", "allow")
	v.SetDefault("redis.address", "127.0.0.1:6379")
	v.SetDefault("redis.user", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("channel_patterns.private", []string{"private-*", "presence-*"})
	v.SetDefault("channel_patterns.client_events", []string{"client-*"})
	v.SetDefault("channel_patterns.app", "app-*")
}

// GetConfig loads Config from defaults, optional config file, environment
// variables with ECHO_ prefix and command flags (lowest to highest priority).
// cmd may be nil when no flags should be bound.
func GetConfig(cmd *cobra.Command, configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("echo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("error binding flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(configFile); os.IsNotExist(statErr) {
				return Config{}, fmt.Errorf("config file not found: %s", configFile)
			}
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.DevMode {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enum-like options. Pattern compilation is validated by the
// channel classifier constructor at startup.
func (c Config) Validate() error {
	switch c.Database {
	case "", "redis":
	default:
		return fmt.Errorf("unknown database: %s", c.Database)
	}
	switch c.AuthStub {
	case "allow", "deny":
	default:
		return fmt.Errorf("unknown auth_stub: %s", c.AuthStub)
	}
	if c.ChannelPatterns.App == "" {
		return fmt.Errorf("channel_patterns.app can not be empty")
	}
	return nil
}
