// Package config provides a reusable viper-backed loader for authvault's
// configuration files and environment variables.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"authvault/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for an authvault process: the engine's
// tuning knobs (§6) plus the ambient logging/store/server sections.
type Config struct {
	Engine struct {
		MaxCryptoThreadCount int           `mapstructure:"max_crypto_thread_count" json:"max_crypto_thread_count"`
		CryptoKeyBufferCount int           `mapstructure:"crypto_key_buffer_count" json:"crypto_key_buffer_count"`
		NoOfSystemPackets    int           `mapstructure:"no_of_system_packets" json:"no_of_system_packets"`
		FlowTimeout          time.Duration `mapstructure:"flow_timeout" json:"flow_timeout"`
	} `mapstructure:"engine" json:"engine"`

	Store struct {
		Backend          string        `mapstructure:"backend" json:"backend"` // "memory" or "gateway"
		GatewayURL       string        `mapstructure:"gateway_url" json:"gateway_url"`
		CacheDir         string        `mapstructure:"cache_dir" json:"cache_dir"`
		CacheSizeEntries int           `mapstructure:"cache_size_entries" json:"cache_size_entries"`
		Timeout          time.Duration `mapstructure:"timeout" json:"timeout"`
	} `mapstructure:"store" json:"store"`

	Server struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"server" json:"server"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

func setDefaults() {
	viper.SetDefault("engine.max_crypto_thread_count", 4)
	viper.SetDefault("engine.crypto_key_buffer_count", 10)
	viper.SetDefault("engine.no_of_system_packets", 9)
	viper.SetDefault("engine.flow_timeout", 30*time.Second)
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("store.cache_size_entries", 1024)
	viper.SetDefault("store.timeout", 30*time.Second)
	viper.SetDefault("server.listen_addr", ":8761")
	viper.SetDefault("logging.level", "info")
}

// Load reads cmd/config/default.yaml and merges any environment-specific
// override file, then environment variables, into AppConfig.
func Load(env string) (*Config, error) {
	setDefaults()
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("AUTHVAULT")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the AUTHVAULT_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("AUTHVAULT_ENV", ""))
}
