package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LimitsConfig bounds list endpoints and append payloads.
type LimitsConfig struct {
	DefaultListLimit int `mapstructure:"defaultListLimit"`
	MaxListLimit     int `mapstructure:"maxListLimit"`
}

func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		DefaultListLimit: 500,
		MaxListLimit:     500,
	}
}

// LimitsHolder exposes the current limits and hot-reloads them from
// limits.yml when the file changes.
type LimitsHolder struct {
	current atomic.Value // holds LimitsConfig
}

func NewLimitsHolder() (*LimitsHolder, error) {
	v := viper.New()

	v.SetConfigName("limits")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/paycycle")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYCYCLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultLimitsConfig()
		v.SetDefault("limits.defaultListLimit", defaults.DefaultListLimit)
		v.SetDefault("limits.maxListLimit", defaults.MaxListLimit)
	}

	var cfg LimitsConfig
	if err := v.UnmarshalKey("limits", &cfg); err != nil {
		return nil, err
	}
	if err := validateLimitsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &LimitsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LimitsConfig
		if err := v.UnmarshalKey("limits", &updated); err != nil {
			log.Printf("[limits-config] reload failed: %v", err)
			return
		}
		if err := validateLimitsConfig(updated); err != nil {
			log.Printf("[limits-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[limits-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticLimitsHolder returns a holder pinned to the given config,
// with no file watching. Used by tests and embedded setups.
func NewStaticLimitsHolder(cfg LimitsConfig) *LimitsHolder {
	holder := &LimitsHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *LimitsHolder) Get() LimitsConfig {
	return h.current.Load().(LimitsConfig)
}

// Clamp normalizes a requested list limit against the active config.
func (h *LimitsHolder) Clamp(requested int) int {
	cfg := h.Get()
	if requested <= 0 {
		return cfg.DefaultListLimit
	}
	if requested > cfg.MaxListLimit {
		return cfg.MaxListLimit
	}
	return requested
}

func validateLimitsConfig(cfg LimitsConfig) error {
	if cfg.DefaultListLimit <= 0 {
		return errors.New("limits.defaultListLimit must be positive")
	}
	if cfg.MaxListLimit < cfg.DefaultListLimit {
		return errors.New("limits.maxListLimit cannot be below defaultListLimit")
	}
	return nil
}
