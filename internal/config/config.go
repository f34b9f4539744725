package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the monitor's startup parameters, loaded once from flags,
// env, or config file and never re-read at runtime.
type Config struct {
	RPCURL      string
	TaxSwapper  string
	Factory     string
	PairedAsset string

	LookBack       uint64
	BatchSize      uint64
	PollInterval   time.Duration
	FailureBackoff time.Duration
	RPCTimeout     time.Duration

	HistorySize       int
	PGDSN             string
	Archive           string
	Checkpoint        string
	CheckpointEnabled bool

	Listen   string
	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BURNWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("look-back", uint64(500))
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("poll-interval", 4*time.Second)
	v.SetDefault("failure-backoff", 10*time.Second)
	v.SetDefault("rpc-timeout", 15*time.Second)
	v.SetDefault("history-size", 50)
	v.SetDefault("checkpoint", "./data/cursor.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		TaxSwapper:        v.GetString("tax-swapper"),
		Factory:           v.GetString("factory"),
		PairedAsset:       v.GetString("paired-asset"),
		LookBack:          v.GetUint64("look-back"),
		BatchSize:         v.GetUint64("batch-size"),
		PollInterval:      v.GetDuration("poll-interval"),
		FailureBackoff:    v.GetDuration("failure-backoff"),
		RPCTimeout:        v.GetDuration("rpc-timeout"),
		HistorySize:       v.GetInt("history-size"),
		PGDSN:             v.GetString("pg-dsn"),
		Archive:           v.GetString("archive"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		Listen:            v.GetString("listen"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}
