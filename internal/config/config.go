package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Admin      string
	FeeRateBps uint64
	StateFile  string
	PgDSN      string
	LogLevel   string
}

// Load merges config file, environment variables (AMM_*), and flags into
// Config. Flags win over env, env over file, file over defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("fee-rate-bps", uint64(300))
	v.SetDefault("state-file", "./data/ledger.json")
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
		Admin:      v.GetString("admin"),
		FeeRateBps: v.GetUint64("fee-rate-bps"),
		StateFile:  v.GetString("state-file"),
		PgDSN:      v.GetString("pg-dsn"),
		LogLevel:   v.GetString("log-level"),
	}

	return cfg, nil
}
