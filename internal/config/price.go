package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"poolScope/internal/pricing"
)

// PriceConfig holds configuration for the price command.
type PriceConfig struct {
	RPCURL   string
	Network  string
	Token    string
	Block    uint64
	LogLevel string
	Networks map[string]pricing.Network
}

// LoadPrice merges config file, environment variables, and flags into PriceConfig.
func LoadPrice(cfgFile string, flags *pflag.FlagSet) (PriceConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("log-level", "warn")
	})
	if err != nil {
		return PriceConfig{}, err
	}

	networks, err := LoadNetworks(v)
	if err != nil {
		return PriceConfig{}, err
	}

	cfg := PriceConfig{
		RPCURL:   v.GetString("rpc"),
		Network:  v.GetString("network"),
		Token:    v.GetString("token"),
		Block:    v.GetUint64("block"),
		LogLevel: v.GetString("log-level"),
		Networks: networks,
	}
	if cfg.RPCURL == "" {
		return PriceConfig{}, fmt.Errorf("rpc is required")
	}
	if cfg.Token == "" {
		return PriceConfig{}, fmt.Errorf("token is required")
	}
	return cfg, nil
}

// MigrateConfig holds configuration for the migrate command.
type MigrateConfig struct {
	PGDSN    string
	LogLevel string
}

// LoadMigrate merges config file, environment variables, and flags into MigrateConfig.
func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return MigrateConfig{}, err
	}

	cfg := MigrateConfig{
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.PGDSN == "" {
		return MigrateConfig{}, fmt.Errorf("pg-dsn is required")
	}
	return cfg, nil
}
