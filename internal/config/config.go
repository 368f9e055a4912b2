package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"poolScope/internal/pricing"
)

// DefaultPool is the pool tracked when none is configured.
const DefaultPool = "0x4e0924d3a751be199c426d52fb1f2337fa96f736:v3:UNI3-LUSD/USDC 0.05%"

// Config holds configuration for the run command.
type Config struct {
	RPCURL        string
	Network       string
	FromBlock     uint64
	ToBlock       uint64
	BlockInterval uint64
	Follow        bool
	PollInterval  time.Duration
	Pools         []string
	Resolution    string
	Width         time.Duration
	Workers       int

	PGDSN             string
	Out               string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration

	MemoSize         int
	MemoTTL          time.Duration
	CacheUnavailable bool
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	MetricsAddr string
	LogLevel    string

	Networks map[string]pricing.Network
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("network", "ethereum")
		v.SetDefault("block-interval", uint64(200))
		v.SetDefault("poll-interval", 15*time.Second)
		v.SetDefault("pool", []string{DefaultPool})
		v.SetDefault("resolution", "1h")
		v.SetDefault("workers", 4)
		v.SetDefault("out", "./data/snapshots.jsonl")
		v.SetDefault("checkpoint", "./data/checkpoint.json")
		v.SetDefault("checkpoint-enabled", true)
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("memo-size", 100_000)
		v.SetDefault("memo-ttl", 24*time.Hour)
		v.SetDefault("cache-unavailable", true)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return Config{}, err
	}

	width, err := ParseResolution(v.GetString("resolution"))
	if err != nil {
		return Config{}, err
	}
	networks, err := LoadNetworks(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		Network:           v.GetString("network"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		BlockInterval:     v.GetUint64("block-interval"),
		Follow:            v.GetBool("follow"),
		PollInterval:      v.GetDuration("poll-interval"),
		Pools:             getPools(v, "pool"),
		Resolution:        v.GetString("resolution"),
		Width:             width,
		Workers:           v.GetInt("workers"),
		PGDSN:             v.GetString("pg-dsn"),
		Out:               v.GetString("out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MemoSize:          v.GetInt("memo-size"),
		MemoTTL:           v.GetDuration("memo-ttl"),
		CacheUnavailable:  v.GetBool("cache-unavailable"),
		RedisAddr:         v.GetString("redis-addr"),
		RedisPassword:     v.GetString("redis-password"),
		RedisDB:           v.GetInt("redis-db"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
		Networks:          networks,
	}

	if cfg.RPCURL == "" {
		return Config{}, fmt.Errorf("rpc is required")
	}
	if cfg.BlockInterval == 0 {
		return Config{}, fmt.Errorf("block-interval must be greater than zero")
	}
	if len(cfg.Pools) == 0 {
		return Config{}, fmt.Errorf("at least one pool is required")
	}
	return cfg, nil
}

// newViper builds the layered configuration shared by every command:
// defaults, INDEXER_* environment variables, flags, and an optional file.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// getPools accepts either "address[:kind[:symbol]]" strings or, from a
// config file, a list of {address, kind, symbol} maps, and returns the
// string form.
func getPools(v *viper.Viper, key string) []string {
	switch typed := v.Get(key).(type) {
	case []interface{}:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			switch entry := item.(type) {
			case map[string]interface{}:
				out = append(out, poolEntry(entry))
			default:
				out = append(out, fmt.Sprintf("%v", entry))
			}
		}
		return cleanStrings(out)
	default:
		return getStringSlice(v, key)
	}
}

func poolEntry(entry map[string]interface{}) string {
	field := func(name string) string {
		if value, ok := entry[name]; ok && value != nil {
			return strings.TrimSpace(fmt.Sprintf("%v", value))
		}
		return ""
	}
	out := field("address")
	if kind, symbol := field("kind"), field("symbol"); kind != "" || symbol != "" {
		out += ":" + kind
		if symbol != "" {
			out += ":" + symbol
		}
	}
	return out
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
