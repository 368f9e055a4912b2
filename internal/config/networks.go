package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"poolScope/internal/pricing"
)

// LoadNetworks merges the `networks` section over the built-in price
// registries and validates the result. Entries given with --feed
// (token=aggregator) are added to the selected network.
func LoadNetworks(v *viper.Viper) (map[string]pricing.Network, error) {
	specs := pricing.DefaultNetworkSpecs()

	if v.IsSet("networks") {
		var custom map[string]pricing.NetworkSpec
		if err := v.UnmarshalKey("networks", &custom); err != nil {
			return nil, fmt.Errorf("decode networks: %w", err)
		}
		for name, spec := range custom {
			specs[pricing.NormalizeNetworkName(name)] = spec
		}
	}

	if extra := getStringMap(v, "feed"); len(extra) > 0 {
		name := pricing.NormalizeNetworkName(v.GetString("network"))
		spec, ok := specs[name]
		if !ok {
			return nil, fmt.Errorf("feed overrides given for unknown network %q", name)
		}
		feeds := make(map[string]string, len(spec.Feeds)+len(extra))
		for token, feed := range spec.Feeds {
			feeds[token] = feed
		}
		for token, feed := range extra {
			feeds[token] = feed
		}
		spec.Feeds = feeds
		specs[name] = spec
	}

	return pricing.BuildNetworks(specs)
}

// SelectNetwork picks the network by name, or by chain id when name is
// empty, and checks that the two agree.
func SelectNetwork(networks map[string]pricing.Network, name string, chainID uint64) (pricing.Network, error) {
	if name != "" {
		key := pricing.NormalizeNetworkName(name)
		network, ok := networks[key]
		if !ok {
			return pricing.Network{}, fmt.Errorf("unknown network %q (known: %s)", name, knownNetworks(networks))
		}
		if chainID != 0 && network.ChainID != 0 && network.ChainID != chainID {
			return pricing.Network{}, fmt.Errorf("network %s is chain %d but rpc reports %d", key, network.ChainID, chainID)
		}
		if network.ChainID == 0 {
			network.ChainID = chainID
		}
		return network, nil
	}

	for _, key := range sortedKeys(networks) {
		if networks[key].ChainID == chainID {
			return networks[key], nil
		}
	}
	return pricing.Network{}, fmt.Errorf("no network configured for chain %d", chainID)
}

func knownNetworks(networks map[string]pricing.Network) string {
	return strings.Join(sortedKeys(networks), ", ")
}

func sortedKeys(networks map[string]pricing.Network) []string {
	keys := make([]string, 0, len(networks))
	for key := range networks {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
