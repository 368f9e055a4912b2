package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/model"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParsePools converts "address[:kind[:symbol]]" entries into pool configs.
// The symbol may itself contain colons.
func ParsePools(inputs []string) ([]model.PoolConfig, error) {
	pools := make([]model.PoolConfig, 0, len(inputs))
	seen := make(map[common.Address]struct{}, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		parts := strings.SplitN(input, ":", 3)
		if !common.IsHexAddress(parts[0]) {
			return nil, fmt.Errorf("invalid pool address: %s", parts[0])
		}
		addr := common.HexToAddress(parts[0])
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("duplicate pool: %s", addr.Hex())
		}
		seen[addr] = struct{}{}

		cfg := model.PoolConfig{Address: addr.Hex(), Kind: model.PoolKindV3}
		if len(parts) > 1 {
			kind, ok := model.ParsePoolKind(parts[1])
			if !ok {
				return nil, fmt.Errorf("invalid pool kind %q for %s", parts[1], addr.Hex())
			}
			cfg.Kind = kind
		}
		if len(parts) > 2 {
			cfg.Symbol = strings.TrimSpace(parts[2])
		}
		pools = append(pools, cfg)
	}
	return pools, nil
}
