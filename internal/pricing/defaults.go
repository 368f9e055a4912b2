package pricing

// DefaultNetworkSpecs are the built-in registries. Configuration entries
// with the same name replace them.
func DefaultNetworkSpecs() map[string]NetworkSpec {
	return map[string]NetworkSpec{
		"arbitrum-one": {
			ChainID: 42161,
			Feeds: map[string]string{
				"0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8": "0x50834F3163758fcC1Df9973b6e91f0F0F0434aD3", // USDC
				"0x82aF49447D8a07e3bd95BD0d56f35241523fBab1": "0x639fe6ab55c921f74e7fac1ee960c0b6293ba612", // WETH
			},
			Quoter:     "0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6",
			QuoteToken: "0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8",
			Reference:  "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
		},
		"ethereum": {
			ChainID: 1,
			Feeds: map[string]string{
				"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48": "0x8fFfFfd4AfB6115b954Bd326cbe7B4BA576818f6", // USDC
				"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2": "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419", // WETH
			},
			Quoter:     "0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6",
			QuoteToken: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			Pairs: map[string]PairSpec{
				"0x5f98805A4E8be255a32880FDeC7F6728C6568bA0": {Pair: "0xF20EF17b889b437C151eB5bA15A47bFc62bfF469"}, // LUSD/WETH
			},
			Reference: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		},
	}
}
