package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"poolScope/internal/chain"
	"poolScope/internal/config"
	"poolScope/internal/pricing"
)

type priceOutput struct {
	Network string  `json:"network"`
	Token   string  `json:"token"`
	Block   uint64  `json:"block"`
	Price   float64 `json:"price"`
	Source  string  `json:"source"`
}

func runPrice(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPrice(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.Token) {
		return fmt.Errorf("invalid token address: %s", cfg.Token)
	}
	token := common.HexToAddress(cfg.Token)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	network, err := config.SelectNetwork(cfg.Networks, cfg.Network, chainID.Uint64())
	if err != nil {
		return err
	}

	block := cfg.Block
	if block == 0 {
		block, err = chainClient.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
	}

	sources := pricing.NewSources(chainClient, network, nil)
	resolver := pricing.NewResolver(pricing.ResolverConfig{}, sources.Tiers(), nil, nil, logger)
	quote, err := resolver.Quote(ctx, token, block)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(priceOutput{
		Network: network.Name,
		Token:   token.Hex(),
		Block:   block,
		Price:   quote.Price,
		Source:  quote.Source,
	})
}
