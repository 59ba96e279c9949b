package ethereum

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/trenches/ip-venue/internal/adapter"
	"github.com/trenches/ip-venue/internal/logger"
	"github.com/trenches/ip-venue/internal/messaging"
)

// Config holds the configuration for the vault event subscription
type Config struct {
	// VaultAddress is the vault contract address
	VaultAddress string
}

type vaultSubscriber struct {
	client adapter.EthClient
	vault  common.Address
	clock  adapter.Clock
}

// NewSubscriber creates a subscriber for the vault contract's Buy/Sell
// event topics
func NewSubscriber(cfg Config, client adapter.EthClient, clock adapter.Clock) messaging.Subscriber {
	return &vaultSubscriber{
		client: client,
		vault:  common.HexToAddress(cfg.VaultAddress),
		clock:  clock,
	}
}

// SubscribeEvents subscribes to the vault's Buy and Sell events and delivers
// each decoded event to handler. Decode failures and handler errors are
// logged per event so one bad log cannot halt the stream.
func (s *vaultSubscriber) SubscribeEvents(ctx context.Context, handler messaging.EventHandler) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{s.vault},
		Topics: [][]common.Hash{
			{buyEventSignature, sellEventSignature},
		},
	}

	logs := make(chan types.Log)
	sub, err := s.client.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to vault logs: %w", err)
	}
	defer func() {
		sub.Unsubscribe()
		logger.InfoCtx(ctx, "Unsubscribed from vault events")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return fmt.Errorf("subscription error: %w", err)
		case vLog := <-logs:
			event, err := ParseVaultLog(vLog)
			if err != nil {
				logger.ErrorCtx(ctx, err, zap.String("message", "Error parsing vault log"), zap.String("tx_hash", vLog.TxHash.Hex()))
				continue
			}

			if event == nil {
				continue
			}

			event.Timestamp = s.clock.Now()

			if err := handler(event); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("message", "Error handling vault event"), zap.String("tx_hash", event.TxHash))
			}
		}
	}
}

// Close closes the connection
func (s *vaultSubscriber) Close() {
	if s.client == nil {
		return
	}

	s.client.Close()
	logger.Info("Ethereum connection closed")
}
