// Package watcher drives the ingestion pipeline: vault log stream →
// dedup gate → trade engine → fanout.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/trenches/ip-venue/internal/dedup"
	"github.com/trenches/ip-venue/internal/domain"
	"github.com/trenches/ip-venue/internal/engine"
	"github.com/trenches/ip-venue/internal/fanout"
	"github.com/trenches/ip-venue/internal/logger"
	"github.com/trenches/ip-venue/internal/messaging"
)

// Config holds the configuration for the vault watcher
type Config struct {
	// VaultAddress is the vault contract address; empty disables the watcher
	VaultAddress string
	// ResubscribeMaxWait caps the backoff between resubscribe attempts
	ResubscribeMaxWait time.Duration
}

// Watcher consumes the vault event stream for the lifetime of the process.
// Each event runs to completion (claim, mutate, persist, notify) before the
// next one from the same stream is taken.
type Watcher struct {
	subscriber messaging.Subscriber
	dedup      *dedup.Deduplicator
	engine     *engine.Engine
	notifier   fanout.Notifier
	config     Config

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a vault watcher
func New(
	sub messaging.Subscriber,
	dd *dedup.Deduplicator,
	eng *engine.Engine,
	notifier fanout.Notifier,
	cfg Config,
) *Watcher {
	if cfg.ResubscribeMaxWait == 0 {
		cfg.ResubscribeMaxWait = time.Minute
	}
	return &Watcher{
		subscriber: sub,
		dedup:      dd,
		engine:     eng,
		notifier:   notifier,
		config:     cfg,
	}
}

// Start begins watching vault events in the background. Starting twice, or
// starting without a configured vault address, is a logged no-op.
func (w *Watcher) Start(ctx context.Context) {
	if w.config.VaultAddress == "" {
		logger.Warn("Vault watcher disabled: no contract address configured")
		return
	}
	if !w.running.CompareAndSwap(false, true) {
		logger.Warn("Vault watcher already running", zap.String("vault", w.config.VaultAddress))
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	logger.InfoCtx(ctx, "Watching vault events", zap.String("vault", w.config.VaultAddress))

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(runCtx)
	}()
}

// Stop cancels the subscription and waits for the run loop to exit
func (w *Watcher) Stop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	w.cancel()
	w.wg.Wait()
	logger.Info("Vault watcher stopped")
}

// run keeps the subscription alive, resubscribing with exponential backoff
// after transport failures
func (w *Watcher) run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	bo.MaxInterval = w.config.ResubscribeMaxWait

	for {
		err := w.subscriber.SubscribeEvents(ctx, func(event *domain.VaultEvent) error {
			return w.HandleEvent(ctx, event)
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("message", "Vault subscription dropped"))
		}

		wait := bo.NextBackOff()
		logger.InfoCtx(ctx, "Resubscribing to vault events", zap.Duration("after", wait))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// HandleEvent applies one decoded vault event. Duplicates are a logged
// no-op. Once an event is claimed it is never retried: a failed mutation
// after a claim is a lost event by policy, never a double application.
func (w *Watcher) HandleEvent(ctx context.Context, event *domain.VaultEvent) error {
	claimed, err := w.dedup.TryClaim(ctx, event.Kind, event.TxHash)
	if err != nil {
		return err
	}
	if !claimed {
		logger.DebugCtx(ctx, "Skipping duplicate vault event",
			zap.String("kind", string(event.Kind)),
			zap.String("tx_hash", event.TxHash))
		return nil
	}

	var res *engine.TradeResult
	switch event.Kind {
	case domain.EventKindBuy:
		res, err = w.engine.Buy(ctx, event.AssetID, event.AmountTokens, event.Wallet)
	case domain.EventKindSell:
		res, err = w.engine.Sell(ctx, event.AssetID, event.AmountTokens, event.Wallet)
	default:
		return fmt.Errorf("unknown vault event kind %q", event.Kind)
	}
	if err != nil {
		// Caller errors here mean the chain emitted an event the engine
		// state cannot absorb; surface them but keep the stream alive
		if errors.Is(err, domain.ErrInvalidAmount) || errors.Is(err, domain.ErrInsufficientSupply) {
			logger.WarnCtx(ctx, "Rejected vault event",
				zap.String("tx_hash", event.TxHash),
				zap.String("asset_id", event.AssetID),
				zap.Error(err))
			return nil
		}
		return err
	}

	logger.InfoCtx(ctx, "Applied vault event",
		zap.String("kind", string(event.Kind)),
		zap.String("asset_id", event.AssetID),
		zap.Float64("amount_tokens", event.AmountTokens),
		zap.Float64("price", res.State.CurrentPrice),
		zap.Float64("supply", res.State.Supply))

	w.notifier.TradeCommitted(ctx, res)
	return nil
}
