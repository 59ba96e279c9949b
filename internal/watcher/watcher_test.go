package watcher_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trenches/ip-venue/internal/adapter"
	"github.com/trenches/ip-venue/internal/dedup"
	"github.com/trenches/ip-venue/internal/domain"
	"github.com/trenches/ip-venue/internal/engine"
	"github.com/trenches/ip-venue/internal/logger"
	"github.com/trenches/ip-venue/internal/messaging"
	"github.com/trenches/ip-venue/internal/store"
	"github.com/trenches/ip-venue/internal/watcher"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// stubSubscriber replays a fixed event sequence, then blocks until the
// context is canceled
type stubSubscriber struct {
	events []*domain.VaultEvent
}

func (s *stubSubscriber) SubscribeEvents(ctx context.Context, handler messaging.EventHandler) error {
	for _, event := range s.events {
		if err := handler(event); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubSubscriber) Close() {}

// recordingNotifier captures committed trade results
type recordingNotifier struct {
	mu      sync.Mutex
	results []*engine.TradeResult
}

func (n *recordingNotifier) TradeCommitted(_ context.Context, res *engine.TradeResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, res)
}

func (n *recordingNotifier) committed() []*engine.TradeResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*engine.TradeResult(nil), n.results...)
}

type watcherFixture struct {
	watcher  *watcher.Watcher
	engine   *engine.Engine
	notifier *recordingNotifier
}

func setupWatcher(events ...*domain.VaultEvent) *watcherFixture {
	eng := engine.New(store.NewMemoryStore(), adapter.NewClock())
	notifier := &recordingNotifier{}
	w := watcher.New(
		&stubSubscriber{events: events},
		dedup.New(dedup.NewMemorySet()),
		eng,
		notifier,
		watcher.Config{VaultAddress: "0xvault"},
	)
	return &watcherFixture{watcher: w, engine: eng, notifier: notifier}
}

func buyEvent(txHash string, amount float64) *domain.VaultEvent {
	return &domain.VaultEvent{
		Kind:         domain.EventKindBuy,
		TxHash:       txHash,
		Wallet:       "0xwallet",
		AssetID:      "ip-42",
		AmountTokens: amount,
		Timestamp:    time.Now(),
	}
}

func TestHandleEventAppliesBuy(t *testing.T) {
	f := setupWatcher()
	ctx := context.Background()

	err := f.watcher.HandleEvent(ctx, buyEvent("0xtx1", 10))
	require.NoError(t, err)

	snapshot, err := f.engine.EnsurePrice(ctx, "ip-42")
	require.NoError(t, err)
	assert.Equal(t, 20.0, snapshot.Supply)

	results := f.notifier.committed()
	require.Len(t, results, 1)
	assert.Equal(t, domain.TradeSideBuy, results[0].Trade.Side)
	assert.Equal(t, 10.0, results[0].Trade.AmountTokens)
}

func TestHandleEventSkipsDuplicateDelivery(t *testing.T) {
	f := setupWatcher()
	ctx := context.Background()

	require.NoError(t, f.watcher.HandleEvent(ctx, buyEvent("0xtx1", 10)))
	require.NoError(t, f.watcher.HandleEvent(ctx, buyEvent("0xtx1", 10)))

	snapshot, err := f.engine.EnsurePrice(ctx, "ip-42")
	require.NoError(t, err)
	assert.Equal(t, 20.0, snapshot.Supply, "redelivered event must not apply twice")
	assert.Len(t, f.notifier.committed(), 1)
}

func TestHandleEventRejectedTradeKeepsStreamAlive(t *testing.T) {
	f := setupWatcher()
	ctx := context.Background()

	oversell := &domain.VaultEvent{
		Kind:         domain.EventKindSell,
		TxHash:       "0xtx1",
		Wallet:       "0xwallet",
		AssetID:      "ip-42",
		AmountTokens: 1_000,
	}
	err := f.watcher.HandleEvent(ctx, oversell)
	require.NoError(t, err, "engine rejection must not kill the subscription")

	snapshot, err := f.engine.EnsurePrice(ctx, "ip-42")
	require.NoError(t, err)
	assert.Equal(t, 10.0, snapshot.Supply)
	assert.Empty(t, f.notifier.committed())

	// The claim is kept: redelivery of the rejected transaction is a no-op
	// even with a now-sufficient supply
	_, err = f.engine.Buy(ctx, "ip-42", 2_000, "0xwhale")
	require.NoError(t, err)
	require.NoError(t, f.watcher.HandleEvent(ctx, oversell))
	assert.Empty(t, f.notifier.committed())
}

func TestHandleEventUnknownKind(t *testing.T) {
	f := setupWatcher()

	err := f.watcher.HandleEvent(context.Background(), &domain.VaultEvent{
		Kind:   domain.EventKind("mint"),
		TxHash: "0xtx1",
	})
	assert.Error(t, err)
}

func TestStartStopDrivesSubscription(t *testing.T) {
	f := setupWatcher(buyEvent("0xtx1", 5), buyEvent("0xtx2", 5))
	ctx := context.Background()

	f.watcher.Start(ctx)

	require.Eventually(t, func() bool {
		return len(f.notifier.committed()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	f.watcher.Stop()

	snapshot, err := f.engine.EnsurePrice(ctx, "ip-42")
	require.NoError(t, err)
	assert.Equal(t, 20.0, snapshot.Supply)
}

func TestStartWithoutVaultAddressIsNoop(t *testing.T) {
	eng := engine.New(store.NewMemoryStore(), adapter.NewClock())
	notifier := &recordingNotifier{}
	w := watcher.New(
		&stubSubscriber{events: []*domain.VaultEvent{buyEvent("0xtx1", 5)}},
		dedup.New(dedup.NewMemorySet()),
		eng,
		notifier,
		watcher.Config{},
	)

	w.Start(context.Background())
	w.Stop()

	assert.Empty(t, notifier.committed())
}

func TestStartTwiceIsNoop(t *testing.T) {
	f := setupWatcher(buyEvent("0xtx1", 5))
	ctx := context.Background()

	f.watcher.Start(ctx)
	f.watcher.Start(ctx)

	require.Eventually(t, func() bool {
		return len(f.notifier.committed()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.watcher.Stop()
	assert.Len(t, f.notifier.committed(), 1)
}
