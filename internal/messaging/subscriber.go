package messaging

import (
	"context"

	"github.com/trenches/ip-venue/internal/domain"
)

// EventHandler is called for each decoded vault event
type EventHandler func(event *domain.VaultEvent) error

// Subscriber defines the log-source boundary: a lazy, unbounded, restartable
// stream of decoded Buy/Sell events for one vault contract. The concrete
// transport (Ethereum websocket in production, a channel fake in tests)
// stays behind this interface.
type Subscriber interface {
	// SubscribeEvents blocks, delivering decoded events to handler until the
	// context is canceled or the underlying subscription fails
	SubscribeEvents(ctx context.Context, handler EventHandler) error

	// Close closes the connection and cleans up resources
	Close()
}
