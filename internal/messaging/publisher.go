package messaging

import (
	"context"

	"github.com/trenches/ip-venue/internal/domain"
)

// Publisher defines the interface for mirroring committed trades onto the
// server-to-server message bus
type Publisher interface {
	// PublishTrade publishes a committed trade fill to the broker
	PublishTrade(ctx context.Context, fill *domain.TradeFill) error
	// Close closes the connection
	Close()
	// CloseChan returns a channel that is closed when the publisher is closed
	CloseChan() <-chan struct{}
}
