package feed

import (
	"context"

	"github.com/yanun0323/logs"

	"main/internal/bus"
)

// Feed streams market data onto the event bus. Implementations manage
// their own source (files, databases, broker sockets) and their own
// retry/backoff; the engine only reacts to the EndOfStreamEvent a feed
// publishes as its final act.
type Feed interface {
	// Initialize hands the feed its publish handle. Must be called before
	// Stream.
	Initialize(b *bus.Bus)

	// Stream is the blocking publish loop. It publishes exactly one
	// EndOfStreamEvent before returning, on success, failure, or
	// cancellation.
	Stream(ctx context.Context) error

	// Lifecycle for sources with external connections; no-ops otherwise.
	Connect() error
	Disconnect() error
	IsConnected() bool
}

// Start runs a feed's Stream loop on its own goroutine, for live mode
// where sources arrive asynchronously. Backtests call Stream directly.
func Start(ctx context.Context, f Feed) {
	go func() {
		if err := f.Stream(ctx); err != nil {
			logs.Errorf("feed stream stopped: %+v", err)
		}
	}()
}
