package nostr

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
	"github.com/w3irdrobot/bullhorn/internal/config"
	"github.com/w3irdrobot/bullhorn/internal/ops"
)

// Message is a single item on a subscription stream. Either Event is set,
// or Skipped reports how many events were discarded because the consumer
// fell behind. Closure of the stream channel means the subscription is
// permanently gone.
type Message struct {
	Event   *nostr.Event
	Skipped int
}

// Client provides a high-level interface for interacting with Nostr relays
type Client struct {
	pool   *nostr.SimplePool
	seeds  []string
	logger *ops.Logger
}

// New creates a new Nostr client with the given relay configuration
func New(ctx context.Context, cfg *config.Relays, logger *ops.Logger) *Client {
	pool := nostr.NewSimplePool(ctx)
	return &Client{
		pool:   pool,
		seeds:  cfg.Seeds,
		logger: logger.WithComponent("relay-client"),
	}
}

// Subscribe opens a long-lived subscription on the seed relays and returns
// a stream of de-duplicated events. The forwarding goroutine never blocks
// on a slow consumer: events that do not fit the stream buffer are counted
// and surfaced as a Skipped notice on the next delivery.
func (c *Client) Subscribe(ctx context.Context, filters nostr.Filters) <-chan Message {
	stream := make(chan Message, 100)

	go func() {
		defer close(stream)

		c.logger.Debug("starting relay subscription",
			"relays", len(c.seeds),
			"filters", len(filters))

		skipped := 0
		for relayEvent := range c.pool.SubMany(ctx, c.seeds, filters) {
			if relayEvent.Event == nil {
				continue
			}

			if skipped > 0 {
				select {
				case stream <- Message{Skipped: skipped}:
					skipped = 0
				default:
				}
			}

			select {
			case stream <- Message{Event: relayEvent.Event}:
			default:
				skipped++
			}
		}

		c.logger.Debug("relay subscription closed", "skipped", skipped)
	}()

	return stream
}

// Close closes all relay connections
func (c *Client) Close() {
	c.pool.Close("client shutting down")
}
