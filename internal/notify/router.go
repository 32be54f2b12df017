package notify

import (
	"context"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/w3irdrobot/bullhorn/internal/config"
	bullnostr "github.com/w3irdrobot/bullhorn/internal/nostr"
	"github.com/w3irdrobot/bullhorn/internal/ops"
)

// Router consumes accepted events and turns them into notifier calls.
// DMs and comments are sent immediately, zap amounts are handed to the
// aggregator, and live events each get their own scheduler goroutine.
// The router holds no state of its own and stops when the accepted
// channel closes.
type Router struct {
	notifier Notifier
	logger   *ops.Logger

	debounce time.Duration
	lead     time.Duration

	zaps chan int64
	wg   sync.WaitGroup
}

// NewRouter creates a router delivering through the given notifier
func NewRouter(notifier Notifier, cfg *config.Notify, logger *ops.Logger) *Router {
	return &Router{
		notifier: notifier,
		logger:   logger.WithComponent("router"),
		debounce: time.Duration(cfg.ZapDebounceSeconds) * time.Second,
		lead:     time.Duration(cfg.ReminderLeadMinutes) * time.Minute,
		zaps:     make(chan int64, cfg.ZapChannelCapacity),
	}
}

// Run dispatches until the accepted channel closes, then flushes the
// aggregator and returns. Reminder goroutines it spawned are detached;
// they finish on their own or are abandoned at process exit.
func (r *Router) Run(ctx context.Context, accepted <-chan *nostr.Event) {
	r.logger.Info("starting notifier loop")

	agg := newAggregator(r.notifier, r.debounce, r.logger)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		agg.Run(ctx, r.zaps)
	}()

	for event := range accepted {
		switch event.Kind {
		case nostr.KindEncryptedDirectMessage:
			r.send(ctx, dmNotification())
		case nostr.KindZap:
			amount := bullnostr.ZapRequestAmount(event)
			select {
			case r.zaps <- amount:
			default:
				r.logger.Warn("zap aggregation queue full, dropping amount",
					"event_id", event.ID,
					"millisats", amount)
			}
		case nostr.KindTextNote:
			r.send(ctx, commentNotification(event.ID))
		case nostr.KindLiveEvent:
			go ScheduleLiveEvent(ctx, r.notifier, event, r.lead, r.logger.WithComponent("live-event"))
		}
	}

	close(r.zaps)
	r.wg.Wait()
	r.logger.Info("notifier loop complete")
}

// send is best-effort: a failed delivery is logged and forgotten
func (r *Router) send(ctx context.Context, n Notification) {
	err := r.notifier.Send(ctx, n)
	r.logger.LogNotificationSent(n.Title, err)
}
