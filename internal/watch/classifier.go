package watch

import (
	"context"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	bullnostr "github.com/w3irdrobot/bullhorn/internal/nostr"
	"github.com/w3irdrobot/bullhorn/internal/ops"
)

// EventStore is the slice of the local event store the classifier needs:
// persisting the monitored identity's own notes and resolving referenced
// events during comment validation. A lookup miss surfaces as
// storage.ErrNotFound; the classifier treats every lookup failure the
// same way.
type EventStore interface {
	SaveEvent(ctx context.Context, event *nostr.Event) error
	EventByID(ctx context.Context, eventID string) (*nostr.Event, error)
}

// Classifier consumes the relay subscription stream and forwards only the
// events the user should be notified about. It runs as a single task; the
// live event dedup set has one writer and is locked only so Seen can be
// read from elsewhere without racing it.
type Classifier struct {
	pubkey string
	store  EventStore
	logger *ops.Logger

	out chan *nostr.Event

	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewClassifier creates a classifier for the given monitored pubkey (hex).
// capacity sizes the accepted-event channel.
func NewClassifier(pubkey string, store EventStore, logger *ops.Logger, capacity int) *Classifier {
	return &Classifier{
		pubkey: pubkey,
		store:  store,
		logger: logger.WithComponent("classifier"),
		out:    make(chan *nostr.Event, capacity),
		seen:   make(map[string]struct{}),
	}
}

// Accepted returns the channel of forwarded events. It is closed when Run
// returns.
func (c *Classifier) Accepted() <-chan *nostr.Event {
	return c.out
}

// Run reads the subscription stream until it closes or ctx is cancelled.
// A lag notice is logged and skipped over; dropped events are never
// replayed.
func (c *Classifier) Run(ctx context.Context, stream <-chan bullnostr.Message) {
	defer close(c.out)

	c.logger.Info("starting pubkey monitor")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("pubkey monitor stopped")
			return
		case msg, ok := <-stream:
			if !ok {
				c.logger.Error("relay stream closed, exiting pubkey monitor")
				return
			}
			if msg.Skipped > 0 {
				c.logger.Warn("relay stream lagged behind", "skipped", msg.Skipped)
				continue
			}
			if msg.Event == nil {
				continue
			}
			c.classify(ctx, msg.Event)
		}
	}
}

// classify applies the per-kind acceptance rules. Every event takes
// exactly one route: forwarded or dropped.
func (c *Classifier) classify(ctx context.Context, event *nostr.Event) {
	switch event.Kind {
	case nostr.KindEncryptedDirectMessage, nostr.KindZap:
		c.forward(ctx, event)
	case nostr.KindTextNote:
		c.classifyNote(ctx, event)
	case nostr.KindLiveEvent:
		c.classifyLiveEvent(ctx, event)
	default:
		c.logger.LogEventDropped(event.ID, event.Kind, "unhandled kind")
	}
}

// classifyNote stores the monitored identity's own notes for later reply
// validation and forwards foreign notes only when they comment on one of
// those stored notes.
func (c *Classifier) classifyNote(ctx context.Context, event *nostr.Event) {
	if event.PubKey == c.pubkey {
		if err := c.store.SaveEvent(ctx, event); err != nil {
			c.logger.Warn("unable to store own note", "event_id", event.ID, "error", err)
		}
		return
	}

	// The first referenced event is taken as the note being responded to.
	referenced := firstEventRef(event.Tags)
	if referenced == "" {
		c.logger.LogEventDropped(event.ID, event.Kind, "no event reference")
		return
	}

	stored, err := c.store.EventByID(ctx, referenced)
	if err != nil {
		// Not stored means we have not seen it, so it is not a comment
		// on one of our notes.
		c.logger.LogEventDropped(event.ID, event.Kind, "referenced event unknown")
		return
	}

	if stored.PubKey != c.pubkey {
		c.logger.LogEventDropped(event.ID, event.Kind, "not a reply to us")
		return
	}

	c.forward(ctx, event)
}

// classifyLiveEvent forwards an announcement the first time its ID shows
// up. The ID is recorded before the send so near-simultaneous relay
// copies cannot both get through.
func (c *Classifier) classifyLiveEvent(ctx context.Context, event *nostr.Event) {
	if !c.markSeen(event.ID) {
		c.logger.LogEventDropped(event.ID, event.Kind, "already announced")
		return
	}
	c.forward(ctx, event)
}

// Seen reports whether a live event ID has already been forwarded.
func (c *Classifier) Seen(eventID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.seen[eventID]
	return ok
}

func (c *Classifier) markSeen(eventID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[eventID]; ok {
		return false
	}
	c.seen[eventID] = struct{}{}
	return true
}

func (c *Classifier) forward(ctx context.Context, event *nostr.Event) {
	select {
	case c.out <- event:
		c.logger.LogEventAccepted(event.ID, event.Kind)
	case <-ctx.Done():
	}
}

// firstEventRef returns the first "e" tag value, or "" when the event
// references nothing.
func firstEventRef(tags nostr.Tags) string {
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == "e" {
			return tag[1]
		}
	}
	return ""
}
