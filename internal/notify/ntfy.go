package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/w3irdrobot/bullhorn/internal/ops"
)

const (
	headerTitle    = "X-Title"
	headerPriority = "X-Priority"
	headerTags     = "X-Tags"
	headerClick    = "X-Click"
)

// Priority is the ntfy message priority scale
type Priority int

const (
	PriorityMin Priority = iota + 1
	PriorityLow
	PriorityDefault
	PriorityHigh
	PriorityMax
)

// Notification is one outbound push message
type Notification struct {
	Title    string
	Body     string
	Priority Priority
	Tags     string // comma-separated ntfy icon tags
	Click    string // optional click-through URI
}

// Notifier performs best-effort delivery of push notifications. Callers
// log and swallow failures; a missed push is never fatal.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// Ntfy delivers notifications by POSTing to an ntfy topic
type Ntfy struct {
	client   *http.Client
	endpoint string
	logger   *ops.Logger
}

// NewNtfy creates a client for the given ntfy endpoint and topic
func NewNtfy(client *http.Client, endpoint, topic string, logger *ops.Logger) *Ntfy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Ntfy{
		client:   client,
		endpoint: fmt.Sprintf("%s/%s", strings.TrimRight(endpoint, "/"), topic),
		logger:   logger.WithComponent("ntfy"),
	}
}

// Send posts one notification to the topic
func (n *Ntfy) Send(ctx context.Context, notification Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(notification.Body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	priority := notification.Priority
	if priority == 0 {
		priority = PriorityDefault
	}

	req.Header.Set(headerTitle, notification.Title)
	req.Header.Set(headerPriority, strconv.Itoa(int(priority)))
	if notification.Tags != "" {
		req.Header.Set(headerTags, notification.Tags)
	}
	if notification.Click != "" {
		req.Header.Set(headerClick, notification.Click)
	}

	n.logger.Debug("posting notification", "title", notification.Title)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}

// Canned notification payloads

func dmNotification() Notification {
	return Notification{
		Title:    "New DM Received",
		Body:     "You've received a new nostr DM.",
		Priority: PriorityDefault,
		Tags:     "book",
	}
}

func commentNotification(eventID string) Notification {
	ref := noteRef(eventID)
	return Notification{
		Title:    "Comment Received",
		Body:     "You've received a comment on your post!",
		Priority: PriorityDefault,
		Tags:     "incoming_envelope",
		Click:    "nostr:" + ref,
	}
}

func zapNotification(totalMillisats int64) Notification {
	// Millisats to whole sats for display; the remainder is dropped.
	sats := totalMillisats / 1_000
	return Notification{
		Title:    "Zaps Received",
		Body:     fmt.Sprintf("You've received %d sats in zaps on your post!", sats),
		Priority: PriorityDefault,
		Tags:     "moneybag",
	}
}

// noteRef bech32-encodes an event ID for user-facing URIs, falling back
// to the hex ID if encoding fails.
func noteRef(eventID string) string {
	if encoded, err := nip19.EncodeNote(eventID); err == nil {
		return encoded
	}
	return eventID
}
