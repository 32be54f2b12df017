package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nbd-wtf/go-nostr"
	"github.com/w3irdrobot/bullhorn/internal/ops"
)

// LiveEvent is the structured projection of a live event announcement's
// tag set (kind 30311). Absent tags leave their fields unset.
type LiveEvent struct {
	ID                  string
	Title               string
	Summary             string
	Status              string
	Streaming           string
	Recording           string
	Image               string
	ImageDim            string
	Hashtags            []string
	Relays              []string
	Starts              *nostr.Timestamp
	Ends                *nostr.Timestamp
	CurrentParticipants *int
	TotalParticipants   *int
	Host                *LiveEventParticipant
	Speakers            []LiveEventParticipant
	Participants        []LiveEventParticipant
}

// LiveEventParticipant is one tagged identity on a live event
type LiveEventParticipant struct {
	PubKey string
	Relay  string
	Proof  string
}

// ParseLiveEvent folds an announcement's tags into a LiveEvent. The d tag
// is mandatory and must be non-empty; unrecognized tags are ignored.
// A repeated host tag overwrites the previous one.
func ParseLiveEvent(tags nostr.Tags) (*LiveEvent, error) {
	var id string
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == "d" {
			id = tag[1]
			break
		}
	}
	if id == "" {
		return nil, fmt.Errorf("'d' tag missing or empty")
	}

	event := &LiveEvent{ID: id}
	for _, tag := range tags {
		if len(tag) < 2 {
			continue
		}

		value := tag[1]
		switch tag[0] {
		case "title":
			event.Title = value
		case "summary":
			event.Summary = value
		case "status":
			event.Status = value
		case "streaming":
			event.Streaming = value
		case "recording":
			event.Recording = value
		case "image":
			event.Image = value
			if len(tag) >= 3 {
				event.ImageDim = tag[2]
			}
		case "t":
			event.Hashtags = append(event.Hashtags, value)
		case "relays":
			event.Relays = append(event.Relays, tag[1:]...)
		case "starts":
			if ts, err := parseTimestamp(value); err == nil {
				event.Starts = &ts
			}
		case "ends":
			if ts, err := parseTimestamp(value); err == nil {
				event.Ends = &ts
			}
		case "current_participants":
			if n, err := strconv.Atoi(value); err == nil {
				event.CurrentParticipants = &n
			}
		case "total_participants":
			if n, err := strconv.Atoi(value); err == nil {
				event.TotalParticipants = &n
			}
		case "p":
			participant := LiveEventParticipant{PubKey: value}
			if len(tag) >= 3 {
				participant.Relay = tag[2]
			}
			var marker string
			if len(tag) >= 4 {
				marker = tag[3]
			}

			switch strings.ToLower(marker) {
			case "host":
				if len(tag) >= 5 {
					participant.Proof = tag[4]
				}
				event.Host = &participant
			case "speaker":
				event.Speakers = append(event.Speakers, participant)
			case "participant":
				event.Participants = append(event.Participants, participant)
			}
		}
	}

	return event, nil
}

func parseTimestamp(s string) (nostr.Timestamp, error) {
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return nostr.Timestamp(secs), nil
}

// ScheduleLiveEvent announces a live event and, when it starts far enough
// out, waits and sends one reminder lead before it begins. Each
// announcement runs this in its own goroutine; process exit abandons any
// pending wait.
func ScheduleLiveEvent(ctx context.Context, notifier Notifier, event *nostr.Event, lead time.Duration, logger *ops.Logger) {
	record, err := ParseLiveEvent(event.Tags)
	if err != nil {
		logger.Error("unable to build live event from announcement", "event_id", event.ID, "error", err)
		return
	}

	n := liveEventNotification(record, event.ID)
	sendErr := notifier.Send(ctx, n)
	logger.LogNotificationSent(n.Title, sendErr)

	if record.Starts == nil {
		return
	}

	wait := time.Until(record.Starts.Time()) - lead
	if wait <= 0 {
		// Already inside the lead window (or started); the announcement
		// above is ping enough.
		return
	}

	logger.LogReminderScheduled(event.ID, wait)
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return
	}

	n = liveEventNotification(record, event.ID)
	sendErr = notifier.Send(ctx, n)
	logger.LogNotificationSent(n.Title, sendErr)
}

func liveEventNotification(record *LiveEvent, eventID string) Notification {
	ref := noteRef(eventID)

	title := record.Title
	if title == "" {
		title = fmt.Sprintf("Event %s", ref)
	}

	body := title
	if record.Starts != nil {
		body = fmt.Sprintf("%s starts %s", title, humanize.Time(record.Starts.Time()))
	}

	return Notification{
		Title:    "Event announcement",
		Body:     body,
		Priority: PriorityDefault,
		Tags:     "spiral_calendar",
		Click:    "nostr:" + ref,
	}
}
