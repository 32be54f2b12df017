package nostr

import (
	"encoding/json"
	"strconv"

	"github.com/nbd-wtf/go-nostr"
	"github.com/w3irdrobot/bullhorn/internal/ops"
)

// ZapRequestAmount extracts the millisat amount from the zap request
// embedded in a zap receipt's description tag. Returns 0 when the receipt
// carries no parseable request or amount; a zero-amount zap and an
// unreadable one are notified the same way.
func ZapRequestAmount(event *nostr.Event) int64 {
	request := zapRequest(event)
	if request == nil {
		return 0
	}

	for _, tag := range request.Tags {
		if len(tag) < 2 || tag[0] != "amount" {
			continue
		}

		amount, err := strconv.ParseInt(tag[1], 10, 64)
		if err != nil {
			ops.Debug("zap request amount is not a number", "event_id", event.ID, "amount", tag[1])
			return 0
		}
		return amount
	}

	ops.Debug("no amount tag found in zap request", "event_id", event.ID)
	return 0
}

// zapRequest pulls the signed zap request (kind 9734) out of a receipt's
// description tag. The first description tag wins.
func zapRequest(event *nostr.Event) *nostr.Event {
	for _, tag := range event.Tags {
		if len(tag) < 2 || tag[0] != "description" {
			continue
		}

		var request nostr.Event
		if err := json.Unmarshal([]byte(tag[1]), &request); err != nil {
			ops.Debug("description tag is not a valid event", "event_id", event.ID)
			return nil
		}

		if ok, err := request.CheckSignature(); err != nil || !ok {
			ops.Debug("invalid zap request event", "event_id", event.ID)
			return nil
		}

		return &request
	}

	ops.Debug("no description tag found in event", "event_id", event.ID)
	return nil
}
