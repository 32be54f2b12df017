package nostr

import (
	"github.com/nbd-wtf/go-nostr"
	"github.com/w3irdrobot/bullhorn/internal/config"
)

// ReceiveFilters builds the subscription filters covering everything the
// monitored identity should hear about:
//
//  1. DMs and zap receipts addressed to the identity, from now on.
//  2. Notes the identity wrote recently. These are never notified; they
//     feed the local store used to validate comment replies.
//  3. Notes tagging the identity, from now on.
//  4. Live event announcements from followed identities, within the
//     lookback window.
//
// The fourth filter is omitted when there are no followed identities, so
// it cannot degenerate into a match-everything subscription.
func ReceiveFilters(pubkey string, eventPubkeys []string, cfg *config.Notify, now nostr.Timestamp) nostr.Filters {
	noteSince := now - nostr.Timestamp(cfg.NoteLookbackHours*60*60)
	liveSince := now - nostr.Timestamp(cfg.LiveEventLookbackHours*60*60)

	filters := nostr.Filters{
		{
			Kinds: []int{nostr.KindEncryptedDirectMessage, nostr.KindZap},
			Tags:  nostr.TagMap{"p": []string{pubkey}},
			Since: &now,
		},
		{
			Kinds:   []int{nostr.KindTextNote},
			Authors: []string{pubkey},
			Since:   &noteSince,
		},
		{
			Kinds: []int{nostr.KindTextNote},
			Tags:  nostr.TagMap{"p": []string{pubkey}},
			Since: &now,
		},
	}

	if len(eventPubkeys) > 0 {
		filters = append(filters, nostr.Filter{
			Kinds:   []int{nostr.KindLiveEvent},
			Authors: eventPubkeys,
			Since:   &liveSince,
		})
	}

	return filters
}
