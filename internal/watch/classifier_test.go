package watch

import (
	"context"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	bullnostr "github.com/w3irdrobot/bullhorn/internal/nostr"
	"github.com/w3irdrobot/bullhorn/internal/ops"
	"github.com/w3irdrobot/bullhorn/internal/storage"
)

const ourPubkey = "ourpubkey"

type fakeStore struct {
	events map[string]*nostr.Event
	saved  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[string]*nostr.Event)}
}

func (f *fakeStore) SaveEvent(ctx context.Context, event *nostr.Event) error {
	f.events[event.ID] = event
	f.saved = append(f.saved, event.ID)
	return nil
}

func (f *fakeStore) EventByID(ctx context.Context, eventID string) (*nostr.Event, error) {
	if event, ok := f.events[eventID]; ok {
		return event, nil
	}
	return nil, storage.ErrNotFound
}

func event(id, pubkey string, kind int, tags nostr.Tags) *nostr.Event {
	if tags == nil {
		tags = nostr.Tags{}
	}
	return &nostr.Event{
		ID:        id,
		PubKey:    pubkey,
		Kind:      kind,
		CreatedAt: nostr.Now(),
		Tags:      tags,
	}
}

// runClassifier feeds the given messages through a fresh classifier and
// returns the accepted events in order.
func runClassifier(t *testing.T, store EventStore, messages []bullnostr.Message) []*nostr.Event {
	t.Helper()

	c := NewClassifier(ourPubkey, store, ops.Default(), 300)

	stream := make(chan bullnostr.Message, len(messages))
	for _, msg := range messages {
		stream <- msg
	}
	close(stream)

	var accepted []*nostr.Event
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range c.Accepted() {
			accepted = append(accepted, event)
		}
	}()

	c.Run(context.Background(), stream)
	<-done
	return accepted
}

func msgs(events ...*nostr.Event) []bullnostr.Message {
	out := make([]bullnostr.Message, 0, len(events))
	for _, e := range events {
		out = append(out, bullnostr.Message{Event: e})
	}
	return out
}

func TestForwardsDMsAndZapsUnconditionally(t *testing.T) {
	accepted := runClassifier(t, newFakeStore(), msgs(
		event("dm1", "stranger", nostr.KindEncryptedDirectMessage, nil),
		event("zap1", "stranger", nostr.KindZap, nil),
	))

	if len(accepted) != 2 {
		t.Fatalf("Expected 2 accepted events, got %d", len(accepted))
	}
	if accepted[0].ID != "dm1" || accepted[1].ID != "zap1" {
		t.Errorf("Expected dm1, zap1 in order, got %s, %s", accepted[0].ID, accepted[1].ID)
	}
}

func TestDropsNoteWithoutReference(t *testing.T) {
	accepted := runClassifier(t, newFakeStore(), msgs(
		event("note1", "stranger", nostr.KindTextNote, nil),
	))

	if len(accepted) != 0 {
		t.Fatalf("Expected no accepted events, got %d", len(accepted))
	}
}

func TestDropsNoteReferencingUnknownEvent(t *testing.T) {
	accepted := runClassifier(t, newFakeStore(), msgs(
		event("note1", "stranger", nostr.KindTextNote, nostr.Tags{{"e", "unseen"}}),
	))

	if len(accepted) != 0 {
		t.Fatalf("Expected no accepted events, got %d", len(accepted))
	}
}

func TestDropsNoteReferencingForeignEvent(t *testing.T) {
	store := newFakeStore()
	store.events["theirs"] = event("theirs", "someoneelse", nostr.KindTextNote, nil)

	accepted := runClassifier(t, store, msgs(
		event("note1", "stranger", nostr.KindTextNote, nostr.Tags{{"e", "theirs"}}),
	))

	if len(accepted) != 0 {
		t.Fatalf("Expected no accepted events, got %d", len(accepted))
	}
}

func TestForwardsCommentOnOwnNote(t *testing.T) {
	store := newFakeStore()
	store.events["ours"] = event("ours", ourPubkey, nostr.KindTextNote, nil)

	accepted := runClassifier(t, store, msgs(
		event("comment1", "stranger", nostr.KindTextNote, nostr.Tags{{"e", "ours"}}),
	))

	if len(accepted) != 1 {
		t.Fatalf("Expected 1 accepted event, got %d", len(accepted))
	}
	if accepted[0].ID != "comment1" {
		t.Errorf("Expected comment1, got %s", accepted[0].ID)
	}
}

func TestFirstReferenceWins(t *testing.T) {
	// The first e tag names a foreign event, the second our own. The
	// first-listed reference decides and the note is dropped.
	store := newFakeStore()
	store.events["theirs"] = event("theirs", "someoneelse", nostr.KindTextNote, nil)
	store.events["ours"] = event("ours", ourPubkey, nostr.KindTextNote, nil)

	accepted := runClassifier(t, store, msgs(
		event("comment1", "stranger", nostr.KindTextNote, nostr.Tags{{"e", "theirs"}, {"e", "ours"}}),
	))

	if len(accepted) != 0 {
		t.Fatalf("Expected no accepted events, got %d", len(accepted))
	}
}

func TestStoresOwnNotesWithoutForwarding(t *testing.T) {
	store := newFakeStore()

	accepted := runClassifier(t, store, msgs(
		event("mynote", ourPubkey, nostr.KindTextNote, nil),
	))

	if len(accepted) != 0 {
		t.Fatalf("Expected no accepted events, got %d", len(accepted))
	}
	if len(store.saved) != 1 || store.saved[0] != "mynote" {
		t.Errorf("Expected own note stored, saved=%v", store.saved)
	}
}

func TestDeduplicatesLiveEvents(t *testing.T) {
	accepted := runClassifier(t, newFakeStore(), msgs(
		event("live1", "host", nostr.KindLiveEvent, nil),
		event("dm1", "stranger", nostr.KindEncryptedDirectMessage, nil),
		event("live1", "host", nostr.KindLiveEvent, nil),
		event("live2", "host", nostr.KindLiveEvent, nil),
		event("live1", "host", nostr.KindLiveEvent, nil),
	))

	if len(accepted) != 3 {
		t.Fatalf("Expected 3 accepted events, got %d", len(accepted))
	}
	if accepted[0].ID != "live1" || accepted[1].ID != "dm1" || accepted[2].ID != "live2" {
		t.Errorf("Unexpected accepted order: %s, %s, %s", accepted[0].ID, accepted[1].ID, accepted[2].ID)
	}
}

func TestDropsUnhandledKinds(t *testing.T) {
	accepted := runClassifier(t, newFakeStore(), msgs(
		event("react1", "stranger", 7, nil),
		event("repost1", "stranger", 6, nil),
	))

	if len(accepted) != 0 {
		t.Fatalf("Expected no accepted events, got %d", len(accepted))
	}
}

func TestLagNoticeIsSkippedOver(t *testing.T) {
	messages := []bullnostr.Message{
		{Event: event("dm1", "stranger", nostr.KindEncryptedDirectMessage, nil)},
		{Skipped: 42},
		{Event: event("dm2", "stranger", nostr.KindEncryptedDirectMessage, nil)},
	}

	accepted := runClassifier(t, newFakeStore(), messages)

	if len(accepted) != 2 {
		t.Fatalf("Expected 2 accepted events around the lag notice, got %d", len(accepted))
	}
}

func TestSeen(t *testing.T) {
	c := NewClassifier(ourPubkey, newFakeStore(), ops.Default(), 10)

	if c.Seen("live1") {
		t.Error("Expected live1 unseen initially")
	}
	if !c.markSeen("live1") {
		t.Error("Expected first markSeen to succeed")
	}
	if !c.Seen("live1") {
		t.Error("Expected live1 seen after mark")
	}
	if c.markSeen("live1") {
		t.Error("Expected second markSeen to report duplicate")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	c := NewClassifier(ourPubkey, newFakeStore(), ops.Default(), 10)
	stream := make(chan bullnostr.Message)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, stream)
		close(done)
	}()

	cancel()
	<-done

	// The accepted channel must be closed after Run returns.
	if _, ok := <-c.Accepted(); ok {
		t.Error("Expected accepted channel closed after shutdown")
	}
}
