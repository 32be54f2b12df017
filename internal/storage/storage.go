package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fiatjaf/eventstore"
	"github.com/fiatjaf/eventstore/sqlite3"
	"github.com/nbd-wtf/go-nostr"
	"github.com/w3irdrobot/bullhorn/internal/config"
)

// ErrNotFound is returned by EventByID when no stored event matches.
// A miss is an ordinary outcome, not a failure.
var ErrNotFound = errors.New("event not found")

// Store is the local event store. The classifier writes the monitored
// identity's own notes into it; comment validation reads them back by ID.
type Store struct {
	backend *sqlite3.SQLite3Backend
}

// New opens (creating if necessary) the sqlite-backed event store
func New(cfg *config.Storage) (*Store, error) {
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	backend := &sqlite3.SQLite3Backend{DatabaseURL: cfg.SQLitePath}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize sqlite event store: %w", err)
	}

	return &Store{backend: backend}, nil
}

// SaveEvent stores an event. Storing an already-known event is a no-op.
func (s *Store) SaveEvent(ctx context.Context, event *nostr.Event) error {
	err := s.backend.SaveEvent(ctx, event)
	if err != nil && !errors.Is(err, eventstore.ErrDupEvent) {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// EventByID looks up a stored event by its identifier, returning
// ErrNotFound on a miss.
func (s *Store) EventByID(ctx context.Context, eventID string) (*nostr.Event, error) {
	filter := nostr.Filter{
		IDs:   []string{eventID},
		Limit: 1,
	}

	ch, err := s.backend.QueryEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}

	for event := range ch {
		if event != nil {
			return event, nil
		}
	}

	return nil, ErrNotFound
}

// Close closes the underlying database
func (s *Store) Close() error {
	s.backend.Close()
	return nil
}
