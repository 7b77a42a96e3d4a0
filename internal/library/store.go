// Package library keeps the user's saved roads.
//
// The whole collection is stored as one JSON document under StorageKey. Every
// mutation rewrites that document before the in-memory copy is replaced, so a
// failed write leaves both sides as they were.
package library

import (
	"encoding/json"
	"fmt"

	"scenic/internal/model"

	"github.com/charmbracelet/log"
)

// StorageKey is the key the collection is persisted under.
const StorageKey = "scenic-route-library"

// Storage is a durable string key-value store.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Store is a deduplicated, insertion-ordered set of roads.
type Store struct {
	storage Storage
	logger  *log.Logger
	roads   []model.Road
}

// Open loads the persisted library. Load failures are logged and produce an empty library.
func Open(storage Storage, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{storage: storage, logger: logger}
	s.roads = s.load()
	return s
}

func (s *Store) load() []model.Road {
	raw, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		s.logger.Warn("Failed to load roads from storage", "err", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var roads []model.Road
	if err := json.Unmarshal([]byte(raw), &roads); err != nil {
		s.logger.Warn("Failed to parse stored roads", "err", err)
		return nil
	}
	s.logger.Debug("Library loaded", "roads", len(roads))
	return roads
}

// Add saves road unless a road with the same identity is already present.
func (s *Store) Add(road model.Road) error {
	if s.Contains(road) {
		return nil
	}
	next := make([]model.Road, 0, len(s.roads)+1)
	next = append(next, s.roads...)
	next = append(next, road)
	return s.commit(next)
}

// Remove deletes every road sharing road's identity. Removing an absent road is a no-op.
func (s *Store) Remove(road model.Road) error {
	next := make([]model.Road, 0, len(s.roads))
	for _, r := range s.roads {
		if !r.SameRoad(road) {
			next = append(next, r)
		}
	}
	if len(next) == len(s.roads) {
		return nil
	}
	return s.commit(next)
}

// Contains reports whether a road with the same identity is saved.
func (s *Store) Contains(road model.Road) bool {
	for _, r := range s.roads {
		if r.SameRoad(road) {
			return true
		}
	}
	return false
}

// Roads returns the saved roads in insertion order.
func (s *Store) Roads() []model.Road {
	out := make([]model.Road, len(s.roads))
	copy(out, s.roads)
	return out
}

// Len returns the number of saved roads.
func (s *Store) Len() int {
	return len(s.roads)
}

func (s *Store) commit(next []model.Road) error {
	if next == nil {
		next = []model.Road{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		s.logger.Error("Failed to encode roads", "err", err)
		return fmt.Errorf("failed to encode library: %w", err)
	}
	if err := s.storage.Set(StorageKey, string(data)); err != nil {
		s.logger.Error("Failed to save roads to storage", "err", err)
		return fmt.Errorf("failed to save library: %w", err)
	}
	s.roads = next
	return nil
}
