// Package evaluations holds the in-memory map of user-assigned quality tags
// and the weight table the pricing engine reads them through.
package evaluations

import (
	"errors"
	"fmt"
	"sync"

	"flipradar/server/internal/models"
)

// ErrUnknownTag signals a tag with no entry in the configured weight table.
// This is a configuration mismatch, not a normal empty case.
var ErrUnknownTag = errors.New("evaluation tag has no configured weight")

// Store maps object ids to evaluation tags. Writes are atomic per key and
// safe to interleave with concurrent reads; aggregation passes should read
// through a Snapshot to avoid torn views.
type Store struct {
	mu      sync.RWMutex
	tags    map[int64]models.EvaluationTag
	weights map[models.EvaluationTag]float64
}

// NewStore creates a store backed by the given tag weight table.
func NewStore(weights map[models.EvaluationTag]float64) *Store {
	w := make(map[models.EvaluationTag]float64, len(weights))
	for tag, weight := range weights {
		w[tag] = weight
	}
	return &Store{
		tags:    make(map[int64]models.EvaluationTag),
		weights: w,
	}
}

// Get returns the tag assigned to an object, if any.
func (s *Store) Get(objectID int64) (models.EvaluationTag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tag, ok := s.tags[objectID]
	return tag, ok
}

// Set assigns a tag to an object. Tags without a weight entry are rejected.
func (s *Store) Set(objectID int64, tag models.EvaluationTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.weights[tag]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	s.tags[objectID] = tag
	return nil
}

// Delete removes an object's evaluation.
func (s *Store) Delete(objectID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags, objectID)
}

// WeightOf returns the base weight of a tag.
func (s *Store) WeightOf(tag models.EvaluationTag) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	weight, ok := s.weights[tag]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return weight, nil
}

// Len returns the number of evaluated objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tags)
}

// Snapshot is an immutable copy of the store taken at one point in time.
// Engines work off a snapshot so one aggregation pass sees a single
// consistent view regardless of concurrent writes.
type Snapshot struct {
	tags    map[int64]models.EvaluationTag
	weights map[models.EvaluationTag]float64
}

// Snapshot copies the current tag map. The weight table is fixed for the
// lifetime of the store and shared by reference.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make(map[int64]models.EvaluationTag, len(s.tags))
	for id, tag := range s.tags {
		tags[id] = tag
	}
	return Snapshot{tags: tags, weights: s.weights}
}

// Get returns the tag assigned to an object in this snapshot, if any.
func (sn Snapshot) Get(objectID int64) (models.EvaluationTag, bool) {
	tag, ok := sn.tags[objectID]
	return tag, ok
}

// WeightOf returns the base weight of a tag.
func (sn Snapshot) WeightOf(tag models.EvaluationTag) (float64, error) {
	weight, ok := sn.weights[tag]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return weight, nil
}
