// Package resources serves mock business objects so the permission matrix
// has something concrete to gate. The data lives in memory; real storage is
// out of scope for these endpoints.
package resources

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Item is a mock business object belonging to one element category.
type Item struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps mock items per element category.
type Store struct {
	mu    sync.RWMutex
	items map[string][]Item
}

// NewStore returns a store seeded with sample documents and projects.
func NewStore() *Store {
	now := time.Now().UTC()
	seed := func(names ...string) []Item {
		items := make([]Item, 0, len(names))
		for _, name := range names {
			items = append(items, Item{ID: uuid.New(), Name: name, CreatedAt: now})
		}
		return items
	}
	return &Store{items: map[string][]Item{
		"documents": seed("Quarterly report", "Budget draft", "Meeting notes"),
		"projects":  seed("Website redesign", "Mobile app"),
	}}
}

// List returns all items of the element category.
func (s *Store) List(element string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]Item, len(s.items[element]))
	copy(items, s.items[element])
	return items
}

// Get finds one item by ID within the element category.
func (s *Store) Get(element string, id uuid.UUID) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items[element] {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// Add appends a new item to the element category.
func (s *Store) Add(element, name string, owner uuid.UUID) Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := Item{ID: uuid.New(), Name: name, OwnerID: owner, CreatedAt: time.Now().UTC()}
	s.items[element] = append(s.items[element], item)
	return item
}

// Update renames an item. Returns false when the item does not exist.
func (s *Store) Update(element string, id uuid.UUID, name string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items[element] {
		if item.ID == id {
			s.items[element][i].Name = name
			return s.items[element][i], true
		}
	}
	return Item{}, false
}

// Remove deletes an item. Returns false when the item does not exist.
func (s *Store) Remove(element string, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[element]
	for i, item := range items {
		if item.ID == id {
			s.items[element] = append(items[:i], items[i+1:]...)
			return true
		}
	}
	return false
}
