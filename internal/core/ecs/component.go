package ecs

import "slices"

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// Store is a generic typed map store for ECS components.
// Iteration always visits ids in ascending order so systems built on top of it
// behave identically across runs. Reads never mutate the store, so any number
// of readers may share it while no writer is active.
type Store[T any] struct {
	data map[EntityID]*T
	ids  []EntityID // kept sorted on Set/Remove
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		data: make(map[EntityID]*T, 256),
		ids:  make([]EntityID, 0, 256),
	}
}

func (s *Store[T]) Set(id EntityID, c *T) {
	if _, ok := s.data[id]; !ok {
		i, _ := slices.BinarySearch(s.ids, id)
		s.ids = slices.Insert(s.ids, i, id)
	}
	s.data[id] = c
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

// Value returns a copy of the component, for read-only callers.
func (s *Store[T]) Value(id EntityID) (T, bool) {
	c, ok := s.data[id]
	if !ok {
		var zero T
		return zero, false
	}
	return *c, true
}

func (s *Store[T]) Remove(id EntityID) {
	if _, ok := s.data[id]; !ok {
		return
	}
	delete(s.data, id)
	if i, found := slices.BinarySearch(s.ids, id); found {
		s.ids = slices.Delete(s.ids, i, i+1)
	}
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// IDs returns the ids holding this component in ascending order.
// The slice is shared; callers must not modify it.
func (s *Store[T]) IDs() []EntityID {
	return s.ids
}

// Each visits every component in ascending id order.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for _, id := range s.ids {
		fn(id, s.data[id])
	}
}
