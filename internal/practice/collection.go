package practice

import (
	"slices"
)

// collection is the in-memory table for one entity type: records keyed by
// id plus the counter that hands out the next id.
type collection[T any] struct {
	entity string // singular, used in errors and metrics
	key    string // document key
	items  map[ID]T
	next   ID

	setID    func(*T, ID)
	validate func(T) error
	clone    func(T) T
}

func newCollection[T any](entity, key string, setID func(*T, ID), validate func(T) error, clone func(T) T) *collection[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &collection[T]{
		entity:   entity,
		key:      key,
		items:    make(map[ID]T),
		next:     1,
		setID:    setID,
		validate: validate,
		clone:    clone,
	}
}

func (c *collection[T]) assign() ID {
	id := c.next
	c.next++
	return id
}

func (c *collection[T]) get(id ID) (T, bool) {
	v, ok := c.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return c.clone(v), true
}

func (c *collection[T]) has(id ID) bool {
	_, ok := c.items[id]
	return ok
}

// list returns records in insertion order. Ids are handed out in increasing
// order, so sorting by id reproduces it.
func (c *collection[T]) list() []T {
	ids := make([]ID, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.clone(c.items[id]))
	}
	return out
}

func (c *collection[T]) reset() {
	c.items = make(map[ID]T)
	c.next = 1
}
