// Package state provides typed observable values.
//
// A Cell holds a current value and synchronously notifies its subscribers on
// every Set. Derived cells recompute from one or more upstream cells and
// cannot be set directly.
package state

import "sync"

// Readable is the read side of a cell.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func(T)) (unsubscribe func())
}

// Cell is a goroutine-safe observable value.
type Cell[T any] struct {
	mu     sync.RWMutex
	value  T
	nextID int
	subs   map[int]func(T)
	// order keeps notifications in subscription order.
	order []int
}

// NewCell creates a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set stores v and notifies subscribers in subscription order. Subscribers run
// on the caller's goroutine after the cell's lock is released, so they may
// read or set other cells.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	fns := c.snapshotLocked()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Update applies fn to the current value and sets the result.
func (c *Cell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	v := fn(c.value)
	c.value = v
	fns := c.snapshotLocked()
	c.mu.Unlock()

	for _, f := range fns {
		f(v)
	}
}

// Subscribe registers fn for future changes. It does not replay the current value.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.order = append(c.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(id) })
	}
}

// SubscriberCount reports the number of live subscriptions.
func (c *Cell[T]) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

func (c *Cell[T]) unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.subs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cell[T]) snapshotLocked() []func(T) {
	fns := make([]func(T), 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.subs[id])
	}
	return fns
}
