package mockapi

import (
	"errors"
	"net/url"
	"sync"

	"github.com/campusbeacon/beacon/internal/model"
)

var errNotFound = errors.New("not found")

// validationError carries a message shown to the client with a 400.
type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }

func invalid(msg string) error { return validationError{msg: msg} }

// collection is an insertion-ordered in-memory table.
type collection[T model.Entity[model.ID]] struct {
	mu    sync.RWMutex
	rows  map[model.ID]T
	order []model.ID
	next  model.ID

	setID    func(*T, model.ID)
	validate func(c *collection[T], rec T) error
	match    func(rec T, q url.Values) bool
}

func newCollection[T model.Entity[model.ID]](setID func(*T, model.ID)) *collection[T] {
	return &collection[T]{
		rows:  make(map[model.ID]T),
		setID: setID,
	}
}

func (c *collection[T]) list(q url.Values) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		rec := c.rows[id]
		if c.match != nil && !c.match(rec, q) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (c *collection[T]) get(id model.ID) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.rows[id]
	if !ok {
		return rec, errNotFound
	}
	return rec, nil
}

func (c *collection[T]) insert(rec T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Client-sent ids are ignored; validation must not match rec against an
	// existing row.
	c.setID(&rec, 0)
	if c.validate != nil {
		if err := c.validate(c, rec); err != nil {
			return rec, err
		}
	}
	c.next++
	c.setID(&rec, c.next)
	c.rows[c.next] = rec
	c.order = append(c.order, c.next)
	return rec, nil
}

// update applies fn to a copy of the stored record and saves the result.
func (c *collection[T]) update(id model.ID, fn func(rec *T) error) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.rows[id]
	if !ok {
		return rec, errNotFound
	}
	if err := fn(&rec); err != nil {
		return rec, err
	}
	c.setID(&rec, id)
	if c.validate != nil {
		if err := c.validate(c, rec); err != nil {
			return rec, err
		}
	}
	c.rows[id] = rec
	return rec, nil
}

func (c *collection[T]) updateAll(fn func(rec *T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, rec := range c.rows {
		fn(&rec)
		c.rows[id] = rec
	}
}

func (c *collection[T]) remove(id model.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rows[id]; !ok {
		return errNotFound
	}
	delete(c.rows, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// eachLocked visits rows in insertion order; the caller must hold the lock.
func (c *collection[T]) eachLocked(fn func(rec T) bool) {
	for _, id := range c.order {
		if !fn(c.rows[id]) {
			return
		}
	}
}
