package store

import (
	"context"
	"sync"
)

// Commit persists a document's cached value.
type Commit func(ctx context.Context) error

// Document is one JSON value addressed by a path within a store.
//
// The cached value reflects the last value returned by Get or handed to Set
// or Update on this instance. It is never refreshed behind the caller's back
// and may be stale relative to the provider.
//
// Update is a read-modify-write with no locking: concurrent updates of the
// same path can lose writes. Callers needing stronger guarantees must
// coordinate externally.
type Document[T any] struct {
	path string
	ops  operations[T]

	mu   sync.Mutex
	data T
}

// Path returns the document path.
func (d *Document[T]) Path() string {
	return d.path
}

// Get fetches the value from the provider and caches it. For the in-memory
// provider it returns the cached value and never fails.
func (d *Document[T]) Get(ctx context.Context) (T, error) {
	v, err := d.ops.get(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	d.replace(v)
	return v, nil
}

// Set persists v and caches it once the provider accepted it.
func (d *Document[T]) Set(ctx context.Context, v T) error {
	if err := d.ops.set(ctx, v); err != nil {
		return err
	}
	d.replace(v)
	return nil
}

// Update reads the current value, overlays the top-level members of partial
// and writes the result. partial must encode to a JSON object; a map or a
// struct with omitempty fields both work.
func (d *Document[T]) Update(ctx context.Context, partial any) error {
	current, err := d.ops.get(ctx)
	if err != nil {
		return err
	}
	merged, err := merge(current, partial)
	if err != nil {
		return err
	}
	return d.Set(ctx, merged)
}

// Delete removes the stored value and resets the cache to an empty object.
func (d *Document[T]) Delete(ctx context.Context) error {
	if err := d.ops.del(ctx); err != nil {
		return err
	}
	d.replace(emptyValue[T]())
	return nil
}

// Local returns the cached value without contacting the provider.
func (d *Document[T]) Local() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data
}

// Stage replaces the cached value. Nothing is persisted until the returned
// Commit (or Document.Commit) runs.
func (d *Document[T]) Stage(v T) Commit {
	d.replace(v)
	return d.Commit
}

// Patch overlays partial onto the cached value without persisting it.
func (d *Document[T]) Patch(partial any) (Commit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	merged, err := merge(d.data, partial)
	if err != nil {
		return nil, err
	}
	d.data = merged
	return d.Commit, nil
}

// Clear resets the cached value to an empty object without persisting it.
func (d *Document[T]) Clear() Commit {
	d.replace(emptyValue[T]())
	return d.Commit
}

// Load replaces the cached value with the provider's.
func (d *Document[T]) Load(ctx context.Context) error {
	_, err := d.Get(ctx)
	return err
}

// Commit persists the cached value.
func (d *Document[T]) Commit(ctx context.Context) error {
	return d.Set(ctx, d.Local())
}

func (d *Document[T]) replace(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = v
}
