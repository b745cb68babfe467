package store

import "context"

// memoryOps backs a document with its own cache. Documents never share
// state, even when they have the same path.
func memoryOps[T any](s *Store, d *Document[T]) operations[T] {
	return operations[T]{
		get: func(context.Context) (T, error) {
			s.observe("get", d.path, func() error { return nil })
			return d.Local(), nil
		},
		set: func(_ context.Context, v T) error {
			return s.observe("set", d.path, func() error { return s.validate(v) })
		},
		del: func(context.Context) error {
			return s.observe("delete", d.path, func() error { return nil })
		},
	}
}
