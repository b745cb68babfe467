// Package store reads and writes JSON documents addressed by a path against
// one of several storage providers.
//
// A Store is bound to one Config (one provider, one bucket/table/directory).
// Documents opened from it each keep a cached copy of their value and persist
// it through the provider on Set, Update and Delete.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Provider names a storage backend kind.
type Provider string

const (
	ProviderS3       Provider = "s3"
	ProviderGCS      Provider = "gcs"
	ProviderLocal    Provider = "local"
	ProviderSQLite   Provider = "sqlite"
	ProviderPostgres Provider = "postgres"
	ProviderMemory   Provider = "in-memory"
)

// Providers lists every provider New understands.
var Providers = []Provider{
	ProviderS3,
	ProviderGCS,
	ProviderLocal,
	ProviderSQLite,
	ProviderPostgres,
	ProviderMemory,
}

// ParseProvider maps a provider tag to a Provider.
func ParseProvider(s string) (Provider, error) {
	for _, p := range Providers {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

var (
	// ErrNotFound is returned when no object, file or row exists for a path.
	ErrNotFound = errors.New("document not found")
	// ErrNoData is returned when the backend answered without a body.
	ErrNoData = errors.New("no data")
	// ErrMalformed is returned when stored content is not valid JSON for the document type.
	ErrMalformed = errors.New("malformed document")
	// ErrNotObject is returned by Update and Patch when either side is not a JSON object.
	ErrNotObject = errors.New("value is not a JSON object")
	// ErrInvalidDocument is returned when a validator rejects a value before it is persisted.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrUnknownProvider is returned by New for configs it cannot dispatch.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrInvalidPath is returned for paths that would escape the store namespace.
	ErrInvalidPath = errors.New("invalid document path")
	// ErrInvalidTable is returned for table names that are not plain SQL identifiers.
	ErrInvalidTable = errors.New("invalid table name")
)

// OpError records a failed document operation.
type OpError struct {
	Op       string
	Provider Provider
	Path     string
	Err      error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s %q: %v", e.Provider, e.Op, e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// notFound keeps the backend's own error reachable next to ErrNotFound.
func notFound(err error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}

// Object is the untyped document value: a decoded JSON object.
type Object = map[string]any

// Validator checks a decoded JSON value before it is persisted.
type Validator interface {
	Validate(value any) error
}

// backend moves encoded documents in and out of one provider namespace.
// The path is the document path as given by the caller; each backend
// derives its own key from it.
type backend interface {
	read(ctx context.Context, path string) ([]byte, error)
	write(ctx context.Context, path string, data []byte) error
	remove(ctx context.Context, path string) error
}

// objectKey is the key used by file and object backends.
func objectKey(path string) string {
	return path + ".json"
}
