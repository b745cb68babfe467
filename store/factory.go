package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/stevemurr/shelver/metrics"
)

// Store opens documents against one provider configuration.
type Store struct {
	provider  Provider
	name      string
	backend   backend // nil for the in-memory provider
	logger    *zap.Logger
	metrics   *metrics.Metrics
	validator Validator
}

// Option customises a Store.
type Option func(*Store)

// WithLogger logs every document operation at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records operation counts and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithValidator rejects values the validator refuses before they are persisted.
func WithValidator(v Validator) Option {
	return func(s *Store) { s.validator = v }
}

// New creates a Store for cfg.
//
// Supported configs:
//
//	S3Config     - objects <path>.json in an S3 bucket
//	GCSConfig    - objects <path>.json in a Cloud Storage bucket
//	LocalConfig  - files <baseDir>/<name>/<path>.json
//	SQLConfig    - rows of a (path, data) table, sqlite or postgres
//	MemoryConfig - per-document cache only
func New(cfg Config, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	switch c := cfg.(type) {
	case S3Config:
		if c.Client == nil {
			return nil, errors.New("s3 store requires a client")
		}
		s.backend = &s3Backend{client: c.Client, bucket: c.Name}
	case GCSConfig:
		if c.Storage == nil {
			return nil, errors.New("gcs store requires a storage client")
		}
		s.backend = &gcsBackend{objects: c.Storage.Bucket(c.Name)}
	case LocalConfig:
		fs := c.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		baseDir := c.BaseDir
		if baseDir == "" {
			baseDir = DefaultBaseDir
		}
		s.backend = &localBackend{
			fs:      fs,
			baseDir: baseDir,
			root:    filepath.Join(baseDir, c.Name),
			logger:  s.logger,
		}
	case SQLConfig:
		if c.DB == nil {
			return nil, errors.New("sql store requires a database handle")
		}
		b, err := newSQLBackend(c)
		if err != nil {
			return nil, err
		}
		s.backend = b
	case MemoryConfig:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownProvider, cfg)
	}

	s.provider = cfg.Provider()
	s.name = cfg.StoreName()
	s.logger = s.logger.With(zap.String("provider", string(s.provider)), zap.String("store", s.name))
	if lb, ok := s.backend.(*localBackend); ok {
		lb.logger = s.logger
	}
	return s, nil
}

// Provider reports which provider the store was created for.
func (s *Store) Provider() Provider { return s.provider }

// Name reports the bucket, table or directory name of the store.
func (s *Store) Name() string { return s.name }

// Document opens an untyped document. See Open.
func (s *Store) Document(path string, initial ...Object) *Document[Object] {
	return Open(s, path, initial...)
}

// Open returns a document bound to path. Nothing is read or written until a
// method that talks to the provider is called. The cached value starts as
// initial[0] when given, an empty object otherwise.
func Open[T any](s *Store, path string, initial ...T) *Document[T] {
	d := &Document[T]{path: path}
	if len(initial) > 0 {
		d.data = initial[0]
	} else {
		d.data = emptyValue[T]()
	}
	if s.backend == nil {
		d.ops = memoryOps(s, d)
	} else {
		d.ops = persistentOps[T](s, path)
	}
	return d
}

func (s *Store) validate(value any) error {
	if s.validator == nil {
		return nil
	}
	raw, err := toJSONValue(value)
	if err != nil {
		return err
	}
	if err := s.validator.Validate(raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

// observe runs fn as operation op on path, wrapping any failure in an
// OpError and reporting it to the logger and metrics.
func (s *Store) observe(op, path string, fn func() error) error {
	start := time.Now()
	err := fn()
	if err != nil {
		err = &OpError{Op: op, Provider: s.provider, Path: path, Err: err}
	}
	if s.metrics != nil {
		s.metrics.Observe(string(s.provider), op, start, resultOf(err))
	}
	s.logger.Debug("document operation",
		zap.String("op", op),
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))
	return err
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}

// operations is the injected get/set/delete triple a document is built on.
type operations[T any] struct {
	get func(ctx context.Context) (T, error)
	set func(ctx context.Context, v T) error
	del func(ctx context.Context) error
}

func persistentOps[T any](s *Store, path string) operations[T] {
	return operations[T]{
		get: func(ctx context.Context) (T, error) {
			var v T
			err := s.observe("get", path, func() error {
				data, err := s.backend.read(ctx, path)
				if err != nil {
					return err
				}
				return decode(data, &v)
			})
			return v, err
		},
		set: func(ctx context.Context, v T) error {
			return s.observe("set", path, func() error {
				if err := s.validate(v); err != nil {
					return err
				}
				data, err := encode(v)
				if err != nil {
					return err
				}
				return s.backend.write(ctx, path, data)
			})
		},
		del: func(ctx context.Context) error {
			return s.observe("delete", path, func() error {
				return s.backend.remove(ctx, path)
			})
		},
	}
}
