package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/stevemurr/shelver/config"
	"github.com/stevemurr/shelver/store"
)

// storeConfig builds the provider configuration described by env. The
// returned closer releases any client or database handle it opened.
func storeConfig(ctx context.Context, env *config.Env) (store.Config, func() error, error) {
	noop := func() error { return nil }

	provider, err := store.ParseProvider(env.Provider)
	if err != nil {
		return nil, nil, err
	}

	switch provider {
	case store.ProviderS3:
		client, err := newS3Client(ctx, &env.StoreEnv)
		if err != nil {
			return nil, nil, err
		}
		return store.S3Config{Name: env.Name, Client: client}, noop, nil

	case store.ProviderGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs client: %w", err)
		}
		return store.GCSConfig{
			Name:      env.Name,
			Storage:   store.ClientBuckets(client),
			ProjectID: env.GCSProjectID,
		}, client.Close, nil

	case store.ProviderLocal:
		return store.LocalConfig{Name: env.Name, BaseDir: env.BaseDir}, noop, nil

	case store.ProviderSQLite:
		if dir := filepath.Dir(env.SqlitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		db, err := sql.Open("sqlite3", env.SqlitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite database: %w", err)
		}
		return store.SQLConfig{Name: env.Name, DB: db, Dialect: store.DialectSQLite}, db.Close, nil

	case store.ProviderPostgres:
		if env.PostgresDSN == "" {
			return nil, nil, errors.New("SHELVER_POSTGRES_DSN is required for the postgres provider")
		}
		db, err := sql.Open("postgres", env.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres database: %w", err)
		}
		return store.SQLConfig{Name: env.Name, DB: db, Dialect: store.DialectPostgres}, db.Close, nil

	case store.ProviderMemory:
		return store.MemoryConfig{Name: env.Name}, noop, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", store.ErrUnknownProvider, provider)
	}
}

// newS3Client builds an S3 client for AWS or, when an endpoint is set, an
// S3-compatible server such as MinIO.
func newS3Client(ctx context.Context, env *config.StoreEnv) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(env.S3Region),
	}
	if env.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(env.S3AccessKey, env.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if env.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(env.S3Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
