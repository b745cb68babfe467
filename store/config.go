package store

import (
	"context"
	"database/sql"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
)

// Config selects a provider and carries its connection material. It is one
// of S3Config, GCSConfig, LocalConfig, SQLConfig or MemoryConfig.
type Config interface {
	Provider() Provider
	StoreName() string
	isConfig()
}

// S3API is the subset of *s3.Client the object-store provider calls.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config stores documents as objects in bucket Name.
type S3Config struct {
	Name   string
	Client S3API
}

func (S3Config) Provider() Provider  { return ProviderS3 }
func (c S3Config) StoreName() string { return c.Name }
func (S3Config) isConfig()           {}

// GCSObjects is the object handle surface the cloud-bucket provider needs.
// BucketObjects adapts a *storage.BucketHandle to it.
type GCSObjects interface {
	NewReader(ctx context.Context, key string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, key string) io.WriteCloser
	Delete(ctx context.Context, key string) error
}

// GCSClient hands out buckets by name. ClientBuckets adapts a
// *storage.Client to it.
type GCSClient interface {
	Bucket(name string) GCSObjects
}

// GCSConfig stores documents as objects in Google Cloud Storage bucket Name.
// Storage is usually ClientBuckets(client).
type GCSConfig struct {
	Name      string
	Storage   GCSClient
	ProjectID string
}

func (GCSConfig) Provider() Provider  { return ProviderGCS }
func (c GCSConfig) StoreName() string { return c.Name }
func (GCSConfig) isConfig()           {}

// DefaultBaseDir is where the local provider keeps stores when BaseDir is empty.
const DefaultBaseDir = "./.shelver"

// LocalConfig stores documents as files under BaseDir/Name.
type LocalConfig struct {
	Name    string
	BaseDir string
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
}

func (LocalConfig) Provider() Provider  { return ProviderLocal }
func (c LocalConfig) StoreName() string { return c.Name }
func (LocalConfig) isConfig()           {}

// Dialect selects the SQL placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLConfig stores documents as rows of table Name. The table needs the
// columns path (TEXT PRIMARY KEY) and data (TEXT); EnsureTable creates it.
// The caller owns DB.
//
// Rows are keyed by the bare document path ("user/42"), not the
// "<path>.json" key the object and file providers use. Tables filled by
// tools that wrote "user/42.json" keys will not be found.
type SQLConfig struct {
	Name    string
	DB      *sql.DB
	Dialect Dialect
}

func (c SQLConfig) Provider() Provider {
	if c.Dialect == DialectPostgres {
		return ProviderPostgres
	}
	return ProviderSQLite
}
func (c SQLConfig) StoreName() string { return c.Name }
func (SQLConfig) isConfig()           {}

// MemoryConfig keeps every document in its own cache only. Extra holds
// arbitrary settings so another provider's config can be swapped for it.
type MemoryConfig struct {
	Name  string
	Extra map[string]any
}

func (MemoryConfig) Provider() Provider  { return ProviderMemory }
func (c MemoryConfig) StoreName() string { return c.Name }
func (MemoryConfig) isConfig()           {}
