// Package config loads the shelver command's settings from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/stevemurr/shelver/store"
)

type BaseEnv struct {
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat  string `envconfig:"LOG_FORMAT" default:"json"`
	LogOutput  string `envconfig:"LOG_OUTPUT" default:"stderr"`
	SchemaFile string `envconfig:"SCHEMA_FILE"`
}

type StoreEnv struct {
	Provider   string `envconfig:"PROVIDER" default:"local"`
	Name       string `envconfig:"NAME" default:"documents"`
	BaseDir    string `envconfig:"BASE_DIR" default:"./.shelver"`
	SqlitePath string `envconfig:"SQLITE_PATH" default:"./.shelver/shelver.db"`
	// Postgres settings (used when Provider == "postgres")
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
	// S3 settings (used when Provider == "s3")
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	// GCS settings (used when Provider == "gcs")
	GCSProjectID string `envconfig:"GCS_PROJECT_ID"`
}

type HTTPEnv struct {
	HTTPHost       string `envconfig:"HTTP_HOST" default:""`
	HTTPPort       string `envconfig:"HTTP_PORT" default:"8080"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

type Env struct {
	BaseEnv
	StoreEnv
	HTTPEnv
}

const namespace = "SHELVER"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if _, err := store.ParseProvider(env.Provider); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

// Origins splits AllowedOrigins on commas, dropping blanks.
func (e *HTTPEnv) Origins() []string {
	var out []string
	for _, o := range strings.Split(e.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Addr is the listen address of the serve command.
func (e *HTTPEnv) Addr() string {
	return e.HTTPHost + ":" + e.HTTPPort
}
