package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/rs/cors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/stevemurr/shelver/config"
	"github.com/stevemurr/shelver/handler"
	"github.com/stevemurr/shelver/logging"
	"github.com/stevemurr/shelver/metrics"
	"github.com/stevemurr/shelver/schema"
	"github.com/stevemurr/shelver/store"
)

var (
	app    = kingpin.New("shelver", "Read and write JSON documents in S3, Cloud Storage, local files or SQL tables")
	format = app.Flag("format", "Output format").Default("json").Enum("json", "yaml")

	getCmd         = app.Command("get", "Print one or more documents")
	getPaths       = getCmd.Arg("path", "Document paths").Required().Strings()
	getConcurrency = getCmd.Flag("concurrency", "Documents fetched at once").Default("8").Int()

	setCmd   = app.Command("set", "Replace a document")
	setPath  = setCmd.Arg("path", "Document path").Required().String()
	setValue = setCmd.Arg("value", "JSON object; read from stdin when omitted").String()

	updateCmd   = app.Command("update", "Merge top-level fields into a document")
	updatePath  = updateCmd.Arg("path", "Document path").Required().String()
	updateValue = updateCmd.Arg("value", "JSON object; read from stdin when omitted").String()

	deleteCmd  = app.Command("delete", "Delete a document")
	deletePath = deleteCmd.Arg("path", "Document path").Required().String()

	initTableCmd = app.Command("init-table", "Create the document table (sqlite and postgres providers)")

	serveCmd = app.Command("serve", "Serve the store over HTTP")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:      env.LogLevel,
		Format:     env.LogFormat,
		OutputPath: env.LogOutput,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, command, env, logger, os.Stdin, os.Stdout)
	stop()
	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(ctx context.Context, command string, env *config.Env, logger *zap.Logger, stdin io.Reader, stdout io.Writer) error {
	cfg, closeStore, err := storeConfig(ctx, env)
	if err != nil {
		return err
	}
	defer closeStore()

	if command == initTableCmd.FullCommand() {
		sqlCfg, ok := cfg.(store.SQLConfig)
		if !ok {
			return fmt.Errorf("init-table does not apply to the %s provider", cfg.Provider())
		}
		if err := store.EnsureTable(ctx, sqlCfg); err != nil {
			return err
		}
		logger.Info("table ready", zap.String("table", sqlCfg.Name), zap.String("provider", string(cfg.Provider())))
		return nil
	}

	var sch schema.Schema
	if env.SchemaFile != "" {
		if sch, err = schema.LoadFile(env.SchemaFile); err != nil {
			return err
		}
	}

	m := metrics.New(nil)
	opts := []store.Option{store.WithLogger(logger), store.WithMetrics(m)}
	if sch != nil {
		opts = append(opts, store.WithValidator(sch))
	}
	s, err := store.New(cfg, opts...)
	if err != nil {
		return err
	}

	switch command {
	case getCmd.FullCommand():
		values, err := fetchAll(ctx, s, *getPaths, *getConcurrency)
		if err != nil {
			return err
		}
		if len(*getPaths) == 1 {
			return writeValue(stdout, *format, values[(*getPaths)[0]])
		}
		return writeValue(stdout, *format, values)

	case setCmd.FullCommand():
		raw, err := readValue(*setValue, stdin)
		if err != nil {
			return err
		}
		var v store.Object
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("invalid JSON object: %w", err)
		}
		if v == nil {
			v = store.Object{}
		}
		doc := s.Document(*setPath)
		if err := doc.Set(ctx, v); err != nil {
			return err
		}
		return writeValue(stdout, *format, doc.Local())

	case updateCmd.FullCommand():
		raw, err := readValue(*updateValue, stdin)
		if err != nil {
			return err
		}
		doc := s.Document(*updatePath)
		if err := doc.Update(ctx, json.RawMessage(raw)); err != nil {
			return err
		}
		return writeValue(stdout, *format, doc.Local())

	case deleteCmd.FullCommand():
		return s.Document(*deletePath).Delete(ctx)

	case serveCmd.FullCommand():
		return serve(ctx, s, env, logger, m, sch)

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

type fetched struct {
	path  string
	value store.Object
}

// fetchAll gets every path, at most concurrency at a time, and stops at the
// first failure.
func fetchAll(ctx context.Context, s *store.Store, paths []string, concurrency int) (map[string]store.Object, error) {
	p := pool.NewWithResults[fetched]().
		WithContext(ctx).
		WithMaxGoroutines(max(concurrency, 1)).
		WithCancelOnError()
	for _, path := range paths {
		path := path // per-iteration copy; go directive is 1.21
		p.Go(func(ctx context.Context) (fetched, error) {
			v, err := s.Document(path).Get(ctx)
			return fetched{path: path, value: v}, err
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	out := make(map[string]store.Object, len(results))
	for _, r := range results {
		out[r.path] = r.value
	}
	return out, nil
}

// readValue returns arg, or all of stdin when arg is empty or "-". Either
// must be valid JSON.
func readValue(arg string, stdin io.Reader) ([]byte, error) {
	data := []byte(arg)
	if arg == "" || arg == "-" {
		var err error
		if data, err = io.ReadAll(stdin); err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
	}
	if !json.Valid(data) {
		return nil, errors.New("value is not valid JSON")
	}
	return data, nil
}

func writeValue(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(ctx context.Context, s *store.Store, env *config.Env, logger *zap.Logger, m *metrics.Metrics, sch schema.Schema) error {
	opts := []handler.Option{handler.WithLogger(logger), handler.WithMetrics(m)}
	if sch != nil {
		opts = append(opts, handler.WithSchema(sch))
	}
	h := handler.New(s, opts...)

	srv := &http.Server{
		Addr: env.Addr(),
		Handler: cors.New(cors.Options{
			AllowedOrigins: env.Origins(),
			AllowedMethods: []string{
				http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
			},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}).Handler(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("shelver listening",
			zap.String("addr", srv.Addr),
			zap.String("provider", string(s.Provider())),
			zap.String("store", s.Name()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
