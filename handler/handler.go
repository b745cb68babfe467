// Package handler exposes one document store over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/stevemurr/shelver/logging"
	"github.com/stevemurr/shelver/metrics"
	"github.com/stevemurr/shelver/schema"
	"github.com/stevemurr/shelver/store"
)

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store   *store.Store
	metrics *metrics.Metrics
	schema  schema.Schema
	logger  *zap.Logger
	router  chi.Router

	// In-memory documents are opened once per path and reused, so they keep
	// their values between requests. Other providers open one per request.
	mu   sync.Mutex
	docs map[string]*store.Document[store.Object]
}

// Option customises a Handler.
type Option func(*Handler)

// WithMetrics serves m on GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithSchema serves s on GET /schema. The store enforces it; the handler
// only publishes it.
func WithSchema(s schema.Schema) Option {
	return func(h *Handler) { h.schema = s }
}

// WithLogger logs every request.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// New creates a Handler and wires up all routes.
func New(s *store.Store, opts ...Option) *Handler {
	h := &Handler{
		store:  s,
		logger: zap.NewNop(),
		docs:   make(map[string]*store.Document[store.Object]),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Get("/schema", h.getSchema)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/documents", func(r chi.Router) {
		r.Get("/*", h.getDocument)
		r.Put("/*", h.setDocument)
		r.Patch("/*", h.updateDocument)
		r.Delete("/*", h.deleteDocument)
	})
	h.router = r
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusOf maps a store error to the response status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotObject), errors.Is(err, store.ErrInvalidPath):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("document operation failed", zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// documentPath returns the request's document path, or false after
// answering 400 when it is empty.
func documentPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := strings.Trim(chi.URLParam(r, "*"), "/")
	if path == "" {
		writeError(w, http.StatusBadRequest, "document path is required")
		return "", false
	}
	return path, true
}

// document returns the document for the request's path, or false after
// answering 400 when the path is empty.
func (h *Handler) document(w http.ResponseWriter, r *http.Request) (*store.Document[store.Object], bool) {
	path, ok := documentPath(w, r)
	if !ok {
		return nil, false
	}
	if h.store.Provider() != store.ProviderMemory {
		return h.store.Document(path), true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	doc, ok := h.docs[path]
	if !ok {
		doc = h.store.Document(path)
		h.docs[path] = doc
	}
	return doc, true
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"service":  "shelver",
		"provider": string(h.store.Provider()),
		"store":    h.store.Name(),
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	if h.schema == nil {
		writeError(w, http.StatusNotFound, "no schema configured")
		return
	}
	writeJSON(w, http.StatusOK, h.schema)
}

// ---------- documents ----------

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	v, err := doc.Get(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) setDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	var v store.Object
	if err := readJSON(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if v == nil {
		v = store.Object{}
	}
	if err := doc.Set(r.Context(), v); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	var partial any
	if err := readJSON(r, &partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := doc.Update(r.Context(), partial); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc.Local())
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.document(w, r)
	if !ok {
		return
	}
	if err := doc.Delete(r.Context()); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.forget(doc.Path())
	w.WriteHeader(http.StatusNoContent)
}

// forget drops a cached in-memory document.
func (h *Handler) forget(path string) {
	h.mu.Lock()
	delete(h.docs, path)
	h.mu.Unlock()
}
