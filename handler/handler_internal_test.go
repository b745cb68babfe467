package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/shelver/store"
)

func serve(t *testing.T, h *Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, bytes.NewBufferString(body)))
	return rec
}

func TestPersistentDocumentsAreNotCached(t *testing.T) {
	s, err := store.New(store.LocalConfig{Name: "docs", BaseDir: "/data", Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	h := New(s)

	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodPut, "/documents/a", `{"v":1}`).Code)
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodPut, "/documents/b", `{"v":2}`).Code)
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodPatch, "/documents/b", `{"w":3}`).Code)
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/documents/a", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, h, http.MethodGet, "/documents/missing", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(t, h, http.MethodDelete, "/documents/b", "").Code)

	assert.Empty(t, h.docs)
}

func TestMemoryDocumentsDroppedOnDelete(t *testing.T) {
	s, err := store.New(store.MemoryConfig{Name: "m"})
	require.NoError(t, err)
	h := New(s)

	require.Equal(t, http.StatusOK, serve(t, h, http.MethodPut, "/documents/a", `{"v":1}`).Code)
	require.Equal(t, http.StatusOK, serve(t, h, http.MethodPut, "/documents/b", `{"v":2}`).Code)
	assert.Len(t, h.docs, 2)

	require.Equal(t, http.StatusNoContent, serve(t, h, http.MethodDelete, "/documents/a", "").Code)
	assert.Len(t, h.docs, 1)
	assert.Contains(t, h.docs, "b")

	rec := serve(t, h, http.MethodGet, "/documents/a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}
