package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/solrdex/internal/catalog"
	"github.com/hyperjump/solrdex/internal/config"
	"github.com/hyperjump/solrdex/internal/connection/mock"
	"github.com/hyperjump/solrdex/internal/session"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

func newTestServer(t *testing.T, watch WatchService) (*Server, *mock.Connection) {
	t.Helper()
	cat, err := catalog.Build([]config.TypeConfig{
		{Name: "Post", Parent: "BaseClass", Fields: []map[string]any{
			{"name": "title", "type": "text"},
			{"name": "blog_id", "type": "integer"},
			{"name": "category_ids", "type": "integer", "multiple": true},
		}},
		{Name: "Comment", Parent: "BaseClass", Fields: []map[string]any{{"name": "body", "type": "text"}}},
	})
	require.NoError(t, err)
	conn := mock.New()
	cfg := &config.Config{Environment: "test"}
	config.ApplyDefaults(cfg)
	return NewServer(session.New(cat.Assembler(), conn), cat, cfg, nil, watch), conn
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), "decode response")
}

func TestHandleIndexDocuments(t *testing.T) {
	srv, conn := newTestServer(t, nil)
	w := do(t, srv, http.MethodPost, "/api/v1/documents",
		`[{"type":"Post","id":1,"title":"Hello","blog_id":4,"category_ids":[3,14]},{"type":"Comment","id":2,"body":"Hi"}]`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		IDs       []string `json:"ids"`
		Committed bool     `json:"committed"`
	}
	decode(t, w, &out)
	assert.Equal(t, []string{"Post 1", "Comment 2"}, out.IDs)
	assert.True(t, out.Committed)
	assert.Equal(t, []mock.Op{mock.OpAdd, mock.OpCommit}, conn.Ops())
	want := map[string]any{
		"id":              "Post 1",
		"type":            []string{"Post", "BaseClass"},
		"title_text":      "Hello",
		"blog_id_i":       "4",
		"category_ids_im": []string{"3", "14"},
	}
	assert.True(t, conn.HasAddWith(want), "expected add with %v, got %v", want, conn.LastAdd())
}

func TestHandleIndexDocuments_CommitParam(t *testing.T) {
	srv, conn := newTestServer(t, nil)
	w := do(t, srv, http.MethodPost, "/api/v1/documents?commit=false", `{"type":"Post","id":1}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []mock.Op{mock.OpAdd}, conn.Ops())

	w = do(t, srv, http.MethodPost, "/api/v1/documents?commit=maybe", `{"type":"Post","id":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleIndexDocuments_Errors(t *testing.T) {
	srv, conn := newTestServer(t, nil)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest},
		{"missing type", `{"id":1}`, http.StatusBadRequest},
		{"unconfigured type", `{"type":"User","id":1}`, http.StatusUnprocessableEntity},
		{"list for single field", `{"type":"Post","id":1,"blog_id":[1,2]}`, http.StatusUnprocessableEntity},
		{"bad integer", `{"type":"Post","id":1,"blog_id":"abc"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/api/v1/documents", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, conn.Calls(), "failed requests should not reach the backend")

	conn.FailOn(mock.OpAdd, errors.New("solr is down"))
	w := do(t, srv, http.MethodPost, "/api/v1/documents", `{"type":"Post","id":1}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandleDeleteDocument(t *testing.T) {
	srv, conn := newTestServer(t, nil)
	w := do(t, srv, http.MethodDelete, "/api/v1/documents/Post/7", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"Post 7"}, conn.DeletedIDs())
	assert.Equal(t, []mock.Op{mock.OpDeleteByID}, conn.Ops(), "delete should not commit by default")

	conn.Reset()
	do(t, srv, http.MethodDelete, "/api/v1/documents/Post/7?commit=true", "")
	assert.Equal(t, []mock.Op{mock.OpDeleteByID, mock.OpCommit}, conn.Ops())

	w = do(t, srv, http.MethodDelete, "/api/v1/documents/Blog/1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandleDeleteAll(t *testing.T) {
	srv, conn := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/v1/documents", "").Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodDelete, "/api/v1/types/Post?commit=1", "").Code)
	assert.Equal(t, []string{"type:[* TO *]", "type:Post"}, conn.Queries())
	assert.Equal(t, []mock.Op{mock.OpDeleteByQuery, mock.OpDeleteByQuery, mock.OpCommit}, conn.Ops())
}

func TestHandleCommit(t *testing.T) {
	srv, conn := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/v1/commit", "").Code)
	assert.Equal(t, []mock.Op{mock.OpCommit}, conn.Ops())
}

func TestHandlePreview(t *testing.T) {
	srv, conn := newTestServer(t, nil)
	w := do(t, srv, http.MethodPost, "/api/v1/preview", `{"type":"Post","id":1,"title":"Hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Documents []map[string]any `json:"documents"`
	}
	decode(t, w, &out)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "Post 1", out.Documents[0]["id"])
	assert.Equal(t, "Hello", out.Documents[0]["title_text"])
	assert.Empty(t, conn.Calls(), "preview should not dispatch")
}

func TestHandleTypes(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv, http.MethodGet, "/api/v1/types", "")
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Types []catalog.TypeInfo `json:"types"`
	}
	decode(t, w, &out)
	require.Len(t, out.Types, 2)
	require.Equal(t, "Post", out.Types[1].Name)
	assert.Equal(t, []string{"BaseClass", "Post"}, out.Types[1].Chain)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)
}

func TestHandleWatchDirectories(t *testing.T) {
	dir := t.TempDir()
	watch := &mockWatchService{dirs: []string{"/tmp/spool"}}
	srv, _ := newTestServer(t, watch)

	w := do(t, srv, http.MethodGet, "/api/v1/watch/directories", "")
	var out struct {
		Directories []string `json:"directories"`
	}
	decode(t, w, &out)
	assert.Equal(t, []string{"/tmp/spool"}, out.Directories)

	w = do(t, srv, http.MethodPost, "/api/v1/watch/directories", `{"path":"`+dir+`","sync":false}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, watch.dirs, 2)

	w = do(t, srv, http.MethodPost, "/api/v1/watch/directories", `{"path":"`+dir+`/missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, http.MethodDelete, "/api/v1/watch/directories?path="+dir, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, watch.dirs, 1)

	watch.dirs = append(watch.dirs, dir)
	w = do(t, srv, http.MethodDelete, "/api/v1/watch/directories", `{"path":"`+dir+`"}`)
	assert.Equal(t, http.StatusOK, w.Code, "remove by body")
	assert.Len(t, watch.dirs, 1)

	w = do(t, srv, http.MethodDelete, "/api/v1/watch/directories", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "remove without path")
}

func TestHandleWatchDirectories_NotEnabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := do(t, srv, http.MethodGet, "/api/v1/watch/directories", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
