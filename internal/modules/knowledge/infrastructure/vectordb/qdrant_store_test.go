package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"OmniAgent/internal/modules/knowledge/domain/entity"
	"OmniAgent/internal/modules/knowledge/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   map[string]any
}

type qdrantStub struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(w http.ResponseWriter, call recordedCall)
}

func (q *qdrantStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := recordedCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, APIKey: r.Header.Get("api-key")}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	}
	q.mu.Lock()
	q.calls = append(q.calls, call)
	q.mu.Unlock()
	if q.handler != nil {
		q.handler(w, call)
		return
	}
	writeOK(w, true)
}

func writeOK(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "result": result})
}

func newStubStore(t *testing.T, stub *qdrantStub) *QdrantStore {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	store, err := NewQdrantStore(QdrantConfig{URL: srv.URL + "/", APIKey: "secret", CollectionName: "OmniAgent", VectorDim: 2})
	require.NoError(t, err)
	return store
}

func TestQdrantStore_Upsert(t *testing.T) {
	stub := &qdrantStub{}
	store := newStubStore(t, stub)

	err := store.Upsert(context.Background(), []entity.Point{entity.NewPoint("p0", "u1", "s1", 0, "ab", []float32{0.1, 0.2})})
	require.NoError(t, err)

	require.Len(t, stub.calls, 1)
	call := stub.calls[0]
	assert.Equal(t, http.MethodPut, call.Method)
	assert.Equal(t, "/collections/OmniAgent/points", call.Path)
	assert.Equal(t, "wait=true", call.Query)
	assert.Equal(t, "secret", call.APIKey)

	points := call.Body["points"].([]any)
	require.Len(t, points, 1)
	payload := points[0].(map[string]any)["payload"].(map[string]any)
	assert.Equal(t, "u1", payload["user_id"])
	assert.Equal(t, float64(2), payload["chunk_length"])
}

func TestQdrantStore_Scroll(t *testing.T) {
	stub := &qdrantStub{handler: func(w http.ResponseWriter, call recordedCall) {
		writeOK(w, map[string]any{"points": []any{
			map[string]any{"id": "p0", "payload": map[string]any{"user_id": "u1", "source_id": "s1", "chunk_index": 0, "text": "a", "chunk_length": 1}},
			map[string]any{"id": "p1", "payload": map[string]any{"user_id": "u1", "source_id": "s1", "chunk_index": 1, "text": "bb", "chunk_length": 2}},
		}})
	}}
	store := newStubStore(t, stub)

	points, err := store.Scroll(context.Background(), repository.SourceFilter("u1", "s1"), 5)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, entity.Point{Id: "p1", UserId: "u1", SourceId: "s1", ChunkIndex: 1, Text: "bb", ChunkLength: 2}, points[1])

	call := stub.calls[0]
	assert.Equal(t, "/collections/OmniAgent/points/scroll", call.Path)
	assert.Equal(t, float64(5), call.Body["limit"])
	must := call.Body["filter"].(map[string]any)["must"].([]any)
	assert.Len(t, must, 2)
}

func TestQdrantStore_Count(t *testing.T) {
	stub := &qdrantStub{handler: func(w http.ResponseWriter, call recordedCall) {
		writeOK(w, map[string]any{"count": 12345})
	}}
	store := newStubStore(t, stub)

	n, err := store.Count(context.Background(), repository.SourceFilter("u1", "s1"))
	require.NoError(t, err)
	assert.Equal(t, 12345, n)

	call := stub.calls[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/collections/OmniAgent/points/count", call.Path)
	assert.Equal(t, true, call.Body["exact"])
	must := call.Body["filter"].(map[string]any)["must"].([]any)
	assert.Len(t, must, 2)
}

func TestQdrantStore_DeleteByFilterAndIDs(t *testing.T) {
	stub := &qdrantStub{}
	store := newStubStore(t, stub)

	require.NoError(t, store.Delete(context.Background(), repository.SourceFilter("u1", "s1")))
	require.NoError(t, store.DeleteByIDs(context.Background(), []string{"p0"}))

	require.Len(t, stub.calls, 2)
	assert.Equal(t, "/collections/OmniAgent/points/delete", stub.calls[0].Path)
	assert.Contains(t, stub.calls[0].Body, "filter")
	assert.Equal(t, []any{"p0"}, stub.calls[1].Body["points"])
}

func TestQdrantStore_HTTPError(t *testing.T) {
	stub := &qdrantStub{handler: func(w http.ResponseWriter, _ recordedCall) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":{"error":"overloaded"}}`))
	}}
	store := newStubStore(t, stub)

	_, err := store.Scroll(context.Background(), repository.SourceFilter("u1", "s1"), 5)
	var qe *QdrantError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, http.StatusServiceUnavailable, qe.StatusCode)
	assert.Equal(t, "scroll", qe.Op)
}

func TestQdrantStore_StatusError(t *testing.T) {
	stub := &qdrantStub{handler: func(w http.ResponseWriter, _ recordedCall) {
		_, _ = w.Write([]byte(`{"status":{"error":"wrong input"},"result":null}`))
	}}
	store := newStubStore(t, stub)

	err := store.Delete(context.Background(), repository.SourceFilter("u1", "s1"))
	assert.ErrorContains(t, err, "wrong input")
}

func TestQdrantStore_EnsureCollectionCreatesWhenMissing(t *testing.T) {
	stub := &qdrantStub{}
	stub.handler = func(w http.ResponseWriter, call recordedCall) {
		if call.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":{"error":"Not found"}}`))
			return
		}
		writeOK(w, true)
	}
	store := newStubStore(t, stub)

	require.NoError(t, store.EnsureCollection(context.Background()))
	require.Len(t, stub.calls, 4)
	assert.Equal(t, http.MethodPut, stub.calls[1].Method)
	assert.Equal(t, "/collections/OmniAgent", stub.calls[1].Path)
	assert.Equal(t, float64(2), stub.calls[1].Body["vectors"].(map[string]any)["size"])
	assert.Equal(t, "/collections/OmniAgent/index", stub.calls[2].Path)
	assert.Equal(t, "user_id", stub.calls[2].Body["field_name"])
	assert.Equal(t, "source_id", stub.calls[3].Body["field_name"])
}

func TestNewQdrantStore_Validates(t *testing.T) {
	_, err := NewQdrantStore(QdrantConfig{CollectionName: "c", VectorDim: 2})
	assert.Error(t, err)
	_, err = NewQdrantStore(QdrantConfig{URL: "http://x", VectorDim: 2})
	assert.Error(t, err)
	_, err = NewQdrantStore(QdrantConfig{URL: "http://x", CollectionName: "c"})
	assert.Error(t, err)
}
