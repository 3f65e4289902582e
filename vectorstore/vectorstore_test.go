package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobtalk/jobtalk/errors"
)

func TestMemoryStore_QueryRanksAndBounds(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.EnsureIndex(ctx, 2); err != nil {
		t.Fatalf("ensure index: %v", err)
	}

	records := []Record{
		{ID: "exact", Values: []float32{1, 0}, Metadata: map[string]string{"text": "exact"}},
		{ID: "close", Values: []float32{0.9, 0.1}},
		{ID: "orthogonal", Values: []float32{0, 1}},
	}
	written, err := s.Upsert(ctx, "session-a", records)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if written != 3 {
		t.Errorf("written: got %d, want 3", written)
	}

	matches, err := s.Query(ctx, "session-a", []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].ID != "exact" {
		t.Errorf("best match: got %s", matches[0].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches not sorted by descending score")
	}
	if matches[0].Metadata["text"] != "exact" {
		t.Errorf("metadata not returned: %v", matches[0].Metadata)
	}
}

func TestMemoryStore_NamespaceIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Upsert(ctx, "session-a", []Record{{ID: "a1", Values: []float32{1, 0}}}); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if _, err := s.Upsert(ctx, "session-b", []Record{{ID: "b1", Values: []float32{1, 0}}}); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	matches, err := s.Query(ctx, "session-a", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, m := range matches {
		if m.ID == "b1" {
			t.Error("query leaked a record from another namespace")
		}
	}
	if len(matches) != 1 {
		t.Errorf("got %d matches, want 1", len(matches))
	}
}

func TestMemoryStore_UpsertOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Upsert(ctx, "ns", []Record{{ID: "r", Values: []float32{1, 0}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.Upsert(ctx, "ns", []Record{{ID: "r", Values: []float32{0, 1}, Metadata: map[string]string{"v": "2"}}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	matches, err := s.Query(ctx, "ns", []float32{0, 1}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("duplicate ID produced %d records, want 1", len(matches))
	}
	if matches[0].Metadata["v"] != "2" {
		t.Error("second upsert did not overwrite the record")
	}
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.EnsureIndex(ctx, 3); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	_, err := s.Upsert(ctx, "ns", []Record{{ID: "r", Values: []float32{1, 0}}})
	if !errors.Is(err, errors.ErrCodeDimensionMismatch) {
		t.Errorf("upsert: got %v, want DIMENSION_MISMATCH", err)
	}
	_, err = s.Query(ctx, "ns", []float32{1, 0}, 5)
	if !errors.Is(err, errors.ErrCodeDimensionMismatch) {
		t.Errorf("query: got %v, want DIMENSION_MISMATCH", err)
	}
	if err := s.EnsureIndex(ctx, 4); !errors.Is(err, errors.ErrCodeDimensionMismatch) {
		t.Errorf("re-ensure with new dimension: got %v", err)
	}
}

func TestMemoryStore_UnknownNamespace(t *testing.T) {
	s := NewMemoryStore()
	matches, err := s.Query(context.Background(), "nope", []float32{1}, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("unknown namespace should yield no matches, got %d", len(matches))
	}
}

func TestNewPineconeStore_RequiresKey(t *testing.T) {
	_, err := NewPineconeStore(PineconeConfig{Index: "idx"})
	if !errors.Is(err, errors.ErrCodeStoreUnavailable) {
		t.Errorf("got %v, want STORE_UNAVAILABLE", err)
	}
	_, err = NewPineconeStore(PineconeConfig{APIKey: "pc"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("got %v, want INVALID_INPUT", err)
	}
}

// pineconeFake serves both control and data plane routes for adapter tests.
type pineconeFake struct {
	t           *testing.T
	dataURL     string
	exists      bool
	dimension   int
	creates     int
	upserts     []pineconeUpsertRequest
	lastQuery   *pineconeQueryRequest
	queryResult []Match
}

func (f *pineconeFake) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") == "" {
			f.t.Error("missing Api-Key header")
		}
		switch {
		case r.Method == "GET" && r.URL.Path == "/indexes/test-index":
			if !f.exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"name":      "test-index",
				"dimension": f.dimension,
				"host":      r.Host,
				"status":    map[string]any{"ready": true, "state": "Ready"},
			})
		case r.Method == "POST" && r.URL.Path == "/indexes":
			f.creates++
			if f.exists {
				w.WriteHeader(http.StatusConflict)
				return
			}
			var req pineconeCreateIndexRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Metric != "cosine" {
				f.t.Errorf("metric: got %q", req.Metric)
			}
			if req.Spec.Serverless.Cloud == "" || req.Spec.Serverless.Region == "" {
				f.t.Error("serverless spec not populated")
			}
			f.exists = true
			f.dimension = req.Dimension
			w.WriteHeader(http.StatusCreated)
		case r.Method == "POST" && r.URL.Path == "/vectors/upsert":
			var req pineconeUpsertRequest
			json.NewDecoder(r.Body).Decode(&req)
			f.upserts = append(f.upserts, req)
			json.NewEncoder(w).Encode(map[string]int{"upsertedCount": len(req.Vectors)})
		case r.Method == "POST" && r.URL.Path == "/query":
			var req pineconeQueryRequest
			json.NewDecoder(r.Body).Decode(&req)
			f.lastQuery = &req
			json.NewEncoder(w).Encode(pineconeQueryResponse{Matches: f.queryResult})
		default:
			f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newPineconeFake(t *testing.T) (*pineconeFake, *PineconeStore) {
	f := &pineconeFake{t: t}
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	store, err := NewPineconeStore(PineconeConfig{
		APIKey:     "pc-test",
		Index:      "test-index",
		ControlURL: server.URL,
		DataURL:    server.URL,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return f, store
}

func TestPineconeStore_EnsureIndexCreates(t *testing.T) {
	f, store := newPineconeFake(t)

	if err := store.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	if f.creates != 1 {
		t.Errorf("creates: got %d, want 1", f.creates)
	}
	if f.dimension != 1536 {
		t.Errorf("dimension: got %d", f.dimension)
	}

	// Second call sees the existing index and does not create again
	if err := store.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("re-ensure: %v", err)
	}
	if f.creates != 1 {
		t.Errorf("re-ensure created again: %d", f.creates)
	}
}

func TestPineconeStore_EnsureIndexConflictIsSuccess(t *testing.T) {
	// Simulate losing the create race: describe 404s until a create has been
	// attempted, and the create itself conflicts.
	creates := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET":
			if creates == 0 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"name": "test-index", "dimension": 1536, "host": r.Host,
			})
		case r.Method == "POST" && r.URL.Path == "/indexes":
			creates++
			w.WriteHeader(http.StatusConflict)
		}
	}))
	defer server.Close()

	store, err := NewPineconeStore(PineconeConfig{
		APIKey: "pc-test", Index: "test-index", ControlURL: server.URL,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("conflict should be success: %v", err)
	}
}

func TestPineconeStore_EnsureIndexDimensionMismatch(t *testing.T) {
	f, store := newPineconeFake(t)
	f.exists = true
	f.dimension = 1536

	err := store.EnsureIndex(context.Background(), 128)
	if !errors.Is(err, errors.ErrCodeDimensionMismatch) {
		t.Errorf("got %v, want DIMENSION_MISMATCH", err)
	}
}

func TestPineconeStore_UpsertAndQuery(t *testing.T) {
	f, store := newPineconeFake(t)
	f.exists = true
	f.dimension = 2
	f.queryResult = []Match{
		{ID: "c0", Score: 0.92, Metadata: map[string]string{"text": "Go engineer"}},
	}
	ctx := context.Background()

	records := []Record{
		{ID: "session-1-0", Values: []float32{0.1, 0.2}, Metadata: map[string]string{"text": "chunk", "source": "resume"}},
	}
	written, err := store.Upsert(ctx, "session-1", records)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if written != 1 {
		t.Errorf("written: got %d, want 1", written)
	}
	if len(f.upserts) != 1 || f.upserts[0].Namespace != "session-1" {
		t.Fatalf("upsert request: %+v", f.upserts)
	}

	matches, err := store.Query(ctx, "session-1", []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if f.lastQuery == nil || f.lastQuery.TopK != 5 || !f.lastQuery.IncludeMetadata {
		t.Errorf("query request: %+v", f.lastQuery)
	}
	if f.lastQuery.Namespace != "session-1" {
		t.Errorf("namespace: got %q", f.lastQuery.Namespace)
	}
	if len(matches) != 1 || matches[0].Metadata["text"] != "Go engineer" {
		t.Errorf("matches: %+v", matches)
	}
}

func TestPineconeStore_UpsertGarbageResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	store, err := NewPineconeStore(PineconeConfig{
		APIKey: "pc-test", Index: "test-index", ControlURL: server.URL, DataURL: server.URL,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	written, err := store.Upsert(context.Background(), "ns", []Record{{ID: "r", Values: []float32{1}}})
	if !errors.Is(err, errors.ErrCodeMalformedResponse) {
		t.Fatalf("got %v, want MALFORMED_RESPONSE", err)
	}
	if written != 0 {
		t.Errorf("written: got %d, want 0", written)
	}
}

func TestPineconeStore_UpstreamErrorSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("index is melting"))
	}))
	defer server.Close()

	store, err := NewPineconeStore(PineconeConfig{
		APIKey: "pc-test", Index: "test-index", ControlURL: server.URL, DataURL: server.URL,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, err = store.Upsert(context.Background(), "ns", []Record{{ID: "r", Values: []float32{1}}})
	if !errors.Is(err, errors.ErrCodeUpstream) {
		t.Fatalf("got %v, want UPSTREAM", err)
	}
	if status := errors.HTTPStatus(err); status != http.StatusServiceUnavailable {
		t.Errorf("http status: got %d, want 503", status)
	}
}
