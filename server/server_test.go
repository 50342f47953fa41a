package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/docembed/ai/mock"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/ingestion"
	"github.com/poiesic/docembed/search"
	"github.com/poiesic/docembed/section"
	"github.com/poiesic/docembed/storage"
	"github.com/poiesic/docembed/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const twoSections = "hello world\n\nsecond part\n\n"

// brokenUpsertStore fails every upsert.
type brokenUpsertStore struct {
	storage.CollectionStore
}

func (b *brokenUpsertStore) UpsertPoints(context.Context, string, ...*core.Point) error {
	return errors.New("disk full")
}

// panickingStore panics when asked for collection info.
type panickingStore struct {
	storage.CollectionStore
}

func (p *panickingStore) CollectionInfo(context.Context, string) (*core.CollectionInfo, error) {
	panic("collection info exploded")
}

func newTestServer(t *testing.T, store storage.CollectionStore, opts ...Option) *Server {
	t.Helper()
	if store == nil {
		s, err := badger.NewMemoryStore()
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		store = s
	}
	embedder := mock.NewMockEmbedderWithDimension(3).WithEmbedFunc(
		func(_ context.Context, text string) ([][]float32, error) {
			return [][]float32{mock.GenerateDeterministicVector(strings.TrimSpace(text), 3)}, nil
		})

	pipeline, err := ingestion.NewPipeline(store, embedder,
		ingestion.WithSectionizer(section.New(section.WithSoftMinimum(5))))
	require.NoError(t, err)
	searcher, err := search.NewSearcher(store, embedder)
	require.NoError(t, err)

	srv, err := New(pipeline, searcher, store, opts...)
	require.NoError(t, err)
	t.Cleanup(srv.Release)
	return srv
}

func do(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresDependencies(t *testing.T) {
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()
	embedder := mock.NewMockEmbedderWithDimension(3)
	pipeline, err := ingestion.NewPipeline(store, embedder)
	require.NoError(t, err)
	searcher, err := search.NewSearcher(store, embedder)
	require.NoError(t, err)

	_, err = New(nil, searcher, store)
	assert.ErrorIs(t, err, ErrPipelineRequired)
	_, err = New(pipeline, nil, store)
	assert.ErrorIs(t, err, ErrSearcherRequired)
	_, err = New(pipeline, searcher, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	srv, err := New(pipeline, searcher, store, WithMaxConcurrent(0), WithLogger(nil))
	require.NoError(t, err)
	defer srv.Release()
	assert.Equal(t, 1, srv.maxConcurrent)
}

func TestIngest_ResetThenContinue(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/?collection_name=docs&vector_size=3&reset", twoSections)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Successfully inserted 2 records. The collection now has 2 records in total.", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	rec = do(srv, http.MethodPost, "/ingest?collection_name=docs&vector_size=3", twoSections)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Successfully inserted 2 records. The collection now has 4 records in total.", rec.Body.String())
}

func TestIngest_PipelineFailuresAnswer200(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/?collection_name=missing&vector_size=3", twoSections)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cannot query database!", rec.Body.String())

	rec = do(srv, http.MethodPost, "/?collection_name=docs&vector_size=0&reset", twoSections)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cannot create collection", rec.Body.String())
}

func TestIngest_UpsertFailure(t *testing.T) {
	inner, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer inner.Close()
	srv := newTestServer(t, &brokenUpsertStore{CollectionStore: inner})

	rec := do(srv, http.MethodPost, "/?collection_name=docs&vector_size=3&reset", twoSections)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Cannot upsert into database!", rec.Body.String())
}

func TestIngest_PipelinePanicAnswers(t *testing.T) {
	inner, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer inner.Close()
	srv := newTestServer(t, &panickingStore{CollectionStore: inner})

	result := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		result <- do(srv, http.MethodPost, "/?collection_name=docs&vector_size=3", twoSections)
	}()

	select {
	case rec := <-result:
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), ErrIngestionPanicked.Error())
	case <-time.After(5 * time.Second):
		t.Fatal("ingestion request did not complete after the pipeline panicked")
	}

	// the worker is returned to the pool
	rec := do(srv, http.MethodPost, "/?collection_name=docs&vector_size=3", twoSections)
	assert.Contains(t, rec.Body.String(), ErrIngestionPanicked.Error())
}

func TestIngest_BadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		target string
		body   string
		reason string
	}{
		{"missing collection", "/?vector_size=3", twoSections, "collection_name"},
		{"empty collection", "/?collection_name=&vector_size=3", twoSections, "collection_name"},
		{"missing vector size", "/?collection_name=docs", twoSections, "vector_size"},
		{"non-numeric vector size", "/?collection_name=docs&vector_size=abc", twoSections, "vector_size"},
		{"negative vector size", "/?collection_name=docs&vector_size=-3", twoSections, "vector_size"},
		{"invalid utf-8", "/?collection_name=docs&vector_size=3", "bad \xff\xfe bytes", "UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.reason)
		})
	}
}

func TestIngest_KeepsRequestID(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/?collection_name=docs&vector_size=3&reset=", strings.NewReader(twoSections))
	req.Header.Set(headerRequestID, "req-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(headerRequestID))
	assert.Contains(t, rec.Body.String(), "Successfully inserted 2 records")
}

func TestIngest_ConcurrentRequests(t *testing.T) {
	srv := newTestServer(t, nil, WithMaxConcurrent(2))

	var wg sync.WaitGroup
	bodies := make([]string, 6)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := do(srv, http.MethodPost, fmt.Sprintf("/?collection_name=docs%d&vector_size=3&reset", i), twoSections)
			bodies[i] = rec.Body.String()
		}(i)
	}
	wg.Wait()

	for i, body := range bodies {
		assert.Equal(t, "Successfully inserted 2 records. The collection now has 2 records in total.", body, "request %d", i)
	}
}

func TestIngest_AfterRelease(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.Release()

	rec := do(srv, http.MethodPost, "/?collection_name=docs&vector_size=3&reset", twoSections)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/?collection_name=docs&vector_size=3&reset", twoSections).Code)

	rec := do(srv, http.MethodGet, "/search?collection_name=docs&q=hello+world&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hits []SearchHit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "hello world\n\n", hits[0].Text)
	assert.Equal(t, "0", hits[0].Extra[core.PayloadSection])

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing collection param", "/search?q=x", http.StatusBadRequest},
		{"bad limit", "/search?collection_name=docs&q=x&limit=zero", http.StatusBadRequest},
		{"limit too large", "/search?collection_name=docs&q=x&limit=1000", http.StatusBadRequest},
		{"empty query", "/search?collection_name=docs&q=", http.StatusBadRequest},
		{"unknown collection", "/search?collection_name=nope&q=x", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, do(srv, http.MethodGet, tt.target, "").Code)
		})
	}
}

func TestCollectionInfo(t *testing.T) {
	srv := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/?collection_name=docs&vector_size=3&reset", twoSections).Code)

	rec := do(srv, http.MethodGet, "/collections/docs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info CollectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, CollectionResponse{Name: "docs", VectorSize: 3, PointsCount: 2}, info)

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/collections/nope", "").Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.ListenAndServe(ctx, "127.0.0.1:0"))
}
