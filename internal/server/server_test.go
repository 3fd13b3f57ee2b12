package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/domain/commonModels"
	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/handlers"
	"github.com/Kar2410/FLOW-FIX/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJobs struct{}

func (stubJobs) Enqueue(context.Context, jobModel.Job) error { return nil }
func (stubJobs) GetJob(context.Context, string) (jobModel.Job, bool) {
	return jobModel.Job{}, false
}
func (stubJobs) ResolveChat(_ context.Context, id string) (string, error) { return id, nil }

type stubKB struct{}

func (stubKB) Search(context.Context, string, float64, int) ([]commonModels.SimilarityResult, error) {
	return nil, nil
}
func (stubKB) RegisterDocument(context.Context, string) (commonModels.Document, error) {
	return commonModels.Document{}, errors.New("not used")
}
func (stubKB) GetDocument(context.Context, string) (commonModels.Document, bool, error) {
	return commonModels.Document{}, false, nil
}
func (stubKB) ListDocuments(context.Context) ([]commonModels.Document, error) { return nil, nil }
func (stubKB) DeleteDocument(context.Context, string) (int, bool, error)      { return 0, false, nil }
func (stubKB) Defaults() config.SearchSettings                               { return config.SearchSettings{TopK: 3} }

type stubPool struct {
	stopped bool
	err     error
}

func (p *stubPool) Stop(context.Context) error {
	p.stopped = true
	return p.err
}

func newRouter(t *testing.T, token string) http.Handler {
	t.Helper()
	h, err := handlers.NewHandler(stubJobs{}, stubKB{}, t.TempDir())
	require.NoError(t, err)
	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return NewRouter(h, middleware.New(config.ServerSettings{AuthToken: token}), mcp)
}

func get(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	r := newRouter(t, "tok")

	assert.Equal(t, http.StatusOK, get(r, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, get(r, http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusMovedPermanently, get(r, http.MethodGet, "/swagger", "").Code)

	assert.Equal(t, http.StatusUnauthorized, get(r, http.MethodGet, "/documents", "").Code)
	assert.Equal(t, http.StatusOK, get(r, http.MethodGet, "/documents", "tok").Code)
	assert.Equal(t, http.StatusNotFound, get(r, http.MethodGet, "/status/missing", "tok").Code)
	assert.Equal(t, http.StatusNotFound, get(r, http.MethodDelete, "/documents/missing", "tok").Code)

	assert.Equal(t, http.StatusUnauthorized, get(r, http.MethodPost, "/mcp", "").Code)
	assert.Equal(t, http.StatusTeapot, get(r, http.MethodPost, "/mcp", "tok").Code)
}

func TestShutdown(t *testing.T) {
	s := New("127.0.0.1:0", http.NotFoundHandler())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe() }()

	pool := &stubPool{}
	closed := false
	require.NoError(t, s.Shutdown(pool, func() { closed = true }))

	assert.NoError(t, <-done)
	assert.True(t, pool.stopped)
	assert.True(t, closed)
}

func TestShutdownReportsWorkerTimeout(t *testing.T) {
	s := New("127.0.0.1:0", http.NotFoundHandler())
	pool := &stubPool{err: context.DeadlineExceeded}

	err := s.Shutdown(pool, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
