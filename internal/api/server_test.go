package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/search"
)

type stubProvider struct {
	baseline   []cache.Article
	filtered   []cache.Article
	categories []cache.Category
	err        error
	lastCrit   *search.Criteria
}

func (s *stubProvider) FetchBaseline(context.Context) ([]cache.Article, error) {
	return s.baseline, s.err
}

func (s *stubProvider) FetchCollection(_ context.Context, c search.Criteria) ([]cache.Article, error) {
	s.lastCrit = &c
	return s.filtered, s.err
}

func (s *stubProvider) FetchCategories(context.Context) ([]cache.Category, error) {
	return s.categories, s.err
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListArticlesBaseline(t *testing.T) {
	p := &stubProvider{baseline: []cache.Article{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	h := NewServer(p, nil).Routes()

	rec := do(t, h, "/articles?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp articlesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "a", resp.Data[0].ID)
	assert.Nil(t, p.lastCrit, "no filter means no filtered request")
}

func TestListArticlesFiltered(t *testing.T) {
	p := &stubProvider{filtered: []cache.Article{{ID: "x"}}}
	h := NewServer(p, nil).Routes()

	rec := do(t, h, "/articles?q=+rust+&category=tools&category=ai")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, p.lastCrit)
	assert.Equal(t, search.Criteria{Query: "rust", CategoryIDs: []string{"ai", "tools"}}, *p.lastCrit)

	var resp articlesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
}

func TestListArticlesEmptyIsArray(t *testing.T) {
	h := NewServer(&stubProvider{}, nil).Routes()

	rec := do(t, h, "/articles?q=nothing")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestListArticlesBadLimit(t *testing.T) {
	h := NewServer(&stubProvider{}, nil).Routes()

	for _, target := range []string{"/articles?limit=x", "/articles?limit=-1", "/articles?limit=100000"} {
		rec := do(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var e errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
		assert.NotEmpty(t, e.Error)
	}
}

func TestProviderFailure(t *testing.T) {
	h := NewServer(&stubProvider{err: errors.New("db locked")}, nil).Routes()

	assert.Equal(t, http.StatusInternalServerError, do(t, h, "/articles").Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, h, "/categories").Code)
}

func TestListCategories(t *testing.T) {
	p := &stubProvider{categories: []cache.Category{{ID: "ai", Name: "AI/ML"}}}
	h := NewServer(p, nil).Routes()

	rec := do(t, h, "/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[{"id":"ai","name":"AI/ML"}]}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	h := NewServer(&stubProvider{}, nil).Routes()
	rec := do(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
