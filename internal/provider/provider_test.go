package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/matheuskafuri/blogsearch/internal/api"
	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/provider"
	"github.com/matheuskafuri/blogsearch/internal/search"
)

func testStore(t *testing.T) *cache.Cache {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Now()
	require.NoError(t, db.UpsertCategories([]cache.Category{
		{ID: "ai", Name: "AI/ML"},
		{ID: "infra", Name: "Infrastructure"},
	}))
	require.NoError(t, db.UpsertArticles([]cache.Article{
		{ID: "1", Title: "Serving LLMs on GPUs", Link: "https://x/1", CategoryIDs: []string{"ai", "infra"}, Published: now.Add(-time.Hour), FetchedAt: now},
		{ID: "2", Title: "Kubernetes networking", Link: "https://x/2", CategoryIDs: []string{"infra"}, Published: now.Add(-2 * time.Hour), FetchedAt: now},
		{ID: "3", Title: "Embedding search", Link: "https://x/3", CategoryIDs: []string{"ai"}, Published: now.Add(-3 * time.Hour), FetchedAt: now},
	}))
	return db
}

func articleIDs(items []cache.Article) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func TestStore(t *testing.T) {
	p := provider.NewStore(testStore(t), 2)
	ctx := context.Background()

	base, err := p.FetchBaseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, articleIDs(base))

	got, err := p.FetchCollection(ctx, search.Criteria{Query: "kubernetes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, articleIDs(got))

	got, err = p.FetchCollection(ctx, search.Criteria{CategoryIDs: []string{"ai"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, articleIDs(got))

	cats, err := p.FetchCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = p.FetchCollection(cancelled, search.Criteria{Query: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPAgainstAPI(t *testing.T) {
	srv := httptest.NewServer(api.NewServer(provider.NewStore(testStore(t), 10), nil).Routes())
	defer srv.Close()

	p, err := provider.NewHTTP(srv.URL, provider.WithBaselineLimit(2), provider.WithRateLimit(rate.Inf, 1))
	require.NoError(t, err)
	ctx := context.Background()

	base, err := p.FetchBaseline(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, articleIDs(base))

	got, err := p.FetchCollection(ctx, search.Criteria{Query: "search", CategoryIDs: []string{"ai"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, articleIDs(got))
	assert.Equal(t, []string{"ai"}, got[0].CategoryIDs)

	cats, err := p.FetchCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AI/ML", cats[0].Name)
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer srv.Close()

	p, err := provider.NewHTTP(srv.URL)
	require.NoError(t, err)

	_, err = p.FetchCollection(context.Background(), search.Criteria{Query: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, provider.ErrStatus))
	assert.Contains(t, err.Error(), "maintenance")
}

func TestNewHTTPRejectsBadScheme(t *testing.T) {
	_, err := provider.NewHTTP("file:///tmp/articles")
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	fb, err := provider.Fallback(context.Background(), provider.NewStore(testStore(t), 10))
	require.NoError(t, err)

	base, ok := fb[search.BaselineKey].([]cache.Article)
	require.True(t, ok)
	assert.Len(t, base, 3)

	cats, ok := fb[search.CategoriesKey].([]cache.Category)
	require.True(t, ok)
	assert.Len(t, cats, 2)
}
