// Package api serves the article store as JSON for remote search clients.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/logger"
	"github.com/matheuskafuri/blogsearch/internal/metrics"
	"github.com/matheuskafuri/blogsearch/internal/provider"
	"github.com/matheuskafuri/blogsearch/internal/search"
)

const maxLimit = 500

type Server struct {
	articles provider.Provider
	logger   *zap.Logger
}

func NewServer(p provider.Provider, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{articles: p, logger: l}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(s.requestLogger)

	r.Get("/articles", s.listArticles)
	r.Get("/categories", s.listCategories)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

type articlesResponse struct {
	Data []cache.Article `json:"data"`
}

type categoriesResponse struct {
	Data []cache.Category `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// listArticles handles GET /articles?q=&category=&limit=.
// Without q or category it returns the baseline list.
func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxLimit {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 0 and 500")
			return
		}
		limit = n
	}

	f := search.NewFilter(q.Get("q"), q["category"])

	var (
		items []cache.Article
		err   error
	)
	if f.Active() {
		items, err = s.articles.FetchCollection(r.Context(), f.Criteria())
	} else {
		items, err = s.articles.FetchBaseline(r.Context())
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("listing articles", zap.String("key", f.Key()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []cache.Article{}
	}
	writeJSON(w, http.StatusOK, articlesResponse{Data: items})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.articles.FetchCategories(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("listing categories", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if cats == nil {
		cats = []cache.Category{}
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Data: cats})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		l := s.logger.With(zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logger.ContextWithLogger(r.Context(), l)))

		l.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
