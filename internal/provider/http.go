package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/search"
)

// ErrStatus is returned when the API answers with a non-200 status.
var ErrStatus = errors.New("unexpected status")

type articlesResponse struct {
	Data []cache.Article `json:"data"`
}

type categoriesResponse struct {
	Data []cache.Category `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTP reads articles from a blogsearch API server.
type HTTP struct {
	base          *url.URL
	client        *http.Client
	limiter       *rate.Limiter
	baselineLimit int
	logger        *zap.Logger
}

type HTTPOption func(*HTTP)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithRateLimit paces outgoing requests. The default is 10/s with a burst of 5.
func WithRateLimit(r rate.Limit, burst int) HTTPOption {
	return func(h *HTTP) { h.limiter = rate.NewLimiter(r, burst) }
}

func WithBaselineLimit(n int) HTTPOption {
	return func(h *HTTP) { h.baselineLimit = n }
}

func WithHTTPLogger(l *zap.Logger) HTTPOption {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https, got %q", u.Scheme)
	}
	h := &HTTP{
		base:          u,
		client:        &http.Client{Timeout: 15 * time.Second},
		limiter:       rate.NewLimiter(10, 5),
		baselineLimit: 10,
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(h)
	}
	return h, nil
}

func (h *HTTP) FetchBaseline(ctx context.Context) ([]cache.Article, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(h.baselineLimit))
	var resp articlesResponse
	if err := h.get(ctx, "/articles", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (h *HTTP) FetchCollection(ctx context.Context, c search.Criteria) ([]cache.Article, error) {
	q := url.Values{}
	if c.Query != "" {
		q.Set("q", c.Query)
	}
	for _, id := range c.CategoryIDs {
		q.Add("category", id)
	}
	var resp articlesResponse
	if err := h.get(ctx, "/articles", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (h *HTTP) FetchCategories(ctx context.Context) ([]cache.Category, error) {
	var resp categoriesResponse
	if err := h.get(ctx, "/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (h *HTTP) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}

	u := h.base.JoinPath(path)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	h.logger.Debug("api request",
		zap.String("url", u.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		if json.Unmarshal(body, &e) != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("GET %s: %w %d: %s", path, ErrStatus, resp.StatusCode, e.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", path, err)
	}
	return nil
}
