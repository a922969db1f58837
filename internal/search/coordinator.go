// Package search coordinates incremental article search.
//
// A Coordinator turns a stream of keystrokes and category toggles into a stream of
// Views: the list to display and whether a slow request is in progress. Input is
// debounced before any request is made, requests go through a shared swr.Cache so
// equal filters never fetch twice, and the unfiltered baseline is shown whenever the
// filter is empty.
package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/metrics"
	"github.com/matheuskafuri/blogsearch/internal/swr"
)

const (
	DefaultQueryDelay   = 200 * time.Millisecond
	DefaultLoadingDelay = 400 * time.Millisecond
)

// Provider fetches article collections.
type Provider interface {
	FetchBaseline(ctx context.Context) ([]cache.Article, error)
	FetchCollection(ctx context.Context, c Criteria) ([]cache.Article, error)
}

// View is one state of the result list. Items must not be modified.
type View struct {
	Seq      uint64 // increases with every emitted view
	Items    []cache.Article
	Filter   Filter // raw, not yet debounced
	Filtered bool   // Items came from a filtered request
	Stale    bool   // Items do not match Filter yet
	Loading  bool
	Err      error // last failure for the settled filter, cleared by a success
}

type Option func(*Coordinator)

func WithScheduler(s Scheduler) Option {
	return func(c *Coordinator) { c.sched = s }
}

func WithQueryDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.queryDelay = d }
}

func WithLoadingDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.loadingDelay = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnChange registers a callback for every new View. It runs outside the
// coordinator's lock, possibly from several goroutines; compare Seq to drop
// views that arrive out of order.
func WithOnChange(fn func(View)) Option {
	return func(c *Coordinator) { c.onChange = fn }
}

type Coordinator struct {
	provider     Provider
	cache        *swr.Cache
	sched        Scheduler
	queryDelay   time.Duration
	loadingDelay time.Duration
	logger       *zap.Logger
	onChange     func(View)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	raw        Filter
	filter     *debouncer[Filter]
	loading    *debouncer[bool]
	baseline   []cache.Article
	display    []cache.Article
	displayKey string
	inFlight   map[string]bool
	refetch    map[string]bool
	lastErr    error
	seq        uint64
	closed     bool
}

// New creates a coordinator with an empty filter and starts loading the baseline.
// If rc already holds the baseline (for example from a fallback seed) it is shown
// without a request.
func New(p Provider, rc *swr.Cache, opts ...Option) *Coordinator {
	c := &Coordinator{
		provider:     p,
		cache:        rc,
		sched:        SystemScheduler(),
		queryDelay:   DefaultQueryDelay,
		loadingDelay: DefaultLoadingDelay,
		logger:       zap.NewNop(),
		inFlight:     make(map[string]bool),
		refetch:      make(map[string]bool),
		displayKey:   BaselineKey,
	}
	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cache = swr.New()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.filter = newDebouncer(c.sched, c.queryDelay, func(a, b Filter) bool { return a.Key() == b.Key() })
	c.loading = newDebouncer(c.sched, c.loadingDelay, func(a, b bool) bool { return a == b })

	c.mu.Lock()
	c.loadBaselineLocked()
	c.mu.Unlock()
	return c
}

func (c *Coordinator) SetQuery(q string) {
	c.mu.Lock()
	c.setRawLocked(NewFilter(q, c.raw.Categories))
}

func (c *Coordinator) SetCategories(ids []string) {
	c.mu.Lock()
	c.setRawLocked(NewFilter(c.raw.Query, ids))
}

func (c *Coordinator) ToggleCategory(id string) {
	c.mu.Lock()
	c.setRawLocked(c.raw.Toggle(id))
}

// Clear empties the query and the selection.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	c.setRawLocked(Filter{})
}

// Snapshot returns the current view without advancing Seq.
func (c *Coordinator) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Reload drops cached article lists, refetches the baseline and re-requests the
// settled filter. Use it after the underlying store changed.
func (c *Coordinator) Reload() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cache.Invalidate(BaselineKey)
	if settled := c.filter.settled; settled.Active() {
		key := settled.Key()
		c.cache.Invalidate(key)
		if c.inFlight[key] {
			// The running request may have read the store before it changed.
			c.refetch[key] = true
		}
	}
	c.loadBaselineLocked()
	c.requestLocked(c.filter.settled)
	c.setValidatingLocked()
	c.emitLocked()
}

// Wait blocks until no requests started by the coordinator are outstanding.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close stops pending timers, cancels outstanding requests and waits for them.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.filter.stop()
	c.loading.stop()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
}

// setRawLocked applies a new raw filter and releases the lock.
func (c *Coordinator) setRawLocked(f Filter) {
	if c.closed || f.equal(c.raw) {
		c.mu.Unlock()
		return
	}
	c.raw = f
	if !f.Active() {
		c.display = c.baseline
		c.displayKey = BaselineKey
	}
	if f.Active() && f.Key() == c.filter.settled.Key() {
		// Back on the settled filter before the pending one fired.
		c.filter.revert()
		if c.displayKey != f.Key() {
			c.requestLocked(f)
			c.setValidatingLocked()
		}
	} else {
		c.filter.set(f, c.filterFired)
	}
	c.emitLocked()
}

func (c *Coordinator) filterFired(seq uint64, f Filter) {
	c.mu.Lock()
	if c.closed || !c.filter.settle(seq, f) {
		c.mu.Unlock()
		return
	}
	metrics.FilterSettledTotal.Inc()
	c.logger.Debug("filter settled", zap.String("key", f.Key()))
	c.lastErr = nil
	c.requestLocked(f)
	c.setValidatingLocked()
	c.emitLocked()
}

func (c *Coordinator) loadingFired(seq uint64, v bool) {
	c.mu.Lock()
	if c.closed || !c.loading.settle(seq, v) {
		c.mu.Unlock()
		return
	}
	c.emitLocked()
}

// requestLocked shows a cached result for f or starts fetching it. An inactive
// filter never issues a request.
func (c *Coordinator) requestLocked(f Filter) {
	if !f.Active() {
		return
	}
	key := f.Key()
	if v, ok := c.cache.Peek(key); ok {
		if items, ok := v.([]cache.Article); ok {
			c.showLocked(key, items)
			return
		}
	}
	if c.inFlight[key] {
		return
	}
	c.inFlight[key] = true
	crit := f.Criteria()
	c.wg.Add(1)
	go c.fetch(key, crit)
}

func (c *Coordinator) fetch(key string, crit Criteria) {
	defer c.wg.Done()
	start := time.Now()
	items, err := swr.Get(c.ctx, c.cache, key, func(ctx context.Context) ([]cache.Article, error) {
		return c.provider.FetchCollection(ctx, crit)
	})
	metrics.FilterRequestDuration.Observe(time.Since(start).Seconds())
	c.complete(key, items, err)
}

func (c *Coordinator) complete(key string, items []cache.Article, err error) {
	c.mu.Lock()
	delete(c.inFlight, key)
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.refetch[key] {
		delete(c.refetch, key)
		c.cache.Invalidate(key)
		if key == c.filter.settled.Key() {
			c.logger.Debug("refetching after reload", zap.String("key", key))
			c.requestLocked(c.filter.settled)
			c.setValidatingLocked()
			c.emitLocked()
			return
		}
	}

	switch {
	case key != c.filter.settled.Key():
		// A newer filter settled while this one was in flight.
		metrics.FilterRequestsTotal.WithLabelValues("superseded").Inc()
		c.logger.Debug("dropping superseded result", zap.String("key", key), zap.Error(err))
	case err != nil:
		metrics.FilterRequestsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("filter request failed", zap.String("key", key), zap.Error(err))
		c.lastErr = err
	default:
		metrics.FilterRequestsTotal.WithLabelValues("ok").Inc()
		c.lastErr = nil
		c.showLocked(key, items)
	}
	c.setValidatingLocked()
	c.emitLocked()
}

// showLocked displays a filtered result unless the filter was cleared meanwhile.
func (c *Coordinator) showLocked(key string, items []cache.Article) {
	if !c.raw.Active() {
		return
	}
	c.display = items
	c.displayKey = key
}

// setValidatingLocked feeds the in-flight status of the settled filter into the
// loading debouncer.
func (c *Coordinator) setValidatingLocked() {
	settled := c.filter.settled
	validating := settled.Active() && c.inFlight[settled.Key()]
	c.loading.set(validating, c.loadingFired)
}

func (c *Coordinator) loadBaselineLocked() {
	if v, ok := c.cache.Peek(BaselineKey); ok {
		if items, ok := v.([]cache.Article); ok {
			c.setBaselineLocked(items)
			return
		}
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		items, err := swr.Get(c.ctx, c.cache, BaselineKey, c.provider.FetchBaseline)
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		if err != nil {
			c.logger.Warn("baseline request failed", zap.Error(err))
			c.mu.Unlock()
			return
		}
		c.setBaselineLocked(items)
		c.emitLocked()
	}()
}

func (c *Coordinator) setBaselineLocked(items []cache.Article) {
	c.baseline = items
	if !c.raw.Active() {
		c.display = items
		c.displayKey = BaselineKey
	}
}

func (c *Coordinator) viewLocked() View {
	return View{
		Seq:      c.seq,
		Items:    c.display,
		Filter:   NewFilter(c.raw.Query, c.raw.Categories),
		Filtered: c.displayKey != BaselineKey,
		Stale:    c.displayKey != c.raw.Key(),
		Loading:  c.raw.Active() && c.loading.settled,
		Err:      c.lastErr,
	}
}

// emitLocked bumps Seq, releases the lock and notifies the subscriber.
func (c *Coordinator) emitLocked() {
	c.seq++
	v := c.viewLocked()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(v)
	}
}
