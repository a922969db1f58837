// Package feed pulls engineering blog posts from RSS and Atom sources.
package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/config"
)

type Fetcher interface {
	Fetch(ctx context.Context, source config.Source) ([]cache.Article, error)
}

// Classifier assigns category IDs to an article.
type Classifier interface {
	Classify(title, description string) []string
}

type RSSFetcher struct {
	parser     *gofeed.Parser
	classifier Classifier
	maxAge     time.Duration
}

// NewRSSFetcher returns a fetcher that drops items older than maxAge. Zero keeps everything.
func NewRSSFetcher(c Classifier, maxAge time.Duration) *RSSFetcher {
	return &RSSFetcher{parser: gofeed.NewParser(), classifier: c, maxAge: maxAge}
}

func (f *RSSFetcher) Fetch(ctx context.Context, source config.Source) ([]cache.Article, error) {
	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
	}

	now := time.Now()
	articles := make([]cache.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		pub := now
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}

		if f.maxAge > 0 && pub.Before(now.Add(-f.maxAge)) {
			continue
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		desc = truncate(stripHTML(desc), 300)

		title := strings.TrimSpace(item.Title)
		var cats []string
		if f.classifier != nil {
			cats = f.classifier.Classify(title, desc)
		}

		articles = append(articles, cache.Article{
			ID:          articleID(item.Link),
			Slug:        Slugify(title),
			Source:      source.Name,
			Title:       title,
			Link:        item.Link,
			Description: desc,
			CategoryIDs: cats,
			Published:   pub,
			FetchedAt:   now,
		})
	}
	return articles, nil
}

func articleID(link string) string {
	h := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", h[:16])
}

// Slugify lowercases s and joins its letter and digit runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

type FetchResult struct {
	Articles []cache.Article
	Errors   []error
}

// FetchAll fetches every source in parallel. A failing source is logged and
// recorded in Errors without stopping the others.
func FetchAll(ctx context.Context, fetcher Fetcher, sources []config.Source, l *zap.Logger) FetchResult {
	if l == nil {
		l = zap.NewNop()
	}
	var (
		mu     sync.Mutex
		result FetchResult
		wg     sync.WaitGroup
	)

	for _, src := range sources {
		wg.Add(1)
		go func(s config.Source) {
			defer wg.Done()
			start := time.Now()
			articles, err := fetcher.Fetch(ctx, s)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				l.Warn("feed fetch failed", zap.String("source", s.Name), zap.Error(err))
				result.Errors = append(result.Errors, err)
				return
			}
			l.Debug("feed fetched",
				zap.String("source", s.Name),
				zap.Int("articles", len(articles)),
				zap.Duration("took", time.Since(start)),
			)
			result.Articles = append(result.Articles, articles...)
		}(src)
	}

	wg.Wait()
	return result
}
