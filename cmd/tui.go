package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/provider"
	"github.com/matheuskafuri/blogsearch/internal/search"
	"github.com/matheuskafuri/blogsearch/internal/swr"
	"github.com/matheuskafuri/blogsearch/internal/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := openEnv(true, false)
	if err != nil {
		return err
	}
	defer e.Close()

	var refresh tui.RefreshFunc
	if e.db != nil {
		if flagRefresh || e.db.NeedsRefresh(e.cfg.RefreshDuration()) {
			fmt.Println("Fetching feeds...")
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			if _, err := ingest(ctx, e.cfg, e.db, 0, e.logger); err != nil {
				fmt.Fprintf(os.Stderr, "  [warn] %v\n", err)
			}
			cancel()
		}
		refresh = func(ctx context.Context) (int, error) {
			return ingest(ctx, e.cfg, e.db, 0, e.logger)
		}
	}

	rc, categories, err := seedCache(cmd.Context(), e.provider, e.logger)
	if err != nil {
		return err
	}

	return tui.Run(tui.RunOpts{
		Provider:   e.provider,
		Cache:      rc,
		Categories: categories,
		ArchiveURL: e.cfg.ArchiveURL,
		Refresh:    refresh,
		Logger:     e.logger,
		Search: []search.Option{
			search.WithQueryDelay(e.cfg.QueryDebounce()),
			search.WithLoadingDelay(e.cfg.LoadingDebounce()),
			search.WithLogger(e.logger.Named("search")),
		},
	})
}

// seedCache prefetches the baseline and the category list so the first frame
// renders without waiting on a request.
func seedCache(ctx context.Context, p provider.Provider, l *zap.Logger) (*swr.Cache, []cache.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	fallback, err := provider.Fallback(ctx, p)
	if err != nil {
		return nil, nil, fmt.Errorf("loading articles: %w", err)
	}
	rc := swr.New(swr.WithFallback(fallback), swr.WithLogger(l.Named("swr")))
	categories, err := swr.Get(ctx, rc, search.CategoriesKey, p.FetchCategories)
	if err != nil {
		return nil, nil, err
	}
	return rc, categories, nil
}
