package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/classify"
	"github.com/matheuskafuri/blogsearch/internal/config"
	"github.com/matheuskafuri/blogsearch/internal/feed"
)

var flagMaxAge string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch feeds into the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false, true)
		if err != nil {
			return err
		}
		defer e.Close()

		var maxAge time.Duration
		if flagMaxAge != "" {
			if maxAge, err = config.ParseDays(flagMaxAge); err != nil {
				return fmt.Errorf("invalid --max-age value: %w", err)
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()
		n, err := ingest(ctx, e.cfg, e.db, maxAge, e.logger)
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %d article(s).\n", n)
		return err
	},
}

func init() {
	ingestCmd.Flags().StringVar(&flagMaxAge, "max-age", "", "skip items older than this (e.g., 7d, 48h)")
}

// ingest fetches every enabled source, classifies and stores the articles, and
// prunes past the retention period. Failing sources are joined into the error
// but do not stop the others from being stored.
func ingest(ctx context.Context, cfg *config.Config, db *cache.Cache, maxAge time.Duration, l *zap.Logger) (int, error) {
	categories := make([]cache.Category, len(cfg.Categories))
	for i, c := range cfg.Categories {
		categories[i] = cache.Category{ID: c.ID, Name: c.Name}
	}
	if err := db.UpsertCategories(categories); err != nil {
		return 0, fmt.Errorf("storing categories: %w", err)
	}

	fetcher := feed.NewRSSFetcher(classify.New(cfg.Categories, cfg.FallbackCategory), maxAge)
	result := feed.FetchAll(ctx, fetcher, cfg.EnabledSources(), l)

	if err := db.UpsertArticles(result.Articles); err != nil {
		return 0, fmt.Errorf("caching articles: %w", err)
	}
	if err := db.SetLastRefresh(); err != nil {
		l.Warn("recording refresh time", zap.Error(err))
	}

	pruned, err := db.Prune(cfg.RetentionDuration())
	if err != nil {
		l.Warn("pruning after ingest", zap.Error(err))
	}
	l.Info("ingest done",
		zap.Int("articles", len(result.Articles)),
		zap.Int("failed_sources", len(result.Errors)),
		zap.Int64("pruned", pruned),
	)
	return len(result.Articles), errors.Join(result.Errors...)
}
