package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/search"
	"github.com/matheuskafuri/blogsearch/internal/swr"
)

var (
	flagCategories []string
	flagTimeout    time.Duration
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Print articles matching a title query and categories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false, false)
		if err != nil {
			return err
		}
		defer e.Close()

		var query string
		if len(args) == 1 {
			query = args[0]
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()

		rc := swr.New(swr.WithLogger(e.logger.Named("swr")))
		view, err := runSearch(ctx, e.provider, rc, query, flagCategories)
		if err != nil {
			return err
		}
		labels := map[string]string{}
		if cats, err := swr.Get(ctx, rc, search.CategoriesKey, e.provider.FetchCategories); err == nil {
			for _, c := range cats {
				labels[c.ID] = c.Name
			}
		}
		printArticles(cmd.OutOrStdout(), view.Items, labels)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringSliceVarP(&flagCategories, "category", "c", nil, "category ID to match (repeatable, any-of)")
	searchCmd.Flags().DurationVar(&flagTimeout, "timeout", 15*time.Second, "give up after this long")
}

// runSearch drives a coordinator through one query and returns the first view
// whose items answer it.
func runSearch(ctx context.Context, p search.Provider, rc *swr.Cache, query string, categories []string, opts ...search.Option) (search.View, error) {
	changed := make(chan struct{}, 1)
	notify := func(search.View) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	c := search.New(p, rc, append(opts, search.WithOnChange(notify))...)
	defer c.Close()

	want := search.NewFilter(query, categories)
	if !want.Active() {
		c.Wait()
		return c.Snapshot(), nil
	}
	c.SetCategories(categories)
	c.SetQuery(query)

	for {
		v := c.Snapshot()
		if v.Filter.Key() == want.Key() {
			if v.Err != nil {
				return v, v.Err
			}
			if !v.Stale {
				return v, nil
			}
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return v, fmt.Errorf("search: %w", ctx.Err())
		}
	}
}

func printArticles(w io.Writer, items []cache.Article, labels map[string]string) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No articles found.")
		return
	}
	for _, a := range items {
		names := make([]string, 0, len(a.CategoryIDs))
		for _, id := range a.CategoryIDs {
			if n, ok := labels[id]; ok {
				names = append(names, n)
			} else {
				names = append(names, id)
			}
		}
		fmt.Fprintf(w, "%s  %s\n", a.Published.Format("2006-01-02"), a.Title)
		meta := "            " + a.Source
		if len(names) > 0 {
			meta += " · " + strings.Join(names, ", ")
		}
		fmt.Fprintln(w, meta)
		fmt.Fprintln(w, "            "+a.Link)
	}
}
