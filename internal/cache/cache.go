package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLimit = 500

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	c := &Cache{writeDB: writeDB}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}

	// The read pool is opened after the schema exists so mode=ro never sees an empty file.
	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	c.readDB = readDB
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			id          TEXT PRIMARY KEY,
			slug        TEXT NOT NULL DEFAULT '',
			source      TEXT NOT NULL DEFAULT '',
			title       TEXT NOT NULL,
			title_fold  TEXT NOT NULL DEFAULT '',
			link        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			published   DATETIME NOT NULL,
			fetched_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published DESC);

		CREATE TABLE IF NOT EXISTS categories (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS article_categories (
			article_id  TEXT NOT NULL,
			category_id TEXT NOT NULL,
			PRIMARY KEY (article_id, category_id)
		);
		CREATE INDEX IF NOT EXISTS idx_article_categories_category ON article_categories(category_id);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return c.addTitleFold()
}

// addTitleFold brings databases created before title_fold existed up to date.
func (c *Cache) addTitleFold() error {
	var n int
	err := c.writeDB.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('articles') WHERE name = 'title_fold'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspecting schema: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := c.writeDB.Exec(`ALTER TABLE articles ADD COLUMN title_fold TEXT NOT NULL DEFAULT ''`); err != nil {
		return fmt.Errorf("adding title_fold: %w", err)
	}

	rows, err := c.writeDB.Query(`SELECT id, title FROM articles`)
	if err != nil {
		return fmt.Errorf("reading titles: %w", err)
	}
	folded := map[string]string{}
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			rows.Close()
			return fmt.Errorf("scanning title: %w", err)
		}
		folded[id] = foldTitle(title)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for id, fold := range folded {
		if _, err := c.writeDB.Exec(`UPDATE articles SET title_fold = ? WHERE id = ?`, fold, id); err != nil {
			return fmt.Errorf("backfilling title_fold: %w", err)
		}
	}
	return nil
}

// foldTitle lower-cases with Unicode rules. SQLite's LIKE only folds ASCII.
func foldTitle(s string) string {
	return strings.ToLower(s)
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// UpsertArticles inserts or refreshes articles and replaces their category links.
func (c *Cache) UpsertArticles(articles []Article) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO articles (id, slug, source, title, title_fold, link, description, published, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			title_fold = excluded.title_fold,
			description = excluded.description,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	unlink, err := tx.Prepare(`DELETE FROM article_categories WHERE article_id = ?`)
	if err != nil {
		return err
	}
	defer unlink.Close()

	link, err := tx.Prepare(`INSERT OR IGNORE INTO article_categories (article_id, category_id) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer link.Close()

	for _, a := range articles {
		if _, err := stmt.Exec(a.ID, a.Slug, a.Source, a.Title, foldTitle(a.Title), a.Link, a.Description, a.Published, a.FetchedAt); err != nil {
			return fmt.Errorf("upserting article %s: %w", a.ID, err)
		}
		if _, err := unlink.Exec(a.ID); err != nil {
			return fmt.Errorf("unlinking article %s: %w", a.ID, err)
		}
		for _, cat := range a.CategoryIDs {
			if _, err := link.Exec(a.ID, cat); err != nil {
				return fmt.Errorf("linking article %s to %s: %w", a.ID, cat, err)
			}
		}
	}

	return tx.Commit()
}

func (c *Cache) UpsertCategories(categories []Category) error {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO categories (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, cat := range categories {
		if _, err := stmt.Exec(cat.ID, cat.Name); err != nil {
			return fmt.Errorf("upserting category %s: %w", cat.ID, err)
		}
	}
	return tx.Commit()
}

func (c *Cache) GetCategories() ([]Category, error) {
	rows, err := c.readDB.Query("SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (c *Cache) GetArticles(opts QueryOpts) ([]Article, error) {
	var (
		where []string
		args  []interface{}
	)

	if !opts.Since.IsZero() {
		where = append(where, "a.published >= ?")
		args = append(args, opts.Since)
	}

	if len(opts.CategoryIDs) > 0 {
		placeholders := make([]string, len(opts.CategoryIDs))
		for i, id := range opts.CategoryIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, "EXISTS (SELECT 1 FROM article_categories f WHERE f.article_id = a.id AND f.category_id IN ("+strings.Join(placeholders, ",")+"))") //nolint:gosec
	}

	if q := strings.TrimSpace(opts.Search); q != "" {
		where = append(where, `a.title_fold LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(foldTitle(q))+"%")
	}

	query := `SELECT a.id, a.slug, a.source, a.title, a.link, a.description, a.published, a.fetched_at,
		COALESCE((SELECT GROUP_CONCAT(ac.category_id) FROM article_categories ac WHERE ac.article_id = a.id), '')
		FROM articles a`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.published DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := c.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var (
			a    Article
			cats string
		)
		if err := rows.Scan(&a.ID, &a.Slug, &a.Source, &a.Title, &a.Link, &a.Description, &a.Published, &a.FetchedAt, &cats); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		a.CategoryIDs = splitIDs(cats)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// LastRefresh reports when feeds were last stored, if ever.
func (c *Cache) LastRefresh() (time.Time, bool) {
	var value string
	err := c.readDB.QueryRow("SELECT value FROM meta WHERE key = 'last_refresh'").Scan(&value)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (c *Cache) NeedsRefresh(interval time.Duration) bool {
	t, ok := c.LastRefresh()
	return !ok || time.Since(t) > interval
}

func (c *Cache) SetLastRefresh() error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES ('last_refresh', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, time.Now().Format(time.RFC3339))
	return err
}

// Prune deletes articles published before now-retention and returns how many were removed.
func (c *Cache) Prune(retention time.Duration) (int64, error) {
	tx, err := c.writeDB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM articles WHERE published < ?", time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("deleting articles: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec("DELETE FROM article_categories WHERE article_id NOT IN (SELECT id FROM articles)"); err != nil {
		return 0, fmt.Errorf("deleting category links: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	if deleted > 0 {
		if _, err := c.writeDB.Exec("VACUUM"); err != nil {
			return deleted, fmt.Errorf("vacuum: %w", err)
		}
	}
	return deleted, nil
}

// Stats returns the number of cached articles and the size of the database file.
func (c *Cache) Stats(dbPath string) (int, int64, error) {
	var count int
	if err := c.readDB.QueryRow("SELECT COUNT(*) FROM articles").Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("counting articles: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, fmt.Errorf("stat %s: %w", dbPath, err)
	}
	return count, info.Size(), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	ids := strings.Split(s, ",")
	sort.Strings(ids)
	return ids
}
