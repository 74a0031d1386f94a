package manifest

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ArticleRow represents a row in the articles table.
type ArticleRow struct {
	Path        string
	URL         string
	Title       string
	Description string
	Checksum    string
	Tags        []string
	Published   time.Time
	RenderedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	URL     string
	Title   string
	Snippet string
}

// UpsertArticle inserts or replaces an article and its FTS entry within a transaction.
func (db *DB) UpsertArticle(a ArticleRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("manifest: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(a.Tags)

	_, err = tx.Exec(`
		INSERT INTO articles (path, url, title, description, checksum, tags, body, published, rendered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			url         = excluded.url,
			title       = excluded.title,
			description = excluded.description,
			checksum    = excluded.checksum,
			tags        = excluded.tags,
			body        = excluded.body,
			published   = excluded.published,
			rendered_at = excluded.rendered_at
	`, a.Path, a.URL, a.Title, a.Description, a.Checksum, string(tagsJSON), body, a.Published, a.RenderedAt)
	if err != nil {
		return fmt.Errorf("manifest: upsert article: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, a.Path, a.Title, body, a.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteArticle removes an article and its FTS entry.
func (db *DB) DeleteArticle(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("manifest: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM articles WHERE path = ?`, path)

	return tx.Commit()
}

// GetArticle returns the manifest row for a source path.
func (db *DB) GetArticle(path string) (*ArticleRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, url, title, description, checksum, tags, published, rendered_at
		FROM articles WHERE path = ?`, path)
	a, err := scanArticle(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("manifest: get article: %w", err)
	}
	return a, nil
}

// GetChecksum returns the stored checksum for a path, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM articles WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("manifest: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every manifest entry.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("manifest: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// URLFor returns the output URL previously recorded for a source path, or
// empty string when the path was never built. Used to prune stale output.
func (db *DB) URLFor(path string) (string, error) {
	var u string
	err := db.conn.QueryRow(`SELECT url FROM articles WHERE path = ?`, path).Scan(&u)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("manifest: url for %s: %w", path, err)
	}
	return u, nil
}

// ListArticles returns paginated rows with optional tag filter. sort is one of
// "published", "title", "path" (default "published", newest first).
func (db *DB) ListArticles(limit, offset int, tag, sort string) ([]ArticleRow, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	order := "published DESC"
	switch sort {
	case "title":
		order = "title ASC"
	case "path":
		order = "path ASC"
	}

	where := ""
	args := []any{}
	if tag != "" {
		// Tags are stored as a JSON array of strings.
		where = `WHERE tags LIKE ?`
		args = append(args, `%"`+tag+`"%`)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM articles `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("manifest: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT path, url, title, description, checksum, tags, published, rendered_at
		FROM articles %s ORDER BY %s LIMIT ? OFFSET ?`, where, order)
	args = append(args, limit, offset)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("manifest: list: %w", err)
	}
	defer rows.Close()

	var out []ArticleRow
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(s scanner) (*ArticleRow, error) {
	var a ArticleRow
	var tagsJSON string
	var published sql.NullTime
	if err := s.Scan(&a.Path, &a.URL, &a.Title, &a.Description, &a.Checksum, &tagsJSON, &published, &a.RenderedAt); err != nil {
		return nil, err
	}
	if published.Valid {
		a.Published = published.Time
	}
	if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
		a.Tags = nil
	}
	return &a, nil
}
