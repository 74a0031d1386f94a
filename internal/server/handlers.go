package server

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/manifest"
	"github.com/starford/ansuz/internal/storage"
)

// ArticleListItem is a lightweight item in a list response.
type ArticleListItem struct {
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	Published   time.Time `json:"published"`
	RenderedAt  time.Time `json:"rendered_at"`
}

// ArticleDetail is the full representation of an article, including the raw
// Markdown source.
type ArticleDetail struct {
	ArticleListItem
	Source string `json:"source"`
}

// Handler holds API route handlers backed by the build manifest and the
// content tree.
type Handler struct {
	db     manifest.Store
	source storage.Provider
}

// NewHandler creates a new Handler.
func NewHandler(db manifest.Store, source storage.Provider) *Handler {
	return &Handler{db: db, source: source}
}

// articlePath extracts the article path from the URL (everything after
// /api/articles/). Supports encoded slashes (e.g. blog%2Fpost.md).
func articlePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListArticles handles GET /api/articles with optional pagination, tag filter,
// and sort (published, title, path).
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	tag := q.Get("tag")
	sort := q.Get("sort")

	rows, total, err := h.db.ListArticles(limit, offset, tag, sort)
	if err != nil {
		slog.Error("list articles failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	items := make([]ArticleListItem, len(rows))
	for i, row := range rows {
		items[i] = rowToItem(row)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": items,
		"total":    total,
	})
}

// GetArticle handles GET /api/articles/*.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	path := articlePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}

	row, err := h.db.GetArticle(path)
	if err != nil {
		slog.Error("get article failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if row == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}

	data, err := h.source.Read(path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("read article failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	writeJSON(w, http.StatusOK, ArticleDetail{
		ArticleListItem: rowToItem(*row),
		Source:          string(data),
	})
}

// Search handles GET /api/search?q=...&limit=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.db.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []manifest.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func rowToItem(row manifest.ArticleRow) ArticleListItem {
	tags := row.Tags
	if tags == nil {
		tags = []string{}
	}
	return ArticleListItem{
		Path:        row.Path,
		URL:         row.URL,
		Title:       row.Title,
		Description: row.Description,
		Tags:        tags,
		Published:   row.Published,
		RenderedAt:  row.RenderedAt,
	}
}
