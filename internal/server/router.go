package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/manifest"
	"github.com/starford/ansuz/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(db manifest.Store, source storage.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(db, source)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Article listing and detail.
	r.Get("/articles", h.ListArticles)
	r.Get("/articles/*", h.GetArticle)

	// Search.
	r.Get("/search", h.Search)

	// SSE live-reload endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
