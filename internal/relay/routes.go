package relay

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brickfolio/brickfolio/internal/middleware"
)

// NewRouter constructs the relay's HTTP handler. The backend's whole
// path space is mirrored under /api; a handful of routes are scoped
// explicitly where only a single upstream operation may pass.
//
// Routes:
//
//	GET|PATCH|DELETE /api/lists/{id}            → /lists/{id}
//	POST             /api/lists/{id}/items      → /lists/{id}/items
//	DELETE           /api/lists/{id}/items/{setNum} → /lists/{id}/items/{setNum}
//	any verb         /api/*                     → /*
func NewRouter(h *Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Log each request and its outcome
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		// Narrowly-scoped proxies. Same header/body/no-cache rules as
		// the general relay, restricted to one upstream operation.
		r.Get("/lists/{id}", h.forwardList)
		r.Patch("/lists/{id}", h.forwardList)
		r.Delete("/lists/{id}", h.forwardList)
		r.Post("/lists/{id}/items", h.appendListItem)
		r.Delete("/lists/{id}/items/{setNum}", h.removeListItem)

		// Transparent passthrough for everything else.
		r.Get("/*", h.forwardWildcard)
		r.Post("/*", h.forwardWildcard)
		r.Put("/*", h.forwardWildcard)
		r.Patch("/*", h.forwardWildcard)
		r.Delete("/*", h.forwardWildcard)
		r.Options("/*", h.forwardWildcard)
	})

	return r
}

func (h *Handler) forwardWildcard(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, chi.URLParam(r, "*"))
}

func (h *Handler) forwardList(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.forward(w, r, "lists/"+url.PathEscape(id))
}

func (h *Handler) appendListItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.forward(w, r, "lists/"+url.PathEscape(id)+"/items")
}

func (h *Handler) removeListItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	setNum := chi.URLParam(r, "setNum")
	h.forward(w, r, "lists/"+url.PathEscape(id)+"/items/"+url.PathEscape(setNum))
}
