package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AuthOptions configures the Bearer token check on mutating routes.
type AuthOptions struct {
	Enabled bool
	Token   string
}

// NewRouter creates a chi router with all API routes mounted. Read-only
// routes are public; routes that change content or call the formatter go
// through AuthMiddleware. events, if non-nil, is mounted at GET /events.
func NewRouter(h *Handler, auth AuthOptions, events http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/config", h.Config)
	r.Post("/verify-password", h.VerifyPassword)
	r.Post("/preview", h.Preview)
	r.Get("/status/{jobID}", h.Status)
	r.Get("/files", h.ListFiles)
	r.Get("/file", h.GetFile)
	r.Get("/search", h.Search)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(auth.Enabled, auth.Token))
		r.Post("/format", h.Format)
		r.Post("/publish", h.Publish)
		r.Delete("/file", h.DeleteFile)
		r.Post("/upload-image", h.UploadImage)
	})

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
