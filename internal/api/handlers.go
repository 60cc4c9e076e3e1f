package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/hugopub/internal/contentservice"
	"github.com/starford/hugopub/internal/formatter"
	"github.com/starford/hugopub/internal/index"
	"github.com/starford/hugopub/internal/models"
)

// Jobs queues publish jobs and reports their progress.
type Jobs interface {
	Submit(req models.PublishRequest) (*models.PublishJob, error)
	Get(id string) (*models.PublishJob, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc       *contentservice.Service
	jobs      Jobs
	formatter formatter.Formatter
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(svc *contentservice.Service, jobs Jobs, f formatter.Formatter, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, jobs: jobs, formatter: f, logger: logger, now: time.Now}
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Timestamp: h.now().Format(time.RFC3339),
	})
}

// Config handles GET /api/config.
func (h *Handler) Config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.ConfigResponse{Envelope: ok(), Config: h.svc.SiteConfig()})
}

// VerifyPassword handles POST /api/verify-password.
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPasswordRequest
	if err := decodeJSON(w, r, 64<<10, &req); err != nil {
		writeError(w, h.logger, "verify password", err)
		return
	}
	if !h.svc.VerifyPassword(req.Password) {
		writeJSON(w, http.StatusUnauthorized, errorBody("wrong password"))
		return
	}
	writeJSON(w, http.StatusOK, ok())
}

// Format handles POST /api/format. Suggestions are added for a missing
// title or missing tags; a failed suggestion is left out.
func (h *Handler) Format(w http.ResponseWriter, r *http.Request) {
	var req models.FormatRequest
	if err := decodeJSON(w, r, contentservice.MaxContentSize, &req); err != nil {
		writeError(w, h.logger, "format", err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ctx := r.Context()
	formatted, err := h.formatter.Format(ctx, formatter.Input{
		Content:  req.Content,
		Title:    req.Title,
		Tags:     req.Tags,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, h.logger, "format", err)
		return
	}

	resp := models.FormatResponse{Envelope: ok(), FormattedContent: formatted}
	if strings.TrimSpace(req.Title) == "" {
		if title, err := h.formatter.SuggestTitle(ctx, formatted); err == nil {
			resp.SuggestedTitle = title
		}
	}
	if len(req.Tags) == 0 {
		if tags, err := h.formatter.SuggestTags(ctx, formatted, nil); err == nil && len(tags) > 0 {
			resp.SuggestedTags = tags
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Preview handles POST /api/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req models.PreviewRequest
	if err := decodeJSON(w, r, contentservice.MaxContentSize, &req); err != nil {
		writeError(w, h.logger, "preview", err)
		return
	}
	fm, err := h.svc.Preview(req)
	if err != nil {
		writeError(w, h.logger, "preview", err)
		return
	}
	writeJSON(w, http.StatusOK, models.PreviewResponse{Envelope: ok(), FrontMatter: fm})
}

// Publish handles POST /api/publish. The job runs in the background;
// progress is read from /api/status/{jobID} or the event stream.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req models.PublishRequest
	if err := decodeJSON(w, r, contentservice.MaxContentSize, &req); err != nil {
		writeError(w, h.logger, "publish", err)
		return
	}
	job, err := h.jobs.Submit(req)
	if err != nil {
		writeError(w, h.logger, "publish", err)
		return
	}
	writeJSON(w, http.StatusAccepted, models.PublishResponse{Envelope: ok(), JobID: job.ID})
}

// Status handles GET /api/status/{jobID}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, h.logger, "job status", err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{Envelope: ok(), Job: job})
}

// ListFiles handles GET /api/files?path=&fetch_metadata=.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fetch, _ := strconv.ParseBool(q.Get("fetch_metadata"))
	dir, files, err := h.svc.ListFiles(r.Context(), q.Get("path"), fetch)
	if err != nil {
		writeError(w, h.logger, "list files", err)
		return
	}
	writeJSON(w, http.StatusOK, models.FilesResponse{Envelope: ok(), Path: dir, Files: files})
}

// GetFile handles GET /api/file?path=.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	f, err := h.svc.GetFile(r.Context(), p)
	if err != nil {
		writeError(w, h.logger, "get file", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// DeleteFile handles DELETE /api/file?path=.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteFile(r.Context(), p); err != nil {
		writeError(w, h.logger, "delete file", err)
		return
	}
	h.logger.Info("file deleted", slog.String("path", p))
	writeJSON(w, http.StatusOK, models.DeleteResponse{Envelope: ok(), Path: p})
}

// Search handles GET /api/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	results, err := h.svc.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		writeError(w, h.logger, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
}
