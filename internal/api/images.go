package api

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/hugopub/internal/apperr"
	"github.com/starford/hugopub/internal/contentservice"
)

// multipart overhead allowed on top of the image itself.
const uploadSlack = 1 << 20

// UploadImage handles POST /api/upload-image (multipart/form-data, fields
// "file" and optional "custom_name").
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, contentservice.MaxImageSize+uploadSlack)

	if err := r.ParseMultipartForm(contentservice.MaxImageSize + uploadSlack); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("no file uploaded"))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("no file selected"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, contentservice.MaxImageSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	res, err := h.svc.SaveImage(r.Context(), header.Filename, r.FormValue("custom_name"), data)
	if err != nil {
		writeError(w, h.logger, "upload image", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ServeImage handles GET /images/{filename}.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	data, err := h.svc.ReadImage(name)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			http.Error(w, "invalid image name", http.StatusBadRequest)
		case errors.Is(err, apperr.ErrNotFound):
			http.NotFound(w, r)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}
