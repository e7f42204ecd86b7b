package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
)

// ImageSource reads stored and generated profile images
type ImageSource interface {
	Open(username, fileName string) (*os.File, error)
	DefaultAvatar(ctx context.Context, username string) ([]byte, string, error)
}

// ImageHandler serves profile images
type ImageHandler struct {
	images ImageSource
	logger *slog.Logger
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(images ImageSource, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		images: images,
		logger: logger,
	}
}

// ProfileImage serves an uploaded image from the image store
// @Produce image/jpeg
// @Router /user/image/{username}/{fileName} [get]
func (h *ImageHandler) ProfileImage(w http.ResponseWriter, r *http.Request) {
	f, err := h.images.Open(chi.URLParam(r, "username"), chi.URLParam(r, "fileName"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	// Stored files keep a .jpg name whatever the uploaded format was
	detected, err := mimetype.DetectReader(f)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", detected.String())
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// DefaultProfileImage proxies the generated avatar for {username}
// @Produce image/png
// @Router /user/image/profile/{username} [get]
func (h *ImageHandler) DefaultProfileImage(w http.ResponseWriter, r *http.Request) {
	body, contentType, err := h.images.DefaultAvatar(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write avatar", slog.Any("error", err))
	}
}
