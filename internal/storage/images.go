package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BradenHooton/portal/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
)

const (
	imageExtension = ".jpg"
	sniffLength    = 3072
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// Upload is a profile image received from a client
type Upload struct {
	ContentType string
	Reader      io.Reader
}

type ImageStoreConfig struct {
	BaseDir             string
	PublicBaseURL       string
	DefaultImageBaseURL string
	DefaultImageTimeout time.Duration
	MaxBytes            int64
}

// ImageStore keeps one profile image per user on the local file system at
// <base>/<username>/<username>.jpg
type ImageStore struct {
	baseDir       string
	publicBaseURL string
	avatarBaseURL string
	maxBytes      int64
	client        *resty.Client
	logger        *slog.Logger
}

func NewImageStore(cfg ImageStoreConfig, logger *slog.Logger) (*ImageStore, error) {
	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid image directory: %w", err)
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	client := resty.New()
	client.SetTimeout(5 * time.Second)
	if cfg.DefaultImageTimeout > 0 {
		client.SetTimeout(cfg.DefaultImageTimeout)
	}
	if cfg.MaxBytes > 0 {
		client.SetResponseBodyLimit(int(cfg.MaxBytes))
	}

	avatarBaseURL := cfg.DefaultImageBaseURL
	if !strings.HasSuffix(avatarBaseURL, "/") {
		avatarBaseURL += "/"
	}

	return &ImageStore{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		avatarBaseURL: avatarBaseURL,
		maxBytes:      cfg.MaxBytes,
		client:        client,
		logger:        logger,
	}, nil
}

// DefaultURL is the profile image URL assigned before a user uploads one
func (s *ImageStore) DefaultURL(username string) string {
	return s.publicBaseURL + "/user/image/profile/" + url.PathEscape(username)
}

// ImageURL is the public URL of a stored profile image
func (s *ImageStore) ImageURL(username string) string {
	escaped := url.PathEscape(username)
	return s.publicBaseURL + "/user/image/" + escaped + "/" + escaped + imageExtension
}

// Save validates and stores the upload, replacing any previous image, and
// returns its public URL
func (s *ImageStore) Save(ctx context.Context, username string, upload Upload) (string, error) {
	if err := validateSegment(username); err != nil {
		return "", err
	}
	if !isAllowedType(upload.ContentType) {
		return "", fmt.Errorf("%w: unsupported content type %q", models.ErrInvalidImage, upload.ContentType)
	}

	header := make([]byte, sniffLength)
	n, err := io.ReadFull(upload.Reader, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: read upload: %v", models.ErrStorage, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: empty file", models.ErrInvalidImage)
	}
	header = header[:n]

	detected := mimetype.Detect(header)
	if !isAllowedType(detected.String()) {
		return "", fmt.Errorf("%w: content is %s", models.ErrInvalidImage, detected.String())
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.baseDir, username)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	defer os.Remove(tmp.Name())

	var body io.Reader = io.MultiReader(bytes.NewReader(header), upload.Reader)
	if s.maxBytes > 0 {
		body = io.LimitReader(body, s.maxBytes+1)
	}

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", models.ErrInvalidImage, s.maxBytes)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, username+imageExtension)); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	s.logger.Info("profile image saved",
		slog.String("username", username),
		slog.String("content_type", detected.String()),
		slog.Int64("bytes", written))

	return s.ImageURL(username), nil
}

// Open returns a stored image. The caller closes it.
func (s *ImageStore) Open(username, fileName string) (*os.File, error) {
	if err := validateSegment(username); err != nil {
		return nil, err
	}
	if err := validateSegment(fileName); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, username, fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return f, nil
}

// Remove deletes a user's image directory
func (s *ImageStore) Remove(username string) error {
	if err := validateSegment(username); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.baseDir, username)); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return nil
}

// DefaultAvatar fetches the generated avatar for username from the avatar service
func (s *ImageStore) DefaultAvatar(ctx context.Context, username string) ([]byte, string, error) {
	if username == "" {
		return nil, "", fmt.Errorf("%w: empty username", models.ErrBadRequest)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.avatarBaseURL + url.PathEscape(username))
	if err != nil {
		return nil, "", fmt.Errorf("%w: avatar request: %v", models.ErrUpstream, err)
	}
	if !resp.IsSuccess() {
		return nil, "", fmt.Errorf("%w: avatar service returned %d", models.ErrUpstream, resp.StatusCode())
	}

	// The upstream Content-Type is not trusted; the body decides
	body := resp.Body()
	contentType := mimetype.Detect(body).String()
	if !isAllowedType(contentType) {
		return nil, "", fmt.Errorf("%w: avatar service returned %s", models.ErrUpstream, contentType)
	}

	return body, contentType, nil
}

// validateSegment rejects anything that is not a single, local path element
func validateSegment(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) ||
		!filepath.IsLocal(name) {
		return fmt.Errorf("%w: invalid path segment %q", models.ErrBadRequest, name)
	}
	return nil
}

func isAllowedType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, allowed := range allowedImageTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}
