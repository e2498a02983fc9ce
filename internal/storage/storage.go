// Package storage holds media blobs on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"faithfulcity/internal/config"
	"faithfulcity/internal/models"

	"github.com/google/uuid"
)

// ErrBlobNotFound is returned by Delete when no object exists at the path.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore stores immutable media objects addressed by path.
type BlobStore interface {
	Put(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectPath string) error
	URL(objectPath string) string
}

// New builds the store selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: s3PublicBase(cfg),
		})
	case "", "local":
		return NewLocalStore(cfg.StorageLocalDir, cfg.StoragePublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// s3PublicBase only honours STORAGE_PUBLIC_BASE_URL when it is absolute, so
// the local default "/media" never leaks into S3 URLs.
func s3PublicBase(cfg *config.Config) string {
	if strings.HasPrefix(cfg.StoragePublicBaseURL, "http://") || strings.HasPrefix(cfg.StoragePublicBaseURL, "https://") {
		return cfg.StoragePublicBaseURL
	}
	return ""
}

// MediaTypeFor maps a content type onto a media type.
func MediaTypeFor(contentType string) (models.MediaType, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		return models.MediaTypePhoto, true
	case strings.HasPrefix(mt, "audio/"):
		return models.MediaTypeAudio, true
	}
	return "", false
}

// Extension picks the object extension from the file name, falling back to the
// content type and finally to "bin".
func Extension(filename, contentType string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 && i < len(filename)-1 {
		ext := strings.ToLower(filename[i+1:])
		if isSafeExt(ext) {
			return ext
		}
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}

func isSafeExt(ext string) bool {
	if len(ext) == 0 || len(ext) > 10 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// MediaPath builds families/{familyId}/{photos|audios}/{unixMillis}_{random9}.{ext}.
func MediaPath(familyID string, mediaType models.MediaType, at time.Time, ext string) string {
	name := fmt.Sprintf("%d_%s.%s", at.UnixMilli(), randomSuffix(), ext)
	return path.Join("families", familyID, string(mediaType)+"s", name)
}
