package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
	"faithfulcity/internal/observability"
	"faithfulcity/internal/repository"
	"faithfulcity/internal/storage"
	"faithfulcity/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultMaxUploadBytes applies when the service is built without a limit.
const DefaultMaxUploadBytes = 25 << 20

type UploadMediaInput struct {
	FamilyID    string
	UploadedBy  string
	Title       string
	Description string
	Tags        []string
	Filename    string
	ContentType string
	Body        io.Reader
}

// MediaService stores media blobs and their metadata records.
type MediaService struct {
	mediaRepo      repository.MediaRepository
	blobs          storage.BlobStore
	notifications  *NotificationService
	stats          StatsInvalidator
	maxUploadBytes int64
	now            func() time.Time
}

func NewMediaService(
	mediaRepo repository.MediaRepository,
	blobs storage.BlobStore,
	notifications *NotificationService,
	stats StatsInvalidator,
	maxUploadBytes int64,
) *MediaService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &MediaService{
		mediaRepo:      mediaRepo,
		blobs:          blobs,
		notifications:  notifications,
		stats:          statsOrNoop(stats),
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// Upload writes the blob first and the metadata record second. If the record
// cannot be written the blob stays in storage and is only reported.
func (s *MediaService) Upload(ctx context.Context, in UploadMediaInput) (*models.Media, error) {
	mediaType, ok := storage.MediaTypeFor(in.ContentType)
	if !ok {
		return nil, models.NewValidationError("Only image and audio files can be uploaded")
	}
	title, err := validation.CleanText("title", in.Title, validation.MaxTitleLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	description, err := validation.CleanOptionalText("description", in.Description, validation.MaxCommentLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	tags, err := validation.CleanTags(in.Tags)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Body == nil {
		return nil, models.NewValidationError("file is required")
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.maxUploadBytes+1))
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("Uploaded file is empty")
	}
	if int64(len(data)) > s.maxUploadBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File exceeds the %d MB upload limit", s.maxUploadBytes>>20))
	}

	media := &models.Media{
		ID:          uuid.NewString(),
		FamilyID:    in.FamilyID,
		Type:        mediaType,
		Title:       title,
		Description: description,
		ContentType: in.ContentType,
		SizeBytes:   int64(len(data)),
		UploadedBy:  in.UploadedBy,
		UploadedAt:  s.now().UTC(),
		Tags:        models.StringList(tags),
	}
	if mediaType == models.MediaTypePhoto {
		if w, h, ok := storage.ImageSize(data); ok {
			media.Width, media.Height = w, h
		}
	}

	media.StoragePath = storage.MediaPath(in.FamilyID, mediaType, media.UploadedAt, storage.Extension(in.Filename, in.ContentType))
	putCtx, span := observability.StartSpan(ctx, "storage", "put",
		attribute.String("media.type", string(mediaType)),
		attribute.Int64("media.size_bytes", media.SizeBytes))
	err = s.blobs.Put(putCtx, media.StoragePath, bytes.NewReader(data), media.SizeBytes, in.ContentType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "blob upload failed")
	}
	span.End()
	if err != nil {
		return nil, models.NewStoreUnavailableError(err)
	}
	media.URL = s.blobs.URL(media.StoragePath)

	if err := s.mediaRepo.Create(ctx, media); err != nil {
		observability.MediaOrphanedBlobs.Inc()
		middleware.Logger.ErrorContext(ctx, "media record failed after blob upload, blob orphaned",
			"storage_path", media.StoragePath, "error", err)
		return nil, err
	}
	s.stats.InvalidateStats(ctx, media.FamilyID)

	if s.notifications != nil {
		if _, err := s.notifications.Create(ctx, CreateNotificationInput{
			FamilyID: media.FamilyID,
			Title:    fmt.Sprintf("New %s added", media.Type),
			Message:  media.Title,
			Type:     models.NotificationTypeMedia,
		}); err != nil {
			middleware.Logger.WarnContext(ctx, "media notification failed", "media_id", media.ID, "error", err)
		}
	}
	return media, nil
}

// List returns a family's media, newest first. An empty mediaType lists both kinds.
func (s *MediaService) List(ctx context.Context, familyID string, mediaType models.MediaType) ([]models.Media, error) {
	if mediaType != "" && !mediaType.Valid() {
		return nil, models.NewValidationError("type must be photo or audio")
	}
	items, err := s.mediaRepo.ListByFamily(ctx, familyID, mediaType)
	return degradeList(ctx, "media", items, err)
}

func (s *MediaService) Get(ctx context.Context, mediaID string) (*models.Media, error) {
	return s.mediaRepo.GetByID(ctx, mediaID)
}

// Delete removes the blob and then the record. When the blob cannot be
// removed the record is kept.
func (s *MediaService) Delete(ctx context.Context, mediaID string) error {
	media, err := s.mediaRepo.GetByID(ctx, mediaID)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, media.StoragePath); err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return &models.AppError{
				Code:    models.CodeNotFound,
				Message: fmt.Sprintf("Stored file for media %s not found", mediaID),
				Err:     err,
			}
		}
		return models.NewStoreUnavailableError(err)
	}
	if err := s.mediaRepo.Delete(ctx, mediaID); err != nil {
		return err
	}
	s.stats.InvalidateStats(ctx, media.FamilyID)
	return nil
}
