package repository

import (
	"context"
	"time"

	"faithfulcity/internal/models"

	"gorm.io/gorm"
)

// MediaRepository defines persistence operations for media metadata records.
type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) error
	GetByID(ctx context.Context, id string) (*models.Media, error)
	ListByFamily(ctx context.Context, familyID string, mediaType models.MediaType) ([]models.Media, error)
	Delete(ctx context.Context, id string) error
}

type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository returns a new MediaRepository implementation.
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, media *models.Media) error {
	if media.Tags == nil {
		media.Tags = models.StringList{}
	}
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		return classify(err, "Media", media.ID)
	}
	return nil
}

func (r *mediaRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	var media models.Media
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&media).Error; err != nil {
		return nil, classify(err, "Media", id)
	}
	return &media, nil
}

// ListByFamily returns every media record of the family, newest first. An
// empty mediaType lists both photos and audio.
func (r *mediaRepository) ListByFamily(ctx context.Context, familyID string, mediaType models.MediaType) ([]models.Media, error) {
	q := r.db.WithContext(ctx).Where("family_id = ?", familyID)
	if mediaType != "" {
		q = q.Where("type = ?", mediaType)
	}
	var items []models.Media
	if err := q.Find(&items).Error; err != nil {
		return nil, classify(err, "Media", familyID)
	}
	return newestFirst(items, func(m *models.Media) time.Time { return m.UploadedAt }, 0), nil
}

func (r *mediaRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Media{})
	if res.Error != nil {
		return classify(res.Error, "Media", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Media", id)
	}
	return nil
}
