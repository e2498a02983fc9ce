package repository

import (
	"context"

	"faithfulcity/internal/cache"
	"faithfulcity/internal/models"

	"gorm.io/gorm"
)

// FamilyRepository defines persistence operations for families.
type FamilyRepository interface {
	List(ctx context.Context) ([]models.Family, error)
	GetByID(ctx context.Context, id string) (*models.Family, error)
	IncrementMemberCount(ctx context.Context, id string) error
	UpdateInfo(ctx context.Context, id string, updates map[string]any) (*models.Family, error)
	Stats(ctx context.Context, id string) (*models.FamilyStats, error)
	InvalidateStats(ctx context.Context, id string)
}

// RecentActivityLimit bounds the posts listed in FamilyStats.RecentActivity.
const RecentActivityLimit = 5

type familyRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewFamilyRepository returns a new FamilyRepository implementation. Family
// records, the directory and stats are cached in store; store may be nil.
func NewFamilyRepository(db *gorm.DB, store *cache.Store) FamilyRepository {
	return &familyRepository{db: db, cache: store}
}

func (r *familyRepository) List(ctx context.Context) ([]models.Family, error) {
	var families []models.Family
	err := r.cache.Aside(ctx, cache.FamiliesKey, &families, cache.FamilyTTL, func() error {
		if err := r.db.WithContext(ctx).Order("name ASC").Find(&families).Error; err != nil {
			return classify(err, "Family", "*")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return families, nil
}

func (r *familyRepository) GetByID(ctx context.Context, id string) (*models.Family, error) {
	var family models.Family
	err := r.cache.Aside(ctx, cache.FamilyKey(id), &family, cache.FamilyTTL, func() error {
		if err := r.db.WithContext(ctx).Where("id = ?", id).First(&family).Error; err != nil {
			return classify(err, "Family", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &family, nil
}

// IncrementMemberCount adds exactly one to member_count.
func (r *familyRepository) IncrementMemberCount(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Family{}).
		Where("id = ?", id).
		Update("member_count", gorm.Expr("member_count + ?", 1))
	if res.Error != nil {
		return classify(res.Error, "Family", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Family", id)
	}
	r.cache.InvalidateFamily(ctx, id)
	return nil
}

func (r *familyRepository) UpdateInfo(ctx context.Context, id string, updates map[string]any) (*models.Family, error) {
	res := r.db.WithContext(ctx).Model(&models.Family{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, classify(res.Error, "Family", id)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Family", id)
	}
	r.cache.InvalidateFamily(ctx, id)

	var family models.Family
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&family).Error; err != nil {
		return nil, classify(err, "Family", id)
	}
	return &family, nil
}

// Stats summarizes a family for its admin dashboard. Results are cached for
// cache.FamilyStatsTTL; writes that change a count call InvalidateStats.
func (r *familyRepository) Stats(ctx context.Context, id string) (*models.FamilyStats, error) {
	var stats *models.FamilyStats
	err := r.cache.Aside(ctx, cache.FamilyStatsKey(id), &stats, cache.FamilyStatsTTL, func() error {
		var fetchErr error
		stats, fetchErr = r.loadStats(ctx, id)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// InvalidateStats drops the cached stats of one family.
func (r *familyRepository) InvalidateStats(ctx context.Context, id string) {
	r.cache.Invalidate(ctx, cache.FamilyStatsKey(id))
}

func (r *familyRepository) loadStats(ctx context.Context, id string) (*models.FamilyStats, error) {
	family, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := &models.FamilyStats{FamilyID: id, MemberCount: int64(family.MemberCount)}
	db := r.db.WithContext(ctx)

	counts := []struct {
		dest  *int64
		model any
		where string
		args  []any
	}{
		{&stats.AdminCount, &models.User{}, "family_id = ? AND role = ?", []any{id, models.RoleAdmin}},
		{&stats.PostCount, &models.Post{}, "family_id = ?", []any{id}},
		{&stats.MediaCount, &models.Media{}, "family_id = ?", []any{id}},
		{&stats.PhotoCount, &models.Media{}, "family_id = ? AND type = ?", []any{id, models.MediaTypePhoto}},
		{&stats.AudioCount, &models.Media{}, "family_id = ? AND type = ?", []any{id, models.MediaTypeAudio}},
		{&stats.UnreadNotifications, &models.Notification{}, "family_id = ? AND is_read = ?", []any{id, false}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, c.args...).Count(c.dest).Error; err != nil {
			return nil, classify(err, "Family", id)
		}
	}

	recent := []models.Post{}
	if err := db.Where("family_id = ?", id).
		Order("created_at DESC").Order("id DESC").
		Limit(RecentActivityLimit).
		Find(&recent).Error; err != nil {
		return nil, classify(err, "Post", id)
	}
	for i := range recent {
		recent[i].Comments = []models.Comment{}
	}
	stats.RecentActivity = recent
	return stats, nil
}
