package repository

import (
	"context"
	"time"

	"faithfulcity/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListByFamily(ctx context.Context, familyID string) ([]models.Post, error)
	UpdateLikes(ctx context.Context, postID string, likes models.StringList) error
	AddComment(ctx context.Context, comment *models.Comment) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func preloadComments(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.Likes == nil {
		post.Likes = models.StringList{}
	}
	if err := r.db.WithContext(ctx).Omit("Comments").Create(post).Error; err != nil {
		return classify(err, "Post", post.ID)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("Comments", preloadComments).
		Where("id = ?", id).
		First(&post).Error; err != nil {
		return nil, classify(err, "Post", id)
	}
	return &post, nil
}

// ListByFamily fetches every post of the family unordered, then returns the
// newest PostWindow by created_at.
func (r *postRepository) ListByFamily(ctx context.Context, familyID string) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Where("family_id = ?", familyID).
		Find(&posts).Error; err != nil {
		return nil, classify(err, "Post", familyID)
	}
	posts = newestFirst(posts, func(p *models.Post) time.Time { return p.CreatedAt }, PostWindow)
	if err := r.loadComments(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) loadComments(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Comments = []models.Comment{}
	}

	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", ids).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return classify(err, "Comment", "*")
	}
	for _, c := range comments {
		i := index[c.PostID]
		posts[i].Comments = append(posts[i].Comments, c)
	}
	return nil
}

// UpdateLikes overwrites the likes set. Last write wins.
func (r *postRepository) UpdateLikes(ctx context.Context, postID string, likes models.StringList) error {
	if likes == nil {
		likes = models.StringList{}
	}
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Update("likes", likes)
	if res.Error != nil {
		return classify(res.Error, "Post", postID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

func (r *postRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", comment.PostID).Count(&n).Error; err != nil {
		return classify(err, "Post", comment.PostID)
	}
	if n == 0 {
		return models.NewNotFoundError("Post", comment.PostID)
	}
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return classify(err, "Comment", comment.ID)
	}
	return nil
}
