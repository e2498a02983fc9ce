package service

import (
	"context"
	"unicode/utf8"

	"faithfulcity/internal/feed"
	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
	"faithfulcity/internal/repository"
	"faithfulcity/internal/validation"

	"github.com/google/uuid"
)

// announcementPreviewLength bounds the notification text derived from an announcement.
const announcementPreviewLength = 200

type CreatePostInput struct {
	FamilyID   string
	AuthorID   string
	AuthorName string
	Content    string
	Type       models.PostType
}

type AddCommentInput struct {
	PostID     string
	AuthorID   string
	AuthorName string
	Content    string
}

type PostService struct {
	postRepo      repository.PostRepository
	notifications *NotificationService
	feed          FeedPublisher
	stats         StatsInvalidator
}

// NewPostService wires the service. notifications, feed and stats may be nil.
func NewPostService(
	postRepo repository.PostRepository,
	notifications *NotificationService,
	feed FeedPublisher,
	stats StatsInvalidator,
) *PostService {
	return &PostService{
		postRepo:      postRepo,
		notifications: notifications,
		feed:          publisherOrNoop(feed),
		stats:         statsOrNoop(stats),
	}
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Type == "" {
		in.Type = models.PostTypeDiscussion
	}
	if !in.Type.Valid() {
		return nil, models.NewValidationError("Invalid post type")
	}
	content, err := validation.CleanText("content", in.Content, validation.MaxPostLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{
		ID:         uuid.NewString(),
		FamilyID:   in.FamilyID,
		AuthorID:   in.AuthorID,
		AuthorName: in.AuthorName,
		Content:    content,
		Type:       in.Type,
		Likes:      models.StringList{},
		Comments:   []models.Comment{},
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	s.stats.InvalidateStats(ctx, post.FamilyID)
	s.feed.Publish(ctx, post.FamilyID, feed.TopicPosts)

	if post.Type == models.PostTypeAnnouncement && s.notifications != nil {
		if _, err := s.notifications.Create(ctx, CreateNotificationInput{
			FamilyID: post.FamilyID,
			Title:    "New announcement from " + post.AuthorName,
			Message:  preview(post.Content, announcementPreviewLength),
			Type:     models.NotificationTypeAnnouncement,
		}); err != nil {
			middleware.Logger.WarnContext(ctx, "announcement notification failed",
				"post_id", post.ID, "error", err)
		}
	}
	return post, nil
}

// ListByFamily returns the newest posts of a family with their comments.
func (s *PostService) ListByFamily(ctx context.Context, familyID string) ([]models.Post, error) {
	posts, err := s.postRepo.ListByFamily(ctx, familyID)
	return degradeList(ctx, "posts", posts, err)
}

func (s *PostService) Get(ctx context.Context, postID string) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

// ToggleLike adds the user to the post's likes, or removes them if already
// present. The likes are read, changed and written back without a
// transaction, so concurrent toggles on one post can lose an update.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.Likes = post.Likes.Toggle(userID)
	if err := s.postRepo.UpdateLikes(ctx, post.ID, post.Likes); err != nil {
		return nil, err
	}
	s.feed.Publish(ctx, post.FamilyID, feed.TopicPosts)
	return post, nil
}

func (s *PostService) AddComment(ctx context.Context, in AddCommentInput) (*models.Comment, error) {
	content, err := validation.CleanText("content", in.Content, validation.MaxCommentLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:         uuid.NewString(),
		PostID:     post.ID,
		AuthorID:   in.AuthorID,
		AuthorName: in.AuthorName,
		Content:    content,
	}
	if err := s.postRepo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	s.feed.Publish(ctx, post.FamilyID, feed.TopicPosts)
	return comment, nil
}

func preview(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}
