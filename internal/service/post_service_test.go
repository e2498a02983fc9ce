package service

import (
	"context"
	"strings"
	"testing"

	"faithfulcity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostFixture(posts ...models.Post) (*PostService, map[string]*models.Post, *feedRecorder, *[]models.Notification) {
	repo, byID := postStore(posts...)
	notes, created := notificationStore()
	rec := &feedRecorder{}
	families := familyCounter(&models.Family{ID: "rhema"})
	ns := NewNotificationService(notes, newMemoryUsers(), families, rec, nil)
	return NewPostService(repo, ns, rec, families), byID, rec, created
}

func TestPostService_CreateSanitizesAndPublishes(t *testing.T) {
	svc, byID, rec, created := newPostFixture()

	post, err := svc.Create(context.Background(), CreatePostInput{
		FamilyID:   "rhema",
		AuthorID:   "u1",
		AuthorName: "Ruth",
		Content:    "<script>alert(1)</script>Pray for <b>Naomi</b>",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostTypeDiscussion, post.Type)
	assert.Equal(t, "Pray for Naomi", post.Content)
	assert.Empty(t, post.Likes)
	assert.Contains(t, byID, post.ID)
	assert.Equal(t, []string{"rhema/posts"}, rec.Events())
	assert.Empty(t, *created, "only announcements notify")
}

func TestPostService_AnnouncementCreatesNotification(t *testing.T) {
	svc, _, rec, created := newPostFixture()

	_, err := svc.Create(context.Background(), CreatePostInput{
		FamilyID:   "rhema",
		AuthorID:   "u1",
		AuthorName: "Pastor Ade",
		Content:    strings.Repeat("a", 300),
		Type:       models.PostTypeAnnouncement,
	})
	require.NoError(t, err)

	require.Len(t, *created, 1)
	n := (*created)[0]
	assert.Equal(t, models.NotificationTypeAnnouncement, n.Type)
	assert.Equal(t, "New announcement from Pastor Ade", n.Title)
	assert.Equal(t, announcementPreviewLength+1, len([]rune(n.Message)))
	assert.Equal(t, []string{"rhema/posts", "rhema/notifications"}, rec.Events())
}

func TestPostService_CreateValidation(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePostInput{FamilyID: "rhema", Content: "hi", Type: "gossip"})
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Create(ctx, CreatePostInput{FamilyID: "rhema", Content: "<p></p>"})
	assertCode(t, err, models.CodeValidation)
}

func TestPostService_ToggleLikeTwiceRestoresSet(t *testing.T) {
	svc, byID, rec, _ := newPostFixture(models.Post{ID: "p1", FamilyID: "rhema", Likes: models.StringList{"u2"}})
	ctx := context.Background()

	liked, err := svc.ToggleLike(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u2", "u1"}, liked.Likes)
	assert.True(t, liked.LikedBy("u1"))

	unliked, err := svc.ToggleLike(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"u2"}, unliked.Likes)
	assert.Equal(t, models.StringList{"u2"}, byID["p1"].Likes)
	assert.Len(t, rec.Events(), 2)
}

func TestPostService_ToggleLikeMissingPost(t *testing.T) {
	svc, _, rec, _ := newPostFixture()
	_, err := svc.ToggleLike(context.Background(), "nope", "u1")
	assertCode(t, err, models.CodeNotFound)
	assert.Empty(t, rec.Events())
}

func TestPostService_AddComment(t *testing.T) {
	svc, byID, rec, _ := newPostFixture(models.Post{ID: "p1", FamilyID: "glory"})
	ctx := context.Background()

	c, err := svc.AddComment(ctx, AddCommentInput{PostID: "p1", AuthorID: "u1", AuthorName: "Ruth", Content: "Amen"})
	require.NoError(t, err)
	assert.Equal(t, "p1", c.PostID)
	require.Len(t, byID["p1"].Comments, 1)
	assert.Equal(t, []string{"glory/posts"}, rec.Events())

	_, err = svc.AddComment(ctx, AddCommentInput{PostID: "missing", Content: "Amen"})
	assertCode(t, err, models.CodeNotFound)

	_, err = svc.AddComment(ctx, AddCommentInput{PostID: "p1", Content: strings.Repeat("x", 1001)})
	assertCode(t, err, models.CodeValidation)
}

func TestPostService_ListDegradesWhenStoreDown(t *testing.T) {
	repo, _ := postStore()
	repo.listFn = func(context.Context, string) ([]models.Post, error) {
		return nil, models.NewStoreUnavailableError(errConnRefused)
	}
	svc := NewPostService(repo, nil, nil, nil)

	posts, err := svc.ListByFamily(context.Background(), "rhema")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostService_CreateInvalidatesFamilyStats(t *testing.T) {
	repo, _ := postStore()
	families := familyCounter(&models.Family{ID: "glory"})
	svc := NewPostService(repo, nil, nil, families)

	_, err := svc.Create(context.Background(), CreatePostInput{
		FamilyID: "glory", AuthorID: "u1", AuthorName: "Lydia", Content: "Bible study moved to Thursday",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"glory"}, families.invalidated)
}
