package server

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"faithfulcity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosts_CreateListLikeComment(t *testing.T) {
	env := newTestEnv(t)
	author := env.member(t, "paul@example.com", "rhema", false)
	reader := env.member(t, "silas@example.com", "rhema", false)

	for i := 1; i <= 3; i++ {
		resp, body := env.request(t, http.MethodPost, "/api/families/rhema/posts", map[string]string{
			"content": fmt.Sprintf("Post %d", i),
		}, author.Token)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
		assert.Equal(t, models.PostTypeDiscussion, decode[models.Post](t, body).Type)
	}

	resp, body := env.request(t, http.MethodGet, "/api/families/rhema/posts", nil, reader.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := decode[[]models.Post](t, body)
	require.Len(t, posts, 3)
	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt), "newest first")
	}
	postID := posts[0].ID

	resp, body = env.request(t, http.MethodPost, "/api/posts/"+postID+"/like", nil, reader.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, models.StringList{reader.User.ID}, decode[models.Post](t, body).Likes)

	resp, body = env.request(t, http.MethodPost, "/api/posts/"+postID+"/like", nil, reader.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[models.Post](t, body).Likes, "a second like toggles off")

	resp, body = env.request(t, http.MethodPost, "/api/posts/"+postID+"/comments", map[string]string{
		"content": "Amen <script>alert(1)</script>",
	}, reader.Token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	comment := decode[models.Comment](t, body)
	assert.Equal(t, "Amen", comment.Content)
	assert.Equal(t, reader.User.DisplayName, comment.AuthorName)

	resp, body = env.request(t, http.MethodGet, "/api/posts/"+postID, nil, author.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[models.Post](t, body).Comments, 1)
}

func TestPosts_Validation(t *testing.T) {
	env := newTestEnv(t)
	author := env.member(t, "titus@example.com", "glory", false)

	resp, _ := env.request(t, http.MethodPost, "/api/families/glory/posts", map[string]string{"content": "   "}, author.Token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.request(t, http.MethodPost, "/api/families/glory/posts", map[string]string{
		"content": "hi", "type": "gossip",
	}, author.Token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.request(t, http.MethodGet, "/api/posts/missing", nil, author.Token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPosts_OtherFamilyForbidden(t *testing.T) {
	env := newTestEnv(t)
	author := env.member(t, "lois@example.com", "rhema", false)
	stranger := env.member(t, "eunice@example.com", "glory", false)

	resp, body := env.request(t, http.MethodPost, "/api/families/rhema/posts", map[string]string{"content": "Family only"}, author.Token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	postID := decode[models.Post](t, body).ID

	resp, _ = env.request(t, http.MethodGet, "/api/posts/"+postID, nil, stranger.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = env.request(t, http.MethodPost, "/api/posts/"+postID+"/like", nil, stranger.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = env.request(t, http.MethodPost, "/api/families/rhema/posts", map[string]string{"content": "Hello"}, stranger.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAnnouncementCreatesNotification(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "elder@example.com", "doxa-portal", true)

	resp, body := env.request(t, http.MethodPost, "/api/families/doxa-portal/posts", map[string]string{
		"content": "Prayer night on Friday", "type": "announcement",
	}, admin.Token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = env.request(t, http.MethodGet, "/api/families/doxa-portal/notifications", nil, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decode[[]models.Notification](t, body)
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationTypeAnnouncement, items[0].Type)
	assert.Equal(t, "New announcement from "+admin.User.DisplayName, items[0].Title)
	assert.Equal(t, "Prayer night on Friday", items[0].Message)
	assert.False(t, items[0].IsRead)
}

func TestNotifications_CreateAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "pastor@example.com", "glory", true)
	member := env.member(t, "flock@example.com", "glory", false)

	resp, _ := env.request(t, http.MethodPost, "/api/families/glory/notifications", map[string]string{
		"title": "Choir practice",
	}, member.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "members cannot notify the family")

	resp, body := env.request(t, http.MethodPost, "/api/families/glory/notifications", map[string]string{
		"title": "Choir practice", "message": "Saturday 4pm",
	}, admin.Token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	n := decode[models.Notification](t, body)
	assert.Equal(t, models.NotificationTypeGeneral, n.Type)

	resp, body = env.request(t, http.MethodPost, "/api/notifications/"+n.ID+"/read", nil, member.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.True(t, decode[models.Notification](t, body).IsRead)

	// Marking again keeps it read.
	resp, body = env.request(t, http.MethodPost, "/api/notifications/"+n.ID+"/read", nil, member.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[models.Notification](t, body).IsRead)

	resp, _ = env.request(t, http.MethodPost, "/api/notifications/unknown/read", nil, member.Token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNotifications_NewestTen(t *testing.T) {
	env := newTestEnv(t)
	admin := env.member(t, "herald@example.com", "rhema", true)

	for i := 0; i < 12; i++ {
		resp, body := env.request(t, http.MethodPost, "/api/families/rhema/notifications", map[string]string{
			"title": fmt.Sprintf("Notice %d", i),
		}, admin.Token)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := env.request(t, http.MethodGet, "/api/families/rhema/notifications", nil, admin.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Notification](t, body), 10)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, familyID, token, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/families/"+familyID+"/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestMedia_UploadListServeDelete(t *testing.T) {
	env := newTestEnv(t)
	uploader := env.member(t, "luke@example.com", "rhema", false)
	other := env.member(t, "mark@example.com", "rhema", false)
	admin := env.member(t, "john@example.com", "rhema", true)

	resp, body := env.send(t, uploadRequest(t, "rhema", uploader.Token, "baptism.png", "image/png",
		pngBytes(t, 4, 3), map[string]string{"title": "Baptism", "tags": "sunday, river"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	photo := decode[models.Media](t, body)
	assert.Equal(t, models.MediaTypePhoto, photo.Type)
	assert.Equal(t, 4, photo.Width)
	assert.Equal(t, 3, photo.Height)
	assert.Equal(t, models.StringList{"sunday", "river"}, photo.Tags)
	assert.Regexp(t, `^/media/families/rhema/photos/\d+_[a-z0-9]{9}\.png$`, photo.URL)

	resp, body = env.send(t, uploadRequest(t, "rhema", uploader.Token, "hymn.mp3", "audio/mpeg",
		[]byte("ID3 not really audio"), map[string]string{"title": "Hymn"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	audio := decode[models.Media](t, body)
	assert.Equal(t, models.MediaTypeAudio, audio.Type)

	resp, _ = env.send(t, uploadRequest(t, "rhema", uploader.Token, "notes.pdf", "application/pdf",
		[]byte("%PDF"), map[string]string{"title": "Notes"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.request(t, http.MethodGet, "/api/families/rhema/media", nil, other.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Media](t, body), 2)

	resp, body = env.request(t, http.MethodGet, "/api/families/rhema/media?type=photo", nil, other.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	photos := decode[[]models.Media](t, body)
	require.Len(t, photos, 1)
	assert.Equal(t, photo.ID, photos[0].ID)

	resp, _ = env.request(t, http.MethodGet, "/api/families/rhema/media?type=video", nil, other.Token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The local backend serves the stored blob.
	resp, served := env.request(t, http.MethodGet, photo.URL, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pngBytes(t, 4, 3), served)

	// Uploads notify the family.
	resp, body = env.request(t, http.MethodGet, "/api/families/rhema/notifications", nil, other.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	titles := []string{}
	for _, n := range decode[[]models.Notification](t, body) {
		assert.Equal(t, models.NotificationTypeMedia, n.Type)
		titles = append(titles, n.Title)
	}
	assert.ElementsMatch(t, []string{"New photo added", "New audio added"}, titles)

	resp, _ = env.request(t, http.MethodDelete, "/api/media/"+photo.ID, nil, other.Token)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "only the uploader or an admin may delete")

	resp, _ = env.request(t, http.MethodDelete, "/api/media/"+photo.ID, nil, uploader.Token)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.request(t, http.MethodGet, "/api/media/"+photo.ID, nil, uploader.Token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.request(t, http.MethodDelete, "/api/media/"+audio.ID, nil, admin.Token)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMedia_DeleteWithMissingBlobKeepsRecord(t *testing.T) {
	env := newTestEnv(t)
	uploader := env.member(t, "jude@example.com", "glory", false)

	resp, body := env.send(t, uploadRequest(t, "glory", uploader.Token, "psalm.png", "image/png",
		pngBytes(t, 1, 1), map[string]string{"title": "Psalm"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	media := decode[models.Media](t, body)

	var stored models.Media
	require.NoError(t, env.db.Where("id = ?", media.ID).First(&stored).Error)
	require.NoError(t, env.blobs.Delete(t.Context(), stored.StoragePath))

	resp, body = env.request(t, http.MethodDelete, "/api/media/"+media.ID, nil, uploader.Token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decode[models.ErrorResponse](t, body).Code)

	resp, _ = env.request(t, http.MethodGet, "/api/media/"+media.ID, nil, uploader.Token)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "the record survives a failed blob delete")
}

func TestMedia_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	uploader := env.member(t, "big@example.com", "rhema", false)

	// MediaMaxUploadMB is 1 in tests.
	resp, body := env.send(t, uploadRequest(t, "rhema", uploader.Token, "huge.mp3", "audio/mpeg",
		bytes.Repeat([]byte{1}, 1<<20+1), map[string]string{"title": "Huge"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
}
