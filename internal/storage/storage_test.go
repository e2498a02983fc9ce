package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"faithfulcity/internal/config"
	"faithfulcity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaPath(t *testing.T) {
	at := time.UnixMilli(1717171717171)
	p := MediaPath("doxa-portal", models.MediaTypePhoto, at, "jpg")
	assert.Regexp(t, regexp.MustCompile(`^families/doxa-portal/photos/1717171717171_[0-9a-f]{9}\.jpg$`), p)

	a := MediaPath("rhema", models.MediaTypeAudio, at, "mp3")
	assert.True(t, strings.HasPrefix(a, "families/rhema/audios/"))
	assert.NotEqual(t, a, MediaPath("rhema", models.MediaTypeAudio, at, "mp3"), "random suffix avoids collisions")
}

func TestMediaTypeFor(t *testing.T) {
	typ, ok := MediaTypeFor("image/jpeg")
	assert.True(t, ok)
	assert.Equal(t, models.MediaTypePhoto, typ)

	typ, ok = MediaTypeFor("audio/mpeg; charset=binary")
	assert.True(t, ok)
	assert.Equal(t, models.MediaTypeAudio, typ)

	_, ok = MediaTypeFor("application/pdf")
	assert.False(t, ok)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "jpg", Extension("Sunday Service.JPG", "image/jpeg"))
	assert.Equal(t, "png", Extension("noext", "image/png"))
	assert.Equal(t, "bin", Extension("weird.$$$", "application/x-unknown-thing"))
}

func TestLocalStore_PutDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	p := "families/glory/photos/1_abc.jpg"
	require.NoError(t, store.Put(ctx, p, strings.NewReader("jpeg-bytes"), 10, "image/jpeg"))

	data, err := os.ReadFile(filepath.Join(dir, "families", "glory", "photos", "1_abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "/media/families/glory/photos/1_abc.jpg", store.URL(p))

	require.NoError(t, store.Delete(ctx, p))
	err = store.Delete(ctx, p)
	assert.True(t, errors.Is(err, ErrBlobNotFound))

	assert.Error(t, store.Put(ctx, "../escape.txt", strings.NewReader("x"), 1, "text/plain"))
}

func TestImageSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	w, h, ok := ImageSize(buf.Bytes())
	assert.True(t, ok)
	assert.Equal(t, 4, w)
	assert.Equal(t, 3, h)

	_, _, ok = ImageSize([]byte("not an image"))
	assert.False(t, ok)
}

func TestNew_SelectsBackend(t *testing.T) {
	store, err := New(context.Background(), &config.Config{StorageBackend: "local", StorageLocalDir: t.TempDir(), StoragePublicBaseURL: "/media"})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), &config.Config{StorageBackend: "ftp"})
	assert.Error(t, err)
}
