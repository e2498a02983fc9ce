package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"faithfulcity/internal/feed"
	"faithfulcity/internal/mail"
	"faithfulcity/internal/models"
	"faithfulcity/internal/repository"
	"faithfulcity/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

// memoryUsers is an in-memory repository.UserRepository.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User

	listErr error
}

func newMemoryUsers(users ...models.User) *memoryUsers {
	m := &memoryUsers{users: map[string]*models.User{}}
	for i := range users {
		u := users[i]
		m.users[u.ID] = &u
	}
	return m
}

func (m *memoryUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryUsers) filter(familyID string, admins bool) []models.User {
	var out []models.User
	for _, u := range m.users {
		if u.FamilyID != familyID {
			continue
		}
		if admins && u.Role != models.RoleAdmin {
			continue
		}
		out = append(out, *u)
	}
	return out
}

func (m *memoryUsers) ListByFamily(_ context.Context, familyID string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.filter(familyID, false), nil
}

func (m *memoryUsers) ListAdmins(_ context.Context, familyID string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.filter(familyID, true), nil
}

func (m *memoryUsers) CountAdmins(_ context.Context, familyID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.filter(familyID, true))), nil
}

func (m *memoryUsers) update(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.NewNotFoundError("User", id)
	}
	fn(u)
	return nil
}

func (m *memoryUsers) SetFamily(_ context.Context, userID, familyID string) error {
	return m.update(userID, func(u *models.User) { u.FamilyID = familyID })
}

func (m *memoryUsers) ClearFamily(_ context.Context, userID string) error {
	return m.update(userID, func(u *models.User) { u.FamilyID = "" })
}

func (m *memoryUsers) SetRole(_ context.Context, userID string, role models.UserRole) error {
	return m.update(userID, func(u *models.User) { u.Role = role })
}

func (m *memoryUsers) get(t *testing.T, id string) models.User {
	t.Helper()
	u, err := m.GetByID(context.Background(), id)
	require.NoError(t, err)
	return *u
}

// familyRepoStub is a stub for repository.FamilyRepository.
type familyRepoStub struct {
	listFn       func(context.Context) ([]models.Family, error)
	getByIDFn    func(context.Context, string) (*models.Family, error)
	incrementFn  func(context.Context, string) error
	updateInfoFn func(context.Context, string, map[string]any) (*models.Family, error)
	statsFn      func(context.Context, string) (*models.FamilyStats, error)

	// invalidated records InvalidateStats calls in order.
	invalidated []string
}

func (s *familyRepoStub) List(ctx context.Context) ([]models.Family, error) {
	return s.listFn(ctx)
}
func (s *familyRepoStub) GetByID(ctx context.Context, id string) (*models.Family, error) {
	return s.getByIDFn(ctx, id)
}
func (s *familyRepoStub) IncrementMemberCount(ctx context.Context, id string) error {
	return s.incrementFn(ctx, id)
}
func (s *familyRepoStub) UpdateInfo(ctx context.Context, id string, updates map[string]any) (*models.Family, error) {
	return s.updateInfoFn(ctx, id, updates)
}
func (s *familyRepoStub) Stats(ctx context.Context, id string) (*models.FamilyStats, error) {
	return s.statsFn(ctx, id)
}
func (s *familyRepoStub) InvalidateStats(_ context.Context, id string) {
	s.invalidated = append(s.invalidated, id)
}

// familyCounter is a familyRepoStub over a single in-memory family.
func familyCounter(f *models.Family) *familyRepoStub {
	return &familyRepoStub{
		listFn: func(context.Context) ([]models.Family, error) { return []models.Family{*f}, nil },
		getByIDFn: func(_ context.Context, id string) (*models.Family, error) {
			if id != f.ID {
				return nil, models.NewNotFoundError("Family", id)
			}
			cp := *f
			return &cp, nil
		},
		incrementFn: func(_ context.Context, id string) error {
			if id != f.ID {
				return models.NewNotFoundError("Family", id)
			}
			f.MemberCount++
			return nil
		},
		updateInfoFn: func(_ context.Context, _ string, updates map[string]any) (*models.Family, error) {
			if v, ok := updates["name"].(string); ok {
				f.Name = v
			}
			if v, ok := updates["description"].(string); ok {
				f.Description = v
			}
			if v, ok := updates["image_url"].(string); ok {
				f.ImageURL = v
			}
			cp := *f
			return &cp, nil
		},
		statsFn: func(_ context.Context, id string) (*models.FamilyStats, error) {
			return &models.FamilyStats{FamilyID: id, MemberCount: int64(f.MemberCount)}, nil
		},
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn      func(context.Context, *models.Post) error
	getByIDFn     func(context.Context, string) (*models.Post, error)
	listFn        func(context.Context, string) ([]models.Post, error)
	updateLikesFn func(context.Context, string, models.StringList) error
	addCommentFn  func(context.Context, *models.Comment) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) ListByFamily(ctx context.Context, familyID string) ([]models.Post, error) {
	return s.listFn(ctx, familyID)
}
func (s *postRepoStub) UpdateLikes(ctx context.Context, postID string, likes models.StringList) error {
	return s.updateLikesFn(ctx, postID, likes)
}
func (s *postRepoStub) AddComment(ctx context.Context, comment *models.Comment) error {
	return s.addCommentFn(ctx, comment)
}

// postStore is a postRepoStub backed by a map so read-modify-write can be observed.
func postStore(posts ...models.Post) (*postRepoStub, map[string]*models.Post) {
	byID := map[string]*models.Post{}
	for i := range posts {
		p := posts[i]
		byID[p.ID] = &p
	}
	stub := &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			cp := *p
			byID[p.ID] = &cp
			return nil
		},
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) {
			p, ok := byID[id]
			if !ok {
				return nil, models.NewNotFoundError("Post", id)
			}
			cp := *p
			cp.Likes = append(models.StringList{}, p.Likes...)
			return &cp, nil
		},
		listFn: func(_ context.Context, familyID string) ([]models.Post, error) {
			var out []models.Post
			for _, p := range byID {
				if p.FamilyID == familyID {
					out = append(out, *p)
				}
			}
			return out, nil
		},
		updateLikesFn: func(_ context.Context, id string, likes models.StringList) error {
			p, ok := byID[id]
			if !ok {
				return models.NewNotFoundError("Post", id)
			}
			p.Likes = likes
			return nil
		},
		addCommentFn: func(_ context.Context, c *models.Comment) error {
			p, ok := byID[c.PostID]
			if !ok {
				return models.NewNotFoundError("Post", c.PostID)
			}
			p.Comments = append(p.Comments, *c)
			return nil
		},
	}
	return stub, byID
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	createFn   func(context.Context, *models.Notification) error
	getByIDFn  func(context.Context, string) (*models.Notification, error)
	listFn     func(context.Context, string) ([]models.Notification, error)
	markReadFn func(context.Context, string) error
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	return s.createFn(ctx, n)
}
func (s *notificationRepoStub) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	return s.getByIDFn(ctx, id)
}
func (s *notificationRepoStub) ListByFamily(ctx context.Context, familyID string) ([]models.Notification, error) {
	return s.listFn(ctx, familyID)
}
func (s *notificationRepoStub) MarkRead(ctx context.Context, id string) error {
	return s.markReadFn(ctx, id)
}

func notificationStore() (*notificationRepoStub, *[]models.Notification) {
	var created []models.Notification
	stub := &notificationRepoStub{
		createFn: func(_ context.Context, n *models.Notification) error {
			created = append(created, *n)
			return nil
		},
		getByIDFn: func(_ context.Context, id string) (*models.Notification, error) {
			for i := range created {
				if created[i].ID == id {
					cp := created[i]
					return &cp, nil
				}
			}
			return nil, models.NewNotFoundError("Notification", id)
		},
		listFn: func(context.Context, string) ([]models.Notification, error) { return created, nil },
		markReadFn: func(_ context.Context, id string) error {
			for i := range created {
				if created[i].ID == id {
					created[i].IsRead = true
					return nil
				}
			}
			return models.NewNotFoundError("Notification", id)
		},
	}
	return stub, &created
}

// mediaRepoStub is a stub for repository.MediaRepository.
type mediaRepoStub struct {
	createFn  func(context.Context, *models.Media) error
	getByIDFn func(context.Context, string) (*models.Media, error)
	listFn    func(context.Context, string, models.MediaType) ([]models.Media, error)
	deleteFn  func(context.Context, string) error
}

func (s *mediaRepoStub) Create(ctx context.Context, m *models.Media) error {
	return s.createFn(ctx, m)
}
func (s *mediaRepoStub) GetByID(ctx context.Context, id string) (*models.Media, error) {
	return s.getByIDFn(ctx, id)
}
func (s *mediaRepoStub) ListByFamily(ctx context.Context, familyID string, t models.MediaType) ([]models.Media, error) {
	return s.listFn(ctx, familyID, t)
}
func (s *mediaRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

// blobStub is an in-memory storage.BlobStore.
type blobStub struct {
	objects   map[string][]byte
	putErr    error
	deleteErr error
}

func newBlobStub() *blobStub { return &blobStub{objects: map[string][]byte{}} }

func (b *blobStub) Put(_ context.Context, objectPath string, body io.Reader, _ int64, _ string) error {
	if b.putErr != nil {
		return b.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[objectPath] = data
	return nil
}

func (b *blobStub) Delete(_ context.Context, objectPath string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.objects[objectPath]; !ok {
		return storage.ErrBlobNotFound
	}
	delete(b.objects, objectPath)
	return nil
}

func (b *blobStub) URL(objectPath string) string { return "/media/" + objectPath }

// feedRecorder captures published feed changes.
type feedRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *feedRecorder) Publish(_ context.Context, familyID string, topic feed.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, familyID+"/"+string(topic))
}

func (r *feedRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// announcerStub records announcement emails.
type announcerStub struct {
	enabled bool
	sent    []mail.Announcement
	to      [][]mail.Recipient
	err     error
}

func (a *announcerStub) Enabled() bool { return a.enabled }
func (a *announcerStub) SendAnnouncement(_ context.Context, to []mail.Recipient, an mail.Announcement) error {
	a.to = append(a.to, to)
	a.sent = append(a.sent, an)
	return a.err
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
