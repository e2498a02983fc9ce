package seed

import (
	"fmt"
	"math/rand"
	"time"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultDemoPassword is the password of every generated member.
const DefaultDemoPassword = "faithful123"

// DemoOptions sizes the generated data per family.
type DemoOptions struct {
	MembersPerFamily       int
	PostsPerFamily         int
	NotificationsPerFamily int
	Password               string
	// Seed makes the generated data reproducible when non-zero.
	Seed int64
}

func (o *DemoOptions) defaults() {
	if o.MembersPerFamily <= 0 {
		o.MembersPerFamily = 6
	}
	if o.PostsPerFamily <= 0 {
		o.PostsPerFamily = 12
	}
	if o.NotificationsPerFamily <= 0 {
		o.NotificationsPerFamily = 5
	}
	if o.Password == "" {
		o.Password = DefaultDemoPassword
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
}

var (
	postTypes = []models.PostType{
		models.PostTypeDiscussion, models.PostTypeDiscussion,
		models.PostTypePrayerRequest, models.PostTypeAnnouncement,
	}
	prayerOpeners = []string{
		"Please pray for", "Lifting up", "Standing in faith for", "Asking for prayers for",
	}
)

// DemoSummary counts what Demo created.
type DemoSummary struct {
	Members       int
	Posts         int
	Comments      int
	Notifications int
}

// Demo fills every existing family with generated members, posts and
// notifications. The first member of each family is its admin.
func Demo(db *gorm.DB, opts DemoOptions) (*DemoSummary, error) {
	opts.defaults()
	gofakeit.Seed(opts.Seed)
	r := rand.New(rand.NewSource(opts.Seed))

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var families []models.Family
	if err := db.Find(&families).Error; err != nil {
		return nil, err
	}

	summary := &DemoSummary{}
	for _, family := range families {
		err := db.Transaction(func(tx *gorm.DB) error {
			members, err := createMembers(tx, family.ID, opts.MembersPerFamily, string(hash))
			if err != nil {
				return err
			}
			summary.Members += len(members)

			if err := tx.Model(&models.Family{}).Where("id = ?", family.ID).
				Update("member_count", gorm.Expr("member_count + ?", len(members))).Error; err != nil {
				return err
			}

			posts, comments, err := createPosts(tx, r, family.ID, members, opts.PostsPerFamily)
			if err != nil {
				return err
			}
			summary.Posts += posts
			summary.Comments += comments

			n, err := createNotifications(tx, r, family.ID, opts.NotificationsPerFamily)
			if err != nil {
				return err
			}
			summary.Notifications += n
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("seed demo data for %s: %w", family.ID, err)
		}
	}

	middleware.Logger.Info("demo data seeded",
		"families", len(families), "members", summary.Members,
		"posts", summary.Posts, "comments", summary.Comments,
		"notifications", summary.Notifications)
	return summary, nil
}

func createMembers(tx *gorm.DB, familyID string, n int, hash string) ([]models.User, error) {
	members := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleAdmin
		}
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		members = append(members, models.User{
			ID:           uuid.NewString(),
			Email:        fmt.Sprintf("%s.%s.%s@example.com", sanitizeLocal(first), sanitizeLocal(last), uuid.NewString()[:6]),
			DisplayName:  first + " " + last,
			PasswordHash: hash,
			FamilyID:     familyID,
			Role:         role,
		})
	}
	if err := tx.Create(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func createPosts(tx *gorm.DB, r *rand.Rand, familyID string, members []models.User, n int) (posts, comments int, err error) {
	if len(members) == 0 {
		return 0, 0, nil
	}
	now := time.Now()
	for i := 0; i < n; i++ {
		author := members[r.Intn(len(members))]
		postType := postTypes[r.Intn(len(postTypes))]
		if postType == models.PostTypeAnnouncement {
			author = members[0]
		}

		content := gofakeit.Paragraph(1, 3, 12, " ")
		if postType == models.PostTypePrayerRequest {
			content = fmt.Sprintf("%s %s. %s", prayerOpeners[r.Intn(len(prayerOpeners))], gofakeit.FirstName(), gofakeit.Sentence(10))
		}

		likes := models.StringList{}
		for _, m := range members {
			if r.Intn(3) == 0 {
				likes = append(likes, m.ID)
			}
		}

		createdAt := now.Add(-time.Duration(r.Intn(30*24)) * time.Hour)
		post := models.Post{
			ID:         uuid.NewString(),
			FamilyID:   familyID,
			AuthorID:   author.ID,
			AuthorName: author.DisplayName,
			Content:    content,
			Type:       postType,
			Likes:      likes,
			CreatedAt:  createdAt,
		}
		if err := tx.Omit("Comments").Create(&post).Error; err != nil {
			return posts, comments, err
		}
		posts++

		for c := r.Intn(3); c > 0; c-- {
			commenter := members[r.Intn(len(members))]
			comment := models.Comment{
				ID:         uuid.NewString(),
				PostID:     post.ID,
				AuthorID:   commenter.ID,
				AuthorName: commenter.DisplayName,
				Content:    gofakeit.Sentence(8),
				CreatedAt:  createdAt.Add(time.Duration(c) * time.Hour),
			}
			if err := tx.Create(&comment).Error; err != nil {
				return posts, comments, err
			}
			comments++
		}
	}
	return posts, comments, nil
}

func createNotifications(tx *gorm.DB, r *rand.Rand, familyID string, n int) (int, error) {
	types := []models.NotificationType{models.NotificationTypeGeneral, models.NotificationTypeAnnouncement}
	now := time.Now()
	for i := 0; i < n; i++ {
		note := models.Notification{
			ID:        uuid.NewString(),
			FamilyID:  familyID,
			Title:     gofakeit.Sentence(4),
			Message:   gofakeit.Sentence(12),
			Type:      types[r.Intn(len(types))],
			IsRead:    r.Intn(4) == 0,
			CreatedAt: now.Add(-time.Duration(r.Intn(14*24)) * time.Hour),
		}
		if err := tx.Create(&note).Error; err != nil {
			return i, err
		}
	}
	return n, nil
}

func sanitizeLocal(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		}
	}
	if len(out) == 0 {
		return "member"
	}
	return string(out)
}
