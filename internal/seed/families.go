// Package seed inserts the built-in families and, for development, demo data.
package seed

import (
	"fmt"

	"faithfulcity/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BuiltInFamily is one of the permanent families every deployment starts with.
type BuiltInFamily struct {
	ID          string
	Name        string
	Description string
	ImageURL    string
}

// BuiltInFamilies defines the permanent families.
var BuiltInFamilies = []BuiltInFamily{
	{
		ID:          "doxa-portal",
		Name:        "Doxa Portal Family",
		Description: "A community dedicated to worship and spiritual growth through divine revelation and praise.",
		ImageURL:    "https://images.pexels.com/photos/8468470/pexels-photo-8468470.jpeg?auto=compress&cs=tinysrgb&w=800",
	},
	{
		ID:          "rhema",
		Name:        "Rhema Family",
		Description: "United by the spoken word of God, building faith through scripture and fellowship.",
		ImageURL:    "https://images.pexels.com/photos/1587927/pexels-photo-1587927.jpeg?auto=compress&cs=tinysrgb&w=800",
	},
	{
		ID:          "glory",
		Name:        "Glory Family",
		Description: "Reflecting God's glory in our daily lives and sharing His light with the world.",
		ImageURL:    "https://images.pexels.com/photos/1587927/pexels-photo-1587927.jpeg?auto=compress&cs=tinysrgb&w=800",
	},
}

// Families upserts the built-in families. Descriptive fields are refreshed on
// every run; member_count is only set on first insert.
func Families(db *gorm.DB) error {
	for _, item := range BuiltInFamilies {
		family := models.Family{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			ImageURL:    item.ImageURL,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "image_url", "updated_at"}),
		}).Create(&family).Error; err != nil {
			return fmt.Errorf("seed family %s: %w", item.ID, err)
		}
	}
	return nil
}
