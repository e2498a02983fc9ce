package database

import "faithfulcity/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Family{},
		&models.Media{},
		&models.Post{},
		&models.Comment{},
		&models.Notification{},
	}
}
