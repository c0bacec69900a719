package database

import "collectorhub/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Parents come before children so foreign keys resolve on first migrate.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.InterestGroup{},
		&models.CategoryMembership{},
		&models.GroupMembership{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
		&models.SavedPost{},
	}
}
