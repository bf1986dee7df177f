// Package persistence provides database storage implementations.
package persistence

import (
	"github.com/commitsense/commitsense/internal/database"
)

// AutoMigrate runs GORM auto migration for all models.
func AutoMigrate(db database.Database) error {
	return db.GORM().AutoMigrate(
		&ProjectModel{},
		&CommitModel{},
		&ChunkModel{},
	)
}
