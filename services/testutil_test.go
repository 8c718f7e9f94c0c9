package services

import (
	"testing"

	"crm-gamification-engine/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB runs the engine's GORM code over an in-memory sqlite database.
// Capped at one connection so every goroutine shares the same memory store.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.ActivityLog{},
		&models.ScoreRecord{},
		&models.ScoringWeight{},
		&models.AchievementDefinition{},
		&models.UserAchievement{},
		&models.UserPoints{},
		&models.SeasonWinner{},
		&models.SeasonRollover{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var count int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}
