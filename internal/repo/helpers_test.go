package repo

import (
	"context"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
)

// newTestDB opens a private in-memory database with the full schema.
// Subtest names contain "/" so they are flattened for the DSN.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:repo_"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// seedDay inserts the ChecklistDay parent row for restaurant/date.
func seedDay(t *testing.T, db *gorm.DB, restaurantID, date string) {
	t.Helper()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := UpsertRestaurant(context.Background(), db, restaurantID, ""); err != nil {
		t.Fatalf("restaurant: %v", err)
	}
	day := &domain.ChecklistDay{RestaurantID: restaurantID, BusinessDate: date, ExpireAt: now, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(day).Error; err != nil {
		t.Fatalf("day: %v", err)
	}
}
