// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
)

// DaysStats returns aggregate metadata for a restaurant's checklist days: the
// number of rows and the greatest UpdatedAt among them. Every write to a
// day's shifts or items touches the day, so the pair changes whenever the
// day listing would.
//
// When the restaurant has no days, count is 0 and maxUpdatedAt is nil.
func DaysStats(ctx context.Context, db *gorm.DB, restaurantID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ChecklistDay{}).Where("restaurant_id = ?", restaurantID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// TouchDay sets a day's UpdatedAt to now so listing ETags change after shift or
// item writes.
func TouchDay(ctx context.Context, db *gorm.DB, restaurantID, date string, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.ChecklistDay{}).
		Where("restaurant_id = ? AND business_date = ?", restaurantID, date).
		Update("updated_at", now.UTC()).Error
}
