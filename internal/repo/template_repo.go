package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
)

// ListDuties returns the duty template for (restaurantID, shift) in position
// order. A never-configured shift yields an empty slice.
func ListDuties(ctx context.Context, db *gorm.DB, restaurantID string, shift domain.ShiftKind) ([]domain.DutyTemplate, error) {
	out := []domain.DutyTemplate{}
	err := db.WithContext(ctx).
		Where("restaurant_id = ? AND shift = ?", restaurantID, shift).
		Order("position asc").
		Find(&out).Error
	return out, err
}

// ReplaceDuties overwrites the whole duty list for (restaurantID, shift).
// Positions are reassigned from the slice order. Callers wanting atomicity
// pass a transaction handle.
func ReplaceDuties(ctx context.Context, db *gorm.DB, restaurantID string, shift domain.ShiftKind, duties []domain.DutyTemplate) error {
	tx := db.WithContext(ctx)
	if err := tx.Where("restaurant_id = ? AND shift = ?", restaurantID, shift).
		Delete(&domain.DutyTemplate{}).Error; err != nil {
		return err
	}
	if len(duties) == 0 {
		return nil
	}
	rows := make([]domain.DutyTemplate, len(duties))
	for i, d := range duties {
		rows[i] = domain.DutyTemplate{
			RestaurantID: restaurantID,
			Shift:        shift,
			Position:     i,
			Title:        d.Title,
			Priority:     d.Priority,
		}
	}
	return tx.Create(&rows).Error
}

// ListLockTimes returns the configured lock times for a restaurant.
// Shifts never configured are absent from the result.
func ListLockTimes(ctx context.Context, db *gorm.DB, restaurantID string) ([]domain.LockTime, error) {
	var out []domain.LockTime
	err := db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Find(&out).Error
	return out, err
}

// UpsertLockTime sets the lock time of one shift.
func UpsertLockTime(ctx context.Context, db *gorm.DB, restaurantID string, shift domain.ShiftKind, hhmm string) error {
	lt := &domain.LockTime{
		RestaurantID: restaurantID,
		Shift:        shift,
		Time:         hhmm,
		UpdatedAt:    time.Now().UTC(),
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "restaurant_id"}, {Name: "shift"}},
			DoUpdates: clause.AssignmentColumns([]string{"time", "updated_at"}),
		}).
		Create(lt).Error
}
