// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for checklist
// days, shifts and items.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound.
//   - Guarded writes (LockShift, UpdateItemCheck) report a refused guard as
//     ErrGuardRejected so the service layer can decide between "locked" and
//     "not found".
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
)

// ErrGuardRejected is returned when a conditional update matched no row.
var ErrGuardRejected = errors.New("guarded update matched no row")

// shiftUnlocked restricts an item update to items whose shift is not locked.
const shiftUnlocked = `NOT EXISTS (
	SELECT 1 FROM checklist_shifts s
	WHERE s.restaurant_id = checklist_items.restaurant_id
	  AND s.business_date = checklist_items.business_date
	  AND s.shift = checklist_items.shift
	  AND s.locked = ?)`

// EnsureDay inserts the day container, created at now, if it does not exist
// yet.
func EnsureDay(ctx context.Context, db *gorm.DB, restaurantID, date string, expireAt, now time.Time) error {
	d := &domain.ChecklistDay{RestaurantID: restaurantID, BusinessDate: date, ExpireAt: expireAt, CreatedAt: now, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(d).Error
}

// StampDay inserts the day container or refreshes its retention stamp and
// UpdatedAt to now.
func StampDay(ctx context.Context, db *gorm.DB, restaurantID, date string, expireAt, now time.Time) error {
	d := &domain.ChecklistDay{RestaurantID: restaurantID, BusinessDate: date, ExpireAt: expireAt, CreatedAt: now, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "restaurant_id"}, {Name: "business_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"expire_at", "updated_at"}),
		}).
		Create(d).Error
}

// CreateShiftIfAbsent inserts an unlocked shift header. It reports false
// without error when the shift already exists.
func CreateShiftIfAbsent(ctx context.Context, db *gorm.DB, s *domain.ChecklistShift) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(s)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetShift fetches one shift header, or ErrNotFound.
func GetShift(ctx context.Context, db *gorm.DB, restaurantID, date string, shift domain.ShiftKind) (*domain.ChecklistShift, error) {
	var s domain.ChecklistShift
	err := db.WithContext(ctx).
		Where("restaurant_id = ? AND business_date = ? AND shift = ?", restaurantID, date, shift).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteShift removes a shift header and all of its items.
func DeleteShift(ctx context.Context, db *gorm.DB, restaurantID, date string, shift domain.ShiftKind) error {
	tx := db.WithContext(ctx)
	if err := tx.Where("restaurant_id = ? AND business_date = ? AND shift = ?", restaurantID, date, shift).
		Delete(&domain.ChecklistItem{}).Error; err != nil {
		return err
	}
	return tx.Where("restaurant_id = ? AND business_date = ? AND shift = ?", restaurantID, date, shift).
		Delete(&domain.ChecklistShift{}).Error
}

// LockShift applies the completion stamp to s, but only if the stored row is
// still unlocked. It returns ErrGuardRejected when nothing was updated.
func LockShift(ctx context.Context, db *gorm.DB, s *domain.ChecklistShift) error {
	res := db.WithContext(ctx).
		Model(s).
		Where("locked = ?", false).
		Select("locked", "completed_at", "completed_by_user_id", "completed_by_name").
		Updates(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGuardRejected
	}
	return nil
}

// CreateItems inserts a batch of items.
func CreateItems(ctx context.Context, db *gorm.DB, items []domain.ChecklistItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

// ListItems returns a shift's items in display order.
func ListItems(ctx context.Context, db *gorm.DB, restaurantID, date string, shift domain.ShiftKind) ([]domain.ChecklistItem, error) {
	out := []domain.ChecklistItem{}
	err := db.WithContext(ctx).
		Where("restaurant_id = ? AND business_date = ? AND shift = ?", restaurantID, date, shift).
		Order("sort_order asc").
		Find(&out).Error
	return out, err
}

// GetItem fetches a single item scoped to its shift, or ErrNotFound.
func GetItem(ctx context.Context, db *gorm.DB, restaurantID, date string, shift domain.ShiftKind, id string) (*domain.ChecklistItem, error) {
	var it domain.ChecklistItem
	err := db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ? AND business_date = ? AND shift = ?", id, restaurantID, date, shift).
		First(&it).Error
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// UpdateItemCheck writes the checked state and checked-by fields of it,
// refusing with ErrGuardRejected when the owning shift is locked or the item
// is gone. Nil checked-by fields are written as NULL.
func UpdateItemCheck(ctx context.Context, db *gorm.DB, it *domain.ChecklistItem) error {
	res := db.WithContext(ctx).
		Model(it).
		Where(shiftUnlocked, true).
		Select("checked", "checked_by_user_id", "checked_by_name", "checked_at").
		Updates(it)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrGuardRejected
	}
	return nil
}

// ShiftItemCount is the per-shift progress of a day.
type ShiftItemCount struct {
	BusinessDate string
	Shift        domain.ShiftKind
	Total        int64
	Done         int64
}

// CountDays returns how many checklist days exist for a restaurant.
func CountDays(ctx context.Context, db *gorm.DB, restaurantID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChecklistDay{}).
		Where("restaurant_id = ?", restaurantID).
		Count(&total).Error
	return total, err
}

// ListDaysPage returns a page of a restaurant's days, most recent first.
func ListDaysPage(ctx context.Context, db *gorm.DB, restaurantID string, offset, limit int) ([]domain.ChecklistDay, error) {
	var out []domain.ChecklistDay
	err := db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("business_date desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListShiftsForDates returns the shift headers of the given days.
func ListShiftsForDates(ctx context.Context, db *gorm.DB, restaurantID string, dates []string) ([]domain.ChecklistShift, error) {
	var out []domain.ChecklistShift
	if len(dates) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Where("restaurant_id = ? AND business_date IN ?", restaurantID, dates).
		Find(&out).Error
	return out, err
}

// CountItemsForDates aggregates item progress per (date, shift).
func CountItemsForDates(ctx context.Context, db *gorm.DB, restaurantID string, dates []string) ([]ShiftItemCount, error) {
	var out []ShiftItemCount
	if len(dates) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Model(&domain.ChecklistItem{}).
		Select("business_date, shift, COUNT(*) AS total, SUM(CASE WHEN checked THEN 1 ELSE 0 END) AS done").
		Where("restaurant_id = ? AND business_date IN ?", restaurantID, dates).
		Group("business_date, shift").
		Scan(&out).Error
	return out, err
}
