package domain

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Hook validation errors.
var (
	ErrPartialCompletion = errors.New("completion fields must be all set or all empty")
	ErrPartialCheck      = errors.New("checked-by fields must be all set or all empty")
)

// ChecklistDay is the per-(restaurant, business date) container. It carries
// only the retention stamp; shifts hang off it by key.
type ChecklistDay struct {
	RestaurantID string    `gorm:"type:varchar(64);primaryKey"`
	BusinessDate string    `gorm:"type:char(10);primaryKey"`
	ExpireAt     time.Time `gorm:"not null;index:idx_days_expire"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the database table name for ChecklistDay.
func (ChecklistDay) TableName() string { return "checklist_days" }

// ChecklistShift is the per-shift header of a day's checklist.
//
// Once Locked is true, only an administrative reset may change it. The four
// completion fields are written together by a submit.
type ChecklistShift struct {
	RestaurantID string    `gorm:"type:varchar(64);primaryKey"`
	BusinessDate string    `gorm:"type:char(10);primaryKey"`
	Shift        ShiftKind `gorm:"type:varchar(8);primaryKey"`
	Locked       bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	ExpireAt     time.Time `gorm:"not null;index:idx_shifts_expire"`

	CompletedAt       *time.Time
	CompletedByUserID *string `gorm:"type:varchar(128)"`
	CompletedByName   *string `gorm:"type:varchar(255)"`
}

// TableName returns the database table name for ChecklistShift.
func (ChecklistShift) TableName() string { return "checklist_shifts" }

// BeforeSave rejects a shift whose completion group is partially filled.
func (s *ChecklistShift) BeforeSave(*gorm.DB) error {
	set := 0
	if s.CompletedAt != nil {
		set++
	}
	if s.CompletedByUserID != nil {
		set++
	}
	if s.CompletedByName != nil {
		set++
	}
	if set != 0 && set != 3 {
		return ErrPartialCompletion
	}
	return nil
}

// ChecklistItem is one duty instance on a shift, snapshotted from the
// template at seed time.
type ChecklistItem struct {
	ID           string    `gorm:"type:char(36);primaryKey"`
	RestaurantID string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_item_slot,priority:1"`
	BusinessDate string    `gorm:"type:char(10);not null;uniqueIndex:ux_item_slot,priority:2"`
	Shift        ShiftKind `gorm:"type:varchar(8);not null;uniqueIndex:ux_item_slot,priority:3"`
	Order        int       `gorm:"column:sort_order;not null;uniqueIndex:ux_item_slot,priority:4"`
	Title        string    `gorm:"type:varchar(255);not null"`
	Priority     bool      `gorm:"not null"`
	Checked      bool      `gorm:"not null"`

	CheckedByUserID *string `gorm:"type:varchar(128)"`
	CheckedByName   *string `gorm:"type:varchar(255)"`
	CheckedAt       *time.Time

	ExpireAt time.Time `gorm:"not null;index:idx_items_expire"`
}

// TableName returns the database table name for ChecklistItem.
func (ChecklistItem) TableName() string { return "checklist_items" }

// BeforeSave rejects an item whose checked-by group is partially filled, or
// filled while the item is unchecked.
func (it *ChecklistItem) BeforeSave(*gorm.DB) error {
	set := 0
	if it.CheckedByUserID != nil {
		set++
	}
	if it.CheckedByName != nil {
		set++
	}
	if it.CheckedAt != nil {
		set++
	}
	switch {
	case set != 0 && set != 3:
		return ErrPartialCheck
	case set == 3 && !it.Checked:
		return ErrPartialCheck
	}
	return nil
}
