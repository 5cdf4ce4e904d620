package domain

import (
	"errors"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection so the FK pragma applies to every statement.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Restaurant{}).TableName():     "restaurants",
		(UserProfile{}).TableName():    "user_profiles",
		(UserRestaurant{}).TableName(): "user_restaurants",
		(DutyTemplate{}).TableName():   "duty_templates",
		(LockTime{}).TableName():       "lock_times",
		(ChecklistDay{}).TableName():   "checklist_days",
		(ChecklistShift{}).TableName(): "checklist_shifts",
		(ChecklistItem{}).TableName():  "checklist_items",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestParseShiftKind(t *testing.T) {
	for in, want := range map[string]ShiftKind{"open": ShiftOpen, " MID ": ShiftMid, "Close": ShiftClose} {
		got, err := ParseShiftKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseShiftKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseShiftKind("lunch"); !errors.Is(err, ErrUnknownShift) {
		t.Fatalf("expected ErrUnknownShift, got %v", err)
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	models := []any{&Restaurant{}, &UserProfile{}, &UserRestaurant{}, &DutyTemplate{}, &LockTime{},
		&ChecklistDay{}, &ChecklistShift{}, &ChecklistItem{}}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range models {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&ChecklistItem{}, "ux_item_slot") {
		t.Fatalf("expected unique index ux_item_slot on checklist_items")
	}
	if !m.HasIndex(&ChecklistShift{}, "idx_shifts_expire") {
		t.Fatalf("expected index idx_shifts_expire on checklist_shifts")
	}

	// Two items may not share a slot.
	exp := time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC)
	a := &ChecklistItem{ID: "i1", RestaurantID: "r1", BusinessDate: "2024-06-01", Shift: ShiftOpen, Order: 0, Title: "A", ExpireAt: exp}
	b := &ChecklistItem{ID: "i2", RestaurantID: "r1", BusinessDate: "2024-06-01", Shift: ShiftOpen, Order: 0, Title: "B", ExpireAt: exp}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := db.Create(b).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate slot")
	}

	// CASCADE: deleting a profile removes its restaurant flags.
	p := &UserProfile{UID: "u1", Email: "u1@example.com", Role: RoleManager,
		Restaurants: []UserRestaurant{{RestaurantID: "r1", Allowed: true}}}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	if err := db.Delete(&UserProfile{}, "uid = ?", "u1").Error; err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	var cnt int64
	if err := db.Model(&UserRestaurant{}).Where("user_id = ?", "u1").Count(&cnt).Error; err != nil {
		t.Fatalf("count flags: %v", err)
	}
	if cnt != 0 {
		t.Fatalf("expected flags to cascade-delete, got count=%d", cnt)
	}
}

func TestShiftHook_RejectsPartialCompletion(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&ChecklistShift{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()
	uid := "u1"

	partial := &ChecklistShift{RestaurantID: "r1", BusinessDate: "2024-06-01", Shift: ShiftClose,
		ExpireAt: now, CompletedAt: &now, CompletedByUserID: &uid}
	if err := db.Create(partial).Error; !errors.Is(err, ErrPartialCompletion) {
		t.Fatalf("expected ErrPartialCompletion, got %v", err)
	}

	name := "Ana"
	full := &ChecklistShift{RestaurantID: "r1", BusinessDate: "2024-06-01", Shift: ShiftClose, Locked: true,
		ExpireAt: now, CompletedAt: &now, CompletedByUserID: &uid, CompletedByName: &name}
	if err := db.Create(full).Error; err != nil {
		t.Fatalf("insert full: %v", err)
	}
}

func TestItemHook_RejectsPartialCheck(t *testing.T) {
	now := time.Now().UTC()
	uid, name := "u1", "Ana"

	cases := []struct {
		name string
		item ChecklistItem
		ok   bool
	}{
		{"unchecked clean", ChecklistItem{}, true},
		{"checked full", ChecklistItem{Checked: true, CheckedByUserID: &uid, CheckedByName: &name, CheckedAt: &now}, true},
		{"missing name", ChecklistItem{Checked: true, CheckedByUserID: &uid, CheckedAt: &now}, false},
		{"stamped but unchecked", ChecklistItem{CheckedByUserID: &uid, CheckedByName: &name, CheckedAt: &now}, false},
	}
	for _, tc := range cases {
		err := tc.item.BeforeSave(nil)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected err %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrPartialCheck) {
			t.Fatalf("%s: expected ErrPartialCheck, got %v", tc.name, err)
		}
	}
}
