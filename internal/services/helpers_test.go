package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saltesefalcon/manager-checklists/internal/bizdate"
	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/repo"
)

// ----- Fixtures -----

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func addRestaurant(t *testing.T, db *gorm.DB, id, name string) {
	t.Helper()
	if _, err := repo.UpsertRestaurant(context.Background(), db, id, name); err != nil {
		t.Fatalf("upsert restaurant: %v", err)
	}
}

func addDuties(t *testing.T, db *gorm.DB, rid string, shift domain.ShiftKind, duties ...domain.DutyTemplate) {
	t.Helper()
	if err := repo.ReplaceDuties(context.Background(), db, rid, shift, duties); err != nil {
		t.Fatalf("replace duties: %v", err)
	}
}

func adminP() *Principal {
	return &Principal{UID: "admin-1", Email: "boss@example.com", Name: "Boss", Role: domain.RoleAdmin, Restaurants: map[string]bool{}}
}

func managerP(uid string, restaurants ...string) *Principal {
	m := make(map[string]bool, len(restaurants))
	for _, r := range restaurants {
		m[r] = true
	}
	return &Principal{UID: uid, Email: uid + "@example.com", Name: "Mgr " + uid, Role: domain.RoleManager, Restaurants: m}
}

func testCalc(t *testing.T) *bizdate.Calculator {
	t.Helper()
	c, err := bizdate.NewCalculator("America/Toronto", bizdate.DefaultCutoffHour)
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	return c
}

var fixedNow = time.Date(2024, 6, 1, 16, 30, 0, 0, time.UTC)

func newChecklistSvc(t *testing.T, db *gorm.DB, pub Publisher) *ChecklistService {
	t.Helper()
	s := NewChecklistService(db, testCalc(t), pub)
	s.Now = func() time.Time { return fixedNow }
	return s
}

// ----- Recording publisher -----

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordingPublisher) Publish(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.topics)
}
