package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saltesefalcon/manager-checklists/internal/auth"
	"github.com/saltesefalcon/manager-checklists/internal/bizdate"
	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/http/middleware"
	"github.com/saltesefalcon/manager-checklists/internal/realtime"
	"github.com/saltesefalcon/manager-checklists/internal/repo"
	"github.com/saltesefalcon/manager-checklists/internal/services"
)

const (
	testSecret = "handlers-test-secret-0123456789"
	testDate   = "2024-06-01"
	base       = "/api/v1"
)

var testNow = time.Date(2024, 6, 1, 16, 30, 0, 0, time.UTC)

// testEnv is a fully wired API over an in-memory database.
type testEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	verifier *auth.Verifier
	revoker  *auth.MemoryRevoker
	broker   *realtime.Broker
	svc      *services.ChecklistService
}

type templateRepo struct{}

func (templateRepo) ListDuties(ctx context.Context, db *gorm.DB, rid string, shift domain.ShiftKind) ([]domain.DutyTemplate, error) {
	return repo.ListDuties(ctx, db, rid, shift)
}

func (templateRepo) ReplaceDuties(ctx context.Context, db *gorm.DB, rid string, shift domain.ShiftKind, d []domain.DutyTemplate) error {
	return repo.ReplaceDuties(ctx, db, rid, shift, d)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
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

// newTestEnv seeds two restaurants, an admin, a manager of "tulia" only, and
// a two-duty open template for "tulia".
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := newTestDB(t)

	for id, name := range map[string]string{"tulia": "Tulia", "ancora": ""} {
		if _, err := repo.UpsertRestaurant(ctx, db, id, name); err != nil {
			t.Fatalf("restaurant: %v", err)
		}
	}
	profiles := []*domain.UserProfile{
		{UID: "admin-1", Email: "boss@example.com", DisplayName: "Boss", Role: domain.RoleAdmin},
		{UID: "mgr-1", Email: "sam@example.com", DisplayName: "Sam", Role: domain.RoleManager,
			Restaurants: []domain.UserRestaurant{{RestaurantID: "tulia", Allowed: true}, {RestaurantID: "ancora", Allowed: false}}},
	}
	for _, p := range profiles {
		if err := repo.SaveProfile(ctx, db, p); err != nil {
			t.Fatalf("profile: %v", err)
		}
	}
	if err := repo.ReplaceDuties(ctx, db, "tulia", domain.ShiftOpen, []domain.DutyTemplate{
		{Title: "Count drawer", Priority: true},
		{Title: "Unlock doors"},
	}); err != nil {
		t.Fatalf("duties: %v", err)
	}

	calc, err := bizdate.NewCalculator("America/Toronto", bizdate.DefaultCutoffHour)
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	broker := realtime.NewBroker()
	svc := services.NewChecklistService(db, calc, broker)
	svc.Now = func() time.Time { return testNow }
	policy := services.NewAccessPolicy(db, calc)
	policy.Now = func() time.Time { return testNow }
	templates := services.NewTemplateStore(db, templateRepo{})
	lockTimes := &services.LockTimes{DB: db}

	verifier := auth.NewVerifier(testSecret, "")
	revoker := auth.NewMemoryRevoker()

	h := New(Options{
		Checklists: svc,
		Access:     policy,
		Templates:  templates,
		LockTimes:  lockTimes,
		Settings:   &services.SettingsService{DB: db, Templates: templates, LockTimes: lockTimes},
		Broker:     broker,
		Revoker:    revoker,
		RecordIdempotency: func(ctx context.Context, userID, scope, key string, status int) error {
			_, err := repo.CreateIdempotency(ctx, db, userID, scope, key, status, time.Hour)
			return err
		},
		PingInterval: time.Second,
	})

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group(base)
	api.Use(middleware.Authenticate(verifier, revoker, policy.Resolve))
	api.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return rec != nil, err
		}))
	api.GET("/me", h.Me)
	api.POST("/auth/signout", h.SignOut)
	api.GET("/restaurants", h.ListRestaurants)
	api.GET("/restaurants/:restId", h.GetRestaurant)
	api.GET("/restaurants/:restId/checklists", h.ListDays)
	shift := api.Group("/restaurants/:restId/checklists/:date/:shift")
	shift.GET("", h.GetShift)
	shift.GET("/watch", h.WatchShift)
	shift.GET("/export", h.ExportShift)
	shift.POST("/items/:itemId/toggle", h.ToggleItem)
	shift.POST("/submit", h.SubmitShift)
	shift.POST("/reseed", h.ReseedShift)
	shift.POST("/reset", h.ResetShift)
	settings := api.Group("/restaurants/:restId/settings")
	settings.GET("", h.GetSettings)
	settings.PUT("/templates/:shift", h.SaveTemplate)
	settings.POST("/templates/:shift/edits", h.EditTemplate)
	settings.POST("/templates/:shift/bulk", h.BulkTemplate)
	settings.PUT("/lock-times/:shift", h.SetLockTime)

	return &testEnv{db: db, router: r, verifier: verifier, revoker: revoker, broker: broker, svc: svc}
}

func (e *testEnv) token(t *testing.T, uid string) string {
	t.Helper()
	tok, err := e.verifier.Issue(uid, uid+"@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

// do sends a request as uid ("" for anonymous) with an optional JSON body.
func (e *testEnv) do(t *testing.T, method, path, uid string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, base+path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, uid))
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
	if got := decode[ErrorResponse](t, w).Code; got != code {
		t.Fatalf("code=%q want %q", got, code)
	}
}

func shiftPath(rid, shift string) string {
	return "/restaurants/" + rid + "/checklists/" + testDate + "/" + shift
}
