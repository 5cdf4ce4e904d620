// Package handlers exposes the REST and websocket endpoints of the checklist
// API. Handlers are transport-thin: they read path, query and body input,
// call the services with the authenticated principal, and translate results
// and sentinel errors into HTTP responses.
package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/saltesefalcon/manager-checklists/internal/auth"
	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/http/middleware"
	"github.com/saltesefalcon/manager-checklists/internal/services"
	"github.com/saltesefalcon/manager-checklists/internal/utils"
)

//
// Service contracts (context-aware)
//

// ChecklistService covers the lifecycle of a shift checklist.
type ChecklistService interface {
	Snapshot(ctx context.Context, p *services.Principal, restaurantID, date string, shift domain.ShiftKind) (*services.ShiftSnapshot, error)
	Current(ctx context.Context, p *services.Principal, restaurantID, date string, shift domain.ShiftKind) (*services.ShiftSnapshot, error)
	Toggle(ctx context.Context, p *services.Principal, restaurantID, date string, shift domain.ShiftKind, itemID string) (*services.ItemView, error)
	Submit(ctx context.Context, p *services.Principal, restaurantID, date string, shift domain.ShiftKind) (*services.ShiftSnapshot, error)
	Reseed(ctx context.Context, p *services.Principal, restaurantID, date string, shift domain.ShiftKind) (*services.ShiftSnapshot, error)
	Reset(ctx context.Context, p *services.Principal, restaurantID, date string, shift domain.ShiftKind) (*services.ShiftSnapshot, error)
	ListDays(ctx context.Context, p *services.Principal, restaurantID string, page, pageSize int) ([]services.DaySummary, int64, error)
	Export(ctx context.Context, p *services.Principal, restaurantID, date string, shift domain.ShiftKind) (*bytes.Buffer, string, error)
}

// AccessService answers which restaurants a principal may open.
type AccessService interface {
	Visible(ctx context.Context, p *services.Principal) ([]services.RestaurantView, error)
	Restaurant(ctx context.Context, p *services.Principal, restaurantID string) (*services.RestaurantView, error)
}

// TemplateService edits and saves duty templates.
type TemplateService interface {
	Save(ctx context.Context, p *services.Principal, restaurantID string, shift domain.ShiftKind, duties []services.Duty) ([]services.Duty, error)
	Edit(ctx context.Context, p *services.Principal, restaurantID string, shift domain.ShiftKind, ops []services.EditOp) ([]services.Duty, error)
	BulkReplace(ctx context.Context, p *services.Principal, restaurantID string, shift domain.ShiftKind, text string) ([]services.Duty, error)
}

// LockTimeService stores per-shift lock times.
type LockTimeService interface {
	Set(ctx context.Context, p *services.Principal, restaurantID string, shift domain.ShiftKind, hhmm string) error
}

// SettingsService assembles the admin settings view.
type SettingsService interface {
	Get(ctx context.Context, p *services.Principal, restaurantID string) (*services.Settings, error)
}

// Subscriber delivers change signals for a topic until cancel is called.
type Subscriber interface {
	Subscribe(topic string) (<-chan struct{}, func())
}

// IdempotencyRecorder stores a completed operation so retries with the same
// key are served as replays.
type IdempotencyRecorder func(ctx context.Context, userID, scope, key string, status int) error

//
// Handler wiring
//

// Options carries the dependencies of Handlers.
type Options struct {
	Checklists ChecklistService
	Access     AccessService
	Templates  TemplateService
	LockTimes  LockTimeService
	Settings   SettingsService
	Broker     Subscriber
	Revoker    auth.Revoker

	// RecordIdempotency is optional; without it submit keys are not stored.
	RecordIdempotency IdempotencyRecorder

	// PingInterval paces websocket keepalives. Defaults to 30s.
	PingInterval time.Duration
	// CheckOrigin vets websocket upgrades. nil keeps gorilla's same-origin
	// check.
	CheckOrigin func(r *http.Request) bool
}

// Handlers groups every API endpoint.
type Handlers struct {
	checklists ChecklistService
	access     AccessService
	templates  TemplateService
	lockTimes  LockTimeService
	settings   SettingsService
	broker     Subscriber
	revoker    auth.Revoker
	recordIdem IdempotencyRecorder

	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

// New constructs Handlers from opts.
func New(opts Options) *Handlers {
	ping := opts.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &Handlers{
		checklists:   opts.Checklists,
		access:       opts.Access,
		templates:    opts.Templates,
		lockTimes:    opts.LockTimes,
		settings:     opts.Settings,
		broker:       opts.Broker,
		revoker:      opts.Revoker,
		recordIdem:   opts.RecordIdempotency,
		pingInterval: ping,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
}

//
// Shared DTOs and helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	pages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}

// clampPagination parses and bounds the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)
}

// principal returns the actor resolved by the auth middleware. Routes are
// only mounted behind Authenticate, so nil means a wiring bug; the services
// treat a nil principal as having no access.
func principal(c *gin.Context) *services.Principal {
	return middleware.PrincipalFrom(c)
}

// shiftParams reads the :restId, :date and :shift path parameters. Date and
// shift are validated by the services.
func shiftParams(c *gin.Context) (restaurantID, date string, shift domain.ShiftKind) {
	return c.Param("restId"), c.Param("date"), domain.ShiftKind(c.Param("shift"))
}
