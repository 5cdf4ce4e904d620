// Package services – ChecklistService
//
// ChecklistService owns the lifecycle of a shift checklist: it seeds the
// checklist from the duty template on first open, flips items while the shift
// is unlocked, locks it on submit, and lets admins wipe and reseed it.
//
// Every write runs in one transaction and publishes the shift topic after
// commit so watchers re-read a consistent snapshot. Lock enforcement is done
// twice: a service-level check for a clear error, and a guard inside the
// UPDATE statement itself so a racing writer cannot slip past.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/saltesefalcon/manager-checklists/internal/bizdate"
	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/realtime"
	"github.com/saltesefalcon/manager-checklists/internal/repo"
	"github.com/saltesefalcon/manager-checklists/internal/utils"
)

// Publisher is notified after a shift's state changed.
type Publisher interface {
	Publish(topic string)
}

// ItemView is a checklist item as returned to clients.
type ItemView struct {
	ID              string     `json:"id"`
	Order           int        `json:"order"`
	Title           string     `json:"title"`
	Priority        bool       `json:"priority"`
	Checked         bool       `json:"checked"`
	CheckedByUserID *string    `json:"checked_by_uid,omitempty"`
	CheckedByName   *string    `json:"checked_by_name,omitempty"`
	CheckedAt       *time.Time `json:"checked_at,omitempty"`
}

// ShiftSnapshot is the full state of one shift checklist.
type ShiftSnapshot struct {
	RestaurantID      string           `json:"restaurant_id"`
	RestaurantName    string           `json:"restaurant_name"`
	BusinessDate      string           `json:"business_date"`
	Shift             domain.ShiftKind `json:"shift"`
	Locked            bool             `json:"locked"`
	CreatedAt         time.Time        `json:"created_at"`
	ExpireAt          time.Time        `json:"expire_at"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	CompletedByUserID *string          `json:"completed_by_uid,omitempty"`
	CompletedByName   *string          `json:"completed_by_name,omitempty"`
	LockTime          string           `json:"lock_time"`
	LockDueAt         *time.Time       `json:"lock_due_at,omitempty"`
	Total             int              `json:"total"`
	Done              int              `json:"done"`
	Items             []ItemView       `json:"items"`
}

// ShiftSummary is a shift's header and progress within a day listing.
type ShiftSummary struct {
	Shift           domain.ShiftKind `json:"shift"`
	Locked          bool             `json:"locked"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CompletedByName *string          `json:"completed_by_name,omitempty"`
	Total           int64            `json:"total"`
	Done            int64            `json:"done"`
}

// DaySummary is one ChecklistDay with its seeded shifts.
type DaySummary struct {
	BusinessDate string         `json:"business_date"`
	ExpireAt     time.Time      `json:"expire_at"`
	Shifts       []ShiftSummary `json:"shifts"`
}

// ChecklistService coordinates checklist persistence and lock state.
type ChecklistService struct {
	DB            *gorm.DB
	Calc          *bizdate.Calculator
	LockTimes     *LockTimes
	Broker        Publisher
	RetentionDays int
	Now           func() time.Time
}

// NewChecklistService constructs a ChecklistService with the wall clock and
// default retention.
func NewChecklistService(db *gorm.DB, calc *bizdate.Calculator, broker Publisher) *ChecklistService {
	return &ChecklistService{
		DB:            db,
		Calc:          calc,
		LockTimes:     &LockTimes{DB: db},
		Broker:        broker,
		RetentionDays: bizdate.DefaultRetentionDays,
		Now:           time.Now,
	}
}

func (s *ChecklistService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *ChecklistService) publish(restaurantID, date string, shift domain.ShiftKind) {
	if s.Broker != nil {
		s.Broker.Publish(realtime.ShiftTopic(restaurantID, date, string(shift)))
	}
}

// authorize validates the key and the principal's access to the restaurant.
func (s *ChecklistService) authorize(p *Principal, restaurantID, date string, shift domain.ShiftKind) error {
	if !p.CanAccess(restaurantID) {
		return ErrPermissionDenied
	}
	if _, err := bizdate.ParseDate(date); err != nil {
		return err
	}
	if k, err := domain.ParseShiftKind(string(shift)); err != nil || k != shift {
		return ErrInvalidShift
	}
	return nil
}

func (s *ChecklistService) span(ctx context.Context, name, restaurantID, date string, shift domain.ShiftKind, p *Principal) (context.Context, trace.Span) {
	uid := ""
	if p != nil {
		uid = p.UID
	}
	return otel.Tracer("services/ChecklistService").Start(ctx, name,
		trace.WithAttributes(
			attribute.String("restaurant.id", restaurantID),
			attribute.String("business_date", date),
			attribute.String("shift", string(shift)),
			attribute.String("user.id", uid),
		),
	)
}

// Seed creates the shift checklist from the current template unless the
// shift already exists, in which case nothing changes. It reports whether
// this call created the shift. Concurrent seeders race on the shift key and
// exactly one of them inserts items.
func (s *ChecklistService) Seed(ctx context.Context, p *Principal, restaurantID, date string, shift domain.ShiftKind) (bool, error) {
	ctx, span := s.span(ctx, "Seed", restaurantID, date, shift, p)
	defer span.End()

	if err := s.authorize(p, restaurantID, date, shift); err != nil {
		return false, err
	}
	if _, err := requireRestaurant(ctx, s.DB, restaurantID); err != nil {
		return false, err
	}
	expireAt, err := bizdate.ExpiryFor(date, s.RetentionDays)
	if err != nil {
		return false, err
	}

	var created bool
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.EnsureDay(ctx, tx, restaurantID, date, expireAt, s.now()); err != nil {
			return err
		}
		sh := &domain.ChecklistShift{
			RestaurantID: restaurantID,
			BusinessDate: date,
			Shift:        shift,
			CreatedAt:    s.now(),
			ExpireAt:     expireAt,
		}
		ok, err := repo.CreateShiftIfAbsent(ctx, tx, sh)
		if err != nil || !ok {
			return err
		}
		created = true
		if err := s.createItems(ctx, tx, restaurantID, date, shift, expireAt); err != nil {
			return err
		}
		return repo.TouchDay(ctx, tx, restaurantID, date, s.now())
	})
	if err != nil {
		return false, fmt.Errorf("seed checklist: %w", err)
	}

	if created {
		seedsTotal.WithLabelValues("created").Inc()
		zerolog.Ctx(ctx).Info().
			Str("restaurant_id", restaurantID).
			Str("business_date", date).
			Str("shift", string(shift)).
			Str("actor", p.UID).
			Msg("checklist seeded")
		s.publish(restaurantID, date, shift)
	} else {
		seedsTotal.WithLabelValues("existing").Inc()
	}
	return created, nil
}

// createItems snapshots the template into fresh unchecked items.
func (s *ChecklistService) createItems(ctx context.Context, tx *gorm.DB, restaurantID, date string, shift domain.ShiftKind, expireAt time.Time) error {
	duties, err := repo.ListDuties(ctx, tx, restaurantID, shift)
	if err != nil {
		return err
	}
	items := make([]domain.ChecklistItem, len(duties))
	for i, d := range duties {
		items[i] = domain.ChecklistItem{
			ID:           uuid.NewString(),
			RestaurantID: restaurantID,
			BusinessDate: date,
			Shift:        shift,
			Order:        i,
			Title:        d.Title,
			Priority:     d.Priority,
			ExpireAt:     expireAt,
		}
	}
	return repo.CreateItems(ctx, tx, items)
}

// Snapshot seeds the shift if needed and returns its full state.
func (s *ChecklistService) Snapshot(ctx context.Context, p *Principal, restaurantID, date string, shift domain.ShiftKind) (*ShiftSnapshot, error) {
	if err := s.authorize(p, restaurantID, date, shift); err != nil {
		return nil, err
	}
	_, err := repo.GetShift(ctx, s.DB, restaurantID, date, shift)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		if _, err := s.Seed(ctx, p, restaurantID, date, shift); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("load shift: %w", err)
	}
	return s.load(ctx, restaurantID, date, shift)
}

// Current returns the shift's state without seeding it. A shift that was
// never seeded yields ErrShiftNotFound.
func (s *ChecklistService) Current(ctx context.Context, p *Principal, restaurantID, date string, shift domain.ShiftKind) (*ShiftSnapshot, error) {
	if err := s.authorize(p, restaurantID, date, shift); err != nil {
		return nil, err
	}
	return s.load(ctx, restaurantID, date, shift)
}

func (s *ChecklistService) load(ctx context.Context, restaurantID, date string, shift domain.ShiftKind) (*ShiftSnapshot, error) {
	r, err := requireRestaurant(ctx, s.DB, restaurantID)
	if err != nil {
		return nil, err
	}

	var (
		sh    *domain.ChecklistShift
		items []domain.ChecklistItem
	)
	// One read transaction so header and items come from the same state.
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sh, err = repo.GetShift(ctx, tx, restaurantID, date, shift); err != nil {
			return err
		}
		items, err = repo.ListItems(ctx, tx, restaurantID, date, shift)
		return err
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrShiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checklist: %w", err)
	}

	times, err := s.LockTimes.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	snap := &ShiftSnapshot{
		RestaurantID:      r.ID,
		RestaurantName:    DisplayName(*r),
		BusinessDate:      date,
		Shift:             shift,
		Locked:            sh.Locked,
		CreatedAt:         sh.CreatedAt,
		ExpireAt:          sh.ExpireAt,
		CompletedAt:       sh.CompletedAt,
		CompletedByUserID: sh.CompletedByUserID,
		CompletedByName:   sh.CompletedByName,
		LockTime:          times[shift],
		Total:             len(items),
		Items:             make([]ItemView, len(items)),
	}
	if due, err := bizdate.LockDeadline(date, snap.LockTime, s.Calc.Location, s.Calc.CutoffHour); err == nil {
		due = due.UTC()
		snap.LockDueAt = &due
	}
	for i, it := range items {
		snap.Items[i] = itemView(it)
		if it.Checked {
			snap.Done++
		}
	}
	return snap, nil
}

func itemView(it domain.ChecklistItem) ItemView {
	return ItemView{
		ID:              it.ID,
		Order:           it.Order,
		Title:           it.Title,
		Priority:        it.Priority,
		Checked:         it.Checked,
		CheckedByUserID: it.CheckedByUserID,
		CheckedByName:   it.CheckedByName,
		CheckedAt:       it.CheckedAt,
	}
}

// Reseed wipes the shift and rebuilds it, unlocked, from the current
// template. Admin only. Readers observe either the old or the new state.
func (s *ChecklistService) Reseed(ctx context.Context, p *Principal, restaurantID, date string, shift domain.ShiftKind) (*ShiftSnapshot, error) {
	return s.rebuild(ctx, "Reseed", p, restaurantID, date, shift)
}

// Reset unlocks a shift by wiping and reseeding it. Admin only. Completion
// stamps and check-offs are discarded.
func (s *ChecklistService) Reset(ctx context.Context, p *Principal, restaurantID, date string, shift domain.ShiftKind) (*ShiftSnapshot, error) {
	return s.rebuild(ctx, "Reset", p, restaurantID, date, shift)
}

func (s *ChecklistService) rebuild(ctx context.Context, op string, p *Principal, restaurantID, date string, shift domain.ShiftKind) (*ShiftSnapshot, error) {
	ctx, span := s.span(ctx, op, restaurantID, date, shift, p)
	defer span.End()

	if err := s.authorize(p, restaurantID, date, shift); err != nil {
		return nil, err
	}
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	if _, err := requireRestaurant(ctx, s.DB, restaurantID); err != nil {
		return nil, err
	}
	expireAt, err := bizdate.ExpiryFor(date, s.RetentionDays)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.StampDay(ctx, tx, restaurantID, date, expireAt, s.now()); err != nil {
			return err
		}
		if err := repo.DeleteShift(ctx, tx, restaurantID, date, shift); err != nil {
			return err
		}
		sh := &domain.ChecklistShift{
			RestaurantID: restaurantID,
			BusinessDate: date,
			Shift:        shift,
			CreatedAt:    s.now(),
			ExpireAt:     expireAt,
		}
		if _, err := repo.CreateShiftIfAbsent(ctx, tx, sh); err != nil {
			return err
		}
		return s.createItems(ctx, tx, restaurantID, date, shift, expireAt)
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild checklist: %w", err)
	}

	resetsTotal.Inc()
	zerolog.Ctx(ctx).Info().
		Str("op", op).
		Str("restaurant_id", restaurantID).
		Str("business_date", date).
		Str("shift", string(shift)).
		Str("actor", p.UID).
		Msg("checklist rebuilt")
	s.publish(restaurantID, date, shift)
	return s.load(ctx, restaurantID, date, shift)
}

// Toggle flips one item's checked state. Checking stamps the principal as
// the checker; unchecking clears the stamp. Refused with ErrShiftLocked once
// the shift is locked.
func (s *ChecklistService) Toggle(ctx context.Context, p *Principal, restaurantID, date string, shift domain.ShiftKind, itemID string) (*ItemView, error) {
	ctx, span := s.span(ctx, "Toggle", restaurantID, date, shift, p)
	defer span.End()
	span.SetAttributes(attribute.String("item.id", itemID))

	if err := s.authorize(p, restaurantID, date, shift); err != nil {
		return nil, err
	}

	sh, err := repo.GetShift(ctx, s.DB, restaurantID, date, shift)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load shift: %w", err)
	}
	if sh.Locked {
		return nil, ErrShiftLocked
	}

	it, err := repo.GetItem(ctx, s.DB, restaurantID, date, shift, itemID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}

	next := *it
	next.Checked = !it.Checked
	if next.Checked {
		now := s.now()
		uid, name := p.UID, p.Name
		next.CheckedByUserID, next.CheckedByName, next.CheckedAt = &uid, &name, &now
	} else {
		next.CheckedByUserID, next.CheckedByName, next.CheckedAt = nil, nil, nil
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateItemCheck(ctx, tx, &next); err != nil {
			return err
		}
		return repo.TouchDay(ctx, tx, restaurantID, date, s.now())
	})
	if errors.Is(err, repo.ErrGuardRejected) {
		// Locked between our read and the write, or the item was reseeded away.
		if cur, gerr := repo.GetShift(ctx, s.DB, restaurantID, date, shift); gerr == nil && cur.Locked {
			return nil, ErrShiftLocked
		}
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("toggle item: %w", err)
	}

	state := "unchecked"
	if next.Checked {
		state = "checked"
	}
	togglesTotal.WithLabelValues(state).Inc()
	s.publish(restaurantID, date, shift)

	v := itemView(next)
	return &v, nil
}

// Submit locks the shift and stamps who completed it and when. The
// transition happens at most once; later submits get ErrAlreadyLocked.
func (s *ChecklistService) Submit(ctx context.Context, p *Principal, restaurantID, date string, shift domain.ShiftKind) (*ShiftSnapshot, error) {
	ctx, span := s.span(ctx, "Submit", restaurantID, date, shift, p)
	defer span.End()

	if err := s.authorize(p, restaurantID, date, shift); err != nil {
		return nil, err
	}

	sh, err := repo.GetShift(ctx, s.DB, restaurantID, date, shift)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrShiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load shift: %w", err)
	}
	if sh.Locked {
		submitsTotal.WithLabelValues("already_locked").Inc()
		return nil, ErrAlreadyLocked
	}

	now := s.now()
	uid, name := p.UID, p.Name
	next := *sh
	next.Locked = true
	next.CompletedAt, next.CompletedByUserID, next.CompletedByName = &now, &uid, &name

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.LockShift(ctx, tx, &next); err != nil {
			return err
		}
		return repo.TouchDay(ctx, tx, restaurantID, date, s.now())
	})
	if errors.Is(err, repo.ErrGuardRejected) {
		submitsTotal.WithLabelValues("already_locked").Inc()
		return nil, ErrAlreadyLocked
	}
	if err != nil {
		return nil, fmt.Errorf("submit shift: %w", err)
	}

	submitsTotal.WithLabelValues("locked").Inc()
	zerolog.Ctx(ctx).Info().
		Str("restaurant_id", restaurantID).
		Str("business_date", date).
		Str("shift", string(shift)).
		Str("actor", p.UID).
		Msg("shift submitted")
	s.publish(restaurantID, date, shift)
	return s.load(ctx, restaurantID, date, shift)
}

// ListDays returns a page of the restaurant's checklist days, most recent
// first, with per-shift progress, plus the total day count.
func (s *ChecklistService) ListDays(ctx context.Context, p *Principal, restaurantID string, page, pageSize int) ([]DaySummary, int64, error) {
	tr := otel.Tracer("services/ChecklistService")
	ctx, span := tr.Start(ctx, "ListDays",
		trace.WithAttributes(
			attribute.String("restaurant.id", restaurantID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if !p.CanAccess(restaurantID) {
		return nil, 0, ErrPermissionDenied
	}
	page, pageSize = utils.ClampPage(page, pageSize)

	total, err := repo.CountDays(ctx, s.DB, restaurantID)
	if err != nil {
		return nil, 0, fmt.Errorf("count days: %w", err)
	}
	if total == 0 {
		return []DaySummary{}, 0, nil
	}

	days, err := repo.ListDaysPage(ctx, s.DB, restaurantID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list days: %w", err)
	}
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.BusinessDate
	}
	shifts, err := repo.ListShiftsForDates(ctx, s.DB, restaurantID, dates)
	if err != nil {
		return nil, 0, fmt.Errorf("list shifts: %w", err)
	}
	counts, err := repo.CountItemsForDates(ctx, s.DB, restaurantID, dates)
	if err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	type key struct {
		date  string
		shift domain.ShiftKind
	}
	progress := make(map[key]repo.ShiftItemCount, len(counts))
	for _, c := range counts {
		progress[key{c.BusinessDate, c.Shift}] = c
	}
	byDate := make(map[string]map[domain.ShiftKind]domain.ChecklistShift, len(days))
	for _, sh := range shifts {
		if byDate[sh.BusinessDate] == nil {
			byDate[sh.BusinessDate] = make(map[domain.ShiftKind]domain.ChecklistShift)
		}
		byDate[sh.BusinessDate][sh.Shift] = sh
	}

	out := make([]DaySummary, len(days))
	for i, d := range days {
		out[i] = DaySummary{BusinessDate: d.BusinessDate, ExpireAt: d.ExpireAt, Shifts: []ShiftSummary{}}
		for _, k := range domain.ShiftKinds {
			sh, ok := byDate[d.BusinessDate][k]
			if !ok {
				continue
			}
			c := progress[key{d.BusinessDate, k}]
			out[i].Shifts = append(out[i].Shifts, ShiftSummary{
				Shift:           k,
				Locked:          sh.Locked,
				CompletedAt:     sh.CompletedAt,
				CompletedByName: sh.CompletedByName,
				Total:           c.Total,
				Done:            c.Done,
			})
		}
	}
	return out, total, nil
}
