// Package services – LockTimes and restaurant settings
//
// Lock times are saved immediately on change; there is no draft. They are
// advisory: the service reports when a shift becomes eligible for an
// automatic lock but never locks anything on a timer.
package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/saltesefalcon/manager-checklists/internal/bizdate"
	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/repo"
)

// LockTimes reads and writes per-shift lock times.
type LockTimes struct {
	DB *gorm.DB
}

// Get returns the lock time of every shift kind, filling defaults for kinds
// never configured.
func (l *LockTimes) Get(ctx context.Context, restaurantID string) (map[domain.ShiftKind]string, error) {
	rows, err := repo.ListLockTimes(ctx, l.DB, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("load lock times: %w", err)
	}
	out := make(map[domain.ShiftKind]string, len(domain.ShiftKinds))
	for k, v := range domain.DefaultLockTimes {
		out[k] = v
	}
	for _, r := range rows {
		out[r.Shift] = r.Time
	}
	return out, nil
}

// Set validates hhmm and persists it for shift. Admin only.
func (l *LockTimes) Set(ctx context.Context, p *Principal, restaurantID string, shift domain.ShiftKind, hhmm string) error {
	if err := p.RequireAdmin(); err != nil {
		return err
	}
	if _, _, err := bizdate.ParseLockTime(hhmm); err != nil {
		return ErrInvalidLockTime
	}
	if _, err := requireRestaurant(ctx, l.DB, restaurantID); err != nil {
		return err
	}
	if err := repo.UpsertLockTime(ctx, l.DB, restaurantID, shift, hhmm); err != nil {
		return fmt.Errorf("save lock time: %w", err)
	}
	return nil
}

// ShiftSettings is the configuration of one shift kind.
type ShiftSettings struct {
	Shift    domain.ShiftKind `json:"shift"`
	LockTime string           `json:"lock_time"`
	Duties   []Duty           `json:"duties"`
}

// Settings is everything an admin edits for a restaurant.
type Settings struct {
	Restaurant RestaurantView  `json:"restaurant"`
	Shifts     []ShiftSettings `json:"shifts"`
}

// SettingsService assembles the settings view.
type SettingsService struct {
	DB        *gorm.DB
	Templates *TemplateStore
	LockTimes *LockTimes
}

// Get returns templates and lock times of every shift kind. Admin only.
func (s *SettingsService) Get(ctx context.Context, p *Principal, restaurantID string) (*Settings, error) {
	if err := p.RequireAdmin(); err != nil {
		return nil, err
	}
	r, err := requireRestaurant(ctx, s.DB, restaurantID)
	if err != nil {
		return nil, err
	}
	times, err := s.LockTimes.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	out := &Settings{Restaurant: RestaurantView{ID: r.ID, Name: DisplayName(*r)}}
	for _, k := range domain.ShiftKinds {
		d, err := s.Templates.Load(ctx, p, restaurantID, k)
		if err != nil {
			return nil, err
		}
		out.Shifts = append(out.Shifts, ShiftSettings{Shift: k, LockTime: times[k], Duties: d.Duties()})
	}
	return out, nil
}
