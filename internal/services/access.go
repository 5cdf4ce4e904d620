// Package services – AccessPolicy
//
// AccessPolicy turns an authenticated identity into a Principal by loading
// its user profile. Every checklist and settings operation takes a Principal
// and checks it before touching storage.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/saltesefalcon/manager-checklists/internal/auth"
	"github.com/saltesefalcon/manager-checklists/internal/bizdate"
	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/repo"
	"github.com/saltesefalcon/manager-checklists/internal/sysutil"
)

// fallbackName is stamped when neither a display name nor an email is known.
const fallbackName = "Manager"

// Principal is the resolved actor of a request.
type Principal struct {
	UID         string
	Email       string
	Name        string
	Role        domain.Role
	Restaurants map[string]bool
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool { return p != nil && p.Role == domain.RoleAdmin }

// CanAccess reports whether the principal may act on restaurantID.
func (p *Principal) CanAccess(restaurantID string) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	return p.Restaurants[restaurantID]
}

// RequireAdmin returns ErrPermissionDenied unless the principal is an admin.
func (p *Principal) RequireAdmin() error {
	if !p.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}

// RestaurantIDs returns the permitted restaurant IDs in sorted order.
func (p *Principal) RestaurantIDs() []string {
	out := make([]string, 0, len(p.Restaurants))
	for id, ok := range p.Restaurants {
		if ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// RestaurantView is a restaurant as presented to a principal.
type RestaurantView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BusinessDate string `json:"business_date,omitempty"`
}

// AccessPolicy resolves identities and restaurant visibility.
type AccessPolicy struct {
	DB   *gorm.DB
	Calc *bizdate.Calculator
	Now  func() time.Time
}

// NewAccessPolicy constructs an AccessPolicy using the wall clock.
func NewAccessPolicy(db *gorm.DB, calc *bizdate.Calculator) *AccessPolicy {
	return &AccessPolicy{DB: db, Calc: calc, Now: time.Now}
}

// Resolve loads the profile for id and builds the Principal.
func (a *AccessPolicy) Resolve(ctx context.Context, id *auth.Identity) (*Principal, error) {
	tr := otel.Tracer("services/AccessPolicy")
	ctx, span := tr.Start(ctx, "Resolve", trace.WithAttributes(attribute.String("user.id", id.UID)))
	defer span.End()

	prof, err := repo.GetProfile(ctx, a.DB, id.UID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	p := &Principal{
		UID:         prof.UID,
		Email:       strings.TrimSpace(sysutil.FirstNonEmpty(prof.Email, id.Email)),
		Role:        prof.Role,
		Restaurants: make(map[string]bool, len(prof.Restaurants)),
	}
	p.Name = strings.TrimSpace(sysutil.FirstNonEmpty(prof.DisplayName, p.Email, fallbackName))
	for _, r := range prof.Restaurants {
		if r.Allowed {
			p.Restaurants[r.RestaurantID] = true
		}
	}
	return p, nil
}

// Visible lists the restaurants the principal can open. Admins see every
// restaurant; managers see those whose flag is set.
func (a *AccessPolicy) Visible(ctx context.Context, p *Principal) ([]RestaurantView, error) {
	var (
		rows []domain.Restaurant
		err  error
	)
	if p.IsAdmin() {
		rows, err = repo.ListAllRestaurants(ctx, a.DB)
	} else {
		rows, err = repo.ListRestaurants(ctx, a.DB, p.RestaurantIDs())
	}
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	out := make([]RestaurantView, 0, len(rows))
	for _, r := range rows {
		out = append(out, RestaurantView{ID: r.ID, Name: DisplayName(r)})
	}
	return out, nil
}

// Restaurant returns one restaurant with the current business date, which
// clients use as the default date.
func (a *AccessPolicy) Restaurant(ctx context.Context, p *Principal, restaurantID string) (*RestaurantView, error) {
	if !p.CanAccess(restaurantID) {
		return nil, ErrPermissionDenied
	}
	r, err := requireRestaurant(ctx, a.DB, restaurantID)
	if err != nil {
		return nil, err
	}
	return &RestaurantView{
		ID:           r.ID,
		Name:         DisplayName(*r),
		BusinessDate: a.Calc.BusinessDate(a.Now()),
	}, nil
}

// DisplayName returns the restaurant's name, or its title-cased key when the
// name was never set.
func DisplayName(r domain.Restaurant) string {
	if n := strings.TrimSpace(r.Name); n != "" {
		return n
	}
	return cases.Title(language.English).String(strings.ReplaceAll(r.ID, "-", " "))
}

// requireRestaurant maps a missing restaurant to ErrRestaurantNotFound.
func requireRestaurant(ctx context.Context, db *gorm.DB, restaurantID string) (*domain.Restaurant, error) {
	r, err := repo.GetRestaurant(ctx, db, restaurantID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load restaurant: %w", err)
	}
	return r, nil
}
