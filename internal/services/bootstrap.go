package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/repo"
)

// Bootstrap describes records provisioned at startup so a fresh database is
// usable without a separate admin tool.
type Bootstrap struct {
	// Restaurants maps restaurant ID to display name. An empty name keeps
	// the derived display name.
	Restaurants map[string]string
	AdminUID    string
	AdminEmail  string
}

// Empty reports whether there is nothing to provision.
func (b Bootstrap) Empty() bool {
	return len(b.Restaurants) == 0 && strings.TrimSpace(b.AdminUID) == ""
}

// ApplyBootstrap upserts the configured restaurants and makes sure the
// configured admin has a profile with the admin role. Existing restaurant
// permission flags on that profile are kept.
func ApplyBootstrap(ctx context.Context, db *gorm.DB, b Bootstrap) error {
	log := zerolog.Ctx(ctx)

	ids := make([]string, 0, len(b.Restaurants))
	for id := range b.Restaurants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := repo.UpsertRestaurant(ctx, db, id, b.Restaurants[id]); err != nil {
			return fmt.Errorf("bootstrap restaurant %q: %w", id, err)
		}
	}
	if len(ids) > 0 {
		log.Info().Strs("restaurants", ids).Msg("bootstrap restaurants applied")
	}

	uid := strings.TrimSpace(b.AdminUID)
	if uid == "" {
		return nil
	}
	prof, err := repo.GetProfile(ctx, db, uid)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		prof = &domain.UserProfile{UID: uid}
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	case prof.Role == domain.RoleAdmin && (b.AdminEmail == "" || prof.Email == b.AdminEmail):
		return nil
	}
	prof.Role = domain.RoleAdmin
	if b.AdminEmail != "" {
		prof.Email = b.AdminEmail
	}
	if err := repo.SaveProfile(ctx, db, prof); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Info().Str("uid", uid).Msg("bootstrap admin applied")
	return nil
}
