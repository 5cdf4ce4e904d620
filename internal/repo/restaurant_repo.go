// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file covers restaurants and the user profiles that
// gate access to them.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
)

// GetRestaurant fetches a restaurant by ID, or ErrNotFound.
func GetRestaurant(ctx context.Context, db *gorm.DB, id string) (*domain.Restaurant, error) {
	var r domain.Restaurant
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRestaurants returns the restaurants whose IDs are in ids, ordered by ID.
// IDs without a restaurant row are silently skipped.
func ListRestaurants(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Restaurant, error) {
	out := []domain.Restaurant{}
	if len(ids) == 0 {
		return out, nil
	}
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// UpsertRestaurant creates the restaurant or renames it if it exists.
func UpsertRestaurant(ctx context.Context, db *gorm.DB, id, name string) (*domain.Restaurant, error) {
	now := time.Now().UTC()
	r := &domain.Restaurant{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(r).Error
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetProfile fetches a user profile with its restaurant flags, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, uid string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := db.WithContext(ctx).
		Preload("Restaurants").
		Where("uid = ?", uid).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile writes a profile and replaces its restaurant flags in one
// transaction.
func SaveProfile(ctx context.Context, db *gorm.DB, p *domain.UserProfile) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flags := p.Restaurants
		p.Restaurants = nil
		defer func() { p.Restaurants = flags }()

		if err := tx.Save(p).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", p.UID).Delete(&domain.UserRestaurant{}).Error; err != nil {
			return err
		}
		for i := range flags {
			flags[i].UserID = p.UID
		}
		if len(flags) == 0 {
			return nil
		}
		return tx.Create(&flags).Error
	})
}

// ListAllRestaurants returns every restaurant ordered by ID.
func ListAllRestaurants(ctx context.Context, db *gorm.DB) ([]domain.Restaurant, error) {
	out := []domain.Restaurant{}
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}
