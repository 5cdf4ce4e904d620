// Package domain defines the persistence models for restaurants, user
// profiles, duty templates, lock times, and the daily checklist records built
// from them. These types are mapped with GORM and form the core data layer of
// the checklist service.
package domain

import "time"

// Restaurant is created out-of-band by an administrator and referenced by
// every other record through its string key.
type Restaurant struct {
	ID        string    `json:"id"         gorm:"type:varchar(64);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Restaurant.
func (Restaurant) TableName() string { return "restaurants" }

// UserProfile is the authorization record for an authenticated identity.
// Identities without a profile are authenticated but not allowed in.
//
// Fields:
//   - UID: identity provider subject.
//   - DisplayName: name stamped on check-offs and submissions (may be empty).
//   - Role: "admin" or "manager".
//   - Restaurants: per-restaurant permission flags.
type UserProfile struct {
	UID         string    `json:"uid"          gorm:"type:varchar(128);primaryKey"`
	Email       string    `json:"email"        gorm:"type:varchar(255);not null;default:''"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(255);not null;default:''"`
	Role        Role      `json:"role"         gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Restaurants []UserRestaurant `json:"restaurants,omitempty" gorm:"foreignKey:UserID;references:UID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string { return "user_profiles" }

// UserRestaurant is one entry of a profile's restaurant map. Allowed=false
// entries are kept but grant nothing.
type UserRestaurant struct {
	UserID       string `json:"-"             gorm:"type:varchar(128);primaryKey"`
	RestaurantID string `json:"restaurant_id" gorm:"type:varchar(64);primaryKey"`
	Allowed      bool   `json:"allowed"       gorm:"not null"`
}

// TableName returns the database table name for UserRestaurant.
func (UserRestaurant) TableName() string { return "user_restaurants" }

// DutyTemplate is one entry of a restaurant's ordered duty list for a shift.
// Position is the only identity a duty has; lists are always rewritten whole.
type DutyTemplate struct {
	RestaurantID string    `json:"-"        gorm:"type:varchar(64);primaryKey"`
	Shift        ShiftKind `json:"-"        gorm:"type:varchar(8);primaryKey"`
	Position     int       `json:"-"        gorm:"primaryKey;autoIncrement:false"`
	Title        string    `json:"title"    gorm:"type:varchar(255);not null"`
	Priority     bool      `json:"priority" gorm:"not null"`
}

// TableName returns the database table name for DutyTemplate.
func (DutyTemplate) TableName() string { return "duty_templates" }

// LockTime is the HH:mm time after which an external process may lock a
// still-open shift.
type LockTime struct {
	RestaurantID string    `gorm:"type:varchar(64);primaryKey"`
	Shift        ShiftKind `gorm:"type:varchar(8);primaryKey"`
	Time         string    `gorm:"type:varchar(5);not null"`
	UpdatedAt    time.Time
}

// TableName returns the database table name for LockTime.
func (LockTime) TableName() string { return "lock_times" }
