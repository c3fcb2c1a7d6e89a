package models

import "time"

// User is an account. Deleting a user removes its profile, items, watchlist
// entries, favorites and sessions.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:150;uniqueIndex;not null"`
	Password  string `gorm:"not null" json:"-"` // bcrypt hash
	Email     string `gorm:"size:254"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Profile   *Profile    `gorm:"constraint:OnDelete:CASCADE"`
	Items     []Item      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Watchlist []Watchlist `gorm:"constraint:OnDelete:CASCADE"`
	Favorites []Favorite  `gorm:"constraint:OnDelete:CASCADE"`
	Sessions  []Session   `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile is created in the same transaction as its User and never on its own.
type Profile struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      uint   `gorm:"uniqueIndex;not null"`
	DisplayName string `gorm:"size:150"`
	AvatarURL   string `gorm:"size:500"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
