package models

import "time"

// Genre labels movies. Deleting a genre detaches it from its movies.
type Genre struct {
	ID     uint    `gorm:"primaryKey"`
	Name   string  `gorm:"size:50;uniqueIndex;not null"`
	Movies []Movie `gorm:"many2many:movie_genres;constraint:OnDelete:CASCADE"`
}

func (g *Genre) LabelID() uint            { return g.ID }
func (g *Genre) LabelName() string        { return g.Name }
func (g *Genre) SetLabelName(name string) { g.Name = name }

type Movie struct {
	ID          uint      `gorm:"primaryKey"`
	Title       string    `gorm:"size:200;not null;index"`
	Description string    `gorm:"type:text"`
	ReleaseYear *int
	PosterURL   *string   `gorm:"size:500"`
	Rating      *float64  `gorm:"type:decimal(2,1)"`
	Genres      []Genre   `gorm:"many2many:movie_genres;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `gorm:"<-:create"`

	Watchers []Watchlist `gorm:"constraint:OnDelete:CASCADE"`
}

// Watchlist is the (user, movie) join row; at most one per pair.
type Watchlist struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_watchlist_user_movie"`
	MovieID   uint `gorm:"not null;uniqueIndex:idx_watchlist_user_movie;index"`
	CreatedAt time.Time
}
