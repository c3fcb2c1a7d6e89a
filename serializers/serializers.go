// Package serializers renders models as API representations. Fields that
// depend on who is asking are computed from an explicit Viewer.
package serializers

import (
	"time"

	"moviebox-restful/models"
	"moviebox-restful/policy"
	"moviebox-restful/repositories"
)

// Viewer is the identity a representation is rendered for, with the
// relation rows it holds among the rendered targets.
type Viewer struct {
	Actor       policy.Actor
	Watchlisted repositories.MembershipSet
	Favorited   repositories.MembershipSet
}

type LabelResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type MovieResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ReleaseYear *int            `json:"release_year"`
	PosterURL   *string         `json:"poster_url"`
	Rating      *float64        `json:"rating"`
	Genres      []LabelResponse `json:"genres"`
	InWatchlist bool            `json:"in_watchlist"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ItemResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tags        []LabelResponse `json:"tags"`
	IsFavorited bool            `json:"is_favorited"`
	CreatedAt   time.Time       `json:"created_at"`
}

type UserResponse struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Label renders a genre or tag.
func Label(l models.Labeled) LabelResponse {
	return LabelResponse{ID: l.LabelID(), Name: l.LabelName()}
}

func Genres(genres []models.Genre) []LabelResponse {
	out := make([]LabelResponse, len(genres))
	for i := range genres {
		out[i] = Label(&genres[i])
	}
	return out
}

func Tags(tags []models.Tag) []LabelResponse {
	out := make([]LabelResponse, len(tags))
	for i := range tags {
		out[i] = Label(&tags[i])
	}
	return out
}

// Movie renders m; in_watchlist is false for anonymous viewers.
func Movie(m *models.Movie, v Viewer) MovieResponse {
	return MovieResponse{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		ReleaseYear: m.ReleaseYear,
		PosterURL:   m.PosterURL,
		Rating:      m.Rating,
		Genres:      Genres(m.Genres),
		InWatchlist: !v.Actor.Anonymous() && v.Watchlisted.Has(m.ID),
		CreatedAt:   m.CreatedAt,
	}
}

func Movies(movies []models.Movie, v Viewer) []MovieResponse {
	out := make([]MovieResponse, len(movies))
	for i := range movies {
		out[i] = Movie(&movies[i], v)
	}
	return out
}

// Item renders it; is_favorited is false for anonymous viewers.
func Item(it *models.Item, v Viewer) ItemResponse {
	return ItemResponse{
		ID:          it.ID,
		Title:       it.Title,
		Description: it.Description,
		Tags:        Tags(it.Tags),
		IsFavorited: !v.Actor.Anonymous() && v.Favorited.Has(it.ID),
		CreatedAt:   it.CreatedAt,
	}
}

func Items(items []models.Item, v Viewer) []ItemResponse {
	out := make([]ItemResponse, len(items))
	for i := range items {
		out[i] = Item(&items[i], v)
	}
	return out
}

// User renders u without its credential hash.
func User(u *models.User) UserResponse {
	resp := UserResponse{ID: u.ID, Username: u.Username, Email: u.Email}
	if u.Profile != nil {
		resp.DisplayName = u.Profile.DisplayName
		resp.AvatarURL = u.Profile.AvatarURL
	}
	return resp
}
