package repositories

import (
	"strings"

	"gorm.io/gorm"
)

// MovieFilter holds the listing parameters for movies. Zero values mean no filter.
type MovieFilter struct {
	Genre string
	Query string
	Sort  string
}

// Movie sort keys. Anything else orders newest first.
const (
	SortRating = "rating"
	SortYear   = "year"
	SortTitle  = "title"
)

// Scopes returns the filtering scopes; ordering is separate so counts can reuse them.
func (f MovieFilter) Scopes() []Scope {
	var scopes []Scope
	if genre := strings.TrimSpace(f.Genre); genre != "" {
		scopes = append(scopes, GenreNamed(genre))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		scopes = append(scopes, TitleContains(q))
	}
	return scopes
}

// GenreNamed keeps movies with a genre whose name equals name, ignoring case
// as far as the database's LOWER does.
func GenreNamed(name string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"movies.id IN (SELECT mg.movie_id FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id WHERE LOWER(g.name) = LOWER(?))",
			name,
		)
	}
}

// TitleContains keeps movies whose title contains q, ignoring case.
// % and _ in q match themselves. Both sides are folded by the database so
// they agree on which letters have a case.
func TitleContains(q string) Scope {
	pattern := "%" + escapeLike(q) + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(movies.title) LIKE LOWER(?) ESCAPE '!'", pattern)
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// MovieOrder sorts by the given key. Missing ratings and years sort last.
func MovieOrder(sort string) Scope {
	var order string
	switch strings.TrimSpace(sort) {
	case SortRating:
		order = "movies.rating IS NULL, movies.rating DESC, movies.id DESC"
	case SortYear:
		order = "movies.release_year IS NULL, movies.release_year DESC, movies.id DESC"
	case SortTitle:
		order = "movies.title ASC, movies.id DESC"
	default:
		order = "movies.id DESC"
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	}
}

// ItemFilter holds the listing parameters for items.
type ItemFilter struct {
	Tag string
}

func (f ItemFilter) Scopes() []Scope {
	var scopes []Scope
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		scopes = append(scopes, TagNamed(tag))
	}
	return scopes
}

// TagNamed keeps items with a tag whose name equals name, ignoring case.
func TagNamed(name string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"items.id IN (SELECT it.item_id FROM item_tags it JOIN tags t ON t.id = it.tag_id WHERE LOWER(t.name) = LOWER(?))",
			name,
		)
	}
}

// ItemOrder lists items oldest first.
func ItemOrder(db *gorm.DB) *gorm.DB {
	return db.Order("items.created_at ASC, items.id ASC")
}
