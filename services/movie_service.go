package services

import (
	"context"
	"math"
	"strings"

	"moviebox-restful/models"
	"moviebox-restful/policy"
	"moviebox-restful/repositories"
	"moviebox-restful/validation"

	"github.com/goccy/go-json"
)

// MovieInput is the writable movie representation. Absent fields are left
// unchanged on partial updates.
type MovieInput struct {
	Title       *string  `json:"title" validate:"omitempty,max=200" description:"Title, at most 200 characters"`
	Description *string  `json:"description" description:"Free text"`
	ReleaseYear *int     `json:"release_year" validate:"omitempty,gte=0,lte=9999" description:"Year of release"`
	PosterURL   *string  `json:"poster_url" validate:"omitempty,url,max=500" description:"Poster image URL; empty clears it"`
	Rating      *float64 `json:"rating" validate:"omitempty,gte=0,lte=9.9" description:"0.0 to 9.9, one decimal place"`
	GenreIDs    []uint   `json:"genre_ids" description:"Replaces the movie's genres when present"`

	// nulled holds the nullable keys the body set to null.
	nulled map[string]bool `json:"-"`
}

var nullableMovieFields = []string{"release_year", "poster_url", "rating"}

// UnmarshalJSON decodes the body and remembers which nullable fields were
// sent as null, since a nil pointer alone cannot tell null from absent.
func (in *MovieInput) UnmarshalJSON(data []byte) error {
	type plain MovieInput
	if err := json.Unmarshal(data, (*plain)(in)); err != nil {
		return err
	}
	var keys map[string]interface{}
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	in.nulled = nil
	for _, key := range nullableMovieFields {
		if v, ok := keys[key]; ok && v == nil {
			if in.nulled == nil {
				in.nulled = make(map[string]bool, len(nullableMovieFields))
			}
			in.nulled[key] = true
		}
	}
	return nil
}

// Nulled reports whether key was sent as an explicit null.
func (in *MovieInput) Nulled(key string) bool { return in.nulled[key] }

// MovieList is one page of movies plus the viewer's watchlist membership.
type MovieList struct {
	Movies      []models.Movie
	Total       int64
	Watchlisted repositories.MembershipSet
}

type MovieService interface {
	List(ctx context.Context, viewer policy.Actor, filter repositories.MovieFilter, page repositories.Page) (*MovieList, error)
	Get(ctx context.Context, viewer policy.Actor, id uint) (*models.Movie, repositories.MembershipSet, error)
	Create(ctx context.Context, actor policy.Actor, input *MovieInput) (*models.Movie, error)
	Update(ctx context.Context, actor policy.Actor, id uint, input *MovieInput, partial bool) (*models.Movie, repositories.MembershipSet, error)
	Delete(ctx context.Context, actor policy.Actor, id uint) error
	// AddToWatchlist and RemoveFromWatchlist report the resulting membership.
	AddToWatchlist(ctx context.Context, actor policy.Actor, id uint) (bool, error)
	RemoveFromWatchlist(ctx context.Context, actor policy.Actor, id uint) (bool, error)
	Watchlist(ctx context.Context, actor policy.Actor) (*MovieList, error)
	Stats(ctx context.Context) ([]repositories.LabelCount, error)
}

type movieService struct {
	movies    repositories.MovieRepository
	relations repositories.RelationRepository
	policy    policy.Policy
}

var _ MovieService = (*movieService)(nil)

func NewMovieService(movies repositories.MovieRepository, relations repositories.RelationRepository, p policy.Policy) MovieService {
	return &movieService{movies: movies, relations: relations, policy: p}
}

func movieIDs(movies []models.Movie) []uint {
	ids := make([]uint, len(movies))
	for i := range movies {
		ids[i] = movies[i].ID
	}
	return ids
}

func (s *movieService) List(ctx context.Context, viewer policy.Actor, filter repositories.MovieFilter, page repositories.Page) (*MovieList, error) {
	movies, total, err := s.movies.List(ctx, filter, page)
	if err != nil {
		return nil, translate(err, "movie")
	}
	set, err := s.relations.InWatchlist(ctx, viewer.UserID, movieIDs(movies))
	if err != nil {
		return nil, translate(err, "watchlist")
	}
	return &MovieList{Movies: movies, Total: total, Watchlisted: set}, nil
}

func (s *movieService) Get(ctx context.Context, viewer policy.Actor, id uint) (*models.Movie, repositories.MembershipSet, error) {
	movie, err := s.movies.FindByID(ctx, id)
	if err != nil {
		return nil, nil, translate(err, "movie")
	}
	set, err := s.relations.InWatchlist(ctx, viewer.UserID, []uint{movie.ID})
	if err != nil {
		return nil, nil, translate(err, "watchlist")
	}
	return movie, set, nil
}

func (s *movieService) Create(ctx context.Context, actor policy.Actor, input *MovieInput) (*models.Movie, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := checkWrite(s.policy, actor, policy.KindMovie, nil); err != nil {
		return nil, err
	}
	if err := validateMovieInput(input, false); err != nil {
		return nil, err
	}

	movie := &models.Movie{}
	applyMovieInput(movie, input)
	genreIDs := input.GenreIDs
	if genreIDs == nil {
		genreIDs = []uint{}
	}
	if err := s.movies.Create(ctx, movie, genreIDs); err != nil {
		return nil, translate(err, "movie")
	}
	return s.reload(ctx, movie.ID)
}

func (s *movieService) Update(ctx context.Context, actor policy.Actor, id uint, input *MovieInput, partial bool) (*models.Movie, repositories.MembershipSet, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, nil, err
	}
	movie, err := s.movies.FindByID(ctx, id)
	if err != nil {
		return nil, nil, translate(err, "movie")
	}
	if err := checkWrite(s.policy, actor, policy.KindMovie, movie); err != nil {
		return nil, nil, err
	}
	if err := validateMovieInput(input, partial); err != nil {
		return nil, nil, err
	}

	applyMovieInput(movie, input)
	if err := s.movies.Update(ctx, movie, input.GenreIDs); err != nil {
		return nil, nil, translate(err, "movie")
	}
	return s.Get(ctx, actor, movie.ID)
}

func (s *movieService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	movie, err := s.movies.FindByID(ctx, id)
	if err != nil {
		return translate(err, "movie")
	}
	if err := checkWrite(s.policy, actor, policy.KindMovie, movie); err != nil {
		return err
	}
	return translate(s.movies.Delete(ctx, movie), "movie")
}

func (s *movieService) AddToWatchlist(ctx context.Context, actor policy.Actor, id uint) (bool, error) {
	if err := s.prepareToggle(ctx, actor, id); err != nil {
		return false, err
	}
	if err := s.relations.AddToWatchlist(ctx, actor.UserID, id); err != nil {
		return false, translate(err, "watchlist")
	}
	return true, nil
}

func (s *movieService) RemoveFromWatchlist(ctx context.Context, actor policy.Actor, id uint) (bool, error) {
	if err := s.prepareToggle(ctx, actor, id); err != nil {
		return false, err
	}
	if err := s.relations.RemoveFromWatchlist(ctx, actor.UserID, id); err != nil {
		return false, translate(err, "watchlist")
	}
	return false, nil
}

func (s *movieService) prepareToggle(ctx context.Context, actor policy.Actor, id uint) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	movie, err := s.movies.FindByID(ctx, id)
	if err != nil {
		return translate(err, "movie")
	}
	return checkWrite(s.policy, actor, policy.KindWatchlist, movie)
}

func (s *movieService) Watchlist(ctx context.Context, actor policy.Actor) (*MovieList, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	movies, err := s.movies.WatchlistedBy(ctx, actor.UserID)
	if err != nil {
		return nil, translate(err, "watchlist")
	}
	set := make(repositories.MembershipSet, len(movies))
	for _, id := range movieIDs(movies) {
		set[id] = struct{}{}
	}
	return &MovieList{Movies: movies, Total: int64(len(movies)), Watchlisted: set}, nil
}

func (s *movieService) Stats(ctx context.Context) ([]repositories.LabelCount, error) {
	stats, err := s.movies.GenreStats(ctx)
	if err != nil {
		return nil, translate(err, "genre")
	}
	if stats == nil {
		stats = []repositories.LabelCount{}
	}
	return stats, nil
}

func (s *movieService) reload(ctx context.Context, id uint) (*models.Movie, error) {
	movie, err := s.movies.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "movie")
	}
	return movie, nil
}

func validateMovieInput(input *MovieInput, partial bool) error {
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		input.Title = &trimmed
	}
	if !partial && (input.Title == nil || *input.Title == "") {
		return validationError("title is required")
	}
	if partial && input.Title != nil && *input.Title == "" {
		return validationError("title may not be blank")
	}
	if err := validation.Struct(input); err != nil {
		return translate(err, "movie")
	}
	return nil
}

func applyMovieInput(movie *models.Movie, input *MovieInput) {
	if input.Title != nil {
		movie.Title = *input.Title
	}
	if input.Description != nil {
		movie.Description = *input.Description
	}
	switch {
	case input.ReleaseYear != nil:
		movie.ReleaseYear = input.ReleaseYear
	case input.Nulled("release_year"):
		movie.ReleaseYear = nil
	}
	switch {
	case input.PosterURL != nil && *input.PosterURL != "":
		movie.PosterURL = input.PosterURL
	case input.PosterURL != nil, input.Nulled("poster_url"):
		movie.PosterURL = nil
	}
	switch {
	case input.Rating != nil:
		rounded := math.Round(*input.Rating*10) / 10
		movie.Rating = &rounded
	case input.Nulled("rating"):
		movie.Rating = nil
	}
}
