package repositories

import (
	"context"

	"moviebox-restful/models"

	"gorm.io/gorm"
)

// MovieRepository defines Movie-related database operations
type MovieRepository interface {
	List(ctx context.Context, filter MovieFilter, page Page) ([]models.Movie, int64, error)
	FindByID(ctx context.Context, id uint) (*models.Movie, error)
	// Create inserts movie and links it to genreIDs.
	Create(ctx context.Context, movie *models.Movie, genreIDs []uint) error
	// Update saves movie's columns; genreIDs replaces the genre set unless nil.
	Update(ctx context.Context, movie *models.Movie, genreIDs []uint) error
	Delete(ctx context.Context, movie *models.Movie) error
	WatchlistedBy(ctx context.Context, userID uint) ([]models.Movie, error)
	GenreStats(ctx context.Context) ([]LabelCount, error)
}

type movieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) MovieRepository {
	return &movieRepository{db: db}
}

func preloadGenres(db *gorm.DB) *gorm.DB {
	return db.Preload("Genres", func(db *gorm.DB) *gorm.DB {
		return db.Order("genres.name ASC")
	})
}

func (r *movieRepository) List(ctx context.Context, filter MovieFilter, page Page) ([]models.Movie, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Movie{}).Scopes(filter.Scopes()...).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	scopes := append(filter.Scopes(), MovieOrder(filter.Sort), Paginate(page), preloadGenres)
	movies, err := FindAllMatching[models.Movie](ctx, r.db, scopes...)
	if err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

func (r *movieRepository) FindByID(ctx context.Context, id uint) (*models.Movie, error) {
	var movie models.Movie
	if err := r.db.WithContext(ctx).Scopes(preloadGenres).First(&movie, id).Error; err != nil {
		return nil, err
	}
	return &movie, nil
}

func (r *movieRepository) Create(ctx context.Context, movie *models.Movie, genreIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genres, err := loadByIDs[models.Genre](tx, genreIDs)
		if err != nil {
			return err
		}
		movie.Genres = genres
		return tx.Omit("Genres.*").Create(movie).Error
	})
}

func (r *movieRepository) Update(ctx context.Context, movie *models.Movie, genreIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Genres", "Watchers").Save(movie).Error; err != nil {
			return err
		}
		if genreIDs == nil {
			return nil
		}
		genres, err := loadByIDs[models.Genre](tx, genreIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(movie).Association("Genres").Replace(genres); err != nil {
			return err
		}
		movie.Genres = genres
		return nil
	})
}

func (r *movieRepository) Delete(ctx context.Context, movie *models.Movie) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(movie).Association("Genres").Clear(); err != nil {
			return err
		}
		if _, err := DeleteWhere[models.Watchlist](ctx, tx, "movie_id = ?", movie.ID); err != nil {
			return err
		}
		return tx.Delete(movie).Error
	})
}

func (r *movieRepository) WatchlistedBy(ctx context.Context, userID uint) ([]models.Movie, error) {
	inWatchlist := func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN watchlists ON watchlists.movie_id = movies.id").
			Where("watchlists.user_id = ?", userID).
			Order("watchlists.created_at DESC, watchlists.id DESC")
	}
	return FindAllMatching[models.Movie](ctx, r.db, inWatchlist, preloadGenres)
}

func (r *movieRepository) GenreStats(ctx context.Context) ([]LabelCount, error) {
	var stats []LabelCount
	err := r.db.WithContext(ctx).Model(&models.Genre{}).
		Select("genres.name AS name, COUNT(movie_genres.movie_id) AS count").
		Joins("LEFT JOIN movie_genres ON movie_genres.genre_id = genres.id").
		Group("genres.id, genres.name").
		Order("genres.name ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
