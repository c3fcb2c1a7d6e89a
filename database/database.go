package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"moviebox-restful/config"
	"moviebox-restful/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured database and migrates the schema.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		if strings.Contains(cfg.DSN, "mode=memory") {
			// Every connection to a shared in-memory database sees the same
			// data, but sqlite locks the whole file on write.
			sqlDB, err := db.DB()
			if err != nil {
				return nil, err
			}
			sqlDB.SetMaxOpenConns(1)
		}
		enableSQLiteOptimizations(context.Background(), db, logger)
	}

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table plus the composite indexes gorm
// tags cannot express.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	additionalIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_movies_rating_id ON movies(rating, id)",
		"CREATE INDEX IF NOT EXISTS idx_movies_release_year_id ON movies(release_year, id)",
		"CREATE INDEX IF NOT EXISTS idx_movie_genres_genre ON movie_genres(genre_id)",
		"CREATE INDEX IF NOT EXISTS idx_item_tags_tag ON item_tags(tag_id)",
	}
	if db.Dialector.Name() != "sqlite" {
		// MySQL has no IF NOT EXISTS for indexes; gorm tags cover the essentials there.
		return nil
	}
	for _, stmt := range additionalIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			logger.Warn("Failed to create index", zap.String("sql", stmt), zap.Error(err))
		}
	}
	return nil
}

func enableSQLiteOptimizations(ctx context.Context, db *gorm.DB, logger *zap.Logger) {
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := db.WithContext(ctx).Exec(pragma).Error; err != nil {
			logger.Warn("Failed to execute pragma", zap.String("pragma", pragma), zap.Error(err))
		}
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// MemoryDSN returns a DSN for a named, private in-memory sqlite database.
// Tests pass t.Name() so parallel tests never share state.
func MemoryDSN(name string) string {
	return "file:" + unsafeName.ReplaceAllString(name, "_") + "?mode=memory&cache=shared&_foreign_keys=on"
}

// DefaultGenres are created on first start.
var DefaultGenres = []string{
	"Action", "Comedy", "Documentary", "Drama", "Horror", "Romance", "Sci-Fi", "Thriller",
}

// SeedInitialData inserts the default genres that do not exist yet.
func SeedInitialData(db *gorm.DB, logger *zap.Logger) error {
	for _, name := range DefaultGenres {
		genre := models.Genre{Name: name}
		result := db.Where(models.Genre{Name: name}).FirstOrCreate(&genre)
		if result.Error != nil {
			return fmt.Errorf("failed to seed genre %s: %w", name, result.Error)
		}
		if result.RowsAffected > 0 {
			logger.Info("Seeded genre", zap.String("name", name))
		}
	}
	return nil
}
