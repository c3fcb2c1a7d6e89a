package repositories

import (
	"context"
	"errors"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownReference is returned when a write names related rows
// (genre_ids, tag_ids) that do not exist.
var ErrUnknownReference = errors.New("unknown related id")

// Scope narrows or orders a query.
type Scope = func(*gorm.DB) *gorm.DB

// FindOrCreate inserts row unless a row violating one of its unique indexes
// already exists. Losing a concurrent insert race counts as found.
func FindOrCreate[T any](ctx context.Context, db *gorm.DB, row *T) (created bool, err error) {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteWhere removes every T matching the condition. Deleting nothing is not an error.
func DeleteWhere[T any](ctx context.Context, db *gorm.DB, query interface{}, args ...interface{}) (int64, error) {
	result := db.WithContext(ctx).Where(query, args...).Delete(new(T))
	return result.RowsAffected, result.Error
}

// FindAllMatching loads every T selected by the scopes, in the order they impose.
func FindAllMatching[T any](ctx context.Context, db *gorm.DB, scopes ...Scope) ([]T, error) {
	var rows []T
	if err := db.WithContext(ctx).Scopes(scopes...).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Page selects a window of a listing. Number starts at 1; Size <= 0 means unlimited.
type Page struct {
	Number int
	Size   int
}

// Offset is the number of rows before the page. Pages too far out to
// address saturate at math.MaxInt, which selects nothing.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// HasNext reports whether rows remain after this page out of total.
func (p Page) HasNext(total int64) bool {
	if p.Size <= 0 || total <= 0 {
		return false
	}
	pages := (total + int64(p.Size) - 1) / int64(p.Size)
	return int64(p.Number) < pages
}

// Paginate applies the page window.
func Paginate(p Page) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if p.Size <= 0 {
			return db
		}
		return db.Offset(p.Offset()).Limit(p.Size)
	}
}

// LabelCount is one row of a per-label usage count.
type LabelCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// loadByIDs fetches every T with the given ids and fails when any is missing.
func loadByIDs[T any](tx *gorm.DB, ids []uint) ([]T, error) {
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	rows := make([]T, 0, len(unique))
	if len(unique) == 0 {
		return rows, nil
	}
	if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) != len(unique) {
		return nil, ErrUnknownReference
	}
	return rows, nil
}
