package repositories

import (
	"context"

	"moviebox-restful/models"

	"gorm.io/gorm"
)

// MembershipSet holds the target ids a viewer is related to.
type MembershipSet map[uint]struct{}

func (s MembershipSet) Has(id uint) bool {
	_, ok := s[id]
	return ok
}

// RelationRepository toggles the per-user join rows. Add and Remove are
// idempotent; the unique index on each join table settles concurrent adds.
type RelationRepository interface {
	AddToWatchlist(ctx context.Context, userID, movieID uint) error
	RemoveFromWatchlist(ctx context.Context, userID, movieID uint) error
	InWatchlist(ctx context.Context, userID uint, movieIDs []uint) (MembershipSet, error)

	AddFavorite(ctx context.Context, userID, itemID uint) error
	RemoveFavorite(ctx context.Context, userID, itemID uint) error
	Favorited(ctx context.Context, userID uint, itemIDs []uint) (MembershipSet, error)
}

type relationRepository struct {
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) RelationRepository {
	return &relationRepository{db: db}
}

func (r *relationRepository) AddToWatchlist(ctx context.Context, userID, movieID uint) error {
	_, err := FindOrCreate(ctx, r.db, &models.Watchlist{UserID: userID, MovieID: movieID})
	return err
}

func (r *relationRepository) RemoveFromWatchlist(ctx context.Context, userID, movieID uint) error {
	_, err := DeleteWhere[models.Watchlist](ctx, r.db, "user_id = ? AND movie_id = ?", userID, movieID)
	return err
}

func (r *relationRepository) InWatchlist(ctx context.Context, userID uint, movieIDs []uint) (MembershipSet, error) {
	return r.members(ctx, &models.Watchlist{}, "movie_id", userID, movieIDs)
}

func (r *relationRepository) AddFavorite(ctx context.Context, userID, itemID uint) error {
	_, err := FindOrCreate(ctx, r.db, &models.Favorite{UserID: userID, ItemID: itemID})
	return err
}

func (r *relationRepository) RemoveFavorite(ctx context.Context, userID, itemID uint) error {
	_, err := DeleteWhere[models.Favorite](ctx, r.db, "user_id = ? AND item_id = ?", userID, itemID)
	return err
}

func (r *relationRepository) Favorited(ctx context.Context, userID uint, itemIDs []uint) (MembershipSet, error) {
	return r.members(ctx, &models.Favorite{}, "item_id", userID, itemIDs)
}

// members answers "which of targetIDs does userID relate to" with one query.
func (r *relationRepository) members(ctx context.Context, model interface{}, column string, userID uint, targetIDs []uint) (MembershipSet, error) {
	set := MembershipSet{}
	if userID == 0 || len(targetIDs) == 0 {
		return set, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND "+column+" IN ?", userID, targetIDs).
		Pluck(column, &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
