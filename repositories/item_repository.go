package repositories

import (
	"context"

	"moviebox-restful/models"

	"gorm.io/gorm"
)

// ItemRepository defines Item-related database operations
type ItemRepository interface {
	List(ctx context.Context, filter ItemFilter) ([]models.Item, error)
	FindByID(ctx context.Context, id uint) (*models.Item, error)
	Create(ctx context.Context, item *models.Item, tagIDs []uint) error
	// Update saves item's columns; tagIDs replaces the tag set unless nil.
	Update(ctx context.Context, item *models.Item, tagIDs []uint) error
	Delete(ctx context.Context, item *models.Item) error
	FavoritedBy(ctx context.Context, userID uint) ([]models.Item, error)
	TagStats(ctx context.Context) ([]LabelCount, error)
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func preloadTags(db *gorm.DB) *gorm.DB {
	return db.Preload("Tags", func(db *gorm.DB) *gorm.DB {
		return db.Order("tags.name ASC")
	})
}

func (r *itemRepository) List(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	scopes := append(filter.Scopes(), ItemOrder, preloadTags)
	return FindAllMatching[models.Item](ctx, r.db, scopes...)
}

func (r *itemRepository) FindByID(ctx context.Context, id uint) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Scopes(preloadTags).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item, tagIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := loadByIDs[models.Tag](tx, tagIDs)
		if err != nil {
			return err
		}
		item.Tags = tags
		return tx.Omit("Tags.*").Create(item).Error
	})
}

func (r *itemRepository) Update(ctx context.Context, item *models.Item, tagIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "FavoritedBy").Save(item).Error; err != nil {
			return err
		}
		if tagIDs == nil {
			return nil
		}
		tags, err := loadByIDs[models.Tag](tx, tagIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(item).Association("Tags").Replace(tags); err != nil {
			return err
		}
		item.Tags = tags
		return nil
	})
}

func (r *itemRepository) Delete(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(item).Association("Tags").Clear(); err != nil {
			return err
		}
		if _, err := DeleteWhere[models.Favorite](ctx, tx, "item_id = ?", item.ID); err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
}

func (r *itemRepository) FavoritedBy(ctx context.Context, userID uint) ([]models.Item, error) {
	favorited := func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN favorites ON favorites.item_id = items.id").
			Where("favorites.user_id = ?", userID).
			Order("favorites.created_at DESC, favorites.id DESC")
	}
	return FindAllMatching[models.Item](ctx, r.db, favorited, preloadTags)
}

func (r *itemRepository) TagStats(ctx context.Context) ([]LabelCount, error) {
	var stats []LabelCount
	err := r.db.WithContext(ctx).Model(&models.Tag{}).
		Select("tags.name AS name, COUNT(item_tags.item_id) AS count").
		Joins("LEFT JOIN item_tags ON item_tags.tag_id = tags.id").
		Group("tags.id, tags.name").
		Order("tags.name ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
