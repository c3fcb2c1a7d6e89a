package repositories

import (
	"context"

	"moviebox-restful/models"

	"gorm.io/gorm"
)

// Label constrains LabelRepository to the name-only tables.
type Label interface {
	models.Genre | models.Tag
}

// LabelRepository stores genres or tags. Deleting one detaches it from
// whatever it labels through the named many2many association.
type LabelRepository[T Label] struct {
	db          *gorm.DB
	association string
}

func NewGenreRepository(db *gorm.DB) *LabelRepository[models.Genre] {
	return &LabelRepository[models.Genre]{db: db, association: "Movies"}
}

func NewTagRepository(db *gorm.DB) *LabelRepository[models.Tag] {
	return &LabelRepository[models.Tag]{db: db, association: "Items"}
}

// List returns every label ordered by name.
func (r *LabelRepository[T]) List(ctx context.Context) ([]T, error) {
	return FindAllMatching[T](ctx, r.db, func(db *gorm.DB) *gorm.DB {
		return db.Order("name ASC, id ASC")
	})
}

func (r *LabelRepository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	var label T
	if err := r.db.WithContext(ctx).First(&label, id).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

func (r *LabelRepository[T]) Create(ctx context.Context, label *T) error {
	return r.db.WithContext(ctx).Create(label).Error
}

func (r *LabelRepository[T]) Update(ctx context.Context, label *T) error {
	return r.db.WithContext(ctx).Omit(r.association).Save(label).Error
}

func (r *LabelRepository[T]) Delete(ctx context.Context, label *T) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(label).Association(r.association).Clear(); err != nil {
			return err
		}
		return tx.Delete(label).Error
	})
}
