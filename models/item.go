package models

import "time"

// Tag labels items. Deleting a tag detaches it from its items.
type Tag struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:50;uniqueIndex;not null"`
	Items []Item `gorm:"many2many:item_tags;constraint:OnDelete:CASCADE"`
}

func (t *Tag) LabelID() uint            { return t.ID }
func (t *Tag) LabelName() string        { return t.Name }
func (t *Tag) SetLabelName(name string) { t.Name = name }

// Item belongs to exactly one owner and is deleted with it.
type Item struct {
	ID          uint      `gorm:"primaryKey"`
	OwnerID     uint      `gorm:"not null;index"`
	Title       string    `gorm:"size:120;not null"`
	Description string    `gorm:"type:text"`
	Tags        []Tag     `gorm:"many2many:item_tags;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `gorm:"<-:create;index"`

	FavoritedBy []Favorite `gorm:"constraint:OnDelete:CASCADE"`
}

// OwnerKey reports the owning user for ownership checks.
func (i *Item) OwnerKey() uint { return i.OwnerID }

// Favorite is the (user, item) join row; at most one per pair.
type Favorite struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_favorite_user_item"`
	ItemID    uint `gorm:"not null;uniqueIndex:idx_favorite_user_item;index"`
	CreatedAt time.Time
}
