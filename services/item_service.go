package services

import (
	"context"
	"strings"

	"moviebox-restful/models"
	"moviebox-restful/policy"
	"moviebox-restful/repositories"
	"moviebox-restful/validation"
)

// ItemInput is the writable item representation.
type ItemInput struct {
	Title       *string `json:"title" validate:"omitempty,max=120" description:"Title, at most 120 characters"`
	Description *string `json:"description" description:"Free text"`
	TagIDs      []uint  `json:"tag_ids" description:"Replaces the item's tags when present"`
}

// ItemList is a listing plus the viewer's favorites among it.
type ItemList struct {
	Items     []models.Item
	Favorited repositories.MembershipSet
}

type ItemService interface {
	List(ctx context.Context, viewer policy.Actor, filter repositories.ItemFilter) (*ItemList, error)
	Get(ctx context.Context, viewer policy.Actor, id uint) (*models.Item, repositories.MembershipSet, error)
	// Create makes actor the owner of the new item.
	Create(ctx context.Context, actor policy.Actor, input *ItemInput) (*models.Item, error)
	Update(ctx context.Context, actor policy.Actor, id uint, input *ItemInput, partial bool) (*models.Item, repositories.MembershipSet, error)
	Delete(ctx context.Context, actor policy.Actor, id uint) error
	Favorite(ctx context.Context, actor policy.Actor, id uint) (bool, error)
	Unfavorite(ctx context.Context, actor policy.Actor, id uint) (bool, error)
	Favorites(ctx context.Context, actor policy.Actor) (*ItemList, error)
	Stats(ctx context.Context) ([]repositories.LabelCount, error)
}

type itemService struct {
	items     repositories.ItemRepository
	relations repositories.RelationRepository
	policy    policy.Policy
}

var _ ItemService = (*itemService)(nil)

func NewItemService(items repositories.ItemRepository, relations repositories.RelationRepository, p policy.Policy) ItemService {
	return &itemService{items: items, relations: relations, policy: p}
}

func itemIDs(items []models.Item) []uint {
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}

func (s *itemService) List(ctx context.Context, viewer policy.Actor, filter repositories.ItemFilter) (*ItemList, error) {
	items, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, translate(err, "item")
	}
	set, err := s.relations.Favorited(ctx, viewer.UserID, itemIDs(items))
	if err != nil {
		return nil, translate(err, "favorite")
	}
	return &ItemList{Items: items, Favorited: set}, nil
}

func (s *itemService) Get(ctx context.Context, viewer policy.Actor, id uint) (*models.Item, repositories.MembershipSet, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, nil, translate(err, "item")
	}
	set, err := s.relations.Favorited(ctx, viewer.UserID, []uint{item.ID})
	if err != nil {
		return nil, nil, translate(err, "favorite")
	}
	return item, set, nil
}

func (s *itemService) Create(ctx context.Context, actor policy.Actor, input *ItemInput) (*models.Item, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	item := &models.Item{OwnerID: actor.UserID}
	if err := checkWrite(s.policy, actor, policy.KindItem, item); err != nil {
		return nil, err
	}
	if err := validateItemInput(input, false); err != nil {
		return nil, err
	}

	applyItemInput(item, input)
	tagIDs := input.TagIDs
	if tagIDs == nil {
		tagIDs = []uint{}
	}
	if err := s.items.Create(ctx, item, tagIDs); err != nil {
		return nil, translate(err, "item")
	}
	created, _, err := s.Get(ctx, actor, item.ID)
	return created, err
}

func (s *itemService) Update(ctx context.Context, actor policy.Actor, id uint, input *ItemInput, partial bool) (*models.Item, repositories.MembershipSet, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, nil, err
	}
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return nil, nil, translate(err, "item")
	}
	if err := checkWrite(s.policy, actor, policy.KindItem, item); err != nil {
		return nil, nil, err
	}
	if err := validateItemInput(input, partial); err != nil {
		return nil, nil, err
	}

	applyItemInput(item, input)
	if err := s.items.Update(ctx, item, input.TagIDs); err != nil {
		return nil, nil, translate(err, "item")
	}
	return s.Get(ctx, actor, item.ID)
}

func (s *itemService) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		return translate(err, "item")
	}
	if err := checkWrite(s.policy, actor, policy.KindItem, item); err != nil {
		return err
	}
	return translate(s.items.Delete(ctx, item), "item")
}

func (s *itemService) Favorite(ctx context.Context, actor policy.Actor, id uint) (bool, error) {
	if err := s.prepareToggle(ctx, actor, id); err != nil {
		return false, err
	}
	if err := s.relations.AddFavorite(ctx, actor.UserID, id); err != nil {
		return false, translate(err, "favorite")
	}
	return true, nil
}

func (s *itemService) Unfavorite(ctx context.Context, actor policy.Actor, id uint) (bool, error) {
	if err := s.prepareToggle(ctx, actor, id); err != nil {
		return false, err
	}
	if err := s.relations.RemoveFavorite(ctx, actor.UserID, id); err != nil {
		return false, translate(err, "favorite")
	}
	return false, nil
}

// prepareToggle checks the favorite relation, not the item: anyone
// signed in may favorite an item they do not own.
func (s *itemService) prepareToggle(ctx context.Context, actor policy.Actor, id uint) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	if _, err := s.items.FindByID(ctx, id); err != nil {
		return translate(err, "item")
	}
	return checkWrite(s.policy, actor, policy.KindFavorite, nil)
}

func (s *itemService) Favorites(ctx context.Context, actor policy.Actor) (*ItemList, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	items, err := s.items.FavoritedBy(ctx, actor.UserID)
	if err != nil {
		return nil, translate(err, "favorite")
	}
	set := make(repositories.MembershipSet, len(items))
	for _, id := range itemIDs(items) {
		set[id] = struct{}{}
	}
	return &ItemList{Items: items, Favorited: set}, nil
}

func (s *itemService) Stats(ctx context.Context) ([]repositories.LabelCount, error) {
	stats, err := s.items.TagStats(ctx)
	if err != nil {
		return nil, translate(err, "tag")
	}
	if stats == nil {
		stats = []repositories.LabelCount{}
	}
	return stats, nil
}

func validateItemInput(input *ItemInput, partial bool) error {
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
		return translate(err, "item")
	}
	return nil
}

func applyItemInput(item *models.Item, input *ItemInput) {
	if input.Title != nil {
		item.Title = *input.Title
	}
	if input.Description != nil {
		item.Description = *input.Description
	}
}
