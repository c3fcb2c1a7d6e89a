package services

import (
	"context"
	"strings"

	"moviebox-restful/models"
	"moviebox-restful/policy"
	"moviebox-restful/repositories"
	"moviebox-restful/validation"
)

// LabelInput is the writable genre/tag representation.
type LabelInput struct {
	Name *string `json:"name" validate:"omitempty,max=50" description:"Unique name, at most 50 characters"`
}

// LabelStore is the storage LabelService needs.
type LabelStore[T repositories.Label] interface {
	List(ctx context.Context) ([]T, error)
	FindByID(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, label *T) error
	Update(ctx context.Context, label *T) error
	Delete(ctx context.Context, label *T) error
}

type labelPtr[T any] interface {
	*T
	models.Labeled
}

// LabelService serves genres and tags, which differ only in table and noun.
type LabelService[T repositories.Label, PT labelPtr[T]] struct {
	repo   LabelStore[T]
	policy policy.Policy
	kind   policy.Kind
	noun   string
}

func NewGenreService(repo LabelStore[models.Genre], p policy.Policy) *LabelService[models.Genre, *models.Genre] {
	return &LabelService[models.Genre, *models.Genre]{repo: repo, policy: p, kind: policy.KindGenre, noun: "genre"}
}

func NewTagService(repo LabelStore[models.Tag], p policy.Policy) *LabelService[models.Tag, *models.Tag] {
	return &LabelService[models.Tag, *models.Tag]{repo: repo, policy: p, kind: policy.KindTag, noun: "tag"}
}

func (s *LabelService[T, PT]) Noun() string { return s.noun }

func (s *LabelService[T, PT]) List(ctx context.Context) ([]T, error) {
	labels, err := s.repo.List(ctx)
	if err != nil {
		return nil, translate(err, s.noun)
	}
	return labels, nil
}

func (s *LabelService[T, PT]) Get(ctx context.Context, id uint) (*T, error) {
	label, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, s.noun)
	}
	return label, nil
}

func (s *LabelService[T, PT]) Create(ctx context.Context, actor policy.Actor, input *LabelInput) (*T, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	if err := checkWrite(s.policy, actor, s.kind, nil); err != nil {
		return nil, err
	}
	name, err := labelName(input, false)
	if err != nil {
		return nil, err
	}
	label := new(T)
	PT(label).SetLabelName(name)
	if err := s.repo.Create(ctx, label); err != nil {
		return nil, translate(err, s.noun)
	}
	return label, nil
}

func (s *LabelService[T, PT]) Update(ctx context.Context, actor policy.Actor, id uint, input *LabelInput, partial bool) (*T, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	label, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, s.noun)
	}
	if err := checkWrite(s.policy, actor, s.kind, label); err != nil {
		return nil, err
	}
	name, err := labelName(input, partial)
	if err != nil {
		return nil, err
	}
	if input.Name == nil {
		return label, nil
	}
	PT(label).SetLabelName(name)
	if err := s.repo.Update(ctx, label); err != nil {
		return nil, translate(err, s.noun)
	}
	return label, nil
}

func (s *LabelService[T, PT]) Delete(ctx context.Context, actor policy.Actor, id uint) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	label, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translate(err, s.noun)
	}
	if err := checkWrite(s.policy, actor, s.kind, label); err != nil {
		return err
	}
	return translate(s.repo.Delete(ctx, label), s.noun)
}

func labelName(input *LabelInput, partial bool) (string, error) {
	if input.Name == nil {
		if partial {
			return "", nil
		}
		return "", validationError("name is required")
	}
	name := strings.TrimSpace(*input.Name)
	if name == "" {
		return "", validationError("name may not be blank")
	}
	input.Name = &name
	if err := validation.Struct(input); err != nil {
		return "", translate(err, "name")
	}
	return name, nil
}
