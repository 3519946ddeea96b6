package inventory

import (
	"context"
	"fmt"

	"github.com/kegdev/hearth/internal/model"
)

// Tags and categories are not kept in the offline cache. Reading them
// offline fails with ErrOfflineNoCache.

func (s *Service) Tags(ctx context.Context) ([]model.Tag, error) {
	if !s.cache.IsOnline() {
		return nil, ErrOfflineNoCache
	}
	tags, err := s.remote.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tags: %w", err)
	}
	return tags, nil
}

func (s *Service) CreateTag(ctx context.Context, in model.TagInput) (model.Tag, error) {
	if err := s.requireOnline(); err != nil {
		return model.Tag{}, err
	}
	tag, err := s.remote.CreateTag(ctx, in)
	if err != nil {
		return model.Tag{}, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}

// UpdateTag drops every item snapshot, since a rename rewrites the tag on
// items in any container.
func (s *Service) UpdateTag(ctx context.Context, tagID string, in model.TagInput) (model.Tag, error) {
	if err := s.requireOnline(); err != nil {
		return model.Tag{}, err
	}
	tag, err := s.remote.UpdateTag(ctx, tagID, in)
	if err != nil {
		return model.Tag{}, fmt.Errorf("update tag: %w", err)
	}
	if in.Name != nil {
		s.cache.ClearAllItemsCaches()
	}
	return tag, nil
}

func (s *Service) DeleteTag(ctx context.Context, tagID string) error {
	if err := s.requireOnline(); err != nil {
		return err
	}
	if err := s.remote.DeleteTag(ctx, tagID); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	s.cache.ClearAllItemsCaches()
	return nil
}

func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	if !s.cache.IsOnline() {
		return nil, ErrOfflineNoCache
	}
	categories, err := s.remote.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return categories, nil
}

// CategoryTree returns the user's categories nested under their parents.
func (s *Service) CategoryTree(ctx context.Context) ([]model.CategoryNode, error) {
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return model.BuildCategoryTree(categories), nil
}

func (s *Service) CreateCategory(ctx context.Context, in model.CategoryInput) (model.Category, error) {
	if err := s.requireOnline(); err != nil {
		return model.Category{}, err
	}
	category, err := s.remote.CreateCategory(ctx, in)
	if err != nil {
		return model.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *Service) UpdateCategory(ctx context.Context, categoryID string, in model.CategoryInput) (model.Category, error) {
	if err := s.requireOnline(); err != nil {
		return model.Category{}, err
	}
	category, err := s.remote.UpdateCategory(ctx, categoryID, in)
	if err != nil {
		return model.Category{}, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// DeleteCategory drops every item snapshot, since the server clears the
// category from items in any container.
func (s *Service) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := s.requireOnline(); err != nil {
		return err
	}
	if err := s.remote.DeleteCategory(ctx, categoryID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.cache.ClearAllItemsCaches()
	return nil
}

func (s *Service) CreateCategoriesFromTemplate(ctx context.Context, template string) ([]model.Category, error) {
	if err := s.requireOnline(); err != nil {
		return nil, err
	}
	categories, err := s.remote.CreateCategoriesFromTemplate(ctx, template)
	if err != nil {
		return nil, fmt.Errorf("create categories from template: %w", err)
	}
	return categories, nil
}
