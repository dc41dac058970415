package catalog

import (
	"context"
	"strings"

	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CategoryService handles category-related business operations
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	events       shared.EventPublisher
	logger       *zap.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categoryRepo catalog.CategoryRepository, events shared.EventPublisher, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		events:       events,
		logger:       logger,
	}
}

// Create creates a new category. Name is required; an omitted slug is derived from it.
func (s *CategoryService) Create(ctx context.Context, organizationID uuid.UUID, input CategoryInput) (*CategoryResult, error) {
	var name, slug, description string
	if input.Name != nil {
		name = *input.Name
	}
	if input.Slug != nil {
		slug = strings.TrimSpace(*input.Slug)
	}
	if input.Description != nil {
		description = *input.Description
	}
	if slug == "" {
		slug = catalog.Slugify(name)
	}

	category, err := catalog.NewCategory(organizationID, name, slug, description)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, organizationID, category.Slug, nil); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.publish(ctx, category)

	s.logger.Info("Category created",
		zap.String("category_id", category.ID.String()),
		zap.String("organization_id", organizationID.String()),
		zap.String("slug", category.Slug))
	result := ToCategoryResult(category)
	return &result, nil
}

// Get returns a category of the organization
func (s *CategoryService) Get(ctx context.Context, organizationID, id uuid.UUID) (*CategoryResult, error) {
	category, err := s.categoryRepo.FindByIDForOrganization(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	result := ToCategoryResult(category)
	return &result, nil
}

// List returns all categories of the organization ordered by name
func (s *CategoryService) List(ctx context.Context, organizationID uuid.UUID) ([]CategoryResult, error) {
	categories, err := s.categoryRepo.List(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return ToCategoryResults(categories), nil
}

// Update applies a partial update to a category
func (s *CategoryService) Update(ctx context.Context, organizationID, id uuid.UUID, input CategoryInput) (*CategoryResult, error) {
	category, err := s.categoryRepo.FindByIDForOrganization(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	if input.Slug != nil {
		slug := strings.TrimSpace(*input.Slug)
		input.Slug = &slug
		if slug != category.Slug {
			if err := s.ensureSlugFree(ctx, organizationID, slug, &category.ID); err != nil {
				return nil, err
			}
		}
	}
	if err := category.Update(input.Name, input.Slug, input.Description); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.publish(ctx, category)

	result := ToCategoryResult(category)
	return &result, nil
}

// Delete tombstones a category. Products keep their other categories.
func (s *CategoryService) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	category, err := s.categoryRepo.FindByIDForOrganization(ctx, organizationID, id)
	if err != nil {
		return err
	}
	category.Delete()
	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return err
	}
	s.publish(ctx, category)
	return nil
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, organizationID uuid.UUID, slug string, excludeID *uuid.UUID) error {
	if err := catalog.ValidateSlug(slug); err != nil {
		return err
	}
	exists, err := s.categoryRepo.ExistsBySlug(ctx, organizationID, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return catalog.ErrSlugTaken
	}
	return nil
}

func (s *CategoryService) publish(ctx context.Context, category *catalog.Category) {
	if err := shared.PublishAndClear(ctx, s.events, category); err != nil {
		s.logger.Warn("Failed to publish category events", zap.Error(err))
	}
}
