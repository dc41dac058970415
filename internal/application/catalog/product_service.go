package catalog

import (
	"context"
	"strings"

	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/identity"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService handles product-related business operations.
// Every operation is scoped to one organization.
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	orgRepo      identity.OrganizationRepository
	searchIndex  ProductSearchIndex
	events       shared.EventPublisher
	logger       *zap.Logger
}

// NewProductService creates a new ProductService.
// A nil searchIndex disables Search.
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	orgRepo identity.OrganizationRepository,
	searchIndex ProductSearchIndex,
	events shared.EventPublisher,
	logger *zap.Logger,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		orgRepo:      orgRepo,
		searchIndex:  searchIndex,
		events:       events,
		logger:       logger,
	}
}

// Create creates a new product. An omitted slug is derived from the name;
// a slug already used by a live product of the organization is rejected.
func (s *ProductService) Create(ctx context.Context, organizationID uuid.UUID, input CreateProductInput) (*ProductResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "CreateProduct",
		telemetry.SpanAttrOrganizationID, organizationID.String())
	defer span.End()

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = catalog.Slugify(input.Name)
	}
	if err := s.ensureSlugFree(ctx, organizationID, slug, nil); err != nil {
		return nil, err
	}

	isAvailable := true
	if input.IsAvailable != nil {
		isAvailable = *input.IsAvailable
	}
	product, err := catalog.NewProduct(organizationID, catalog.ProductDetails{
		Name:           input.Name,
		Slug:           slug,
		Description:    input.Description,
		PriceCents:     input.PriceCents,
		Currency:       input.Currency,
		ImageURLs:      input.ImageURLs,
		StockAvailable: input.StockAvailable,
		IsAvailable:    isAvailable,
		IsDigital:      input.IsDigital,
	})
	if err != nil {
		return nil, err
	}

	if len(input.CategoryIDs) > 0 {
		if err := s.assignCategories(ctx, product, input.CategoryIDs); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrProductID, product.ID.String())
	s.publish(ctx, product)

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("organization_id", organizationID.String()),
		zap.String("slug", product.Slug))
	result := ToProductResult(product)
	return &result, nil
}

// Get returns a product of the organization
func (s *ProductService) Get(ctx context.Context, organizationID, id uuid.UUID) (*ProductResult, error) {
	product, err := s.productRepo.FindByIDForOrganization(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	result := ToProductResult(product)
	return &result, nil
}

// GetBySlug returns a product of the organization by slug
func (s *ProductService) GetBySlug(ctx context.Context, organizationID uuid.UUID, slug string) (*ProductResult, error) {
	product, err := s.productRepo.FindBySlug(ctx, organizationID, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	result := ToProductResult(product)
	return &result, nil
}

// List returns a filtered page of the organization's products, newest first
func (s *ProductService) List(ctx context.Context, organizationID uuid.UUID, query ProductListQuery) (shared.Paginated[ProductResult], error) {
	page, err := s.productRepo.List(ctx, organizationID, query.toFilter())
	if err != nil {
		return shared.Paginated[ProductResult]{}, err
	}
	return shared.NewPaginated(ToProductResults(page.Items), page.Total, page.Page, page.PageSize), nil
}

// ListStoreProducts returns the available products of the organization with
// the given slug. Unavailable products are never listed, whatever the query says.
func (s *ProductService) ListStoreProducts(ctx context.Context, organizationSlug string, query ProductListQuery) (shared.Paginated[ProductResult], error) {
	org, err := s.orgRepo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(organizationSlug)))
	if err != nil {
		return shared.Paginated[ProductResult]{}, err
	}
	if !org.IsActive {
		return shared.Paginated[ProductResult]{}, identity.ErrOrganizationNotFound
	}
	available := true
	query.IsAvailable = &available
	return s.List(ctx, org.ID, query)
}

// Update applies a partial update. Passing CategoryIDs replaces the
// product's categories; an empty list removes them all.
func (s *ProductService) Update(ctx context.Context, organizationID, id uuid.UUID, input UpdateProductInput) (*ProductResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "UpdateProduct",
		telemetry.SpanAttrOrganizationID, organizationID.String(),
		telemetry.SpanAttrProductID, id.String())
	defer span.End()

	product, err := s.productRepo.FindByIDForOrganization(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	if input.Slug != nil {
		slug := strings.TrimSpace(*input.Slug)
		input.Slug = &slug
		if slug != product.Slug {
			if err := s.ensureSlugFree(ctx, organizationID, slug, &product.ID); err != nil {
				return nil, err
			}
		}
	}

	err = product.Apply(catalog.ProductChanges{
		Name:           input.Name,
		Slug:           input.Slug,
		Description:    input.Description,
		PriceCents:     input.PriceCents,
		Currency:       input.Currency,
		ImageURLs:      input.ImageURLs,
		StockAvailable: input.StockAvailable,
		IsAvailable:    input.IsAvailable,
		IsDigital:      input.IsDigital,
	})
	if err != nil {
		return nil, err
	}

	if input.CategoryIDs != nil {
		if err := s.assignCategories(ctx, product, *input.CategoryIDs); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, product)

	result := ToProductResult(product)
	return &result, nil
}

// Delete tombstones a product. Order snapshots keep referring to it.
func (s *ProductService) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	product, err := s.productRepo.FindByIDForOrganization(ctx, organizationID, id)
	if err != nil {
		return err
	}
	product.Delete()
	if err := s.productRepo.Save(ctx, product); err != nil {
		return err
	}
	s.publish(ctx, product)
	s.logger.Info("Product deleted",
		zap.String("product_id", id.String()),
		zap.String("organization_id", organizationID.String()))
	return nil
}

// Search runs a full-text query against the search index and loads the
// matching live products in relevance order
func (s *ProductService) Search(ctx context.Context, organizationID uuid.UUID, q string, page, pageSize int) (shared.Paginated[ProductResult], error) {
	if s.searchIndex == nil {
		return shared.Paginated[ProductResult]{}, ErrSearchUnavailable
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "SearchProducts",
		telemetry.SpanAttrOrganizationID, organizationID.String())
	defer span.End()

	filter := shared.Filter{Page: page, PageSize: pageSize}.Normalize()
	ids, total, err := s.searchIndex.Search(ctx, organizationID, strings.TrimSpace(q), filter.Page, filter.PageSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return shared.Paginated[ProductResult]{}, err
	}
	if len(ids) == 0 {
		return shared.NewPaginated([]ProductResult{}, total, filter.Page, filter.PageSize), nil
	}

	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return shared.Paginated[ProductResult]{}, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	results := make([]ProductResult, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || p.IsDeleted() || !p.BelongsTo(organizationID) {
			continue
		}
		results = append(results, ToProductResult(p))
	}
	return shared.NewPaginated(results, total, filter.Page, filter.PageSize), nil
}

func (s *ProductService) ensureSlugFree(ctx context.Context, organizationID uuid.UUID, slug string, excludeID *uuid.UUID) error {
	if err := catalog.ValidateSlug(slug); err != nil {
		return err
	}
	exists, err := s.productRepo.ExistsBySlug(ctx, organizationID, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return catalog.ErrSlugTaken
	}
	return nil
}

// assignCategories resolves ids within the product's organization. Any id
// that does not resolve fails the whole assignment.
func (s *ProductService) assignCategories(ctx context.Context, product *catalog.Product, ids []uuid.UUID) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return product.SetCategories(nil)
	}
	categories, err := s.categoryRepo.FindByIDs(ctx, product.OrganizationID, ids)
	if err != nil {
		return err
	}
	if len(categories) != len(ids) {
		return catalog.ErrUnknownCategoryID
	}
	return product.SetCategories(categories)
}

func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	if err := shared.PublishAndClear(ctx, s.events, product); err != nil {
		s.logger.Warn("Failed to publish product events",
			zap.String("product_id", product.ID.String()),
			zap.Error(err))
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
