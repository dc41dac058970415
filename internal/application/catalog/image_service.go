package catalog

import (
	"context"
	"path"
	"strings"

	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// imageExtensions maps accepted image content types to file extensions.
// SVG is not accepted since it can carry scripts.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageService issues presigned product image uploads and attaches uploaded
// images to products
type ImageService struct {
	productRepo catalog.ProductRepository
	storage     ImageStorage
	events      shared.EventPublisher
	logger      *zap.Logger
}

// NewImageService creates a new ImageService. A nil storage disables uploads.
func NewImageService(productRepo catalog.ProductRepository, storage ImageStorage, events shared.EventPublisher, logger *zap.Logger) *ImageService {
	return &ImageService{
		productRepo: productRepo,
		storage:     storage,
		events:      events,
		logger:      logger,
	}
}

// CreateUploadURL returns a presigned URL for uploading one image of a product
func (s *ImageService) CreateUploadURL(ctx context.Context, organizationID, productID uuid.UUID, input ImageUploadInput) (*PresignedUpload, error) {
	if s.storage == nil {
		return nil, ErrImageStorageUnavailable
	}
	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedImageType
	}
	if _, err := s.productRepo.FindByIDForOrganization(ctx, organizationID, productID); err != nil {
		return nil, err
	}

	key := imageKeyPrefix(organizationID, productID) + uuid.NewString() + ext
	upload, err := s.storage.PresignUpload(ctx, key, contentType)
	if err != nil {
		s.logger.Error("Failed to presign image upload",
			zap.String("product_id", productID.String()),
			zap.Error(err))
		return nil, err
	}
	return upload, nil
}

// AttachImage appends an uploaded image to the product's image list. The
// key must be one issued for this product and the object must exist.
func (s *ImageService) AttachImage(ctx context.Context, organizationID, productID uuid.UUID, storageKey string) (*ProductResult, error) {
	if s.storage == nil {
		return nil, ErrImageStorageUnavailable
	}
	storageKey = path.Clean(strings.TrimSpace(storageKey))
	if !strings.HasPrefix(storageKey, imageKeyPrefix(organizationID, productID)) {
		return nil, shared.ErrInvalidInput.WithMessage("Storage key does not belong to this product")
	}

	product, err := s.productRepo.FindByIDForOrganization(ctx, organizationID, productID)
	if err != nil {
		return nil, err
	}
	exists, err := s.storage.ObjectExists(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrImageNotUploaded
	}

	if err := product.AddImageURL(s.storage.PublicURL(storageKey)); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	if err := shared.PublishAndClear(ctx, s.events, product); err != nil {
		s.logger.Warn("Failed to publish product events", zap.Error(err))
	}

	result := ToProductResult(product)
	return &result, nil
}

func imageKeyPrefix(organizationID, productID uuid.UUID) string {
	return "products/" + organizationID.String() + "/" + productID.String() + "/"
}
