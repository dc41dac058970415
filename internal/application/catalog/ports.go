package catalog

import (
	"context"

	"github.com/freely/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Catalog service errors
var (
	ErrImageStorageUnavailable = shared.NewDomainError("STORAGE_UNAVAILABLE", "Image storage is not configured")
	ErrSearchUnavailable       = shared.NewDomainError("SEARCH_UNAVAILABLE", "Product search is not configured")
	ErrUnsupportedImageType    = shared.NewDomainError("INVALID_CONTENT_TYPE", "Only JPEG, PNG, GIF and WebP images are accepted")
	ErrImageNotUploaded        = shared.NewDomainError("IMAGE_NOT_UPLOADED", "The image has not been uploaded yet")
)

// ImageStorage is the object store product images are uploaded to.
// Implemented by the infrastructure layer (S3 or an S3-compatible server).
type ImageStorage interface {
	// PresignUpload returns a URL the client can upload the object to
	PresignUpload(ctx context.Context, key, contentType string) (*PresignedUpload, error)

	// PublicURL returns the URL a stored object is served from
	PublicURL(key string) string

	// ObjectExists reports whether the object has been uploaded
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// ProductSearchIndex runs full-text product searches.
// It returns matching product IDs in relevance order and the total hit count.
type ProductSearchIndex interface {
	Search(ctx context.Context, organizationID uuid.UUID, query string, page, pageSize int) ([]uuid.UUID, int64, error)
}
