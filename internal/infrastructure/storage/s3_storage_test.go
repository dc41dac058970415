package storage

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/freely/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func validConfig() config.StorageConfig {
	return config.StorageConfig{
		Enabled:         true,
		Bucket:          "product-images",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		PresignExpiry:   10 * time.Minute,
	}
}

func TestNewS3ImageStorage_Validation(t *testing.T) {
	t.Run("missing bucket", func(t *testing.T) {
		cfg := validConfig()
		cfg.Bucket = ""
		_, err := NewS3ImageStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := validConfig()
		cfg.SecretAccessKey = ""
		_, err := NewS3ImageStorage(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret access key")
	})

	t.Run("valid config", func(t *testing.T) {
		storage, err := NewS3ImageStorage(validConfig(), WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, "product-images", storage.Bucket())
		assert.Equal(t, 10*time.Minute, storage.presignExpiry)
	})

	t.Run("default expiry", func(t *testing.T) {
		cfg := validConfig()
		cfg.PresignExpiry = 0
		storage, err := NewS3ImageStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, storage.presignExpiry)
	})

	t.Run("option overrides expiry", func(t *testing.T) {
		storage, err := NewS3ImageStorage(validConfig(), WithPresignExpiry(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, time.Minute, storage.presignExpiry)
	})
}

func TestS3ImageStorage_PublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(c *config.StorageConfig)
		want string
	}{
		{
			name: "configured base",
			cfg:  func(c *config.StorageConfig) { c.PublicBaseURL = "https://cdn.freely.test/" },
			want: "https://cdn.freely.test/products/a.png",
		},
		{
			name: "path style endpoint",
			cfg:  func(c *config.StorageConfig) {},
			want: "http://localhost:9000/product-images/products/a.png",
		},
		{
			name: "virtual host endpoint",
			cfg:  func(c *config.StorageConfig) { c.UsePathStyle = false; c.Endpoint = "https://s3.example.com" },
			want: "https://product-images.s3.example.com/products/a.png",
		},
		{
			name: "aws default",
			cfg:  func(c *config.StorageConfig) { c.Endpoint = ""; c.Region = "eu-west-1" },
			want: "https://product-images.s3.eu-west-1.amazonaws.com/products/a.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.cfg(&cfg)
			storage, err := NewS3ImageStorage(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, storage.PublicURL("/products/a.png"))
		})
	}
}

func TestS3ImageStorage_PresignUpload(t *testing.T) {
	storage, err := NewS3ImageStorage(validConfig())
	require.NoError(t, err)

	key := "products/org/prod/" + uuid.NewString() + ".png"
	before := time.Now()
	upload, err := storage.PresignUpload(context.Background(), key, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "PUT", upload.Method)
	assert.Equal(t, key, upload.StorageKey)
	assert.Equal(t, "http://localhost:9000/product-images/"+key, upload.PublicURL)
	assert.WithinDuration(t, before.Add(10*time.Minute), upload.ExpiresAt, 5*time.Second)

	u, err := url.Parse(upload.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/product-images/products/org/prod/"))
	q := u.Query()
	assert.Equal(t, "600", q.Get("X-Amz-Expires"))
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))
	assert.Contains(t, q.Get("X-Amz-SignedHeaders"), "content-type")
}

func TestS3ImageStorage_EmptyKey(t *testing.T) {
	storage, err := NewS3ImageStorage(validConfig())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = storage.PresignUpload(ctx, "", "image/png")
	assert.Error(t, err)
	_, err = storage.ObjectExists(ctx, "")
	assert.Error(t, err)
	assert.Error(t, storage.DeleteObject(ctx, ""))
}

// Runs against a MinIO server when STORAGE_TEST_ENDPOINT is set,
// e.g. STORAGE_TEST_ENDPOINT=http://localhost:9000 with minioadmin credentials.
func TestS3ImageStorage_Integration(t *testing.T) {
	endpoint := os.Getenv("STORAGE_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("STORAGE_TEST_ENDPOINT not set")
	}

	cfg := validConfig()
	cfg.Endpoint = endpoint
	cfg.Bucket = "freely-test-" + uuid.NewString()[:8]
	cfg.AccessKeyID = "minioadmin"
	cfg.SecretAccessKey = "minioadmin"
	storage, err := NewS3ImageStorage(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, storage.EnsureBucket(ctx))
	require.NoError(t, storage.EnsureBucket(ctx))

	exists, err := storage.ObjectExists(ctx, "missing.png")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, storage.DeleteObject(ctx, "missing.png"))
}
