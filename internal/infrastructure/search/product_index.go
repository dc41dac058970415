// Package search mirrors products into Elasticsearch for fuzzy search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/freely/backend/internal/domain/catalog"
	"github.com/freely/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// indexMapping is applied when the index is first created
const indexMapping = `{
  "mappings": {
    "properties": {
      "id":              {"type": "keyword"},
      "organization_id": {"type": "keyword"},
      "name":            {"type": "text"},
      "slug":            {"type": "keyword"},
      "description":     {"type": "text"},
      "price_cents":     {"type": "long"},
      "currency":        {"type": "keyword"},
      "is_available":    {"type": "boolean"},
      "updated_at":      {"type": "date"}
    }
  }
}`

// ProductDocument is the indexed form of a product
type ProductDocument struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    string    `json:"description"`
	PriceCents     int64     `json:"price_cents"`
	Currency       string    `json:"currency"`
	IsAvailable    bool      `json:"is_available"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewProductDocument builds the document for a product
func NewProductDocument(p *catalog.Product) ProductDocument {
	return ProductDocument{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		PriceCents:     p.PriceCents,
		Currency:       p.Currency,
		IsAvailable:    p.IsAvailable,
		UpdatedAt:      p.UpdatedAt,
	}
}

// NewClient creates an Elasticsearch client and checks the cluster answers
func NewClient(ctx context.Context, cfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to reach elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("info", res)
	}
	return client, nil
}

// ProductIndex writes and queries the product index
type ProductIndex struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// NewProductIndex creates a ProductIndex over an existing client
func NewProductIndex(client *elasticsearch.Client, index string, logger *zap.Logger) *ProductIndex {
	return &ProductIndex{client: client, index: index, logger: logger}
}

// EnsureIndex creates the index with its mapping if it does not exist
func (x *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.client.Indices.Exists([]string{x.index}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", x.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return responseError("index exists", res)
	}

	res, err = x.client.Indices.Create(x.index,
		x.client.Indices.Create.WithContext(ctx),
		x.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))))
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", x.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create index", res)
	}
	x.logger.Info("Created search index", zap.String("index", x.index))
	return nil
}

// IndexProduct upserts the product document
func (x *ProductIndex) IndexProduct(ctx context.Context, p *catalog.Product) error {
	body, err := json.Marshal(NewProductDocument(p))
	if err != nil {
		return fmt.Errorf("failed to encode product document: %w", err)
	}

	res, err := x.client.Index(x.index, bytes.NewReader(body),
		x.client.Index.WithContext(ctx),
		x.client.Index.WithDocumentID(p.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to index product %s: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index product", res)
	}
	return nil
}

// DeleteProduct removes the product document. A missing document is not an error.
func (x *ProductIndex) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := x.client.Delete(x.index, id.String(), x.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete product %s from index: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete product", res)
	}
	return nil
}

// Search runs a fuzzy match over name and description within one
// organization and returns the matching product IDs by relevance.
func (x *ProductIndex) Search(ctx context.Context, organizationID uuid.UUID, query string, page, pageSize int) ([]uuid.UUID, int64, error) {
	if page < 1 {
		page = 1
	}
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"name^2", "description"},
						"fuzziness": "AUTO",
					},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"organization_id": organizationID.String()}},
				},
			},
		},
		"from":    (page - 1) * pageSize,
		"size":    pageSize,
		"_source": []string{"id"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, 0, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, responseError("search", res)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source struct {
					ID uuid.UUID `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		ids = append(ids, hit.Source.ID)
	}
	return ids, r.Hits.Total.Value, nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return errors.New("elasticsearch " + op + " failed: " + res.Status() + " " + string(body))
}
