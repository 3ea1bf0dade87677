// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/infrastructure/recordstore"
)

// ErrNotFound is returned when a product does not exist in the catalog
var ErrNotFound = errors.New("product not found")

const (
	productsCollection = "products"
	indexKey           = "_index"
)

// Records is the slice of the record store the catalog reads from
type Records interface {
	Get(ctx context.Context, collection, key string) ([]byte, error)
}

// Service resolves products from the backend record store
type Service struct {
	records Records
	log     *logrus.Logger
}

// NewService creates a new catalog service
func NewService(records Records, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		records: records,
		log:     logger,
	}
}

// Product fetches a single product by id. A missing record maps to
// ErrNotFound; any other failure (including an unconfigured record store)
// propagates so callers do not mistake "backend unreachable" for
// "product gone".
func (s *Service) Product(ctx context.Context, id string) (*Product, error) {
	data, err := s.records.Get(ctx, productsCollection, id)
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}

	var prod Product
	if err := json.Unmarshal(data, &prod); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", id, err)
	}
	if prod.ID == "" {
		prod.ID = id
	}
	if prod.Currency == "" {
		prod.Currency = "INR"
	}

	return &prod, nil
}

// List returns the catalog in index order. Products named by the index but
// missing from the store are skipped, not fatal.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	data, err := s.records.Get(ctx, productsCollection, indexKey)
	if errors.Is(err, recordstore.ErrNotFound) {
		return []Product{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch product index: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode product index: %w", err)
	}

	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		prod, err := s.Product(ctx, id)
		if errors.Is(err, ErrNotFound) {
			s.log.WithField("product_id", id).Warn("indexed product missing from record store")
			continue
		} else if err != nil {
			return nil, err
		}
		products = append(products, *prod)
	}

	return products, nil
}
