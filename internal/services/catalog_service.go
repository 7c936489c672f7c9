package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/asistente-compras/api/internal/domain"
	"github.com/asistente-compras/api/internal/repositories"
)

const productIDPrefix = "prod_"

var (
	// ErrProductNameRequired signals a catalog mutation without a name.
	ErrProductNameRequired = errors.New("catalog service: product name is required")
	// ErrNegativePrice signals a catalog mutation with a negative price.
	ErrNegativePrice = errors.New("catalog service: price must not be negative")
	// ErrNegativeStock signals a catalog mutation with negative stock.
	ErrNegativeStock = errors.New("catalog service: stock must not be negative")

	errCatalogServiceRepositoryMissing = errors.New("catalog service: catalog repository is required")
)

// CatalogServiceDeps bundles collaborators for the catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Clock   func() time.Time
	NewID   func() string
}

type catalogService struct {
	catalog repositories.CatalogRepository
	clock   func() time.Time
	newID   func() string
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService assembles the catalog management service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errCatalogServiceRepositoryMissing
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return productIDPrefix + ulid.Make().String() }
	}

	return &catalogService{
		catalog: deps.Catalog,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: newID,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.catalog.ListProducts(ctx)
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	return s.catalog.GetProduct(ctx, strings.TrimSpace(productID))
}

// CreateProduct validates the command and stores a new catalog entry.
func (s *catalogService) CreateProduct(ctx context.Context, cmd ProductCommand) (domain.Product, error) {
	product, err := s.productFromCommand(cmd)
	if err != nil {
		return domain.Product{}, err
	}

	now := s.clock()
	product.ID = s.newID()
	product.CreatedAt = now
	product.UpdatedAt = now

	return s.catalog.UpsertProduct(ctx, product)
}

// UpdateProduct overwrites an existing entry, preserving its creation time.
func (s *catalogService) UpdateProduct(ctx context.Context, productID string, cmd ProductCommand) (domain.Product, error) {
	existing, err := s.catalog.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}

	product, err := s.productFromCommand(cmd)
	if err != nil {
		return domain.Product{}, err
	}

	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.clock()

	return s.catalog.UpsertProduct(ctx, product)
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	id := strings.TrimSpace(productID)
	if id == "" {
		return fmt.Errorf("catalog service: product id is required")
	}
	return s.catalog.DeleteProduct(ctx, id)
}

func (s *catalogService) productFromCommand(cmd ProductCommand) (domain.Product, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Product{}, ErrProductNameRequired
	}
	if cmd.Price < 0 {
		return domain.Product{}, ErrNegativePrice
	}
	if cmd.Stock < 0 {
		return domain.Product{}, ErrNegativeStock
	}

	return domain.Product{
		Name:            name,
		Description:     strings.TrimSpace(cmd.Description),
		Price:           cmd.Price,
		Stock:           cmd.Stock,
		Brand:           strings.TrimSpace(cmd.Brand),
		Category:        strings.TrimSpace(cmd.Category),
		QualityCategory: domain.ParseQuality(cmd.Quality),
	}, nil
}
