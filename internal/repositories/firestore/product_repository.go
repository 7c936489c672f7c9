package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/asistente-compras/api/internal/domain"
	pfirestore "github.com/asistente-compras/api/internal/platform/firestore"
	"github.com/asistente-compras/api/internal/repositories"
)

const productCollection = "productos"

// ProductRepository persists catalog products in Firestore.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed catalog repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		base: pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil),
	}, nil
}

// ListProducts returns every catalog entry ordered by name.
func (r *ProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("nombre", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

// GetProduct fetches a single catalog entry by ID.
func (r *ProductRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// UpsertProduct stores the product under its ID, overwriting any prior entry.
func (r *ProductRepository) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	doc := newProductDocument(product)
	if _, err := r.base.Set(ctx, id, doc); err != nil {
		return domain.Product{}, err
	}
	return doc.toDomain(id), nil
}

// DeleteProduct removes the catalog entry.
func (r *ProductRepository) DeleteProduct(ctx context.Context, productID string) error {
	id := strings.TrimSpace(productID)
	if id == "" {
		return errors.New("product repository: product id is required")
	}
	return r.base.Delete(ctx, id)
}

type productDocument struct {
	Nombre      string    `firestore:"nombre"`
	Descripcion string    `firestore:"descripcion"`
	Precio      float64   `firestore:"precio"`
	Stock       int       `firestore:"stock"`
	Marca       string    `firestore:"marca"`
	Categoria   string    `firestore:"categoria"`
	Calidad     string    `firestore:"calidad"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func newProductDocument(product domain.Product) productDocument {
	return productDocument{
		Nombre:      strings.TrimSpace(product.Name),
		Descripcion: strings.TrimSpace(product.Description),
		Precio:      product.Price,
		Stock:       product.Stock,
		Marca:       strings.TrimSpace(product.Brand),
		Categoria:   product.CategoryOrDefault(),
		Calidad:     string(product.QualityCategory),
		CreatedAt:   product.CreatedAt.UTC(),
		UpdatedAt:   product.UpdatedAt.UTC(),
	}
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:              id,
		Name:            d.Nombre,
		Description:     d.Descripcion,
		Price:           d.Precio,
		Stock:           d.Stock,
		Brand:           d.Marca,
		Category:        d.Categoria,
		QualityCategory: domain.ParseQuality(d.Calidad),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// Ensure interface compliance.
var _ repositories.CatalogRepository = (*ProductRepository)(nil)
