package repositories

import (
	"context"

	domain "github.com/asistente-compras/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CatalogRepository exposes the product catalog. The read side feeds the
// matching pipeline; mutations serve catalog management.
type CatalogRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// ShoppingListRepository persists shopping lists and their items. Items live
// as separate documents keyed by the owning list ID.
type ShoppingListRepository interface {
	CreateList(ctx context.Context, list domain.ShoppingList) (domain.ShoppingList, error)
	GetList(ctx context.Context, listID string) (domain.ShoppingList, error)
	ListLists(ctx context.Context) ([]domain.ShoppingList, error)
	AddItems(ctx context.Context, listID string, items []domain.SelectedItem) error
	ReplaceItems(ctx context.Context, listID string, items []domain.SelectedItem) error
	ListItems(ctx context.Context, listID string) ([]domain.SelectedItem, error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
