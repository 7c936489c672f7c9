package services

import (
	"context"
	"time"

	domain "github.com/asistente-compras/api/internal/domain"
)

// TextGenerator abstracts the language model used for product selection and
// suggestion generation. Implementations return the raw text reply.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ListAssembledEvent is emitted after a shopping list has been persisted.
type ListAssembledEvent struct {
	ListID        string    `json:"listId"`
	ListName      string    `json:"listName"`
	UserID        string    `json:"userId,omitempty"`
	Quality       string    `json:"quality,omitempty"`
	ItemCount     int       `json:"itemCount"`
	NotFoundCount int       `json:"notFoundCount"`
	AIGenerated   bool      `json:"aiGenerated"`
	AssembledAt   time.Time `json:"assembledAt"`
}

// EventPublisher pushes domain events onto the message bus. The returned
// string is the broker-assigned message ID.
type EventPublisher interface {
	PublishListAssembled(ctx context.Context, event ListAssembledEvent) (string, error)
}

// AssembleListCommand is the input for building a shopping list from free text.
type AssembleListCommand struct {
	ListName string
	Text     string
	Items    []domain.RequestedItem
	Profile  domain.ClientProfile
	Quality  domain.QualityCategory
	UserID   string
	Context  string
}

// AssembleListResult reports the outcome of list assembly, keeping found and
// missing items in the order they were requested.
type AssembleListResult struct {
	List          domain.ShoppingList
	AddedItems    []domain.SelectedItem
	NotFoundItems []domain.NotFoundItem
}

// ShoppingListService builds and manages shopping lists.
type ShoppingListService interface {
	AssembleList(ctx context.Context, cmd AssembleListCommand) (AssembleListResult, error)
	GetList(ctx context.Context, listID string) (domain.ShoppingList, []domain.SelectedItem, error)
	ListLists(ctx context.Context) ([]domain.ShoppingList, error)
	ReplaceListItems(ctx context.Context, listID string, items []domain.RequestedItem, profile domain.ClientProfile, quality domain.QualityCategory) (AssembleListResult, error)
	CreateStandardList(ctx context.Context, listType string, userID string) (AssembleListResult, error)
	StandardListTypes() []string
}

// SuggestCommand asks for a single product recommendation.
type SuggestCommand struct {
	Query   string
	Context string
	Profile domain.ClientProfile
	Quality domain.QualityCategory
}

// Suggestion is one recommended product with the reasoning behind it.
type Suggestion struct {
	Product   domain.Product
	Reasoning string
	Cached    bool
}

// SuggestionStatus summarises the suggestion subsystem for status endpoints.
type SuggestionStatus struct {
	ModelConfigured bool
	Model           string
	CacheEntries    int
}

// GenerateListCommand asks for a predefined school list resolved against the
// live catalog, optionally extended with free-form extra items.
type GenerateListCommand struct {
	ListType   string
	Quality    domain.QualityCategory
	ExtraItems []string
	Profile    domain.ClientProfile
}

// GeneratedList is a resolved shopping plan. It is never persisted; callers
// turn it into a real list through the list endpoints.
type GeneratedList struct {
	ListName        string
	ListType        string
	Quality         domain.QualityCategory
	Items           []domain.SelectedItem
	NotFoundItems   []domain.NotFoundItem
	EstimatedTotal  float64
	Recommendations []string
	Cached          bool
}

// CategoryTrend aggregates a user's spending inside one product category.
type CategoryTrend struct {
	Category string
	Items    int
	Spent    float64
}

// TrendReport summarises a user's purchase behaviour across their most
// recent shopping lists.
type TrendReport struct {
	UserID          string
	ListsAnalyzed   int
	TotalSpent      float64
	Trends          []CategoryTrend
	Recommendations []string
	Cached          bool
}

// SuggestionService produces product recommendations backed by the catalog,
// the language model and a TTL cache.
type SuggestionService interface {
	Suggest(ctx context.Context, cmd SuggestCommand) (Suggestion, error)
	SuggestBatch(ctx context.Context, cmds []SuggestCommand) ([]Suggestion, []domain.NotFoundItem, error)
	GenerateList(ctx context.Context, cmd GenerateListCommand) (GeneratedList, error)
	Trends(ctx context.Context, userID string) (TrendReport, error)
	Alternatives(ctx context.Context, productID string) (domain.Product, []domain.Product, error)
	Status(ctx context.Context) SuggestionStatus
	ClearCache(ctx context.Context) int
	CacheStats(ctx context.Context) CacheStats
}

// CatalogService manages the product catalog.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	CreateProduct(ctx context.Context, cmd ProductCommand) (domain.Product, error)
	UpdateProduct(ctx context.Context, productID string, cmd ProductCommand) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// ProductCommand carries the mutable fields of a catalog entry.
type ProductCommand struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	Brand       string
	Category    string
	Quality     string
}

// SystemService exposes health reports for liveness and readiness probes.
type SystemService interface {
	HealthReport(ctx context.Context) (domain.SystemHealthReport, error)
}
