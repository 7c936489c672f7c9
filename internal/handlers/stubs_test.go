package handlers

import (
	"context"

	domain "github.com/asistente-compras/api/internal/domain"
	"github.com/asistente-compras/api/internal/services"
)

type stubShoppingListService struct {
	assembleFn func(context.Context, services.AssembleListCommand) (services.AssembleListResult, error)
	getFn      func(context.Context, string) (domain.ShoppingList, []domain.SelectedItem, error)
	listFn     func(context.Context) ([]domain.ShoppingList, error)
	replaceFn  func(context.Context, string, []domain.RequestedItem, domain.ClientProfile, domain.QualityCategory) (services.AssembleListResult, error)
	standardFn func(context.Context, string, string) (services.AssembleListResult, error)
}

func (s *stubShoppingListService) AssembleList(ctx context.Context, cmd services.AssembleListCommand) (services.AssembleListResult, error) {
	return s.assembleFn(ctx, cmd)
}

func (s *stubShoppingListService) GetList(ctx context.Context, listID string) (domain.ShoppingList, []domain.SelectedItem, error) {
	return s.getFn(ctx, listID)
}

func (s *stubShoppingListService) ListLists(ctx context.Context) ([]domain.ShoppingList, error) {
	return s.listFn(ctx)
}

func (s *stubShoppingListService) ReplaceListItems(ctx context.Context, listID string, items []domain.RequestedItem, profile domain.ClientProfile, quality domain.QualityCategory) (services.AssembleListResult, error) {
	return s.replaceFn(ctx, listID, items, profile, quality)
}

func (s *stubShoppingListService) CreateStandardList(ctx context.Context, listType string, userID string) (services.AssembleListResult, error) {
	return s.standardFn(ctx, listType, userID)
}

func (s *stubShoppingListService) StandardListTypes() []string {
	return []string{"basica", "media"}
}

type stubSuggestionService struct {
	suggestFn      func(context.Context, services.SuggestCommand) (services.Suggestion, error)
	batchFn        func(context.Context, []services.SuggestCommand) ([]services.Suggestion, []domain.NotFoundItem, error)
	generateFn     func(context.Context, services.GenerateListCommand) (services.GeneratedList, error)
	trendsFn       func(context.Context, string) (services.TrendReport, error)
	alternativesFn func(context.Context, string) (domain.Product, []domain.Product, error)
	statusValue    services.SuggestionStatus
	cleared        int
	stats          services.CacheStats
}

func (s *stubSuggestionService) Suggest(ctx context.Context, cmd services.SuggestCommand) (services.Suggestion, error) {
	return s.suggestFn(ctx, cmd)
}

func (s *stubSuggestionService) SuggestBatch(ctx context.Context, cmds []services.SuggestCommand) ([]services.Suggestion, []domain.NotFoundItem, error) {
	return s.batchFn(ctx, cmds)
}

func (s *stubSuggestionService) GenerateList(ctx context.Context, cmd services.GenerateListCommand) (services.GeneratedList, error) {
	return s.generateFn(ctx, cmd)
}

func (s *stubSuggestionService) Trends(ctx context.Context, userID string) (services.TrendReport, error) {
	return s.trendsFn(ctx, userID)
}

func (s *stubSuggestionService) Alternatives(ctx context.Context, productID string) (domain.Product, []domain.Product, error) {
	return s.alternativesFn(ctx, productID)
}

func (s *stubSuggestionService) Status(context.Context) services.SuggestionStatus {
	return s.statusValue
}

func (s *stubSuggestionService) ClearCache(context.Context) int {
	return s.cleared
}

func (s *stubSuggestionService) CacheStats(context.Context) services.CacheStats {
	return s.stats
}

type stubCatalogService struct {
	listFn   func(context.Context) ([]domain.Product, error)
	getFn    func(context.Context, string) (domain.Product, error)
	createFn func(context.Context, services.ProductCommand) (domain.Product, error)
	updateFn func(context.Context, string, services.ProductCommand) (domain.Product, error)
	deleteFn func(context.Context, string) error
}

func (s *stubCatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.listFn(ctx)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	return s.getFn(ctx, productID)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.ProductCommand) (domain.Product, error) {
	return s.createFn(ctx, cmd)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, productID string, cmd services.ProductCommand) (domain.Product, error) {
	return s.updateFn(ctx, productID, cmd)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	return s.deleteFn(ctx, productID)
}

type stubSystemService struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}
