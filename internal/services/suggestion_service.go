package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/asistente-compras/api/internal/domain"
	"github.com/asistente-compras/api/internal/repositories"
)

const (
	defaultMaxBatchItems   = 5
	defaultMaxAlternatives = 10

	// maxContextLength bounds the free-text context embedded in cache keys
	// and prompts.
	maxContextLength = 100

	// maxExtraItems caps the free-form additions to a generated list.
	maxExtraItems = 3

	// maxTrendLists bounds how many recent lists feed the trend analysis.
	maxTrendLists = 10
)

var (
	// ErrEmptyQuery signals a suggestion request without a product name.
	ErrEmptyQuery = errors.New("suggestion service: query is required")
	// ErrTooManyItems signals a batch beyond the configured limit.
	ErrTooManyItems = errors.New("suggestion service: too many items in batch")
	// ErrEmptyListType signals a generation request without a list type.
	ErrEmptyListType = errors.New("suggestion service: list type is required")
	// ErrEmptyUserID signals a trend request without a user id.
	ErrEmptyUserID = errors.New("suggestion service: user id is required")

	errSuggestionCatalogMissing = errors.New("suggestion service: catalog repository is required")
	errSuggestionListsMissing   = errors.New("suggestion service: list repository is required")
	errSuggestionArbiterMissing = errors.New("suggestion service: selection arbiter is required")
	errSuggestionCacheMissing   = errors.New("suggestion service: cache is required")
	errSuggestionEssenceMissing = errors.New("suggestion service: essence extractor is required")
)

// NoMatchError reports that no product matched a suggestion query. The
// reason is safe to show to end users.
type NoMatchError struct {
	Reason string
}

func (e *NoMatchError) Error() string { return e.Reason }

// SuggestionServiceDeps bundles collaborators for the suggestion service.
type SuggestionServiceDeps struct {
	Catalog         repositories.CatalogRepository
	Lists           repositories.ShoppingListRepository
	Arbiter         *SelectionArbiter
	Cache           *SuggestionCache
	Essence         *EssenceExtractor
	Model           string
	MaxBatchItems   int
	MaxAlternatives int
	Clock           func() time.Time
	Logger          *zap.Logger
}

type suggestionService struct {
	catalog         repositories.CatalogRepository
	lists           repositories.ShoppingListRepository
	arbiter         *SelectionArbiter
	cache           *SuggestionCache
	essence         *EssenceExtractor
	model           string
	maxBatchItems   int
	maxAlternatives int
	clock           func() time.Time
	logger          *zap.Logger
}

var _ SuggestionService = (*suggestionService)(nil)

// NewSuggestionService assembles the suggestion service.
func NewSuggestionService(deps SuggestionServiceDeps) (SuggestionService, error) {
	if deps.Catalog == nil {
		return nil, errSuggestionCatalogMissing
	}
	if deps.Lists == nil {
		return nil, errSuggestionListsMissing
	}
	if deps.Arbiter == nil {
		return nil, errSuggestionArbiterMissing
	}
	if deps.Cache == nil {
		return nil, errSuggestionCacheMissing
	}
	if deps.Essence == nil {
		return nil, errSuggestionEssenceMissing
	}

	maxBatch := deps.MaxBatchItems
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatchItems
	}
	maxAlternatives := deps.MaxAlternatives
	if maxAlternatives <= 0 {
		maxAlternatives = defaultMaxAlternatives
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &suggestionService{
		catalog:         deps.Catalog,
		lists:           deps.Lists,
		arbiter:         deps.Arbiter,
		cache:           deps.Cache,
		essence:         deps.Essence,
		model:           strings.TrimSpace(deps.Model),
		maxBatchItems:   maxBatch,
		maxAlternatives: maxAlternatives,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Suggest recommends one product for the query using the fuzzy matching
// path. Identical queries within the TTL are answered from the cache.
func (s *suggestionService) Suggest(ctx context.Context, cmd SuggestCommand) (Suggestion, error) {
	query := strings.TrimSpace(cmd.Query)
	if query == "" {
		return Suggestion{}, ErrEmptyQuery
	}
	reqContext := truncateContext(cmd.Context)

	key := SuggestionKey(query, reqContext, cmd.Quality)
	if cached, ok := s.cache.Get(key); ok {
		if suggestion, isSuggestion := cached.(Suggestion); isSuggestion {
			suggestion.Cached = true
			return suggestion, nil
		}
	}

	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return Suggestion{}, err
	}

	item := domain.RequestedItem{Name: query, Quantity: 1}
	candidates, missReason := FuzzyMatches(products, item)
	if missReason != "" {
		return Suggestion{}, &NoMatchError{Reason: missReason}
	}

	profile := cmd.Profile
	if reqContext != "" && strings.TrimSpace(profile.Description) == "" {
		profile.Description = reqContext
	}

	choice, err := s.arbiter.Select(ctx, item, candidates, profile, cmd.Quality)
	if err != nil {
		return Suggestion{}, err
	}

	suggestion := Suggestion{Reasoning: choice.Reasoning}
	for _, candidate := range candidates {
		if candidate.Product.ID == choice.ProductID {
			suggestion.Product = candidate.Product
			break
		}
	}

	s.cache.Put(key, suggestion)
	return suggestion, nil
}

// SuggestBatch resolves up to the configured number of queries. Per-item
// misses are collected; they never abort the sibling queries.
func (s *suggestionService) SuggestBatch(ctx context.Context, cmds []SuggestCommand) ([]Suggestion, []domain.NotFoundItem, error) {
	if len(cmds) == 0 {
		return nil, nil, ErrEmptyQuery
	}
	if len(cmds) > s.maxBatchItems {
		return nil, nil, fmt.Errorf("%w: %d items, limit %d", ErrTooManyItems, len(cmds), s.maxBatchItems)
	}

	var (
		suggestions []Suggestion
		notFound    []domain.NotFoundItem
	)
	for _, cmd := range cmds {
		suggestion, err := s.Suggest(ctx, cmd)
		if err != nil {
			var miss *NoMatchError
			switch {
			case errors.As(err, &miss):
				notFound = append(notFound, domain.NotFoundItem{Name: cmd.Query, Quantity: 1, Reason: miss.Reason})
			case errors.Is(err, ErrEmptyQuery):
				notFound = append(notFound, domain.NotFoundItem{Name: cmd.Query, Quantity: 1, Reason: ErrEmptyQuery.Error()})
			default:
				return nil, nil, err
			}
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, notFound, nil
}

// GenerateList resolves a predefined school list against the live catalog,
// pricing the plan without persisting anything. Identical requests within the
// TTL are answered from the cache.
func (s *suggestionService) GenerateList(ctx context.Context, cmd GenerateListCommand) (GeneratedList, error) {
	listType := strings.ToLower(strings.TrimSpace(cmd.ListType))
	if listType == "" {
		return GeneratedList{}, ErrEmptyListType
	}
	standard, ok := StandardListByType(listType)
	if !ok {
		return GeneratedList{}, fmt.Errorf("%w: %q", ErrUnknownListType, listType)
	}

	extras := normalizeExtras(cmd.ExtraItems)
	key := ListKey(listType, cmd.Quality, extras)
	if cached, ok := s.cache.Get(key); ok {
		if generated, isList := cached.(GeneratedList); isList {
			generated.Cached = true
			return generated, nil
		}
	}

	items := make([]domain.RequestedItem, 0, len(standard.Items)+len(extras))
	for _, entry := range standard.Items {
		items = append(items, domain.RequestedItem{Name: entry.Name, Quantity: entry.Quantity})
	}
	for _, extra := range extras {
		items = append(items, domain.RequestedItem{Name: extra, Quantity: 1})
	}

	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return GeneratedList{}, err
	}

	generated := GeneratedList{
		ListName: standard.Name,
		ListType: listType,
		Quality:  cmd.Quality,
	}
	for _, item := range items {
		candidates := StrictCandidates(products, item)
		if len(candidates) == 0 {
			generated.NotFoundItems = append(generated.NotFoundItems, domain.NotFoundItem{
				Name:     item.Name,
				Quantity: item.Quantity,
				Reason:   strictMissReason,
			})
			continue
		}
		choice, err := s.arbiter.Select(ctx, item, candidates, cmd.Profile, cmd.Quality)
		if err != nil {
			generated.NotFoundItems = append(generated.NotFoundItems, domain.NotFoundItem{
				Name:     item.Name,
				Quantity: item.Quantity,
				Reason:   err.Error(),
			})
			continue
		}
		generated.Items = append(generated.Items, choice)
		generated.EstimatedTotal += choice.Price * float64(choice.QuantitySelected)
	}
	generated.Recommendations = listRecommendations(generated)

	s.cache.Put(key, generated)
	return generated, nil
}

// Trends aggregates what the user spent per category across their latest
// lists and derives shopping advice from the totals.
func (s *suggestionService) Trends(ctx context.Context, userID string) (TrendReport, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return TrendReport{}, ErrEmptyUserID
	}

	key := TrendsKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		if report, isReport := cached.(TrendReport); isReport {
			report.Cached = true
			return report, nil
		}
	}

	lists, err := s.lists.ListLists(ctx)
	if err != nil {
		return TrendReport{}, err
	}

	owned := make([]domain.ShoppingList, 0, len(lists))
	for _, list := range lists {
		if list.UserID == userID {
			owned = append(owned, list)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if len(owned) > maxTrendLists {
		owned = owned[:maxTrendLists]
	}

	report := TrendReport{UserID: userID, ListsAnalyzed: len(owned)}
	totals := map[string]*CategoryTrend{}
	for _, list := range owned {
		items, err := s.lists.ListItems(ctx, list.ID)
		if err != nil {
			return TrendReport{}, err
		}
		for _, item := range items {
			category := strings.TrimSpace(item.Category)
			if category == "" {
				category = domain.DefaultCategory
			}
			trend, ok := totals[category]
			if !ok {
				trend = &CategoryTrend{Category: category}
				totals[category] = trend
			}
			spent := item.Price * float64(item.QuantitySelected)
			trend.Items += item.QuantitySelected
			trend.Spent += spent
			report.TotalSpent += spent
		}
	}

	trends := make([]CategoryTrend, 0, len(totals))
	for _, trend := range totals {
		trends = append(trends, *trend)
	}
	sort.Slice(trends, func(i, j int) bool {
		if trends[i].Spent != trends[j].Spent {
			return trends[i].Spent > trends[j].Spent
		}
		return trends[i].Category < trends[j].Category
	})
	report.Trends = trends
	report.Recommendations = trendRecommendations(report)

	s.cache.Put(key, report)
	return report, nil
}

// Alternatives returns in-stock products sharing the original product's
// essence, excluding the product itself.
func (s *suggestionService) Alternatives(ctx context.Context, productID string) (domain.Product, []domain.Product, error) {
	product, err := s.catalog.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, nil, err
	}

	essence := s.essence.Extract(ctx, product.Name)
	if essence == "" {
		return product, nil, nil
	}

	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return domain.Product{}, nil, err
	}

	var alternatives []domain.Product
	for _, candidate := range products {
		if candidate.ID == product.ID || candidate.Stock <= 0 {
			continue
		}
		if strings.Contains(normalizeText(candidate.Name), essence) {
			alternatives = append(alternatives, candidate)
			if len(alternatives) == s.maxAlternatives {
				break
			}
		}
	}
	return product, alternatives, nil
}

// Status summarises the suggestion subsystem for the status endpoint.
func (s *suggestionService) Status(context.Context) SuggestionStatus {
	return SuggestionStatus{
		ModelConfigured: s.model != "",
		Model:           s.model,
		CacheEntries:    s.cache.Len(),
	}
}

func (s *suggestionService) ClearCache(context.Context) int {
	removed := s.cache.Clear()
	s.logger.Info("suggestion cache cleared", zap.Int("removed", removed))
	return removed
}

func (s *suggestionService) CacheStats(context.Context) CacheStats {
	return s.cache.Stats()
}

// normalizeExtras trims the free-form additions and caps them at
// maxExtraItems, dropping blanks.
func normalizeExtras(extras []string) []string {
	cleaned := make([]string, 0, len(extras))
	for _, extra := range extras {
		if trimmed := strings.TrimSpace(extra); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
		if len(cleaned) == maxExtraItems {
			break
		}
	}
	return cleaned
}

func listRecommendations(generated GeneratedList) []string {
	recommendations := make([]string, 0, 2)
	if len(generated.NotFoundItems) == 0 {
		recommendations = append(recommendations, "Todos los artículos tienen cobertura de inventario.")
	} else {
		recommendations = append(recommendations, fmt.Sprintf(
			"%d artículos no tienen stock suficiente; revisa alternativas antes de comprar.",
			len(generated.NotFoundItems)))
	}
	switch generated.Quality {
	case domain.QualityEconomic:
		recommendations = append(recommendations, "En la línea económica conviene priorizar durabilidad en cuadernos y lápices.")
	case domain.QualityPremium:
		recommendations = append(recommendations, "La línea premium eleva el costo total; compara precios por artículo antes de confirmar.")
	}
	return recommendations
}

func trendRecommendations(report TrendReport) []string {
	if report.ListsAnalyzed == 0 {
		return []string{"Aún no hay listas registradas para este usuario."}
	}
	recommendations := make([]string, 0, 2)
	if len(report.Trends) > 0 {
		top := report.Trends[0]
		recommendations = append(recommendations, fmt.Sprintf(
			"La mayor parte del gasto está en %s ($%.0f); compara precios en esa categoría.",
			top.Category, top.Spent))
	}
	recommendations = append(recommendations, fmt.Sprintf(
		"Gasto promedio por lista: $%.0f.",
		report.TotalSpent/float64(report.ListsAnalyzed)))
	return recommendations
}

func truncateContext(value string) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= maxContextLength {
		return string(runes)
	}
	return string(runes[:maxContextLength])
}
