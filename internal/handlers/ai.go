package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/asistente-compras/api/internal/domain"
	"github.com/asistente-compras/api/internal/platform/httpx"
	"github.com/asistente-compras/api/internal/services"
)

const (
	aiRateLimit  = 30
	aiRateWindow = time.Minute
)

// AIHandlers exposes the assistant endpoints backed by the suggestion and
// shopping list services.
type AIHandlers struct {
	suggestions services.SuggestionService
	lists       services.ShoppingListService
	limiter     rateLimiter
}

// NewAIHandlers constructs the assistant handlers.
func NewAIHandlers(suggestions services.SuggestionService, lists services.ShoppingListService) *AIHandlers {
	return &AIHandlers{
		suggestions: suggestions,
		lists:       lists,
		limiter:     newSimpleRateLimiter(aiRateLimit, aiRateWindow, nil),
	}
}

// Routes wires the /ai endpoints onto the provided router.
func (h *AIHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/select-products", h.selectProducts)
	r.Post("/suggest", h.suggest)
	r.Post("/suggest-batch", h.suggestBatch)
	r.Post("/generate-list", h.generateList)
	r.Get("/trends/{userId}", h.trends)
	r.Get("/alternatives/{productId}", h.alternatives)
	r.Get("/status", h.status)
	r.Post("/cache/clear", h.clearCache)
	r.Get("/cache/stats", h.cacheStats)
}

type clientProfilePayload struct {
	Description string `json:"description"`
	Age         int    `json:"age"`
	Grade       string `json:"grade"`
	Interests   string `json:"interests"`
	Budget      string `json:"budget"`
}

func (p clientProfilePayload) toDomain() domain.ClientProfile {
	return domain.ClientProfile{
		Description: p.Description,
		Age:         p.Age,
		Grade:       p.Grade,
		Interests:   p.Interests,
		Budget:      p.Budget,
	}
}

// hasIdentity reports whether the profile carries at least one of the hints
// the selection prompt can anchor on.
func (p clientProfilePayload) hasIdentity() bool {
	return p.Age > 0 || strings.TrimSpace(p.Grade) != "" || strings.TrimSpace(p.Interests) != ""
}

type requestedItemPayload struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type selectProductsRequest struct {
	ClientProfile     clientProfilePayload   `json:"clientProfile"`
	RequestedItems    []requestedItemPayload `json:"requestedItems"`
	QualityPreference string                 `json:"qualityPreference"`
	ListName          string                 `json:"listName"`
	UserID            string                 `json:"userId"`
}

func (h *AIHandlers) selectProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
		return
	}

	var req selectProductsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	if len(req.RequestedItems) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "requestedItems must not be empty", http.StatusBadRequest))
		return
	}
	if !req.ClientProfile.hasIdentity() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "client profile needs at least age, grade or interests", http.StatusBadRequest))
		return
	}

	items := make([]domain.RequestedItem, 0, len(req.RequestedItems))
	for _, item := range req.RequestedItems {
		items = append(items, domain.RequestedItem{Name: item.Name, Quantity: item.Quantity})
	}

	result, err := h.lists.AssembleList(ctx, services.AssembleListCommand{
		ListName: req.ListName,
		Items:    items,
		Profile:  req.ClientProfile.toDomain(),
		Quality:  domain.ParseQuality(req.QualityPreference),
		UserID:   req.UserID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, assembleResultPayload(result))
}

type suggestRequest struct {
	Item    string `json:"item"`
	Context string `json:"context"`
	Quality string `json:"quality"`
}

func (h *AIHandlers) suggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
		return
	}

	var req suggestRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	suggestion, err := h.suggestions.Suggest(ctx, services.SuggestCommand{
		Query:   req.Item,
		Context: req.Context,
		Quality: domain.ParseQuality(req.Quality),
	})
	if err != nil {
		var miss *services.NoMatchError
		if errors.As(err, &miss) {
			httpx.WriteError(ctx, w, httpx.NewError("no_match", miss.Reason, http.StatusNotFound))
			return
		}
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, suggestionPayload(suggestion))
}

type suggestBatchRequest struct {
	Items   []suggestRequest `json:"items"`
	Quality string           `json:"quality"`
}

func (h *AIHandlers) suggestBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
		return
	}

	var req suggestBatchRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cmds := make([]services.SuggestCommand, 0, len(req.Items))
	for _, item := range req.Items {
		quality := item.Quality
		if quality == "" {
			quality = req.Quality
		}
		cmds = append(cmds, services.SuggestCommand{
			Query:   item.Item,
			Context: item.Context,
			Quality: domain.ParseQuality(quality),
		})
	}

	suggestions, notFound, err := h.suggestions.SuggestBatch(ctx, cmds)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := map[string]any{
		"suggestions":     mapSlice(suggestions, suggestionPayload),
		"not_found_items": mapSlice(notFound, notFoundPayload),
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type generateListRequest struct {
	ListType      string               `json:"listType"`
	Quality       string               `json:"quality"`
	ExtraItems    []string             `json:"extraItems"`
	ClientProfile clientProfilePayload `json:"clientProfile"`
}

func (h *AIHandlers) generateList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(r) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
		return
	}

	var req generateListRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	if strings.TrimSpace(req.ListType) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "listType is required", http.StatusBadRequest))
		return
	}

	generated, err := h.suggestions.GenerateList(ctx, services.GenerateListCommand{
		ListType:   req.ListType,
		Quality:    domain.ParseQuality(req.Quality),
		ExtraItems: req.ExtraItems,
		Profile:    req.ClientProfile.toDomain(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, generatedListPayload(generated))
}

func (h *AIHandlers) trends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.suggestions.Trends(ctx, chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, trendReportPayload(report))
}

func (h *AIHandlers) alternatives(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := chi.URLParam(r, "productId")

	product, alternatives, err := h.suggestions.Alternatives(ctx, productID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"product":      productPayload(product),
		"alternatives": mapSlice(alternatives, productPayload),
	})
}

func (h *AIHandlers) status(w http.ResponseWriter, r *http.Request) {
	status := h.suggestions.Status(r.Context())
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"api_key_configured": status.ModelConfigured,
		"model":              status.Model,
		"cache_entries":      status.CacheEntries,
	})
}

func (h *AIHandlers) clearCache(w http.ResponseWriter, r *http.Request) {
	removed := h.suggestions.ClearCache(r.Context())
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"removed": removed,
	})
}

func (h *AIHandlers) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.suggestions.CacheStats(r.Context())
	keys := stats.Keys
	if keys == nil {
		keys = []string{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"size": stats.Size,
		"keys": keys,
	})
}

func (h *AIHandlers) allow(r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(r.RemoteAddr)
}

func suggestionPayload(s services.Suggestion) map[string]any {
	return map[string]any{
		"product":   productPayload(s.Product),
		"reasoning": s.Reasoning,
		"cached":    s.Cached,
	}
}

func generatedListPayload(list services.GeneratedList) map[string]any {
	return map[string]any{
		"list_name":            list.ListName,
		"list_type":            list.ListType,
		"quality":              string(list.Quality),
		"items":                mapSlice(list.Items, selectedItemPayload),
		"not_found_items":      mapSlice(list.NotFoundItems, notFoundPayload),
		"total_estimated_cost": list.EstimatedTotal,
		"recommendations":      list.Recommendations,
		"cached":               list.Cached,
	}
}

func trendReportPayload(report services.TrendReport) map[string]any {
	return map[string]any{
		"user_id":         report.UserID,
		"lists_analyzed":  report.ListsAnalyzed,
		"total_spent":     report.TotalSpent,
		"trends":          mapSlice(report.Trends, categoryTrendPayload),
		"recommendations": report.Recommendations,
		"cached":          report.Cached,
	}
}

func categoryTrendPayload(trend services.CategoryTrend) map[string]any {
	return map[string]any{
		"category": trend.Category,
		"items":    trend.Items,
		"spent":    trend.Spent,
	}
}
