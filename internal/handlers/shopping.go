package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/asistente-compras/api/internal/domain"
	"github.com/asistente-compras/api/internal/services"
)

// ListHandlers exposes shopping list management endpoints.
type ListHandlers struct {
	lists services.ShoppingListService
}

// NewListHandlers constructs the shopping list handlers.
func NewListHandlers(lists services.ShoppingListService) *ListHandlers {
	return &ListHandlers{lists: lists}
}

// Routes wires the /lists endpoints onto the provided router.
func (h *ListHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listLists)
	r.Post("/", h.createList)
	r.Get("/standard", h.standardTypes)
	r.Post("/standard/{listType}", h.createStandardList)
	r.Get("/{listId}", h.getList)
	r.Put("/{listId}/items", h.replaceItems)
}

type createListRequest struct {
	Name          string                 `json:"name"`
	Text          string                 `json:"text"`
	Items         []requestedItemPayload `json:"items"`
	ClientProfile clientProfilePayload   `json:"clientProfile"`
	Quality       string                 `json:"quality"`
	UserID        string                 `json:"userId"`
}

func (h *ListHandlers) createList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createListRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	items := make([]domain.RequestedItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.RequestedItem{Name: item.Name, Quantity: item.Quantity})
	}

	result, err := h.lists.AssembleList(ctx, services.AssembleListCommand{
		ListName: req.Name,
		Text:     req.Text,
		Items:    items,
		Profile:  req.ClientProfile.toDomain(),
		Quality:  domain.ParseQuality(req.Quality),
		UserID:   req.UserID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, assembleResultPayload(result))
}

func (h *ListHandlers) listLists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lists, err := h.lists.ListLists(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"lists": mapSlice(lists, listPayload),
	})
}

func (h *ListHandlers) getList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, items, err := h.lists.GetList(ctx, chi.URLParam(r, "listId"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := listPayload(list)
	payload["items"] = mapSlice(items, selectedItemPayload)
	writeJSONResponse(w, http.StatusOK, payload)
}

type replaceItemsRequest struct {
	Items         []requestedItemPayload `json:"items"`
	ClientProfile clientProfilePayload   `json:"clientProfile"`
	Quality       string                 `json:"quality"`
}

func (h *ListHandlers) replaceItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req replaceItemsRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	items := make([]domain.RequestedItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.RequestedItem{Name: item.Name, Quantity: item.Quantity})
	}

	result, err := h.lists.ReplaceListItems(ctx, chi.URLParam(r, "listId"), items,
		req.ClientProfile.toDomain(), domain.ParseQuality(req.Quality))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, assembleResultPayload(result))
}

func (h *ListHandlers) standardTypes(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"types": h.lists.StandardListTypes(),
	})
}

type createStandardListRequest struct {
	UserID string `json:"userId"`
}

func (h *ListHandlers) createStandardList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createStandardListRequest
	if err := decodeJSONBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(ctx, w, err)
		return
	}

	result, err := h.lists.CreateStandardList(ctx, chi.URLParam(r, "listType"), req.UserID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, assembleResultPayload(result))
}

func mapSlice[T any, R any](values []T, fn func(T) R) []R {
	result := make([]R, 0, len(values))
	for _, value := range values {
		result = append(result, fn(value))
	}
	return result
}

func assembleResultPayload(result services.AssembleListResult) map[string]any {
	return map[string]any{
		"list":            listPayload(result.List),
		"added_items":     mapSlice(result.AddedItems, selectedItemPayload),
		"not_found_items": mapSlice(result.NotFoundItems, notFoundPayload),
	}
}

func listPayload(list domain.ShoppingList) map[string]any {
	return map[string]any{
		"id":           list.ID,
		"name":         list.Name,
		"quality":      string(list.QualityPreference),
		"user_id":      list.UserID,
		"ai_generated": list.AIGenerated,
		"created_at":   formatTime(list.CreatedAt),
		"updated_at":   formatTime(list.UpdatedAt),
	}
}

func selectedItemPayload(item domain.SelectedItem) map[string]any {
	return map[string]any{
		"product_id":         item.ProductID,
		"name":               item.Name,
		"price":              item.Price,
		"brand":              item.Brand,
		"category":           item.Category,
		"quality":            string(item.QualityCategory),
		"quantity_requested": item.QuantityRequested,
		"quantity_selected":  item.QuantitySelected,
		"reasoning":          item.Reasoning,
	}
}

func notFoundPayload(item domain.NotFoundItem) map[string]any {
	return map[string]any{
		"name":     item.Name,
		"quantity": item.Quantity,
		"reason":   item.Reason,
	}
}
