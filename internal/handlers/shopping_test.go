package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/asistente-compras/api/internal/domain"
	"github.com/asistente-compras/api/internal/services"
)

func listTestRouter(lists services.ShoppingListService) chi.Router {
	h := NewListHandlers(lists)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestCreateListEndpoint(t *testing.T) {
	lists := &stubShoppingListService{
		assembleFn: func(_ context.Context, cmd services.AssembleListCommand) (services.AssembleListResult, error) {
			if cmd.Text != "2 lápiz\ncuaderno" {
				t.Fatalf("unexpected text %q", cmd.Text)
			}
			return services.AssembleListResult{
				List: domain.ShoppingList{ID: "lst_1", Name: cmd.ListName},
			}, nil
		},
	}
	r := listTestRouter(lists)

	body := `{"name":"Vuelta a clases","text":"2 lápiz\ncuaderno"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateListValidationError(t *testing.T) {
	lists := &stubShoppingListService{
		assembleFn: func(context.Context, services.AssembleListCommand) (services.AssembleListResult, error) {
			return services.AssembleListResult{}, services.ErrNoItems
		},
	}
	r := listTestRouter(lists)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"  "}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetListEndpoint(t *testing.T) {
	lists := &stubShoppingListService{
		getFn: func(_ context.Context, listID string) (domain.ShoppingList, []domain.SelectedItem, error) {
			if listID != "lst_1" {
				t.Fatalf("unexpected list id %q", listID)
			}
			return domain.ShoppingList{ID: "lst_1", Name: "Lista"},
				[]domain.SelectedItem{{ProductID: "p1", Name: "Lápiz"}}, nil
		},
	}
	r := listTestRouter(lists)

	req := httptest.NewRequest(http.MethodGet, "/lst_1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	items, ok := payload["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("unexpected items %v", payload)
	}
}

func TestListListsEndpoint(t *testing.T) {
	lists := &stubShoppingListService{
		listFn: func(context.Context) ([]domain.ShoppingList, error) {
			return []domain.ShoppingList{{ID: "lst_1"}, {ID: "lst_2"}}, nil
		},
	}
	r := listTestRouter(lists)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	entries, ok := payload["lists"].([]any)
	if !ok || len(entries) != 2 {
		t.Fatalf("unexpected lists %v", payload)
	}
}

func TestReplaceItemsEndpoint(t *testing.T) {
	lists := &stubShoppingListService{
		replaceFn: func(_ context.Context, listID string, items []domain.RequestedItem, _ domain.ClientProfile, quality domain.QualityCategory) (services.AssembleListResult, error) {
			if listID != "lst_1" || len(items) != 1 || quality != domain.QualityPremium {
				return services.AssembleListResult{}, fmt.Errorf("unexpected input %s %v %s", listID, items, quality)
			}
			return services.AssembleListResult{List: domain.ShoppingList{ID: listID}}, nil
		},
	}
	r := listTestRouter(lists)

	body := `{"items":[{"name":"cuaderno","quantity":3}],"quality":"premium"}`
	req := httptest.NewRequest(http.MethodPut, "/lst_1/items", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestStandardListEndpoints(t *testing.T) {
	t.Run("types", func(t *testing.T) {
		r := listTestRouter(&stubShoppingListService{})

		req := httptest.NewRequest(http.MethodGet, "/standard", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var payload map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		types, ok := payload["types"].([]any)
		if !ok || len(types) != 2 {
			t.Fatalf("unexpected types %v", payload)
		}
	})

	t.Run("instantiation", func(t *testing.T) {
		lists := &stubShoppingListService{
			standardFn: func(_ context.Context, listType, userID string) (services.AssembleListResult, error) {
				if listType != "basica" || userID != "user-1" {
					t.Fatalf("unexpected input %s %s", listType, userID)
				}
				return services.AssembleListResult{List: domain.ShoppingList{ID: "lst_1"}}, nil
			},
		}
		r := listTestRouter(lists)

		req := httptest.NewRequest(http.MethodPost, "/standard/basica", strings.NewReader(`{"userId":"user-1"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		lists := &stubShoppingListService{
			standardFn: func(context.Context, string, string) (services.AssembleListResult, error) {
				return services.AssembleListResult{}, services.ErrUnknownListType
			},
		}
		r := listTestRouter(lists)

		req := httptest.NewRequest(http.MethodPost, "/standard/doctorado", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
