package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/asistente-compras/api/internal/domain"
	"github.com/asistente-compras/api/internal/services"
)

func aiTestRouter(suggestions services.SuggestionService, lists services.ShoppingListService) chi.Router {
	h := NewAIHandlers(suggestions, lists)
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func TestSelectProducts(t *testing.T) {
	t.Run("requires items", func(t *testing.T) {
		r := aiTestRouter(&stubSuggestionService{}, &stubShoppingListService{})

		req := httptest.NewRequest(http.MethodPost, "/select-products",
			strings.NewReader(`{"clientProfile":{"age":10},"requestedItems":[]}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("requires client profile identity", func(t *testing.T) {
		r := aiTestRouter(&stubSuggestionService{}, &stubShoppingListService{})

		req := httptest.NewRequest(http.MethodPost, "/select-products",
			strings.NewReader(`{"clientProfile":{"description":"alguien"},"requestedItems":[{"name":"lapiz","quantity":1}]}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("assembles the list", func(t *testing.T) {
		var captured services.AssembleListCommand
		lists := &stubShoppingListService{
			assembleFn: func(_ context.Context, cmd services.AssembleListCommand) (services.AssembleListResult, error) {
				captured = cmd
				return services.AssembleListResult{
					List: domain.ShoppingList{ID: "lst_1", Name: "Lista"},
					AddedItems: []domain.SelectedItem{
						{ProductID: "p1", Name: "Lápiz", QuantityRequested: 2, QuantitySelected: 2},
					},
					NotFoundItems: []domain.NotFoundItem{
						{Name: "telescopio", Quantity: 1, Reason: "sin coincidencias"},
					},
				}, nil
			},
		}
		r := aiTestRouter(&stubSuggestionService{}, lists)

		body := `{
			"clientProfile": {"age": 10, "grade": "5to básico"},
			"requestedItems": [{"name": "lápiz", "quantity": 2}, {"name": "telescopio", "quantity": 1}],
			"qualityPreference": "economico",
			"userId": "user-1"
		}`
		req := httptest.NewRequest(http.MethodPost, "/select-products", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.Quality != domain.QualityEconomic || captured.UserID != "user-1" {
			t.Fatalf("unexpected command %+v", captured)
		}
		if captured.Profile.Age != 10 {
			t.Fatalf("expected profile to reach service, got %+v", captured.Profile)
		}

		var payload map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		added, ok := payload["added_items"].([]any)
		if !ok || len(added) != 1 {
			t.Fatalf("unexpected added_items %v", payload)
		}
		missing, ok := payload["not_found_items"].([]any)
		if !ok || len(missing) != 1 {
			t.Fatalf("unexpected not_found_items %v", payload)
		}
	})
}

func TestSuggestEndpoint(t *testing.T) {
	t.Run("no match yields 404", func(t *testing.T) {
		suggestions := &stubSuggestionService{
			suggestFn: func(context.Context, services.SuggestCommand) (services.Suggestion, error) {
				return services.Suggestion{}, &services.NoMatchError{Reason: "sin coincidencias"}
			},
		}
		r := aiTestRouter(suggestions, &stubShoppingListService{})

		req := httptest.NewRequest(http.MethodPost, "/suggest", strings.NewReader(`{"item":"telescopio"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("returns the suggestion", func(t *testing.T) {
		suggestions := &stubSuggestionService{
			suggestFn: func(_ context.Context, cmd services.SuggestCommand) (services.Suggestion, error) {
				if cmd.Query != "cuaderno" {
					t.Fatalf("unexpected query %q", cmd.Query)
				}
				return services.Suggestion{
					Product:   domain.Product{ID: "p1", Name: "Cuaderno"},
					Reasoning: "más barato",
				}, nil
			},
		}
		r := aiTestRouter(suggestions, &stubShoppingListService{})

		req := httptest.NewRequest(http.MethodPost, "/suggest", strings.NewReader(`{"item":"cuaderno","quality":"economico"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var payload map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if payload["reasoning"] != "más barato" {
			t.Fatalf("unexpected payload %v", payload)
		}
	})
}

func TestSuggestBatchEndpoint(t *testing.T) {
	suggestions := &stubSuggestionService{
		batchFn: func(_ context.Context, cmds []services.SuggestCommand) ([]services.Suggestion, []domain.NotFoundItem, error) {
			if len(cmds) != 2 {
				t.Fatalf("expected 2 commands, got %d", len(cmds))
			}
			return []services.Suggestion{{Product: domain.Product{ID: "p1"}}},
				[]domain.NotFoundItem{{Name: "telescopio", Reason: "sin coincidencias"}}, nil
		},
	}
	r := aiTestRouter(suggestions, &stubShoppingListService{})

	body := `{"items":[{"item":"cuaderno"},{"item":"telescopio"}],"quality":"premium"}`
	req := httptest.NewRequest(http.MethodPost, "/suggest-batch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if suggestionsList, ok := payload["suggestions"].([]any); !ok || len(suggestionsList) != 1 {
		t.Fatalf("unexpected suggestions %v", payload)
	}
}

func TestGenerateListEndpoint(t *testing.T) {
	t.Run("requires a list type", func(t *testing.T) {
		r := aiTestRouter(&stubSuggestionService{}, &stubShoppingListService{})

		req := httptest.NewRequest(http.MethodPost, "/generate-list", strings.NewReader(`{"quality":"economico"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown list type yields 404", func(t *testing.T) {
		suggestions := &stubSuggestionService{
			generateFn: func(context.Context, services.GenerateListCommand) (services.GeneratedList, error) {
				return services.GeneratedList{}, services.ErrUnknownListType
			},
		}
		r := aiTestRouter(suggestions, &stubShoppingListService{})

		req := httptest.NewRequest(http.MethodPost, "/generate-list", strings.NewReader(`{"listType":"doctorado"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("returns the generated plan", func(t *testing.T) {
		var captured services.GenerateListCommand
		suggestions := &stubSuggestionService{
			generateFn: func(_ context.Context, cmd services.GenerateListCommand) (services.GeneratedList, error) {
				captured = cmd
				return services.GeneratedList{
					ListName: "Lista Básica - Educación Primaria",
					ListType: "basica",
					Quality:  domain.QualityEconomic,
					Items: []domain.SelectedItem{
						{ProductID: "p1", Name: "Lápiz", QuantityRequested: 10, QuantitySelected: 10, Price: 0.5},
					},
					NotFoundItems:   []domain.NotFoundItem{{Name: "compás", Quantity: 1, Reason: "sin coincidencias"}},
					EstimatedTotal:  5,
					Recommendations: []string{"revisa el stock"},
				}, nil
			},
		}
		r := aiTestRouter(suggestions, &stubShoppingListService{})

		body := `{"listType":"basica","quality":"economico","extraItems":["telescopio"],"clientProfile":{"age":8}}`
		req := httptest.NewRequest(http.MethodPost, "/generate-list", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured.ListType != "basica" || captured.Quality != domain.QualityEconomic {
			t.Fatalf("unexpected command %+v", captured)
		}
		if len(captured.ExtraItems) != 1 || captured.ExtraItems[0] != "telescopio" {
			t.Fatalf("expected extra items to reach the service, got %+v", captured.ExtraItems)
		}
		if captured.Profile.Age != 8 {
			t.Fatalf("expected profile to reach the service, got %+v", captured.Profile)
		}

		var payload map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if payload["list_name"] != "Lista Básica - Educación Primaria" {
			t.Fatalf("unexpected payload %v", payload)
		}
		if payload["total_estimated_cost"] != float64(5) {
			t.Fatalf("unexpected total %v", payload["total_estimated_cost"])
		}
		if items, ok := payload["items"].([]any); !ok || len(items) != 1 {
			t.Fatalf("unexpected items %v", payload)
		}
		if missing, ok := payload["not_found_items"].([]any); !ok || len(missing) != 1 {
			t.Fatalf("unexpected not_found_items %v", payload)
		}
		if recommendations, ok := payload["recommendations"].([]any); !ok || len(recommendations) != 1 {
			t.Fatalf("unexpected recommendations %v", payload)
		}
	})
}

func TestTrendsEndpoint(t *testing.T) {
	suggestions := &stubSuggestionService{
		trendsFn: func(_ context.Context, userID string) (services.TrendReport, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			return services.TrendReport{
				UserID:        "user-1",
				ListsAnalyzed: 2,
				TotalSpent:    22,
				Trends: []services.CategoryTrend{
					{Category: "Papelería", Items: 6, Spent: 12},
				},
				Recommendations: []string{"gasto promedio por lista: $11"},
			}, nil
		},
	}
	r := aiTestRouter(suggestions, &stubShoppingListService{})

	req := httptest.NewRequest(http.MethodGet, "/trends/user-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["lists_analyzed"] != float64(2) || payload["total_spent"] != float64(22) {
		t.Fatalf("unexpected payload %v", payload)
	}
	trends, ok := payload["trends"].([]any)
	if !ok || len(trends) != 1 {
		t.Fatalf("unexpected trends %v", payload)
	}
	top, ok := trends[0].(map[string]any)
	if !ok || top["category"] != "Papelería" || top["spent"] != float64(12) {
		t.Fatalf("unexpected top trend %v", trends[0])
	}
}

func TestAlternativesEndpoint(t *testing.T) {
	suggestions := &stubSuggestionService{
		alternativesFn: func(_ context.Context, productID string) (domain.Product, []domain.Product, error) {
			if productID != "p1" {
				t.Fatalf("unexpected product id %q", productID)
			}
			return domain.Product{ID: "p1", Name: "Mochila escolar"},
				[]domain.Product{{ID: "p2", Name: "Mochila urbana"}}, nil
		},
	}
	r := aiTestRouter(suggestions, &stubShoppingListService{})

	req := httptest.NewRequest(http.MethodGet, "/alternatives/p1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	alternatives, ok := payload["alternatives"].([]any)
	if !ok || len(alternatives) != 1 {
		t.Fatalf("unexpected alternatives %v", payload)
	}
}

func TestStatusAndCacheEndpoints(t *testing.T) {
	suggestions := &stubSuggestionService{
		statusValue: services.SuggestionStatus{ModelConfigured: true, Model: "gemini-1.5-flash", CacheEntries: 3},
		cleared:     3,
		stats:       services.CacheStats{Size: 2, Keys: []string{"suggestion:a", "essence:b"}},
	}
	r := aiTestRouter(suggestions, &stubShoppingListService{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["api_key_configured"] != true || payload["cache_entries"] != float64(3) {
		t.Fatalf("unexpected status payload %v", payload)
	}

	req = httptest.NewRequest(http.MethodPost, "/cache/clear", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["size"] != float64(2) {
		t.Fatalf("unexpected stats payload %v", payload)
	}
}

func TestAIRateLimit(t *testing.T) {
	suggestions := &stubSuggestionService{
		suggestFn: func(context.Context, services.SuggestCommand) (services.Suggestion, error) {
			return services.Suggestion{}, nil
		},
	}
	h := NewAIHandlers(suggestions, &stubShoppingListService{})
	h.limiter = newSimpleRateLimiter(1, time.Minute, nil)
	r := chi.NewRouter()
	h.Routes(r)

	first := httptest.NewRequest(http.MethodPost, "/suggest", strings.NewReader(`{"item":"cuaderno"}`))
	first.RemoteAddr = "1.2.3.4:5000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/suggest", strings.NewReader(`{"item":"cuaderno"}`))
	second.RemoteAddr = "1.2.3.4:5000"
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}
