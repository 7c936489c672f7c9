package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/asistente-compras/api/internal/domain"
)

func suggestionServiceFixture(t *testing.T, catalog *stubCatalogRepository, generator TextGenerator) SuggestionService {
	t.Helper()
	return buildSuggestionService(t, catalog, newStubListRepository(), generator)
}

func buildSuggestionService(t *testing.T, catalog *stubCatalogRepository, lists *stubListRepository, generator TextGenerator) SuggestionService {
	t.Helper()

	arbiter, err := NewSelectionArbiter(SelectionArbiterDeps{Generator: generator})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache, err := NewSuggestionCache(SuggestionCacheDeps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	essence, err := NewEssenceExtractor(EssenceExtractorDeps{Cache: cache})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	model := ""
	if generator != nil {
		model = "gemini-1.5-flash"
	}
	svc, err := NewSuggestionService(SuggestionServiceDeps{
		Catalog: catalog,
		Lists:   lists,
		Arbiter: arbiter,
		Cache:   cache,
		Essence: essence,
		Model:   model,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func suggestionCatalog() *stubCatalogRepository {
	return &stubCatalogRepository{products: []domain.Product{
		{ID: "p1", Name: "cuaderno universitario", Price: 3.0, Stock: 10},
		{ID: "p2", Name: "cuaderno", Price: 2.0, Stock: 5},
		{ID: "p3", Name: "mochila escolar", Price: 15.0, Stock: 3},
		{ID: "p4", Name: "mochila urbana", Price: 25.0, Stock: 0},
	}}
}

func TestSuggest(t *testing.T) {
	t.Run("requires a query", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionCatalog(), nil)
		if _, err := svc.Suggest(context.Background(), SuggestCommand{Query: "  "}); !errors.Is(err, ErrEmptyQuery) {
			t.Fatalf("expected ErrEmptyQuery, got %v", err)
		}
	})

	t.Run("rule-based pick without model", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionCatalog(), nil)

		suggestion, err := svc.Suggest(context.Background(), SuggestCommand{Query: "cuaderno"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// both notebooks qualify, the cheaper one wins
		if suggestion.Product.ID != "p2" {
			t.Fatalf("expected p2, got %s", suggestion.Product.ID)
		}
		if suggestion.Cached {
			t.Fatalf("first answer must not be cached")
		}
	})

	t.Run("no clear match", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionCatalog(), nil)

		_, err := svc.Suggest(context.Background(), SuggestCommand{Query: "telescopio"})
		var miss *NoMatchError
		if !errors.As(err, &miss) {
			t.Fatalf("expected NoMatchError, got %v", err)
		}
		if !strings.Contains(miss.Reason, "telescopio") {
			t.Fatalf("expected reason to cite the query, got %q", miss.Reason)
		}
	})

	t.Run("second call hits the cache", func(t *testing.T) {
		gen := &stubGenerator{reply: "p1|mejor para universitarios"}
		svc := suggestionServiceFixture(t, suggestionCatalog(), gen)

		first, err := svc.Suggest(context.Background(), SuggestCommand{Query: "cuaderno"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := svc.Suggest(context.Background(), SuggestCommand{Query: "Cuaderno "})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gen.calls != 1 {
			t.Fatalf("expected one model call, got %d", gen.calls)
		}
		if !second.Cached || second.Product.ID != first.Product.ID {
			t.Fatalf("expected cached answer, got %+v", second)
		}
	})

	t.Run("context feeds the prompt", func(t *testing.T) {
		gen := &stubGenerator{reply: "p1"}
		svc := suggestionServiceFixture(t, suggestionCatalog(), gen)

		if _, err := svc.Suggest(context.Background(), SuggestCommand{Query: "cuaderno", Context: "para la universidad"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(gen.last, "para la universidad") {
			t.Fatalf("expected context in prompt, got %q", gen.last)
		}
	})
}

func TestSuggestBatch(t *testing.T) {
	t.Run("mixed hits and misses", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionCatalog(), nil)

		suggestions, notFound, err := svc.SuggestBatch(context.Background(), []SuggestCommand{
			{Query: "cuaderno"},
			{Query: "telescopio"},
			{Query: "mochila"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(suggestions) != 2 {
			t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
		}
		if len(notFound) != 1 || notFound[0].Name != "telescopio" {
			t.Fatalf("unexpected not-found %+v", notFound)
		}
	})

	t.Run("batch limit enforced", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionCatalog(), nil)

		cmds := make([]SuggestCommand, 6)
		for i := range cmds {
			cmds[i] = SuggestCommand{Query: "cuaderno"}
		}
		if _, _, err := svc.SuggestBatch(context.Background(), cmds); !errors.Is(err, ErrTooManyItems) {
			t.Fatalf("expected ErrTooManyItems, got %v", err)
		}
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionCatalog(), nil)
		if _, _, err := svc.SuggestBatch(context.Background(), nil); !errors.Is(err, ErrEmptyQuery) {
			t.Fatalf("expected ErrEmptyQuery, got %v", err)
		}
	})
}

func suggestionSchoolCatalog() *stubCatalogRepository {
	return &stubCatalogRepository{products: []domain.Product{
		{ID: "c1", Name: "Cuaderno universitario 100 hojas", Price: 2.5, Stock: 40, Category: "Papelería"},
		{ID: "l1", Name: "Lápiz grafito HB", Price: 0.5, Stock: 100, Category: "Escritura"},
		{ID: "m1", Name: "Mochila escolar", Price: 15, Stock: 5, Category: "Accesorios"},
	}}
}

func TestGenerateList(t *testing.T) {
	t.Run("requires a list type", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionSchoolCatalog(), nil)
		if _, err := svc.GenerateList(context.Background(), GenerateListCommand{ListType: "  "}); !errors.Is(err, ErrEmptyListType) {
			t.Fatalf("expected ErrEmptyListType, got %v", err)
		}
	})

	t.Run("unknown list type", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionSchoolCatalog(), nil)
		if _, err := svc.GenerateList(context.Background(), GenerateListCommand{ListType: "doctorado"}); !errors.Is(err, ErrUnknownListType) {
			t.Fatalf("expected ErrUnknownListType, got %v", err)
		}
	})

	t.Run("resolves a standard list against the catalog", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionSchoolCatalog(), nil)

		generated, err := svc.GenerateList(context.Background(), GenerateListCommand{ListType: "Basica"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if generated.ListName != "Lista Básica - Educación Primaria" {
			t.Fatalf("unexpected list name %q", generated.ListName)
		}
		if len(generated.Items) != 3 {
			t.Fatalf("expected 3 resolved items, got %+v", generated.Items)
		}
		if len(generated.NotFoundItems) != 7 {
			t.Fatalf("expected 7 unresolved items, got %d", len(generated.NotFoundItems))
		}
		// 5 notebooks at 2.5, 10 pencils at 0.5 and one backpack at 15
		if generated.EstimatedTotal != 32.5 {
			t.Fatalf("unexpected estimated total %v", generated.EstimatedTotal)
		}
		if len(generated.Recommendations) == 0 {
			t.Fatal("expected at least one recommendation")
		}
		if generated.Cached {
			t.Fatal("first answer must not be cached")
		}
	})

	t.Run("extra items are capped at three", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionSchoolCatalog(), nil)

		generated, err := svc.GenerateList(context.Background(), GenerateListCommand{
			ListType:   "basica",
			ExtraItems: []string{"telescopio", "  ", "microscopio", "regla t", "globo terraqueo"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(generated.NotFoundItems) != 10 {
			t.Fatalf("expected 10 unresolved items, got %d", len(generated.NotFoundItems))
		}
		for _, item := range generated.NotFoundItems {
			if item.Name == "globo terraqueo" {
				t.Fatal("fourth extra item must be dropped")
			}
		}
	})

	t.Run("second call hits the cache", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionSchoolCatalog(), nil)

		first, err := svc.GenerateList(context.Background(), GenerateListCommand{ListType: "basica", Quality: domain.QualityIntermediate})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := svc.GenerateList(context.Background(), GenerateListCommand{ListType: " BASICA ", Quality: domain.QualityIntermediate})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !second.Cached || second.EstimatedTotal != first.EstimatedTotal {
			t.Fatalf("expected cached answer, got %+v", second)
		}

		premium, err := svc.GenerateList(context.Background(), GenerateListCommand{ListType: "basica", Quality: domain.QualityPremium})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if premium.Cached {
			t.Fatal("different quality must not share the cache entry")
		}
	})
}

func TestTrends(t *testing.T) {
	t.Run("requires a user id", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionSchoolCatalog(), nil)
		if _, err := svc.Trends(context.Background(), "  "); !errors.Is(err, ErrEmptyUserID) {
			t.Fatalf("expected ErrEmptyUserID, got %v", err)
		}
	})

	t.Run("aggregates spending per category for the user", func(t *testing.T) {
		lists := newStubListRepository()
		lists.lists["lst_1"] = domain.ShoppingList{ID: "lst_1", UserID: "u1"}
		lists.added["lst_1"] = []domain.SelectedItem{
			{Category: "Papelería", Price: 2.5, QuantitySelected: 4},
			{Category: "", Price: 10, QuantitySelected: 1},
		}
		lists.lists["lst_2"] = domain.ShoppingList{ID: "lst_2", UserID: "u1"}
		lists.added["lst_2"] = []domain.SelectedItem{
			{Category: "Papelería", Price: 1, QuantitySelected: 2},
		}
		lists.lists["lst_3"] = domain.ShoppingList{ID: "lst_3", UserID: "u2"}
		lists.added["lst_3"] = []domain.SelectedItem{
			{Category: "Papelería", Price: 99, QuantitySelected: 1},
		}
		svc := buildSuggestionService(t, suggestionSchoolCatalog(), lists, nil)

		report, err := svc.Trends(context.Background(), "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.ListsAnalyzed != 2 {
			t.Fatalf("expected 2 lists analysed, got %d", report.ListsAnalyzed)
		}
		if report.TotalSpent != 22 {
			t.Fatalf("expected total 22, got %v", report.TotalSpent)
		}
		if len(report.Trends) != 2 {
			t.Fatalf("expected 2 category trends, got %+v", report.Trends)
		}
		// biggest spend first, uncategorised items land in the default bucket
		if report.Trends[0].Category != "Papelería" || report.Trends[0].Spent != 12 || report.Trends[0].Items != 6 {
			t.Fatalf("unexpected top trend %+v", report.Trends[0])
		}
		if report.Trends[1].Category != domain.DefaultCategory || report.Trends[1].Spent != 10 {
			t.Fatalf("unexpected second trend %+v", report.Trends[1])
		}
		if len(report.Recommendations) == 0 {
			t.Fatal("expected recommendations")
		}
		if report.Cached {
			t.Fatal("first answer must not be cached")
		}
	})

	t.Run("history capped at ten lists", func(t *testing.T) {
		lists := newStubListRepository()
		base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 12; i++ {
			id := fmt.Sprintf("lst_%02d", i)
			lists.lists[id] = domain.ShoppingList{ID: id, UserID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
			lists.added[id] = []domain.SelectedItem{{Category: "Papelería", Price: 1, QuantitySelected: 1}}
		}
		svc := buildSuggestionService(t, suggestionSchoolCatalog(), lists, nil)

		report, err := svc.Trends(context.Background(), "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.ListsAnalyzed != 10 {
			t.Fatalf("expected analysis capped at 10 lists, got %d", report.ListsAnalyzed)
		}
		if report.TotalSpent != 10 {
			t.Fatalf("expected total 10, got %v", report.TotalSpent)
		}
	})

	t.Run("second call hits the cache", func(t *testing.T) {
		lists := newStubListRepository()
		lists.lists["lst_1"] = domain.ShoppingList{ID: "lst_1", UserID: "u1"}
		lists.added["lst_1"] = []domain.SelectedItem{{Category: "Papelería", Price: 2, QuantitySelected: 1}}
		svc := buildSuggestionService(t, suggestionSchoolCatalog(), lists, nil)

		if _, err := svc.Trends(context.Background(), "u1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// mutate the store; a cached report must not notice
		lists.added["lst_1"] = append(lists.added["lst_1"], domain.SelectedItem{Category: "Escritura", Price: 5, QuantitySelected: 1})

		report, err := svc.Trends(context.Background(), "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !report.Cached || report.TotalSpent != 2 {
			t.Fatalf("expected cached report, got %+v", report)
		}
	})

	t.Run("empty history yields guidance", func(t *testing.T) {
		svc := suggestionServiceFixture(t, suggestionSchoolCatalog(), nil)

		report, err := svc.Trends(context.Background(), "nadie")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.ListsAnalyzed != 0 || report.TotalSpent != 0 {
			t.Fatalf("unexpected report %+v", report)
		}
		if len(report.Recommendations) != 1 {
			t.Fatalf("expected a single guidance line, got %+v", report.Recommendations)
		}
	})
}

func TestAlternatives(t *testing.T) {
	svc := suggestionServiceFixture(t, suggestionCatalog(), nil)

	product, alternatives, err := svc.Alternatives(context.Background(), "p3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.ID != "p3" {
		t.Fatalf("unexpected product %+v", product)
	}
	// p4 shares the essence but is out of stock, p3 is the original
	if len(alternatives) != 0 {
		t.Fatalf("expected no alternatives, got %+v", alternatives)
	}

	product, alternatives, err = svc.Alternatives(context.Background(), "p2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.ID != "p2" {
		t.Fatalf("unexpected product %+v", product)
	}
	if len(alternatives) != 1 || alternatives[0].ID != "p1" {
		t.Fatalf("expected p1 as alternative, got %+v", alternatives)
	}
}

func TestStatusAndCacheManagement(t *testing.T) {
	gen := &stubGenerator{reply: "p1"}
	svc := suggestionServiceFixture(t, suggestionCatalog(), gen)

	status := svc.Status(context.Background())
	if !status.ModelConfigured || status.Model != "gemini-1.5-flash" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.CacheEntries != 0 {
		t.Fatalf("expected empty cache, got %d", status.CacheEntries)
	}

	if _, err := svc.Suggest(context.Background(), SuggestCommand{Query: "cuaderno"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := svc.CacheStats(context.Background())
	if stats.Size != 1 {
		t.Fatalf("expected one cached entry, got %+v", stats)
	}

	if removed := svc.ClearCache(context.Background()); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	stats = svc.CacheStats(context.Background())
	if stats.Size != 0 || len(stats.Keys) != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
}
