package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/asistente-compras/api/internal/domain"
)

type stubCatalogRepository struct {
	products []domain.Product
	err      error
}

func (s *stubCatalogRepository) ListProducts(context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubCatalogRepository) GetProduct(_ context.Context, productID string) (domain.Product, error) {
	for _, product := range s.products {
		if product.ID == productID {
			return product, nil
		}
	}
	return domain.Product{}, errors.New("not found")
}

func (s *stubCatalogRepository) UpsertProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	return product, nil
}

func (s *stubCatalogRepository) DeleteProduct(context.Context, string) error { return nil }

type stubListRepository struct {
	created   []domain.ShoppingList
	added     map[string][]domain.SelectedItem
	replaced  map[string][]domain.SelectedItem
	lists     map[string]domain.ShoppingList
	createErr error
	addErr    error
}

func newStubListRepository() *stubListRepository {
	return &stubListRepository{
		added:    map[string][]domain.SelectedItem{},
		replaced: map[string][]domain.SelectedItem{},
		lists:    map[string]domain.ShoppingList{},
	}
}

func (s *stubListRepository) CreateList(_ context.Context, list domain.ShoppingList) (domain.ShoppingList, error) {
	if s.createErr != nil {
		return domain.ShoppingList{}, s.createErr
	}
	s.created = append(s.created, list)
	s.lists[list.ID] = list
	return list, nil
}

func (s *stubListRepository) GetList(_ context.Context, listID string) (domain.ShoppingList, error) {
	list, ok := s.lists[listID]
	if !ok {
		return domain.ShoppingList{}, errors.New("list not found")
	}
	return list, nil
}

func (s *stubListRepository) ListLists(context.Context) ([]domain.ShoppingList, error) {
	lists := make([]domain.ShoppingList, 0, len(s.lists))
	for _, list := range s.lists {
		lists = append(lists, list)
	}
	return lists, nil
}

func (s *stubListRepository) AddItems(_ context.Context, listID string, items []domain.SelectedItem) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added[listID] = append(s.added[listID], items...)
	return nil
}

func (s *stubListRepository) ReplaceItems(_ context.Context, listID string, items []domain.SelectedItem) error {
	s.replaced[listID] = items
	return nil
}

func (s *stubListRepository) ListItems(_ context.Context, listID string) ([]domain.SelectedItem, error) {
	return s.added[listID], nil
}

type stubPublisher struct {
	events []ListAssembledEvent
	err    error
}

func (s *stubPublisher) PublishListAssembled(_ context.Context, event ListAssembledEvent) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.events = append(s.events, event)
	return "msg-1", nil
}

func listServiceFixture(t *testing.T, catalog *stubCatalogRepository, lists *stubListRepository, publisher EventPublisher) ShoppingListService {
	t.Helper()

	arbiter, err := NewSelectionArbiter(SelectionArbiterDeps{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	counter := 0
	svc, err := NewShoppingListService(ShoppingListServiceDeps{
		Catalog:   catalog,
		Lists:     lists,
		Arbiter:   arbiter,
		Publisher: publisher,
		Clock:     func() time.Time { return now },
		NewID: func() string {
			counter++
			return "lst_test"
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func schoolCatalog() *stubCatalogRepository {
	return &stubCatalogRepository{products: []domain.Product{
		{ID: "p1", Name: "Lápiz grafito HB", Price: 0.5, Stock: 50},
		{ID: "p2", Name: "Cuaderno universitario 100 hojas", Price: 3.0, Stock: 20},
		{ID: "p3", Name: "Goma de borrar", Price: 0.8, Stock: 0},
	}}
}

func TestNewShoppingListService(t *testing.T) {
	arbiter, _ := NewSelectionArbiter(SelectionArbiterDeps{})

	if _, err := NewShoppingListService(ShoppingListServiceDeps{Lists: newStubListRepository(), Arbiter: arbiter}); err == nil {
		t.Fatalf("expected error when catalog missing")
	}
	if _, err := NewShoppingListService(ShoppingListServiceDeps{Catalog: schoolCatalog(), Arbiter: arbiter}); err == nil {
		t.Fatalf("expected error when list repository missing")
	}
	if _, err := NewShoppingListService(ShoppingListServiceDeps{Catalog: schoolCatalog(), Lists: newStubListRepository()}); err == nil {
		t.Fatalf("expected error when arbiter missing")
	}
}

func TestAssembleListFromText(t *testing.T) {
	lists := newStubListRepository()
	publisher := &stubPublisher{}
	svc := listServiceFixture(t, schoolCatalog(), lists, publisher)

	result, err := svc.AssembleList(context.Background(), AssembleListCommand{
		ListName: "Vuelta a clases",
		Text:     "2 lápiz\ngoma de borrar\nmicroscopio",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.List.ID != "lst_test" || result.List.Name != "Vuelta a clases" {
		t.Fatalf("unexpected list %+v", result.List)
	}
	if !result.List.AIGenerated {
		t.Fatalf("expected list marked as assistant generated")
	}

	if len(result.AddedItems) != 1 {
		t.Fatalf("expected 1 resolved item, got %d", len(result.AddedItems))
	}
	added := result.AddedItems[0]
	if added.ProductID != "p1" || added.QuantityRequested != 2 || added.QuantitySelected != 2 {
		t.Fatalf("unexpected selection %+v", added)
	}
	if added.ListID != "lst_test" {
		t.Fatalf("expected item bound to list, got %q", added.ListID)
	}
	if added.Category != domain.DefaultCategory {
		t.Fatalf("expected default category, got %q", added.Category)
	}

	// goma de borrar is out of stock, microscopio is not in the catalog;
	// both must surface as not found without aborting the list.
	if len(result.NotFoundItems) != 2 {
		t.Fatalf("expected 2 not-found items, got %d", len(result.NotFoundItems))
	}
	if result.NotFoundItems[0].Name != "goma de borrar" || result.NotFoundItems[0].Reason != strictMissReason {
		t.Fatalf("unexpected not-found entry %+v", result.NotFoundItems[0])
	}

	if len(lists.added["lst_test"]) != 1 {
		t.Fatalf("expected persisted items, got %d", len(lists.added["lst_test"]))
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.ListID != "lst_test" || event.ItemCount != 1 || event.NotFoundCount != 2 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestAssembleListValidation(t *testing.T) {
	svc := listServiceFixture(t, schoolCatalog(), newStubListRepository(), nil)

	if _, err := svc.AssembleList(context.Background(), AssembleListCommand{Text: "  \n  "}); !errors.Is(err, ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}

	_, err := svc.AssembleList(context.Background(), AssembleListCommand{
		Items: []domain.RequestedItem{{Name: "lápiz", Quantity: 0}},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestAssembleListPublisherFailureDoesNotFail(t *testing.T) {
	lists := newStubListRepository()
	publisher := &stubPublisher{err: errors.New("broker down")}
	svc := listServiceFixture(t, schoolCatalog(), lists, publisher)

	if _, err := svc.AssembleList(context.Background(), AssembleListCommand{Text: "2 lápiz"}); err != nil {
		t.Fatalf("expected assembly to succeed despite publish failure, got %v", err)
	}
}

func TestAssembleListPersistenceFailurePropagates(t *testing.T) {
	lists := newStubListRepository()
	lists.createErr = errors.New("store down")
	svc := listServiceFixture(t, schoolCatalog(), lists, nil)

	if _, err := svc.AssembleList(context.Background(), AssembleListCommand{Text: "2 lápiz"}); err == nil {
		t.Fatalf("expected persistence error to propagate")
	}
}

func TestReplaceListItems(t *testing.T) {
	lists := newStubListRepository()
	lists.lists["lst_existing"] = domain.ShoppingList{ID: "lst_existing", Name: "Lista"}
	svc := listServiceFixture(t, schoolCatalog(), lists, nil)

	result, err := svc.ReplaceListItems(context.Background(), "lst_existing",
		[]domain.RequestedItem{{Name: "cuaderno", Quantity: 3}},
		domain.ClientProfile{}, domain.QualityAny)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.AddedItems) != 1 || result.AddedItems[0].ProductID != "p2" {
		t.Fatalf("unexpected result %+v", result.AddedItems)
	}
	if len(lists.replaced["lst_existing"]) != 1 {
		t.Fatalf("expected replaced items to be persisted")
	}
	if lists.replaced["lst_existing"][0].ListID != "lst_existing" {
		t.Fatalf("expected items bound to existing list")
	}
}

func TestReplaceListItemsUnknownList(t *testing.T) {
	svc := listServiceFixture(t, schoolCatalog(), newStubListRepository(), nil)

	_, err := svc.ReplaceListItems(context.Background(), "missing",
		[]domain.RequestedItem{{Name: "cuaderno", Quantity: 1}},
		domain.ClientProfile{}, domain.QualityAny)
	if err == nil {
		t.Fatalf("expected error for unknown list")
	}
}

func TestCreateStandardList(t *testing.T) {
	lists := newStubListRepository()
	svc := listServiceFixture(t, schoolCatalog(), lists, nil)

	result, err := svc.CreateStandardList(context.Background(), "basica", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.List.Name != "Lista Básica - Educación Primaria" {
		t.Fatalf("unexpected list name %q", result.List.Name)
	}
	// catalog only stocks pencils and notebooks, the rest must be reported
	if len(result.AddedItems) != 2 {
		t.Fatalf("expected 2 resolved items, got %d", len(result.AddedItems))
	}
	if len(result.NotFoundItems) != 8 {
		t.Fatalf("expected 8 not-found items, got %d", len(result.NotFoundItems))
	}
}

func TestCreateStandardListUnknownType(t *testing.T) {
	svc := listServiceFixture(t, schoolCatalog(), newStubListRepository(), nil)

	if _, err := svc.CreateStandardList(context.Background(), "doctorado", ""); !errors.Is(err, ErrUnknownListType) {
		t.Fatalf("expected ErrUnknownListType, got %v", err)
	}
}

func TestStandardListTypes(t *testing.T) {
	svc := listServiceFixture(t, schoolCatalog(), newStubListRepository(), nil)

	types := svc.StandardListTypes()
	want := []string{"basica", "media", "preescolar", "tecnico", "universidad"}
	if len(types) != len(want) {
		t.Fatalf("unexpected types %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("unexpected types %v", types)
		}
	}
}
