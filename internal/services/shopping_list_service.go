package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	domain "github.com/asistente-compras/api/internal/domain"
	"github.com/asistente-compras/api/internal/repositories"
)

const listIDPrefix = "lst_"

// NewListID generates a ULID-based shopping list identifier.
func NewListID() string {
	return listIDPrefix + ulid.Make().String()
}

var (
	// ErrNoItems signals a request without a single parseable item.
	ErrNoItems = errors.New("shopping list service: no items to process")
	// ErrInvalidQuantity signals an item with a non-positive quantity.
	ErrInvalidQuantity = errors.New("shopping list service: item quantity must be positive")
	// ErrUnknownListType signals an unrecognised standard list identifier.
	ErrUnknownListType = errors.New("shopping list service: unknown standard list type")

	errCatalogRepositoryMissing = errors.New("shopping list service: catalog repository is required")
	errListRepositoryMissing    = errors.New("shopping list service: list repository is required")
	errArbiterMissing           = errors.New("shopping list service: selection arbiter is required")
)

// ShoppingListServiceDeps bundles collaborators for the list assembler.
// Publisher is optional; without it no events are emitted.
type ShoppingListServiceDeps struct {
	Catalog   repositories.CatalogRepository
	Lists     repositories.ShoppingListRepository
	Arbiter   *SelectionArbiter
	Publisher EventPublisher
	Clock     func() time.Time
	NewID     func() string
	Logger    *zap.Logger
}

type shoppingListService struct {
	catalog   repositories.CatalogRepository
	lists     repositories.ShoppingListRepository
	arbiter   *SelectionArbiter
	publisher EventPublisher
	clock     func() time.Time
	newID     func() string
	logger    *zap.Logger
}

var _ ShoppingListService = (*shoppingListService)(nil)

// NewShoppingListService assembles the shopping list service.
func NewShoppingListService(deps ShoppingListServiceDeps) (ShoppingListService, error) {
	if deps.Catalog == nil {
		return nil, errCatalogRepositoryMissing
	}
	if deps.Lists == nil {
		return nil, errListRepositoryMissing
	}
	if deps.Arbiter == nil {
		return nil, errArbiterMissing
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = NewListID
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &shoppingListService{
		catalog:   deps.Catalog,
		lists:     deps.Lists,
		arbiter:   deps.Arbiter,
		publisher: deps.Publisher,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  newID,
		logger: logger,
	}, nil
}

// AssembleList resolves the requested items against the catalog, persists the
// resulting list and reports resolved and unresolved items in request order.
func (s *shoppingListService) AssembleList(ctx context.Context, cmd AssembleListCommand) (AssembleListResult, error) {
	items, err := s.requestedItems(cmd)
	if err != nil {
		return AssembleListResult{}, err
	}

	selected, notFound, err := s.resolveItems(ctx, items, cmd.Profile, cmd.Quality)
	if err != nil {
		return AssembleListResult{}, err
	}

	now := s.clock()
	list := domain.ShoppingList{
		ID:                s.newID(),
		Name:              listName(cmd.ListName, now),
		QualityPreference: cmd.Quality,
		UserID:            strings.TrimSpace(cmd.UserID),
		AIGenerated:       true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	created, err := s.lists.CreateList(ctx, list)
	if err != nil {
		return AssembleListResult{}, err
	}
	for i := range selected {
		selected[i].ListID = created.ID
	}
	if err := s.lists.AddItems(ctx, created.ID, selected); err != nil {
		return AssembleListResult{}, err
	}

	s.publishAssembled(ctx, created, len(selected), len(notFound))

	return AssembleListResult{
		List:          created,
		AddedItems:    selected,
		NotFoundItems: notFound,
	}, nil
}

// GetList returns the list header together with its items.
func (s *shoppingListService) GetList(ctx context.Context, listID string) (domain.ShoppingList, []domain.SelectedItem, error) {
	list, err := s.lists.GetList(ctx, listID)
	if err != nil {
		return domain.ShoppingList{}, nil, err
	}
	items, err := s.lists.ListItems(ctx, list.ID)
	if err != nil {
		return domain.ShoppingList{}, nil, err
	}
	return list, items, nil
}

func (s *shoppingListService) ListLists(ctx context.Context) ([]domain.ShoppingList, error) {
	return s.lists.ListLists(ctx)
}

// ReplaceListItems re-resolves the items and atomically swaps the list's item
// set for the new selection.
func (s *shoppingListService) ReplaceListItems(ctx context.Context, listID string, items []domain.RequestedItem, profile domain.ClientProfile, quality domain.QualityCategory) (AssembleListResult, error) {
	if err := validateItems(items); err != nil {
		return AssembleListResult{}, err
	}

	list, err := s.lists.GetList(ctx, listID)
	if err != nil {
		return AssembleListResult{}, err
	}

	selected, notFound, err := s.resolveItems(ctx, items, profile, quality)
	if err != nil {
		return AssembleListResult{}, err
	}

	for i := range selected {
		selected[i].ListID = list.ID
	}
	if err := s.lists.ReplaceItems(ctx, list.ID, selected); err != nil {
		return AssembleListResult{}, err
	}

	return AssembleListResult{
		List:          list,
		AddedItems:    selected,
		NotFoundItems: notFound,
	}, nil
}

// CreateStandardList instantiates one of the predefined school lists.
func (s *shoppingListService) CreateStandardList(ctx context.Context, listType string, userID string) (AssembleListResult, error) {
	standard, ok := StandardListByType(listType)
	if !ok {
		return AssembleListResult{}, fmt.Errorf("%w: %q", ErrUnknownListType, listType)
	}

	items := make([]domain.RequestedItem, 0, len(standard.Items))
	for _, entry := range standard.Items {
		items = append(items, domain.RequestedItem{Name: entry.Name, Quantity: entry.Quantity})
	}

	return s.AssembleList(ctx, AssembleListCommand{
		ListName: standard.Name,
		Items:    items,
		UserID:   userID,
	})
}

func (s *shoppingListService) StandardListTypes() []string {
	return StandardListTypes()
}

// resolveItems runs the matching pipeline item by item. A miss for one item
// never aborts the others; persistence happens only after every item has
// resolved one way or the other.
func (s *shoppingListService) resolveItems(ctx context.Context, items []domain.RequestedItem, profile domain.ClientProfile, quality domain.QualityCategory) ([]domain.SelectedItem, []domain.NotFoundItem, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		selected []domain.SelectedItem
		notFound []domain.NotFoundItem
	)
	for _, item := range items {
		candidates := StrictCandidates(products, item)
		if len(candidates) == 0 {
			notFound = append(notFound, domain.NotFoundItem{
				Name:     item.Name,
				Quantity: item.Quantity,
				Reason:   strictMissReason,
			})
			continue
		}

		choice, err := s.arbiter.Select(ctx, item, candidates, profile, quality)
		if err != nil {
			notFound = append(notFound, domain.NotFoundItem{
				Name:     item.Name,
				Quantity: item.Quantity,
				Reason:   err.Error(),
			})
			continue
		}
		selected = append(selected, choice)
	}

	return selected, notFound, nil
}

func (s *shoppingListService) publishAssembled(ctx context.Context, list domain.ShoppingList, itemCount, notFoundCount int) {
	if s.publisher == nil {
		return
	}

	event := ListAssembledEvent{
		ListID:        list.ID,
		ListName:      list.Name,
		UserID:        list.UserID,
		Quality:       string(list.QualityPreference),
		ItemCount:     itemCount,
		NotFoundCount: notFoundCount,
		AIGenerated:   list.AIGenerated,
		AssembledAt:   list.CreatedAt,
	}
	if _, err := s.publisher.PublishListAssembled(ctx, event); err != nil {
		// Event delivery must not fail the assembly itself.
		s.logger.Warn("failed to publish list assembled event",
			zap.String("list_id", list.ID),
			zap.Error(err),
		)
	}
}

func (s *shoppingListService) requestedItems(cmd AssembleListCommand) ([]domain.RequestedItem, error) {
	items := cmd.Items
	if len(items) == 0 {
		items = ParseItems(cmd.Text)
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}
	return items, nil
}

func validateItems(items []domain.RequestedItem) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return ErrNoItems
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidQuantity, item.Name)
		}
	}
	return nil
}

func listName(name string, now time.Time) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fmt.Sprintf("Lista de compras %s", now.Format("2006-01-02"))
}
