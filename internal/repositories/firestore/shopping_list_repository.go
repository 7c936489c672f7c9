package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/asistente-compras/api/internal/domain"
	pfirestore "github.com/asistente-compras/api/internal/platform/firestore"
	"github.com/asistente-compras/api/internal/repositories"
)

const (
	listCollection      = "listas"
	listItemsCollection = "listas/%s/items"
)

// ShoppingListRepository persists shopping lists with their items stored as
// documents in a per-list subcollection.
type ShoppingListRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[listDocument]
}

// NewShoppingListRepository constructs a Firestore-backed shopping list repository.
func NewShoppingListRepository(provider *pfirestore.Provider) (*ShoppingListRepository, error) {
	if provider == nil {
		return nil, errors.New("shopping list repository requires firestore provider")
	}
	return &ShoppingListRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[listDocument](provider, listCollection, nil, nil),
	}, nil
}

// CreateList stores the list header document.
func (r *ShoppingListRepository) CreateList(ctx context.Context, list domain.ShoppingList) (domain.ShoppingList, error) {
	id := strings.TrimSpace(list.ID)
	if id == "" {
		return domain.ShoppingList{}, errors.New("shopping list repository: list id is required")
	}

	doc := newListDocument(list)
	if _, err := r.base.Set(ctx, id, doc); err != nil {
		return domain.ShoppingList{}, err
	}
	return doc.toDomain(id), nil
}

// GetList fetches a list header by ID.
func (r *ShoppingListRepository) GetList(ctx context.Context, listID string) (domain.ShoppingList, error) {
	doc, err := r.base.Get(ctx, strings.TrimSpace(listID))
	if err != nil {
		return domain.ShoppingList{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ListLists returns all list headers ordered by most recent creation.
func (r *ShoppingListRepository) ListLists(ctx context.Context) ([]domain.ShoppingList, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}

	lists := make([]domain.ShoppingList, 0, len(docs))
	for _, doc := range docs {
		lists = append(lists, doc.Data.toDomain(doc.ID))
	}
	return lists, nil
}

// AddItems appends the items to the list inside a single transaction.
func (r *ShoppingListRepository) AddItems(ctx context.Context, listID string, items []domain.SelectedItem) error {
	coll, err := r.itemsCollection(ctx, listID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, item := range items {
			ref := coll.NewDoc()
			if err := tx.Set(ref, newItemDocument(item)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pfirestore.WrapError("lists.addItems", err)
	}
	return nil
}

// ReplaceItems atomically deletes the existing items and inserts the new set.
func (r *ShoppingListRepository) ReplaceItems(ctx context.Context, listID string, items []domain.SelectedItem) error {
	coll, err := r.itemsCollection(ctx, listID)
	if err != nil {
		return err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(coll).GetAll()
		if err != nil {
			return err
		}
		for _, snap := range existing {
			if err := tx.Delete(snap.Ref); err != nil {
				return err
			}
		}
		for _, item := range items {
			ref := coll.NewDoc()
			if err := tx.Set(ref, newItemDocument(item)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return pfirestore.WrapError("lists.replaceItems", err)
	}
	return nil
}

// ListItems returns the items of the list ordered by insertion time.
func (r *ShoppingListRepository) ListItems(ctx context.Context, listID string) ([]domain.SelectedItem, error) {
	coll, err := r.itemsCollection(ctx, listID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("createdAt", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var items []domain.SelectedItem
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("lists.listItems", err)
		}
		var doc itemDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode list item %s: %w", snap.Ref.ID, err)
		}
		items = append(items, doc.toDomain(listID))
	}
	return items, nil
}

func (r *ShoppingListRepository) itemsCollection(ctx context.Context, listID string) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("shopping list repository not initialised")
	}
	id := strings.TrimSpace(listID)
	if id == "" {
		return nil, errors.New("shopping list repository: list id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(listItemsCollection, id)), nil
}

type listDocument struct {
	Nombre      string    `firestore:"nombre"`
	Calidad     string    `firestore:"calidad"`
	UserID      string    `firestore:"userId"`
	AIGenerated bool      `firestore:"aiGenerated"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func newListDocument(list domain.ShoppingList) listDocument {
	return listDocument{
		Nombre:      strings.TrimSpace(list.Name),
		Calidad:     string(list.QualityPreference),
		UserID:      strings.TrimSpace(list.UserID),
		AIGenerated: list.AIGenerated,
		CreatedAt:   list.CreatedAt.UTC(),
		UpdatedAt:   list.UpdatedAt.UTC(),
	}
}

func (d listDocument) toDomain(id string) domain.ShoppingList {
	return domain.ShoppingList{
		ID:                id,
		Name:              d.Nombre,
		QualityPreference: domain.ParseQuality(d.Calidad),
		UserID:            d.UserID,
		AIGenerated:       d.AIGenerated,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type itemDocument struct {
	ProductID       string    `firestore:"productoId"`
	Nombre          string    `firestore:"nombre"`
	Precio          float64   `firestore:"precio"`
	Marca           string    `firestore:"marca"`
	Categoria       string    `firestore:"categoria"`
	Calidad         string    `firestore:"calidad"`
	CantidadPedida  int       `firestore:"cantidadPedida"`
	CantidadElegida int       `firestore:"cantidadElegida"`
	Razonamiento    string    `firestore:"razonamiento"`
	CreatedAt       time.Time `firestore:"createdAt"`
}

func newItemDocument(item domain.SelectedItem) itemDocument {
	category := strings.TrimSpace(item.Category)
	if category == "" {
		category = domain.DefaultCategory
	}
	return itemDocument{
		ProductID:       strings.TrimSpace(item.ProductID),
		Nombre:          strings.TrimSpace(item.Name),
		Precio:          item.Price,
		Marca:           strings.TrimSpace(item.Brand),
		Categoria:       category,
		Calidad:         string(item.QualityCategory),
		CantidadPedida:  item.QuantityRequested,
		CantidadElegida: item.QuantitySelected,
		Razonamiento:    item.Reasoning,
		CreatedAt:       item.CreatedAt.UTC(),
	}
}

func (d itemDocument) toDomain(listID string) domain.SelectedItem {
	return domain.SelectedItem{
		ListID:            listID,
		ProductID:         d.ProductID,
		Name:              d.Nombre,
		Price:             d.Precio,
		Brand:             d.Marca,
		Category:          d.Categoria,
		QualityCategory:   domain.ParseQuality(d.Calidad),
		QuantityRequested: d.CantidadPedida,
		QuantitySelected:  d.CantidadElegida,
		Reasoning:         d.Razonamiento,
		CreatedAt:         d.CreatedAt,
	}
}

// Ensure interface compliance.
var _ repositories.ShoppingListRepository = (*ShoppingListRepository)(nil)
