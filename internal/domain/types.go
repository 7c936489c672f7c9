package domain

import (
	"strings"
	"time"
)

// DefaultCategory is assigned to products and selected items whose catalog
// entry carries no category.
const DefaultCategory = "Otros"

// QualityCategory is the closed set of quality tiers a product may belong to.
// The empty value means the product has no declared tier ("cualquiera" from
// the caller's perspective).
type QualityCategory string

const (
	QualityAny          QualityCategory = ""
	QualityEconomic     QualityCategory = "economico"
	QualityIntermediate QualityCategory = "intermedio"
	QualityPremium      QualityCategory = "premium"
)

// ParseQuality normalises free-form quality input to a known tier. Unknown
// values collapse to QualityAny rather than failing the request.
func ParseQuality(value string) QualityCategory {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(QualityEconomic), "económico", "economica", "económica":
		return QualityEconomic
	case string(QualityIntermediate), "intermedia":
		return QualityIntermediate
	case string(QualityPremium):
		return QualityPremium
	default:
		return QualityAny
	}
}

// Product is a catalog entry. The catalog is the read-only source the
// matching pipeline draws candidates from; mutations happen only through
// catalog-management operations.
type Product struct {
	ID              string
	Name            string
	Description     string
	Price           float64
	Stock           int
	Brand           string
	Category        string
	QualityCategory QualityCategory
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CategoryOrDefault returns the product category, falling back to
// DefaultCategory when the catalog entry has none.
func (p Product) CategoryOrDefault() string {
	if trimmed := strings.TrimSpace(p.Category); trimmed != "" {
		return trimmed
	}
	return DefaultCategory
}

// RequestedItem is one parsed line of a shopping request. Never persisted.
type RequestedItem struct {
	Name     string
	Quantity int
}

// ClientProfile carries descriptive hints about the person the list is for.
// All fields are advisory; none constrain matching.
type ClientProfile struct {
	Description string
	Age         int
	Grade       string
	Interests   string
	Budget      string
}

// IsEmpty reports whether the profile carries no usable hint at all.
func (p ClientProfile) IsEmpty() bool {
	return strings.TrimSpace(p.Description) == "" &&
		p.Age == 0 &&
		strings.TrimSpace(p.Grade) == "" &&
		strings.TrimSpace(p.Interests) == "" &&
		strings.TrimSpace(p.Budget) == ""
}

// Candidate is a product scored against one requested item. Scores live in
// [0,1]; strict candidates carry no score and use zero.
type Candidate struct {
	Product Product
	Score   float64
}

// SelectedItem is a product bound into a shopping list together with the
// request that produced it and the reasoning behind the choice.
type SelectedItem struct {
	ListID            string
	ProductID         string
	Name              string
	Price             float64
	Brand             string
	Category          string
	QualityCategory   QualityCategory
	QuantityRequested int
	QuantitySelected  int
	Reasoning         string
	CreatedAt         time.Time
}

// NotFoundItem records a requested item the pipeline could not resolve,
// with a human-readable reason.
type NotFoundItem struct {
	Name     string
	Quantity int
	Reason   string
}

// ShoppingList owns an ordered set of selected items stored as separate
// documents referencing the list by ID.
type ShoppingList struct {
	ID                string
	Name              string
	QualityPreference QualityCategory
	UserID            string
	AIGenerated       bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StandardListItem is one entry of a predefined school list.
type StandardListItem struct {
	Name     string
	Quantity int
	Category string
}

// StandardList is a named, predefined set of school supplies that can be
// instantiated as a shopping list.
type StandardList struct {
	Name  string
	Items []StandardListItem
}
