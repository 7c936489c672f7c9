package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	domain "github.com/asistente-compras/api/internal/domain"
)

const fuzzyScoreThreshold = 0.4

// maxFuzzyCandidates bounds the short-list handed to the arbiter.
const maxFuzzyCandidates = 5

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lowercases the input and strips diacritics so that "lápiz"
// and "Lapiz" compare equal.
func normalizeText(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	stripped, _, err := transform.String(diacriticStripper, lowered)
	if err != nil {
		return lowered
	}
	return stripped
}

// StrictCandidates filters the catalog down to products whose name contains
// every token of the requested name and whose stock covers the requested
// quantity. Both conditions form a single filter; a product failing either is
// simply not a candidate. Catalog order is preserved.
func StrictCandidates(products []domain.Product, item domain.RequestedItem) []domain.Candidate {
	tokens := strings.Fields(normalizeText(item.Name))
	if len(tokens) == 0 {
		return nil
	}

	var candidates []domain.Candidate
	for _, product := range products {
		if product.Stock < item.Quantity {
			continue
		}
		name := normalizeText(product.Name)
		matched := true
		for _, token := range tokens {
			if !strings.Contains(name, token) {
				matched = false
				break
			}
		}
		if matched {
			candidates = append(candidates, domain.Candidate{Product: product})
		}
	}
	return candidates
}

// strictMissReason is the per-item explanation when no strict candidate exists.
const strictMissReason = "no hay productos que coincidan con ese nombre en el inventario"

// fuzzyScore rates how well a product name matches the requested name using
// token overlap plus substring bonuses. Scores are clamped to [0, 1].
func fuzzyScore(requested, productName string) float64 {
	requested = strings.ToLower(strings.TrimSpace(requested))
	productName = strings.ToLower(strings.TrimSpace(productName))

	requestedTokens := strings.Fields(requested)
	if len(requestedTokens) == 0 {
		return 0
	}
	productTokens := make(map[string]struct{})
	for _, token := range strings.Fields(productName) {
		productTokens[token] = struct{}{}
	}

	overlap := 0
	for _, token := range requestedTokens {
		if _, ok := productTokens[token]; ok {
			overlap++
		}
	}
	score := float64(overlap) / float64(len(requestedTokens))

	if strings.Contains(productName, requested) {
		score += 0.2
	}
	if strings.Contains(requested, productName) {
		score += 0.2
	}

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// FuzzyMatches ranks catalog products against the requested item by fuzzy
// score, keeps those above the threshold with enough stock, and returns the
// top short-list. When nothing qualifies the second return value carries the
// reason to report for the item.
func FuzzyMatches(products []domain.Product, item domain.RequestedItem) ([]domain.Candidate, string) {
	var scored []domain.Candidate
	for _, product := range products {
		score := fuzzyScore(item.Name, product.Name)
		if score > fuzzyScoreThreshold {
			scored = append(scored, domain.Candidate{Product: product, Score: score})
		}
	}
	if len(scored) == 0 {
		return nil, fmt.Sprintf("no se encontró un producto que coincida claramente con %q", item.Name)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	var inStock []domain.Candidate
	for _, candidate := range scored {
		if candidate.Product.Stock >= item.Quantity {
			inStock = append(inStock, candidate)
		}
	}
	if len(inStock) == 0 {
		best := scored[0].Product
		return nil, fmt.Sprintf("stock insuficiente: %q tiene %d unidades y se pidieron %d", best.Name, best.Stock, item.Quantity)
	}

	if len(inStock) > maxFuzzyCandidates {
		inStock = inStock[:maxFuzzyCandidates]
	}
	return inStock, ""
}
