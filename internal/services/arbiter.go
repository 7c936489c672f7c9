package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/asistente-compras/api/internal/domain"
)

const (
	defaultModelTimeout = 12 * time.Second

	singleCandidateReasoning = "única opción disponible que coincide con la solicitud"
	modelSelectionReasoning  = "seleccionado por el modelo"

	// modelNullSentinel is what the model must answer when none of the
	// candidates fits the request.
	modelNullSentinel = "NULL"
)

// ErrNoCandidates is returned when selection is attempted over an empty set.
var ErrNoCandidates = errors.New("selection arbiter: candidate list is empty")

// SelectionArbiterDeps bundles collaborators for the selection arbiter. The
// generator is optional; without it every selection is rule-based.
type SelectionArbiterDeps struct {
	Generator TextGenerator
	Timeout   time.Duration
	Clock     func() time.Time
	Logger    *zap.Logger
}

// SelectionArbiter resolves a candidate short-list to exactly one selected
// item, asking the language model when configured and falling back to a
// deterministic rule otherwise.
type SelectionArbiter struct {
	generator TextGenerator
	timeout   time.Duration
	clock     func() time.Time
	logger    *zap.Logger
}

// NewSelectionArbiter constructs an arbiter from its dependencies.
func NewSelectionArbiter(deps SelectionArbiterDeps) (*SelectionArbiter, error) {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SelectionArbiter{
		generator: deps.Generator,
		timeout:   timeout,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// Select picks one product from the candidate list. The model's answer is
// advisory: any error, timeout or unverifiable reply falls back to the
// deterministic rule. Select fails only on an empty candidate list.
func (a *SelectionArbiter) Select(ctx context.Context, item domain.RequestedItem, candidates []domain.Candidate, profile domain.ClientProfile, quality domain.QualityCategory) (domain.SelectedItem, error) {
	if len(candidates) == 0 {
		return domain.SelectedItem{}, ErrNoCandidates
	}

	if len(candidates) == 1 {
		return a.buildSelection(candidates[0].Product, item, singleCandidateReasoning), nil
	}

	if a.generator != nil {
		if selected, ok := a.askModel(ctx, item, candidates, profile, quality); ok {
			return selected, nil
		}
	}

	return a.ruleBasedSelection(item, candidates), nil
}

func (a *SelectionArbiter) askModel(ctx context.Context, item domain.RequestedItem, candidates []domain.Candidate, profile domain.ClientProfile, quality domain.QualityCategory) (domain.SelectedItem, bool) {
	modelCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := buildSelectionPrompt(item, candidates, profile, quality)
	reply, err := a.generator.Generate(modelCtx, prompt)
	if err != nil {
		a.logger.Warn("model selection failed, using rule-based fallback",
			zap.String("item", item.Name),
			zap.Error(err),
		)
		return domain.SelectedItem{}, false
	}

	productID, reasoning, ok := parseSelectionReply(reply, candidates)
	if !ok {
		a.logger.Warn("model reply not usable, using rule-based fallback",
			zap.String("item", item.Name),
			zap.String("reply", reply),
		)
		return domain.SelectedItem{}, false
	}

	for _, candidate := range candidates {
		if candidate.Product.ID == productID {
			return a.buildSelection(candidate.Product, item, reasoning), true
		}
	}
	return domain.SelectedItem{}, false
}

// ruleBasedSelection is the deterministic fallback: prefer candidates whose
// stock covers the request, then the cheapest. It always selects when the
// candidate list is non-empty.
func (a *SelectionArbiter) ruleBasedSelection(item domain.RequestedItem, candidates []domain.Candidate) domain.SelectedItem {
	ranked := make([]domain.Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		iSatisfies := ranked[i].Product.Stock >= item.Quantity
		jSatisfies := ranked[j].Product.Stock >= item.Quantity
		if iSatisfies != jSatisfies {
			return iSatisfies
		}
		return ranked[i].Product.Price < ranked[j].Product.Price
	})

	product := ranked[0].Product
	reasoning := fmt.Sprintf("seleccionado por disponibilidad (%d en stock) y mejor precio ($%.2f)", product.Stock, product.Price)
	return a.buildSelection(product, item, reasoning)
}

func (a *SelectionArbiter) buildSelection(product domain.Product, item domain.RequestedItem, reasoning string) domain.SelectedItem {
	quantity := item.Quantity
	if product.Stock < quantity {
		quantity = product.Stock
	}
	return domain.SelectedItem{
		ProductID:         product.ID,
		Name:              product.Name,
		Price:             product.Price,
		Brand:             product.Brand,
		Category:          product.CategoryOrDefault(),
		QualityCategory:   product.QualityCategory,
		QuantityRequested: item.Quantity,
		QuantitySelected:  quantity,
		Reasoning:         reasoning,
		CreatedAt:         a.clock(),
	}
}

// buildSelectionPrompt enumerates the candidates together with the client
// profile and quality preference, and pins the exact reply format.
func buildSelectionPrompt(item domain.RequestedItem, candidates []domain.Candidate, profile domain.ClientProfile, quality domain.QualityCategory) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Eres un asistente de compras. El cliente necesita: %q (cantidad: %d).\n", item.Name, item.Quantity)

	if !profile.IsEmpty() {
		b.WriteString("Perfil del cliente:")
		if desc := strings.TrimSpace(profile.Description); desc != "" {
			fmt.Fprintf(&b, " %s.", desc)
		}
		if profile.Age > 0 {
			fmt.Fprintf(&b, " Edad: %d.", profile.Age)
		}
		if grade := strings.TrimSpace(profile.Grade); grade != "" {
			fmt.Fprintf(&b, " Grado: %s.", grade)
		}
		if interests := strings.TrimSpace(profile.Interests); interests != "" {
			fmt.Fprintf(&b, " Intereses: %s.", interests)
		}
		if budget := strings.TrimSpace(profile.Budget); budget != "" {
			fmt.Fprintf(&b, " Presupuesto: %s.", budget)
		}
		b.WriteString("\n")
	}
	if quality != domain.QualityAny {
		fmt.Fprintf(&b, "Preferencia de calidad: %s.\n", quality)
	}

	b.WriteString("Productos disponibles:\n")
	for _, candidate := range candidates {
		p := candidate.Product
		fmt.Fprintf(&b, "- id: %s | nombre: %s | precio: $%.2f | marca: %s | stock: %d | categoría: %s\n",
			p.ID, p.Name, p.Price, p.Brand, p.Stock, p.CategoryOrDefault())
	}

	b.WriteString("Responde únicamente con el id del producto más adecuado, ")
	b.WriteString("opcionalmente seguido de \"|\" y una breve justificación. ")
	b.WriteString("Si ninguno es adecuado responde exactamente NULL.")
	return b.String()
}

// parseSelectionReply validates the model's pipe-delimited reply against the
// candidate set. It never guesses: anything that is not a known candidate id
// (or is the NULL sentinel) is rejected.
func parseSelectionReply(reply string, candidates []domain.Candidate) (string, string, bool) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", "", false
	}

	id := reply
	reasoning := ""
	if idx := strings.Index(reply, "|"); idx >= 0 {
		id = strings.TrimSpace(reply[:idx])
		reasoning = strings.TrimSpace(reply[idx+1:])
	}

	if strings.EqualFold(id, modelNullSentinel) {
		return "", "", false
	}
	for _, candidate := range candidates {
		if candidate.Product.ID == id {
			if reasoning == "" {
				reasoning = modelSelectionReasoning
			}
			return id, reasoning, true
		}
	}
	return "", "", false
}
