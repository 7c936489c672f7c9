package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// curatedEssenceTerms is the fallback vocabulary for essence extraction when
// no model is configured. Lookup happens longest-first so "lapiz de color"
// wins over "lapiz".
var curatedEssenceTerms = []string{
	"cuaderno universitario",
	"lapiz de color",
	"lapiz grafito",
	"block de dibujo",
	"goma de borrar",
	"pegamento en barra",
	"calculadora cientifica",
	"mochila",
	"cuaderno",
	"lapiz",
	"lapicero",
	"boligrafo",
	"goma",
	"regla",
	"tijeras",
	"sacapuntas",
	"pegamento",
	"calculadora",
	"estuche",
	"carpeta",
	"compas",
	"transportador",
	"destacador",
	"plumon",
	"tempera",
	"pincel",
	"cartulina",
	"block",
	"agenda",
	"corrector",
	"marcador",
	"archivador",
}

// EssenceExtractorDeps wires the extractor. The generator and cache are
// optional.
type EssenceExtractorDeps struct {
	Generator TextGenerator
	Cache     *SuggestionCache
	Timeout   time.Duration
	Logger    *zap.Logger
}

// EssenceExtractor derives the short core concept of a product name, for
// example "mochila escolar premium" to "mochila". Substitute lookups compare
// essences rather than full names.
type EssenceExtractor struct {
	generator TextGenerator
	cache     *SuggestionCache
	timeout   time.Duration
	logger    *zap.Logger
	terms     []string
}

// NewEssenceExtractor constructs the extractor with the curated term list
// pre-sorted longest first.
func NewEssenceExtractor(deps EssenceExtractorDeps) (*EssenceExtractor, error) {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	terms := make([]string, len(curatedEssenceTerms))
	copy(terms, curatedEssenceTerms)
	sort.SliceStable(terms, func(i, j int) bool {
		return len(terms[i]) > len(terms[j])
	})

	return &EssenceExtractor{
		generator: deps.Generator,
		cache:     deps.Cache,
		timeout:   timeout,
		logger:    logger,
		terms:     terms,
	}, nil
}

// Extract returns the essence of the product name. Model failures fall back
// to the curated term lookup; the result is cached under the essence
// namespace.
func (e *EssenceExtractor) Extract(ctx context.Context, productName string) string {
	normalized := normalizeText(productName)
	if normalized == "" {
		return ""
	}

	key := EssenceKey(normalized)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if essence, isString := cached.(string); isString {
				return essence
			}
		}
	}

	essence := ""
	if e.generator != nil {
		essence = e.askModel(ctx, productName)
	}
	if essence == "" {
		essence = e.lookupTerm(normalized)
	}

	if e.cache != nil {
		e.cache.Put(key, essence)
	}
	return essence
}

func (e *EssenceExtractor) askModel(ctx context.Context, productName string) string {
	modelCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := "Extrae el concepto central del siguiente nombre de producto en una o dos palabras, " +
		"sin marcas ni adjetivos. Responde solo con el concepto.\nProducto: " + strings.TrimSpace(productName)
	reply, err := e.generator.Generate(modelCtx, prompt)
	if err != nil {
		e.logger.Warn("essence extraction via model failed, using term lookup",
			zap.String("product", productName),
			zap.Error(err),
		)
		return ""
	}

	essence := normalizeText(firstLine(reply))
	// Anything long-winded is a model ramble, not an essence.
	if essence == "" || len(strings.Fields(essence)) > 3 {
		return ""
	}
	return essence
}

// lookupTerm finds the longest curated term contained in the normalized
// name. Names outside the vocabulary keep their full normalized form.
func (e *EssenceExtractor) lookupTerm(normalized string) string {
	for _, term := range e.terms {
		if strings.Contains(normalized, term) {
			return term
		}
	}
	return normalized
}

func firstLine(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
