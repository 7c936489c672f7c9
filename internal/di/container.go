package di

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asistente-compras/api/internal/platform/config"
	"github.com/asistente-compras/api/internal/repositories"
	"github.com/asistente-compras/api/internal/services"
)

// Repositories bundles the persistence contracts the service layer relies on.
type Repositories struct {
	Catalog repositories.CatalogRepository
	Lists   repositories.ShoppingListRepository
	Health  repositories.HealthRepository
}

// Services bundles the service-layer contracts that handlers rely upon.
// Concrete implementations are assembled in NewContainer.
type Services struct {
	Lists       services.ShoppingListService
	Suggestions services.SuggestionService
	Catalog     services.CatalogService
	System      services.SystemService
}

// Deps carries externally constructed collaborators into the container.
// Generator and Publisher are optional; missing ones disable model
// arbitration and event publishing respectively.
type Deps struct {
	Config       config.Config
	Repositories Repositories
	Generator    services.TextGenerator
	Publisher    services.EventPublisher
	Build        services.BuildInfo
	Logger       *zap.Logger
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config   config.Config
	Services Services
}

// NewContainer constructs the runtime dependency graph.
func NewContainer(deps Deps) (*Container, error) {
	if deps.Repositories.Catalog == nil {
		return nil, errors.New("container: catalog repository is required")
	}
	if deps.Repositories.Lists == nil {
		return nil, errors.New("container: list repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := deps.Config

	cache, err := services.NewSuggestionCache(services.SuggestionCacheDeps{
		TTL:      cfg.Cache.TTL,
		Capacity: cfg.Cache.Capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("build suggestion cache: %w", err)
	}

	generator := deps.Generator
	if !cfg.Features.EnableModelSelection {
		generator = nil
	}

	arbiter, err := services.NewSelectionArbiter(services.SelectionArbiterDeps{
		Generator: generator,
		Timeout:   cfg.AI.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build selection arbiter: %w", err)
	}

	essence, err := services.NewEssenceExtractor(services.EssenceExtractorDeps{
		Generator: generator,
		Cache:     cache,
		Timeout:   cfg.AI.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build essence extractor: %w", err)
	}

	var svc Services

	listSvc, err := services.NewShoppingListService(services.ShoppingListServiceDeps{
		Catalog:   deps.Repositories.Catalog,
		Lists:     deps.Repositories.Lists,
		Arbiter:   arbiter,
		Publisher: deps.Publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build shopping list service: %w", err)
	}
	svc.Lists = listSvc

	model := ""
	if generator != nil {
		model = cfg.AI.Model
	}
	suggestionSvc, err := services.NewSuggestionService(services.SuggestionServiceDeps{
		Catalog:         deps.Repositories.Catalog,
		Lists:           deps.Repositories.Lists,
		Arbiter:         arbiter,
		Cache:           cache,
		Essence:         essence,
		Model:           model,
		MaxBatchItems:   cfg.AI.MaxBatchItems,
		MaxAlternatives: cfg.AI.MaxAlternatives,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build suggestion service: %w", err)
	}
	svc.Suggestions = suggestionSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: deps.Repositories.Catalog,
	})
	if err != nil {
		return nil, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	if deps.Repositories.Health != nil {
		build := deps.Build
		if build.StartedAt.IsZero() {
			build.StartedAt = time.Now().UTC()
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: deps.Repositories.Health,
			Build:            build,
		})
		if err != nil {
			return nil, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return &Container{
		Config:   cfg,
		Services: svc,
	}, nil
}
