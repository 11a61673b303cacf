package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Conduit/internal/domain"
	"github.com/shaiso/Conduit/internal/mq"
	"github.com/shaiso/Conduit/internal/repo"
	"github.com/shaiso/Conduit/internal/runner"
	"github.com/shaiso/Conduit/internal/skill"
	"github.com/shaiso/Conduit/internal/steps"
)

// RunStore — хранилище runs. Реализуется repo.RunRepo.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	GetByIdempotencyKey(ctx context.Context, pipeline, key string) (*domain.Run, error)
	List(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
	Claim(ctx context.Context, run *domain.Run) error
}

// RequestPublisher ставит runs в очередь. Реализуется mq.Publisher.
type RequestPublisher interface {
	PublishRunRequested(ctx context.Context, payload mq.RunRequestedPayload) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store     RunStore
	runner    *runner.Runner
	registry  *steps.Registry
	skills    *skill.Catalog
	publisher RequestPublisher
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store     RunStore
	Runner    *runner.Runner   // каталог pipeline и выполнение с wait=true
	Registry  *steps.Registry  // для GET /transformers (default: steps.Default())
	Skills    *skill.Catalog   // для GET /skills
	Publisher RequestPublisher // без него runs забирает polling воркера
	Logger    *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = steps.Default()
	}

	skills := cfg.Skills
	if skills == nil {
		skills = skill.NewCatalog()
	}

	return &Handler{
		store:     cfg.Store,
		runner:    cfg.Runner,
		registry:  registry,
		skills:    skills,
		publisher: cfg.Publisher,
		logger:    logger,
	}
}
