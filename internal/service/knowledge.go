package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/pagination"
	"github.com/cloo-solutions/campusguide/internal/telemetry"
)

// KnowledgeRepositoryInterface defines the repository interface for knowledge persistence
type KnowledgeRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	GetBySourceURL(ctx context.Context, sourceURL string) (*domain.KnowledgeItem, error)
	Upsert(ctx context.Context, k *domain.KnowledgeItem) error
	ListByCategoryWithCursor(ctx context.Context, category domain.KnowledgeCategory, cursor *pagination.Cursor, limit int) (*KnowledgePageResult, error)
}

type KnowledgePageResult struct {
	Items      []*domain.KnowledgeItem
	NextCursor string
	HasMore    bool
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

const (
	DefaultKnowledgePageSize = 20
	MaxKnowledgePageSize     = 100
)

// IngestOutcome reports what an ingest did to the store.
type IngestOutcome string

const (
	IngestCreated   IngestOutcome = "created"
	IngestUpdated   IngestOutcome = "updated"
	IngestUnchanged IngestOutcome = "unchanged"
)

// KnowledgeService handles business logic for knowledge items
type KnowledgeService struct {
	knowledgeRepo KnowledgeRepositoryInterface
	txRunner      TxRunner
	uuidGen       UUIDGenerator
}

// NewKnowledgeService creates a new KnowledgeService instance. txRunner may be
// nil for read-only use.
func NewKnowledgeService(knowledgeRepo KnowledgeRepositoryInterface, txRunner TxRunner) *KnowledgeService {
	return NewKnowledgeServiceWithUUIDGen(knowledgeRepo, txRunner, &DefaultUUIDGenerator{})
}

// NewKnowledgeServiceWithUUIDGen creates a new KnowledgeService with custom UUID generator (for testing)
func NewKnowledgeServiceWithUUIDGen(knowledgeRepo KnowledgeRepositoryInterface, txRunner TxRunner, uuidGen UUIDGenerator) *KnowledgeService {
	return &KnowledgeService{
		knowledgeRepo: knowledgeRepo,
		txRunner:      txRunner,
		uuidGen:       uuidGen,
	}
}

type ListKnowledgeInput struct {
	Category domain.KnowledgeCategory
	Cursor   string
	Limit    int
}

type ListKnowledgeOutput struct {
	Items   []*domain.KnowledgeItem
	Cursor  string
	HasMore bool
}

// Ingest stores a crawled item keyed by its source URL and queues an
// embedding job in the same transaction. Items whose content hash is
// unchanged are left alone.
func (s *KnowledgeService) Ingest(ctx context.Context, item *domain.KnowledgeItem) (IngestOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Ingest", telemetry.SpanAttributes{
		Category:  string(item.Category),
		Operation: "ingest",
	})
	defer span.End()

	if s.txRunner == nil {
		return "", fmt.Errorf("knowledge ingest requires a transaction runner")
	}

	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = s.uuidGen.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.IsActive = true

	if err := domain.ValidateKnowledgeItem(item); err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid knowledge item", err)
	}

	outcome := IngestCreated
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		existing, err := repos.Knowledge().GetBySourceURL(ctx, item.SourceURL)
		switch {
		case errors.Is(err, domain.ErrKnowledgeNotFound):
		case err != nil:
			return err
		default:
			if existing.ContentHash != "" && existing.ContentHash == item.ContentHash {
				outcome = IngestUnchanged
				item.ID = existing.ID
				return nil
			}
			outcome = IngestUpdated
			item.ID = existing.ID
			item.CreatedAt = existing.CreatedAt
		}

		if err := repos.Knowledge().Upsert(ctx, item); err != nil {
			return err
		}

		job := domain.NewEmbeddingJob(s.uuidGen.NewString(), item.ID, now)
		return repos.EmbeddingJobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return "", err
	}

	span.SetData("outcome", string(outcome))
	return outcome, nil
}

// GetByID retrieves a knowledge item by ID
func (s *KnowledgeService) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.GetByID", telemetry.SpanAttributes{
		Operation: "get",
	})
	defer span.End()

	return s.knowledgeRepo.GetByID(ctx, id)
}

func (s *KnowledgeService) ListKnowledge(ctx context.Context, input ListKnowledgeInput) (*ListKnowledgeOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.ListKnowledge", telemetry.SpanAttributes{
		Category:  string(input.Category),
		Operation: "list",
	})
	defer span.End()

	if input.Category != "" && !domain.IsValidKnowledgeCategory(input.Category) {
		return nil, domain.ErrInvalidKnowledgeCategory
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultKnowledgePageSize
	}
	if limit > MaxKnowledgePageSize {
		limit = MaxKnowledgePageSize
	}

	result, err := s.knowledgeRepo.ListByCategoryWithCursor(ctx, input.Category, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListKnowledgeOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}
