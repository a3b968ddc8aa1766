package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingKnowledgeRepository defines the repository interface for embedding operations
type EmbeddingKnowledgeRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService handles embedding generation for knowledge items
type EmbeddingService struct {
	client EmbeddingClient
	repo   EmbeddingKnowledgeRepository
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, repo EmbeddingKnowledgeRepository) *EmbeddingService {
	return &EmbeddingService{client: client, repo: repo}
}

// GenerateEmbedding generates and stores an embedding for the given knowledge ID.
// It is called by the background worker.
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, knowledgeID string) error {
	item, err := s.repo.GetByID(ctx, knowledgeID)
	if err != nil {
		return err
	}

	embedding, err := s.client.GenerateEmbedding(ctx, buildEmbeddingText(item))
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.repo.UpdateEmbedding(ctx, knowledgeID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}

func buildEmbeddingText(k *domain.KnowledgeItem) string {
	var parts []string

	if k.Title != "" {
		parts = append(parts, k.Title)
	}
	if len(k.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(k.Tags, ", "))
	}
	if k.Content != "" {
		parts = append(parts, k.Content)
	}

	return strings.Join(parts, "\n\n")
}
