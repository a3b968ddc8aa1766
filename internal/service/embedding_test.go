package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cloo-solutions/campusguide/internal/domain"
)

// MockEmbeddingClient mocks the OpenAI client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockEmbeddingKnowledgeRepo mocks the knowledge repository for embedding service
type MockEmbeddingKnowledgeRepo struct {
	mock.Mock
}

func (m *MockEmbeddingKnowledgeRepo) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockEmbeddingKnowledgeRepo) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func TestEmbeddingService_GenerateEmbedding_Success(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockEmbeddingKnowledgeRepo)
	service := NewEmbeddingService(mockClient, mockRepo)

	ctx := context.Background()
	item := &domain.KnowledgeItem{
		ID:      "knowledge-123",
		Title:   "Special consideration",
		Content: "Apply for special consideration within five working days.",
		Tags:    []string{"policies", "policy"},
	}
	embedding := make([]float32, 1536)
	for i := range embedding {
		embedding[i] = float32(i) * 0.001
	}

	expectedText := "Special consideration\n\nTags: policies, policy\n\nApply for special consideration within five working days."
	mockRepo.On("GetByID", ctx, "knowledge-123").Return(item, nil)
	mockClient.On("GenerateEmbedding", ctx, expectedText).Return(embedding, nil)
	mockRepo.On("UpdateEmbedding", ctx, "knowledge-123", embedding).Return(nil)

	err := service.GenerateEmbedding(ctx, "knowledge-123")

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_GenerateEmbedding_NotFound(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockEmbeddingKnowledgeRepo)
	service := NewEmbeddingService(mockClient, mockRepo)

	ctx := context.Background()
	mockRepo.On("GetByID", ctx, "missing").Return(nil, domain.ErrKnowledgeNotFound)

	err := service.GenerateEmbedding(ctx, "missing")

	assert.ErrorIs(t, err, domain.ErrKnowledgeNotFound)
	mockClient.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestEmbeddingService_GenerateEmbedding_ClientError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockEmbeddingKnowledgeRepo)
	service := NewEmbeddingService(mockClient, mockRepo)

	ctx := context.Background()
	mockRepo.On("GetByID", ctx, "k").Return(&domain.KnowledgeItem{ID: "k", Title: "Fees"}, nil)
	mockClient.On("GenerateEmbedding", ctx, "Fees").Return(nil, errors.New("rate limited"))

	err := service.GenerateEmbedding(ctx, "k")

	assert.ErrorContains(t, err, "failed to generate embedding")
	mockRepo.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
}

func TestEmbeddingService_GenerateEmbedding_UpdateError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockEmbeddingKnowledgeRepo)
	service := NewEmbeddingService(mockClient, mockRepo)

	ctx := context.Background()
	vec := []float32{0.1, 0.2}
	mockRepo.On("GetByID", ctx, "k").Return(&domain.KnowledgeItem{ID: "k", Title: "Fees"}, nil)
	mockClient.On("GenerateEmbedding", ctx, "Fees").Return(vec, nil)
	mockRepo.On("UpdateEmbedding", ctx, "k", vec).Return(errors.New("db down"))

	err := service.GenerateEmbedding(ctx, "k")

	assert.ErrorContains(t, err, "failed to update embedding")
}
