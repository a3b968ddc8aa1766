// Package openai wraps go-openai for query and knowledge embeddings and for
// answer generation.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultEmbeddingModel      = openai.SmallEmbedding3
	DefaultEmbeddingDimensions = 1536
	DefaultChatModel           = openai.GPT4oMini
	defaultMaxTokens           = 800
)

// SystemPrompt frames every generated answer.
const SystemPrompt = "You are a helpful assistant for students of RMIT University. " +
	"Answer using the conversation and search results provided. Cite result URLs when you use them. " +
	"If the results do not contain the answer, say so and point to the most relevant official link."

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrNoAPIKey        = errors.New("openai api key not configured")
	ErrNoChoices       = errors.New("chat completion returned no choices")
)

// API is the subset of the OpenAI API the client uses.
type API interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
	CreateChatCompletion(ctx context.Context, system, prompt string) (string, error)
}

// Client generates embeddings and answers.
type Client struct {
	api        API
	dimensions int
}

// Adapter implements API over go-openai.
type Adapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
	maxTokens      int
}

func NewAdapter(cfg Config) *Adapter {
	ocfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		ocfg.BaseURL = cfg.BaseURL
	}
	a := &Adapter{
		client:         openai.NewClientWithConfig(ocfg),
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
		maxTokens:      cfg.MaxTokens,
	}
	if a.embeddingModel == "" {
		a.embeddingModel = DefaultEmbeddingModel
	}
	if a.chatModel == "" {
		a.chatModel = DefaultChatModel
	}
	if a.maxTokens <= 0 {
		a.maxTokens = defaultMaxTokens
	}
	return a
}

// CreateEmbeddings calls the embeddings endpoint.
func (a *Adapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// CreateChatCompletion sends one system and one user message.
func (a *Adapter) CreateChatCompletion(ctx context.Context, system, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.chatModel,
		MaxTokens: a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
	MaxTokens           int
}

// NewClient creates a client with default models.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        NewAdapter(cfg),
		dimensions: dimensions,
	}
}

// NewClientIfConfigured returns nil when no API key is set, so callers can
// treat embeddings and generation as optional.
func NewClientIfConfigured(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	return NewClientWithConfig(cfg), nil
}

// GenerateEmbedding embeds text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

// Generate answers an assembled prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyText
	}
	answer, err := c.api.CreateChatCompletion(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
