package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/campusguide/internal/assembler"
	"github.com/cloo-solutions/campusguide/internal/domain"
	"github.com/cloo-solutions/campusguide/internal/telemetry"
)

// Generator produces an answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// MessageRepository persists conversation turns.
type MessageRepository interface {
	Append(ctx context.Context, m *domain.Message) error
}

// AnswerOutput is a generated answer with the retrieval that grounded it.
type AnswerOutput struct {
	Answer    string           `json:"answer"`
	Retrieval *RetrievalOutput `json:"retrieval"`
}

// AnswerService is the calling layer around retrieval: it assembles the
// prompt, generates the reply and persists both turns.
type AnswerService struct {
	retrieval *RetrievalService
	generator Generator
	messages  MessageRepository
	uuidGen   UUIDGenerator
	logger    *zap.Logger
}

// NewAnswerService creates an AnswerService. A nil generator makes Answer
// fail with domain.ErrGeneratorUnavailable.
func NewAnswerService(retrieval *RetrievalService, generator Generator, messages MessageRepository, logger *zap.Logger) *AnswerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerService{
		retrieval: retrieval,
		generator: generator,
		messages:  messages,
		uuidGen:   &DefaultUUIDGenerator{},
		logger:    logger,
	}
}

// Answer runs one retrieval cycle and generates a reply.
func (s *AnswerService) Answer(ctx context.Context, sessionID, query string, force bool) (*AnswerOutput, error) {
	if s.generator == nil {
		return nil, domain.ErrGeneratorUnavailable
	}

	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "answer",
	})
	defer span.End()

	out, err := s.retrieval.RetrieveAndBuildContext(ctx, sessionID, query, force)
	if err != nil {
		return nil, err
	}

	prompt := assembler.Assemble(query, out.Context, out.Search)
	reply, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	s.persist(ctx, out.Context.SessionID, query, reply)
	return &AnswerOutput{Answer: reply, Retrieval: out}, nil
}

func (s *AnswerService) persist(ctx context.Context, sessionID, query, reply string) {
	if s.messages == nil {
		return
	}
	now := time.Now().UTC()
	turns := []*domain.Message{
		domain.NewMessage(s.uuidGen.NewString(), sessionID, domain.RoleUser, query, now),
		domain.NewMessage(s.uuidGen.NewString(), sessionID, domain.RoleAssistant, reply, now.Add(time.Millisecond)),
	}
	for _, m := range turns {
		if err := s.messages.Append(ctx, m); err != nil {
			s.logger.Warn("failed to persist message",
				zap.String("session_id", sessionID),
				zap.String("role", string(m.Role)),
				zap.Error(err))
			return
		}
	}
}
