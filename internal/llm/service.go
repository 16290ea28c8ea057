package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/RichardoC/dehost/internal/models"
)

const (
	defaultTimeout      = 2 * time.Minute
	defaultHistoryLimit = 20
)

// Generator is the part of llms.Model the service needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Store interface {
	SaveMessage(msg *models.Message) error
	GetConversationHistory(conversationID int64, limit int) ([]models.Message, error)
}

// Sink receives response text as it streams in.
type Sink func(chunk string)

type Service struct {
	llm          Generator
	db           Store
	logger       *zap.Logger
	timeout      time.Duration
	historyLimit int
	systemPrompt string
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(s *Service) { s.systemPrompt = prompt }
}

// New connects to an OpenAI-compatible endpoint.
func New(baseURL, token, model string, database Store, opts ...Option) (*Service, error) {
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return NewWithGenerator(llm, database, opts...)
}

func NewWithGenerator(gen Generator, database Store, opts ...Option) (*Service, error) {
	if gen == nil {
		return nil, errors.New("llm: generator must not be nil")
	}
	if database == nil {
		return nil, errors.New("llm: store must not be nil")
	}
	s := &Service{
		llm:          gen,
		db:           database,
		logger:       zap.NewNop(),
		timeout:      defaultTimeout,
		historyLimit: defaultHistoryLimit,
		systemPrompt: SystemPrompt(DefaultWorkDir),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ProcessMessage answers msg, which must already be saved, in the context of
// its conversation. Chunks are passed to sink while the model streams; the
// full reply is saved and returned.
func (s *Service) ProcessMessage(ctx context.Context, msg models.Message, sink Sink) (*models.Message, error) {
	history, err := s.db.GetConversationHistory(msg.ConvID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var opts []llms.CallOption
	if sink != nil {
		opts = append(opts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			sink(string(chunk))
			return nil
		}))
	}

	start := time.Now()
	resp, err := s.llm.GenerateContent(ctx, buildPrompt(s.systemPrompt, history, msg), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("failed to generate completion: empty response")
	}

	content := strings.TrimSpace(resp.Choices[0].Content)
	s.logger.Debug("Generated response",
		zap.Int64("conversation_id", msg.ConvID),
		zap.Int("history", len(history)),
		zap.Int("chars", len(content)),
		zap.Duration("elapsed", time.Since(start)))

	response := &models.Message{
		ConvID:  msg.ConvID,
		Role:    models.RoleAssistant,
		Content: content,
	}
	if err := s.db.SaveMessage(response); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return response, nil
}

// buildPrompt orders history oldest first and makes sure the current message
// closes the prompt exactly once. history is newest first.
func buildPrompt(system string, history []models.Message, current models.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history)+2)
	if system != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}

	seen := false
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		if current.ID != 0 && h.ID == current.ID {
			seen = true
		}
		out = append(out, llms.TextParts(messageType(h.Role), h.Content))
	}
	if !seen {
		out = append(out, llms.TextParts(messageType(current.Role), current.Content))
	}
	return out
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	default:
		return llms.ChatMessageTypeHuman
	}
}
