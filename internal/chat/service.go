// Package chat implements the AI chat completion service. The provider call
// is blocking by nature, so it is dispatched through the shared worker pool
// rather than run on the caller's goroutine.
package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dileep-u-k/chatbot-gateway/internal/api"
	"github.com/dileep-u-k/chatbot-gateway/internal/worker"
)

// Provider is the completion backend. Implementations block until the
// provider answers.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service validates, sanitizes and forwards chat messages to the provider.
type Service struct {
	provider Provider
	pool     *worker.Pool
	log      zerolog.Logger
}

// NewService creates a chat service dispatching provider calls on pool.
func NewService(provider Provider, pool *worker.Pool, log zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		pool:     pool,
		log:      log.With().Str("component", "chat").Logger(),
	}
}

// Process handles one chat message with optional conversation context. It
// never returns a Go error: failures are folded into the result's error tag.
func (s *Service) Process(ctx context.Context, message, chatContext string) api.ChatResult {
	s.log.Info().Int("message_len", len(message)).Msg("processing chat message")

	if reason := api.ValidateMessage(message); reason != "" {
		s.log.Warn().Str("reason", reason).Msg("invalid chat message")
		return api.ChatResult{Error: api.ErrValidation, Detail: reason}
	}

	prompt := api.SanitizeText(message)
	if chatContext != "" {
		prompt = fmt.Sprintf("Context: %s\n\nUser: %s", api.SanitizeText(chatContext), prompt)
	}

	future := worker.Submit(s.pool, func() (string, error) {
		return s.provider.Complete(ctx, prompt)
	})
	response, err := future.Wait(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("chat completion failed")
		return api.ChatResult{Error: api.ErrInternal, Detail: err.Error()}
	}

	return api.ChatResult{
		OK:       true,
		Response: response,
		// Character counts, not real tokens. Good enough for rough accounting.
		Usage: &api.Usage{
			PromptTokens:     len(prompt),
			CompletionTokens: len(response),
		},
	}
}
