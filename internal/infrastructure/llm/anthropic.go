// Package llm adapts the Anthropic Messages API to the chat.Assistant port.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/freely/backend/internal/domain/chat"
	"github.com/freely/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DefaultSystemPrompt is used when no prompt is configured
const DefaultSystemPrompt = `You are Freely AI, a helpful conversational commerce assistant.

Your role is to:
- Help customers find and purchase products
- Answer questions about products and services
- Provide excellent customer service
- Be friendly, professional, and concise

Keep responses helpful and conversational. If you don't know something, say so.`

// AnthropicAssistant implements chat.Assistant
type AnthropicAssistant struct {
	client     anthropic.Client
	configured bool
	model      string
	maxTokens  int64
	system     string
	logger     *zap.Logger
}

// NewAnthropicAssistant creates an assistant. Without an API key every call
// fails with chat.ErrAssistantUnavailable. Extra request options are appended
// after the configured ones; tests use option.WithBaseURL.
func NewAnthropicAssistant(cfg config.AnthropicConfig, logger *zap.Logger, opts ...option.RequestOption) *AnthropicAssistant {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(2),
	}, opts...)

	system := cfg.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}

	return &AnthropicAssistant{
		client:     anthropic.NewClient(reqOpts...),
		configured: cfg.APIKey != "",
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		system:     system,
		logger:     logger,
	}
}

func (a *AnthropicAssistant) params(req chat.CompletionRequest) anthropic.MessageNewParams {
	maxTokens := a.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}
	system := req.SystemPrompt
	if system == "" {
		system = a.system
	}

	messages := make([]anthropic.MessageParam, 0, len(req.Turns))
	for _, turn := range req.Turns {
		block := anthropic.NewTextBlock(turn.Content)
		switch turn.Role {
		case chat.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(block))
		case chat.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(block))
		}
	}

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  messages,
	}
}

// Complete sends the conversation and returns the whole reply
func (a *AnthropicAssistant) Complete(ctx context.Context, req chat.CompletionRequest) (*chat.Completion, error) {
	if !a.configured {
		return nil, chat.ErrAssistantUnavailable
	}

	start := time.Now()
	msg, err := a.client.Messages.New(ctx, a.params(req))
	if err != nil {
		a.logger.Error("Anthropic request failed", zap.String("model", a.model), zap.Error(err))
		return nil, chat.ErrAssistantFailed.WithCause(err)
	}

	completion := toCompletion(msg)
	a.logger.Debug("Anthropic completion",
		zap.String("model", completion.Model),
		zap.Int64("input_tokens", completion.Usage.InputTokens),
		zap.Int64("output_tokens", completion.Usage.OutputTokens),
		zap.Duration("latency", time.Since(start)))
	return completion, nil
}

// Stream forwards text deltas to onText as they arrive. An error from
// onText stops the stream and is returned as is.
func (a *AnthropicAssistant) Stream(ctx context.Context, req chat.CompletionRequest, onText func(chunk string) error) (*chat.Completion, error) {
	if !a.configured {
		return nil, chat.ErrAssistantUnavailable
	}

	stream := a.client.Messages.NewStreaming(ctx, a.params(req))
	defer stream.Close()

	var msg anthropic.Message
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return nil, chat.ErrAssistantFailed.WithCause(err)
		}

		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
			if err := onText(text.Text); err != nil {
				return nil, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		a.logger.Error("Anthropic stream failed", zap.String("model", a.model), zap.Error(err))
		return nil, chat.ErrAssistantFailed.WithCause(err)
	}

	return toCompletion(&msg), nil
}

func toCompletion(msg *anthropic.Message) *chat.Completion {
	var text strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	return &chat.Completion{
		Text:       text.String(),
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: chat.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}

var _ chat.Assistant = (*AnthropicAssistant)(nil)
