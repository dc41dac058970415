package chat

import (
	"context"
	"encoding/json"
	"strings"
)

// Turn is one role/content pair sent to the model
type Turn struct {
	Role    Role
	Content string
}

// CompletionRequest is the input to the model
type CompletionRequest struct {
	SystemPrompt string
	Turns        []Turn
	MaxTokens    int
}

// Usage reports token consumption of a completion
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Completion is a finished model reply
type Completion struct {
	Text       string `json:"-"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      Usage  `json:"usage"`
}

// ReplyText returns the completion text, or the fallback when it is blank
func (c *Completion) ReplyText() string {
	if c == nil || strings.TrimSpace(c.Text) == "" {
		return FallbackReply
	}
	return c.Text
}

// MetadataJSON renders the completion metadata stored with the reply
func (c *Completion) MetadataJSON() string {
	if c == nil {
		return ""
	}
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}

// Assistant is the port to the language model provider
type Assistant interface {
	// Complete returns the whole reply at once
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// Stream calls onText for every text fragment as it arrives and returns
	// the assembled completion at the end
	Stream(ctx context.Context, req CompletionRequest, onText func(chunk string) error) (*Completion, error)
}
