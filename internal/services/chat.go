// chat.go
//
// Pass-through to an OpenAI-compatible chat-completions endpoint. The
// service appends the prompt and the assistant reply to the caller's
// history and returns both; no conversation state is kept server-side.

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taskpilot/taskpilot/internal/apperrors"
	"github.com/taskpilot/taskpilot/internal/config"
)

const fallbackReply = "Unable to generate response"

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest carries the prompt plus prior conversation history.
type ChatRequest struct {
	Prompt       string        `json:"prompt" validate:"required"`
	SystemPrompt string        `json:"system_prompt"`
	History      []ChatMessage `json:"history" validate:"omitempty,dive"`
}

// ChatService calls the configured language model.
type ChatService struct {
	APIKey  string
	BaseURL string
	Model   string
	Client  *http.Client
	Log     *slog.Logger
}

// NewChatService builds a ChatService from config, with the request timeout
// applied at the HTTP client.
func NewChatService(cfg *config.Config, log *slog.Logger) *ChatService {
	return &ChatService{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: strings.TrimSuffix(cfg.OpenAIBaseURL, "/"),
		Model:   cfg.OpenAIModel,
		Client: &http.Client{
			Timeout: time.Duration(cfg.ChatTimeoutSeconds) * time.Second,
		},
		Log: log,
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the history plus prompt upstream and returns the reply and
// the updated history.
func (s *ChatService) Complete(ctx context.Context, req *ChatRequest) (string, []ChatMessage, error) {
	history := append([]ChatMessage{}, req.History...)
	if req.SystemPrompt != "" {
		history = append(history, ChatMessage{Role: "system", Content: req.SystemPrompt})
	}
	history = append(history, ChatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatCompletionRequest{
		Model:    s.Model,
		Messages: history,
	})
	if err != nil {
		return "", nil, apperrors.NewUpstream("Failed to encode assistant request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", nil, apperrors.NewUpstream("Failed to build assistant request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(httpReq)
	if err != nil {
		s.Log.Error("assistant request failed", "error", err)
		return "", nil, apperrors.NewUpstream("Failed to get assistant response")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.Log.Error("assistant returned error status", "status", resp.StatusCode)
		return "", nil, apperrors.NewUpstream(
			"Assistant request failed with status %d", resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		s.Log.Error("failed to decode assistant response", "error", err)
		return "", nil, apperrors.NewUpstream("Failed to decode assistant response")
	}

	reply := fallbackReply
	if len(completion.Choices) > 0 {
		reply = completion.Choices[0].Message.Content
	}
	history = append(history, ChatMessage{Role: "assistant", Content: reply})
	return reply, history, nil
}
