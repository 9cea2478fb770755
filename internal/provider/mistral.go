package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"brain/internal/types"
)

// MistralClient implements Client for the Mistral AI chat completions API.
type MistralClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// MistralConfig holds configuration for the Mistral client.
type MistralConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultMistralConfig returns sensible defaults.
func DefaultMistralConfig(apiKey string) MistralConfig {
	return MistralConfig{
		APIKey:      apiKey,
		BaseURL:     "https://api.mistral.ai/v1",
		Model:       "mistral-large-latest",
		MaxTokens:   4096,
		Temperature: 0.7,
		Timeout:     120 * time.Second,
	}
}

// NewMistralClient creates a new Mistral client with default config.
func NewMistralClient(apiKey string) *MistralClient {
	return NewMistralClientWithConfig(DefaultMistralConfig(apiKey))
}

// NewMistralClientWithConfig creates a new Mistral client with custom config.
func NewMistralClientWithConfig(config MistralConfig) *MistralClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "mistral-large-latest"
	}
	return &MistralClient{
		apiKey:      config.APIKey,
		baseURL:     config.BaseURL,
		model:       model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// MistralMessage represents a message in the conversation.
type MistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MistralRequest represents the API request structure.
type MistralRequest struct {
	Model       string           `json:"model"`
	Messages    []MistralMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	Stream      bool             `json:"stream"`
}

// MistralResponse represents the API response structure.
type MistralResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Name returns the backend identifier.
func (c *MistralClient) Name() string { return "mistral" }

// Model returns the configured model.
func (c *MistralClient) Model() string { return c.model }

// Generate sends the prompt with prior turns and returns the completion.
func (c *MistralClient) Generate(ctx context.Context, prompt string, history []types.Message) types.Result {
	if c.apiKey == "" {
		return types.Failure(c.Name(), fmt.Errorf("MISTRAL_API_KEY not configured"))
	}

	messages := make([]MistralMessage, 0, len(history)+1)
	for _, msg := range conversationTurns(history) {
		messages = append(messages, MistralMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, MistralMessage{Role: types.RoleUser, Content: prompt})

	reqBody := MistralRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return types.Failure(c.Name(), fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return types.Failure(c.Name(), fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.Failure(c.Name(), fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Failure(c.Name(), fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return types.Failure(c.Name(), fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var mistralResp MistralResponse
	if err := json.Unmarshal(body, &mistralResp); err != nil {
		return types.Failure(c.Name(), fmt.Errorf("failed to parse response: %w", err))
	}

	if mistralResp.Error != nil {
		return types.Failure(c.Name(), fmt.Errorf("API error: %s", mistralResp.Error.Message))
	}

	if len(mistralResp.Choices) == 0 {
		return types.Failure(c.Name(), fmt.Errorf("no completion returned"))
	}

	return types.Result{
		Content: strings.TrimSpace(mistralResp.Choices[0].Message.Content),
		Backend: c.Name(),
		Model:   c.model,
		Usage: &types.Usage{
			PromptTokens:     mistralResp.Usage.PromptTokens,
			CompletionTokens: mistralResp.Usage.CompletionTokens,
			TotalTokens:      mistralResp.Usage.TotalTokens,
		},
	}
}
