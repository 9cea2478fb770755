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

// ClaudeClient implements Client for the Anthropic Messages API.
type ClaudeClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// ClaudeConfig holds configuration for the Claude client.
type ClaudeConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultClaudeConfig returns sensible defaults.
func DefaultClaudeConfig(apiKey string) ClaudeConfig {
	return ClaudeConfig{
		APIKey:      apiKey,
		BaseURL:     "https://api.anthropic.com/v1",
		Model:       "claude-sonnet-4-20250514",
		MaxTokens:   4096,
		Temperature: 0.7,
		Timeout:     120 * time.Second,
	}
}

// NewClaudeClient creates a new Claude client with default config.
func NewClaudeClient(apiKey string) *ClaudeClient {
	return NewClaudeClientWithConfig(DefaultClaudeConfig(apiKey))
}

// NewClaudeClientWithConfig creates a new Claude client with custom config.
func NewClaudeClientWithConfig(config ClaudeConfig) *ClaudeClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &ClaudeClient{
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

// ClaudeMessage represents a message.
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeRequest represents the Anthropic API request.
type ClaudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Messages    []ClaudeMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

// ClaudeResponse represents the API response.
type ClaudeResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Name returns the backend identifier.
func (c *ClaudeClient) Name() string { return "claude" }

// Model returns the configured model.
func (c *ClaudeClient) Model() string { return c.model }

// Generate sends the prompt with prior turns and returns the completion.
func (c *ClaudeClient) Generate(ctx context.Context, prompt string, history []types.Message) types.Result {
	if c.apiKey == "" {
		return types.Failure(c.Name(), fmt.Errorf("ANTHROPIC_API_KEY not configured"))
	}

	messages := make([]ClaudeMessage, 0, len(history)+1)
	for _, msg := range conversationTurns(history) {
		messages = append(messages, ClaudeMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, ClaudeMessage{Role: types.RoleUser, Content: prompt})

	reqBody := ClaudeRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Messages:    messages,
		Temperature: c.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return types.Failure(c.Name(), fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return types.Failure(c.Name(), fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

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

	var claudeResp ClaudeResponse
	if err := json.Unmarshal(body, &claudeResp); err != nil {
		return types.Failure(c.Name(), fmt.Errorf("failed to parse response: %w", err))
	}

	if claudeResp.Error != nil {
		return types.Failure(c.Name(), fmt.Errorf("API error: %s", claudeResp.Error.Message))
	}

	if len(claudeResp.Content) == 0 {
		return types.Failure(c.Name(), fmt.Errorf("no completion returned"))
	}

	var result strings.Builder
	for _, content := range claudeResp.Content {
		if content.Type == "text" {
			result.WriteString(content.Text)
		}
	}

	return types.Result{
		Content: strings.TrimSpace(result.String()),
		Backend: c.Name(),
		Model:   c.model,
		Usage: &types.Usage{
			PromptTokens:     claudeResp.Usage.InputTokens,
			CompletionTokens: claudeResp.Usage.OutputTokens,
			TotalTokens:      claudeResp.Usage.InputTokens + claudeResp.Usage.OutputTokens,
		},
	}
}
