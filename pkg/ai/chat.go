package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultChatBaseURL = "https://api.openai.com/v1"

// ChatClient calls a chat-completions style text-generation endpoint with a
// two-message prompt (system + user). It implements TextGenerator.
type ChatClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewChatClient builds a chat client bound to one model identifier.
// baseURL should include the /v1 prefix; empty falls back to the hosted API.
func NewChatClient(baseURL, apiKey, model string) (*ChatClient, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("chat model: %w", ErrModelNotConfigured)
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}
	return &ChatClient{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Model reports the bound model identifier.
func (c *ChatClient) Model() string {
	return c.model
}

// GenerateText implements TextGenerator. The reply content may arrive as a
// single string or as a sequence of parts; parts are concatenated in order.
// A reply that trims to nothing is ErrEmptyModelOutput, never "".
func (c *ChatClient) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}
	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", newUpstreamError("chat/completions", resp)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("chat decode: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyModelOutput
	}
	text, err := normalizeContent(chatResp.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyModelOutput
	}
	return text, nil
}

// normalizeContent accepts either a JSON string or an array of text parts.
func normalizeContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single, nil
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("chat content: %w", ErrUnexpectedFormat)
	}
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func newUpstreamError(endpoint string, resp *http.Response) *UpstreamError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &UpstreamError{
		Endpoint: endpoint,
		Status:   resp.StatusCode,
		Body:     strings.TrimSpace(string(body)),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
