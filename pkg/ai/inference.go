package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultInferenceBaseURL = "https://api-inference.huggingface.co"

// InferenceClient calls hosted task-specific model endpoints: translation,
// sentiment, image captioning, speech recognition, and document OCR. Each call
// binds to a model identifier supplied by the caller so that features degrade
// independently when a model is not configured.
type InferenceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewInferenceClient builds a client for the task-model endpoint.
func NewInferenceClient(baseURL, apiKey string) *InferenceClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultInferenceBaseURL
	}
	return &InferenceClient{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Translate sends raw text to a translation model. On a shape the model did
// not document it echoes the input unchanged; only transport and upstream
// status failures surface as errors.
func (c *InferenceClient) Translate(ctx context.Context, model, text string) (string, error) {
	raw, err := c.postJSON(ctx, model, map[string]string{"inputs": text})
	if err != nil {
		return "", err
	}
	var out []struct {
		TranslationText string `json:"translation_text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || len(out) == 0 || out[0].TranslationText == "" {
		return text, nil
	}
	return out[0].TranslationText, nil
}

// SentimentCandidate is one label/score pair returned by a classifier.
type SentimentCandidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Sentiment classifies text and returns the max-score candidate with a
// lower-cased label. Classifiers answer either a flat candidate list or a
// nested one; anything else is ErrUnexpectedFormat.
func (c *InferenceClient) Sentiment(ctx context.Context, model, text string) (SentimentCandidate, error) {
	raw, err := c.postJSON(ctx, model, map[string]string{"inputs": text})
	if err != nil {
		return SentimentCandidate{}, err
	}
	candidates, err := decodeSentimentCandidates(raw)
	if err != nil {
		return SentimentCandidate{}, err
	}
	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.Score > best.Score {
			best = cand
		}
	}
	best.Label = strings.ToLower(best.Label)
	return best, nil
}

func decodeSentimentCandidates(raw json.RawMessage) ([]SentimentCandidate, error) {
	var flat []SentimentCandidate
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 && flat[0].Label != "" {
		return flat, nil
	}
	var nested [][]SentimentCandidate
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}
	return nil, fmt.Errorf("sentiment response: %w", ErrUnexpectedFormat)
}

// Caption generates a caption for raw image bytes. When the documented shape
// is absent the raw response body serves as the caption.
func (c *InferenceClient) Caption(ctx context.Context, model string, image []byte) (string, error) {
	raw, err := c.postBytes(ctx, model, image, "application/octet-stream")
	if err != nil {
		return "", err
	}
	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &out); err == nil && len(out) > 0 && out[0].GeneratedText != "" {
		return out[0].GeneratedText, nil
	}
	return strings.TrimSpace(string(raw)), nil
}

// Transcribe converts raw audio bytes to text. Missing field means empty text.
func (c *InferenceClient) Transcribe(ctx context.Context, model string, audio []byte) (string, error) {
	raw, err := c.postBytes(ctx, model, audio, "application/octet-stream")
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", nil
	}
	return out.Text, nil
}

// OCR extracts printed text from raw image bytes. Missing field means empty text.
func (c *InferenceClient) OCR(ctx context.Context, model string, image []byte) (string, error) {
	raw, err := c.postBytes(ctx, model, image, "application/octet-stream")
	if err != nil {
		return "", err
	}
	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || len(out) == 0 {
		return "", nil
	}
	return out[0].GeneratedText, nil
}

func (c *InferenceClient) postJSON(ctx context.Context, model string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, model, body, "application/json")
}

func (c *InferenceClient) postBytes(ctx context.Context, model string, data []byte, contentType string) (json.RawMessage, error) {
	return c.post(ctx, model, data, contentType)
}

func (c *InferenceClient) post(ctx context.Context, model string, body []byte, contentType string) (json.RawMessage, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, ErrModelNotConfigured
	}
	url := c.baseURL + "/models/" + model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model %s request: %w", model, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, newUpstreamError("models/"+model, resp)
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("model %s decode: %w", model, err)
	}
	return raw, nil
}
