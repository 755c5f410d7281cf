package kyc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured indicates no delegate verification service URL is set.
var ErrNotConfigured = errors.New("kyc service not configured")

// UpstreamError is a non-success response from the delegate service.
type UpstreamError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("kyc %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}

// Client calls the delegate document/face/shop verification microservice.
// The service accepts base64 images and answers opaque JSON that is passed
// through to callers unchanged.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a delegate client. Empty baseURL disables the feature;
// calls then fail with ErrNotConfigured.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Configured reports whether a delegate URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// VerifyCNIC runs document OCR on one card image and returns the recognized
// text lines.
func (c *Client) VerifyCNIC(ctx context.Context, imageB64 string) ([]string, error) {
	raw, err := c.post(ctx, "/verify-cnic", map[string]string{"image": imageB64})
	if err != nil {
		return nil, err
	}
	var out struct {
		RawText []string `json:"raw_text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode verify-cnic response: %w", err)
	}
	return out.RawText, nil
}

// FaceVerify compares a document photo against a selfie. The result is opaque.
func (c *Client) FaceVerify(ctx context.Context, cnicImageB64, selfieB64 string) (json.RawMessage, error) {
	return c.post(ctx, "/face-verify", map[string]string{
		"image1": cnicImageB64,
		"image2": selfieB64,
	})
}

// ShopVerify inspects a shop photo for objects and signage text. The result
// is opaque.
func (c *Client) ShopVerify(ctx context.Context, shopImageB64 string) (json.RawMessage, error) {
	return c.post(ctx, "/shop-verify", map[string]string{"image": shopImageB64})
}

func (c *Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kyc %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &UpstreamError{Endpoint: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode kyc %s response: %w", path, err)
	}
	return raw, nil
}
