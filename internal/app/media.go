package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"karsaazai/internal/util"
	"karsaazai/pkg/ai"
)

const maxFetchBytes = 8 << 20

// CaptionImage fetches the image behind imageURL and captions it with the
// configured captioning model.
func (a *App) CaptionImage(ctx context.Context, imageURL string) (string, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return "", requiredError("imageUrl")
	}
	image, err := a.fetchImage(ctx, imageURL)
	if err != nil {
		return "", err
	}
	return a.inference.Caption(ctx, a.captionModel, image)
}

// TranscriptionResult is the recognized text plus call metadata.
type TranscriptionResult struct {
	Text string         `json:"text"`
	Meta map[string]any `json:"meta"`
}

// Transcribe decodes base64 audio (optionally data-URL prefixed) and runs it
// through the configured speech model.
func (a *App) Transcribe(ctx context.Context, audioBase64 string) (TranscriptionResult, error) {
	audio, err := decodeBase64Payload(audioBase64)
	if err != nil {
		return TranscriptionResult{}, err
	}
	text, err := a.inference.Transcribe(ctx, a.speechModel, audio)
	if err != nil {
		return TranscriptionResult{}, err
	}
	return TranscriptionResult{
		Text: text,
		Meta: map[string]any{
			"model": a.speechModel,
			"bytes": len(audio),
		},
	}, nil
}

func (a *App) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	resp, err := a.fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &ai.UpstreamError{Endpoint: "image fetch", Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// decodeBase64Payload accepts plain base64 or a data URL
// ("data:...;base64,<payload>") and returns the raw bytes.
func decodeBase64Payload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrInvalidEncoding
	}
	if idx := strings.Index(payload, ","); idx >= 0 && strings.Contains(payload[:idx], "base64") {
		payload = payload[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return data, nil
}

// archiveMedia uploads verification media for audit. Failures are logged and
// swallowed; archival never fails a verification request.
func (a *App) archiveMedia(ctx context.Context, key string, data []byte, contentType string) {
	if a.media == nil {
		return
	}
	put, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := a.media.Put(put, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		util.LoggerFromContext(ctx).Warn("media archive failed", "key", key, "err", err)
	}
}
