package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrModelNotConfigured indicates a feature's model identifier is absent
	// from configuration.
	ErrModelNotConfigured = errors.New("model not configured")
	// ErrEmptyModelOutput indicates the model returned nothing usable after
	// normalization and trimming.
	ErrEmptyModelOutput = errors.New("empty model output")
	// ErrUnexpectedFormat indicates the upstream response matched none of the
	// documented shapes.
	ErrUnexpectedFormat = errors.New("unexpected response format")
)

// UpstreamError is a non-success response from a model endpoint. Status and
// body are kept for diagnostics; handlers must not echo them to clients.
type UpstreamError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: status %d: %s", e.Endpoint, e.Status, e.Body)
}
