package ai

import "context"

// TextGenerator generates text from a system prompt and user prompt.
// The chat client implements it directly; the fallback router uses it as the
// generic degrade path for translation and sentiment.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
