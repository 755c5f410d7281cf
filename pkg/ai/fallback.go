package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// TranslationModels maps recognized language pairs to dedicated model
// identifiers. Only en→ur and ur→en have dedicated models; every other pair
// goes straight to the generic chat path.
type TranslationModels struct {
	EnToUr string
	UrToEn string
}

func (m TranslationModels) forPair(source, target string) string {
	switch {
	case source == "en" && target == "ur":
		return strings.TrimSpace(m.EnToUr)
	case source == "ur" && target == "en":
		return strings.TrimSpace(m.UrToEn)
	default:
		return ""
	}
}

// SentimentResult is the outcome of sentiment classification on either path.
type SentimentResult struct {
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// TranslationResult carries the translated text and the model that served it.
type TranslationResult struct {
	Text      string `json:"translation"`
	UsedModel string `json:"usedModel"`
}

// strategy is one step of an ordered fallback chain. Strategies are attempted
// in order until one succeeds or all are exhausted.
type strategy struct {
	name    string
	attempt func(ctx context.Context) (string, error)
}

// Router routes translation and sentiment requests to a dedicated model when
// one is configured for the task, degrading to the generic chat model
// otherwise. A dedicated-model failure never becomes a user-visible error
// while the generic path remains.
type Router struct {
	chat           TextGenerator
	chatModel      string
	inference      *InferenceClient
	translation    TranslationModels
	sentimentModel string
}

// NewRouter wires the fallback router.
func NewRouter(chat TextGenerator, chatModel string, inference *InferenceClient, translation TranslationModels, sentimentModel string) *Router {
	return &Router{
		chat:           chat,
		chatModel:      strings.TrimSpace(chatModel),
		inference:      inference,
		translation:    translation,
		sentimentModel: strings.TrimSpace(sentimentModel),
	}
}

// Translate returns the translated text and the model identifier that
// produced it.
func (r *Router) Translate(ctx context.Context, text, sourceLang, targetLang string) (TranslationResult, error) {
	source := normalizeLang(sourceLang)
	target := normalizeLang(targetLang)

	var chain []strategy
	if dedicated := r.translation.forPair(source, target); dedicated != "" {
		chain = append(chain, strategy{
			name: dedicated,
			attempt: func(ctx context.Context) (string, error) {
				return r.inference.Translate(ctx, dedicated, text)
			},
		})
	}
	chain = append(chain, strategy{
		name: r.chatModel,
		attempt: func(ctx context.Context) (string, error) {
			system := "You are a translation engine. Return only the translated text with no explanations."
			user := fmt.Sprintf("Translate the following text from %s to %s:\n\n%s", languageName(source), languageName(target), text)
			return r.chat.GenerateText(ctx, system, user)
		},
	})

	var lastErr error
	for _, step := range chain {
		out, err := step.attempt(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		return TranslationResult{Text: out, UsedModel: step.name}, nil
	}
	return TranslationResult{}, lastErr
}

// Sentiment classifies text through the dedicated model when configured,
// falling back to the chat model with a strict JSON instruction. A reply the
// fallback path cannot parse yields {"unknown", 0}, not an error.
func (r *Router) Sentiment(ctx context.Context, text string) (SentimentResult, error) {
	if r.sentimentModel != "" {
		if cand, err := r.inference.Sentiment(ctx, r.sentimentModel, text); err == nil {
			return SentimentResult{Sentiment: cand.Label, Confidence: cand.Score}, nil
		}
	}
	system := `You are a sentiment classifier. Respond with a single JSON object of the form {"sentiment": "positive"|"negative"|"neutral", "confidence": <number between 0 and 1>} and nothing else.`
	reply, err := r.chat.GenerateText(ctx, system, "Classify the sentiment of this text:\n\n"+text)
	if err != nil {
		return SentimentResult{}, err
	}
	var out SentimentResult
	if err := json.Unmarshal([]byte(extractJSONObject(reply)), &out); err != nil || out.Sentiment == "" {
		return SentimentResult{Sentiment: "unknown", Confidence: 0}, nil
	}
	out.Sentiment = strings.ToLower(out.Sentiment)
	return out, nil
}

func normalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

func languageName(code string) string {
	switch code {
	case "en":
		return "English"
	case "ur":
		return "Urdu"
	case "":
		return "the source language"
	default:
		return code
	}
}

// extractJSONObject trims surrounding prose and code fences from a model reply
// that should contain one JSON object.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
