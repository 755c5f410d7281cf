package app

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"karsaazai/pkg/ai"
)

const defaultMaxSentences = 3

// Translate routes a translation request through the fallback router.
func (a *App) Translate(ctx context.Context, text, sourceLang, targetLang string) (ai.TranslationResult, error) {
	if strings.TrimSpace(text) == "" {
		return ai.TranslationResult{}, requiredError("text")
	}
	return a.router.Translate(ctx, text, sourceLang, targetLang)
}

// Summarize condenses text to at most maxSentences sentences via the chat
// model.
func (a *App) Summarize(ctx context.Context, text string, maxSentences int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", requiredError("text")
	}
	if maxSentences <= 0 {
		maxSentences = defaultMaxSentences
	}
	system := fmt.Sprintf("You are a summarization engine. Summarize the user's text in at most %d sentences. Return only the summary.", maxSentences)
	return a.chat.GenerateText(ctx, system, text)
}

// Sentiment classifies text through the fallback router.
func (a *App) Sentiment(ctx context.Context, text string) (ai.SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return ai.SentimentResult{}, requiredError("text")
	}
	return a.router.Sentiment(ctx, text)
}

// AnalysisResult combines a summary with sentiment classification.
type AnalysisResult struct {
	Summary    string  `json:"summary"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
}

// Analyze runs summarization and sentiment concurrently and joins both
// before responding; the first failure cancels the other call.
func (a *App) Analyze(ctx context.Context, text string, maxSentences int) (AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return AnalysisResult{}, requiredError("text")
	}
	var (
		summary   string
		sentiment ai.SentimentResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = a.Summarize(gctx, text, maxSentences)
		return err
	})
	g.Go(func() error {
		var err error
		sentiment, err = a.Sentiment(gctx, text)
		return err
	})
	if err := g.Wait(); err != nil {
		return AnalysisResult{}, err
	}
	return AnalysisResult{
		Summary:    summary,
		Sentiment:  sentiment.Sentiment,
		Confidence: sentiment.Confidence,
	}, nil
}
