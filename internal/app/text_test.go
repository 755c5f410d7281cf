package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"karsaazai/pkg/store"
)

func TestSummarizeClampsSentenceBudget(t *testing.T) {
	chat := &scriptedChat{replies: []string{"short summary"}}
	app := newTestApp(t, store.NewMemoryStore(), chat)

	out, err := app.Summarize(context.Background(), "a very long review of a plumbing visit", 0)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if out != "short summary" {
		t.Fatalf("unexpected summary %q", out)
	}
	if !strings.Contains(chat.systems[0], "at most 3 sentences") {
		t.Fatalf("expected default sentence budget in instruction, got %q", chat.systems[0])
	}
}

func TestTextOperationsRequireText(t *testing.T) {
	app := newTestApp(t, store.NewMemoryStore(), &scriptedChat{})
	ctx := context.Background()

	if _, err := app.Summarize(ctx, "   ", 3); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for blank summarize input, got %v", err)
	}
	if _, err := app.Translate(ctx, "", "en", "ur"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for blank translate input, got %v", err)
	}
	if _, err := app.Sentiment(ctx, ""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for blank sentiment input, got %v", err)
	}
	if _, err := app.Analyze(ctx, "", 3); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for blank analyze input, got %v", err)
	}
}
