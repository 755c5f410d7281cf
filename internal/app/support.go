package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"karsaazai/internal/util"
	"karsaazai/pkg/domain"
)

const recentBookingContext = 3

// AskRequest is one support-chat turn.
type AskRequest struct {
	Message  string `json:"message"`
	Role     string `json:"role"`
	Language string `json:"language"`
	ThreadID string `json:"threadId"`
}

// AskResult is the reply plus the thread it was appended to.
type AskResult struct {
	ThreadID string `json:"threadId"`
	Reply    string `json:"reply"`
}

// Ask answers a support question and appends the turn pair (user message,
// assistant reply) to the thread, creating the thread on first use. The two
// message writes are not atomic: a failure after the thread upsert surfaces
// to the caller without rolling the upsert back. Concurrent calls with the
// same thread id can interleave message order; that race is accepted.
func (a *App) Ask(ctx context.Context, uid string, req AskRequest) (AskResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return AskResult{}, requiredError("message")
	}

	threadID := strings.TrimSpace(req.ThreadID)
	var history []domain.Message
	if threadID != "" {
		thread, ok, err := a.store.GetThread(threadID)
		if err != nil {
			return AskResult{}, fmt.Errorf("load thread: %w", err)
		}
		if ok {
			if thread.UserID != uid {
				return AskResult{}, ErrThreadForbidden
			}
			history, err = a.store.ListMessages(threadID, a.historyLimit*2)
			if err != nil {
				return AskResult{}, fmt.Errorf("load history: %w", err)
			}
		}
	} else {
		threadID = uuid.NewString()
	}

	bookings, err := a.store.ListBookingsByUser(uid, recentBookingContext)
	if err != nil {
		return AskResult{}, fmt.Errorf("load bookings: %w", err)
	}

	reply, err := a.chat.GenerateText(ctx, supportSystemPrompt(req.Role, req.Language), supportUserPrompt(message, history, bookings))
	if err != nil {
		return AskResult{}, fmt.Errorf("generate reply: %w", err)
	}

	now := time.Now().UTC()
	if err := a.store.UpsertThread(domain.Thread{
		ID:          threadID,
		UserID:      uid,
		LastMessage: reply,
		Language:    strings.TrimSpace(req.Language),
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return AskResult{}, fmt.Errorf("upsert thread: %w", err)
	}
	if err := a.store.AppendMessage(domain.Message{
		ID:        util.NewID(),
		ThreadID:  threadID,
		Sender:    domain.SenderUser,
		Text:      message,
		Language:  strings.TrimSpace(req.Language),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return AskResult{}, fmt.Errorf("save user message: %w", err)
	}
	if err := a.store.AppendMessage(domain.Message{
		ID:        util.NewID(),
		ThreadID:  threadID,
		Sender:    domain.SenderAI,
		Text:      reply,
		Language:  strings.TrimSpace(req.Language),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return AskResult{}, fmt.Errorf("save reply message: %w", err)
	}

	return AskResult{ThreadID: threadID, Reply: reply}, nil
}

// ListThreads lists the caller's recent support threads.
func (a *App) ListThreads(uid string, limit int) ([]domain.Thread, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	threads, err := a.store.ListThreadsByUser(uid, limit)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return threads, nil
}

// ListThreadMessages returns a thread's ordered message log.
func (a *App) ListThreadMessages(uid, threadID string, limit int) ([]domain.Message, error) {
	thread, ok, err := a.store.GetThread(threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	if !ok || thread.UserID != uid {
		return nil, ErrThreadForbidden
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	messages, err := a.store.ListMessages(threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func supportSystemPrompt(role, language string) string {
	var sb strings.Builder
	sb.WriteString("You are the support assistant for Karsaaz, a home-services marketplace connecting customers with service providers in Pakistan. Answer briefly and helpfully.")
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "provider":
		sb.WriteString(" The user is a service provider; help with job management, payouts, and profile verification.")
	case "customer":
		sb.WriteString(" The user is a customer; help with finding providers, bookings, and payments.")
	}
	if lang := strings.TrimSpace(language); lang != "" {
		sb.WriteString(" Reply in " + lang + ".")
	}
	return sb.String()
}

func supportUserPrompt(message string, history []domain.Message, bookings []domain.Booking) string {
	var sb strings.Builder
	if len(bookings) > 0 {
		sb.WriteString("Recent bookings of this user:\n")
		for _, b := range bookings {
			sb.WriteString(fmt.Sprintf("- status=%s created=%s\n", b.Status, b.CreatedAt.Format("2006-01-02")))
		}
		sb.WriteString("\n")
	}
	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, msg := range history {
			sb.WriteString(msg.Sender)
			sb.WriteString(": ")
			sb.WriteString(msg.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Current question: ")
	sb.WriteString(message)
	return sb.String()
}
