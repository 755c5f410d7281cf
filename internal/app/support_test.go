package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"karsaazai/pkg/domain"
	"karsaazai/pkg/store"
)

// scriptedChat returns queued replies in order and records prompts.
type scriptedChat struct {
	replies []string
	err     error
	systems []string
	prompts []string
}

func (s *scriptedChat) GenerateText(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.systems = append(s.systems, systemPrompt)
	s.prompts = append(s.prompts, userPrompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "ok", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func TestAskCreatesThreadAndStoresTurnPair(t *testing.T) {
	st := store.NewMemoryStore()
	chat := &scriptedChat{replies: []string{"You can rebook from the app."}}
	app := newTestApp(t, st, chat)

	result, err := app.Ask(context.Background(), "user-1", AskRequest{Message: "How do I rebook?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if result.ThreadID == "" {
		t.Fatal("expected a generated thread id")
	}
	if result.Reply != "You can rebook from the app." {
		t.Fatalf("unexpected reply %q", result.Reply)
	}

	thread, ok, err := st.GetThread(result.ThreadID)
	if err != nil || !ok {
		t.Fatalf("thread not stored: ok=%v err=%v", ok, err)
	}
	if thread.UserID != "user-1" || thread.LastMessage != result.Reply {
		t.Fatalf("unexpected thread %+v", thread)
	}

	messages, err := st.ListMessages(result.ThreadID, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user+assistant pair, got %d messages", len(messages))
	}
	if messages[0].Sender != domain.SenderUser || messages[0].Text != "How do I rebook?" {
		t.Fatalf("unexpected first message %+v", messages[0])
	}
	if messages[1].Sender != domain.SenderAI || messages[1].Text != result.Reply {
		t.Fatalf("unexpected second message %+v", messages[1])
	}
}

func TestAskSecondTurnAppendsToSameThread(t *testing.T) {
	st := store.NewMemoryStore()
	chat := &scriptedChat{replies: []string{"first reply", "second reply"}}
	app := newTestApp(t, st, chat)

	first, err := app.Ask(context.Background(), "user-1", AskRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("first ask: %v", err)
	}
	second, err := app.Ask(context.Background(), "user-1", AskRequest{Message: "and my booking?", ThreadID: first.ThreadID})
	if err != nil {
		t.Fatalf("second ask: %v", err)
	}
	if second.ThreadID != first.ThreadID {
		t.Fatalf("expected same thread, got %s vs %s", second.ThreadID, first.ThreadID)
	}

	messages, err := st.ListMessages(first.ThreadID, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages after two turns, got %d", len(messages))
	}
	thread, _, _ := st.GetThread(first.ThreadID)
	if thread.LastMessage != "second reply" {
		t.Fatalf("expected lastMessage updated to second reply, got %q", thread.LastMessage)
	}

	// Second turn must carry the earlier exchange as context.
	lastPrompt := chat.prompts[len(chat.prompts)-1]
	if !strings.Contains(lastPrompt, "first reply") || !strings.Contains(lastPrompt, "hello") {
		t.Fatalf("expected history in prompt, got %q", lastPrompt)
	}
}

func TestAskRejectsForeignThread(t *testing.T) {
	st := store.NewMemoryStore()
	app := newTestApp(t, st, &scriptedChat{})

	if err := st.UpsertThread(domain.Thread{ID: "t1", UserID: "owner"}); err != nil {
		t.Fatalf("seed thread: %v", err)
	}
	_, err := app.Ask(context.Background(), "intruder", AskRequest{Message: "hi", ThreadID: "t1"})
	if !errors.Is(err, ErrThreadForbidden) {
		t.Fatalf("expected ErrThreadForbidden, got %v", err)
	}
}

func TestAskStoresNothingWhenModelFails(t *testing.T) {
	st := store.NewMemoryStore()
	chat := &scriptedChat{err: errors.New("model down")}
	app := newTestApp(t, st, chat)

	_, err := app.Ask(context.Background(), "user-1", AskRequest{Message: "hello"})
	if err == nil {
		t.Fatal("expected error when model fails")
	}
	threads, err := st.ListThreadsByUser("user-1", 10)
	if err != nil {
		t.Fatalf("list threads: %v", err)
	}
	if len(threads) != 0 {
		t.Fatalf("failed turn must not create a thread, got %d", len(threads))
	}
}

func TestAskIncludesRecentBookingsInPrompt(t *testing.T) {
	st := store.NewMemoryStore()
	st.SeedBooking(domain.Booking{ID: "b1", CustomerID: "user-1", Status: "done"})
	chat := &scriptedChat{}
	app := newTestApp(t, st, chat)

	if _, err := app.Ask(context.Background(), "user-1", AskRequest{Message: "where is my receipt?"}); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(chat.prompts[0], "status=done") {
		t.Fatalf("expected booking context in prompt, got %q", chat.prompts[0])
	}
}

func TestAskAdjustsSystemPromptForRoleAndLanguage(t *testing.T) {
	chat := &scriptedChat{}
	app := newTestApp(t, store.NewMemoryStore(), chat)

	if _, err := app.Ask(context.Background(), "user-1", AskRequest{Message: "payout help", Role: "provider", Language: "Urdu"}); err != nil {
		t.Fatalf("ask: %v", err)
	}
	system := chat.systems[0]
	if !strings.Contains(system, "service provider") {
		t.Fatalf("expected provider guidance in system prompt, got %q", system)
	}
	if !strings.Contains(system, "Reply in Urdu") {
		t.Fatalf("expected language instruction, got %q", system)
	}
}

func TestListThreadMessagesEnforcesOwnership(t *testing.T) {
	st := store.NewMemoryStore()
	app := newTestApp(t, st, &scriptedChat{})
	if err := st.UpsertThread(domain.Thread{ID: "t1", UserID: "owner"}); err != nil {
		t.Fatalf("seed thread: %v", err)
	}

	if _, err := app.ListThreadMessages("owner", "t1", 10); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := app.ListThreadMessages("intruder", "t1", 10); !errors.Is(err, ErrThreadForbidden) {
		t.Fatalf("expected ErrThreadForbidden for foreign reader, got %v", err)
	}
	if _, err := app.ListThreadMessages("owner", "missing", 10); !errors.Is(err, ErrThreadForbidden) {
		t.Fatalf("expected ErrThreadForbidden for unknown thread, got %v", err)
	}
}
