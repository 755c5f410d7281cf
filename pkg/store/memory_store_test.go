package store

import (
	"testing"
	"time"

	"karsaazai/pkg/domain"
)

func TestUpsertThreadPreservesCreatedAt(t *testing.T) {
	st := NewMemoryStore()
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	if err := st.UpsertThread(domain.Thread{ID: "t1", UserID: "u1", LastMessage: "first", CreatedAt: created, UpdatedAt: created}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	later := created.Add(time.Hour)
	if err := st.UpsertThread(domain.Thread{ID: "t1", UserID: "u1", LastMessage: "second", CreatedAt: later, UpdatedAt: later}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	thread, ok, err := st.GetThread("t1")
	if err != nil || !ok {
		t.Fatalf("get thread: ok=%v err=%v", ok, err)
	}
	if !thread.CreatedAt.Equal(created) {
		t.Fatalf("createdAt must survive upserts, got %v", thread.CreatedAt)
	}
	if thread.LastMessage != "second" || !thread.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected thread after upsert %+v", thread)
	}
}

func TestListThreadsByUserOrdersByRecency(t *testing.T) {
	st := NewMemoryStore()
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new", "mid"} {
		offset := []time.Duration{0, 2 * time.Hour, time.Hour}[i]
		if err := st.UpsertThread(domain.Thread{ID: id, UserID: "u1", UpdatedAt: base.Add(offset)}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}
	if err := st.UpsertThread(domain.Thread{ID: "foreign", UserID: "u2", UpdatedAt: base.Add(3 * time.Hour)}); err != nil {
		t.Fatalf("upsert foreign: %v", err)
	}

	threads, err := st.ListThreadsByUser("u1", 2)
	if err != nil {
		t.Fatalf("list threads: %v", err)
	}
	if len(threads) != 2 || threads[0].ID != "new" || threads[1].ID != "mid" {
		t.Fatalf("unexpected ordering %v", threads)
	}
}

func TestMergeUserVerificationKeepsOtherDocuments(t *testing.T) {
	st := NewMemoryStore()
	st.SeedUser(domain.User{ID: "u1", Verification: map[string]any{"shop": map[string]any{"verified": true}}})

	if err := st.MergeUserVerification("u1", "cnic", map[string]any{"cnicNumber": "35202-1234567-1"}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	user, ok, err := st.GetUserByID("u1")
	if err != nil || !ok {
		t.Fatalf("get user: ok=%v err=%v", ok, err)
	}
	if _, ok := user.Verification["shop"]; !ok {
		t.Fatal("existing verification document must survive merge")
	}
	if _, ok := user.Verification["cnic"]; !ok {
		t.Fatal("merged document missing")
	}

	if err := st.MergeUserVerification("missing", "cnic", map[string]any{}); err == nil {
		t.Fatal("expected error for unknown user")
	}
}
