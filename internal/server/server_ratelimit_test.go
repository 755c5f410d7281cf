package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"karsaazai/internal/app"
	"karsaazai/pkg/ai"
	"karsaazai/pkg/store"
)

func TestModelRoutesAreRateLimitedPerRouteAndClient(t *testing.T) {
	verifier, signer := newJWKSVerifier(t)
	redis := miniredis.RunT(t)

	appCore, err := app.New(app.Config{
		Store:     store.NewMemoryStore(),
		Chat:      &countingChat{},
		ChatModel: "test-model",
		Inference: ai.NewInferenceClient("http://unused", ""),
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{
		App:                  appCore,
		Store:                store.NewMemoryStore(),
		TokenVerifier:        verifier,
		RedisAddr:            redis.Addr(),
		AIRateLimitPerMinute: 2,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	token := mustSignUserToken(t, signer, "user-1")

	post := func(path string) *http.Response {
		t.Helper()
		return doJSON(t, ts, http.MethodPost, path, token, `{"text":"hi","sourceLang":"en","targetLang":"ur"}`)
	}

	for i := 0; i < 2; i++ {
		resp := post("/ai/text/translate")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	resp := post("/ai/text/translate")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after window exhausted, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After header, got %q", resp.Header.Get("Retry-After"))
	}

	// Another route keeps its own window.
	other := doJSON(t, ts, http.MethodPost, "/ai/text/summarize", token, `{"text":"hi"}`)
	other.Body.Close()
	if other.StatusCode != http.StatusOK {
		t.Fatalf("different route expected its own window, got %d", other.StatusCode)
	}

	// Thread listing is not model-backed and never limited.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/ai/support/threads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	listResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list threads: %v", err)
	}
	listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("thread listing expected 200, got %d", listResp.StatusCode)
	}
}
