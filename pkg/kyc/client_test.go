package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUnconfiguredClientFailsFast(t *testing.T) {
	client := NewClient("   ")
	if client.Configured() {
		t.Fatal("blank URL should leave client unconfigured")
	}
	if _, err := client.VerifyCNIC(context.Background(), "img"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestVerifyCNICReturnsRawTextLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify-cnic" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["image"] != "front-b64" {
			t.Errorf("unexpected image payload %q", req["image"])
		}
		_, _ = w.Write([]byte(`{"raw_text":["Name: Ahmed Khan","CNIC: 35202-1234567-1"]}`))
	}))
	defer srv.Close()

	lines, err := NewClient(srv.URL).VerifyCNIC(context.Background(), "front-b64")
	if err != nil {
		t.Fatalf("verify-cnic: %v", err)
	}
	if len(lines) != 2 || lines[1] != "CNIC: 35202-1234567-1" {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestFaceVerifyPassesResultThrough(t *testing.T) {
	const verdict = `{"verified":true,"distance":0.31,"threshold":0.4}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/face-verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["image1"] != "cnic-b64" || req["image2"] != "selfie-b64" {
			t.Errorf("unexpected payload %v", req)
		}
		_, _ = w.Write([]byte(verdict))
	}))
	defer srv.Close()

	raw, err := NewClient(srv.URL).FaceVerify(context.Background(), "cnic-b64", "selfie-b64")
	if err != nil {
		t.Fatalf("face-verify: %v", err)
	}
	if string(raw) != verdict {
		t.Fatalf("expected opaque passthrough, got %s", raw)
	}
}

func TestShopVerifyUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("detector crashed"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ShopVerify(context.Background(), "shop-b64")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Endpoint != "/shop-verify" || upstream.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected upstream error %+v", upstream)
	}
}
