package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInvoke(t *testing.T) {
	var got cohereRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"text":"plan text"}`))
	}))
	defer srv.Close()

	p := New(&Config{APIKey: "key", BaseURL: srv.URL})
	resp, err := p.Invoke(context.Background(), "write a plan")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if resp.Content != "plan text" {
		t.Errorf("expected plan text, got %q", resp.Content)
	}
	if got.Message != "write a plan" || got.Model != "command-r" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestInvokeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api token"}`))
	}))
	defer srv.Close()

	if _, err := New(&Config{APIKey: "bad", BaseURL: srv.URL}).Invoke(context.Background(), "x"); err == nil {
		t.Error("expected error on 401")
	}
}
