package qstash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{Token: "t"}); err == nil {
		t.Fatal("NewClient() without url: want error")
	}
	if _, err := NewClient(Config{URL: "https://qstash.example"}); err == nil {
		t.Fatal("NewClient() without token: want error")
	}
	if _, err := NewClient(Config{URL: "not a url", Token: "t"}); err == nil {
		t.Fatal("NewClient() bad url: want error")
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotDedup string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"messageId":"msg_123"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL + "/", Token: "secret"})
	out, err := client.Publish(context.Background(), "orders-topic", map[string]any{"id": "order-1"}, map[string]string{
		"Upstash-Deduplication-Id": "orders-order-1",
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if out.MessageID != "msg_123" {
		t.Fatalf("MessageID = %q, want msg_123", out.MessageID)
	}
	if gotPath != "/v2/publish/orders-topic" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotDedup != "orders-order-1" {
		t.Fatalf("dedup header = %q", gotDedup)
	}
	if gotBody["id"] != "order-1" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid token"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "bad"})
	if _, err := client.Publish(context.Background(), "orders-topic", map[string]any{}, nil); err == nil {
		t.Fatal("Publish() error = nil, want status error")
	}
	if _, err := client.Publish(context.Background(), " ", map[string]any{}, nil); err == nil {
		t.Fatal("Publish() empty destination error = nil")
	}
}
