package openrouter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAttributionHeaders(t *testing.T) {
	t.Parallel()

	cfg := &OpenRouterConfig{SiteURL: " https://jacferdi.example ", SiteName: "Jacferdi"}
	got := cfg.attributionHeaders()
	if got["HTTP-Referer"] != "https://jacferdi.example" || got["X-Title"] != "Jacferdi" {
		t.Fatalf("attributionHeaders() = %v", got)
	}

	if got := (&OpenRouterConfig{}).attributionHeaders(); len(got) != 0 {
		t.Fatalf("attributionHeaders() = %v, want none", got)
	}
}

func TestHeaderTransportSetsHeaders(t *testing.T) {
	t.Parallel()

	var referer, title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("HTTP-Referer")
		title = r.Header.Get("X-Title")
	}))
	t.Cleanup(server.Close)

	client := &http.Client{Transport: &headerTransport{
		base:    http.DefaultTransport,
		headers: map[string]string{"HTTP-Referer": "https://jacferdi.example", "X-Title": "Jacferdi"},
	}}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()

	if referer != "https://jacferdi.example" || title != "Jacferdi" {
		t.Fatalf("headers = %q, %q", referer, title)
	}
}
